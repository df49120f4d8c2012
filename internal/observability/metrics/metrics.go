// Package metrics exposes Prometheus metrics for the relay.
//
// HTTP traffic is recorded by Middleware; dispatch and scheduler outcomes
// arrive through the event bus so the core packages never import Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pushrelay/internal/eventbus"
)

type Metrics struct {
	reg *prometheus.Registry

	httpDuration *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec

	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	schedulerRuns    *prometheus.CounterVec
	senderReady      prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"path", "method", "status"}),
		dispatchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "push_dispatch_total",
			Help: "Push send attempts by destination kind and outcome.",
		}, []string{"kind", "outcome"}),
		dispatchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "push_send_duration_seconds",
			Help:    "Latency of push provider calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		schedulerRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Scheduler job runs by job and outcome.",
		}, []string{"job", "outcome"}),
		senderReady: f.NewGauge(prometheus.GaugeOpts{
			Name: "push_sender_ready",
			Help: "1 when the push provider client is initialized.",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware records RED metrics keyed by the chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// Route pattern (e.g. /api/notify/user) instead of the raw path keeps cardinality bounded.
		path := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)
		m.httpDuration.WithLabelValues(path, r.Method, code).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(path, r.Method, code).Inc()
	})
}

func (m *Metrics) SetSenderReady(ready bool) {
	if ready {
		m.senderReady.Set(1)
		return
	}
	m.senderReady.Set(0)
}

// Observe folds one bus event into the counters. Unknown events are ignored.
func (m *Metrics) Observe(ev eventbus.Event) {
	switch ev.Type {
	case eventbus.TypeDispatchSent, eventbus.TypeDispatchFailed:
		out, ok := ev.Data.(eventbus.DispatchOutcome)
		if !ok {
			return
		}
		outcome := "ok"
		if ev.Type == eventbus.TypeDispatchFailed {
			outcome = "error"
		}
		m.dispatchTotal.WithLabelValues(out.Kind, outcome).Inc()
		m.dispatchDuration.WithLabelValues(out.Kind).Observe(out.Duration.Seconds())
	case eventbus.TypeSchedulerRun:
		run, ok := ev.Data.(eventbus.JobRun)
		if !ok {
			return
		}
		outcome := "ok"
		if !run.OK {
			outcome = "error"
		}
		m.schedulerRuns.WithLabelValues(run.Job, outcome).Inc()
	case eventbus.TypeSenderReady:
		m.SetSenderReady(true)
	}
}

// Consume observes bus events until ctx is done.
func (m *Metrics) Consume(ctx context.Context, bus eventbus.Bus) {
	ch, unsub := bus.Subscribe(256)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			m.Observe(ev)
		}
	}
}
