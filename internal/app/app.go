package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pushrelay/internal/config"
	"pushrelay/internal/dispatch"
	"pushrelay/internal/eventbus"
	"pushrelay/internal/observability/metrics"
	"pushrelay/internal/observability/tracing"
	"pushrelay/internal/push"
	rtsup "pushrelay/internal/runtime/supervisor"
	"pushrelay/internal/task/jobs"
	"pushrelay/internal/task/scheduler"
	"pushrelay/internal/transport/httpapi"
	logx "pushrelay/pkg/logx"
	"pushrelay/pkg/systemd"
)

// httpMaxRestarts bounds how often a crashed HTTP server is restarted before the app stops.
const httpMaxRestarts = 5

type App struct {
	cfg *config.Config

	log  logx.Logger
	logs *logx.Service
	bus  *eventbus.MemBus

	sender  *push.Deferred
	initFn  push.InitFunc
	disp    *dispatch.Dispatcher
	sched   *scheduler.Service
	metrics *metrics.Metrics
	http    *httpapi.Server

	sup             *rtsup.Supervisor
	shutdownTracing tracing.ShutdownFunc
}

// NewApp wires every component from cfg. Sender initialization problems are
// logged and leave the app degraded; everything else is returned.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	logSvc, log := logx.New(logx.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	return newApp(ctx, cfg, logSvc, log, senderInit(cfg))
}

func newApp(ctx context.Context, cfg *config.Config, logSvc *logx.Service, log logx.Logger, initFn push.InitFunc) (*App, error) {
	appLog := log.With(logx.String("comp", "app"))
	appLog.Info("config loaded", config.Summary(cfg)...)

	bus := eventbus.New()

	sender := push.NewDeferred()
	if s, err := initFn(ctx); err != nil {
		sender.SetUnavailable(err)
		appLog.Error("push sender unavailable; serving degraded",
			logx.String("credentials", cfg.Firebase.CredentialsPath),
			logx.Err(err),
		)
	} else {
		sender.Set(s)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled.Bool() {
		m = metrics.New()
		m.SetSenderReady(sender.Ready())
	}

	disp := dispatch.New(sender, dispatch.Options{
		FanoutWorkers: cfg.Dispatch.FanoutWorkers,
		FanoutRPS:     cfg.Dispatch.FanoutRPS,
	}, log.With(logx.String("comp", "dispatch")), bus)

	sched := scheduler.New(scheduler.Config{
		Enabled:    cfg.Scheduler.Enabled.Bool(),
		Interval:   cfg.Scheduler.Interval,
		Unit:       cfg.Scheduler.Unit,
		Timezone:   cfg.Scheduler.Timezone,
		JobTimeout: cfg.Scheduler.JobTimeoutDuration(),
	}, log.With(logx.String("comp", "scheduler")), bus)
	if err := registerJobs(cfg, sched, disp); err != nil {
		return nil, err
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Dispatcher:     disp,
		SenderReady:    sender.Ready,
		SchedulerState: func() string { return string(sched.State()) },
		Metrics:        m,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		Log:            log.With(logx.String("comp", "httpapi")),
	})
	srv := httpapi.NewServer(httpapi.ServerConfig{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeoutDuration(),
		WriteTimeout:      cfg.HTTP.WriteTimeoutDuration(),
		IdleTimeout:       cfg.HTTP.IdleTimeoutDuration(),
		MaxRestarts:       httpMaxRestarts,
	}, router, log)

	return &App{
		cfg:     cfg,
		log:     appLog,
		logs:    logSvc,
		bus:     bus,
		sender:  sender,
		initFn:  initFn,
		disp:    disp,
		sched:   sched,
		metrics: m,
		http:    srv,
	}, nil
}

func registerJobs(cfg *config.Config, sched *scheduler.Service, disp *dispatch.Dispatcher) error {
	if !cfg.Scheduler.Enabled.Bool() {
		return nil
	}
	user := dispatch.StringID(cfg.Scheduler.ReminderUser)
	if _, err := sched.AddRecurring(jobs.BookingReminderName, jobs.BookingReminder(disp, user)); err != nil {
		return fmt.Errorf("register %s: %w", jobs.BookingReminderName, err)
	}
	if a := cfg.Scheduler.Announcement; a.Enabled.Bool() {
		if _, err := sched.AddDaily(jobs.DailyAnnouncementName, a.At, jobs.DailyAnnouncement(disp, a.Topic)); err != nil {
			return fmt.Errorf("register %s: %w", jobs.DailyAnnouncementName, err)
		}
	}
	return nil
}

// Dispatcher exposes the wired dispatcher.
func (a *App) Dispatcher() *dispatch.Dispatcher { return a.disp }

// HTTPAddr is the bound listen address once started.
func (a *App) HTTPAddr() string { return a.http.Addr() }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	runCtx := a.sup.Context()

	shutdown, err := tracing.Init(runCtx, tracing.Config{
		Endpoint:    a.cfg.Tracing.Endpoint,
		ServiceName: a.cfg.Tracing.ServiceName,
	})
	if err != nil {
		// Tracing is optional; keep serving without it.
		a.log.Warn("tracing disabled", logx.Err(err))
	}
	a.shutdownTracing = shutdown

	if a.metrics != nil {
		a.sup.Go0("metrics.consume", func(c context.Context) { a.metrics.Consume(c, a.bus) })
	}

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	if !a.sender.Ready() {
		a.sup.Go0("push.ready", func(c context.Context) {
			select {
			case <-c.Done():
			case <-a.sender.Done():
				a.bus.Publish(eventbus.Event{Type: eventbus.TypeSenderReady})
			}
		})
		if a.cfg.Firebase.WatchCredentials.Bool() {
			path := a.cfg.Firebase.CredentialsPath
			a.sup.GoRestart("push.credentials.watch", func(c context.Context) error {
				return push.WatchCredentials(c, path, a.sender, a.initFn, a.log.With(logx.String("comp", "push")))
			}, rtsup.WithRestartBackoff(time.Second, time.Minute))
		}
	}

	a.sched.Start(runCtx)

	if err := a.http.Start(runCtx); err != nil {
		return fmt.Errorf("http listen %s: %w", a.cfg.HTTP.Addr, err)
	}
	a.sup.Go("http.monitor", func(c context.Context) error {
		select {
		case <-c.Done():
			return nil
		case err := <-a.http.Failed():
			return err
		}
	})

	if sent, err := systemd.Ready(); err != nil {
		a.log.Warn("sd_notify ready failed", logx.Err(err))
	} else if sent {
		a.log.Debug("sd_notify ready sent")
	}
	a.log.Info("app started",
		logx.String("addr", a.http.Addr()),
		logx.Bool("sender_ready", a.sender.Ready()),
		logx.String("scheduler", string(a.sched.State())),
	)
	return nil
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	if _, err := systemd.Stopping(); err != nil {
		a.log.Debug("sd_notify stopping failed", logx.Err(err))
	}

	st := stepper{ctx: ctx, log: a.log}

	// HTTP drains first while the run context is still alive.
	st.step("http", 5*time.Second, func(c context.Context) error { a.http.Stop(c); return nil })

	a.sup.Cancel()

	st.step("scheduler", 3*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	st.step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	st.step("tracing", 2*time.Second, func(c context.Context) error {
		if a.shutdownTracing != nil {
			return a.shutdownTracing(c)
		}
		return nil
	})

	counters := a.sup.Counters()
	a.log.Info("stopped",
		logx.Int64("bus_dropped", int64(a.bus.Dropped())),
		logx.Int64("goroutines_started", int64(counters.Started)),
		logx.Int64("goroutines_leaked", counters.Active),
	)
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
