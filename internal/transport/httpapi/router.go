// Package httpapi is the JSON gateway in front of the dispatcher.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pushrelay/internal/observability/metrics"
	logx "pushrelay/pkg/logx"
)

// Deps wires the gateway. Metrics is optional.
type Deps struct {
	Dispatcher     Dispatcher
	SenderReady    ReadyFunc
	SchedulerState StateFunc
	Metrics        *metrics.Metrics
	CORSOrigins    []string
	Log            logx.Logger
	Now            func() time.Time
}

// NewRouter builds the HTTP handler tree.
func NewRouter(deps Deps) http.Handler {
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := &handlers{
		d:         deps.Dispatcher,
		validate:  newValidator(),
		log:       log,
		now:       now,
		ready:     deps.SenderReady,
		scheduler: deps.SchedulerState,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(requestLogger(log))
	r.Use(recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, msgNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/notify/user", h.notifyUser)
		r.Post("/notify/users", h.notifyUsers)
		r.Post("/notify/topic", h.notifyTopic)
		r.Get("/health", h.health)
		r.Get("/docs", h.docs)
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	return r
}
