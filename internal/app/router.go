package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/procuredesk/procuredesk/internal/observability"
	"github.com/procuredesk/procuredesk/internal/platform/httpx"
	"github.com/procuredesk/procuredesk/internal/procurement"
	"github.com/procuredesk/procuredesk/internal/reporting"
	"github.com/procuredesk/procuredesk/internal/shared"
	"github.com/procuredesk/procuredesk/internal/users"
	"github.com/procuredesk/procuredesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	Users              UserResolver
	UsersHandler       *users.Handler
	ProcurementHandler *procurement.Handler
	ReportingHandler   *reporting.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
	// Ready reports whether the request store finished loading.
	Ready func() bool
}

// NewRouter constructs the chi.Router with ProcureDesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Users:          params.Users,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	if !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Ready != nil && !params.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"loading"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})
	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	if params.UsersHandler != nil {
		params.UsersHandler.MountRoutes(r)
	}
	r.Group(func(r chi.Router) {
		r.Use(requireReady(params.Ready))
		if params.ProcurementHandler != nil {
			params.ProcurementHandler.MountRoutes(r)
		}
		if params.ReportingHandler != nil {
			params.ReportingHandler.MountRoutes(r)
		}
	})
	if params.JobHandler != nil {
		params.JobHandler.MountRoutes(r)
	}

	return r
}

// requireReady answers 503 until the request store has loaded, so nothing is
// written into a store that the initial load is about to replace.
func requireReady(ready func() bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ready != nil && !ready() {
				w.Header().Set("Retry-After", "5")
				httpx.RespondError(w, fmt.Errorf("%w: requests are still loading", httpx.ErrUnavailable))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
