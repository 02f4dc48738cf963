package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/roomhive/roomhive/internal/bookings"
	"github.com/roomhive/roomhive/internal/observability"
	"github.com/roomhive/roomhive/internal/reviews"
	"github.com/roomhive/roomhive/internal/rooms"
	"github.com/roomhive/roomhive/internal/users"
	"github.com/roomhive/roomhive/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	UsersHandler    *users.Handler
	RoomsHandler    *rooms.Handler
	BookingsHandler *bookings.Handler
	ReviewsHandler  *reviews.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with RoomHive defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.UsersHandler != nil {
		r.Mount("/users", params.UsersHandler.Routes())
	}
	if params.RoomsHandler != nil {
		r.Mount("/rooms", params.RoomsHandler.Routes())
	}
	if params.BookingsHandler != nil {
		r.Mount("/bookings", params.BookingsHandler.Routes())
		r.Mount("/availability", params.BookingsHandler.AvailabilityRoutes())
	}
	if params.ReviewsHandler != nil {
		r.Mount("/reviews", params.ReviewsHandler.Routes())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			params.JobHandler.MountRoutes(r)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
