package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ChristianRende22/ClinicaDental-sub000/internal/appointment"
	"github.com/ChristianRende22/ClinicaDental-sub000/internal/metrics"
)

type RouterConfig struct {
	Registry *appointment.Registry
	Slots    *appointment.SlotBook
	Postgres Pinger
	Redis    Pinger // nil when Redis is not configured
	Metrics  *metrics.Collector
	Logger   *zap.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	h := &Handlers{
		registry: cfg.Registry,
		slots:    cfg.Slots,
		metrics:  cfg.Metrics,
		log:      log,
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log, cfg.Metrics))

	// Health and metrics
	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", h.createAppointment)
		r.Get("/", h.listAppointments)
		r.Get("/{id}", h.getAppointment)
		r.Patch("/{id}", h.updateAppointment)
		r.Post("/{id}/confirm", h.confirmAppointment)
		r.Post("/{id}/cancel", h.cancelAppointment)
	})

	r.Route("/slots", func(r chi.Router) {
		r.Post("/", h.createSlot)
		r.Get("/", h.listSlots)
		r.Delete("/{id}", h.deleteSlot)
		r.Put("/{id}/availability", h.setSlotAvailability)
	})

	return r
}
