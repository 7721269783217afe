package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/auth"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/idempotency"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/observability"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, verifier *auth.Verifier, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(verifier))
		r.Use(RateLimitMiddleware(rl))
		r.Use(IdempotencyMiddleware(idemp))

		r.Post("/v1/rooms", h.CreateRoom)
		r.Put("/v1/rooms/{id}", h.UpdateRoom)
		r.Delete("/v1/rooms/{id}", h.DeleteRoom)
		r.Get("/v1/rooms", h.ListAvailableRooms)
		r.Get("/v1/rooms/mine", h.ListMyRooms)

		r.Post("/v1/bookings", h.CreateBooking)
		r.Delete("/v1/bookings/{id}", h.CancelBooking)
		r.Get("/v1/bookings", h.ListBookings)
		r.Get("/v1/bookings/history", h.ListBookingHistory)

		r.Post("/v1/images", h.UploadImage)
	})

	return r
}
