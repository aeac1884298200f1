package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	Router *chi.Mux
}

// NewServer wires the API routes. feed may be nil when the live feed is off.
func NewServer(handler *Handler, feed http.Handler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", handler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors)
		r.Use(clientInfo)

		r.Route("/tiers", func(r chi.Router) {
			r.Get("/", handler.ListTiers)
			r.Get("/{code}", handler.GetTier)
			r.Get("/{code}/probabilities", handler.GetProbabilities)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", handler.ListOrders)
			r.Post("/create", handler.CreateOrder)
			r.Get("/{orderId}", handler.GetOrder)
			r.Post("/{orderId}/payment", handler.PayOrder)
			r.Post("/{orderId}/break", handler.BreakOrder)
			r.Post("/{orderId}/refund", handler.RefundOrder)
		})

		r.Route("/shipping", func(r chi.Router) {
			r.Post("/", handler.SubmitShipping)
			r.Get("/{orderId}", handler.GetShipping)
		})

		if feed != nil {
			r.Get("/feed", feed.ServeHTTP)
		}
	})

	return &Server{Router: r}
}
