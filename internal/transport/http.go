package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/royalartisanat/shop-api/internal/handler"
	"github.com/royalartisanat/shop-api/internal/ratelimit"
)

func NewRouter(orders *handler.OrderHandler, limiter *ratelimit.Limiter) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/orders", func(r chi.Router) {
		// Guest checkout is the only unauthenticated write path, so it sits
		// behind the throttling gate.
		r.With(limiter.Middleware).Post("/guest", orders.PlaceGuestOrder)

		r.Get("/", orders.ListOrders)
		r.Get("/{id}", orders.GetOrderByID)
		r.Put("/{id}", orders.UpdateOrderStatus)
		r.Delete("/{id}", orders.DeleteOrder)
	})

	return r
}
