package api

import (
	"net/http"
	"time"

	"github.com/example/ec-fulfillment/internal/api/middleware"
	"github.com/example/ec-fulfillment/internal/auth"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RouterConfig holds the dependencies for the HTTP router.
type RouterConfig struct {
	Handlers       *Handlers
	JWTService     *auth.JWTService
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	h := cfg.Handlers
	staff := middleware.AllowRoles(auth.RoleAdmin, auth.RoleCSR)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(timeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.JWTService))

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.AllowRoles(auth.RoleCustomer)).Post("/", h.PlaceOrder)
			r.Get("/", h.GetOrders)
			r.With(staff).Get("/all", h.GetAllOrders)
			r.Get("/{id}", h.GetOrder)
			r.Get("/{id}/items", h.GetOrderItems)
			r.With(staff).Put("/{id}/cancel", h.CancelOrder)
			r.With(staff).Put("/{id}/deliver", h.DeliverOrder)
			r.With(staff).Put("/{id}/address", h.UpdateShippingAddress)
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.VendorOnly)
			r.Get("/orders", h.GetVendorOrders)
			r.Get("/orders/{id}/items", h.GetVendorOrderItems)
			r.Put("/orders/{id}/items/{productId}/status", h.UpdateItemStatus)
			r.Post("/products/{id}/restock", h.RestockProduct)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.GetNotifications)
			r.With(staff).Get("/broadcast", h.GetBroadcastNotifications)
			r.Put("/{id}/read", h.MarkNotificationRead)
		})
	})

	return r
}
