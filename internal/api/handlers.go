package api

import (
	"encoding/json"
	"net/http"

	"github.com/example/ec-fulfillment/internal/api/middleware"
	"github.com/example/ec-fulfillment/internal/apperr"
	"github.com/example/ec-fulfillment/internal/command"
	"github.com/example/ec-fulfillment/internal/domain/notification"
	"github.com/example/ec-fulfillment/internal/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type Handlers struct {
	cmdHandler    *command.Handler
	queryHandler  *query.Handler
	notifications *notification.Service
	logger        *zap.Logger
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, notifications *notification.Service, logger *zap.Logger) *Handlers {
	return &Handlers{
		cmdHandler:    cmdHandler,
		queryHandler:  queryHandler,
		notifications: notifications,
		logger:        logger.Named("api"),
	}
}

// Order Handlers

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.PlaceOrder
	if !h.decode(w, r, &cmd) {
		return
	}
	caller, _ := middleware.CallerFrom(r.Context())
	cmd.CustomerID = caller.UserID

	o, err := h.cmdHandler.PlaceOrder(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.CallerFrom(r.Context())
	orders, err := h.queryHandler.GetOrdersByCustomer(r.Context(), caller.UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.GetAllOrders(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.queryHandler.GetOrderByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	// Customers only see their own orders; staff see all.
	if caller, _ := middleware.CallerFrom(r.Context()); !caller.CanViewOrder(o.CustomerID) {
		h.respondError(w, r, apperr.ErrForbidden)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) GetOrderItems(w http.ResponseWriter, r *http.Request) {
	o, err := h.queryHandler.GetOrderByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if caller, _ := middleware.CallerFrom(r.Context()); !caller.CanViewOrder(o.CustomerID) {
		h.respondError(w, r, apperr.ErrForbidden)
		return
	}

	items, err := h.queryHandler.GetOrderItemsForOrder(r.Context(), o.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.CancelOrder
	if !h.decode(w, r, &cmd) {
		return
	}
	cmd.OrderID = chi.URLParam(r, "id")

	o, err := h.cmdHandler.CancelOrder(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) UpdateShippingAddress(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateShippingAddress
	if !h.decode(w, r, &cmd) {
		return
	}
	cmd.OrderID = chi.URLParam(r, "id")

	o, err := h.cmdHandler.UpdateShippingAddress(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.cmdHandler.DeliverOrder(r.Context(), command.DeliverOrder{OrderID: chi.URLParam(r, "id")})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// Vendor Handlers

func (h *Handlers) GetVendorOrders(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.CallerFrom(r.Context())
	orders, err := h.queryHandler.GetOrdersByVendor(r.Context(), caller.VendorID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetVendorOrderItems(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.CallerFrom(r.Context())
	items, err := h.queryHandler.GetOrderItemsForVendor(r.Context(), chi.URLParam(r, "id"), caller.VendorID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handlers) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateItemStatus
	if !h.decode(w, r, &cmd) {
		return
	}
	cmd.OrderID = chi.URLParam(r, "id")
	cmd.ProductID = chi.URLParam(r, "productId")
	caller, _ := middleware.CallerFrom(r.Context())
	cmd.VendorID = caller.VendorID

	o, err := h.cmdHandler.UpdateItemStatus(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) RestockProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.RestockProduct
	if !h.decode(w, r, &cmd) {
		return
	}
	cmd.ProductID = chi.URLParam(r, "id")
	caller, _ := middleware.CallerFrom(r.Context())
	cmd.VendorID = caller.VendorID

	stock, err := h.cmdHandler.RestockProduct(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"product_id": cmd.ProductID, "stock": stock})
}

// Notification Handlers

func (h *Handlers) GetNotifications(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.CallerFrom(r.Context())
	list, err := h.notifications.ListForUser(r.Context(), caller.Inbox())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handlers) GetBroadcastNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.notifications.ListBroadcast(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.cmdHandler.MarkNotificationRead(r.Context(), command.MarkNotificationRead{NotificationID: chi.URLParam(r, "id")})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

// Helper functions

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch apperr.Kind(err) {
	case apperr.ErrValidation:
		return http.StatusBadRequest
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrForbidden:
		return http.StatusForbidden
	case apperr.ErrInsufficientStock, apperr.ErrInvalidStatusTransition, apperr.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal error"
	}

	body := map[string]string{"error": msg}
	if kind := apperr.Kind(err); kind != nil {
		body["kind"] = kind.Error()
	}
	respondJSON(w, status, body)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
