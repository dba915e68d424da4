package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/GratienSA/escargotAPI/internal/domain"
	"github.com/GratienSA/escargotAPI/internal/service"
	apperrors "github.com/GratienSA/escargotAPI/pkg/errors"
	"github.com/GratienSA/escargotAPI/pkg/httputil"
	"github.com/GratienSA/escargotAPI/pkg/middleware"
	"github.com/GratienSA/escargotAPI/pkg/pagination"
	"github.com/GratienSA/escargotAPI/pkg/validator"
)

// OrderHandler handles order lookup and status endpoints.
type OrderHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.CheckoutService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  logger,
	}
}

// UpdateOrderStatusRequest is the JSON request body for an admin status
// change.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	orders, total, err := h.service.ListUserOrders(r.Context(), middleware.UserIDFromContext(r.Context()), params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pagination.NewResult(orders, total, params)})
}

// GetOrder handles GET /api/v1/orders/{orderID}
//
// Non-admin callers only see their own orders; anyone else's order id
// answers 404 rather than confirming it exists.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	if order.UserID != userID && middleware.RoleFromContext(r.Context()) != domain.RoleAdmin {
		httputil.WriteError(w, r, apperrors.NotFound("order", orderID), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// PayOrder handles POST /api/v1/orders/{orderID}/pay
//
// Payment confirmations normally arrive on the event bus; this endpoint
// covers the synchronous return flow from the payment page.
func (h *OrderHandler) PayOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	if order.UserID != userID && middleware.RoleFromContext(r.Context()) != domain.RoleAdmin {
		httputil.WriteError(w, r, apperrors.NotFound("order", orderID), h.logger)
		return
	}

	if err := h.service.MarkPaid(r.Context(), orderID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err = h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// AdminListOrders handles GET /api/v1/admin/orders
func (h *OrderHandler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	status := r.URL.Query().Get("status")

	orders, total, err := h.service.ListOrders(r.Context(), status, params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pagination.NewResult(orders, total, params)})
}

// AdminUpdateStatus handles PUT /api/v1/admin/orders/{orderID}/status
func (h *OrderHandler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req UpdateOrderStatusRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

func parseOrderID(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "orderID")
	if _, err := uuid.Parse(raw); err != nil {
		return "", apperrors.InvalidInput("invalid order id")
	}
	return raw, nil
}
