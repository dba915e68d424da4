package http

import (
	"log/slog"
	"net/http"

	"github.com/GratienSA/escargotAPI/internal/service"
	"github.com/GratienSA/escargotAPI/pkg/httputil"
	"github.com/GratienSA/escargotAPI/pkg/middleware"
	"github.com/GratienSA/escargotAPI/pkg/validator"
)

// CheckoutHandler handles order submission.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// SubmitOrder handles POST /api/v1/checkout
//
// The response carries both the pending order and the payment session the
// client must redirect to.
func (h *CheckoutHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var input service.SubmitOrderInput
	if err := validator.DecodeAndValidate(r, &input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.service.SubmitOrder(
		r.Context(),
		sessionIDFromContext(r.Context()),
		middleware.UserIDFromContext(r.Context()),
		&input,
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}
