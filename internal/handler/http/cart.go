package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GratienSA/escargotAPI/internal/domain"
	"github.com/GratienSA/escargotAPI/internal/service"
	apperrors "github.com/GratienSA/escargotAPI/pkg/errors"
	"github.com/GratienSA/escargotAPI/pkg/httputil"
	"github.com/GratienSA/escargotAPI/pkg/validator"
)

// CartHandler handles HTTP requests for cart and favorites endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request / response DTOs ---

// AddItemRequest is the JSON request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

// UpdateQuantityRequest is the JSON request body for updating a line's
// quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartView is the cart payload with its derived totals.
type CartView struct {
	Cart   *domain.Cart  `json:"cart"`
	Totals domain.Totals `json:"totals"`
}

// FavoriteView reports the result of a favorite toggle.
type FavoriteView struct {
	ProductID int64 `json:"product_id"`
	Favored   bool  `json:"favored"`
}

func (h *CartHandler) view(cart *domain.Cart) CartView {
	return CartView{Cart: cart, Totals: h.service.Totals(cart)}
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), sessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.view(cart)})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.AddProduct(r.Context(), sessionIDFromContext(r.Context()), req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.view(cart)})
}

// UpdateQuantity handles PUT /api/v1/cart/items/{productID}
//
// A quantity that cannot be applied (unknown product, zero or negative
// value) is not an error in the transport sense; it returns 422 with the
// unchanged cart so clients can show a distinct notification.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := parseProductID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, ok, err := h.service.UpdateQuantity(r.Context(), sessionIDFromContext(r.Context()), productID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if !ok {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, httputil.Response{
			Data: h.view(cart),
			Error: &httputil.ErrorResponse{
				Code:    "QUANTITY_NOT_UPDATED",
				Message: "product is not in the cart or quantity is invalid",
			},
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.view(cart)})
}

// RemoveItem handles DELETE /api/v1/cart/items/{productID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, err := parseProductID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, err := h.service.RemoveProduct(r.Context(), sessionIDFromContext(r.Context()), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.view(cart)})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.ClearCart(r.Context(), sessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.view(cart)})
}

// GetFavorites handles GET /api/v1/cart/favorites
func (h *CartHandler) GetFavorites(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), sessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart.Favorites})
}

// ToggleFavorite handles POST /api/v1/cart/favorites/{productID}
func (h *CartHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	productID, err := parseProductID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	_, favored, err := h.service.ToggleFavorite(r.Context(), sessionIDFromContext(r.Context()), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: FavoriteView{ProductID: productID, Favored: favored}})
}

// ClearFavorites handles DELETE /api/v1/cart/favorites
func (h *CartHandler) ClearFavorites(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.ClearFavorites(r.Context(), sessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart.Favorites})
}

func parseProductID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "productID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidInput(fmt.Sprintf("invalid product id %q", raw))
	}
	return id, nil
}
