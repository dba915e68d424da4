package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GratienSA/escargotAPI/internal/catalog"
	"github.com/GratienSA/escargotAPI/internal/domain"
	"github.com/GratienSA/escargotAPI/internal/event"
	"github.com/GratienSA/escargotAPI/internal/service"
	apperrors "github.com/GratienSA/escargotAPI/pkg/errors"
	"github.com/GratienSA/escargotAPI/pkg/httputil"
	pkgkafka "github.com/GratienSA/escargotAPI/pkg/kafka"
)

// ============================================================================
// Mocks
// ============================================================================

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

// ============================================================================
// Test helpers
// ============================================================================

const testSessionID = "sess-abc123"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testProducer() *event.Producer {
	logger := testLogger()
	cfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	cfg.Async = true
	return event.NewProducer(pkgkafka.NewProducer(cfg, logger), logger)
}

func testCartHandler(repo *mockCartRepository, cat *mockCatalog) *CartHandler {
	pricing := domain.PricingPolicy{TaxRateBps: 2000, ShippingFeeCents: 590, Currency: "EUR"}
	svc := service.NewCartService(repo, cat, testProducer(), pricing, testLogger())
	return NewCartHandler(svc, testLogger())
}

// setupCartRouter creates a chi router matching production route layout.
func setupCartRouter(handler *CartHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(RequireSessionID)

		r.Get("/", handler.GetCart)
		r.Delete("/", handler.ClearCart)
		r.Post("/items", handler.AddItem)
		r.Put("/items/{productID}", handler.UpdateQuantity)
		r.Delete("/items/{productID}", handler.RemoveItem)
		r.Get("/favorites", handler.GetFavorites)
		r.Delete("/favorites", handler.ClearFavorites)
		r.Post("/favorites/{productID}", handler.ToggleFavorite)
	})
	return r
}

func newCartRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SessionIDHeader, testSessionID)
	return req
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

// decodeCartView extracts the cart view from a response envelope.
func decodeCartView(t *testing.T, rec *httptest.ResponseRecorder) CartView {
	t.Helper()
	var resp struct {
		Data CartView `json:"data"`
	}
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp.Data
}

func sampleCart() *domain.Cart {
	c := domain.NewCart(testSessionID)
	c.AddProduct(domain.ProductRef{ID: 1, Name: "Gros Gris x12", UnitPrice: 2450})
	return c
}

func sampleProduct() *catalog.Product {
	return &catalog.Product{ID: 1, Name: "Gros Gris x12", Price: 24.50, CategoryID: 1}
}

// ============================================================================
// GET /api/v1/cart
// ============================================================================

func TestGetCart_Success(t *testing.T) {
	repo := new(mockCartRepository)
	cat := new(mockCatalog)
	router := setupCartRouter(testCartHandler(repo, cat))

	repo.On("Get", mock.Anything, testSessionID).Return(sampleCart(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCartRequest(http.MethodGet, "/api/v1/cart", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	view := decodeCartView(t, rec)
	require.Len(t, view.Cart.Lines, 1)
	assert.Equal(t, int64(2450), view.Totals.ItemsPrice)
	assert.Equal(t, int64(490), view.Totals.TaxPrice)
	assert.Equal(t, int64(590), view.Totals.ShippingPrice)
	assert.Equal(t, int64(3530), view.Totals.TotalAmount)
	repo.AssertExpectations(t)
}

func TestGetCart_NewSessionReturnsEmptyCart(t *testing.T) {
	repo := new(mockCartRepository)
	cat := new(mockCatalog)
	router := setupCartRouter(testCartHandler(repo, cat))

	repo.On("Get", mock.Anything, testSessionID).Return(nil, apperrors.NotFound("cart", testSessionID))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCartRequest(http.MethodGet, "/api/v1/cart", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	view := decodeCartView(t, rec)
	assert.Empty(t, view.Cart.Lines)
	assert.Equal(t, int64(0), view.Totals.TotalAmount)
}

func TestGetCart_MissingSessionHeader(t *testing.T) {
	repo := new(mockCartRepository)
	cat := new(mockCatalog)
	router := setupCartRouter(testCartHandler(repo, cat))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

// ============================================================================
// POST /api/v1/cart/items
// ============================================================================

func TestAddItem_Success(t *testing.T) {
	repo := new(mockCartRepository)
	cat := new(mockCatalog)
	router := setupCartRouter(testCartHandler(repo, cat))

	repo.On("Get", mock.Anything, testSessionID).Return(domain.NewCart(testSessionID), nil)
	cat.On("GetProduct", mock.Anything, int64(1)).Return(sampleProduct(), nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)

	body, _ := json.Marshal(AddItemRequest{ProductID: 1})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCartRequest(http.MethodPost, "/api/v1/cart/items", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	view := decodeCartView(t, rec)
	require.Len(t, view.Cart.Lines, 1)
	assert.Equal(t, 1, view.Cart.Lines[0].Quantity)
	repo.AssertExpectations(t)
	cat.AssertExpectations(t)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	repo := new(mockCartRepository)
	cat := new(mockCatalog)
	router := setupCartRouter(testCartHandler(repo, cat))

	repo.On("Get", mock.Anything, testSessionID).Return(domain.NewCart(testSessionID), nil)
	cat.On("GetProduct", mock.Anything, int64(99)).Return(nil, apperrors.NotFound("product", "99"))

	body, _ := json.Marshal(AddItemRequest{ProductID: 99})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCartRequest(http.MethodPost, "/api/v1/cart/items", body))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAddItem_ValidationError(t *testing.T) {
	repo := new(mockCartRepository)
	cat := new(mockCatalog)
	router := setupCartRouter(testCartHandler(repo, cat))

	body := []byte(`{"product_id": 0}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCartRequest(http.MethodPost, "/api/v1/cart/items", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

// ============================================================================
// PUT /api/v1/cart/items/{productID}
// ============================================================================

func TestUpdateQuantity_Success(t *testing.T) {
	repo := new(mockCartRepository)
	cat := new(mockCatalog)
	router := setupCartRouter(testCartHandler(repo, cat))

	repo.On("Get", mock.Anything, testSessionID).Return(sampleCart(), nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)

	body, _ := json.Marshal(UpdateQuantityRequest{Quantity: 5})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCartRequest(http.MethodPut, "/api/v1/cart/items/1", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	view := decodeCartView(t, rec)
	require.Len(t, view.Cart.Lines, 1)
	assert.Equal(t, 5, view.Cart.Lines[0].Quantity)
	assert.Equal(t, int64(12250), view.Totals.ItemsPrice)
	repo.AssertExpectations(t)
}

func TestUpdateQuantity_NotApplied(t *testing.T) {
	repo := new(mockCartRepository)
	cat := new(mockCatalog)
	router := setupCartRouter(testCartHandler(repo, cat))

	repo.On("Get", mock.Anything, testSessionID).Return(sampleCart(), nil)

	// Product 42 is not in the cart. The state must come back untouched
	// with a distinct error code.
	body, _ := json.Marshal(UpdateQuantityRequest{Quantity: 3})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCartRequest(http.MethodPut, "/api/v1/cart/items/42", body))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "QUANTITY_NOT_UPDATED", resp.Error.Code)
	assert.NotNil(t, resp.Data)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUpdateQuantity_ZeroQuantity(t *testing.T) {
	repo := new(mockCartRepository)
	cat := new(mockCatalog)
	router := setupCartRouter(testCartHandler(repo, cat))

	repo.On("Get", mock.Anything, testSessionID).Return(sampleCart(), nil)

	body, _ := json.Marshal(UpdateQuantityRequest{Quantity: 0})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCartRequest(http.MethodPut, "/api/v1/cart/items/1", body))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	view := decodeCartView(t, rec)
	require.Len(t, view.Cart.Lines, 1)
	assert.Equal(t, 1, view.Cart.Lines[0].Quantity)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUpdateQuantity_BadProductID(t *testing.T) {
	repo := new(mockCartRepository)
	cat := new(mockCatalog)
	router := setupCartRouter(testCartHandler(repo, cat))

	body, _ := json.Marshal(UpdateQuantityRequest{Quantity: 2})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCartRequest(http.MethodPut, "/api/v1/cart/items/abc", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

// ============================================================================
// DELETE /api/v1/cart/items/{productID}
// ============================================================================

func TestRemoveItem_Success(t *testing.T) {
	repo := new(mockCartRepository)
	cat := new(mockCatalog)
	router := setupCartRouter(testCartHandler(repo, cat))

	repo.On("Get", mock.Anything, testSessionID).Return(sampleCart(), nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCartRequest(http.MethodDelete, "/api/v1/cart/items/1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	view := decodeCartView(t, rec)
	assert.Empty(t, view.Cart.Lines)
	assert.Equal(t, int64(0), view.Totals.TotalAmount)
}

func TestRemoveItem_AbsentProductIsNoop(t *testing.T) {
	repo := new(mockCartRepository)
	cat := new(mockCatalog)
	router := setupCartRouter(testCartHandler(repo, cat))

	repo.On("Get", mock.Anything, testSessionID).Return(sampleCart(), nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCartRequest(http.MethodDelete, "/api/v1/cart/items/999", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	view := decodeCartView(t, rec)
	require.Len(t, view.Cart.Lines, 1)
}

// ============================================================================
// DELETE /api/v1/cart
// ============================================================================

func TestClearCart_KeepsFavorites(t *testing.T) {
	repo := new(mockCartRepository)
	cat := new(mockCatalog)
	router := setupCartRouter(testCartHandler(repo, cat))

	cart := sampleCart()
	cart.ToggleFavorite(domain.ProductRef{ID: 7, Name: "Petit Gris x6", UnitPrice: 1200})
	repo.On("Get", mock.Anything, testSessionID).Return(cart, nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCartRequest(http.MethodDelete, "/api/v1/cart", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	view := decodeCartView(t, rec)
	assert.Empty(t, view.Cart.Lines)
	require.Len(t, view.Cart.Favorites, 1)
	assert.Equal(t, int64(7), view.Cart.Favorites[0].ID)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// ============================================================================
// Favorites
// ============================================================================

func TestToggleFavorite_AddsThenRemoves(t *testing.T) {
	repo := new(mockCartRepository)
	cat := new(mockCatalog)
	router := setupCartRouter(testCartHandler(repo, cat))

	cart := domain.NewCart(testSessionID)
	repo.On("Get", mock.Anything, testSessionID).Return(cart, nil)
	cat.On("GetProduct", mock.Anything, int64(1)).Return(sampleProduct(), nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCartRequest(http.MethodPost, "/api/v1/cart/favorites/1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data FavoriteView `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Data.Favored)

	// Second toggle on the same cart removes it.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, newCartRequest(http.MethodPost, "/api/v1/cart/favorites/1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Data.Favored)
}

func TestGetFavorites_Empty(t *testing.T) {
	repo := new(mockCartRepository)
	cat := new(mockCatalog)
	router := setupCartRouter(testCartHandler(repo, cat))

	repo.On("Get", mock.Anything, testSessionID).Return(domain.NewCart(testSessionID), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCartRequest(http.MethodGet, "/api/v1/cart/favorites", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []domain.ProductRef `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Data)
}

func TestClearFavorites_Success(t *testing.T) {
	repo := new(mockCartRepository)
	cat := new(mockCatalog)
	router := setupCartRouter(testCartHandler(repo, cat))

	cart := domain.NewCart(testSessionID)
	cart.ToggleFavorite(domain.ProductRef{ID: 7, Name: "Petit Gris x6", UnitPrice: 1200})
	repo.On("Get", mock.Anything, testSessionID).Return(cart, nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCartRequest(http.MethodDelete, "/api/v1/cart/favorites", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []domain.ProductRef `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Data)
}
