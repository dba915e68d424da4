package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GratienSA/escargotAPI/internal/domain"
	apperrors "github.com/GratienSA/escargotAPI/pkg/errors"
	"github.com/GratienSA/escargotAPI/pkg/httpclient"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	return NewClient(httpclient.New(cfg), srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testOrder() *domain.Order {
	now := time.Now().UTC()
	return &domain.Order{
		ID:            "order-001",
		UserID:        "user-001",
		Status:        domain.OrderStatusPending,
		ItemsPrice:    6100,
		TaxPrice:      1220,
		ShippingPrice: 590,
		TotalAmount:   7910,
		Currency:      "EUR",
		PaymentMethod: "card",
		Shipping:      domain.Address{FullName: "Marie Dupont", City: "Dijon", Country: "FR"},
		CreatedAt:     now,
		UpdatedAt:     now,
		Items: []domain.OrderItem{
			{ID: "item-001", OrderID: "order-001", ProductID: 1, Name: "Gros Gris x12", UnitPrice: 2450, Quantity: 2},
		},
	}
}

func TestCreateSession_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "order-001", req["orderId"])
		assert.Equal(t, float64(7910), req["totalAmount"])

		json.NewEncoder(w).Encode(Session{ID: "cs_test_123", URL: "https://pay.example/cs_test_123"})
	})

	session, err := client.CreateSession(context.Background(), testOrder())

	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", session.ID)
	assert.NotEmpty(t, session.URL)
}

func TestCreateSession_PaymentRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "card declined"})
	})

	session, err := client.CreateSession(context.Background(), testOrder())

	assert.Nil(t, session)
	assert.True(t, errors.Is(err, apperrors.ErrPaymentFailed))
}

func TestCreateSession_EmptySessionID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Session{})
	})

	session, err := client.CreateSession(context.Background(), testOrder())

	assert.Nil(t, session)
	assert.ErrorContains(t, err, "empty session id")
}

func TestCreateSession_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	session, err := client.CreateSession(context.Background(), testOrder())

	assert.Nil(t, session)
	assert.Error(t, err)
}
