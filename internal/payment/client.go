// Package payment is the HTTP adapter for the external checkout/payment
// service. The payment provider is opaque to us: we send the order payload
// and get back a session handle for the client-side redirect.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/GratienSA/escargotAPI/internal/domain"
	"github.com/GratienSA/escargotAPI/pkg/httpclient"
)

// HTTPDoer is the interface for executing HTTP requests. Both
// httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Session is the payment session handle returned by the checkout service.
type Session struct {
	ID  string `json:"sessionId"`
	URL string `json:"url,omitempty"`
}

// sessionItem is the wire shape of an order line in the checkout request.
type sessionItem struct {
	Name     string `json:"name"`
	Image    string `json:"image,omitempty"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type sessionRequest struct {
	OrderID       string         `json:"orderId"`
	UserID        string         `json:"userId"`
	Items         []sessionItem  `json:"items"`
	ItemsPrice    int64          `json:"itemsPrice"`
	TaxPrice      int64          `json:"taxPrice"`
	ShippingPrice int64          `json:"shippingPrice"`
	TotalAmount   int64          `json:"totalAmount"`
	Currency      string         `json:"currency"`
	PaymentMethod string         `json:"paymentMethod"`
	Shipping      domain.Address `json:"shippingAddress"`
	SuccessURL    string         `json:"successUrl,omitempty"`
	CancelURL     string         `json:"cancelUrl,omitempty"`
}

// Client calls the external checkout/payment service.
type Client struct {
	http    HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a payment client.
func NewClient(http HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    http,
		baseURL: baseURL,
		logger:  logger,
	}
}

// CreateSession submits the order to the external checkout endpoint and
// returns the payment session for the redirect step.
func (c *Client) CreateSession(ctx context.Context, order *domain.Order) (*Session, error) {
	req := sessionRequest{
		OrderID:       order.ID,
		UserID:        order.UserID,
		Items:         make([]sessionItem, len(order.Items)),
		ItemsPrice:    order.ItemsPrice,
		TaxPrice:      order.TaxPrice,
		ShippingPrice: order.ShippingPrice,
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency,
		PaymentMethod: order.PaymentMethod,
		Shipping:      order.Shipping,
	}
	for i, item := range order.Items {
		req.Items[i] = sessionItem{
			Name:     item.Name,
			Image:    item.ImagePath,
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal checkout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create checkout request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("call checkout service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, httpclient.ParseResponseError(resp, "checkout")
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode checkout response: %w", err)
	}

	if session.ID == "" {
		return nil, fmt.Errorf("checkout returned an empty session id")
	}

	c.logger.InfoContext(ctx, "payment session created",
		slog.String("order_id", order.ID),
		slog.String("session_id", session.ID),
	)

	return &session, nil
}
