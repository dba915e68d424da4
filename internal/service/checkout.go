package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/GratienSA/escargotAPI/internal/domain"
	"github.com/GratienSA/escargotAPI/internal/event"
	"github.com/GratienSA/escargotAPI/internal/payment"
	"github.com/GratienSA/escargotAPI/internal/repository"
	apperrors "github.com/GratienSA/escargotAPI/pkg/errors"
)

// PaymentCreator is the payment-service surface the checkout needs.
type PaymentCreator interface {
	CreateSession(ctx context.Context, order *domain.Order) (*payment.Session, error)
}

// SubmitOrderInput holds the parameters for submitting an order.
type SubmitOrderInput struct {
	Shipping      domain.Address `json:"shipping_address" validate:"required"`
	PaymentMethod string         `json:"payment_method" validate:"required"`
}

// SubmitOrderResult is the outcome of a successful order submission.
type SubmitOrderResult struct {
	Order   *domain.Order    `json:"order"`
	Session *payment.Session `json:"payment_session"`
}

// CheckoutService turns a session cart into a persisted order via the
// external payment service.
type CheckoutService struct {
	carts    repository.CartRepository
	orders   repository.OrderRepository
	payment  PaymentCreator
	producer *event.Producer
	pricing  domain.PricingPolicy
	logger   *slog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	carts repository.CartRepository,
	orders repository.OrderRepository,
	payment PaymentCreator,
	producer *event.Producer,
	pricing domain.PricingPolicy,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		orders:   orders,
		payment:  payment,
		producer: producer,
		pricing:  pricing,
		logger:   logger,
	}
}

// SubmitOrder builds an order from the session's cart, opens a payment
// session for it, persists it and clears the cart lines. Any failure before
// the order is accepted leaves the cart exactly as it was: no partial clear
// and no automatic retry.
func (s *CheckoutService) SubmitOrder(ctx context.Context, sessionID, userID string, input *SubmitOrderInput) (*SubmitOrderResult, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	if userID == "" {
		return nil, apperrors.Unauthorized("sign in to place an order")
	}
	if input == nil {
		return nil, apperrors.InvalidInput("order input is required")
	}
	if input.PaymentMethod == "" {
		return nil, apperrors.InvalidInput("payment method is required")
	}
	if err := validateAddress(&input.Shipping); err != nil {
		return nil, err
	}

	cart, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart for checkout: %w", err)
	}
	if len(cart.Lines) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	totals := s.pricing.ComputeTotals(cart)
	now := time.Now().UTC()
	orderID := uuid.New().String()

	items := make([]domain.OrderItem, len(cart.Lines))
	for i, line := range cart.Lines {
		items[i] = domain.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   orderID,
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			UnitPrice: line.Product.UnitPrice,
			Quantity:  line.Quantity,
			ImagePath: line.Product.ImagePath,
		}
	}

	order := &domain.Order{
		ID:            orderID,
		UserID:        userID,
		Status:        domain.OrderStatusPending,
		Items:         items,
		ItemsPrice:    totals.ItemsPrice,
		TaxPrice:      totals.TaxPrice,
		ShippingPrice: totals.ShippingPrice,
		TotalAmount:   totals.TotalAmount,
		Currency:      s.pricing.Currency,
		Shipping:      input.Shipping,
		PaymentMethod: input.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	session, err := s.payment.CreateSession(ctx, order)
	if err != nil {
		s.logger.WarnContext(ctx, "payment session rejected, cart left intact",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("create payment session: %w", err)
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	// The order is accepted; now the cart lines can go. Favorites and the
	// session user survive checkout.
	cart.Clear()
	cart.UpdatedAt = now
	if err := s.carts.Save(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "order accepted but cart clear failed",
			slog.String("order_id", orderID),
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.placed event",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order submitted",
		slog.String("order_id", orderID),
		slog.String("user_id", userID),
		slog.Int64("total_amount", order.TotalAmount),
	)

	return &SubmitOrderResult{Order: order, Session: session}, nil
}

// GetOrder retrieves an order by id.
func (s *CheckoutService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// ListUserOrders returns a page of the user's orders with the total count.
func (s *CheckoutService) ListUserOrders(ctx context.Context, userID string, page, perPage int) ([]domain.Order, int, error) {
	if userID == "" {
		return nil, 0, apperrors.InvalidInput("user id is required")
	}

	orders, total, err := s.orders.List(ctx, repository.OrderFilter{
		UserID:  &userID,
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list user orders: %w", err)
	}

	return orders, total, nil
}

// ListOrders returns a page of all orders, optionally filtered by status.
// Admin surface.
func (s *CheckoutService) ListOrders(ctx context.Context, status string, page, perPage int) ([]domain.Order, int, error) {
	filter := repository.OrderFilter{Page: page, PerPage: perPage}
	if status != "" {
		if !domain.IsValidStatus(status) {
			return nil, 0, apperrors.InvalidInput(fmt.Sprintf("unknown order status %q", status))
		}
		filter.Status = &status
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	return orders, total, nil
}

// MarkPaid settles an order after payment confirmation. Settling an already
// paid order is a no-op.
func (s *CheckoutService) MarkPaid(ctx context.Context, orderID string) error {
	if orderID == "" {
		return apperrors.InvalidInput("order id is required")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order for settlement: %w", err)
	}

	if order.Paid {
		return nil
	}
	if !order.CanTransitionTo(domain.OrderStatusPaid) {
		return apperrors.Conflict(fmt.Sprintf("order in status %q cannot be marked paid", order.Status))
	}

	if err := s.orders.MarkPaid(ctx, orderID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}

	order.Status = domain.OrderStatusPaid
	if err := s.producer.PublishOrderPaid(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.paid event",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order marked paid",
		slog.String("order_id", orderID),
	)

	return nil
}

// UpdateStatus moves an order to a new status, honoring the transition
// table. Admin surface.
func (s *CheckoutService) UpdateStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	if !domain.IsValidStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown order status %q", status))
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for status update: %w", err)
	}

	if !order.CanTransitionTo(status) {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot move order from %q to %q", order.Status, status))
	}

	now := time.Now().UTC()
	switch status {
	case domain.OrderStatusPaid:
		err = s.orders.MarkPaid(ctx, orderID, now)
		order.Paid = true
		order.PaidAt = &now
	case domain.OrderStatusDelivered:
		err = s.orders.MarkDelivered(ctx, orderID, now)
		order.Delivered = true
		order.DeliveredAt = &now
	default:
		err = s.orders.UpdateStatus(ctx, orderID, status)
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	order.Status = status
	order.UpdatedAt = now

	if err := s.producer.PublishOrderStatus(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.updated event",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", orderID),
		slog.String("status", status),
	)

	return order, nil
}

func validateAddress(a *domain.Address) error {
	if a.FullName == "" {
		return apperrors.InvalidInput("full_name is required")
	}
	if a.AddressLine == "" {
		return apperrors.InvalidInput("address_line is required")
	}
	if a.City == "" {
		return apperrors.InvalidInput("city is required")
	}
	if a.PostalCode == "" {
		return apperrors.InvalidInput("postal_code is required")
	}
	if a.Country == "" {
		return apperrors.InvalidInput("country is required")
	}
	return nil
}
