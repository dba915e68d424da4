package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/GratienSA/escargotAPI/pkg/errors"
	pkgkafka "github.com/GratienSA/escargotAPI/pkg/kafka"
)

// TopicPaymentSucceeded is the payment-service event consumed to settle
// orders.
var TopicPaymentSucceeded = pkgkafka.Topic("payment", "succeeded")

// PaymentSucceededData is the expected payload of a payment.succeeded event.
type PaymentSucceededData struct {
	OrderID   string `json:"order_id"`
	SessionID string `json:"session_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// OrderSettler defines the checkout-service surface required by the consumer.
type OrderSettler interface {
	MarkPaid(ctx context.Context, orderID string) error
}

// Consumer processes payment events and settles the matching orders.
type Consumer struct {
	service     OrderSettler
	idempotency pkgkafka.IdempotencyStore
	logger      *slog.Logger
}

// NewConsumer creates a payment event consumer.
func NewConsumer(service OrderSettler, idempotency pkgkafka.IdempotencyStore, logger *slog.Logger) *Consumer {
	return &Consumer{
		service:     service,
		idempotency: idempotency,
		logger:      logger,
	}
}

// HandlePaymentSucceeded marks the referenced order as paid. Redelivered
// events are deduplicated by event id; the id is recorded only after the
// order is settled, so a transient settlement failure stays retryable.
func (c *Consumer) HandlePaymentSucceeded(ctx context.Context, event *pkgkafka.Event) error {
	seen, err := c.idempotency.Contains(ctx, event.EventID)
	if err != nil {
		// Settling twice is safe (MarkPaid is idempotent); losing a
		// settlement is not. Process when the store cannot be read.
		c.logger.WarnContext(ctx, "idempotency check failed, processing anyway",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
	}
	if seen {
		c.logger.DebugContext(ctx, "skipping duplicate payment event",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	var data PaymentSucceededData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal payment.succeeded data: %w", err)
	}

	c.logger.InfoContext(ctx, "processing payment.succeeded event",
		slog.String("order_id", data.OrderID),
		slog.Int64("amount", data.Amount),
	)

	if err := c.service.MarkPaid(ctx, data.OrderID); err != nil {
		// The order may have been settled through the HTTP callback first.
		if errors.Is(err, apperrors.ErrNotFound) {
			c.logger.WarnContext(ctx, "payment event for unknown or settled order",
				slog.String("order_id", data.OrderID),
			)
			c.recordProcessed(ctx, event.EventID)
			return nil
		}
		return fmt.Errorf("mark order %s paid: %w", data.OrderID, err)
	}

	c.logger.InfoContext(ctx, "order settled",
		slog.String("order_id", data.OrderID),
	)

	c.recordProcessed(ctx, event.EventID)
	return nil
}

// recordProcessed stores the event id once the event has been handled. A
// store failure is logged only; the worst case is a redundant MarkPaid on
// redelivery.
func (c *Consumer) recordProcessed(ctx context.Context, eventID string) {
	if err := c.idempotency.Add(ctx, eventID); err != nil {
		c.logger.WarnContext(ctx, "failed to record event id in idempotency store",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
	}
}
