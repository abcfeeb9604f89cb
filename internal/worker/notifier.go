package worker

import (
	"context"

	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/shopspring/decimal"
)

const (
	JobQuoteConfirmation = "quote_confirmation"
	JobOrderConfirmation = "order_confirmation"
)

// QuoteConfirmationPayload is the queued form of quote.ConfirmationNotice
type QuoteConfirmationPayload struct {
	QuoteID        uint                `json:"quote_id"`
	Name           string              `json:"name"`
	Email          string              `json:"email"`
	Color          string              `json:"color"`
	HeightCM       decimal.Decimal     `json:"height_cm"`
	WidthCM        decimal.Decimal     `json:"width_cm"`
	Quantity       int                 `json:"quantity"`
	EstimatedPrice decimal.NullDecimal `json:"estimated_price"`
	Status         string              `json:"status"`
}

// OrderConfirmationPayload identifies the order to confirm by email
type OrderConfirmationPayload struct {
	OrderID uint `json:"order_id"`
}

// QuoteNotifier queues a confirmation email whenever a quote starts waiting
// for the customer.
type QuoteNotifier struct {
	dispatcher *Dispatcher
}

func NewQuoteNotifier(d *Dispatcher) *QuoteNotifier {
	return &QuoteNotifier{dispatcher: d}
}

// QuoteAwaitingConfirmation implements quote.Notifier
func (n *QuoteNotifier) QuoteAwaitingConfirmation(ctx context.Context, notice quote.ConfirmationNotice) error {
	return n.dispatcher.EnqueueEmail(ctx, JobQuoteConfirmation, QuoteConfirmationPayload{
		QuoteID:        notice.QuoteID,
		Name:           notice.Name,
		Email:          notice.Email,
		Color:          notice.Color,
		HeightCM:       notice.HeightCM,
		WidthCM:        notice.WidthCM,
		Quantity:       notice.Quantity,
		EstimatedPrice: notice.EstimatedPrice,
		Status:         string(notice.Status),
	})
}

// OrderNotifier queues an order confirmation email after checkout
type OrderNotifier struct {
	dispatcher *Dispatcher
}

func NewOrderNotifier(d *Dispatcher) *OrderNotifier {
	return &OrderNotifier{dispatcher: d}
}

// OrderPlaced implements order.Notifier
func (n *OrderNotifier) OrderPlaced(ctx context.Context, orderID uint) error {
	return n.dispatcher.EnqueueEmail(ctx, JobOrderConfirmation, OrderConfirmationPayload{OrderID: orderID})
}
