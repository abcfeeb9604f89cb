package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neonarte/neon-backend/internal/domain/order"
	"github.com/neonarte/neon-backend/internal/domain/pricing"
	"github.com/neonarte/neon-backend/internal/pkg/email"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/sirupsen/logrus"
)

// OrderFinder loads an order with its items and customer
type OrderFinder interface {
	FindOrder(ctx context.Context, id uint) (*order.Order, error)
}

// InvoiceGenerator renders an order invoice as PDF
type InvoiceGenerator interface {
	GenerateInvoice(o *order.Order) ([]byte, error)
}

// EmailWorker sends the transactional emails queued by the notifiers.
type EmailWorker struct {
	orders   OrderFinder
	emails   *email.EmailService
	invoices InvoiceGenerator
	log      *logrus.Entry
}

func NewEmailWorker(orders OrderFinder, emails *email.EmailService, invoices InvoiceGenerator) *EmailWorker {
	return &EmailWorker{
		orders:   orders,
		emails:   emails,
		invoices: invoices,
		log:      logger.Channel(logger.ChannelWorker),
	}
}

// Register wires the worker's handlers into p
func (w *EmailWorker) Register(p *Pool) {
	p.Handle(JobQuoteConfirmation, w.HandleQuoteConfirmation)
	p.Handle(JobOrderConfirmation, w.HandleOrderConfirmation)
}

// HandleQuoteConfirmation emails the customer that their quote is priced
// and waiting for them.
func (w *EmailWorker) HandleQuoteConfirmation(ctx context.Context, raw json.RawMessage) error {
	var p QuoteConfirmationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("decode quote payload: %w", err)
	}

	price := "a confirmar"
	if p.EstimatedPrice.Valid {
		price = "$" + pricing.FormatARS(p.EstimatedPrice.Decimal)
	}

	return w.emails.SendQuoteConfirmationEmail(ctx, email.QuoteConfirmationData{
		EmailTemplateData: email.EmailTemplateData{UserName: p.Name, UserEmail: p.Email},
		QuoteID:           p.QuoteID,
		Color:             p.Color,
		Dimensions:        fmt.Sprintf("%s x %s cm", p.HeightCM.String(), p.WidthCM.String()),
		Quantity:          p.Quantity,
		EstimatedPrice:    price,
		Status:            p.Status,
	})
}

// HandleOrderConfirmation emails the order summary with the invoice
// attached. A failed invoice render does not block the email.
func (w *EmailWorker) HandleOrderConfirmation(ctx context.Context, raw json.RawMessage) error {
	var p OrderConfirmationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("decode order payload: %w", err)
	}

	o, err := w.orders.FindOrder(ctx, p.OrderID)
	if err != nil {
		return err
	}
	if o.User == nil {
		return fmt.Errorf("order %d has no customer loaded", o.ID)
	}

	var invoice []byte
	if w.invoices != nil {
		invoice, err = w.invoices.GenerateInvoice(o)
		if err != nil {
			w.log.WithError(err).WithField("order_number", o.OrderNumber).Warn("invoice generation failed, sending without attachment")
			invoice = nil
		}
	}

	items := make([]email.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, email.OrderItem{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    pricing.FormatARS(it.UnitPrice),
			Total:    pricing.FormatARS(it.Subtotal),
		})
	}

	return w.emails.SendOrderConfirmationEmail(ctx, email.OrderConfirmationData{
		EmailTemplateData: email.EmailTemplateData{UserName: o.User.Name, UserEmail: o.User.Email},
		OrderNumber:       o.OrderNumber,
		OrderDate:         o.CreatedAt.Format("02/01/2006"),
		OrderTotal:        pricing.FormatARS(o.Total),
		PaymentMethod:     o.PaymentMethod,
		Items:             items,
	}, invoice)
}
