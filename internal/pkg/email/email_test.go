package email_test

import (
	"context"
	"errors"
	"testing"

	"github.com/neonarte/neon-backend/internal/pkg/email"
	"github.com/neonarte/neon-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	sent []*email.Email
	err  error
}

func (c *captureSender) Send(_ context.Context, e *email.Email) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, e)
	return nil
}

func TestSendQuoteConfirmationEmail(t *testing.T) {
	sender := &captureSender{}
	svc, err := email.NewEmailServiceWithSender(testutil.Config(), sender)
	require.NoError(t, err)

	err = svc.SendQuoteConfirmationEmail(context.Background(), email.QuoteConfirmationData{
		EmailTemplateData: email.EmailTemplateData{UserName: "Ana", UserEmail: "ana@example.com"},
		QuoteID:           7,
		Color:             "rosa",
		Dimensions:        "50 x 30 cm",
		Quantity:          2,
		EstimatedPrice:    "$59.600,00",
		Status:            "esperando_confirmacion",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"ana@example.com"}, msg.To)
	assert.Equal(t, "Presupuesto listo para tu confirmación", msg.Subject)
	assert.Equal(t, email.EmailTypeQuoteConfirmation, msg.Type)
	assert.Contains(t, msg.HTMLContent, "Hola Ana")
	assert.Contains(t, msg.HTMLContent, "50 x 30 cm")
	assert.Contains(t, msg.HTMLContent, "$59.600,00")
	assert.Contains(t, msg.HTMLContent, "esperando_confirmacion")
	assert.Contains(t, msg.HTMLContent, "http://localhost:3000/presupuestos/7")
}

func TestSendOrderConfirmationEmail_AttachesInvoice(t *testing.T) {
	sender := &captureSender{}
	svc, err := email.NewEmailServiceWithSender(testutil.Config(), sender)
	require.NoError(t, err)

	err = svc.SendOrderConfirmationEmail(context.Background(), email.OrderConfirmationData{
		EmailTemplateData: email.EmailTemplateData{UserName: "Ana", UserEmail: "ana@example.com"},
		OrderNumber:       "NEO-20260101-ABCDEF12",
		OrderTotal:        "50.000,00",
		Items:             []email.OrderItem{{Name: "Cartel Bar", Quantity: 2, Price: "25.000,00", Total: "50.000,00"}},
	}, []byte("%PDF-1.4"))
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	require.Len(t, sender.sent[0].Attachments, 1)
	assert.Equal(t, "factura-NEO-20260101-ABCDEF12.pdf", sender.sent[0].Attachments[0].Filename)
	assert.Contains(t, sender.sent[0].HTMLContent, "Cartel Bar")
}

func TestSendEmail_Errors(t *testing.T) {
	sender := &captureSender{err: errors.New("relay down")}
	svc, err := email.NewEmailServiceWithSender(testutil.Config(), sender)
	require.NoError(t, err)

	err = svc.SendEmail(context.Background(), &email.Email{Subject: "x"})
	assert.ErrorContains(t, err, "no recipients")

	err = svc.SendEmail(context.Background(), &email.Email{To: []string{"a@b.c"}, Type: email.EmailTypeQuoteConfirmation})
	assert.ErrorContains(t, err, "relay down")
}

func TestNewEmailService_Provider(t *testing.T) {
	cfg := testutil.Config()

	_, err := email.NewEmailService(cfg)
	assert.NoError(t, err)

	cfg.External.Email.Provider = "pigeon"
	_, err = email.NewEmailService(cfg)
	assert.Error(t, err)
}
