package pdf

import (
	"errors"
	"testing"
	"time"

	"github.com/neonarte/neon-backend/internal/domain/order"
	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceHTML(t *testing.T) {
	svc := NewService(testutil.Config())
	o := &order.Order{
		OrderNumber:   "NEO-20260102-0A1B2C3D",
		PaymentMethod: "transferencia",
		Status:        order.OrderStatusPending,
		Total:         decimal.NewFromInt(84600),
		CreatedAt:     time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
		User:          &user.User{Name: "Ana", Email: "ana@example.com"},
		Items: []order.OrderItem{
			{Name: "Cartel Bar", Color: "rosa", Quantity: 1, UnitPrice: decimal.NewFromInt(25000), Subtotal: decimal.NewFromInt(25000)},
			{Name: "Cartel a medida #3", Color: "azul", Quantity: 1, UnitPrice: decimal.NewFromInt(59600), Subtotal: decimal.NewFromInt(59600)},
		},
	}

	html, err := svc.InvoiceHTML(o)
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "FAC-NEO-20260102-0A1B2C3D")
	assert.Contains(t, out, "02/01/2026")
	assert.Contains(t, out, "$25.000,00")
	assert.Contains(t, out, "$84.600,00")
	assert.Contains(t, out, "ana@example.com")
}

func TestQuoteHTML(t *testing.T) {
	svc := NewService(testutil.Config())

	priced := &quote.Quote{
		ID:             3,
		HeightCM:       decimal.NewFromInt(50),
		WidthCM:        decimal.NewFromInt(30),
		Color:          "rosa",
		Quantity:       2,
		EstimatedPrice: decimal.NewNullDecimal(decimal.NewFromInt(59600)),
		Breakdown:      "TOTAL: $59.600,00 ARS",
		Status:         quote.StatusAwaitingConfirm,
	}
	html, err := svc.QuoteHTML(priced)
	require.NoError(t, err)
	assert.Contains(t, string(html), "50 x 30 cm")
	assert.Contains(t, string(html), "$59.600,00")
	assert.Contains(t, string(html), "TOTAL: $59.600,00 ARS")

	unpriced := *priced
	unpriced.EstimatedPrice = decimal.NullDecimal{}
	html, err = svc.QuoteHTML(&unpriced)
	require.NoError(t, err)
	assert.Contains(t, string(html), "a confirmar")
}

func TestGenerateInvoice_UsesConverter(t *testing.T) {
	svc := NewService(testutil.Config())
	var got []byte
	svc.convert = func(html []byte) ([]byte, error) {
		got = html
		return []byte("%PDF"), nil
	}

	out, err := svc.GenerateInvoice(&order.Order{OrderNumber: "NEO-1"})
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), out)
	assert.Contains(t, string(got), "FAC-NEO-1")

	svc.convert = func([]byte) ([]byte, error) { return nil, errors.New("wkhtmltopdf not found") }
	_, err = svc.GenerateQuoteSheet(&quote.Quote{ID: 1})
	assert.Error(t, err)
}
