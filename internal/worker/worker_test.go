package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neonarte/neon-backend/internal/domain/order"
	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/pkg/email"
	"github.com/neonarte/neon-backend/internal/testutil"
	"github.com/neonarte/neon-backend/internal/worker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memQueue struct {
	mu    sync.Mutex
	lists map[string][][]byte
}

func newMemQueue() *memQueue {
	return &memQueue{lists: make(map[string][][]byte)}
}

func (q *memQueue) Push(_ context.Context, queue string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lists[queue] = append([][]byte{data}, q.lists[queue]...)
	return nil
}

func (q *memQueue) Pop(ctx context.Context, _ time.Duration, queues ...string) (string, []byte, error) {
	q.mu.Lock()
	for _, name := range queues {
		list := q.lists[name]
		if n := len(list); n > 0 {
			item := list[n-1]
			q.lists[name] = list[:n-1]
			q.mu.Unlock()
			return name, item, nil
		}
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", nil, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return "", nil, worker.ErrEmpty
	}
}

func (q *memQueue) len(queue string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lists[queue])
}

func (q *memQueue) dlq(t *testing.T, queue string) []worker.DLQEntry {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []worker.DLQEntry
	for _, raw := range q.lists[worker.DLQPrefix+queue] {
		var e worker.DLQEntry
		require.NoError(t, json.Unmarshal(raw, &e))
		out = append(out, e)
	}
	return out
}

type captureSender struct {
	mu   sync.Mutex
	sent []*email.Email
}

func (c *captureSender) Send(_ context.Context, e *email.Email) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, e)
	return nil
}

type stubOrders struct {
	order *order.Order
	err   error
}

func (s stubOrders) FindOrder(context.Context, uint) (*order.Order, error) {
	return s.order, s.err
}

type stubInvoices struct {
	err error
}

func (s stubInvoices) GenerateInvoice(*order.Order) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.4"), nil
}

func TestPool_ProcessesJobsInOrder(t *testing.T) {
	q := newMemQueue()
	d := worker.NewDispatcher(q)
	p := worker.NewPool(q, time.Millisecond)

	var got []int
	p.Handle("count", func(_ context.Context, raw json.RawMessage) error {
		var n int
		require.NoError(t, json.Unmarshal(raw, &n))
		got = append(got, n)
		return nil
	})

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		require.NoError(t, d.EnqueueEmail(ctx, "count", i))
	}
	for i := 0; i < 3; i++ {
		found, err := p.ProcessNext(ctx)
		require.NoError(t, err)
		assert.True(t, found)
	}

	found, err := p.ProcessNext(ctx)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestPool_RetriesThenDeadLetters(t *testing.T) {
	q := newMemQueue()
	p := worker.NewPool(q, time.Millisecond)

	calls := 0
	p.Handle("flaky", func(context.Context, json.RawMessage) error {
		calls++
		return errors.New("smtp down")
	})

	ctx := context.Background()
	require.NoError(t, worker.NewDispatcher(q).EnqueueEmail(ctx, "flaky", map[string]int{"id": 9}))

	for i := 0; i < worker.MaxAttempts; i++ {
		found, err := p.ProcessNext(ctx)
		require.NoError(t, err)
		require.True(t, found)
	}

	assert.Equal(t, worker.MaxAttempts, calls)
	assert.Zero(t, q.len(worker.QueueEmail))

	entries := q.dlq(t, worker.QueueEmail)
	require.Len(t, entries, 1)
	assert.Equal(t, "flaky", entries[0].JobType)
	assert.Equal(t, "smtp down", entries[0].Reason)
	assert.Equal(t, worker.MaxAttempts, entries[0].Attempts)
	assert.JSONEq(t, `{"id":9}`, string(entries[0].Payload))
}

func TestPool_UnknownJobGoesToDLQ(t *testing.T) {
	q := newMemQueue()
	p := worker.NewPool(q, time.Millisecond)

	require.NoError(t, worker.NewDispatcher(q).EnqueueEmail(context.Background(), "mystery", nil))
	_, err := p.ProcessNext(context.Background())
	require.NoError(t, err)

	entries := q.dlq(t, worker.QueueEmail)
	require.Len(t, entries, 1)
	assert.Equal(t, "no handler registered", entries[0].Reason)
}

func TestPool_MalformedEnvelopeKeepsBytes(t *testing.T) {
	q := newMemQueue()
	p := worker.NewPool(q, time.Millisecond)
	ctx := context.Background()

	for _, raw := range [][]byte{[]byte(`{"type":"order_confirmation","payload":`), {0xff, 0xfe, 'x'}} {
		require.NoError(t, q.Push(ctx, worker.QueueEmail, raw))
		found, err := p.ProcessNext(ctx)
		require.NoError(t, err)
		require.True(t, found)

		entries := q.dlq(t, worker.QueueEmail)
		require.NotEmpty(t, entries)
		latest := entries[0]
		assert.Equal(t, "invalid envelope", latest.Reason)
		assert.Equal(t, raw, latest.Raw)
		assert.Nil(t, latest.Payload)
	}
	assert.Len(t, q.dlq(t, worker.QueueEmail), 2)
}

func TestPool_StartStopsOnCancel(t *testing.T) {
	q := newMemQueue()
	p := worker.NewPool(q, time.Millisecond)

	done := make(chan struct{})
	p.Handle("ping", func(context.Context, json.RawMessage) error {
		close(done)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx, 2)
	require.NoError(t, worker.NewDispatcher(q).EnqueueEmail(ctx, "ping", nil))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}

	cancel()
	p.Wait()
}

func newEmailWorker(t *testing.T, orders worker.OrderFinder, invoices worker.InvoiceGenerator) (*worker.EmailWorker, *captureSender) {
	t.Helper()
	sender := &captureSender{}
	svc, err := email.NewEmailServiceWithSender(testutil.Config(), sender)
	require.NoError(t, err)
	return worker.NewEmailWorker(orders, svc, invoices), sender
}

func TestQuoteNotifier_DeliversConfirmationEmail(t *testing.T) {
	q := newMemQueue()
	p := worker.NewPool(q, time.Millisecond)
	w, sender := newEmailWorker(t, stubOrders{}, stubInvoices{})
	w.Register(p)

	notifier := worker.NewQuoteNotifier(worker.NewDispatcher(q))
	ctx := context.Background()
	require.NoError(t, notifier.QuoteAwaitingConfirmation(ctx, quote.ConfirmationNotice{
		QuoteID:        12,
		Name:           "Ana",
		Email:          "ana@example.com",
		Color:          "rosa",
		HeightCM:       decimal.NewFromInt(50),
		WidthCM:        decimal.NewFromInt(30),
		Quantity:       2,
		EstimatedPrice: decimal.NewNullDecimal(decimal.NewFromInt(59600)),
		Status:         quote.StatusAwaitingConfirm,
	}))

	_, err := p.ProcessNext(ctx)
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"ana@example.com"}, msg.To)
	assert.Contains(t, msg.HTMLContent, "50 x 30 cm")
	assert.Contains(t, msg.HTMLContent, "$59.600,00")
	assert.Contains(t, msg.HTMLContent, "/presupuestos/12")
	assert.Empty(t, q.dlq(t, worker.QueueEmail))
}

func TestHandleQuoteConfirmation_UnpricedQuote(t *testing.T) {
	w, sender := newEmailWorker(t, stubOrders{}, stubInvoices{})

	raw, err := json.Marshal(worker.QuoteConfirmationPayload{
		QuoteID: 4, Name: "Beto", Email: "beto@example.com",
		HeightCM: decimal.NewFromInt(20), WidthCM: decimal.NewFromInt(10), Quantity: 1,
	})
	require.NoError(t, err)

	require.NoError(t, w.HandleQuoteConfirmation(context.Background(), raw))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].HTMLContent, "a confirmar")
}

func sampleOrder() *order.Order {
	return &order.Order{
		ID:            5,
		OrderNumber:   "NEO-20260301-ABCDEF12",
		PaymentMethod: "transferencia",
		Total:         decimal.NewFromInt(50000),
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		User:          &user.User{Name: "Ana", Email: "ana@example.com"},
		Items: []order.OrderItem{
			{Name: "Cartel Bar", Quantity: 2, UnitPrice: decimal.NewFromInt(25000), Subtotal: decimal.NewFromInt(50000)},
		},
	}
}

func TestOrderNotifier_SendsInvoice(t *testing.T) {
	q := newMemQueue()
	p := worker.NewPool(q, time.Millisecond)
	w, sender := newEmailWorker(t, stubOrders{order: sampleOrder()}, stubInvoices{})
	w.Register(p)

	ctx := context.Background()
	require.NoError(t, worker.NewOrderNotifier(worker.NewDispatcher(q)).OrderPlaced(ctx, 5))
	_, err := p.ProcessNext(ctx)
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "Confirmación de pedido NEO-20260301-ABCDEF12", msg.Subject)
	assert.Contains(t, msg.HTMLContent, "$50.000,00")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "factura-NEO-20260301-ABCDEF12.pdf", msg.Attachments[0].Filename)
}

func TestHandleOrderConfirmation_InvoiceFailureStillSends(t *testing.T) {
	w, sender := newEmailWorker(t, stubOrders{order: sampleOrder()}, stubInvoices{err: errors.New("wkhtmltopdf missing")})

	raw, _ := json.Marshal(worker.OrderConfirmationPayload{OrderID: 5})
	require.NoError(t, w.HandleOrderConfirmation(context.Background(), raw))

	require.Len(t, sender.sent, 1)
	assert.Empty(t, sender.sent[0].Attachments)
}

func TestHandleOrderConfirmation_MissingOrder(t *testing.T) {
	w, sender := newEmailWorker(t, stubOrders{err: errors.New("not found")}, stubInvoices{})

	raw, _ := json.Marshal(worker.OrderConfirmationPayload{OrderID: 99})
	assert.Error(t, w.HandleOrderConfirmation(context.Background(), raw))
	assert.Empty(t, sender.sent)
}
