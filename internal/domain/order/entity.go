// internal/domain/order/entity.go
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neonarte/neon-backend/internal/domain/product"
	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// fulfillment is the forward sequence an order moves along
var fulfillment = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
}

func (s OrderStatus) step() int {
	for i, known := range fulfillment {
		if s == known {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	return s == OrderStatusCancelled || s.step() >= 0
}

// Order is an immutable snapshot of what was bought and at which price
type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderNumber   string          `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	PaymentMethod string          `gorm:"not null;size:50" json:"payment_method"`
	Status        OrderStatus     `gorm:"not null;size:20;default:'pending';index" json:"status"`
	Total         decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total"`
	CancelledAt   *time.Time      `json:"cancelled_at"`
	DeliveredAt   *time.Time      `json:"delivered_at"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// Relationships
	User          *user.User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem is a priced line of an order. Exactly one of VariantID and
// QuoteID is set.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	VariantID *uint           `gorm:"index" json:"variant_id,omitempty"`
	QuoteID   *uint           `gorm:"index" json:"quote_id,omitempty"`
	Name      string          `gorm:"not null;size:255" json:"name"`
	Color     string          `gorm:"size:50" json:"color"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`

	// Relationships
	Variant *product.ProductVariant `gorm:"foreignKey:VariantID" json:"variant,omitempty"`
	Quote   *quote.Quote            `gorm:"foreignKey:QuoteID" json:"quote,omitempty"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null;size:20" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedBy uint        `gorm:"index" json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// Physical reports whether the line debits stock
func (i *OrderItem) Physical() bool {
	return i.VariantID != nil
}

// GenerateOrderNumber returns a number of the form NEO-YYYYMMDD-XXXXXXXX
func GenerateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("NEO-%s-%s", now.Format("20060102"), suffix)
}

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status != OrderStatusCancelled && o.Status != OrderStatusDelivered
}

// CanAdvanceTo reports whether next is a later step of fulfillment
func (o *Order) CanAdvanceTo(next OrderStatus) bool {
	from, to := o.Status.step(), next.step()
	return from >= 0 && to > from
}

// AddStatusHistory adds a new status change to history
func (o *Order) AddStatusHistory(status OrderStatus, comment string, createdBy uint) {
	o.StatusHistory = append(o.StatusHistory, OrderStatusHistory{
		OrderID:   o.ID,
		Status:    status,
		Comment:   comment,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	})
}

// SumItems returns the sum of the line subtotals
func (o *Order) SumItems() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal)
	}
	return total
}
