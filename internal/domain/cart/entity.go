// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/neonarte/neon-backend/internal/domain/product"
	"github.com/neonarte/neon-backend/internal/domain/quote"
	"github.com/shopspring/decimal"
)

// Cart is the single shopping cart of a user
type Cart struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE;" json:"items"`
}

// CartItem is a line referencing either a product variant or a quote
type CartItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	CartID    uint            `gorm:"not null;index" json:"cart_id"`
	VariantID *uint           `gorm:"index" json:"variant_id,omitempty"`
	QuoteID   *uint           `gorm:"index" json:"quote_id,omitempty"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	// Relationships
	Variant *product.ProductVariant `gorm:"foreignKey:VariantID" json:"variant,omitempty"`
	Quote   *quote.Quote            `gorm:"foreignKey:QuoteID" json:"quote,omitempty"`
}

// TableName overrides
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// Recalculate sets the subtotal from quantity and unit price
func (i *CartItem) Recalculate() {
	i.Subtotal = i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartTotals represents calculated cart totals
type CartTotals struct {
	ItemCount     int             `json:"item_count"`
	TotalQuantity int             `json:"total_quantity"`
	Total         decimal.Decimal `json:"total"`
}

// Totals sums the cart lines
func (c *Cart) Totals() CartTotals {
	totals := CartTotals{ItemCount: len(c.Items), Total: decimal.Zero}
	for _, item := range c.Items {
		totals.TotalQuantity += item.Quantity
		totals.Total = totals.Total.Add(item.Subtotal)
	}
	return totals
}
