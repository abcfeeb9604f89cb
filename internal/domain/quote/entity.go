// internal/domain/quote/entity.go
package quote

import (
	"time"

	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle stage of a quote
type Status string

const (
	StatusPending          Status = "pendiente"
	StatusAwaitingConfirm  Status = "esperando_confirmacion"
	StatusAwaitingPayment  Status = "pendiente_pago"
	StatusPaid             Status = "pagado"
	StatusInProduction     Status = "en_produccion"
	StatusReadyForDelivery Status = "listo_para_entregar"
	StatusDelivered        Status = "entregado"
	StatusCancelled        Status = "cancelado"
)

// Statuses lists every quote status in lifecycle order
var Statuses = []Status{
	StatusPending,
	StatusAwaitingConfirm,
	StatusAwaitingPayment,
	StatusPaid,
	StatusInProduction,
	StatusReadyForDelivery,
	StatusDelivered,
	StatusCancelled,
}

// Valid reports whether s is a known quote status
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Quote is a customer request for a custom sign with its estimated price
type Quote struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	UserID         uint                `gorm:"not null;index" json:"user_id"`
	HeightCM       decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"height_cm"`
	WidthCM        decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"width_cm"`
	LengthCM       decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"length_cm"`
	Color          string              `gorm:"not null;size:50" json:"color"`
	Quantity       int                 `gorm:"not null" json:"quantity"`
	Image          string              `gorm:"size:500" json:"image"`
	EstimatedPrice decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"estimated_price"`
	Breakdown      string              `gorm:"type:text" json:"breakdown"`
	RawResponse    string              `gorm:"type:text" json:"-"`
	Note           string              `gorm:"type:text" json:"note"`
	Status         Status              `gorm:"not null;size:30;default:'pendiente';index" json:"status"`
	CreatedAt      time.Time           `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`

	// Relationships
	User *user.User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName overrides
func (Quote) TableName() string { return "quotes" }

// Priced reports whether a price was extracted for the quote
func (q *Quote) Priced() bool {
	return q.EstimatedPrice.Valid && q.EstimatedPrice.Decimal.IsPositive()
}
