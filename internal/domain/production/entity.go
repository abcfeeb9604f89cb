// internal/domain/production/entity.go
package production

import (
	"time"

	"github.com/neonarte/neon-backend/internal/domain/product"
	"github.com/shopspring/decimal"
)

// BatchStatus represents the stage of a production batch
type BatchStatus string

const (
	StatusPending      BatchStatus = "Pendiente"
	StatusInProduction BatchStatus = "En produccion"
	StatusFinished     BatchStatus = "Finalizado"
)

// Valid reports whether s is a known batch status
func (s BatchStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProduction, StatusFinished:
		return true
	}
	return false
}

// ProductionBatch is a run of finished goods of one color
type ProductionBatch struct {
	ID         uint                `gorm:"primaryKey" json:"id"`
	ProductID  uint                `gorm:"not null;index" json:"product_id"`
	Color      string              `gorm:"not null;size:50;default:''" json:"color"`
	Quantity   int                 `gorm:"not null" json:"quantity"`
	Status     BatchStatus         `gorm:"not null;size:20;default:'Pendiente';index" json:"status"`
	Price      decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"price"`
	CreatedBy  uint                `gorm:"not null;index" json:"created_by"`
	CreditedAt *time.Time          `json:"credited_at,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`

	// Relationships
	Product *product.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName overrides
func (ProductionBatch) TableName() string { return "production_batches" }

// Credited reports whether the batch output has already been added to stock
func (b *ProductionBatch) Credited() bool {
	return b.CreditedAt != nil
}
