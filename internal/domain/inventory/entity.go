// internal/domain/inventory/entity.go
package inventory

import (
	"time"
)

// MovementType represents the direction of a stock movement
type MovementType string

const (
	MovementTypeInbound  MovementType = "inbound"
	MovementTypeOutbound MovementType = "outbound"
)

// MovementReason represents the reason for a stock movement
type MovementReason string

const (
	ReasonProduction   MovementReason = "production"
	ReasonSale         MovementReason = "sale"
	ReasonCancellation MovementReason = "cancellation"
	ReasonPurchase     MovementReason = "purchase"
	ReasonAdjustment   MovementReason = "adjustment"
)

// Reference types recorded on movements
const (
	RefProductionBatch = "production_batch"
	RefOrder           = "order"
	RefPurchase        = "purchase"
)

// StockMovement is the audit row written for every stock delta. Variant
// movements carry a VariantID; raw material movements do not.
type StockMovement struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ProductID        uint           `gorm:"not null;index" json:"product_id"`
	VariantID        *uint          `gorm:"index" json:"variant_id,omitempty"`
	MovementType     MovementType   `gorm:"not null;size:20" json:"movement_type"`
	Reason           MovementReason `gorm:"not null;size:20" json:"reason"`
	Quantity         int            `gorm:"not null" json:"quantity"`
	PreviousQuantity int            `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int            `gorm:"not null" json:"new_quantity"`
	ReferenceType    string         `gorm:"size:50;index:idx_movement_reference" json:"reference_type"`
	ReferenceID      uint           `gorm:"index:idx_movement_reference" json:"reference_id"`
	CreatedBy        uint           `gorm:"index" json:"created_by"`
	CreatedAt        time.Time      `json:"created_at"`
}

// TableName overrides
func (StockMovement) TableName() string { return "stock_movements" }

// Reference identifies what caused a movement and who triggered it
type Reference struct {
	Type    string
	ID      uint
	ActorID uint
}
