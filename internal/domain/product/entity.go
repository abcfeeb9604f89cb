// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductType discriminates the two kinds of catalog rows
type ProductType string

const (
	TypeProduct     ProductType = "product"
	TypeRawMaterial ProductType = "raw_material"
)

// Valid reports whether t is a known product type
func (t ProductType) Valid() bool {
	return t == TypeProduct || t == TypeRawMaterial
}

// Product is the persisted catalog row. Code outside this package should go
// through AsRawMaterial or AsFinishedGood rather than read type-specific
// columns directly.
type Product struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	Type         ProductType         `gorm:"not null;size:20;index" json:"type"`
	Name         string              `gorm:"not null;size:255;index" json:"name"`
	Description  string              `gorm:"type:text" json:"description"`
	Image        string              `gorm:"size:500" json:"image"`
	IsActive     bool                `gorm:"default:true" json:"is_active"`
	IsPredefined bool                `gorm:"default:false" json:"is_predefined"`
	Price        decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"price"`
	Unit         string              `gorm:"size:20" json:"unit,omitempty"`
	Cost         decimal.NullDecimal `gorm:"type:decimal(14,4)" json:"cost,omitempty"`
	FinalPrice   decimal.NullDecimal `gorm:"type:decimal(15,5)" json:"final_price,omitempty"`
	Stock        int                 `gorm:"default:0" json:"stock"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	DeletedAt    gorm.DeletedAt      `gorm:"index" json:"-"`

	// Relationships
	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// ProductVariant is a (product, color) stock-keeping unit
type ProductVariant struct {
	ID        uint                `gorm:"primaryKey" json:"id"`
	ProductID uint                `gorm:"not null;uniqueIndex:idx_variant_product_color" json:"product_id"`
	Color     string              `gorm:"not null;size:50;default:'';uniqueIndex:idx_variant_product_color" json:"color"`
	Quantity  int                 `gorm:"not null;default:0" json:"quantity"`
	Price     decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"price"`
	IsActive  bool                `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`

	// Relationships
	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName overrides
func (Product) TableName() string        { return "products" }
func (ProductVariant) TableName() string { return "product_variants" }

// RawMaterial is the typed view of a raw_material row
type RawMaterial struct {
	ID         uint            `json:"id"`
	Name       string          `json:"name"`
	Unit       string          `json:"unit"`
	Cost       decimal.Decimal `json:"cost"`
	FinalPrice decimal.Decimal `json:"final_price"`
	Stock      int             `json:"stock"`
}

// FinishedGood is the typed view of a product row
type FinishedGood struct {
	ID           uint                `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Price        decimal.NullDecimal `json:"price"`
	IsPredefined bool                `json:"is_predefined"`
	Variants     []ProductVariant    `json:"variants"`
}

// AsRawMaterial returns the raw material view when p is one
func (p *Product) AsRawMaterial() (RawMaterial, bool) {
	if p.Type != TypeRawMaterial {
		return RawMaterial{}, false
	}
	return RawMaterial{
		ID:         p.ID,
		Name:       p.Name,
		Unit:       p.Unit,
		Cost:       p.Cost.Decimal,
		FinalPrice: p.FinalPrice.Decimal,
		Stock:      p.Stock,
	}, true
}

// AsFinishedGood returns the finished good view when p is one
func (p *Product) AsFinishedGood() (FinishedGood, bool) {
	if p.Type != TypeProduct {
		return FinishedGood{}, false
	}
	return FinishedGood{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		IsPredefined: p.IsPredefined,
		Variants:     p.Variants,
	}, true
}

// CurrentPrice is the price a unit of p sells or is valued at
func (p *Product) CurrentPrice() (decimal.Decimal, bool) {
	switch p.Type {
	case TypeRawMaterial:
		return p.FinalPrice.Decimal, p.FinalPrice.Valid
	case TypeProduct:
		return p.Price.Decimal, p.Price.Valid
	default:
		return decimal.Zero, false
	}
}

// Purchasable reports whether the variant can be sold at checkout
func (v *ProductVariant) Purchasable() bool {
	return v.IsActive && v.Price.Valid && v.Price.Decimal.IsPositive()
}
