package product

import (
	"github.com/shopspring/decimal"
)

// MarkupFactor is applied to a raw material's cost to obtain its final price.
var MarkupFactor = decimal.RequireFromString("1.5")

// DeriveFinalPrice returns cost × MarkupFactor. The final_price column keeps
// one decimal more than cost so the product is stored exactly.
func DeriveFinalPrice(cost decimal.Decimal) decimal.Decimal {
	return cost.Mul(MarkupFactor)
}

// applyDerivedFields recomputes every derived column. Called on each
// create and update before the row is written.
func (p *Product) applyDerivedFields() {
	switch p.Type {
	case TypeRawMaterial:
		if p.Cost.Valid {
			p.FinalPrice = decimal.NewNullDecimal(DeriveFinalPrice(p.Cost.Decimal))
		} else {
			p.FinalPrice = decimal.NullDecimal{}
		}
		p.Price = decimal.NullDecimal{}
		p.IsPredefined = false
	case TypeProduct:
		p.Cost = decimal.NullDecimal{}
		p.FinalPrice = decimal.NullDecimal{}
		p.Unit = ""
		p.Stock = 0
	}
}
