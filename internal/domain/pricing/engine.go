// Package pricing computes the deterministic cost breakdown of a neon sign
// and recovers a total from free-text pricing narratives.
package pricing

import (
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

// Raw material names looked up in the catalog for unit prices.
const (
	MaterialNeonStrip   = "Tira Neón"
	MaterialPowerSupply = "Fuente"
	MaterialAcrylic     = "Acrílico"
	MaterialLabor       = "Mano de obra"
)

var (
	hundred         = decimal.NewFromInt(100)
	metersPerSupply = decimal.NewFromInt(4)
	perimeterFactor = decimal.NewFromInt(2)
)

// UnitPrices are the prices the breakdown is computed with.
type UnitPrices struct {
	NeonPerMeter  decimal.Decimal `json:"neon_per_meter"`
	PowerSupply   decimal.Decimal `json:"power_supply"`
	AcrylicPerCM2 decimal.Decimal `json:"acrylic_per_cm2"`
	LaborPerMeter decimal.Decimal `json:"labor_per_meter"`
}

// Dimensions describe the requested sign.
type Dimensions struct {
	HeightCM decimal.Decimal
	WidthCM  decimal.Decimal
	Quantity int
}

// Breakdown holds every intermediate quantity and its monetary
// contribution at full precision.
type Breakdown struct {
	HeightCM       decimal.Decimal `json:"height_cm"`
	WidthCM        decimal.Decimal `json:"width_cm"`
	Quantity       int             `json:"quantity"`
	PerimeterCM    decimal.Decimal `json:"perimeter_cm"`
	NeonLengthCM   decimal.Decimal `json:"neon_length_cm"`
	MeasuredLength bool            `json:"measured_length"`
	NeonMeters     decimal.Decimal `json:"neon_meters"`
	PowerSupplies  int64           `json:"power_supplies"`
	AcrylicAreaCM2 decimal.Decimal `json:"acrylic_area_cm2"`
	CostNeon       decimal.Decimal `json:"cost_neon"`
	CostSupplies   decimal.Decimal `json:"cost_supplies"`
	CostAcrylic    decimal.Decimal `json:"cost_acrylic"`
	CostLabor      decimal.Decimal `json:"cost_labor"`
	UnitSubtotal   decimal.Decimal `json:"unit_subtotal"`
	Total          decimal.Decimal `json:"total"`
	Prices         UnitPrices      `json:"prices"`
}

// Calculate prices a sign whose neon runs along its perimeter.
func Calculate(d Dimensions, prices UnitPrices) (*Breakdown, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	perimeter := perimeterFactor.Mul(d.HeightCM.Add(d.WidthCM))
	return compute(d, perimeter, false, prices), nil
}

// CalculateWithLength prices a sign using a measured neon length instead of
// the perimeter. Acrylic is still sized by height × width.
func CalculateWithLength(d Dimensions, lengthCM decimal.Decimal, prices UnitPrices) (*Breakdown, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	if !lengthCM.IsPositive() {
		return nil, apperror.InvalidField("length_cm", "debe ser mayor a 0")
	}
	return compute(d, lengthCM, true, prices), nil
}

func compute(d Dimensions, neonLengthCM decimal.Decimal, measured bool, p UnitPrices) *Breakdown {
	b := &Breakdown{
		HeightCM:       d.HeightCM,
		WidthCM:        d.WidthCM,
		Quantity:       d.Quantity,
		PerimeterCM:    perimeterFactor.Mul(d.HeightCM.Add(d.WidthCM)),
		NeonLengthCM:   neonLengthCM,
		MeasuredLength: measured,
		Prices:         p,
	}

	b.NeonMeters = neonLengthCM.Div(hundred)
	b.PowerSupplies = b.NeonMeters.Div(metersPerSupply).Ceil().IntPart()
	b.AcrylicAreaCM2 = d.HeightCM.Mul(d.WidthCM)

	b.CostNeon = b.NeonMeters.Mul(p.NeonPerMeter)
	b.CostSupplies = decimal.NewFromInt(b.PowerSupplies).Mul(p.PowerSupply)
	b.CostAcrylic = b.AcrylicAreaCM2.Mul(p.AcrylicPerCM2)
	b.CostLabor = b.NeonMeters.Mul(p.LaborPerMeter)

	b.UnitSubtotal = b.CostNeon.Add(b.CostSupplies).Add(b.CostAcrylic).Add(b.CostLabor)
	b.Total = b.UnitSubtotal.Mul(decimal.NewFromInt(int64(d.Quantity)))
	return b
}

func (d Dimensions) validate() error {
	fields := map[string]string{}
	if !d.HeightCM.IsPositive() {
		fields["height_cm"] = "debe ser mayor a 0"
	}
	if !d.WidthCM.IsPositive() {
		fields["width_cm"] = "debe ser mayor a 0"
	}
	if d.Quantity <= 0 {
		fields["quantity"] = "debe ser mayor a 0"
	}
	if len(fields) > 0 {
		return apperror.Validation("Error de validación", fields)
	}
	return nil
}
