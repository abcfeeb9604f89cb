package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatARS renders an amount the way prices are written in Argentina:
// "59.600,00".
func FormatARS(d decimal.Decimal) string {
	return formatNumber(d, 2)
}

func formatNumber(d decimal.Decimal, places int32) string {
	fixed := d.Abs().StringFixed(places)
	intPart, fracPart := fixed, ""
	if places > 0 {
		intPart, fracPart = fixed[:len(fixed)-int(places)-1], fixed[len(fixed)-int(places):]
	}

	var b strings.Builder
	if d.Round(places).IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteByte(',')
		b.WriteString(fracPart)
	}
	return b.String()
}

// BuildPrompt renders the pricing prompt sent to the text-generation
// oracle. The baseline figures are included verbatim so the narrative
// stays anchored to them.
func BuildPrompt(b *Breakdown, color string) string {
	var sb strings.Builder

	sb.WriteString("Sos un asistente que cotiza carteles de neón LED a medida para un taller en Argentina.\n")
	sb.WriteString("Redactá un presupuesto breve en español para el siguiente diseño.\n\n")

	sb.WriteString("Datos del diseño:\n")
	fmt.Fprintf(&sb, "- Alto: %s cm\n", formatNumber(b.HeightCM, 1))
	fmt.Fprintf(&sb, "- Ancho: %s cm\n", formatNumber(b.WidthCM, 1))
	if color != "" {
		fmt.Fprintf(&sb, "- Color: %s\n", color)
	}
	fmt.Fprintf(&sb, "- Cantidad: %d\n\n", b.Quantity)

	sb.WriteString("Cálculo base (usá exactamente estos valores):\n")
	writeLines(&sb, b)

	sb.WriteString("\nExplicá el desglose en pocas líneas, sin inventar costos adicionales.\n")
	sb.WriteString("La última línea de tu respuesta debe tener exactamente este formato:\n")
	sb.WriteString("TOTAL: $<número> ARS\n")

	return sb.String()
}

// RenderNarrative renders the breakdown as the narrative stored on a quote.
// It ends with the TOTAL line ExtractTotal reads.
func RenderNarrative(b *Breakdown) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Presupuesto cartel de neón %s x %s cm (cantidad %d)\n",
		formatNumber(b.HeightCM, 1), formatNumber(b.WidthCM, 1), b.Quantity)
	writeLines(&sb, b)
	fmt.Fprintf(&sb, "TOTAL: $%s ARS\n", FormatARS(b.Total))

	return sb.String()
}

func writeLines(sb *strings.Builder, b *Breakdown) {
	if b.MeasuredLength {
		fmt.Fprintf(sb, "- Largo de neón medido: %s cm\n", formatNumber(b.NeonLengthCM, 1))
	} else {
		fmt.Fprintf(sb, "- Perímetro: %s cm\n", formatNumber(b.PerimeterCM, 1))
	}
	fmt.Fprintf(sb, "- Neón: %s m x $%s = $%s\n",
		formatNumber(b.NeonMeters, 2), FormatARS(b.Prices.NeonPerMeter), FormatARS(b.CostNeon))
	fmt.Fprintf(sb, "- Fuentes: %d x $%s = $%s\n",
		b.PowerSupplies, FormatARS(b.Prices.PowerSupply), FormatARS(b.CostSupplies))
	fmt.Fprintf(sb, "- Acrílico: %s cm² x $%s = $%s\n",
		formatNumber(b.AcrylicAreaCM2, 0), FormatARS(b.Prices.AcrylicPerCM2), FormatARS(b.CostAcrylic))
	fmt.Fprintf(sb, "- Mano de obra: %s m x $%s = $%s\n",
		formatNumber(b.NeonMeters, 2), FormatARS(b.Prices.LaborPerMeter), FormatARS(b.CostLabor))
	fmt.Fprintf(sb, "- Subtotal por unidad: $%s\n", FormatARS(b.UnitSubtotal))
	fmt.Fprintf(sb, "- Importe final: $%s\n", FormatARS(b.Total))
}
