package pricing

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// totalPattern matches "TOTAL: $1.234,56 ARS" and looser forms such as
// "Total estimado (2 unidades): 59600 ARS". "Subtotal" does not match. The
// captured numeral keeps a leading minus and any space or NBSP grouping so
// the whole amount is judged, never a tail of it.
var totalPattern = regexp.MustCompile(`(?i)\btotal\b[^\n]*?(-?\d[\d.,\x{00A0} ]*?)\s*ARS\b`)

// ExtractTotal returns the last total stated in narrative. ok is false when
// no usable total line is present. Negative amounts and malformed digit
// groups are skipped.
func ExtractTotal(narrative string) (total decimal.Decimal, ok bool) {
	matches := totalPattern.FindAllStringSubmatch(narrative, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		raw := matches[i][1]
		if strings.HasPrefix(raw, "-") {
			continue
		}
		numeral, grouped := ungroup(raw)
		if !grouped {
			continue
		}
		if value, err := decimal.NewFromString(normalizeNumeral(numeral)); err == nil {
			return value, true
		}
	}
	return decimal.Zero, false
}

// ungroup removes space and NBSP thousands separators from "59 600,00". Every
// group after the first must hold exactly three digits.
func ungroup(raw string) (string, bool) {
	groups := strings.FieldsFunc(raw, func(r rune) bool { return r == ' ' || r == '\u00a0' })
	if len(groups) <= 1 {
		return strings.Join(groups, ""), len(groups) == 1
	}
	if len(groups[0]) > 3 || strings.ContainsAny(groups[0], ".,") {
		return "", false
	}
	for i, g := range groups[1:] {
		digits := g
		if i == len(groups)-2 {
			if cut := strings.IndexAny(g, ".,"); cut >= 0 {
				digits = g[:cut]
			}
		}
		if len(digits) != 3 || strings.ContainsAny(digits, ".,") {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

// normalizeNumeral turns a locale-formatted numeral into "1234.56".
//
// When both separators appear the rightmost one is the decimal mark. A single
// kind of separator is a thousands mark when it repeats or when exactly three
// digits follow it; otherwise it is the decimal mark.
func normalizeNumeral(raw string) string {
	s := strings.TrimRight(raw, ".,")

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		return normalizeSingle(s, ",")
	case lastDot >= 0:
		return normalizeSingle(s, ".")
	default:
		return s
	}
}

func normalizeSingle(s, sep string) string {
	if strings.Count(s, sep) > 1 || len(s)-strings.LastIndex(s, sep)-1 == 3 {
		return strings.ReplaceAll(s, sep, "")
	}
	return strings.Replace(s, sep, ".", 1)
}
