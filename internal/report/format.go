package report

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money rounds to cents, half away from zero ("1234.57")
func Money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Percent rounds to two places and appends "%"
func Percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return decimal.NewFromFloat(v).StringFixed(2) + "%"
}

// Grouped is Money with thousands separators ("1,234,567.89")
func Grouped(v float64) string {
	s := Money(v)
	if s == "-" {
		return s
	}

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}

// Ratio four decimals; infinite values print as "inf"
func Ratio(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsNaN(v) || math.IsInf(v, -1):
		return "-"
	}
	return decimal.NewFromFloat(v).StringFixed(4)
}
