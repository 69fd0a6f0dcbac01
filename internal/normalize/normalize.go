// Package normalize converts raw extracted values of unknown shape into
// canonical amounts, quantities, rates and text. Nothing here returns an
// error: unparsable input yields an absent value or a stated default and a
// warning log.
package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	nonCurrency = regexp.MustCompile(`[^\d.\-]`)
	nonQuantity = regexp.MustCompile(`[^\d.]`)
)

var hundred = decimal.NewFromInt(100)

// Currency parses a money amount. Numbers pass through; text keeps only
// digits, '.' and a single leading '-'.
func Currency(raw any) decimal.NullDecimal {
	if raw == nil {
		return decimal.NullDecimal{}
	}
	if d, ok := numeric(raw); ok {
		return valid(d)
	}
	if isNumber(raw) {
		slog.Warn("normalize.currency.non_finite", "raw", raw)
		return decimal.NullDecimal{}
	}

	s := strings.TrimSpace(stringOf(raw))
	if s == "" {
		return decimal.NullDecimal{}
	}
	cleaned := nonCurrency.ReplaceAllString(s, "")
	if cleaned == "" || strings.Count(cleaned, "-") > 1 || strings.LastIndex(cleaned, "-") > 0 {
		slog.Warn("could not parse currency value", "raw", s, "cleaned", cleaned)
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		slog.Warn("could not parse currency value", "raw", s, "cleaned", cleaned, "error", err)
		return decimal.NullDecimal{}
	}
	return valid(d)
}

// Quantity renders a quantity as a string: integer form when whole,
// otherwise the minimal decimal form. Missing or unparsable input is "1".
// Signs are dropped, so Quantity(Quantity(x)) == Quantity(x).
func Quantity(raw any) string {
	if raw == nil {
		return "1"
	}
	if d, ok := numeric(raw); ok {
		return d.Abs().String()
	}
	if isNumber(raw) {
		slog.Warn("normalize.quantity.non_finite", "raw", raw)
		return "1"
	}

	s := strings.TrimSpace(stringOf(raw))
	if s == "" {
		return "1"
	}
	cleaned := nonQuantity.ReplaceAllString(s, "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		slog.Warn("could not parse quantity, defaulting to 1", "raw", s)
		return "1"
	}
	return d.String()
}

// Text renders a scalar as trimmed text with internal whitespace runs
// collapsed to a single space.
func Text(raw any) string {
	if raw == nil {
		return ""
	}
	return strings.Join(strings.Fields(stringOf(raw)), " ")
}

// Rate parses a tax rate into a fraction. "13%" and a bare 13 both become
// 0.13; values at or below 1 are taken as fractions already.
func Rate(raw any) decimal.NullDecimal {
	if raw == nil {
		return decimal.NullDecimal{}
	}
	d, ok := numeric(raw)
	if !ok && isNumber(raw) {
		return decimal.NullDecimal{}
	}
	if !ok {
		s := strings.TrimSpace(stringOf(raw))
		if s == "" {
			return decimal.NullDecimal{}
		}
		percent := strings.Contains(s, "%")
		cleaned := nonCurrency.ReplaceAllString(s, "")
		parsed, err := decimal.NewFromString(cleaned)
		if err != nil {
			slog.Warn("could not parse tax rate", "raw", s)
			return decimal.NullDecimal{}
		}
		if percent {
			return valid(parsed.Div(hundred))
		}
		d = parsed
	}
	if d.GreaterThan(decimal.NewFromInt(1)) {
		d = d.Div(hundred)
	}
	return valid(d)
}

// Round2 rounds half away from zero to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// numeric converts Go number types. NaN and infinities are rejected.
func numeric(raw any) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, true
	case decimal.NullDecimal:
		return v.Decimal, v.Valid
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(v), true
	case float32:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt32(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	}
	return decimal.Zero, false
}

// isNumber reports numeric inputs that numeric rejected (NaN, Inf, null decimal).
func isNumber(raw any) bool {
	switch raw.(type) {
	case float64, float32, decimal.NullDecimal:
		return true
	}
	return false
}

func stringOf(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
