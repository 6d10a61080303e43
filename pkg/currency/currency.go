// Package currency converts between integer minor units (pence) stored in
// the database and the decimal strings users type and read.
package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ToMinor parses a user-supplied price into integer minor units. Strings are
// decimal whole-currency amounts ("5.54" -> 554); numeric values are treated
// as whole-currency units (54 -> 5400).
func ToMinor(value interface{}) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, fmt.Errorf("currency: no value given")
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, fmt.Errorf("currency: no value given")
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, fmt.Errorf("currency: invalid price %q", v)
		}
		return int(d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()), nil
	case int:
		return v * 100, nil
	case int64:
		return int(v) * 100, nil
	case float64:
		return int(decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).Round(0).IntPart()), nil
	default:
		return 0, fmt.Errorf("currency: unsupported value type %T", value)
	}
}

// ToDisplay renders minor units as a whole-currency decimal string:
// 512 -> "5.12", 2 -> "0.02".
func ToDisplay(minor int) string {
	return decimal.New(int64(minor), -2).StringFixed(2)
}

// ToDisplayPtr is ToDisplay with nil passthrough, for optional form fields.
func ToDisplayPtr(minor *int) *string {
	if minor == nil {
		return nil
	}
	s := ToDisplay(*minor)
	return &s
}

// FormatPrice renders minor units with a currency symbol, padded with a
// leading space so positive and negative amounts align in columns:
// " £5.12", "-£0.50".
func FormatPrice(symbol string, minor int) string {
	sign := " "
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%s%s", sign, symbol, ToDisplay(minor))
}

// FormatGBP renders minor units as pounds sterling.
func FormatGBP(minor int) string {
	return FormatPrice("£", minor)
}

// FormatLocal converts GBP minor units to a local currency via the exchange
// rate and renders the result with the local symbol.
func FormatLocal(gbpMinor int, exchangeRate float64, symbol string) string {
	if exchangeRate == 0 {
		return FormatPrice(symbol, 0)
	}
	local := decimal.New(int64(gbpMinor), 0).Div(decimal.NewFromFloat(exchangeRate)).Round(0)
	return FormatPrice(symbol, int(local.IntPart()))
}
