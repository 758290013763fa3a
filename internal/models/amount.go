package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParseMinorUnits converts a decimal string such as "10.00" into minor units,
// flooring anything finer than decimals. Zero and negative amounts are rejected.
func ParseMinorUnits(s string, decimals int32) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	minor := d.Shift(decimals).Floor()
	if !minor.IsPositive() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !minor.LessThanOrEqual(decimal.NewFromInt(maxMinorUnits)) {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidAmount, s)
	}
	return minor.IntPart(), nil
}

// FormatMinorUnits renders minor units back into a fixed-point string.
func FormatMinorUnits(v int64, decimals int32) string {
	return decimal.New(v, -decimals).StringFixed(decimals)
}

// keeps amount+fee well inside int64
const maxMinorUnits = 1 << 60
