package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the single currency every account is held in.
const Currency = "KWD"

// PointsPerUnit is how many loyalty points buy one currency unit.
const PointsPerUnit = 10

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

var hundred = decimal.NewFromInt(100)

// ParseMinor turns a decimal string such as "12.5" into minor units (1250).
func ParseMinor(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return FromDecimal(value)
}

// FromDecimal converts a unit amount into minor units, rejecting sub-cent precision.
func FromDecimal(value decimal.Decimal) (int64, error) {
	scaled := value.Mul(hundred)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrTooManyDecimals
	}
	if !scaled.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	return scaled.IntPart(), nil
}

func ToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

func FormatMinor(value int64) string {
	return ToDecimal(value).StringFixed(2)
}

// Display renders an amount the way user-facing descriptions show it, e.g. "20.00 KWD".
func Display(value int64) string {
	return fmt.Sprintf("%s %s", FormatMinor(value), Currency)
}

// PointsToMinor returns the money a number of points converts to.
func PointsToMinor(points int) int64 {
	return decimal.NewFromInt(int64(points)).
		Div(decimal.NewFromInt(PointsPerUnit)).
		Mul(hundred).
		Floor().
		IntPart()
}

// HalfUnitsFloor returns floor(units/2) for an amount held in minor units.
func HalfUnitsFloor(minor int64) int {
	return int(ToDecimal(minor).Div(decimal.NewFromInt(2)).Floor().IntPart())
}
