package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places every stored amount carries.
const MoneyPlaces = 2

// DayLayout is the calendar date layout used on the wire and in storage.
const DayLayout = "2006-01-02"

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix,
// e.g. "mov_6f1c...".
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// RoundMoney quantizes an amount to MoneyPlaces using round-half-up.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyPlaces)
}

// ParseMoney parses a decimal string such as "150.25" into a quantized amount.
func ParseMoney(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return RoundMoney(d), nil
}

// MaxZero floors an amount at zero.
func MaxZero(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// Day truncates t to the start of its calendar day. Calendar dates are kept in UTC
// so that day arithmetic never crosses a DST boundary.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a "YYYY-MM-DD" string into a calendar day.
func ParseDay(value string) (time.Time, error) {
	t, err := time.Parse(DayLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return Day(t), nil
}

// AddDays moves a calendar day forward (or backward for negative n).
func AddDays(day time.Time, n int) time.Time {
	return Day(day).AddDate(0, 0, n)
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// MinDay returns the earlier of two calendar days.
func MinDay(a, b time.Time) time.Time {
	if Day(b).Before(Day(a)) {
		return Day(b)
	}
	return Day(a)
}

// MaxDay returns the later of two calendar days.
func MaxDay(a, b time.Time) time.Time {
	if Day(b).After(Day(a)) {
		return Day(b)
	}
	return Day(a)
}
