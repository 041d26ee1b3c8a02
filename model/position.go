package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyPosition is the balance of an account at the end of a calendar day.
// Rows are derived by the recalculator and never edited by hand.
type DailyPosition struct {
	Account AccountRef      `json:"account"`
	Date    time.Time       `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// DailyTotals sums the signed effects of movements on ref, keyed by calendar day.
func DailyTotals(ref AccountRef, movements []Movement) map[time.Time]decimal.Decimal {
	totals := make(map[time.Time]decimal.Decimal)
	for i := range movements {
		effect := movements[i].EffectOn(ref)
		if effect.IsZero() {
			continue
		}
		day := Day(movements[i].Date)
		totals[day] = totals[day].Add(effect)
	}
	return totals
}

// WalkPositions produces one position per day from start through end (inclusive),
// beginning with seed as the balance before start.
func WalkPositions(ref AccountRef, seed decimal.Decimal, start, end time.Time, totals map[time.Time]decimal.Decimal) []DailyPosition {
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return nil
	}
	positions := make([]DailyPosition, 0, DaysBetween(start, end)+1)
	balance := seed
	for day := start; !day.After(end); day = AddDays(day, 1) {
		balance = balance.Add(totals[day])
		positions = append(positions, DailyPosition{Account: ref, Date: day, Balance: RoundMoney(balance)})
	}
	return positions
}
