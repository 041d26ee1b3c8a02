package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationStatus tracks whether an imported bank line was accepted.
type ReconciliationStatus string

const (
	ReconciliationPending    ReconciliationStatus = "pending"
	ReconciliationReconciled ReconciliationStatus = "reconciled"
	ReconciliationRejected   ReconciliationStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ReconciliationStatus) Valid() bool {
	switch s {
	case ReconciliationPending, ReconciliationReconciled, ReconciliationRejected:
		return true
	}
	return false
}

// Reconciliation links a movement to a line of an imported bank file.
type Reconciliation struct {
	ID               int64                `json:"-"`
	ReconciliationID string               `json:"reconciliation_id"`
	MovementID       string               `json:"movement_id"`
	Account          AccountRef           `json:"account"`
	LineDate         time.Time            `json:"line_date"`
	LineAmount       decimal.Decimal      `json:"line_amount"`
	LineMemo         string               `json:"line_memo,omitempty"`
	Status           ReconciliationStatus `json:"status"`
	ReconciledAt     time.Time            `json:"reconciled_at"`
}

// StatementSummary reports the outcome of importing a bank statement.
type StatementSummary struct {
	Matched  []Reconciliation `json:"matched"`
	Created  []Reconciliation `json:"created"`
	Skipped  int              `json:"skipped"`
	Duration time.Duration    `json:"-"`
}

// SettledTitle is a return-file line that was posted against a title.
type SettledTitle struct {
	TitleID        string          `json:"title_id"`
	TrackingNumber string          `json:"tracking_number"`
	Amount         decimal.Decimal `json:"amount"`
	Status         TitleStatus     `json:"status"`
	MovementID     string          `json:"movement_id"`
}

// UnmatchedLine is a return-file line that could not be posted.
type UnmatchedLine struct {
	TrackingNumber string          `json:"tracking_number"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason"`
}

// ReturnSummary reports the outcome of importing a bank return file.
type ReturnSummary struct {
	Settled   []SettledTitle  `json:"settled"`
	Unmatched []UnmatchedLine `json:"unmatched"`
}
