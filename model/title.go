package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TitleStatus is the payment state of a receivable or payable.
type TitleStatus string

const (
	TitleOpen    TitleStatus = "open"
	TitlePartial TitleStatus = "partial"
	TitlePaid    TitleStatus = "paid"
	// TitleOverdue is never stored; it is derived at read time from the due date.
	TitleOverdue TitleStatus = "overdue"
)

var ErrNonPositivePayment = errors.New("payment amount must be greater than zero")

type Party struct {
	Name     string `json:"name"`
	Document string `json:"document"`
	Address  string `json:"address,omitempty"`
	District string `json:"district,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	ZipCode  string `json:"zip_code,omitempty"`
}

// PaymentDetails carries the optional settlement fields of a payment.
type PaymentDetails struct {
	PaidAt   time.Time       `json:"paid_at"`
	Discount decimal.Decimal `json:"discount"`
	Fine     decimal.Decimal `json:"fine"`
	Interest decimal.Decimal `json:"interest"`
}

// MovementAmount is the cash amount a payment moves: paid + interest + fine - discount.
func (p PaymentDetails) MovementAmount(paid decimal.Decimal) decimal.Decimal {
	return RoundMoney(paid.Add(p.Interest).Add(p.Fine).Sub(p.Discount))
}

// Settlement holds the amounts shared by receivables and payables.
type Settlement struct {
	Expected decimal.Decimal `json:"expected"`
	Paid     decimal.Decimal `json:"paid"`
	Pending  decimal.Decimal `json:"pending"`
	Status   TitleStatus     `json:"status"`
	Discount decimal.Decimal `json:"discount"`
	Fine     decimal.Decimal `json:"fine"`
	Interest decimal.Decimal `json:"interest"`
	PaidAt   *time.Time      `json:"paid_at,omitempty"`
}

// NewSettlement starts an unpaid settlement for the expected amount.
func NewSettlement(expected decimal.Decimal) Settlement {
	s := Settlement{Expected: RoundMoney(expected)}
	s.Reset()
	return s
}

// ApplyPayment adds amount to the paid total and recomputes pending and status.
func (s *Settlement) ApplyPayment(amount decimal.Decimal, details PaymentDetails) error {
	amount = RoundMoney(amount)
	if !amount.IsPositive() {
		return ErrNonPositivePayment
	}
	s.Paid = RoundMoney(s.Paid.Add(amount))
	s.Discount = RoundMoney(details.Discount)
	s.Fine = RoundMoney(details.Fine)
	s.Interest = RoundMoney(details.Interest)
	if !details.PaidAt.IsZero() {
		paidAt := Day(details.PaidAt)
		s.PaidAt = &paidAt
	}
	s.recompute()
	return nil
}

// Reset restores the unpaid state.
func (s *Settlement) Reset() {
	s.Paid = decimal.Zero
	s.Discount = decimal.Zero
	s.Fine = decimal.Zero
	s.Interest = decimal.Zero
	s.PaidAt = nil
	s.recompute()
}

func (s *Settlement) recompute() {
	s.Pending = MaxZero(s.Expected.Sub(s.Paid))
	switch {
	case s.Pending.IsZero():
		s.Status = TitlePaid
	case s.Paid.IsPositive():
		s.Status = TitlePartial
	default:
		s.Status = TitleOpen
	}
}

// StatusOn reports the status as seen on a given day: unpaid titles past due are overdue.
func (s *Settlement) StatusOn(due, today time.Time) TitleStatus {
	if s.Status != TitlePaid && Day(due).Before(Day(today)) {
		return TitleOverdue
	}
	return s.Status
}

// Title is a receivable owed by a debtor.
type Title struct {
	ID             int64       `json:"-"`
	TitleID        string      `json:"title_id"`
	ContractRef    string      `json:"contract_ref,omitempty"`
	Category       string      `json:"category,omitempty"`
	Description    string      `json:"description,omitempty"`
	Debtor         Party       `json:"debtor"`
	DueDate        time.Time   `json:"due_date"`
	IssuedAt       time.Time   `json:"issued_at"`
	TrackingNumber string      `json:"tracking_number,omitempty"`
	CreditAccount  *AccountRef `json:"credit_account,omitempty"`
	Settlement
	CreatedAt time.Time `json:"created_at"`
}

// Document is the movement linkage for payments received against the title.
func (t *Title) Document() string {
	return DocumentReceivable + t.TitleID
}

// DefaultTrackingNumber is the ten digit tracking number derived from the sequence id.
func (t *Title) DefaultTrackingNumber() string {
	return fmt.Sprintf("%010d", t.ID)
}

// Payable is an amount owed to a supplier.
type Payable struct {
	ID            int64       `json:"-"`
	PayableID     string      `json:"payable_id"`
	Category      string      `json:"category,omitempty"`
	Description   string      `json:"description,omitempty"`
	Supplier      Party       `json:"supplier"`
	DueDate       time.Time   `json:"due_date"`
	DebitAccount  *AccountRef `json:"debit_account,omitempty"`
	Settlement
	CreatedAt time.Time `json:"created_at"`
}

// Document is the movement linkage for payments made against the payable.
func (p *Payable) Document() string {
	return DocumentPayable + p.PayableID
}
