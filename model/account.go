package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind tags which book an account belongs to.
type AccountKind string

const (
	AccountKindCash AccountKind = "cash"
	AccountKindBank AccountKind = "bank"
)

// Valid reports whether k is a known account kind.
func (k AccountKind) Valid() bool {
	return k == AccountKindCash || k == AccountKindBank
}

// AccountRef identifies an account by kind and id.
type AccountRef struct {
	Kind AccountKind `json:"kind"`
	ID   string      `json:"id"`
}

func (r AccountRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// IsZero reports whether the reference is empty.
func (r AccountRef) IsZero() bool {
	return r.ID == "" && r.Kind == ""
}

// BankRouting carries the routing attributes the CNAB codec needs. Agency and
// Number are stored raw, e.g. "1234-5" or "12345/6".
type BankRouting struct {
	BankCode     string          `json:"bank_code"`
	BankName     string          `json:"bank_name,omitempty"`
	Agency       string          `json:"agency"`
	Number       string          `json:"number"`
	Wallet       string          `json:"wallet"`
	Covenant     string          `json:"covenant"`
	Variation    string          `json:"variation,omitempty"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	FinePercent  decimal.Decimal `json:"fine_percent"`
	ProtestDays  int             `json:"protest_days"`
}

type Account struct {
	ID             int64           `json:"-"`
	AccountID      string          `json:"account_id"`
	Kind           AccountKind     `json:"kind"`
	Name           string          `json:"name"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	OpeningDate    time.Time       `json:"opening_date"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Bank           *BankRouting    `json:"bank,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Ref returns the account reference.
func (a *Account) Ref() AccountRef {
	return AccountRef{Kind: a.Kind, ID: a.AccountID}
}

// ExpectedBalance is the opening balance plus the given signed effects.
func (a *Account) ExpectedBalance(effects ...decimal.Decimal) decimal.Decimal {
	total := a.OpeningBalance
	for _, e := range effects {
		total = total.Add(e)
	}
	return RoundMoney(total)
}

// BalanceVerification is the outcome of recomputing an account's balance from its movements.
type BalanceVerification struct {
	Account  AccountRef      `json:"account"`
	Stored   decimal.Decimal `json:"stored"`
	Computed decimal.Decimal `json:"computed"`
	Drift    decimal.Decimal `json:"drift"`
	Balanced bool            `json:"balanced"`
}
