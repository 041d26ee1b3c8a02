package model

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is how a movement moves money.
type Direction string

const (
	DirectionCredit   Direction = "credit"
	DirectionDebit    Direction = "debit"
	DirectionTransfer Direction = "transfer"
)

// Document prefixes linking a movement to the receivable or payable it settled.
const (
	DocumentReceivable = "CR-"
	DocumentPayable    = "CP-"
)

var (
	ErrNonPositiveAmount      = errors.New("amount must be greater than zero")
	ErrUnknownDirection       = errors.New("direction must be one of credit, debit or transfer")
	ErrMissingDestination     = errors.New("transfer requires a destination account")
	ErrUnexpectedDestination  = errors.New("destination account is only allowed on transfers")
	ErrMissingOrigin          = errors.New("origin account is required")
	ErrSameOriginDestination  = errors.New("origin and destination must differ")
	ErrMissingMovementDate    = errors.New("movement date is required")
	ErrUnknownAccountKindInID = errors.New("account kind must be cash or bank")
)

type Movement struct {
	ID          int64           `json:"-"`
	MovementID  string          `json:"movement_id"`
	Origin      AccountRef      `json:"origin"`
	Destination *AccountRef     `json:"destination,omitempty"`
	Date        time.Time       `json:"date"`
	Direction   Direction       `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category,omitempty"`
	Memo        string          `json:"memo,omitempty"`
	Document    string          `json:"document,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MovementChanges holds the fields an amend may replace. Nil means unchanged.
// ClearDestination drops the destination when a transfer becomes a credit or debit.
type MovementChanges struct {
	Origin           *AccountRef      `json:"origin,omitempty"`
	Destination      *AccountRef      `json:"destination,omitempty"`
	ClearDestination bool             `json:"clear_destination,omitempty"`
	Date             *time.Time       `json:"date,omitempty"`
	Direction        *Direction       `json:"direction,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	Category         *string          `json:"category,omitempty"`
	Memo             *string          `json:"memo,omitempty"`
}

// Validate checks the amount and the destination-presence rule for the direction.
func (m *Movement) Validate() error {
	if m.Origin.ID == "" {
		return ErrMissingOrigin
	}
	if !m.Origin.Kind.Valid() {
		return ErrUnknownAccountKindInID
	}
	if m.Date.IsZero() {
		return ErrMissingMovementDate
	}
	if !m.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	switch m.Direction {
	case DirectionCredit, DirectionDebit:
		if m.Destination != nil {
			return ErrUnexpectedDestination
		}
	case DirectionTransfer:
		if m.Destination == nil || m.Destination.ID == "" {
			return ErrMissingDestination
		}
		if !m.Destination.Kind.Valid() {
			return ErrUnknownAccountKindInID
		}
		if *m.Destination == m.Origin {
			return ErrSameOriginDestination
		}
	default:
		return ErrUnknownDirection
	}
	return nil
}

// Normalize quantizes the amount and truncates the date to its calendar day.
func (m *Movement) Normalize() {
	m.Amount = RoundMoney(m.Amount)
	m.Date = Day(m.Date)
	m.Category = strings.TrimSpace(m.Category)
	m.Memo = strings.TrimSpace(m.Memo)
}

// Apply returns a copy of m with the changes applied.
func (m Movement) Apply(c MovementChanges) Movement {
	if c.Origin != nil {
		m.Origin = *c.Origin
	}
	if c.ClearDestination {
		m.Destination = nil
	}
	if c.Destination != nil {
		dest := *c.Destination
		m.Destination = &dest
	}
	if c.Date != nil {
		m.Date = *c.Date
	}
	if c.Direction != nil {
		m.Direction = *c.Direction
	}
	if c.Amount != nil {
		m.Amount = *c.Amount
	}
	if c.Category != nil {
		m.Category = *c.Category
	}
	if c.Memo != nil {
		m.Memo = *c.Memo
	}
	return m
}

// BalanceEffect is a signed delta against one account.
type BalanceEffect struct {
	Account AccountRef      `json:"account"`
	Delta   decimal.Decimal `json:"delta"`
}

// Effects returns the signed balance effects of the movement:
// credit +amount on origin, debit -amount on origin, transfer -amount on origin
// and +amount on destination.
func (m *Movement) Effects() []BalanceEffect {
	switch m.Direction {
	case DirectionCredit:
		return []BalanceEffect{{Account: m.Origin, Delta: m.Amount}}
	case DirectionDebit:
		return []BalanceEffect{{Account: m.Origin, Delta: m.Amount.Neg()}}
	case DirectionTransfer:
		effects := []BalanceEffect{{Account: m.Origin, Delta: m.Amount.Neg()}}
		if m.Destination != nil {
			effects = append(effects, BalanceEffect{Account: *m.Destination, Delta: m.Amount})
		}
		return effects
	}
	return nil
}

// EffectOn returns the signed effect of the movement on a single account.
func (m *Movement) EffectOn(ref AccountRef) decimal.Decimal {
	total := decimal.Zero
	for _, e := range m.Effects() {
		if e.Account == ref {
			total = total.Add(e.Delta)
		}
	}
	return total
}

// Reversed returns the effects negated.
func Reversed(effects []BalanceEffect) []BalanceEffect {
	out := make([]BalanceEffect, len(effects))
	for i, e := range effects {
		out[i] = BalanceEffect{Account: e.Account, Delta: e.Delta.Neg()}
	}
	return out
}

// MergeEffects folds effects on the same account into one delta and drops zero deltas.
// Order of first appearance is kept so lock and update order is deterministic.
func MergeEffects(effects ...[]BalanceEffect) []BalanceEffect {
	index := map[AccountRef]int{}
	var merged []BalanceEffect
	for _, group := range effects {
		for _, e := range group {
			if i, ok := index[e.Account]; ok {
				merged[i].Delta = merged[i].Delta.Add(e.Delta)
				continue
			}
			index[e.Account] = len(merged)
			merged = append(merged, e)
		}
	}
	out := merged[:0]
	for _, e := range merged {
		if !e.Delta.IsZero() {
			out = append(out, e)
		}
	}
	return out
}

// Accounts lists the accounts the movement touches.
func (m *Movement) Accounts() []AccountRef {
	refs := []AccountRef{m.Origin}
	if m.Destination != nil {
		refs = append(refs, *m.Destination)
	}
	return refs
}

// LinkedDocument splits Document into its kind prefix and id. ok is false when the
// movement is not linked to a receivable or payable.
func (m *Movement) LinkedDocument() (prefix, id string, ok bool) {
	for _, p := range []string{DocumentReceivable, DocumentPayable} {
		if strings.HasPrefix(m.Document, p) && len(m.Document) > len(p) {
			return p, strings.TrimPrefix(m.Document, p), true
		}
	}
	return "", "", false
}
