/*
Copyright 2024 Locafin Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/locafin/locafin/model"
)

var (
	kinds      = []interface{}{string(model.AccountKindCash), string(model.AccountKindBank)}
	directions = []interface{}{string(model.DirectionCredit), string(model.DirectionDebit), string(model.DirectionTransfer)}
	statuses   = []interface{}{string(model.ReconciliationPending), string(model.ReconciliationReconciled), string(model.ReconciliationRejected)}
)

// dateRule accepts an empty value or a YYYY-MM-DD calendar date.
var dateRule = validation.By(func(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	default:
		return errors.New("invalid type for date")
	}
	if s == "" {
		return nil
	}
	if _, err := model.ParseDay(s); err != nil {
		return errors.New("please format the date as 'YYYY-MM-DD' (e.g., 2024-01-31)")
	}
	return nil
})

func positive(value interface{}) error {
	var d decimal.Decimal
	switch v := value.(type) {
	case decimal.Decimal:
		d = v
	case *decimal.Decimal:
		if v == nil {
			return nil
		}
		d = *v
	default:
		return errors.New("invalid type for amount")
	}
	if !d.IsPositive() {
		return errors.New("must be greater than zero")
	}
	return nil
}

func notNegative(value interface{}) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("invalid type for amount")
	}
	if d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

func accountRefRules(ref *model.AccountRef) error {
	return validation.ValidateStruct(ref,
		validation.Field(&ref.Kind, validation.Required, validation.In(model.AccountKindCash, model.AccountKindBank)),
		validation.Field(&ref.ID, validation.Required),
	)
}

var accountRef = validation.By(func(value interface{}) error {
	switch v := value.(type) {
	case model.AccountRef:
		return accountRefRules(&v)
	case *model.AccountRef:
		if v == nil {
			return nil
		}
		return accountRefRules(v)
	}
	return errors.New("invalid account reference")
})

// parseDay parses an optional date, returning the zero time for "".
func parseDay(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	d, _ := model.ParseDay(s)
	return d
}

func parseDayPtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	d := parseDay(*s)
	return &d
}

type CreateAccount struct {
	AccountID      string             `json:"account_id"`
	Kind           string             `json:"kind"`
	Name           string             `json:"name"`
	Currency       string             `json:"currency"`
	OpeningBalance decimal.Decimal    `json:"opening_balance"`
	OpeningDate    string             `json:"opening_date"`
	Bank           *model.BankRouting `json:"bank"`
}

func (a *CreateAccount) ValidateCreateAccount() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Kind, validation.Required, validation.In(kinds...)),
		validation.Field(&a.Name, validation.Required),
		validation.Field(&a.OpeningDate, validation.Required, dateRule),
		validation.Field(&a.Bank, validation.When(a.Kind == string(model.AccountKindBank),
			validation.Required.Error("bank routing is required for bank accounts"),
			validation.By(func(value interface{}) error {
				b, _ := value.(*model.BankRouting)
				if b == nil {
					return nil
				}
				return validation.ValidateStruct(b,
					validation.Field(&b.BankCode, validation.Required, validation.Length(3, 3)),
					validation.Field(&b.Agency, validation.Required),
					validation.Field(&b.Number, validation.Required),
					validation.Field(&b.ProtestDays, validation.Min(0)),
				)
			}),
		)),
	)
}

func (a *CreateAccount) ToAccount() model.Account {
	return model.Account{
		AccountID:      strings.TrimSpace(a.AccountID),
		Kind:           model.AccountKind(a.Kind),
		Name:           a.Name,
		Currency:       strings.ToUpper(a.Currency),
		OpeningBalance: a.OpeningBalance,
		OpeningDate:    parseDay(a.OpeningDate),
		Bank:           a.Bank,
	}
}

type RecordMovement struct {
	Origin      model.AccountRef  `json:"origin"`
	Destination *model.AccountRef `json:"destination"`
	Date        string            `json:"date"`
	Direction   string            `json:"direction"`
	Amount      decimal.Decimal   `json:"amount"`
	Category    string            `json:"category"`
	Memo        string            `json:"memo"`
}

func (m *RecordMovement) ValidateRecordMovement() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.Origin, accountRef),
		validation.Field(&m.Destination, accountRef,
			validation.When(m.Direction == string(model.DirectionTransfer), validation.Required.Error("destination is required for transfers")),
			validation.When(m.Direction != string(model.DirectionTransfer), validation.Nil.Error("destination is only allowed on transfers")),
		),
		validation.Field(&m.Date, validation.Required, dateRule),
		validation.Field(&m.Direction, validation.Required, validation.In(directions...)),
		validation.Field(&m.Amount, validation.By(positive)),
	)
}

func (m *RecordMovement) ToMovement() model.Movement {
	return model.Movement{
		Origin:      m.Origin,
		Destination: m.Destination,
		Date:        parseDay(m.Date),
		Direction:   model.Direction(m.Direction),
		Amount:      m.Amount,
		Category:    m.Category,
		Memo:        m.Memo,
	}
}

// AmendMovement is a partial update; omitted fields are kept.
type AmendMovement struct {
	Origin           *model.AccountRef `json:"origin"`
	Destination      *model.AccountRef `json:"destination"`
	ClearDestination bool              `json:"clear_destination"`
	Date             *string           `json:"date"`
	Direction        *string           `json:"direction"`
	Amount           *decimal.Decimal  `json:"amount"`
	Category         *string           `json:"category"`
	Memo             *string           `json:"memo"`
}

func (m *AmendMovement) ValidateAmendMovement() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.Origin, accountRef),
		validation.Field(&m.Destination, accountRef),
		validation.Field(&m.Date, dateRule),
		validation.Field(&m.Direction, validation.When(m.Direction != nil, validation.In(directions...))),
		validation.Field(&m.Amount, validation.By(positive)),
	)
}

func (m *AmendMovement) ToChanges() model.MovementChanges {
	changes := model.MovementChanges{
		Origin:           m.Origin,
		Destination:      m.Destination,
		ClearDestination: m.ClearDestination,
		Date:             parseDayPtr(m.Date),
		Amount:           m.Amount,
		Category:         m.Category,
		Memo:             m.Memo,
	}
	if m.Direction != nil {
		d := model.Direction(*m.Direction)
		changes.Direction = &d
	}
	return changes
}

type Recalculate struct {
	From string `json:"from"`
}

func (r *Recalculate) ValidateRecalculate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.From, dateRule),
	)
}

func (r *Recalculate) FromDay() *time.Time {
	return parseDayPtr(&r.From)
}

func partyRules(p *model.Party) error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.State, validation.When(p.State != "", validation.Length(2, 2))),
	)
}

var party = validation.By(func(value interface{}) error {
	p, ok := value.(model.Party)
	if !ok {
		return errors.New("invalid party")
	}
	return partyRules(&p)
})

type CreateTitle struct {
	ContractRef   string            `json:"contract_ref"`
	Category      string            `json:"category"`
	Description   string            `json:"description"`
	Debtor        model.Party       `json:"debtor"`
	DueDate       string            `json:"due_date"`
	IssuedAt      string            `json:"issued_at"`
	CreditAccount *model.AccountRef `json:"credit_account"`
	Amount        decimal.Decimal   `json:"amount"`
}

func (t *CreateTitle) ValidateCreateTitle() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Debtor, party),
		validation.Field(&t.DueDate, validation.Required, dateRule),
		validation.Field(&t.IssuedAt, dateRule),
		validation.Field(&t.CreditAccount, accountRef),
		validation.Field(&t.Amount, validation.By(positive)),
	)
}

func (t *CreateTitle) ToTitle() model.Title {
	return model.Title{
		ContractRef:   t.ContractRef,
		Category:      t.Category,
		Description:   t.Description,
		Debtor:        t.Debtor,
		DueDate:       parseDay(t.DueDate),
		IssuedAt:      parseDay(t.IssuedAt),
		CreditAccount: t.CreditAccount,
		Settlement:    model.Settlement{Expected: t.Amount},
	}
}

type CreatePayable struct {
	Category     string            `json:"category"`
	Description  string            `json:"description"`
	Supplier     model.Party       `json:"supplier"`
	DueDate      string            `json:"due_date"`
	DebitAccount *model.AccountRef `json:"debit_account"`
	Amount       decimal.Decimal   `json:"amount"`
}

func (p *CreatePayable) ValidateCreatePayable() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Supplier, party),
		validation.Field(&p.DueDate, validation.Required, dateRule),
		validation.Field(&p.DebitAccount, accountRef),
		validation.Field(&p.Amount, validation.By(positive)),
	)
}

func (p *CreatePayable) ToPayable() model.Payable {
	return model.Payable{
		Category:     p.Category,
		Description:  p.Description,
		Supplier:     p.Supplier,
		DueDate:      parseDay(p.DueDate),
		DebitAccount: p.DebitAccount,
		Settlement:   model.Settlement{Expected: p.Amount},
	}
}

type RecordPayment struct {
	Amount   decimal.Decimal `json:"amount"`
	PaidAt   string          `json:"paid_at"`
	Discount decimal.Decimal `json:"discount"`
	Fine     decimal.Decimal `json:"fine"`
	Interest decimal.Decimal `json:"interest"`
}

func (p *RecordPayment) ValidateRecordPayment() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Amount, validation.By(positive)),
		validation.Field(&p.PaidAt, dateRule),
		validation.Field(&p.Discount, validation.By(notNegative)),
		validation.Field(&p.Fine, validation.By(notNegative)),
		validation.Field(&p.Interest, validation.By(notNegative)),
	)
}

func (p *RecordPayment) ToDetails() model.PaymentDetails {
	return model.PaymentDetails{
		PaidAt:   parseDay(p.PaidAt),
		Discount: p.Discount,
		Fine:     p.Fine,
		Interest: p.Interest,
	}
}

type GenerateRemittance struct {
	Account  model.AccountRef `json:"account"`
	TitleIDs []string         `json:"title_ids"`
}

func (r *GenerateRemittance) ValidateGenerateRemittance() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Account, accountRef),
		validation.Field(&r.TitleIDs, validation.Each(validation.Required)),
	)
}

type UpdateReconciliation struct {
	Status string `json:"status"`
}

func (u *UpdateReconciliation) ValidateUpdateReconciliation() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.Status, validation.Required, validation.In(statuses...)),
	)
}
