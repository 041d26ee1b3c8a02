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

package locafin

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/locafin/locafin/model"
)

var errNoDebitAccount = errors.New("payable has no debit account to pay from")

const payableCategory = "payable"

// CreatePayable stores a new payable in the open state.
func (l *Locafin) CreatePayable(ctx context.Context, payable model.Payable) (model.Payable, error) {
	ctx, span := tracer.Start(ctx, "CreatePayable")
	defer span.End()

	if err := validateDocument(payable.Supplier, payable.DueDate, payable.Expected); err != nil {
		return model.Payable{}, invalidInput(err)
	}
	if payable.DebitAccount != nil {
		if err := l.requireAccounts(ctx, *payable.DebitAccount); err != nil {
			return model.Payable{}, err
		}
	}
	payable.DueDate = model.Day(payable.DueDate)
	payable.Settlement = model.NewSettlement(payable.Expected)
	payable.CreatedAt = l.now()
	return l.datasource.CreatePayable(ctx, payable)
}

// GetPayable returns a payable with its status as seen today.
func (l *Locafin) GetPayable(ctx context.Context, payableID string) (*model.Payable, error) {
	payable, err := l.datasource.GetPayable(ctx, payableID)
	if err != nil {
		return nil, err
	}
	payable.Status = payable.StatusOn(payable.DueDate, l.today())
	return payable, nil
}

// ListOpenPayables returns every payable that is not fully paid.
func (l *Locafin) ListOpenPayables(ctx context.Context) ([]model.Payable, error) {
	payables, err := l.datasource.GetOpenPayables(ctx)
	if err != nil {
		return nil, err
	}
	today := l.today()
	for i := range payables {
		payables[i].Status = payables[i].StatusOn(payables[i].DueDate, today)
	}
	return payables, nil
}

// PayPayable posts a payment against a payable as a debit on its account.
func (l *Locafin) PayPayable(ctx context.Context, payableID string, amount decimal.Decimal, details model.PaymentDetails) (*model.Payable, *model.Movement, error) {
	ctx, span := tracer.Start(ctx, "PayPayable")
	defer span.End()
	span.SetAttributes(attribute.String("payable.id", payableID))

	payable, err := l.datasource.GetPayable(ctx, payableID)
	if err != nil {
		return nil, nil, err
	}
	if payable.DebitAccount == nil {
		return nil, nil, invalidInput(errNoDebitAccount)
	}
	if details.PaidAt.IsZero() {
		details.PaidAt = l.now()
	}
	account := *payable.DebitAccount

	var movement model.Movement
	_, err = l.apply(ctx, "pay_payable", []model.AccountRef{account}, []string{documentLockKey(payable.Document())}, func(ctx context.Context) (model.LedgerWrite, error) {
		current, err := l.datasource.GetPayable(ctx, payableID)
		if err != nil {
			return model.LedgerWrite{}, err
		}
		if current.Status == model.TitlePaid {
			return model.LedgerWrite{}, alreadyPaid("payable", payableID)
		}
		if current.DebitAccount == nil {
			return model.LedgerWrite{}, invalidInput(errNoDebitAccount)
		}
		if err := current.ApplyPayment(amount, details); err != nil {
			return model.LedgerWrite{}, invalidInput(err)
		}
		movement = l.paymentMovement(model.DirectionDebit, *current.DebitAccount, amount, details,
			categoryOr(current.Category, payableCategory), "Pagamento "+current.Supplier.Name, current.Document())
		if err := movement.Validate(); err != nil {
			return model.LedgerWrite{}, invalidInput(err)
		}
		payable = current
		return model.LedgerWrite{Insert: &movement, Effects: movement.Effects(), Payable: current}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	l.afterCommit(ctx, movement.Date, account)
	logrus.WithFields(logrus.Fields{
		"payable": payableID,
		"amount":  movement.Amount.StringFixed(model.MoneyPlaces),
		"status":  payable.Status,
	}).Info("payable payment posted")
	return payable, &movement, nil
}
