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
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/locafin/locafin/internal/apierror"
	"github.com/locafin/locafin/model"
)

var (
	errPartyName       = errors.New("debtor or supplier name is required")
	errDueDate         = errors.New("due date is required")
	errExpectedAmount  = errors.New("expected amount must be greater than zero")
	errNoCreditAccount = errors.New("title has no credit account to receive payments")
	errAlreadyPaid     = errors.New("already paid")
)

const receivableCategory = "receivable"

func validateDocument(party model.Party, due time.Time, expected decimal.Decimal) error {
	if strings.TrimSpace(party.Name) == "" {
		return errPartyName
	}
	if due.IsZero() {
		return errDueDate
	}
	if !model.RoundMoney(expected).IsPositive() {
		return errExpectedAmount
	}
	return nil
}

func alreadyPaid(kind, id string) error {
	return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("%s %s is already paid", kind, id), errAlreadyPaid)
}

// paymentMovement builds the cash movement that settles a title or payable.
func (l *Locafin) paymentMovement(direction model.Direction, account model.AccountRef, amount decimal.Decimal, details model.PaymentDetails, category, memo, document string) model.Movement {
	m := model.Movement{
		MovementID: model.GenerateUUIDWithSuffix("mov"),
		Origin:     account,
		Direction:  direction,
		Amount:     details.MovementAmount(amount),
		Date:       details.PaidAt,
		Category:   category,
		Memo:       memo,
		Document:   document,
		CreatedAt:  l.now(),
	}
	m.Normalize()
	return m
}

// CreateTitle stores a new receivable in the open state.
func (l *Locafin) CreateTitle(ctx context.Context, title model.Title) (model.Title, error) {
	ctx, span := tracer.Start(ctx, "CreateTitle")
	defer span.End()

	if err := validateDocument(title.Debtor, title.DueDate, title.Expected); err != nil {
		return model.Title{}, invalidInput(err)
	}
	if title.CreditAccount != nil {
		if err := l.requireAccounts(ctx, *title.CreditAccount); err != nil {
			return model.Title{}, err
		}
	}
	title.DueDate = model.Day(title.DueDate)
	if title.IssuedAt.IsZero() {
		title.IssuedAt = l.today()
	}
	title.IssuedAt = model.Day(title.IssuedAt)
	title.Settlement = model.NewSettlement(title.Expected)
	title.CreatedAt = l.now()

	created, err := l.datasource.CreateTitle(ctx, title)
	if err != nil {
		span.RecordError(err)
		return model.Title{}, err
	}
	return created, nil
}

// GetTitle returns a title with its status as seen today.
func (l *Locafin) GetTitle(ctx context.Context, titleID string) (*model.Title, error) {
	title, err := l.datasource.GetTitle(ctx, titleID)
	if err != nil {
		return nil, err
	}
	title.Status = title.StatusOn(title.DueDate, l.today())
	return title, nil
}

// FindTitleByTracking returns the title carrying a bank tracking number.
func (l *Locafin) FindTitleByTracking(ctx context.Context, trackingNumber string) (*model.Title, error) {
	title, err := l.datasource.GetTitleByTracking(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	title.Status = title.StatusOn(title.DueDate, l.today())
	return title, nil
}

// ListOpenTitles returns every title that is not fully paid.
func (l *Locafin) ListOpenTitles(ctx context.Context) ([]model.Title, error) {
	titles, err := l.datasource.GetOpenTitles(ctx)
	if err != nil {
		return nil, err
	}
	today := l.today()
	for i := range titles {
		titles[i].Status = titles[i].StatusOn(titles[i].DueDate, today)
	}
	return titles, nil
}

// MarkTitlePaid posts a payment against a title. The credit movement on the
// title's account and the updated settlement are written together, then
// positions are recalculated from the payment date. Manual payments and return
// file imports both go through here.
func (l *Locafin) MarkTitlePaid(ctx context.Context, titleID string, amount decimal.Decimal, details model.PaymentDetails) (*model.Title, *model.Movement, error) {
	ctx, span := tracer.Start(ctx, "MarkTitlePaid")
	defer span.End()
	span.SetAttributes(attribute.String("title.id", titleID))

	title, err := l.datasource.GetTitle(ctx, titleID)
	if err != nil {
		return nil, nil, err
	}
	if title.CreditAccount == nil {
		return nil, nil, invalidInput(errNoCreditAccount)
	}
	if details.PaidAt.IsZero() {
		details.PaidAt = l.now()
	}
	account := *title.CreditAccount

	var movement model.Movement
	_, err = l.apply(ctx, "pay_title", []model.AccountRef{account}, []string{documentLockKey(title.Document())}, func(ctx context.Context) (model.LedgerWrite, error) {
		current, err := l.datasource.GetTitle(ctx, titleID)
		if err != nil {
			return model.LedgerWrite{}, err
		}
		if current.Status == model.TitlePaid {
			return model.LedgerWrite{}, alreadyPaid("title", titleID)
		}
		if current.CreditAccount == nil {
			return model.LedgerWrite{}, invalidInput(errNoCreditAccount)
		}
		if err := current.ApplyPayment(amount, details); err != nil {
			return model.LedgerWrite{}, invalidInput(err)
		}
		movement = l.paymentMovement(model.DirectionCredit, *current.CreditAccount, amount, details,
			categoryOr(current.Category, receivableCategory), "Recebimento "+current.Debtor.Name, current.Document())
		if err := movement.Validate(); err != nil {
			return model.LedgerWrite{}, invalidInput(err)
		}
		title = current
		return model.LedgerWrite{Insert: &movement, Effects: movement.Effects(), Title: current}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	l.afterCommit(ctx, movement.Date, account)
	logrus.WithFields(logrus.Fields{
		"title":  titleID,
		"amount": movement.Amount.StringFixed(model.MoneyPlaces),
		"status": title.Status,
	}).Info("title payment posted")
	return title, &movement, nil
}

func categoryOr(category, fallback string) string {
	if strings.TrimSpace(category) == "" {
		return fallback
	}
	return category
}
