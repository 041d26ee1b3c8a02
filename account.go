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
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/locafin/locafin/boleto"
	"github.com/locafin/locafin/config"
	"github.com/locafin/locafin/model"
)

var (
	errAccountName        = errors.New("account name is required")
	errAccountOpeningDate = errors.New("account opening date is required")
	errBankRouting        = errors.New("bank accounts require bank routing with bank code, agency and number")
)

func validateAccount(account *model.Account) error {
	if strings.TrimSpace(account.Name) == "" {
		return errAccountName
	}
	if !account.Kind.Valid() {
		return model.ErrUnknownAccountKindInID
	}
	if account.OpeningDate.IsZero() {
		return errAccountOpeningDate
	}
	if account.Kind == model.AccountKindBank {
		b := account.Bank
		if b == nil || b.BankCode == "" || b.Agency == "" || b.Number == "" {
			return errBankRouting
		}
	}
	return nil
}

// CreateAccount stores a new account with its current balance set to the
// opening balance and writes its positions from the opening date.
func (l *Locafin) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	ctx, span := tracer.Start(ctx, "CreateAccount")
	defer span.End()

	account.Name = strings.TrimSpace(account.Name)
	if err := validateAccount(&account); err != nil {
		return model.Account{}, invalidInput(err)
	}
	if account.Currency == "" {
		account.Currency = l.config.Currency
	}
	if account.Currency == "" {
		account.Currency = config.DEFAULT_CURRENCY
	}
	if account.Kind == model.AccountKindBank && account.Bank.Wallet == "" {
		account.Bank.Wallet = boleto.DefaultWallet
	}
	account.OpeningBalance = model.RoundMoney(account.OpeningBalance)
	account.OpeningDate = model.Day(account.OpeningDate)
	account.CurrentBalance = account.OpeningBalance
	account.CreatedAt = l.now()

	created, err := l.datasource.CreateAccount(ctx, account)
	if err != nil {
		span.RecordError(err)
		return model.Account{}, err
	}

	opening := created.OpeningDate
	if _, err := l.RecalculateAccount(ctx, created.Ref(), &opening); err != nil {
		l.recalculationFailed(ctx, created.Ref(), opening, err)
	}
	logrus.WithField("account", created.Ref().String()).Info("account created")
	return created, nil
}

// GetAccount returns one account.
func (l *Locafin) GetAccount(ctx context.Context, ref model.AccountRef) (*model.Account, error) {
	return l.datasource.GetAccount(ctx, ref)
}

// ListAccounts returns every account of both kinds.
func (l *Locafin) ListAccounts(ctx context.Context) ([]model.Account, error) {
	return l.datasource.GetAllAccounts(ctx)
}

// VerifyAccountBalance recomputes the balance of an account from its opening
// balance and every stored movement and compares it to the stored balance.
func (l *Locafin) VerifyAccountBalance(ctx context.Context, ref model.AccountRef) (*model.BalanceVerification, error) {
	ctx, span := tracer.Start(ctx, "VerifyAccountBalance")
	defer span.End()

	account, err := l.datasource.GetAccount(ctx, ref)
	if err != nil {
		return nil, err
	}
	movements, err := l.datasource.GetMovementsForAccount(ctx, ref, nil, nil)
	if err != nil {
		return nil, err
	}
	effects := make([]decimal.Decimal, 0, len(movements))
	for i := range movements {
		effects = append(effects, movements[i].EffectOn(ref))
	}
	computed := account.ExpectedBalance(effects...)
	drift := account.CurrentBalance.Sub(computed)

	result := &model.BalanceVerification{
		Account:  ref,
		Stored:   account.CurrentBalance,
		Computed: computed,
		Drift:    drift,
		Balanced: drift.IsZero(),
	}
	if !result.Balanced {
		logrus.WithFields(logrus.Fields{
			"account":  ref.String(),
			"stored":   result.Stored.StringFixed(model.MoneyPlaces),
			"computed": computed.StringFixed(model.MoneyPlaces),
		}).Warn("account balance drift detected")
	}
	return result, nil
}

// requireAccounts fails with the datasource's not found error for the first
// reference that does not exist.
func (l *Locafin) requireAccounts(ctx context.Context, refs ...model.AccountRef) error {
	for _, ref := range refs {
		if _, err := l.datasource.GetAccount(ctx, ref); err != nil {
			return err
		}
	}
	return nil
}
