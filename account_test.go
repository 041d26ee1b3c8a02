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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/locafin/locafin/database/mocks"
	"github.com/locafin/locafin/internal/apierror"
	"github.com/locafin/locafin/model"
)

func TestCreateAccount_Defaults(t *testing.T) {
	env := newTestEnv(t, "2024-01-10")
	cfg := testConfig()
	cfg.Currency = ""
	env.l.config = cfg

	bank := env.createBank(t, "100.005", "2024-01-05")
	assert.Equal(t, "BRL", bank.Currency)
	assert.Equal(t, "17", bank.Bank.Wallet)
	assert.True(t, money("100.01").Equal(bank.OpeningBalance))
	assert.Equal(t, 6, env.ds.PositionCount(bankRef), "positions from opening to today")
	env.balanceOn(t, bankRef, "2024-01-10", "100.01")

	generated, err := env.l.CreateAccount(context.Background(), model.Account{
		Kind:        model.AccountKindCash,
		Name:        "  Caixa pequeno ",
		Currency:    "USD",
		OpeningDate: day("2024-01-10"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.AccountID)
	assert.Equal(t, "Caixa pequeno", generated.Name)
	assert.Equal(t, "USD", generated.Currency)

	accounts, err := env.l.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestCreateAccount_Validation(t *testing.T) {
	env := newTestEnv(t, "2024-01-10")
	ctx := context.Background()
	opened := day("2024-01-01")

	tests := []struct {
		name    string
		account model.Account
		code    apierror.ErrorCode
	}{
		{"missing name", model.Account{Kind: model.AccountKindCash, OpeningDate: opened}, apierror.ErrInvalidInput},
		{"unknown kind", model.Account{Kind: "wallet", Name: "X", OpeningDate: opened}, apierror.ErrInvalidInput},
		{"missing opening date", model.Account{Kind: model.AccountKindCash, Name: "X"}, apierror.ErrInvalidInput},
		{"bank without routing", model.Account{Kind: model.AccountKindBank, Name: "X", OpeningDate: opened}, apierror.ErrInvalidInput},
		{"bank without agency", model.Account{Kind: model.AccountKindBank, Name: "X", OpeningDate: opened, Bank: &model.BankRouting{BankCode: "001", Number: "1"}}, apierror.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.l.CreateAccount(ctx, tt.account)
			assert.True(t, apierror.Is(err, tt.code), "got %v", err)
		})
	}

	env.createCash(t, "0", "2024-01-01")
	_, err := env.l.CreateAccount(ctx, model.Account{AccountID: cashRef.ID, Kind: model.AccountKindCash, Name: "Dup", OpeningDate: opened})
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
}

func TestCreateAccount_SameIDDifferentKinds(t *testing.T) {
	env := newTestEnv(t, "2024-01-02")
	ctx := context.Background()
	_, err := env.l.CreateAccount(ctx, model.Account{AccountID: "shared", Kind: model.AccountKindCash, Name: "Caixa", OpeningDate: day("2024-01-01")})
	require.NoError(t, err)
	_, err = env.l.CreateAccount(ctx, model.Account{
		AccountID: "shared", Kind: model.AccountKindBank, Name: "Banco", OpeningDate: day("2024-01-01"),
		Bank: &model.BankRouting{BankCode: "341", Agency: "0001", Number: "12345-6"},
	})
	require.NoError(t, err)

	cash, err := env.l.GetAccount(ctx, model.AccountRef{Kind: model.AccountKindCash, ID: "shared"})
	require.NoError(t, err)
	assert.Equal(t, "Caixa", cash.Name)
}

func TestVerifyAccountBalance(t *testing.T) {
	env := newTestEnv(t, "2024-01-10")
	env.createCash(t, "100", "2024-01-01")
	env.record(t, cashRef, model.DirectionCredit, "30", "2024-01-03")
	env.record(t, cashRef, model.DirectionDebit, "12.5", "2024-01-04")

	result, err := env.l.VerifyAccountBalance(context.Background(), cashRef)
	require.NoError(t, err)
	assert.True(t, result.Balanced)
	assert.True(t, money("117.5").Equal(result.Computed))
	assert.True(t, result.Drift.IsZero())
}

func TestVerifyAccountBalance_ReportsDrift(t *testing.T) {
	ds := new(mocks.MockDataSource)
	env := newTestEnv(t, "2024-01-10")
	l := New(ds, env.client, testConfig())

	account := &model.Account{
		AccountID:      cashRef.ID,
		Kind:           model.AccountKindCash,
		OpeningBalance: money("100"),
		CurrentBalance: money("150"),
	}
	movements := []model.Movement{
		{MovementID: "mov_1", Origin: cashRef, Direction: model.DirectionCredit, Amount: money("40")},
		{MovementID: "mov_2", Origin: bankRef, Destination: &cashRef, Direction: model.DirectionTransfer, Amount: money("5")},
	}
	ds.On("GetAccount", mock.Anything, cashRef).Return(account, nil)
	ds.On("GetMovementsForAccount", mock.Anything, cashRef, (*time.Time)(nil), (*time.Time)(nil)).Return(movements, nil)

	result, err := l.VerifyAccountBalance(context.Background(), cashRef)
	require.NoError(t, err)
	assert.False(t, result.Balanced)
	assert.True(t, money("145").Equal(result.Computed), "got %s", result.Computed)
	assert.True(t, money("5").Equal(result.Drift))
	ds.AssertExpectations(t)
}

func TestVerifyAccountBalance_NotFound(t *testing.T) {
	env := newTestEnv(t, "2024-01-10")
	_, err := env.l.VerifyAccountBalance(context.Background(), bankRef)
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}
