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

package database

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locafin/locafin/internal/apierror"
	"github.com/locafin/locafin/model"
)

func newMock(t *testing.T) (Datasource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return Datasource{Conn: db}, mock
}

var accountRowColumns = []string{"id", "account_id", "kind", "name", "currency", "opening_balance", "opening_date", "current_balance", "bank", "created_at"}

func TestCreateAccount(t *testing.T) {
	ds, mock := newMock(t)
	opening := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO locafin.accounts")).
		WithArgs(sqlmock.AnyArg(), model.AccountKindBank, "Conta Movimento", "BRL", sqlmock.AnyArg(),
			model.Day(opening), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	account, err := ds.CreateAccount(context.Background(), model.Account{
		Kind:           model.AccountKindBank,
		Name:           "Conta Movimento",
		Currency:       "BRL",
		OpeningBalance: decimal.NewFromInt(100),
		OpeningDate:    opening,
		Bank:           &model.BankRouting{BankCode: "001"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), account.ID)
	assert.Regexp(t, "^acc_", account.AccountID)
	assert.True(t, account.CurrentBalance.Equal(decimal.NewFromInt(100)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccount(t *testing.T) {
	ds, mock := newMock(t)
	ref := model.AccountRef{Kind: model.AccountKindBank, ID: "acc_1"}
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM locafin.accounts")).
		WithArgs(ref.Kind, ref.ID).
		WillReturnRows(sqlmock.NewRows(accountRowColumns).
			AddRow(1, "acc_1", "bank", "Conta", "BRL", "100.00", created, "150.50", []byte(`{"bank_code":"001","agency":"1234-5"}`), created))

	account, err := ds.GetAccount(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "acc_1", account.AccountID)
	assert.True(t, account.CurrentBalance.Equal(decimal.RequireFromString("150.50")))
	require.NotNil(t, account.Bank)
	assert.Equal(t, "1234-5", account.Bank.Agency)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccount_NotFound(t *testing.T) {
	ds, mock := newMock(t)
	ref := model.AccountRef{Kind: model.AccountKindCash, ID: "acc_missing"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM locafin.accounts")).
		WithArgs(ref.Kind, ref.ID).
		WillReturnError(sql.ErrNoRows)

	_, err := ds.GetAccount(context.Background(), ref)
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllAccounts(t *testing.T) {
	ds, mock := newMock(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM locafin.accounts")).
		WillReturnRows(sqlmock.NewRows(accountRowColumns).
			AddRow(1, "acc_1", "cash", "Caixa", "BRL", "0", created, "0", nil, created).
			AddRow(2, "acc_2", "bank", "Banco", "BRL", "10", created, "10", []byte("null"), created))

	accounts, err := ds.GetAllAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Nil(t, accounts[0].Bank)
	assert.Nil(t, accounts[1].Bank)
	assert.NoError(t, mock.ExpectationsWereMet())
}
