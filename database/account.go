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
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/locafin/locafin/model"
)

const accountColumns = `id, account_id, kind, name, currency, opening_balance, opening_date, current_balance, bank, created_at`

// CreateAccount inserts the account. The current balance starts at the opening balance.
func (d Datasource) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	ctx, span := otel.Tracer("Account").Start(ctx, "Saving account to db")
	defer span.End()

	var bank []byte
	if account.Bank != nil {
		var err error
		bank, err = json.Marshal(account.Bank)
		if err != nil {
			return account, err
		}
	}

	if account.AccountID == "" {
		account.AccountID = model.GenerateUUIDWithSuffix("acc")
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	account.OpeningDate = model.Day(account.OpeningDate)
	account.CurrentBalance = account.OpeningBalance

	err := d.Conn.QueryRowContext(ctx, `
		INSERT INTO locafin.accounts (account_id, kind, name, currency, opening_balance, opening_date, current_balance, bank, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, account.AccountID, account.Kind, account.Name, account.Currency, account.OpeningBalance, account.OpeningDate,
		account.CurrentBalance, bank, account.CreatedAt).Scan(&account.ID)
	return account, conflictOnDuplicate(err, "account")
}

func (d Datasource) GetAccount(ctx context.Context, ref model.AccountRef) (*model.Account, error) {
	ctx, span := otel.Tracer("Account").Start(ctx, "Fetching account from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM locafin.accounts
		WHERE kind = $1 AND account_id = $2
	`, ref.Kind, ref.ID)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("account", ref.String())
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (d Datasource) GetAllAccounts(ctx context.Context) ([]model.Account, error) {
	ctx, span := otel.Tracer("Account").Start(ctx, "Fetching accounts from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM locafin.accounts
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row scanner) (*model.Account, error) {
	var account model.Account
	var bank []byte
	err := row.Scan(&account.ID, &account.AccountID, &account.Kind, &account.Name, &account.Currency,
		&account.OpeningBalance, &account.OpeningDate, &account.CurrentBalance, &bank, &account.CreatedAt)
	if err != nil {
		return nil, err
	}
	account.OpeningDate = model.Day(account.OpeningDate)
	if len(bank) > 0 && string(bank) != "null" {
		account.Bank = &model.BankRouting{}
		if err := json.Unmarshal(bank, account.Bank); err != nil {
			return nil, err
		}
	}
	return &account, nil
}
