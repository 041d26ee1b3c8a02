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

const payableColumns = `id, payable_id, category, description, supplier, due_date, debit_kind, debit_id,
	expected, paid, pending, status, discount, fine, interest, paid_at, created_at`

func (d Datasource) CreatePayable(ctx context.Context, payable model.Payable) (model.Payable, error) {
	ctx, span := otel.Tracer("Payable").Start(ctx, "Saving payable to db")
	defer span.End()

	supplier, err := json.Marshal(payable.Supplier)
	if err != nil {
		return payable, err
	}
	if payable.PayableID == "" {
		payable.PayableID = model.GenerateUUIDWithSuffix("pay")
	}
	if payable.CreatedAt.IsZero() {
		payable.CreatedAt = time.Now().UTC()
	}
	debitKind, debitID := refColumns(payable.DebitAccount)

	err = d.Conn.QueryRowContext(ctx, `
		INSERT INTO locafin.payables (payable_id, category, description, supplier, due_date, debit_kind, debit_id,
			expected, paid, pending, status, discount, fine, interest, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`, payable.PayableID, payable.Category, payable.Description, supplier, model.Day(payable.DueDate), debitKind, debitID,
		payable.Expected, payable.Paid, payable.Pending, payable.Status, payable.Discount, payable.Fine, payable.Interest,
		nullTime(payable.PaidAt), payable.CreatedAt).Scan(&payable.ID)
	return payable, err
}

func (d Datasource) GetPayable(ctx context.Context, payableID string) (*model.Payable, error) {
	ctx, span := otel.Tracer("Payable").Start(ctx, "Fetching payable from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `SELECT `+payableColumns+` FROM locafin.payables WHERE payable_id = $1`, payableID)
	payable, err := scanPayable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("payable", payableID)
	}
	return payable, err
}

func (d Datasource) GetOpenPayables(ctx context.Context) ([]model.Payable, error) {
	ctx, span := otel.Tracer("Payable").Start(ctx, "Fetching open payables from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+payableColumns+`
		FROM locafin.payables
		WHERE status <> $1
		ORDER BY due_date, id
	`, model.TitlePaid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payables []model.Payable
	for rows.Next() {
		payable, err := scanPayable(rows)
		if err != nil {
			return nil, err
		}
		payables = append(payables, *payable)
	}
	return payables, rows.Err()
}

func updatePayableSettlement(ctx context.Context, q querier, payable *model.Payable) error {
	result, err := q.ExecContext(ctx, `
		UPDATE locafin.payables
		SET paid = $2, pending = $3, status = $4, discount = $5, fine = $6, interest = $7, paid_at = $8
		WHERE payable_id = $1
	`, payable.PayableID, payable.Paid, payable.Pending, payable.Status, payable.Discount, payable.Fine,
		payable.Interest, nullTime(payable.PaidAt))
	if err != nil {
		return err
	}
	return expectOne(result, "payable", payable.PayableID)
}

func scanPayable(row scanner) (*model.Payable, error) {
	var p model.Payable
	var supplier []byte
	var paidAt sql.NullTime
	var debitKind, debitID sql.NullString
	err := row.Scan(&p.ID, &p.PayableID, &p.Category, &p.Description, &supplier, &p.DueDate, &debitKind, &debitID,
		&p.Expected, &p.Paid, &p.Pending, &p.Status, &p.Discount, &p.Fine, &p.Interest, &paidAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(supplier, &p.Supplier); err != nil {
		return nil, err
	}
	p.DueDate = model.Day(p.DueDate)
	p.DebitAccount = refFromColumns(debitKind, debitID)
	p.PaidAt = dayPtr(paidAt)
	return &p, nil
}
