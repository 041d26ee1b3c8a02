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

const titleColumns = `id, title_id, contract_ref, category, description, debtor, due_date, issued_at, tracking_number,
	credit_kind, credit_id, expected, paid, pending, status, discount, fine, interest, paid_at, created_at`

func (d Datasource) CreateTitle(ctx context.Context, title model.Title) (model.Title, error) {
	ctx, span := otel.Tracer("Title").Start(ctx, "Saving title to db")
	defer span.End()

	debtor, err := json.Marshal(title.Debtor)
	if err != nil {
		return title, err
	}
	if title.TitleID == "" {
		title.TitleID = model.GenerateUUIDWithSuffix("tit")
	}
	if title.CreatedAt.IsZero() {
		title.CreatedAt = time.Now().UTC()
	}
	creditKind, creditID := refColumns(title.CreditAccount)
	issuedAt := nullDay(title.IssuedAt)

	err = d.Conn.QueryRowContext(ctx, `
		INSERT INTO locafin.titles (title_id, contract_ref, category, description, debtor, due_date, issued_at, tracking_number,
			credit_kind, credit_id, expected, paid, pending, status, discount, fine, interest, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id
	`, title.TitleID, title.ContractRef, title.Category, title.Description, debtor, model.Day(title.DueDate), issuedAt,
		nullString(title.TrackingNumber), creditKind, creditID, title.Expected, title.Paid, title.Pending, title.Status,
		title.Discount, title.Fine, title.Interest, nullTime(title.PaidAt), title.CreatedAt).Scan(&title.ID)
	return title, conflictOnDuplicate(err, "title")
}

func (d Datasource) GetTitle(ctx context.Context, titleID string) (*model.Title, error) {
	ctx, span := otel.Tracer("Title").Start(ctx, "Fetching title from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `SELECT `+titleColumns+` FROM locafin.titles WHERE title_id = $1`, titleID)
	title, err := scanTitle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("title", titleID)
	}
	return title, err
}

func (d Datasource) GetTitleByTracking(ctx context.Context, trackingNumber string) (*model.Title, error) {
	ctx, span := otel.Tracer("Title").Start(ctx, "Fetching title by tracking number from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `SELECT `+titleColumns+` FROM locafin.titles WHERE tracking_number = $1`, trackingNumber)
	title, err := scanTitle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("title with tracking number", trackingNumber)
	}
	return title, err
}

func (d Datasource) GetOpenTitles(ctx context.Context) ([]model.Title, error) {
	ctx, span := otel.Tracer("Title").Start(ctx, "Fetching open titles from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+titleColumns+`
		FROM locafin.titles
		WHERE status <> $1
		ORDER BY due_date, id
	`, model.TitlePaid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var titles []model.Title
	for rows.Next() {
		title, err := scanTitle(rows)
		if err != nil {
			return nil, err
		}
		titles = append(titles, *title)
	}
	return titles, rows.Err()
}

func (d Datasource) SetTrackingNumber(ctx context.Context, titleID, trackingNumber string) error {
	ctx, span := otel.Tracer("Title").Start(ctx, "Assigning tracking number in db")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE locafin.titles SET tracking_number = $2 WHERE title_id = $1
	`, titleID, trackingNumber)
	if err != nil {
		return conflictOnDuplicate(err, "tracking number")
	}
	return expectOne(result, "title", titleID)
}

func updateTitleSettlement(ctx context.Context, q querier, title *model.Title) error {
	result, err := q.ExecContext(ctx, `
		UPDATE locafin.titles
		SET paid = $2, pending = $3, status = $4, discount = $5, fine = $6, interest = $7, paid_at = $8
		WHERE title_id = $1
	`, title.TitleID, title.Paid, title.Pending, title.Status, title.Discount, title.Fine, title.Interest, nullTime(title.PaidAt))
	if err != nil {
		return err
	}
	return expectOne(result, "title", title.TitleID)
}

func scanTitle(row scanner) (*model.Title, error) {
	var t model.Title
	var debtor []byte
	var issuedAt, paidAt sql.NullTime
	var tracking, creditKind, creditID sql.NullString
	err := row.Scan(&t.ID, &t.TitleID, &t.ContractRef, &t.Category, &t.Description, &debtor, &t.DueDate, &issuedAt,
		&tracking, &creditKind, &creditID, &t.Expected, &t.Paid, &t.Pending, &t.Status, &t.Discount, &t.Fine,
		&t.Interest, &paidAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(debtor, &t.Debtor); err != nil {
		return nil, err
	}
	t.DueDate = model.Day(t.DueDate)
	if issuedAt.Valid {
		t.IssuedAt = model.Day(issuedAt.Time)
	}
	t.TrackingNumber = tracking.String
	t.CreditAccount = refFromColumns(creditKind, creditID)
	t.PaidAt = dayPtr(paidAt)
	return &t, nil
}

func refColumns(ref *model.AccountRef) (sql.NullString, sql.NullString) {
	if ref == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return nullString(string(ref.Kind)), nullString(ref.ID)
}

func refFromColumns(kind, id sql.NullString) *model.AccountRef {
	if !id.Valid {
		return nil
	}
	return &model.AccountRef{Kind: model.AccountKind(kind.String), ID: id.String}
}

func nullDay(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: model.Day(t), Valid: true}
}

func dayPtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	day := model.Day(t.Time)
	return &day
}
