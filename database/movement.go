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
	"errors"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/locafin/locafin/model"
)

const movementColumns = `id, movement_id, origin_kind, origin_id, destination_kind, destination_id, date, direction, amount, category, memo, document, created_at`

func (d Datasource) GetMovement(ctx context.Context, movementID string) (*model.Movement, error) {
	ctx, span := otel.Tracer("Movement").Start(ctx, "Fetching movement from db")
	defer span.End()

	return getMovement(ctx, d.Conn, movementID)
}

func getMovement(ctx context.Context, q querier, movementID string) (*model.Movement, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+movementColumns+`
		FROM locafin.movements
		WHERE movement_id = $1
	`, movementID)
	m, err := scanMovement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("movement", movementID)
	}
	return m, err
}

func (d Datasource) GetMovementsForAccount(ctx context.Context, ref model.AccountRef, from, to *time.Time) ([]model.Movement, error) {
	ctx, span := otel.Tracer("Movement").Start(ctx, "Fetching account movements from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+movementColumns+`
		FROM locafin.movements
		WHERE ((origin_kind = $1 AND origin_id = $2) OR (destination_kind = $1 AND destination_id = $2))
		  AND ($3::date IS NULL OR date >= $3)
		  AND ($4::date IS NULL OR date <= $4)
		ORDER BY date, id
	`, ref.Kind, ref.ID, nullTime(from), nullTime(to))
	if err != nil {
		return nil, err
	}
	return collectMovements(rows)
}

func (d Datasource) GetMovementByDocument(ctx context.Context, document string) ([]model.Movement, error) {
	ctx, span := otel.Tracer("Movement").Start(ctx, "Fetching movements by document from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+movementColumns+`
		FROM locafin.movements
		WHERE document = $1
		ORDER BY date, id
	`, document)
	if err != nil {
		return nil, err
	}
	return collectMovements(rows)
}

func collectMovements(rows *sql.Rows) ([]model.Movement, error) {
	defer rows.Close()
	var movements []model.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, *m)
	}
	return movements, rows.Err()
}

func scanMovement(row scanner) (*model.Movement, error) {
	var m model.Movement
	var destKind, destID sql.NullString
	err := row.Scan(&m.ID, &m.MovementID, &m.Origin.Kind, &m.Origin.ID, &destKind, &destID, &m.Date,
		&m.Direction, &m.Amount, &m.Category, &m.Memo, &m.Document, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if destID.Valid {
		m.Destination = &model.AccountRef{Kind: model.AccountKind(destKind.String), ID: destID.String}
	}
	m.Date = model.Day(m.Date)
	return &m, nil
}

func destinationColumns(m *model.Movement) (sql.NullString, sql.NullString) {
	if m.Destination == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return nullString(string(m.Destination.Kind)), nullString(m.Destination.ID)
}

func insertMovement(ctx context.Context, q querier, m *model.Movement) error {
	destKind, destID := destinationColumns(m)
	return q.QueryRowContext(ctx, `
		INSERT INTO locafin.movements (movement_id, origin_kind, origin_id, destination_kind, destination_id, date, direction, amount, category, memo, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, m.MovementID, m.Origin.Kind, m.Origin.ID, destKind, destID, m.Date, m.Direction, m.Amount,
		m.Category, m.Memo, m.Document, m.CreatedAt).Scan(&m.ID)
}

func updateMovement(ctx context.Context, q querier, m *model.Movement) error {
	destKind, destID := destinationColumns(m)
	result, err := q.ExecContext(ctx, `
		UPDATE locafin.movements
		SET origin_kind = $2, origin_id = $3, destination_kind = $4, destination_id = $5, date = $6,
		    direction = $7, amount = $8, category = $9, memo = $10
		WHERE movement_id = $1
	`, m.MovementID, m.Origin.Kind, m.Origin.ID, destKind, destID, m.Date, m.Direction, m.Amount, m.Category, m.Memo)
	if err != nil {
		return err
	}
	return expectOne(result, "movement", m.MovementID)
}

func deleteMovement(ctx context.Context, q querier, movementID string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM locafin.movements WHERE movement_id = $1`, movementID)
	if err != nil {
		return err
	}
	return expectOne(result, "movement", movementID)
}
