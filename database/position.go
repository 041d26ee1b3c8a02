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
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/locafin/locafin/model"
)

func (d Datasource) GetLatestPositionBefore(ctx context.Context, ref model.AccountRef, day time.Time) (*model.DailyPosition, error) {
	ctx, span := otel.Tracer("Position").Start(ctx, "Fetching carry-forward position from db")
	defer span.End()

	p := model.DailyPosition{Account: ref}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT date, balance
		FROM locafin.daily_positions
		WHERE account_kind = $1 AND account_id = $2 AND date < $3
		ORDER BY date DESC
		LIMIT 1
	`, ref.Kind, ref.ID, model.Day(day)).Scan(&p.Date, &p.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Date = model.Day(p.Date)
	return &p, nil
}

func (d Datasource) GetPosition(ctx context.Context, ref model.AccountRef, day time.Time) (*model.DailyPosition, error) {
	ctx, span := otel.Tracer("Position").Start(ctx, "Fetching position from db")
	defer span.End()

	day = model.Day(day)
	p := model.DailyPosition{Account: ref, Date: day}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT balance
		FROM locafin.daily_positions
		WHERE account_kind = $1 AND account_id = $2 AND date = $3
	`, ref.Kind, ref.ID, day).Scan(&p.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("position", fmt.Sprintf("%s@%s", ref, day.Format(model.DayLayout)))
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d Datasource) GetPositions(ctx context.Context, ref model.AccountRef, from, to time.Time) ([]model.DailyPosition, error) {
	ctx, span := otel.Tracer("Position").Start(ctx, "Fetching positions from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT date, balance
		FROM locafin.daily_positions
		WHERE account_kind = $1 AND account_id = $2 AND date >= $3 AND date <= $4
		ORDER BY date
	`, ref.Kind, ref.ID, model.Day(from), model.Day(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []model.DailyPosition
	for rows.Next() {
		p := model.DailyPosition{Account: ref}
		if err := rows.Scan(&p.Date, &p.Balance); err != nil {
			return nil, err
		}
		p.Date = model.Day(p.Date)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// ReplacePositions bulk loads the new rows with COPY inside the delete's transaction.
func (d Datasource) ReplacePositions(ctx context.Context, ref model.AccountRef, start time.Time, positions []model.DailyPosition) error {
	ctx, span := otel.Tracer("Position").Start(ctx, "Replacing positions in db")
	defer span.End()
	span.SetAttributes(attribute.String("account", ref.String()), attribute.Int("rows", len(positions)))

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM locafin.daily_positions
		WHERE account_kind = $1 AND account_id = $2 AND date >= $3
	`, ref.Kind, ref.ID, model.Day(start))
	if err != nil {
		return err
	}

	if len(positions) > 0 {
		stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema("locafin", "daily_positions", "account_kind", "account_id", "date", "balance"))
		if err != nil {
			return err
		}
		for _, p := range positions {
			if _, err := stmt.ExecContext(ctx, string(ref.Kind), ref.ID, p.Date, p.Balance); err != nil {
				_ = stmt.Close()
				return err
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			_ = stmt.Close()
			return err
		}
		if err := stmt.Close(); err != nil {
			return err
		}
	}

	return tx.Commit()
}
