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

func insertReconciliation(ctx context.Context, q querier, rec *model.Reconciliation) error {
	return q.QueryRowContext(ctx, `
		INSERT INTO locafin.reconciliations (reconciliation_id, movement_id, account_kind, account_id, line_date,
			line_amount, line_memo, status, reconciled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, rec.ReconciliationID, rec.MovementID, rec.Account.Kind, rec.Account.ID, model.Day(rec.LineDate),
		rec.LineAmount, rec.LineMemo, rec.Status, rec.ReconciledAt).Scan(&rec.ID)
}

func (d Datasource) GetReconciliation(ctx context.Context, reconciliationID string) (*model.Reconciliation, error) {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Fetching reconciliation from db")
	defer span.End()

	rec := &model.Reconciliation{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, reconciliation_id, movement_id, account_kind, account_id, line_date, line_amount, line_memo, status, reconciled_at
		FROM locafin.reconciliations
		WHERE reconciliation_id = $1
	`, reconciliationID).Scan(&rec.ID, &rec.ReconciliationID, &rec.MovementID, &rec.Account.Kind, &rec.Account.ID,
		&rec.LineDate, &rec.LineAmount, &rec.LineMemo, &rec.Status, &rec.ReconciledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("reconciliation", reconciliationID)
	}
	if err != nil {
		return nil, err
	}
	rec.LineDate = model.Day(rec.LineDate)
	return rec, nil
}

// GetReconciledMovementIDs lists movements of ref already tied to a statement line dated within [from, to].
// Rejected reconciliations do not count.
func (d Datasource) GetReconciledMovementIDs(ctx context.Context, ref model.AccountRef, from, to time.Time) (map[string]bool, error) {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Fetching reconciled movements from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT movement_id
		FROM locafin.reconciliations
		WHERE account_kind = $1 AND account_id = $2 AND line_date >= $3 AND line_date <= $4 AND status <> $5
	`, ref.Kind, ref.ID, model.Day(from), model.Day(to), model.ReconciliationRejected)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (d Datasource) UpdateReconciliationStatus(ctx context.Context, reconciliationID string, status model.ReconciliationStatus) error {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Updating reconciliation status")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE locafin.reconciliations
		SET status = $2, reconciled_at = $3
		WHERE reconciliation_id = $1
	`, reconciliationID, status, time.Now().UTC())
	if err != nil {
		return err
	}
	return expectOne(result, "reconciliation", reconciliationID)
}
