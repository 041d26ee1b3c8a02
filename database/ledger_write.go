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

	"go.opentelemetry.io/otel"

	"github.com/locafin/locafin/model"
)

// ApplyLedgerWrite runs the movement change, the balance deltas and any
// settlement or reconciliation update in one transaction.
func (d Datasource) ApplyLedgerWrite(ctx context.Context, w model.LedgerWrite) error {
	ctx, span := otel.Tracer("Ledger").Start(ctx, "Applying ledger write")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if w.Insert != nil {
		if err := insertMovement(ctx, tx, w.Insert); err != nil {
			return err
		}
	}
	if w.Update != nil {
		if err := updateMovement(ctx, tx, w.Update); err != nil {
			return err
		}
	}
	if w.DeleteID != "" {
		if err := deleteMovement(ctx, tx, w.DeleteID); err != nil {
			return err
		}
	}

	for _, effect := range w.Effects {
		result, err := tx.ExecContext(ctx, `
			UPDATE locafin.accounts
			SET current_balance = current_balance + $3
			WHERE kind = $1 AND account_id = $2
		`, effect.Account.Kind, effect.Account.ID, effect.Delta)
		if err != nil {
			return err
		}
		if err := expectOne(result, "account", effect.Account.String()); err != nil {
			return err
		}
	}

	if w.Title != nil {
		if err := updateTitleSettlement(ctx, tx, w.Title); err != nil {
			return err
		}
	}
	if w.Payable != nil {
		if err := updatePayableSettlement(ctx, tx, w.Payable); err != nil {
			return err
		}
	}
	if w.Reconciliation != nil {
		if err := insertReconciliation(ctx, tx, w.Reconciliation); err != nil {
			return conflictOnDuplicate(err, "reconciliation for movement "+w.Reconciliation.MovementID)
		}
	}

	return tx.Commit()
}
