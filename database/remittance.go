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
	"encoding/json"

	"go.opentelemetry.io/otel"

	"github.com/locafin/locafin/model"
)

// NextRemittanceSequence is one past the highest file sequence used for the account.
func (d Datasource) NextRemittanceSequence(ctx context.Context, ref model.AccountRef) (int, error) {
	ctx, span := otel.Tracer("Remittance").Start(ctx, "Fetching next remittance sequence")
	defer span.End()

	var next int
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(sequence), 0) + 1
		FROM locafin.remittances
		WHERE account_kind = $1 AND account_id = $2
	`, ref.Kind, ref.ID).Scan(&next)
	return next, err
}

func (d Datasource) SaveRemittance(ctx context.Context, remittance model.Remittance) error {
	ctx, span := otel.Tracer("Remittance").Start(ctx, "Saving remittance to db")
	defer span.End()

	slips, err := json.Marshal(remittance.Slips)
	if err != nil {
		return err
	}
	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO locafin.remittances (remittance_id, account_kind, account_id, sequence, content, slips, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, remittance.RemittanceID, remittance.Account.Kind, remittance.Account.ID, remittance.Sequence,
		remittance.Content, slips, remittance.CreatedAt)
	return conflictOnDuplicate(err, "remittance")
}
