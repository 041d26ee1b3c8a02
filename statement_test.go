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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locafin/locafin/cnab"
	"github.com/locafin/locafin/internal/apierror"
	"github.com/locafin/locafin/model"
)

func statementLine(date, cents, memo string) string {
	line := []byte(strings.Repeat(" ", 170))
	copy(line[70:], cnab.EncodeAlpha(memo, 20))
	copy(line[143:], date)
	copy(line[152:], cnab.EncodeNumeric(cents, 15))
	return string(line)
}

func (e *testEnv) recordMemo(t *testing.T, amount, date, memo string) *model.Movement {
	t.Helper()
	m, err := e.l.RecordMovement(context.Background(), model.Movement{
		Origin:    bankRef,
		Direction: model.DirectionCredit,
		Amount:    money(amount),
		Date:      day(date),
		Memo:      memo,
	})
	require.NoError(t, err)
	return m
}

func TestImportBankStatement(t *testing.T) {
	env := newTestEnv(t, "2024-01-10")
	env.createBank(t, "100", "2024-01-01")
	ctx := context.Background()
	rent := env.recordMemo(t, "50", "2024-01-05", "Aluguel apto 12")
	condo := env.recordMemo(t, "50", "2024-01-05", "Condominio bloco B")

	content := strings.Join([]string{
		statementLine("20240105", "5000", "CONDOMINIO BLOCO"),
		statementLine("20240106", "12345", "TED RECEBIDA"),
		statementLine("20240107", "0", "TARIFA ZERADA"),
	}, "\r\n")

	summary, err := env.l.ImportBankStatement(ctx, bankRef, content)
	require.NoError(t, err)
	require.Len(t, summary.Matched, 1)
	assert.Equal(t, condo.MovementID, summary.Matched[0].MovementID, "closest memo wins")
	assert.Equal(t, model.ReconciliationReconciled, summary.Matched[0].Status)
	assert.Equal(t, 1, summary.Skipped)

	require.Len(t, summary.Created, 1)
	created, err := env.l.GetMovement(ctx, summary.Created[0].MovementID)
	require.NoError(t, err)
	assert.Equal(t, StatementCategory, created.Category)
	assert.Equal(t, model.DirectionCredit, created.Direction)
	assert.Equal(t, "TED RECEBIDA", created.Memo)
	assert.True(t, money("123.45").Equal(created.Amount))

	env.balanceOn(t, bankRef, "2024-01-05", "200")
	env.balanceOn(t, bankRef, "2024-01-06", "323.45")
	assert.True(t, money("323.45").Equal(env.currentBalance(t, bankRef)))

	// the next identical line takes the remaining movement, not the reconciled one
	second, err := env.l.ImportBankStatement(ctx, bankRef, statementLine("20240105", "5000", "CONDOMINIO BLOCO"))
	require.NoError(t, err)
	require.Len(t, second.Matched, 1)
	assert.Equal(t, rent.MovementID, second.Matched[0].MovementID)
	assert.Empty(t, second.Created)
}

func TestImportBankStatement_EmptyAndUnknownAccount(t *testing.T) {
	env := newTestEnv(t, "2024-01-10")
	env.createBank(t, "0", "2024-01-01")
	ctx := context.Background()

	summary, err := env.l.ImportBankStatement(ctx, bankRef, "")
	require.NoError(t, err)
	assert.Empty(t, summary.Matched)
	assert.Empty(t, summary.Created)

	_, err = env.l.ImportBankStatement(ctx, cashRef, statementLine("20240105", "100", "X"))
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestMemoDistance(t *testing.T) {
	assert.Equal(t, 0, memoDistance("ted recebida", "TED RECEBIDA"))
	assert.Less(t, memoDistance("CONDOMINIO BLOCO", "Condominio bloco B"), memoDistance("CONDOMINIO BLOCO", "Aluguel apto 12"))
}

func TestSetReconciliationStatus(t *testing.T) {
	env := newTestEnv(t, "2024-01-10")
	env.createBank(t, "0", "2024-01-01")
	ctx := context.Background()
	summary, err := env.l.ImportBankStatement(ctx, bankRef, statementLine("20240108", "990", "PIX"))
	require.NoError(t, err)
	require.Len(t, summary.Created, 1)
	id := summary.Created[0].ReconciliationID

	updated, err := env.l.SetReconciliationStatus(ctx, id, model.ReconciliationRejected)
	require.NoError(t, err)
	assert.Equal(t, model.ReconciliationRejected, updated.Status)

	_, err = env.l.SetReconciliationStatus(ctx, id, "approved")
	assert.True(t, apierror.Is(err, apierror.ErrInvalidInput))

	_, err = env.l.SetReconciliationStatus(ctx, "rec_missing", model.ReconciliationPending)
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}
