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
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locafin/locafin/internal/apierror"
	"github.com/locafin/locafin/model"
)

func seedMemory(t *testing.T) *MemoryDataSource {
	t.Helper()
	s := NewMemoryDataSource()
	ctx := context.Background()
	for _, a := range []model.Account{
		{AccountID: bankRef.ID, Kind: bankRef.Kind, Name: "Banco", OpeningBalance: decimal.NewFromInt(100), OpeningDate: jan(1)},
		{AccountID: cashRef.ID, Kind: cashRef.Kind, Name: "Caixa", OpeningDate: jan(1)},
	} {
		_, err := s.CreateAccount(ctx, a)
		require.NoError(t, err)
	}
	return s
}

func TestMemory_ApplyLedgerWrite(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()
	m := newTransfer()

	require.NoError(t, s.ApplyLedgerWrite(ctx, model.LedgerWrite{Insert: m, Effects: m.Effects()}))
	assert.NotZero(t, m.ID)

	bank, _ := s.GetAccount(ctx, bankRef)
	cash, _ := s.GetAccount(ctx, cashRef)
	assert.True(t, bank.CurrentBalance.Equal(decimal.NewFromInt(70)))
	assert.True(t, cash.CurrentBalance.Equal(decimal.NewFromInt(30)))

	got, err := s.GetMovementsForAccount(ctx, cashRef, nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got[0].Destination.ID = "mutated"
	again, _ := s.GetMovement(ctx, m.MovementID)
	assert.Equal(t, cashRef.ID, again.Destination.ID, "reads return copies")
}

func TestMemory_FailedWriteChangesNothing(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()
	m := newTransfer()

	err := s.ApplyLedgerWrite(ctx, model.LedgerWrite{
		Insert:  m,
		Effects: m.Effects(),
		Title:   &model.Title{TitleID: "tit_missing"},
	})
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))

	_, err = s.GetMovement(ctx, m.MovementID)
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
	bank, _ := s.GetAccount(ctx, bankRef)
	assert.True(t, bank.CurrentBalance.Equal(decimal.NewFromInt(100)))
}

func TestMemory_DeleteCascadesReconciliation(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()
	m := newTransfer()
	rec := &model.Reconciliation{ReconciliationID: "rec_1", MovementID: m.MovementID, Account: bankRef, LineDate: m.Date, Status: model.ReconciliationReconciled}

	require.NoError(t, s.ApplyLedgerWrite(ctx, model.LedgerWrite{Insert: m, Effects: m.Effects(), Reconciliation: rec}))
	ids, _ := s.GetReconciledMovementIDs(ctx, bankRef, jan(1), jan(31))
	assert.True(t, ids[m.MovementID])

	err := s.ApplyLedgerWrite(ctx, model.LedgerWrite{Reconciliation: &model.Reconciliation{ReconciliationID: "rec_2", MovementID: m.MovementID}})
	assert.True(t, apierror.Is(err, apierror.ErrConflict))

	require.NoError(t, s.ApplyLedgerWrite(ctx, model.LedgerWrite{DeleteID: m.MovementID, Effects: model.Reversed(m.Effects())}))
	_, err = s.GetReconciliation(ctx, "rec_1")
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestMemory_ReplacePositions(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()

	require.NoError(t, s.ReplacePositions(ctx, bankRef, jan(1), model.WalkPositions(bankRef, decimal.NewFromInt(100), jan(1), jan(5), nil)))
	assert.Equal(t, 5, s.PositionCount(bankRef))

	require.NoError(t, s.ReplacePositions(ctx, bankRef, jan(3), model.WalkPositions(bankRef, decimal.NewFromInt(100), jan(3), jan(4), nil)))
	assert.Equal(t, 4, s.PositionCount(bankRef), "rows from the 5th are dropped")

	seed, err := s.GetLatestPositionBefore(ctx, bankRef, jan(3))
	require.NoError(t, err)
	assert.Equal(t, jan(2), seed.Date)

	_, err = s.GetPosition(ctx, bankRef, jan(5))
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestMemory_TrackingNumbersAreUnique(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()

	a, err := s.CreateTitle(ctx, model.Title{TrackingNumber: "0000000001"})
	require.NoError(t, err)
	b, err := s.CreateTitle(ctx, model.Title{})
	require.NoError(t, err)

	err = s.SetTrackingNumber(ctx, b.TitleID, "0000000001")
	assert.True(t, apierror.Is(err, apierror.ErrConflict))

	found, err := s.GetTitleByTracking(ctx, "0000000001")
	require.NoError(t, err)
	assert.Equal(t, a.TitleID, found.TitleID)
}

func TestMemory_RemittanceSequence(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()

	next, _ := s.NextRemittanceSequence(ctx, bankRef)
	assert.Equal(t, 1, next)
	require.NoError(t, s.SaveRemittance(ctx, model.Remittance{Account: bankRef, Sequence: 1}))
	next, _ = s.NextRemittanceSequence(ctx, bankRef)
	assert.Equal(t, 2, next)
	assert.Error(t, s.SaveRemittance(ctx, model.Remittance{Account: bankRef, Sequence: 1}))
}
