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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locafin/locafin/cnab"
	"github.com/locafin/locafin/model"
)

// returnFile encodes titles the way a bank echoes them back, with amount as
// the value received.
func (e *testEnv) returnFile(t *testing.T, titles ...model.Title) string {
	t.Helper()
	account, err := e.l.GetAccount(context.Background(), bankRef)
	require.NoError(t, err)
	content, err := cnab.NewWriter(e.l.company(), *account).Write(titles)
	require.NoError(t, err)
	return content
}

func TestImportReturnFile_SettlesRemittedTitles(t *testing.T) {
	env := newTestEnv(t, "2024-03-20")
	env.createBank(t, "0", "2024-01-01")
	ctx := context.Background()
	first := env.createTitle(t, "1200.00", "2024-04-10", &bankRef)
	second := env.createTitle(t, "350.25", "2024-04-10", &bankRef)

	remittance, err := env.l.GenerateRemittance(ctx, bankRef, nil)
	require.NoError(t, err)

	summary, err := env.l.ImportReturnFile(ctx, remittance.Content)
	require.NoError(t, err)
	require.Len(t, summary.Settled, 2)
	assert.Empty(t, summary.Unmatched)
	assert.Equal(t, first.TitleID, summary.Settled[0].TitleID)
	assert.Equal(t, model.TitlePaid, summary.Settled[0].Status)
	assert.NotEmpty(t, summary.Settled[1].MovementID)

	env.balanceOn(t, bankRef, "2024-03-20", "1550.25")
	got, err := env.l.GetTitle(ctx, second.TitleID)
	require.NoError(t, err)
	assert.Equal(t, model.TitlePaid, got.Status)

	again, err := env.l.ImportReturnFile(ctx, remittance.Content)
	require.NoError(t, err)
	assert.Empty(t, again.Settled)
	require.Len(t, again.Unmatched, 2)
	assert.Equal(t, reasonAlreadyPaid, again.Unmatched[0].Reason)
	env.balanceOn(t, bankRef, "2024-03-20", "1550.25")
}

func TestImportReturnFile_PartialAndUnknown(t *testing.T) {
	env := newTestEnv(t, "2024-03-20")
	env.createBank(t, "0", "2024-01-01")
	ctx := context.Background()
	title := env.createTitle(t, "100", "2024-03-10", &bankRef)
	_, err := env.l.GenerateRemittance(ctx, bankRef, nil)
	require.NoError(t, err)
	stored, err := env.l.GetTitle(ctx, title.TitleID)
	require.NoError(t, err)

	received := *stored
	received.Expected = money("40")
	stranger := model.Title{ID: 9999, TrackingNumber: "0000009999", DueDate: day("2024-03-10"), Settlement: model.NewSettlement(money("75"))}
	stranger.Debtor = stored.Debtor

	summary, err := env.l.ImportReturnFile(ctx, env.returnFile(t, received, stranger))
	require.NoError(t, err)
	require.Len(t, summary.Settled, 1)
	assert.Equal(t, model.TitlePartial, summary.Settled[0].Status)
	assert.True(t, money("40").Equal(summary.Settled[0].Amount))
	require.Len(t, summary.Unmatched, 1)
	assert.Equal(t, "0000009999", summary.Unmatched[0].TrackingNumber)
	assert.Equal(t, reasonTitleNotFound, summary.Unmatched[0].Reason)

	got, err := env.l.FindTitleByTracking(ctx, stored.TrackingNumber)
	require.NoError(t, err)
	assert.Equal(t, model.TitleOverdue, got.Status, "partially paid past due")
	assert.True(t, money("60").Equal(got.Pending))
}

func TestImportReturnFile_ToleratesNoise(t *testing.T) {
	env := newTestEnv(t, "2024-03-20")
	summary, err := env.l.ImportReturnFile(context.Background(), "garbage\r\n\r\nshort line\r\n")
	require.NoError(t, err)
	assert.Empty(t, summary.Settled)
	assert.Empty(t, summary.Unmatched)
}
