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
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locafin/locafin/model"
)

func redisOpt(env *testEnv) asynq.RedisConnOpt {
	return asynq.RedisClientOpt{Addr: env.mr.Addr()}
}

func TestRecalculationTaskID(t *testing.T) {
	assert.Equal(t, "recalc:cash:acc_cash:2024-01-05", RecalculationTaskID(cashRef, day("2024-01-05").Add(15*time.Hour)))
}

func TestEnqueueRecalculation(t *testing.T) {
	env := newTestEnv(t, "2024-01-10")
	q := NewQueue(redisOpt(env))
	t.Cleanup(func() { _ = q.Close() })
	ctx := context.Background()

	require.NoError(t, q.EnqueueRecalculation(ctx, cashRef, day("2024-01-03")))
	require.NoError(t, q.EnqueueRecalculation(ctx, cashRef, day("2024-01-03")), "duplicate task is not an error")

	info, err := q.Inspector.GetTaskInfo(RecalculationQueue, RecalculationTaskID(cashRef, day("2024-01-03")))
	require.NoError(t, err)
	assert.Equal(t, TypeRecalculatePositions, info.Type)
	assert.Equal(t, recalculationMaxRetry, info.MaxRetry)

	var payload RecalculationPayload
	require.NoError(t, json.Unmarshal(info.Payload, &payload))
	assert.Equal(t, cashRef, payload.Account)
	assert.Equal(t, day("2024-01-03"), payload.From.UTC())

	pending, err := q.Inspector.ListPendingTasks(RecalculationQueue)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestProcessRecalculation(t *testing.T) {
	env := newTestEnv(t, "2024-01-05")
	env.createCash(t, "10", "2024-01-01")
	env.record(t, cashRef, model.DirectionCredit, "5", "2024-01-03")
	require.NoError(t, env.ds.ReplacePositions(context.Background(), cashRef, day("2024-01-01"), nil))
	require.Zero(t, env.ds.PositionCount(cashRef))

	payload, err := json.Marshal(RecalculationPayload{Account: cashRef, From: day("2024-01-01")})
	require.NoError(t, err)
	require.NoError(t, env.l.ProcessRecalculation(context.Background(), asynq.NewTask(TypeRecalculatePositions, payload)))

	assert.Equal(t, 5, env.ds.PositionCount(cashRef))
	env.balanceOn(t, cashRef, "2024-01-05", "15")
}

func TestProcessRecalculation_BadPayloadSkipsRetry(t *testing.T) {
	env := newTestEnv(t, "2024-01-05")
	err := env.l.ProcessRecalculation(context.Background(), asynq.NewTask(TypeRecalculatePositions, []byte("{")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessRecalculation_UnknownAccount(t *testing.T) {
	env := newTestEnv(t, "2024-01-05")
	payload, err := json.Marshal(RecalculationPayload{Account: bankRef, From: day("2024-01-01")})
	require.NoError(t, err)
	assert.Error(t, env.l.ProcessRecalculation(context.Background(), asynq.NewTask(TypeRecalculatePositions, payload)))
}
