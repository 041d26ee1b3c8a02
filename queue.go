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
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/locafin/locafin/model"
)

const (
	RecalculationQueue       = "recalculation"
	TypeRecalculatePositions = "positions:recalculate"
	recalculationMaxRetry    = 5
)

// Queue enqueues deferred work on redis.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// RecalculationPayload is the body of a deferred recalculation task.
type RecalculationPayload struct {
	Account model.AccountRef `json:"account"`
	From    time.Time        `json:"from"`
}

// NewQueue opens a client and inspector on the given redis connection.
func NewQueue(opt asynq.RedisConnOpt) *Queue {
	return &Queue{
		Client:    asynq.NewClient(opt),
		Inspector: asynq.NewInspector(opt),
	}
}

// Close releases the underlying connections.
func (q *Queue) Close() error {
	if err := q.Inspector.Close(); err != nil {
		return err
	}
	return q.Client.Close()
}

// RecalculationTaskID is stable per account and day so the same deferred
// recalculation is only queued once.
func RecalculationTaskID(ref model.AccountRef, from time.Time) string {
	return fmt.Sprintf("recalc:%s:%s:%s", ref.Kind, ref.ID, model.Day(from).Format(model.DayLayout))
}

// EnqueueRecalculation defers recalculating ref from the given day to a worker.
func (q *Queue) EnqueueRecalculation(ctx context.Context, ref model.AccountRef, from time.Time) error {
	ctx, span := tracer.Start(ctx, "Adding recalculation to queue")
	defer span.End()

	payload, err := json.Marshal(RecalculationPayload{Account: ref, From: model.Day(from)})
	if err != nil {
		return err
	}
	taskID := RecalculationTaskID(ref, from)
	task := asynq.NewTask(TypeRecalculatePositions, payload)
	info, err := q.Client.EnqueueContext(ctx, task,
		asynq.TaskID(taskID),
		asynq.Queue(RecalculationQueue),
		asynq.MaxRetry(recalculationMaxRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logrus.WithField("task", taskID).Debug("recalculation already queued")
		return nil
	}
	if err != nil {
		span.RecordError(err)
		return err
	}
	logrus.WithFields(logrus.Fields{"task": info.ID, "queue": info.Queue}).Info("recalculation deferred")
	return nil
}

// ProcessRecalculation is the asynq handler for deferred recalculations.
func (l *Locafin) ProcessRecalculation(ctx context.Context, t *asynq.Task) error {
	var payload RecalculationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decoding recalculation payload: %v: %w", err, asynq.SkipRetry)
	}
	from := payload.From
	n, err := l.RecalculateAccount(ctx, payload.Account, &from)
	if err != nil {
		logrus.WithError(err).WithField("account", payload.Account.String()).Error("deferred recalculation failed")
		return err
	}
	logrus.WithFields(logrus.Fields{
		"account": payload.Account.String(),
		"from":    from.Format(model.DayLayout),
		"rows":    n,
	}).Info("deferred recalculation done")
	return nil
}
