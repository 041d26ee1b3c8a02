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
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/locafin/locafin/config"
	"github.com/locafin/locafin/database"
	"github.com/locafin/locafin/internal/apierror"
	"github.com/locafin/locafin/internal/cache"
	redlock "github.com/locafin/locafin/internal/lock"
	"github.com/locafin/locafin/internal/metrics"
	"github.com/locafin/locafin/internal/notification"
	redis_db "github.com/locafin/locafin/internal/redis-db"
	"github.com/locafin/locafin/model"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

var tracer = otel.Tracer("Locafin")

// mutationLockWait bounds how long a mutation waits for an account another
// mutation is holding before it reports a conflict.
var mutationLockWait = 2 * time.Second

// Locafin is the ledger service: accounts, movements, daily positions,
// receivables, payables and the CNAB files exchanged with the bank.
type Locafin struct {
	datasource database.IDataSource
	redis      redis.UniversalClient
	cache      cache.Cache
	queue      *Queue
	config     *config.Configuration
	now        func() time.Time
}

// Option customizes a Locafin built with New.
type Option func(*Locafin)

// WithQueue sets the queue used for deferred recalculation. Without one a
// failed recalculation after commit is only logged.
func WithQueue(q *Queue) Option {
	return func(l *Locafin) { l.queue = q }
}

// WithClock overrides the clock that defines "today". Used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Locafin) { l.now = now }
}

// WithCache overrides the lookup cache.
func WithCache(c cache.Cache) Option {
	return func(l *Locafin) { l.cache = c }
}

// New assembles a Locafin from already constructed dependencies.
func New(db database.IDataSource, client redis.UniversalClient, cfg *config.Configuration, opts ...Option) *Locafin {
	l := &Locafin{
		datasource: db,
		redis:      client,
		cache:      cache.NewCache(client),
		config:     cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewLocafin builds the service from the loaded configuration: it connects to
// redis and opens the recalculation queue on the same instance.
func NewLocafin(db database.IDataSource) (*Locafin, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.FromConfig(configuration.Redis)
	if err != nil {
		return nil, err
	}
	queueOpt, err := redisClient.AsynqOpt()
	if err != nil {
		return nil, err
	}
	return New(db, redisClient.Client(), configuration, WithQueue(NewQueue(queueOpt))), nil
}

// Close releases the queue client.
func (l *Locafin) Close() error {
	if l.queue == nil {
		return nil
	}
	return l.queue.Close()
}

func (l *Locafin) today() time.Time {
	return model.Day(l.now())
}

func (l *Locafin) lockTTL() time.Duration {
	return secondsOr(l.config.Recalculation.LockTTLSeconds, config.DEFAULT_LOCK_TTL_SECONDS)
}

func (l *Locafin) recalculationWait() time.Duration {
	return secondsOr(l.config.Recalculation.RetryMaxSeconds, config.DEFAULT_RETRY_MAX_SECONDS)
}

func (l *Locafin) workers() int {
	if l.config.Recalculation.Workers > 0 {
		return l.config.Recalculation.Workers
	}
	return config.DEFAULT_RECALCULATION_WORKERS
}

func secondsOr(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}

func ledgerLockKey(ref model.AccountRef) string {
	return fmt.Sprintf("ledger:%s:%s", ref.Kind, ref.ID)
}

func positionsLockKey(ref model.AccountRef) string {
	return fmt.Sprintf("positions:%s:%s", ref.Kind, ref.ID)
}

func documentLockKey(document string) string {
	return "document:" + document
}

// lockConflict maps a lock failure to the service error taxonomy.
func lockConflict(err error, what string) error {
	if errors.Is(err, redlock.ErrLockHeld) {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("%s is being modified by another operation", what), err)
	}
	return apierror.NewAPIError(apierror.ErrInternalServer, "failed to acquire lock", err)
}

func invalidInput(err error) error {
	return apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), err)
}

// errStaleRead is returned by a write builder when the rows it re-read under
// the lock touch accounts that are not locked.
var errStaleRead = errors.New("record changed while waiting for the lock")

// apply locks every account in refs plus the extra keys, runs build under the
// lock and persists the write it returns as a single transaction.
func (l *Locafin) apply(ctx context.Context, operation string, refs []model.AccountRef, extraKeys []string, build func(ctx context.Context) (model.LedgerWrite, error)) (model.LedgerWrite, error) {
	ctx, span := tracer.Start(ctx, "Applying ledger write")
	defer span.End()

	keys := make([]string, 0, len(refs)+len(extraKeys))
	for _, ref := range refs {
		keys = append(keys, ledgerLockKey(ref))
	}
	keys = append(keys, extraKeys...)

	locker := redlock.NewMultiLocker(l.redis, keys, model.GenerateUUIDWithSuffix("lock"))
	if err := locker.Lock(ctx, l.lockTTL(), mutationLockWait); err != nil {
		span.RecordError(err)
		return model.LedgerWrite{}, lockConflict(err, "account")
	}
	defer func() {
		if err := locker.Unlock(ctx); err != nil {
			logrus.WithError(err).WithField("keys", locker.Keys()).Error("failed to release ledger lock")
		}
	}()

	w, err := build(ctx)
	if err != nil {
		return model.LedgerWrite{}, err
	}
	if !coveredBy(w.Effects, refs) {
		return model.LedgerWrite{}, apierror.NewAPIError(apierror.ErrConflict, errStaleRead.Error(), errStaleRead)
	}
	if err := l.datasource.ApplyLedgerWrite(ctx, w); err != nil {
		span.RecordError(err)
		return model.LedgerWrite{}, err
	}
	metrics.LedgerMutations.WithLabelValues(operation).Inc()
	return w, nil
}

func coveredBy(effects []model.BalanceEffect, refs []model.AccountRef) bool {
	for _, e := range effects {
		found := false
		for _, ref := range refs {
			if e.Account == ref {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// afterCommit recalculates each account from the given day. The mutation is
// already durable, so a failure is reported and deferred to the queue.
func (l *Locafin) afterCommit(ctx context.Context, from time.Time, refs ...model.AccountRef) {
	ctx = context.WithoutCancel(ctx)
	seen := make(map[model.AccountRef]bool, len(refs))
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		if _, err := l.RecalculateAccount(ctx, ref, &from); err != nil {
			l.recalculationFailed(ctx, ref, from, err)
		}
	}
}

func (l *Locafin) recalculationFailed(ctx context.Context, ref model.AccountRef, from time.Time, err error) {
	metrics.RecalculationFailures.Inc()
	logrus.WithFields(logrus.Fields{
		"account": ref.String(),
		"from":    from.Format(model.DayLayout),
	}).WithError(err).Error("position recalculation failed after commit")
	notification.NotifyError(fmt.Errorf("recalculating positions of %s from %s: %w", ref, from.Format(model.DayLayout), err))

	if l.queue == nil {
		return
	}
	if qerr := l.queue.EnqueueRecalculation(ctx, ref, from); qerr != nil {
		logrus.WithError(qerr).WithField("account", ref.String()).Error("failed to defer position recalculation")
	}
}
