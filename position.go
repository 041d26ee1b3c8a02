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
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	redlock "github.com/locafin/locafin/internal/lock"
	"github.com/locafin/locafin/internal/metrics"
	"github.com/locafin/locafin/model"
)

// Recalculate rewrites the daily positions of every account from the given
// day, or from today when from is nil. Accounts are processed in parallel up
// to the configured number of workers. It returns the number of rows written.
func (l *Locafin) Recalculate(ctx context.Context, from *time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "Recalculate")
	defer span.End()

	start := l.today()
	if from != nil {
		start = model.Day(*from)
	}

	accounts, err := l.datasource.GetAllAccounts(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers())
	for i := range accounts {
		ref := accounts[i].Ref()
		g.Go(func() error {
			n, err := l.RecalculateAccount(gctx, ref, &start)
			if err != nil {
				return err
			}
			written.Add(int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return int(written.Load()), err
	}

	span.SetAttributes(attribute.Int("positions.written", int(written.Load())))
	logrus.WithFields(logrus.Fields{
		"from":     start.Format(model.DayLayout),
		"accounts": len(accounts),
		"rows":     written.Load(),
	}).Info("positions recalculated")
	return int(written.Load()), nil
}

// RecalculateAccount rewrites the daily positions of one account. Rows dated
// before the effective start are kept and the latest of them seeds the walk.
// The walk ends today, or on the latest movement date when that is later, so
// every day from the opening date on has exactly one row.
func (l *Locafin) RecalculateAccount(ctx context.Context, ref model.AccountRef, from *time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "RecalculateAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account", ref.String()))
	began := time.Now()

	account, err := l.datasource.GetAccount(ctx, ref)
	if err != nil {
		return 0, err
	}
	start := effectiveStart(account, from)

	locker := redlock.NewLocker(l.redis, positionsLockKey(ref), model.GenerateUUIDWithSuffix("lock"))
	if err := locker.WaitLock(ctx, l.lockTTL(), l.recalculationWait()); err != nil {
		span.RecordError(err)
		return 0, lockConflict(err, "positions of "+ref.String())
	}
	defer func() {
		if err := locker.Unlock(ctx); err != nil {
			logrus.WithError(err).WithField("key", locker.Key()).Error("failed to release positions lock")
		}
	}()

	latest, err := l.datasource.GetLatestPositionBefore(ctx, ref, start)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	start = continuousStart(account, latest, start)
	seed, err := l.seedBalance(ctx, account, latest, start)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	movements, err := l.datasource.GetMovementsForAccount(ctx, ref, &start, nil)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	end := l.today()
	for i := range movements {
		end = model.MaxDay(end, movements[i].Date)
	}

	positions := model.WalkPositions(ref, seed, start, end, model.DailyTotals(ref, movements))
	if err := l.datasource.ReplacePositions(ctx, ref, start, positions); err != nil {
		span.RecordError(err)
		return 0, err
	}

	metrics.PositionRowsWritten.Add(float64(len(positions)))
	metrics.RecalculationDuration.Observe(time.Since(began).Seconds())
	return len(positions), nil
}

// effectiveStart is the later of the requested day and the opening date, so a
// from before the opening date is clamped to it. No position exists before the
// account opened.
func effectiveStart(account *model.Account, from *time.Time) time.Time {
	opening := model.Day(account.OpeningDate)
	if from == nil {
		return opening
	}
	return model.MaxDay(*from, opening)
}

// continuousStart moves start back so the rewritten rows join the kept ones
// without a gap: to the day after the latest kept row, or to the opening date
// when no row is kept.
func continuousStart(account *model.Account, latest *model.DailyPosition, start time.Time) time.Time {
	if latest == nil {
		return model.MinDay(start, account.OpeningDate)
	}
	return model.MinDay(start, model.AddDays(latest.Date, 1))
}

// seedBalance is the balance carried into start: the latest kept row, or the
// opening balance plus any movement dated before start when no row is kept.
func (l *Locafin) seedBalance(ctx context.Context, account *model.Account, latest *model.DailyPosition, start time.Time) (decimal.Decimal, error) {
	if latest != nil {
		return latest.Balance, nil
	}
	ref := account.Ref()
	seed := account.OpeningBalance
	upper := model.AddDays(start, -1)
	prior, err := l.datasource.GetMovementsForAccount(ctx, ref, nil, &upper)
	if err != nil {
		return decimal.Zero, err
	}
	for i := range prior {
		seed = seed.Add(prior[i].EffectOn(ref))
	}
	return seed, nil
}

// GetPosition returns the balance of an account at the end of a day.
func (l *Locafin) GetPosition(ctx context.Context, ref model.AccountRef, day time.Time) (*model.DailyPosition, error) {
	return l.datasource.GetPosition(ctx, ref, model.Day(day))
}

// ListPositions returns the daily positions of an account within [from, to].
func (l *Locafin) ListPositions(ctx context.Context, ref model.AccountRef, from, to time.Time) ([]model.DailyPosition, error) {
	if _, err := l.datasource.GetAccount(ctx, ref); err != nil {
		return nil, err
	}
	return l.datasource.GetPositions(ctx, ref, model.Day(from), model.Day(to))
}
