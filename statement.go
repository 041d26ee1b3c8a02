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
	"time"

	"github.com/sirupsen/logrus"
	"github.com/texttheater/golang-levenshtein/levenshtein"
	"go.opentelemetry.io/otel/attribute"

	"github.com/locafin/locafin/cnab"
	"github.com/locafin/locafin/internal/apierror"
	"github.com/locafin/locafin/internal/metrics"
	"github.com/locafin/locafin/model"
)

// StatementCategory tags movements created from unmatched statement lines.
const StatementCategory = "CNAB"

// ImportBankStatement reconciles the postings of a bank statement against the
// movements of an account. A line matches an unreconciled movement with the
// same date and amount; among several candidates the one whose memo is closest
// wins. Lines without a match are booked as new credits. Positions are
// recalculated once, from the earliest new movement.
func (l *Locafin) ImportBankStatement(ctx context.Context, ref model.AccountRef, content string) (*model.StatementSummary, error) {
	ctx, span := tracer.Start(ctx, "ImportBankStatement")
	defer span.End()
	span.SetAttributes(attribute.String("account", ref.String()))
	began := time.Now()

	if _, err := l.datasource.GetAccount(ctx, ref); err != nil {
		return nil, err
	}

	summary := &model.StatementSummary{Matched: []model.Reconciliation{}, Created: []model.Reconciliation{}}
	var entries []cnab.StatementEntry
	for entry := range cnab.StatementEntries(content) {
		if !entry.Amount.IsPositive() {
			summary.Skipped++
			metrics.CnabLinesSkipped.WithLabelValues("statement").Inc()
			continue
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		summary.Duration = time.Since(began)
		return summary, nil
	}

	first, last := entries[0].Date, entries[0].Date
	for _, e := range entries[1:] {
		first, last = model.MinDay(first, e.Date), model.MaxDay(last, e.Date)
	}
	movements, err := l.datasource.GetMovementsForAccount(ctx, ref, &first, &last)
	if err != nil {
		return nil, err
	}
	taken, err := l.datasource.GetReconciledMovementIDs(ctx, ref, first, last)
	if err != nil {
		return nil, err
	}
	if taken == nil {
		taken = map[string]bool{}
	}

	var recalcFrom *time.Time
	for _, entry := range entries {
		rec := model.Reconciliation{
			ReconciliationID: model.GenerateUUIDWithSuffix("rec"),
			Account:          ref,
			LineDate:         model.Day(entry.Date),
			LineAmount:       model.RoundMoney(entry.Amount),
			LineMemo:         entry.Memo,
			Status:           model.ReconciliationReconciled,
			ReconciledAt:     l.now(),
		}

		if match := closestMovement(movements, taken, entry); match != nil {
			rec.MovementID = match.MovementID
			if err := l.datasource.ApplyLedgerWrite(ctx, model.LedgerWrite{Reconciliation: &rec}); err != nil {
				if apierror.Is(err, apierror.ErrConflict) {
					summary.Skipped++
					continue
				}
				return nil, err
			}
			taken[match.MovementID] = true
			summary.Matched = append(summary.Matched, rec)
			continue
		}

		movement := model.Movement{
			MovementID: model.GenerateUUIDWithSuffix("mov"),
			Origin:     ref,
			Direction:  model.DirectionCredit,
			Amount:     entry.Amount,
			Date:       entry.Date,
			Category:   StatementCategory,
			Memo:       entry.Memo,
			CreatedAt:  l.now(),
		}
		movement.Normalize()
		rec.MovementID = movement.MovementID
		_, err := l.apply(ctx, "statement", []model.AccountRef{ref}, nil, func(context.Context) (model.LedgerWrite, error) {
			return model.LedgerWrite{Insert: &movement, Effects: movement.Effects(), Reconciliation: &rec}, nil
		})
		if err != nil {
			return nil, err
		}
		taken[movement.MovementID] = true
		summary.Created = append(summary.Created, rec)
		if recalcFrom == nil || movement.Date.Before(*recalcFrom) {
			day := movement.Date
			recalcFrom = &day
		}
	}

	if recalcFrom != nil {
		l.afterCommit(ctx, *recalcFrom, ref)
	}
	summary.Duration = time.Since(began)
	logrus.WithFields(logrus.Fields{
		"account": ref.String(),
		"matched": len(summary.Matched),
		"created": len(summary.Created),
		"skipped": summary.Skipped,
	}).Info("bank statement imported")
	return summary, nil
}

// closestMovement picks the unreconciled movement with the entry's date and
// amount whose memo is nearest to the entry memo.
func closestMovement(movements []model.Movement, taken map[string]bool, entry cnab.StatementEntry) *model.Movement {
	var best *model.Movement
	bestDistance := 0
	day := model.Day(entry.Date)
	for i := range movements {
		m := &movements[i]
		if taken[m.MovementID] || !model.Day(m.Date).Equal(day) || !m.Amount.Equal(model.RoundMoney(entry.Amount)) {
			continue
		}
		distance := memoDistance(m.Memo, entry.Memo)
		if best == nil || distance < bestDistance {
			best, bestDistance = m, distance
		}
	}
	return best
}

func memoDistance(a, b string) int {
	return levenshtein.DistanceForStrings([]rune(strings.ToUpper(a)), []rune(strings.ToUpper(b)), levenshtein.DefaultOptions)
}

// SetReconciliationStatus records a manual decision on an imported line.
func (l *Locafin) SetReconciliationStatus(ctx context.Context, reconciliationID string, status model.ReconciliationStatus) (*model.Reconciliation, error) {
	ctx, span := tracer.Start(ctx, "SetReconciliationStatus")
	defer span.End()

	if !status.Valid() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "status must be one of pending, reconciled or rejected", nil)
	}
	if err := l.datasource.UpdateReconciliationStatus(ctx, reconciliationID, status); err != nil {
		return nil, err
	}
	return l.datasource.GetReconciliation(ctx, reconciliationID)
}
