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
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/locafin/locafin/internal/apierror"
	"github.com/locafin/locafin/model"
)

var errLinkedAmend = errors.New("movements settling a title or payable cannot change amount, direction or accounts; retract and pay again")

// RecordMovement books a new movement, applies its balance effects and
// recalculates positions from the movement date.
func (l *Locafin) RecordMovement(ctx context.Context, movement model.Movement) (*model.Movement, error) {
	ctx, span := tracer.Start(ctx, "RecordMovement")
	defer span.End()

	movement.Normalize()
	if err := movement.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if err := l.requireAccounts(ctx, movement.Accounts()...); err != nil {
		return nil, err
	}

	movement.MovementID = model.GenerateUUIDWithSuffix("mov")
	movement.CreatedAt = l.now()
	span.SetAttributes(attribute.String("movement.id", movement.MovementID))

	_, err := l.apply(ctx, "record", movement.Accounts(), nil, func(context.Context) (model.LedgerWrite, error) {
		return model.LedgerWrite{Insert: &movement, Effects: movement.Effects()}, nil
	})
	if err != nil {
		return nil, err
	}

	l.afterCommit(ctx, movement.Date, movement.Accounts()...)
	logrus.WithFields(logrus.Fields{
		"movement":  movement.MovementID,
		"direction": movement.Direction,
		"amount":    movement.Amount.StringFixed(model.MoneyPlaces),
	}).Info("movement recorded")
	return &movement, nil
}

// amended applies changes to current and checks the result.
func amended(current *model.Movement, changes model.MovementChanges) (model.Movement, error) {
	updated := current.Apply(changes)
	updated.Normalize()
	if err := updated.Validate(); err != nil {
		return model.Movement{}, invalidInput(err)
	}
	if _, _, linked := current.LinkedDocument(); linked && !sameEffects(current, &updated) {
		return model.Movement{}, invalidInput(errLinkedAmend)
	}
	return updated, nil
}

// AmendMovement replaces fields of a movement. The old effects are reversed and
// the new ones applied in one write; positions are recalculated from the
// earlier of the two dates on every account either version touches.
func (l *Locafin) AmendMovement(ctx context.Context, movementID string, changes model.MovementChanges) (*model.Movement, error) {
	ctx, span := tracer.Start(ctx, "AmendMovement")
	defer span.End()
	span.SetAttributes(attribute.String("movement.id", movementID))

	old, err := l.datasource.GetMovement(ctx, movementID)
	if err != nil {
		return nil, err
	}
	updated, err := amended(old, changes)
	if err != nil {
		return nil, err
	}
	if err := l.requireAccounts(ctx, updated.Accounts()...); err != nil {
		return nil, err
	}

	refs := unionAccounts(old.Accounts(), updated.Accounts())
	from := model.MinDay(old.Date, updated.Date)
	_, err = l.apply(ctx, "amend", refs, nil, func(ctx context.Context) (model.LedgerWrite, error) {
		current, err := l.datasource.GetMovement(ctx, movementID)
		if err != nil {
			return model.LedgerWrite{}, err
		}
		if updated, err = amended(current, changes); err != nil {
			return model.LedgerWrite{}, err
		}
		from = model.MinDay(current.Date, updated.Date)
		return model.LedgerWrite{
			Update:  &updated,
			Effects: model.MergeEffects(model.Reversed(current.Effects()), updated.Effects()),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	l.afterCommit(ctx, from, refs...)
	logrus.WithField("movement", movementID).Info("movement amended")
	return &updated, nil
}

// RetractMovement deletes a movement and reverses its effects. A movement that
// settled a title or payable resets that document to unpaid in the same write.
func (l *Locafin) RetractMovement(ctx context.Context, movementID string) error {
	ctx, span := tracer.Start(ctx, "RetractMovement")
	defer span.End()
	span.SetAttributes(attribute.String("movement.id", movementID))

	old, err := l.datasource.GetMovement(ctx, movementID)
	if err != nil {
		return err
	}
	var extraKeys []string
	if old.Document != "" {
		extraKeys = append(extraKeys, documentLockKey(old.Document))
	}

	from := old.Date
	_, err = l.apply(ctx, "retract", old.Accounts(), extraKeys, func(ctx context.Context) (model.LedgerWrite, error) {
		current, err := l.datasource.GetMovement(ctx, movementID)
		if err != nil {
			return model.LedgerWrite{}, err
		}
		from = current.Date
		w := model.LedgerWrite{DeleteID: current.MovementID, Effects: model.Reversed(current.Effects())}
		if err := l.compensateDocument(ctx, current, &w); err != nil {
			return model.LedgerWrite{}, err
		}
		return w, nil
	})
	if err != nil {
		return err
	}

	l.afterCommit(ctx, from, old.Accounts()...)
	logrus.WithField("movement", movementID).Info("movement retracted")
	return nil
}

// compensateDocument adds the reset of the linked title or payable to w. A
// movement without linkage, or whose document no longer exists, is left alone.
func (l *Locafin) compensateDocument(ctx context.Context, m *model.Movement, w *model.LedgerWrite) error {
	prefix, id, ok := m.LinkedDocument()
	if !ok {
		return nil
	}

	switch prefix {
	case model.DocumentReceivable:
		title, err := l.datasource.GetTitle(ctx, id)
		if apierror.Is(err, apierror.ErrNotFound) {
			logrus.WithField("document", m.Document).Warn("retracted movement references a missing title")
			return nil
		}
		if err != nil {
			return err
		}
		title.Settlement.Reset()
		w.Title = title
	case model.DocumentPayable:
		payable, err := l.datasource.GetPayable(ctx, id)
		if apierror.Is(err, apierror.ErrNotFound) {
			logrus.WithField("document", m.Document).Warn("retracted movement references a missing payable")
			return nil
		}
		if err != nil {
			return err
		}
		payable.Settlement.Reset()
		w.Payable = payable
	}
	return nil
}

// GetMovement returns one movement.
func (l *Locafin) GetMovement(ctx context.Context, movementID string) (*model.Movement, error) {
	return l.datasource.GetMovement(ctx, movementID)
}

// ListMovements returns the movements touching an account within an optional
// inclusive date range.
func (l *Locafin) ListMovements(ctx context.Context, ref model.AccountRef, from, to *time.Time) ([]model.Movement, error) {
	if _, err := l.datasource.GetAccount(ctx, ref); err != nil {
		return nil, err
	}
	return l.datasource.GetMovementsForAccount(ctx, ref, dayPtr(from), dayPtr(to))
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := model.Day(*t)
	return &d
}

// sameEffects reports whether two versions of a movement move the same money
// between the same accounts.
func sameEffects(a, b *model.Movement) bool {
	if a.Direction != b.Direction || a.Origin != b.Origin || !a.Amount.Equal(b.Amount) {
		return false
	}
	if (a.Destination == nil) != (b.Destination == nil) {
		return false
	}
	return a.Destination == nil || *a.Destination == *b.Destination
}

func unionAccounts(groups ...[]model.AccountRef) []model.AccountRef {
	seen := map[model.AccountRef]bool{}
	var out []model.AccountRef
	for _, group := range groups {
		for _, ref := range group {
			if !seen[ref] {
				seen[ref] = true
				out = append(out, ref)
			}
		}
	}
	return out
}
