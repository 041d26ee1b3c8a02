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

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/locafin/locafin/cnab"
	"github.com/locafin/locafin/internal/apierror"
	"github.com/locafin/locafin/internal/metrics"
	"github.com/locafin/locafin/model"
)

const (
	reasonTitleNotFound = "title not found"
	reasonAlreadyPaid   = "title already paid"
)

// titleIDForTracking resolves a tracking number through the cache. Tracking
// numbers never move between titles, so a cached answer stays valid.
func (l *Locafin) titleIDForTracking(ctx context.Context, tracking string) (string, error) {
	var titleID string
	err := l.cache.Fetch(ctx, trackingCacheKey(tracking), &titleID, trackingCacheTTL, func() (interface{}, error) {
		title, err := l.datasource.GetTitleByTracking(ctx, tracking)
		if err != nil {
			return nil, err
		}
		return title.TitleID, nil
	})
	return titleID, err
}

// ImportReturnFile posts every paid title found in a bank return file through
// MarkTitlePaid. Lines that cannot be matched or posted are reported in the
// summary; only storage failures abort the import.
func (l *Locafin) ImportReturnFile(ctx context.Context, content string) (*model.ReturnSummary, error) {
	ctx, span := tracer.Start(ctx, "ImportReturnFile")
	defer span.End()

	skipped := metrics.CnabLinesSkipped.WithLabelValues("return")
	onSkip := func(line int, reason string) {
		skipped.Inc()
		logrus.WithFields(logrus.Fields{"line": line, "reason": reason}).Debug("return file line skipped")
	}

	summary := &model.ReturnSummary{Settled: []model.SettledTitle{}, Unmatched: []model.UnmatchedLine{}}
	unmatched := func(paid cnab.PaidTitle, reason string) {
		skipped.Inc()
		summary.Unmatched = append(summary.Unmatched, model.UnmatchedLine{
			TrackingNumber: paid.TrackingNumber,
			Amount:         paid.Amount,
			Reason:         reason,
		})
	}

	for paid := range cnab.PaidTitlesWithSkip(content, onSkip) {
		titleID, err := l.titleIDForTracking(ctx, paid.TrackingNumber)
		if apierror.Is(err, apierror.ErrNotFound) {
			unmatched(paid, reasonTitleNotFound)
			continue
		}
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		title, movement, err := l.MarkTitlePaid(ctx, titleID, paid.Amount, model.PaymentDetails{PaidAt: l.now()})
		if err != nil {
			var apiErr apierror.APIError
			switch {
			case errors.Is(err, errAlreadyPaid):
				unmatched(paid, reasonAlreadyPaid)
				continue
			case apierror.Is(err, apierror.ErrNotFound):
				unmatched(paid, reasonTitleNotFound)
				continue
			case errors.As(err, &apiErr) && (apiErr.Code == apierror.ErrInvalidInput || apiErr.Code == apierror.ErrConflict):
				unmatched(paid, apiErr.Message)
				continue
			}
			span.RecordError(err)
			return nil, err
		}
		summary.Settled = append(summary.Settled, model.SettledTitle{
			TitleID:        title.TitleID,
			TrackingNumber: paid.TrackingNumber,
			Amount:         paid.Amount,
			Status:         title.Status,
			MovementID:     movement.MovementID,
		})
	}

	span.SetAttributes(
		attribute.Int("return.settled", len(summary.Settled)),
		attribute.Int("return.unmatched", len(summary.Unmatched)),
	)
	logrus.WithFields(logrus.Fields{
		"settled":   len(summary.Settled),
		"unmatched": len(summary.Unmatched),
	}).Info("return file imported")
	return summary, nil
}
