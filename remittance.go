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
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/locafin/locafin/boleto"
	"github.com/locafin/locafin/cnab"
	"github.com/locafin/locafin/internal/apierror"
	"github.com/locafin/locafin/model"
)

const (
	routingCacheTTL  = 10 * time.Minute
	trackingCacheTTL = 24 * time.Hour
)

var errNotBankAccount = errors.New("remittances can only be generated for bank accounts")

func routingCacheKey(ref model.AccountRef) string {
	return fmt.Sprintf("routing:%s:%s", ref.Kind, ref.ID)
}

func trackingCacheKey(tracking string) string {
	return "tracking:" + tracking
}

// bankRouting returns the routing of a bank account, cached because it only
// changes when the account is recreated.
func (l *Locafin) bankRouting(ctx context.Context, ref model.AccountRef) (model.BankRouting, error) {
	var routing model.BankRouting
	err := l.cache.Fetch(ctx, routingCacheKey(ref), &routing, routingCacheTTL, func() (interface{}, error) {
		account, err := l.datasource.GetAccount(ctx, ref)
		if err != nil {
			return nil, err
		}
		if account.Bank == nil {
			return nil, invalidInput(errNotBankAccount)
		}
		return account.Bank, nil
	})
	return routing, err
}

func (l *Locafin) company() model.Company {
	return model.Company{Name: l.config.Company.Name, Document: l.config.Company.Document}
}

// remittanceTitles loads the requested titles, or every open title credited to
// the account when ids is empty.
func (l *Locafin) remittanceTitles(ctx context.Context, ref model.AccountRef, ids []string) ([]model.Title, error) {
	if len(ids) == 0 {
		open, err := l.datasource.GetOpenTitles(ctx)
		if err != nil {
			return nil, err
		}
		titles := open[:0]
		for _, t := range open {
			if t.CreditAccount != nil && *t.CreditAccount == ref {
				titles = append(titles, t)
			}
		}
		return titles, nil
	}

	titles := make([]model.Title, 0, len(ids))
	for _, id := range ids {
		title, err := l.datasource.GetTitle(ctx, id)
		if err != nil {
			return nil, err
		}
		if title.Status == model.TitlePaid {
			return nil, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("title %s is already paid", id), nil)
		}
		titles = append(titles, *title)
	}
	return titles, nil
}

// assignTracking gives every title without a tracking number its default one.
// Numbers are only set in memory; the returned titles still need saveTracking.
func assignTracking(titles []model.Title) []model.Title {
	var assigned []model.Title
	for i := range titles {
		if titles[i].TrackingNumber == "" {
			titles[i].TrackingNumber = titles[i].DefaultTrackingNumber()
			assigned = append(assigned, titles[i])
		}
	}
	return assigned
}

// saveTracking persists newly assigned tracking numbers and remembers which
// title each number of the batch belongs to.
func (l *Locafin) saveTracking(ctx context.Context, assigned, titles []model.Title) error {
	for _, t := range assigned {
		if err := l.datasource.SetTrackingNumber(ctx, t.TitleID, t.TrackingNumber); err != nil {
			return err
		}
	}
	for _, t := range titles {
		if err := l.cache.Set(ctx, trackingCacheKey(t.TrackingNumber), t.TitleID, trackingCacheTTL); err != nil {
			logrus.WithError(err).WithField("tracking", t.TrackingNumber).Warn("failed to cache tracking number")
		}
	}
	return nil
}

func encodingFailure(err error) error {
	var encErr *cnab.EncodingError
	switch {
	case errors.Is(err, cnab.ErrEmptyBatch):
		return invalidInput(err)
	case errors.As(err, &encErr):
		return apierror.NewAPIError(apierror.ErrEncoding, encErr.Error(), err)
	}
	return apierror.NewAPIError(apierror.ErrEncoding, err.Error(), err)
}

// GenerateRemittance encodes titles into a CNAB240 remittance for a bank
// account and derives the digit line and barcode of each slip. Nothing is
// saved when any title cannot be encoded.
func (l *Locafin) GenerateRemittance(ctx context.Context, ref model.AccountRef, titleIDs []string) (*model.Remittance, error) {
	ctx, span := tracer.Start(ctx, "GenerateRemittance")
	defer span.End()
	span.SetAttributes(attribute.String("account", ref.String()), attribute.Int("titles", len(titleIDs)))

	account, err := l.datasource.GetAccount(ctx, ref)
	if err != nil {
		return nil, err
	}
	if account.Kind != model.AccountKindBank {
		return nil, invalidInput(errNotBankAccount)
	}
	routing, err := l.bankRouting(ctx, ref)
	if err != nil {
		return nil, err
	}
	account.Bank = &routing

	titles, err := l.remittanceTitles(ctx, ref, titleIDs)
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		return nil, invalidInput(cnab.ErrEmptyBatch)
	}
	assigned := assignTracking(titles)

	sequence, err := l.datasource.NextRemittanceSequence(ctx, ref)
	if err != nil {
		return nil, err
	}
	generatedAt := l.now()
	content, err := cnab.NewWriter(l.company(), *account, cnab.WithFileSequence(sequence), cnab.WithGeneratedAt(generatedAt)).Write(titles)
	if err != nil {
		span.RecordError(err)
		return nil, encodingFailure(err)
	}

	slips := make([]model.Slip, 0, len(titles))
	for _, t := range titles {
		in := boleto.Input{
			Bank:           routing,
			TrackingNumber: t.TrackingNumber,
			Document:       t.TitleID,
			DueDate:        t.DueDate,
			Amount:         t.Expected,
		}
		barcode, err := boleto.BarcodeNumber(in)
		if err != nil {
			return nil, encodingFailure(err)
		}
		line, err := boleto.DigitLineFromBarcode(barcode)
		if err != nil {
			return nil, encodingFailure(err)
		}
		slips = append(slips, model.Slip{
			TitleID:        t.TitleID,
			TrackingNumber: t.TrackingNumber,
			DueDate:        t.DueDate,
			Amount:         model.RoundMoney(t.Expected),
			DigitLine:      line,
			Barcode:        barcode,
		})
	}

	remittance := model.Remittance{
		RemittanceID: model.GenerateUUIDWithSuffix("rem"),
		Account:      ref,
		Sequence:     sequence,
		Content:      content,
		Slips:        slips,
		CreatedAt:    generatedAt,
	}
	if err := l.saveTracking(ctx, assigned, titles); err != nil {
		return nil, err
	}
	if err := l.datasource.SaveRemittance(ctx, remittance); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"account":  ref.String(),
		"sequence": sequence,
		"titles":   len(titles),
	}).Info("remittance generated")
	return &remittance, nil
}
