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
	"time"

	"github.com/locafin/locafin/model"
)

// IDataSource is everything the service needs from storage. Every method is
// transactional on its own; ApplyLedgerWrite and ReplacePositions span
// several tables in a single transaction.
type IDataSource interface {
	account
	movement
	position
	title
	payable
	reconciliation
	remittance
	ledgerWriter
}

type account interface {
	CreateAccount(ctx context.Context, account model.Account) (model.Account, error)
	GetAccount(ctx context.Context, ref model.AccountRef) (*model.Account, error)
	GetAllAccounts(ctx context.Context) ([]model.Account, error)
}

type movement interface {
	GetMovement(ctx context.Context, movementID string) (*model.Movement, error)
	// GetMovementsForAccount returns movements where ref is origin or destination,
	// dated within [from, to]. A nil bound is open. Ordered by date then id.
	GetMovementsForAccount(ctx context.Context, ref model.AccountRef, from, to *time.Time) ([]model.Movement, error)
	GetMovementByDocument(ctx context.Context, document string) ([]model.Movement, error)
}

type position interface {
	// GetLatestPositionBefore returns nil when no row is dated before day.
	GetLatestPositionBefore(ctx context.Context, ref model.AccountRef, day time.Time) (*model.DailyPosition, error)
	GetPosition(ctx context.Context, ref model.AccountRef, day time.Time) (*model.DailyPosition, error)
	GetPositions(ctx context.Context, ref model.AccountRef, from, to time.Time) ([]model.DailyPosition, error)
	// ReplacePositions deletes every row of ref dated on or after start and
	// inserts positions in the same transaction.
	ReplacePositions(ctx context.Context, ref model.AccountRef, start time.Time, positions []model.DailyPosition) error
}

type title interface {
	CreateTitle(ctx context.Context, title model.Title) (model.Title, error)
	GetTitle(ctx context.Context, titleID string) (*model.Title, error)
	GetTitleByTracking(ctx context.Context, trackingNumber string) (*model.Title, error)
	GetOpenTitles(ctx context.Context) ([]model.Title, error)
	SetTrackingNumber(ctx context.Context, titleID, trackingNumber string) error
}

type payable interface {
	CreatePayable(ctx context.Context, payable model.Payable) (model.Payable, error)
	GetPayable(ctx context.Context, payableID string) (*model.Payable, error)
	GetOpenPayables(ctx context.Context) ([]model.Payable, error)
}

type reconciliation interface {
	GetReconciliation(ctx context.Context, reconciliationID string) (*model.Reconciliation, error)
	GetReconciledMovementIDs(ctx context.Context, ref model.AccountRef, from, to time.Time) (map[string]bool, error)
	UpdateReconciliationStatus(ctx context.Context, reconciliationID string, status model.ReconciliationStatus) error
}

type remittance interface {
	NextRemittanceSequence(ctx context.Context, ref model.AccountRef) (int, error)
	SaveRemittance(ctx context.Context, remittance model.Remittance) error
}

type ledgerWriter interface {
	// ApplyLedgerWrite persists every part of w or nothing. The inserted
	// movement's ID is filled in on success.
	ApplyLedgerWrite(ctx context.Context, w model.LedgerWrite) error
}

var (
	_ IDataSource = Datasource{}
	_ IDataSource = (*MemoryDataSource)(nil)
)
