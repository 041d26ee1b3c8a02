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

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/locafin/locafin/model"
)

// MockDataSource is a testify mock of database.IDataSource.
type MockDataSource struct {
	mock.Mock
}

// Account methods

func (m *MockDataSource) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *MockDataSource) GetAccount(ctx context.Context, ref model.AccountRef) (*model.Account, error) {
	args := m.Called(ctx, ref)
	account, _ := args.Get(0).(*model.Account)
	return account, args.Error(1)
}

func (m *MockDataSource) GetAllAccounts(ctx context.Context) ([]model.Account, error) {
	args := m.Called(ctx)
	accounts, _ := args.Get(0).([]model.Account)
	return accounts, args.Error(1)
}

// Movement methods

func (m *MockDataSource) GetMovement(ctx context.Context, movementID string) (*model.Movement, error) {
	args := m.Called(ctx, movementID)
	movement, _ := args.Get(0).(*model.Movement)
	return movement, args.Error(1)
}

func (m *MockDataSource) GetMovementsForAccount(ctx context.Context, ref model.AccountRef, from, to *time.Time) ([]model.Movement, error) {
	args := m.Called(ctx, ref, from, to)
	movements, _ := args.Get(0).([]model.Movement)
	return movements, args.Error(1)
}

func (m *MockDataSource) GetMovementByDocument(ctx context.Context, document string) ([]model.Movement, error) {
	args := m.Called(ctx, document)
	movements, _ := args.Get(0).([]model.Movement)
	return movements, args.Error(1)
}

// Position methods

func (m *MockDataSource) GetLatestPositionBefore(ctx context.Context, ref model.AccountRef, day time.Time) (*model.DailyPosition, error) {
	args := m.Called(ctx, ref, day)
	position, _ := args.Get(0).(*model.DailyPosition)
	return position, args.Error(1)
}

func (m *MockDataSource) GetPosition(ctx context.Context, ref model.AccountRef, day time.Time) (*model.DailyPosition, error) {
	args := m.Called(ctx, ref, day)
	position, _ := args.Get(0).(*model.DailyPosition)
	return position, args.Error(1)
}

func (m *MockDataSource) GetPositions(ctx context.Context, ref model.AccountRef, from, to time.Time) ([]model.DailyPosition, error) {
	args := m.Called(ctx, ref, from, to)
	positions, _ := args.Get(0).([]model.DailyPosition)
	return positions, args.Error(1)
}

func (m *MockDataSource) ReplacePositions(ctx context.Context, ref model.AccountRef, start time.Time, positions []model.DailyPosition) error {
	args := m.Called(ctx, ref, start, positions)
	return args.Error(0)
}

// Title methods

func (m *MockDataSource) CreateTitle(ctx context.Context, title model.Title) (model.Title, error) {
	args := m.Called(ctx, title)
	return args.Get(0).(model.Title), args.Error(1)
}

func (m *MockDataSource) GetTitle(ctx context.Context, titleID string) (*model.Title, error) {
	args := m.Called(ctx, titleID)
	title, _ := args.Get(0).(*model.Title)
	return title, args.Error(1)
}

func (m *MockDataSource) GetTitleByTracking(ctx context.Context, trackingNumber string) (*model.Title, error) {
	args := m.Called(ctx, trackingNumber)
	title, _ := args.Get(0).(*model.Title)
	return title, args.Error(1)
}

func (m *MockDataSource) GetOpenTitles(ctx context.Context) ([]model.Title, error) {
	args := m.Called(ctx)
	titles, _ := args.Get(0).([]model.Title)
	return titles, args.Error(1)
}

func (m *MockDataSource) SetTrackingNumber(ctx context.Context, titleID, trackingNumber string) error {
	args := m.Called(ctx, titleID, trackingNumber)
	return args.Error(0)
}

// Payable methods

func (m *MockDataSource) CreatePayable(ctx context.Context, payable model.Payable) (model.Payable, error) {
	args := m.Called(ctx, payable)
	return args.Get(0).(model.Payable), args.Error(1)
}

func (m *MockDataSource) GetPayable(ctx context.Context, payableID string) (*model.Payable, error) {
	args := m.Called(ctx, payableID)
	payable, _ := args.Get(0).(*model.Payable)
	return payable, args.Error(1)
}

func (m *MockDataSource) GetOpenPayables(ctx context.Context) ([]model.Payable, error) {
	args := m.Called(ctx)
	payables, _ := args.Get(0).([]model.Payable)
	return payables, args.Error(1)
}

// Reconciliation methods

func (m *MockDataSource) GetReconciliation(ctx context.Context, reconciliationID string) (*model.Reconciliation, error) {
	args := m.Called(ctx, reconciliationID)
	rec, _ := args.Get(0).(*model.Reconciliation)
	return rec, args.Error(1)
}

func (m *MockDataSource) GetReconciledMovementIDs(ctx context.Context, ref model.AccountRef, from, to time.Time) (map[string]bool, error) {
	args := m.Called(ctx, ref, from, to)
	ids, _ := args.Get(0).(map[string]bool)
	return ids, args.Error(1)
}

func (m *MockDataSource) UpdateReconciliationStatus(ctx context.Context, reconciliationID string, status model.ReconciliationStatus) error {
	args := m.Called(ctx, reconciliationID, status)
	return args.Error(0)
}

// Remittance methods

func (m *MockDataSource) NextRemittanceSequence(ctx context.Context, ref model.AccountRef) (int, error) {
	args := m.Called(ctx, ref)
	return args.Int(0), args.Error(1)
}

func (m *MockDataSource) SaveRemittance(ctx context.Context, remittance model.Remittance) error {
	args := m.Called(ctx, remittance)
	return args.Error(0)
}

// Ledger write

func (m *MockDataSource) ApplyLedgerWrite(ctx context.Context, w model.LedgerWrite) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}
