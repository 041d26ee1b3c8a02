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
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/locafin/locafin/internal/apierror"
	"github.com/locafin/locafin/model"
)

type positionKey struct {
	account model.AccountRef
	day     time.Time
}

// MemoryDataSource is an IDataSource held in process memory. A single mutex
// serializes writers, so every method is atomic. It backs tests and the
// embedded mode of the CLI.
type MemoryDataSource struct {
	mu sync.RWMutex

	seq             int64
	accounts        map[model.AccountRef]*model.Account
	accountOrder    []model.AccountRef
	movements       map[string]*model.Movement
	positions       map[positionKey]model.DailyPosition
	titles          map[string]*model.Title
	payables        map[string]*model.Payable
	reconciliations map[string]*model.Reconciliation
	remittances     []model.Remittance
}

func NewMemoryDataSource() *MemoryDataSource {
	return &MemoryDataSource{
		accounts:        make(map[model.AccountRef]*model.Account),
		movements:       make(map[string]*model.Movement),
		positions:       make(map[positionKey]model.DailyPosition),
		titles:          make(map[string]*model.Title),
		payables:        make(map[string]*model.Payable),
		reconciliations: make(map[string]*model.Reconciliation),
	}
}

func (s *MemoryDataSource) nextID() int64 {
	s.seq++
	return s.seq
}

func cloneRef(ref *model.AccountRef) *model.AccountRef {
	if ref == nil {
		return nil
	}
	c := *ref
	return &c
}

func cloneDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneMovement(m *model.Movement) model.Movement {
	c := *m
	c.Destination = cloneRef(m.Destination)
	return c
}

func cloneTitle(t *model.Title) model.Title {
	c := *t
	c.CreditAccount = cloneRef(t.CreditAccount)
	c.PaidAt = cloneDay(t.PaidAt)
	return c
}

func clonePayable(p *model.Payable) model.Payable {
	c := *p
	c.DebitAccount = cloneRef(p.DebitAccount)
	c.PaidAt = cloneDay(p.PaidAt)
	return c
}

func cloneAccount(a *model.Account) model.Account {
	c := *a
	if a.Bank != nil {
		bank := *a.Bank
		c.Bank = &bank
	}
	return c
}

func (s *MemoryDataSource) CreateAccount(_ context.Context, account model.Account) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.AccountID == "" {
		account.AccountID = model.GenerateUUIDWithSuffix("acc")
	}
	ref := account.Ref()
	if _, ok := s.accounts[ref]; ok {
		return account, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("account %s already exists", ref), nil)
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	account.ID = s.nextID()
	account.OpeningDate = model.Day(account.OpeningDate)
	account.CurrentBalance = account.OpeningBalance

	stored := cloneAccount(&account)
	s.accounts[ref] = &stored
	s.accountOrder = append(s.accountOrder, ref)
	return account, nil
}

func (s *MemoryDataSource) GetAccount(_ context.Context, ref model.AccountRef) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[ref]
	if !ok {
		return nil, notFound("account", ref.String())
	}
	c := cloneAccount(a)
	return &c, nil
}

func (s *MemoryDataSource) GetAllAccounts(_ context.Context) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]model.Account, 0, len(s.accountOrder))
	for _, ref := range s.accountOrder {
		accounts = append(accounts, cloneAccount(s.accounts[ref]))
	}
	return accounts, nil
}

func (s *MemoryDataSource) GetMovement(_ context.Context, movementID string) (*model.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.movements[movementID]
	if !ok {
		return nil, notFound("movement", movementID)
	}
	c := cloneMovement(m)
	return &c, nil
}

func (s *MemoryDataSource) sortedMovements(keep func(*model.Movement) bool) []model.Movement {
	var out []model.Movement
	for _, m := range s.movements {
		if keep(m) {
			out = append(out, cloneMovement(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *MemoryDataSource) GetMovementsForAccount(_ context.Context, ref model.AccountRef, from, to *time.Time) ([]model.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedMovements(func(m *model.Movement) bool {
		touches := m.Origin == ref || (m.Destination != nil && *m.Destination == ref)
		if !touches {
			return false
		}
		if from != nil && m.Date.Before(model.Day(*from)) {
			return false
		}
		if to != nil && m.Date.After(model.Day(*to)) {
			return false
		}
		return true
	}), nil
}

func (s *MemoryDataSource) GetMovementByDocument(_ context.Context, document string) ([]model.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedMovements(func(m *model.Movement) bool { return m.Document == document }), nil
}

func (s *MemoryDataSource) GetLatestPositionBefore(_ context.Context, ref model.AccountRef, day time.Time) (*model.DailyPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day = model.Day(day)
	var latest *model.DailyPosition
	for k, p := range s.positions {
		if k.account != ref || !k.day.Before(day) {
			continue
		}
		if latest == nil || k.day.After(latest.Date) {
			c := p
			latest = &c
		}
	}
	return latest, nil
}

func (s *MemoryDataSource) GetPosition(_ context.Context, ref model.AccountRef, day time.Time) (*model.DailyPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day = model.Day(day)
	p, ok := s.positions[positionKey{account: ref, day: day}]
	if !ok {
		return nil, notFound("position", fmt.Sprintf("%s@%s", ref, day.Format(model.DayLayout)))
	}
	return &p, nil
}

func (s *MemoryDataSource) GetPositions(_ context.Context, ref model.AccountRef, from, to time.Time) ([]model.DailyPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.DailyPosition
	for day := model.Day(from); !day.After(model.Day(to)); day = model.AddDays(day, 1) {
		if p, ok := s.positions[positionKey{account: ref, day: day}]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryDataSource) ReplacePositions(_ context.Context, ref model.AccountRef, start time.Time, positions []model.DailyPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[ref]; !ok {
		return notFound("account", ref.String())
	}
	start = model.Day(start)
	for k := range s.positions {
		if k.account == ref && !k.day.Before(start) {
			delete(s.positions, k)
		}
	}
	for _, p := range positions {
		p.Account = ref
		p.Date = model.Day(p.Date)
		s.positions[positionKey{account: ref, day: p.Date}] = p
	}
	return nil
}

// PositionCount returns the number of stored position rows for ref.
func (s *MemoryDataSource) PositionCount(ref model.AccountRef) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for k := range s.positions {
		if k.account == ref {
			n++
		}
	}
	return n
}

func (s *MemoryDataSource) CreateTitle(_ context.Context, title model.Title) (model.Title, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if title.TitleID == "" {
		title.TitleID = model.GenerateUUIDWithSuffix("tit")
	}
	if title.TrackingNumber != "" && s.trackingInUse(title.TrackingNumber, "") {
		return title, apierror.NewAPIError(apierror.ErrConflict, "tracking number already assigned", nil)
	}
	if title.CreatedAt.IsZero() {
		title.CreatedAt = time.Now().UTC()
	}
	title.ID = s.nextID()
	stored := cloneTitle(&title)
	s.titles[title.TitleID] = &stored
	return title, nil
}

func (s *MemoryDataSource) trackingInUse(tracking, except string) bool {
	for id, t := range s.titles {
		if id != except && t.TrackingNumber == tracking {
			return true
		}
	}
	return false
}

func (s *MemoryDataSource) GetTitle(_ context.Context, titleID string) (*model.Title, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.titles[titleID]
	if !ok {
		return nil, notFound("title", titleID)
	}
	c := cloneTitle(t)
	return &c, nil
}

func (s *MemoryDataSource) GetTitleByTracking(_ context.Context, trackingNumber string) (*model.Title, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.titles {
		if t.TrackingNumber == trackingNumber {
			c := cloneTitle(t)
			return &c, nil
		}
	}
	return nil, notFound("title with tracking number", trackingNumber)
}

func (s *MemoryDataSource) GetOpenTitles(_ context.Context) ([]model.Title, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Title
	for _, t := range s.titles {
		if t.Status != model.TitlePaid {
			out = append(out, cloneTitle(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryDataSource) SetTrackingNumber(_ context.Context, titleID, trackingNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.titles[titleID]
	if !ok {
		return notFound("title", titleID)
	}
	if s.trackingInUse(trackingNumber, titleID) {
		return apierror.NewAPIError(apierror.ErrConflict, "tracking number already assigned", nil)
	}
	t.TrackingNumber = trackingNumber
	return nil
}

func (s *MemoryDataSource) CreatePayable(_ context.Context, payable model.Payable) (model.Payable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payable.PayableID == "" {
		payable.PayableID = model.GenerateUUIDWithSuffix("pay")
	}
	if payable.CreatedAt.IsZero() {
		payable.CreatedAt = time.Now().UTC()
	}
	payable.ID = s.nextID()
	stored := clonePayable(&payable)
	s.payables[payable.PayableID] = &stored
	return payable, nil
}

func (s *MemoryDataSource) GetPayable(_ context.Context, payableID string) (*model.Payable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payables[payableID]
	if !ok {
		return nil, notFound("payable", payableID)
	}
	c := clonePayable(p)
	return &c, nil
}

func (s *MemoryDataSource) GetOpenPayables(_ context.Context) ([]model.Payable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Payable
	for _, p := range s.payables {
		if p.Status != model.TitlePaid {
			out = append(out, clonePayable(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryDataSource) GetReconciliation(_ context.Context, reconciliationID string) (*model.Reconciliation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reconciliations[reconciliationID]
	if !ok {
		return nil, notFound("reconciliation", reconciliationID)
	}
	c := *r
	return &c, nil
}

func (s *MemoryDataSource) GetReconciledMovementIDs(_ context.Context, ref model.AccountRef, from, to time.Time) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]bool)
	from, to = model.Day(from), model.Day(to)
	for _, r := range s.reconciliations {
		if r.Account != ref || r.Status == model.ReconciliationRejected {
			continue
		}
		if r.LineDate.Before(from) || r.LineDate.After(to) {
			continue
		}
		ids[r.MovementID] = true
	}
	return ids, nil
}

func (s *MemoryDataSource) UpdateReconciliationStatus(_ context.Context, reconciliationID string, status model.ReconciliationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reconciliations[reconciliationID]
	if !ok {
		return notFound("reconciliation", reconciliationID)
	}
	r.Status = status
	r.ReconciledAt = time.Now().UTC()
	return nil
}

func (s *MemoryDataSource) NextRemittanceSequence(_ context.Context, ref model.AccountRef) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	next := 1
	for _, r := range s.remittances {
		if r.Account == ref && r.Sequence >= next {
			next = r.Sequence + 1
		}
	}
	return next, nil
}

func (s *MemoryDataSource) SaveRemittance(_ context.Context, remittance model.Remittance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.remittances {
		if r.Account == remittance.Account && r.Sequence == remittance.Sequence {
			return apierror.NewAPIError(apierror.ErrConflict, "remittance sequence already used", nil)
		}
	}
	s.remittances = append(s.remittances, remittance)
	return nil
}

// ApplyLedgerWrite checks every part of w before changing anything, so a
// failing write leaves the store untouched.
func (s *MemoryDataSource) ApplyLedgerWrite(_ context.Context, w model.LedgerWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLedgerWrite(&w); err != nil {
		return err
	}

	if w.DeleteID != "" {
		delete(s.movements, w.DeleteID)
		for id, r := range s.reconciliations {
			if r.MovementID == w.DeleteID {
				delete(s.reconciliations, id)
			}
		}
	}
	if w.Update != nil {
		stored := cloneMovement(w.Update)
		stored.ID = s.movements[w.Update.MovementID].ID
		s.movements[w.Update.MovementID] = &stored
	}
	if w.Insert != nil {
		w.Insert.ID = s.nextID()
		stored := cloneMovement(w.Insert)
		s.movements[w.Insert.MovementID] = &stored
	}
	for _, e := range w.Effects {
		a := s.accounts[e.Account]
		a.CurrentBalance = a.CurrentBalance.Add(e.Delta)
	}
	if w.Title != nil {
		t := s.titles[w.Title.TitleID]
		t.Settlement = w.Title.Settlement
		t.PaidAt = cloneDay(w.Title.PaidAt)
	}
	if w.Payable != nil {
		p := s.payables[w.Payable.PayableID]
		p.Settlement = w.Payable.Settlement
		p.PaidAt = cloneDay(w.Payable.PaidAt)
	}
	if w.Reconciliation != nil {
		w.Reconciliation.ID = s.nextID()
		stored := *w.Reconciliation
		s.reconciliations[stored.ReconciliationID] = &stored
	}
	return nil
}

func (s *MemoryDataSource) checkLedgerWrite(w *model.LedgerWrite) error {
	accountsExist := func(m *model.Movement) error {
		for _, ref := range m.Accounts() {
			if _, ok := s.accounts[ref]; !ok {
				return notFound("account", ref.String())
			}
		}
		return nil
	}

	if w.Insert != nil {
		if _, ok := s.movements[w.Insert.MovementID]; ok {
			return apierror.NewAPIError(apierror.ErrConflict, "movement already exists", nil)
		}
		if err := accountsExist(w.Insert); err != nil {
			return err
		}
	}
	if w.Update != nil {
		if _, ok := s.movements[w.Update.MovementID]; !ok {
			return notFound("movement", w.Update.MovementID)
		}
		if err := accountsExist(w.Update); err != nil {
			return err
		}
	}
	if w.DeleteID != "" {
		if _, ok := s.movements[w.DeleteID]; !ok {
			return notFound("movement", w.DeleteID)
		}
	}
	for _, e := range w.Effects {
		if _, ok := s.accounts[e.Account]; !ok {
			return notFound("account", e.Account.String())
		}
	}
	if w.Title != nil {
		if _, ok := s.titles[w.Title.TitleID]; !ok {
			return notFound("title", w.Title.TitleID)
		}
	}
	if w.Payable != nil {
		if _, ok := s.payables[w.Payable.PayableID]; !ok {
			return notFound("payable", w.Payable.PayableID)
		}
	}
	if w.Reconciliation != nil {
		movementID := w.Reconciliation.MovementID
		_, exists := s.movements[movementID]
		inserted := w.Insert != nil && w.Insert.MovementID == movementID
		if (!exists && !inserted) || movementID == w.DeleteID {
			return notFound("movement", movementID)
		}
		for _, r := range s.reconciliations {
			if r.MovementID == movementID {
				return apierror.NewAPIError(apierror.ErrConflict, "movement already reconciled", nil)
			}
		}
	}
	return nil
}
