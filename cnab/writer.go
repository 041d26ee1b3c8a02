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

package cnab

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/locafin/locafin/model"
)

// LineBreak terminates every record of a generated file.
const LineBreak = "\r\n"

// segmentsPerTitle is the number of detail records (P, Q, R) written per title.
const segmentsPerTitle = 3

// Writer encodes collection-slip remittance files for one company and bank account.
// A Writer holds no mutable state and may be shared between goroutines.
type Writer struct {
	company  model.Company
	account  model.Account
	sequence int
	now      func() time.Time
}

// Option configures a Writer.
type Option func(*Writer)

// WithFileSequence sets the remittance sequence number written in the headers.
func WithFileSequence(sequence int) Option {
	return func(w *Writer) { w.sequence = sequence }
}

// WithGeneratedAt fixes the generation timestamp written in the headers.
func WithGeneratedAt(t time.Time) Option {
	return func(w *Writer) { w.now = func() time.Time { return t } }
}

func NewWriter(company model.Company, account model.Account, opts ...Option) *Writer {
	w := &Writer{company: company, account: account, sequence: 1, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// batch is the state shared by every record of one file.
type batch struct {
	company     model.Company
	routing     model.BankRouting
	bankCode    string
	agency      string
	agencyDV    string
	account     string
	accountDV   string
	sequence    int
	generatedAt time.Time
	count       int
	total       decimal.Decimal
}

func (b *batch) lotRecords() int {
	return b.count*segmentsPerTitle + 2
}

// record is the source every field accessor reads from.
type record struct {
	batch  *batch
	title  *model.Title
	amount decimal.Decimal
	seq    int
}

func (r *record) issuedAt() time.Time {
	if r.title.IssuedAt.IsZero() {
		return r.batch.generatedAt
	}
	return r.title.IssuedAt
}

func (r *record) hasInterest() bool {
	return r.batch.routing.InterestRate.IsPositive()
}

func (r *record) interestCode() string {
	if r.hasInterest() {
		return "1"
	}
	return "3"
}

// interestDate is the day after the due date, when interest starts to accrue.
func (r *record) interestDate() time.Time {
	if !r.hasInterest() {
		return time.Time{}
	}
	return model.AddDays(r.title.DueDate, 1)
}

func (r *record) interestPerDay() decimal.Decimal {
	return InterestPerDay(r.amount, r.batch.routing.InterestRate)
}

func (r *record) interestMessage() string {
	if !r.hasInterest() {
		return ""
	}
	perDay := model.RoundMoney(r.interestPerDay())
	return fmt.Sprintf("APOS VENCIMENTO JUROS DE R$ %s AO DIA", perDay.StringFixed(2))
}

func (r *record) discountCode() string {
	if r.title.Discount.IsPositive() {
		return "1"
	}
	return "0"
}

func (r *record) discountDate() time.Time {
	if !r.title.Discount.IsPositive() {
		return time.Time{}
	}
	return r.title.DueDate
}

func (r *record) fineCode() string {
	if r.batch.routing.FinePercent.IsPositive() {
		return "2"
	}
	return "0"
}

func (r *record) fineDate() time.Time {
	if !r.batch.routing.FinePercent.IsPositive() {
		return time.Time{}
	}
	return model.AddDays(r.title.DueDate, 1)
}

func (r *record) protestCode() string {
	if r.batch.routing.ProtestDays > 0 {
		return "1"
	}
	return "3"
}

// Write encodes titles into a complete CNAB240 file: file header, lot header,
// segments P, Q and R per title, lot trailer and file trailer. Nothing is
// returned unless every record encodes.
func (w *Writer) Write(titles []model.Title) (string, error) {
	if len(titles) == 0 {
		return "", ErrEmptyBatch
	}
	b, err := w.newBatch()
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(titles)*segmentsPerTitle+4)
	emit := func(l Layout, r *record) error {
		line, err := l.encode(r)
		if err != nil {
			return err
		}
		if len(line) != RecordLength {
			return &EncodingError{Record: l.Name, Err: fmt.Errorf("record is %d characters", len(line))}
		}
		lines = append(lines, line)
		return nil
	}

	header := &record{batch: b}
	if err := emit(fileHeaderLayout, header); err != nil {
		return "", err
	}
	if err := emit(lotHeaderLayout, header); err != nil {
		return "", err
	}

	seq := 0
	for i := range titles {
		t := &titles[i]
		if err := validateTitle(t); err != nil {
			return "", err
		}
		amount := model.RoundMoney(t.Expected)
		for _, l := range []Layout{segmentPLayout, segmentQLayout, segmentRLayout} {
			seq++
			if err := emit(l, &record{batch: b, title: t, amount: amount, seq: seq}); err != nil {
				return "", err
			}
		}
		b.count++
		b.total = b.total.Add(amount)
	}

	if err := emit(lotTrailerLayout, header); err != nil {
		return "", err
	}
	if err := emit(fileTrailerLayout, header); err != nil {
		return "", err
	}
	return strings.Join(lines, LineBreak) + LineBreak, nil
}

func (w *Writer) newBatch() (*batch, error) {
	if w.account.Kind != model.AccountKindBank || w.account.Bank == nil {
		return nil, missing("account.bank")
	}
	routing := *w.account.Bank
	bankCode := onlyDigits(routing.BankCode)
	if bankCode == "" {
		return nil, missing("account.bank.bank_code")
	}
	agency, agencyDV := SplitRouting(routing.Agency)
	if agency == "" {
		return nil, missing("account.bank.agency")
	}
	number, numberDV := SplitRouting(routing.Number)
	if number == "" {
		return nil, missing("account.bank.number")
	}
	if onlyDigits(w.company.Document) == "" {
		return nil, missing("company.document")
	}
	if strings.TrimSpace(w.company.Name) == "" {
		return nil, missing("company.name")
	}
	return &batch{
		company:     w.company,
		routing:     routing,
		bankCode:    bankCode,
		agency:      agency,
		agencyDV:    agencyDV,
		account:     number,
		accountDV:   numberDV,
		sequence:    w.sequence,
		generatedAt: w.now(),
		total:       decimal.Zero,
	}, nil
}

func validateTitle(t *model.Title) error {
	var err error
	switch {
	case strings.TrimSpace(t.TrackingNumber) == "":
		err = errors.New("tracking number is required")
	case t.DueDate.IsZero():
		err = errors.New("due date is required")
	case !t.Expected.IsPositive():
		err = errors.New("amount must be greater than zero")
	case strings.TrimSpace(t.Debtor.Name) == "":
		err = errors.New("debtor name is required")
	}
	if err != nil {
		return &EncodingError{Record: "title", Field: t.TitleID, Err: err}
	}
	return nil
}
