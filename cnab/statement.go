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
	"iter"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StatementEntry is one posting decoded from a bank statement file.
type StatementEntry struct {
	Date   time.Time
	Amount decimal.Decimal
	Memo   string
	Line   int
}

const statementMinLength = 160

// StatementEntries lazily decodes postings from a bank statement. Lines shorter
// than 160 characters or without a valid date and amount are skipped. The date is
// read at [143:151] as YYYYMMDD, the amount at [152:167] with two implied
// decimals and the memo at [70:90].
func StatementEntries(text string) iter.Seq[StatementEntry] {
	return func(yield func(StatementEntry) bool) {
		for n, line := range lines(text) {
			line = columns(line)
			if len(line) < statementMinLength {
				continue
			}
			date, err := time.Parse("20060102", line[143:151])
			if err != nil {
				continue
			}
			raw := clip(line, 152, 167)
			if raw == "" || onlyDigits(raw) != raw {
				continue
			}
			cents, err := decimal.NewFromString(raw)
			if err != nil {
				continue
			}
			entry := StatementEntry{
				Date:   date,
				Amount: cents.Shift(-2),
				Memo:   strings.TrimSpace(line[70:90]),
				Line:   n,
			}
			if !yield(entry) {
				return
			}
		}
	}
}

// clip is line[start:end] bounded by the line length.
func clip(line string, start, end int) string {
	if end > len(line) {
		end = len(line)
	}
	if start >= end {
		return ""
	}
	return line[start:end]
}
