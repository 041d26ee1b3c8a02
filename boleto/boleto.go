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

// Package boleto derives the numeric fields of a collection slip: the 44 digit
// barcode number and the 47 digit "linha digitavel".
package boleto

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/locafin/locafin/model"
)

const (
	// CurrencyReal is the currency marker for BRL.
	CurrencyReal = "9"
	// DefaultWallet is used when the account has no collection wallet configured.
	DefaultWallet = "17"

	BarcodeLength   = 44
	DigitLineDigits = 47
)

// factorBase is the day the due-date factor counts from.
var factorBase = time.Date(1997, time.October, 7, 0, 0, 0, 0, time.UTC)

var (
	ErrMissingBankCode = errors.New("boleto: bank code is required")
	ErrNegativeAmount  = errors.New("boleto: amount must not be negative")
	ErrAmountOverflow  = errors.New("boleto: amount does not fit in 10 digits")
	ErrMalformedLine   = errors.New("boleto: malformed digit line")
	ErrCheckDigit      = errors.New("boleto: check digit mismatch")
)

// Input is everything a slip's numbers are derived from.
type Input struct {
	Bank           model.BankRouting
	TrackingNumber string
	// Document is used for the tracking part of the free field when
	// TrackingNumber has no digits.
	Document string
	// DueDate may be zero, which renders the factor as "0000".
	DueDate time.Time
	Amount  decimal.Decimal
}

// span is a half-open range of positions in the 44 digit barcode.
type span struct {
	name       string
	start, end int
}

func (s span) of(barcode string) string { return barcode[s.start:s.end] }

// barcodeLayout is the single source of truth for where each field sits in the
// barcode; DigitLine reads its groups out of the barcode through the same spans.
var barcodeLayout = []span{
	{"bank", 0, 3},
	{"currency", 3, 4},
	{"dv", 4, 5},
	{"factor", 5, 9},
	{"amount", 9, 19},
	{"free", 19, 44},
}

const dvPosition = 4

func layoutSpan(name string) span {
	for _, s := range barcodeLayout {
		if s.name == name {
			return s
		}
	}
	panic("boleto: unknown layout field " + name)
}

// digitLineGroups lists, for each printed group, the barcode ranges it is built from
// and whether it carries its own mod10 digit.
var digitLineGroups = []struct {
	parts   []span
	checked bool
}{
	{parts: []span{layoutSpan("bank"), layoutSpan("currency"), {"free", 19, 24}}, checked: true},
	{parts: []span{{"free", 24, 34}}, checked: true},
	{parts: []span{{"free", 34, 44}}, checked: true},
	{parts: []span{layoutSpan("dv")}},
	{parts: []span{layoutSpan("factor"), layoutSpan("amount")}},
}

// BarcodeNumber returns the 44 digit number encoded in the slip's barcode.
func BarcodeNumber(in Input) (string, error) {
	fields, err := compose(in)
	if err != nil {
		return "", err
	}
	var partial strings.Builder
	for _, s := range barcodeLayout {
		if s.name == "dv" {
			continue
		}
		partial.WriteString(fields[s.name])
	}
	base := partial.String()
	barcode := base[:dvPosition] + Mod11(base) + base[dvPosition:]
	if len(barcode) != BarcodeLength {
		return "", fmt.Errorf("boleto: barcode has %d digits", len(barcode))
	}
	return barcode, nil
}

// DigitLine returns the formatted "linha digitavel", e.g.
// "00190.00009 01234.567890 12345.678901 2 12340000010000".
func DigitLine(in Input) (string, error) {
	barcode, err := BarcodeNumber(in)
	if err != nil {
		return "", err
	}
	return DigitLineFromBarcode(barcode)
}

// DigitLineFromBarcode formats a 44 digit barcode number as a digit line.
func DigitLineFromBarcode(barcode string) (string, error) {
	if len(barcode) != BarcodeLength || !isDigits(barcode) {
		return "", ErrMalformedLine
	}
	groups := make([]string, 0, len(digitLineGroups))
	for _, g := range digitLineGroups {
		var b strings.Builder
		for _, p := range g.parts {
			b.WriteString(p.of(barcode))
		}
		group := b.String()
		if g.checked {
			group = group[:5] + "." + group[5:] + Mod10(group)
		}
		groups = append(groups, group)
	}
	return strings.Join(groups, " "), nil
}

// BarcodeFromDigitLine rebuilds the barcode number from a digit line, verifying
// the three field check digits and the general check digit.
func BarcodeFromDigitLine(line string) (string, error) {
	groups := strings.Fields(line)
	if len(groups) != len(digitLineGroups) {
		return "", ErrMalformedLine
	}
	barcode := make([]byte, BarcodeLength)
	for i, g := range digitLineGroups {
		raw := strings.ReplaceAll(groups[i], ".", "")
		if !isDigits(raw) {
			return "", ErrMalformedLine
		}
		if g.checked {
			if len(raw) < 2 {
				return "", ErrMalformedLine
			}
			body, dv := raw[:len(raw)-1], raw[len(raw)-1:]
			if Mod10(body) != dv {
				return "", fmt.Errorf("%w in field %d", ErrCheckDigit, i+1)
			}
			raw = body
		}
		want := 0
		for _, p := range g.parts {
			want += p.end - p.start
		}
		if len(raw) != want {
			return "", ErrMalformedLine
		}
		offset := 0
		for _, p := range g.parts {
			copy(barcode[p.start:p.end], raw[offset:offset+p.end-p.start])
			offset += p.end - p.start
		}
	}
	out := string(barcode)
	if Mod11(out[:dvPosition]+out[dvPosition+1:]) != out[dvPosition:dvPosition+1] {
		return "", fmt.Errorf("%w in general digit", ErrCheckDigit)
	}
	return out, nil
}

// ValidateDigitLine checks every check digit carried by a digit line.
func ValidateDigitLine(line string) error {
	_, err := BarcodeFromDigitLine(line)
	return err
}

// DueFactor is the number of days between 1997-10-07 and the due date, floored
// at zero and rendered in four digits. A zero date renders "0000".
func DueFactor(due time.Time) string {
	if due.IsZero() {
		return "0000"
	}
	days := model.DaysBetween(factorBase, due)
	if days < 0 {
		days = 0
	}
	return fmt.Sprintf("%04d", days)[:4]
}

// FreeField builds the 25 digit bank-defined field: wallet(2) agency(4)
// tracking(11) account(8).
func FreeField(bank model.BankRouting, tracking, document string) string {
	wallet := Digits(bank.Wallet)
	if wallet == "" {
		wallet = DefaultWallet
	}
	nosso := Digits(tracking)
	if nosso == "" {
		nosso = Digits(document)
	}
	field := fit(wallet, 2) + fit(Digits(bank.Agency), 4) + fit(nosso, 11) + fit(Digits(bank.Number), 8)
	if len(field) > 25 {
		field = field[:25]
	}
	return field + strings.Repeat("0", 25-len(field))
}

func compose(in Input) (map[string]string, error) {
	bank := Digits(in.Bank.BankCode)
	if bank == "" {
		return nil, ErrMissingBankCode
	}
	cents, err := amountField(in.Amount)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"bank":     fit(bank, 3),
		"currency": CurrencyReal,
		"factor":   DueFactor(in.DueDate),
		"amount":   cents,
		"free":     FreeField(in.Bank, in.TrackingNumber, in.Document),
	}, nil
}

func amountField(amount decimal.Decimal) (string, error) {
	if amount.IsNegative() {
		return "", ErrNegativeAmount
	}
	cents := amount.Shift(2).Round(0)
	s := cents.String()
	if len(s) > 10 {
		return "", ErrAmountOverflow
	}
	return strings.Repeat("0", 10-len(s)) + s, nil
}

// fit truncates to the first n digits and left-pads with zeros.
func fit(digits string, n int) string {
	if len(digits) > n {
		digits = digits[:n]
	}
	return strings.Repeat("0", n-len(digits)) + digits
}

// Digits keeps only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
