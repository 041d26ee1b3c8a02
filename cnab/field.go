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
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RecordLength is the fixed width of every CNAB240 record.
const RecordLength = 240

// Kind selects the primitive encoder used for a field.
type Kind int

const (
	Numeric Kind = iota
	Alpha
	Decimal
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Alpha:
		return "alpha"
	case Decimal:
		return "decimal"
	}
	return "unknown"
}

// Field describes one fixed-width field of a record. Value reads the field's
// source from the record being built; a nil Value encodes the zero value
// (zeros for numeric fields, spaces for alpha ones).
type Field struct {
	Name   string
	Width  int
	Kind   Kind
	Places int
	Value  func(r *record) any
}

// Layout is an ordered list of fields whose widths add up to RecordLength.
type Layout struct {
	Name   string
	Fields []Field
}

// Width is the sum of the field widths.
func (l Layout) Width() int {
	total := 0
	for _, f := range l.Fields {
		total += f.Width
	}
	return total
}

// Offset returns the zero-based start of the named field, or -1.
func (l Layout) Offset(name string) int {
	pos := 0
	for _, f := range l.Fields {
		if f.Name == name {
			return pos
		}
		pos += f.Width
	}
	return -1
}

func mustLayout(name string, fields ...Field) Layout {
	l := Layout{Name: name, Fields: fields}
	if w := l.Width(); w != RecordLength {
		panic(fmt.Sprintf("cnab: layout %s is %d characters wide", name, w))
	}
	return l
}

// encode renders one record from the layout.
func (l Layout) encode(r *record) (string, error) {
	var b strings.Builder
	b.Grow(RecordLength)
	for _, f := range l.Fields {
		var v any
		if f.Value != nil {
			v = f.Value(r)
		}
		s, err := f.encode(v)
		if err != nil {
			return "", &EncodingError{Record: l.Name, Field: f.Name, Err: err}
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func (f Field) encode(v any) (string, error) {
	switch f.Kind {
	case Numeric:
		s, err := numericSource(v)
		if err != nil {
			return "", err
		}
		return EncodeNumeric(s, f.Width), nil
	case Alpha:
		s, err := alphaSource(v)
		if err != nil {
			return "", err
		}
		return EncodeAlpha(s, f.Width), nil
	case Decimal:
		var amount decimal.Decimal
		switch t := v.(type) {
		case nil:
		case decimal.Decimal:
			amount = t
		default:
			return "", fmt.Errorf("unsupported decimal source %T", v)
		}
		places := f.Places
		if places == 0 {
			places = 2
		}
		return EncodeDecimal(amount, f.Width, places)
	}
	return "", fmt.Errorf("unknown field kind %d", f.Kind)
}

func numericSource(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case time.Time:
		return formatDate(t), nil
	}
	return "", fmt.Errorf("unsupported numeric source %T", v)
}

func alphaSource(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	}
	return "", fmt.Errorf("unsupported alpha source %T", v)
}

// formatDate renders DDMMYYYY, or zeros for the zero time.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "00000000"
	}
	return t.Format("02012006")
}

// EncodeNumeric keeps the digits of value, right-justifies them and pads with
// zeros. A value wider than the field keeps its least significant digits.
func EncodeNumeric(value string, width int) string {
	digits := onlyDigits(value)
	if len(digits) > width {
		return digits[len(digits)-width:]
	}
	return strings.Repeat("0", width-len(digits)) + digits
}

var disallowedAlpha = regexp.MustCompile(`[^A-Z0-9 /\-.]`)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// EncodeAlpha upper-cases value, strips diacritics, maps commas and any other
// character outside [A-Z0-9 /-.] to spaces, then left-justifies it in width.
func EncodeAlpha(value string, width int) string {
	plain, _, err := transform.String(stripMarks, value)
	if err != nil {
		plain = value
	}
	plain = strings.ToUpper(plain)
	plain = disallowedAlpha.ReplaceAllString(plain, " ")
	if len(plain) > width {
		return plain[:width]
	}
	return plain + strings.Repeat(" ", width-len(plain))
}

// EncodeDecimal scales amount by places with round-half-up and renders it as a
// zero-padded integer with an implicit decimal point. Amounts that do not fit
// are an error rather than being truncated.
func EncodeDecimal(amount decimal.Decimal, width, places int) (string, error) {
	if amount.IsNegative() {
		return "", fmt.Errorf("negative amount %s", amount)
	}
	scaled := amount.Round(int32(places)).Shift(int32(places)).String()
	if len(scaled) > width {
		return "", fmt.Errorf("amount %s does not fit in %d digits", amount, width)
	}
	return strings.Repeat("0", width-len(scaled)) + scaled, nil
}

// SplitRouting splits a raw agency or account value on a trailing "-d" or "/d"
// check digit suffix: "1234-5" gives ("1234", "5"). Without a suffix the whole
// value is the number and the check digit is empty.
func SplitRouting(raw string) (number, digit string) {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndexAny(raw, "-/"); i >= 0 && i < len(raw)-1 {
		suffix := raw[i+1:]
		if len(suffix) == 1 {
			return onlyDigits(raw[:i]), strings.ToUpper(suffix)
		}
	}
	return onlyDigits(raw), ""
}

func onlyDigits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
