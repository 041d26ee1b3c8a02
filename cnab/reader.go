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
	"bytes"
	"io"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// PaidTitle is one settlement decoded from a return file.
type PaidTitle struct {
	TrackingNumber string
	Amount         decimal.Decimal
	Segment        string
	Line           int
}

// segmentOffsets locates the tracking number and amount within a detail segment.
// Segment P uses the remittance layout; segment T, which only appears in return
// files, stores the amount four positions earlier.
var segmentOffsets = map[byte]struct {
	trackingStart, trackingEnd int
	amountStart, amountEnd     int
}{
	'P': {37, 57, 85, 100},
	'T': {37, 57, 81, 96},
}

const (
	recordTypeOffset = 7
	segmentOffset    = 13
)

// SkipFunc is notified of every line the decoder ignores.
type SkipFunc func(line int, reason string)

// PaidTitles lazily decodes (tracking number, amount) pairs from a return file.
// Each call to the returned sequence scans text again from the start. Lines that
// are not 240 characters, are not P or T detail segments, or carry a non-numeric
// amount are skipped without error.
func PaidTitles(text string) iter.Seq[PaidTitle] {
	return PaidTitlesWithSkip(text, nil)
}

// PaidTitlesWithSkip is PaidTitles with a callback for skipped lines.
func PaidTitlesWithSkip(text string, onSkip SkipFunc) iter.Seq[PaidTitle] {
	skip := func(line int, reason string) {
		if onSkip != nil {
			onSkip(line, reason)
		}
	}
	return func(yield func(PaidTitle) bool) {
		for n, line := range lines(text) {
			if strings.TrimSpace(line) == "" {
				continue
			}
			line = columns(line)
			if len(line) != RecordLength {
				skip(n, "short line")
				continue
			}
			if line[recordTypeOffset:recordTypeOffset+1] != recordDetail {
				continue
			}
			off, ok := segmentOffsets[line[segmentOffset]]
			if !ok {
				continue
			}
			tracking := strings.TrimSpace(line[off.trackingStart:off.trackingEnd])
			raw := line[off.amountStart:off.amountEnd]
			if tracking == "" {
				skip(n, "missing tracking number")
				continue
			}
			if onlyDigits(raw) != raw {
				skip(n, "non-numeric amount")
				continue
			}
			cents, err := decimal.NewFromString(raw)
			if err != nil {
				skip(n, "non-numeric amount")
				continue
			}
			paid := PaidTitle{
				TrackingNumber: tracking,
				Amount:         cents.Shift(-2),
				Segment:        string(line[segmentOffset]),
				Line:           n,
			}
			if !yield(paid) {
				return
			}
		}
	}
}

// lines yields each line with its 1-based number, accepting LF or CRLF.
func lines(text string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		n := 0
		for len(text) > 0 {
			n++
			line := text
			if i := strings.IndexByte(text, '\n'); i >= 0 {
				line, text = text[:i], text[i+1:]
			} else {
				text = ""
			}
			if !yield(n, strings.TrimSuffix(line, "\r")) {
				return
			}
		}
	}
}

// columns replaces every non-ASCII rune with '?' so byte offsets match
// character positions.
func columns(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] >= utf8.RuneSelf {
			var b strings.Builder
			for _, r := range line {
				if r >= utf8.RuneSelf {
					b.WriteByte('?')
					continue
				}
				b.WriteRune(r)
			}
			return b.String()
		}
	}
	return line
}

// ReadFile reads a bank file. Content that is not valid UTF-8 is decoded as
// ISO-8859-1, the encoding banks usually emit.
func ReadFile(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := io.ReadAll(charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(raw)))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
