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
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locafin/locafin/model"
)

var generatedAt = time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)

func testCompany() model.Company {
	return model.Company{Name: "Imobiliária Exemplo Ltda", Document: "12.345.678/0001-90"}
}

func testBankAccount() model.Account {
	return model.Account{
		AccountID: "acc_bank",
		Kind:      model.AccountKindBank,
		Name:      "Conta Cobrança",
		Bank: &model.BankRouting{
			BankCode:     "001",
			BankName:     "Banco do Brasil",
			Agency:       "1234-5",
			Number:       "56789-0",
			Wallet:       "17",
			Covenant:     "1234567",
			InterestRate: decimal.RequireFromString("3"),
			FinePercent:  decimal.RequireFromString("2"),
			ProtestDays:  5,
		},
	}
}

func testTitle(id int64, amount string) model.Title {
	title := model.Title{
		ID:             id,
		TitleID:        gofakeit.UUID(),
		TrackingNumber: (&model.Title{ID: id}).DefaultTrackingNumber(),
		DueDate:        time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC),
		Debtor: model.Party{
			Name:     "José da Conceição",
			Document: "123.456.789-01",
			Address:  "Rua das Flores, 100",
			District: "Centro",
			City:     "São Paulo",
			State:    "SP",
			ZipCode:  "01234-567",
		},
		Settlement: model.NewSettlement(decimal.RequireFromString(amount)),
	}
	return title
}

func writeLines(t *testing.T, titles ...model.Title) []string {
	t.Helper()
	w := NewWriter(testCompany(), testBankAccount(), WithGeneratedAt(generatedAt), WithFileSequence(7))
	content, err := w.Write(titles)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(content, LineBreak))
	return strings.Split(strings.TrimSuffix(content, LineBreak), LineBreak)
}

func TestWriter_RecordStructure(t *testing.T) {
	lines := writeLines(t, testTitle(1, "100.00"), testTitle(2, "250.50"))

	require.Len(t, lines, 2*3+4)
	for i, line := range lines {
		assert.Len(t, line, RecordLength, "line %d", i+1)
		for _, r := range line {
			assert.Less(t, r, rune(128), "line %d must be ASCII", i+1)
		}
	}

	assert.Equal(t, "00100000", lines[0][:8])
	assert.Equal(t, "00100011R01", lines[1][:11])
	assert.Equal(t, []string{"P", "Q", "R", "P", "Q", "R"}, []string{
		lines[2][13:14], lines[3][13:14], lines[4][13:14], lines[5][13:14], lines[6][13:14], lines[7][13:14],
	})
	for i, line := range lines[2:8] {
		assert.Equal(t, "0010001"+"3", line[:8])
		assert.Equal(t, EncodeNumeric(string(rune('1'+i)), 5), line[8:13])
	}
	assert.Equal(t, "00100015", lines[8][:8])
	assert.Equal(t, "00199999", lines[9][:8])
}

func TestWriter_FileHeader(t *testing.T) {
	header := writeLines(t, testTitle(1, "100"))[0]

	assert.Equal(t, "2", header[17:18])
	assert.Equal(t, "12345678000190", header[18:32])
	assert.Equal(t, "01234", header[52:57])
	assert.Equal(t, "5", header[57:58])
	assert.Equal(t, "000000056789", header[58:70])
	assert.Equal(t, "0", header[70:71])
	assert.Equal(t, "IMOBILIARIA EXEMPLO LTDA      ", header[72:102])
	assert.Equal(t, "15032024", header[143:151])
	assert.Equal(t, "103045", header[151:157])
	assert.Equal(t, "000007", header[157:163])
}

func TestWriter_SegmentP(t *testing.T) {
	p := writeLines(t, testTitle(42, "300.00"))[2]

	assert.Equal(t, "0000000042          ", p[37:57])
	assert.Equal(t, "7", p[57:58])
	assert.Equal(t, "10042024", p[77:85])
	assert.Equal(t, "000000000030000", p[85:100])
	assert.Equal(t, "1", p[117:118], "interest code per day")
	assert.Equal(t, "11042024", p[118:126], "interest starts the day after due")
	assert.Equal(t, "000000000000030", p[126:141], "300 at 3 percent a month over 30 days")
	assert.Equal(t, "1", p[220:221], "protest in calendar days")
	assert.Equal(t, "05", p[221:223])
}

func TestWriter_SegmentQ(t *testing.T) {
	q := writeLines(t, testTitle(1, "100"))[3]

	assert.Equal(t, "1", q[17:18])
	assert.Equal(t, "000012345678901", q[18:33])
	assert.Equal(t, "JOSE DA CONCEICAO", strings.TrimSpace(q[33:73]))
	assert.Equal(t, "RUA DAS FLORES  100", strings.TrimSpace(q[73:113]))
	assert.Equal(t, "01234", q[128:133])
	assert.Equal(t, "567", q[133:136])
	assert.Equal(t, "SAO PAULO", strings.TrimSpace(q[136:151]))
	assert.Equal(t, "SP", q[151:153])
}

func TestWriter_SegmentR(t *testing.T) {
	r := writeLines(t, testTitle(1, "100"))[4]

	assert.Equal(t, "2", r[65:66])
	assert.Equal(t, "11042024", r[66:74])
	assert.Equal(t, "000000000000200", r[74:89])
}

func TestWriter_LotTrailerSumsRoundedAmounts(t *testing.T) {
	var titles []model.Title
	for i, raw := range []string{"10.005", "10.005", "0.015"} {
		title := testTitle(int64(i+1), "1")
		title.Expected = decimal.RequireFromString(raw)
		titles = append(titles, title)
	}
	lines := writeLines(t, titles...)
	trailer := lines[len(lines)-2]

	assert.Equal(t, "000011", trailer[17:23], "lot header + 9 segments + lot trailer")
	assert.Equal(t, "000003", trailer[23:29])
	assert.Equal(t, "00000000000002004", trailer[29:46], "10.01 + 10.01 + 0.02, not round(20.025)")
	assert.Equal(t, "000000000001001", lines[2][85:100])

	fileTrailer := lines[len(lines)-1]
	assert.Equal(t, "000001", fileTrailer[17:23])
	assert.Equal(t, "000013", fileTrailer[23:29])
}

func TestWriter_Errors(t *testing.T) {
	w := NewWriter(testCompany(), testBankAccount())
	_, err := w.Write(nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	cash := testBankAccount()
	cash.Kind = model.AccountKindCash
	_, err = NewWriter(testCompany(), cash).Write([]model.Title{testTitle(1, "10")})
	var encErr *EncodingError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, "account.bank", encErr.Field)

	noAgency := testBankAccount()
	noAgency.Bank.Agency = ""
	_, err = NewWriter(testCompany(), noAgency).Write([]model.Title{testTitle(1, "10")})
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, "account.bank.agency", encErr.Field)

	_, err = NewWriter(model.Company{Name: "X"}, testBankAccount()).Write([]model.Title{testTitle(1, "10")})
	require.True(t, errors.As(err, &encErr))

	untracked := testTitle(2, "10")
	untracked.TrackingNumber = ""
	content, err := w.Write([]model.Title{testTitle(1, "10"), untracked})
	require.True(t, errors.As(err, &encErr))
	assert.Empty(t, content, "no partial remittance")
}

func TestWriter_RoundTripThroughReader(t *testing.T) {
	faker := gofakeit.New(7)
	var titles []model.Title
	for i := 0; i < 25; i++ {
		amount := decimal.NewFromFloat(faker.Price(1, 50000)).Round(2)
		titles = append(titles, testTitle(int64(i+1), amount.String()))
	}
	w := NewWriter(testCompany(), testBankAccount())
	content, err := w.Write(titles)
	require.NoError(t, err)

	var got []PaidTitle
	for paid := range PaidTitles(content) {
		got = append(got, paid)
	}
	require.Len(t, got, len(titles))
	for i, paid := range got {
		assert.Equal(t, titles[i].TrackingNumber, paid.TrackingNumber)
		assert.True(t, titles[i].Expected.Equal(paid.Amount), "title %d: %s != %s", i, titles[i].Expected, paid.Amount)
		assert.Equal(t, "P", paid.Segment)
	}
}
