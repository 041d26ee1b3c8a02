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

package boleto

import (
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locafin/locafin/model"
)

func testRouting() model.BankRouting {
	return model.BankRouting{BankCode: "001", Agency: "1234-5", Number: "56789-0", Wallet: "17"}
}

func TestMod10(t *testing.T) {
	tests := []struct {
		number string
		want   string
	}{
		{"001917123", "0"},
		{"4000000000", "6"},
		{"0100567890", "7"},
		{"", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			assert.Equal(t, tt.want, Mod10(tt.number))
		})
	}
}

func TestMod11(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   string
	}{
		{"barcode composite", "0019959100000100001712340000000000100567890", "2"},
		{"all zeros maps to one", strings.Repeat("0", 43), "1"},
		{"remainder one maps to one", "1", "9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mod11(tt.number))
		})
	}
}

func TestBarcodeNumber(t *testing.T) {
	barcode, err := BarcodeNumber(Input{
		Bank:           testRouting(),
		TrackingNumber: "0000000001",
		DueDate:        time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Amount:         decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "00192959100000100001712340000000000100567890", barcode)
	assert.Len(t, barcode, BarcodeLength)
}

func TestBarcodeNumber_FallsBackToDocument(t *testing.T) {
	barcode, err := BarcodeNumber(Input{
		Bank:     testRouting(),
		Document: "DOC-77",
		Amount:   decimal.RequireFromString("1234.56"),
	})
	require.NoError(t, err)
	assert.Equal(t, "00191000000001234561712340000000007700567890", barcode)
}

func TestDigitLine(t *testing.T) {
	line, err := DigitLine(Input{
		Bank:           testRouting(),
		TrackingNumber: "0000000001",
		DueDate:        time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Amount:         decimal.RequireFromString("100"),
	})
	require.NoError(t, err)
	assert.Equal(t, "00191.71230 40000.000006 01005.678907 2 95910000010000", line)
	assert.Len(t, strings.NewReplacer(".", "", " ", "").Replace(line), DigitLineDigits)
}

func TestDigitLine_ChecksumsHoldForRandomSlips(t *testing.T) {
	faker := gofakeit.New(42)
	for i := 0; i < 200; i++ {
		in := Input{
			Bank: model.BankRouting{
				BankCode: faker.Numerify("###"),
				Agency:   faker.Numerify("####-#"),
				Number:   faker.Numerify("#####-#"),
				Wallet:   faker.RandomString([]string{"17", "11", "31", "51", ""}),
			},
			TrackingNumber: faker.Numerify("##########"),
			DueDate:        faker.DateRange(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
			Amount:         decimal.NewFromFloat(faker.Price(0.01, 99999)).Round(2),
		}
		line, err := DigitLine(in)
		require.NoError(t, err)

		groups := strings.Fields(line)
		require.Len(t, groups, 5)
		for _, g := range groups[:3] {
			raw := strings.ReplaceAll(g, ".", "")
			assert.Equal(t, raw[len(raw)-1:], Mod10(raw[:len(raw)-1]), "field %s of %s", g, line)
		}

		barcode, err := BarcodeNumber(in)
		require.NoError(t, err)
		assert.Equal(t, barcode[4:5], Mod11(barcode[:4]+barcode[5:]))
		assert.Equal(t, groups[3], barcode[4:5])

		back, err := BarcodeFromDigitLine(line)
		require.NoError(t, err)
		assert.Equal(t, barcode, back)
	}
}

func TestValidateDigitLine(t *testing.T) {
	assert.NoError(t, ValidateDigitLine("00191.71230 40000.000006 01005.678907 2 95910000010000"))
	assert.ErrorIs(t, ValidateDigitLine("00191.71231 40000.000006 01005.678907 2 95910000010000"), ErrCheckDigit)
	assert.ErrorIs(t, ValidateDigitLine("00191.71230 40000.000006 01005.678907 3 95910000010000"), ErrCheckDigit)
	assert.ErrorIs(t, ValidateDigitLine("00191.71230 40000.000006"), ErrMalformedLine)
	assert.ErrorIs(t, ValidateDigitLine("0019A.71230 40000.000006 01005.678907 2 95910000010000"), ErrMalformedLine)
}

func TestDueFactor(t *testing.T) {
	tests := []struct {
		name string
		due  time.Time
		want string
	}{
		{"no date", time.Time{}, "0000"},
		{"base date", time.Date(1997, 10, 7, 0, 0, 0, 0, time.UTC), "0000"},
		{"before base", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), "0000"},
		{"last four digit day", time.Date(2025, 2, 21, 0, 0, 0, 0, time.UTC), "9999"},
		{"rollover truncates", time.Date(2025, 2, 22, 0, 0, 0, 0, time.UTC), "1000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DueFactor(tt.due))
		})
	}
}

func TestFreeField(t *testing.T) {
	assert.Equal(t, "1712340000000000100567890", FreeField(testRouting(), "0000000001", ""))

	noWallet := testRouting()
	noWallet.Wallet = ""
	assert.Equal(t, "17", FreeField(noWallet, "1", "")[:2])

	longTracking := FreeField(testRouting(), "123456789012345", "")
	assert.Len(t, longTracking, 25)
	assert.Equal(t, "12345678901", longTracking[6:17])
}

func TestBarcodeNumber_Errors(t *testing.T) {
	_, err := BarcodeNumber(Input{Bank: model.BankRouting{}, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrMissingBankCode)

	_, err = BarcodeNumber(Input{Bank: testRouting(), Amount: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = BarcodeNumber(Input{Bank: testRouting(), Amount: decimal.RequireFromString("100000000.00")})
	assert.ErrorIs(t, err, ErrAmountOverflow)
}
