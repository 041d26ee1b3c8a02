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
	"github.com/shopspring/decimal"
)

// Record type markers at position 8.
const (
	recordFileHeader  = "0"
	recordLotHeader   = "1"
	recordDetail      = "3"
	recordLotTrailer  = "5"
	recordFileTrailer = "9"
)

const (
	lotNumber   = "0001"
	fileLot     = "0000"
	trailerLot  = "9999"
	fileVersion = "103"
	lotVersion  = "060"
)

func constant(s string) func(*record) any { return func(*record) any { return s } }

func bankCode(r *record) any { return r.batch.bankCode }

var (
	fBank       = Field{Name: "bank_code", Width: 3, Kind: Numeric, Value: bankCode}
	fLot        = Field{Name: "lot", Width: 4, Kind: Numeric, Value: constant(lotNumber)}
	fDetail     = Field{Name: "record_type", Width: 1, Kind: Numeric, Value: constant(recordDetail)}
	fSeq        = Field{Name: "sequence", Width: 5, Kind: Numeric, Value: func(r *record) any { return r.seq }}
	fMovement   = Field{Name: "movement_code", Width: 2, Kind: Numeric, Value: constant("01")}
	fAgency     = Field{Name: "agency", Width: 5, Kind: Numeric, Value: func(r *record) any { return r.batch.agency }}
	fAgencyDV   = Field{Name: "agency_dv", Width: 1, Kind: Alpha, Value: func(r *record) any { return r.batch.agencyDV }}
	fAccount    = Field{Name: "account", Width: 12, Kind: Numeric, Value: func(r *record) any { return r.batch.account }}
	fAccountDV  = Field{Name: "account_dv", Width: 1, Kind: Alpha, Value: func(r *record) any { return r.batch.accountDV }}
	fRoutingDV  = Field{Name: "agency_account_dv", Width: 1, Kind: Alpha}
	fCompanyDoc = Field{Name: "company_doc_type", Width: 1, Kind: Numeric, Value: func(r *record) any { return documentType(r.batch.company.Document) }}
	fCovenant   = Field{Name: "covenant", Width: 20, Kind: Alpha, Value: func(r *record) any { return r.batch.routing.Covenant }}
	fCompany    = Field{Name: "company_name", Width: 30, Kind: Alpha, Value: func(r *record) any { return r.batch.company.Name }}
)

func blank(name string, width int) Field {
	return Field{Name: name, Width: width, Kind: Alpha}
}

func zeros(name string, width int) Field {
	return Field{Name: name, Width: width, Kind: Numeric}
}

var fileHeaderLayout = mustLayout("file_header",
	fBank,
	Field{Name: "lot", Width: 4, Kind: Numeric, Value: constant(fileLot)},
	Field{Name: "record_type", Width: 1, Kind: Numeric, Value: constant(recordFileHeader)},
	blank("febraban_1", 9),
	fCompanyDoc,
	Field{Name: "company_document", Width: 14, Kind: Numeric, Value: func(r *record) any { return r.batch.company.Document }},
	fCovenant,
	fAgency, fAgencyDV, fAccount, fAccountDV, fRoutingDV,
	fCompany,
	Field{Name: "bank_name", Width: 30, Kind: Alpha, Value: func(r *record) any { return r.batch.routing.BankName }},
	blank("febraban_2", 10),
	Field{Name: "file_code", Width: 1, Kind: Numeric, Value: constant("1")},
	Field{Name: "generated_date", Width: 8, Kind: Numeric, Value: func(r *record) any { return r.batch.generatedAt }},
	Field{Name: "generated_time", Width: 6, Kind: Numeric, Value: func(r *record) any { return r.batch.generatedAt.Format("150405") }},
	Field{Name: "file_sequence", Width: 6, Kind: Numeric, Value: func(r *record) any { return r.batch.sequence }},
	Field{Name: "layout_version", Width: 3, Kind: Numeric, Value: constant(fileVersion)},
	zeros("density", 5),
	blank("bank_reserved", 20),
	blank("company_reserved", 20),
	blank("febraban_3", 29),
)

var lotHeaderLayout = mustLayout("lot_header",
	fBank, fLot,
	Field{Name: "record_type", Width: 1, Kind: Numeric, Value: constant(recordLotHeader)},
	Field{Name: "operation", Width: 1, Kind: Alpha, Value: constant("R")},
	Field{Name: "service", Width: 2, Kind: Numeric, Value: constant("01")},
	blank("febraban_1", 2),
	Field{Name: "layout_version", Width: 3, Kind: Numeric, Value: constant(lotVersion)},
	blank("febraban_2", 1),
	fCompanyDoc,
	Field{Name: "company_document", Width: 15, Kind: Numeric, Value: func(r *record) any { return r.batch.company.Document }},
	fCovenant,
	fAgency, fAgencyDV, fAccount, fAccountDV, fRoutingDV,
	fCompany,
	blank("message_1", 40),
	blank("message_2", 40),
	Field{Name: "remittance_number", Width: 8, Kind: Numeric, Value: func(r *record) any { return r.batch.sequence }},
	Field{Name: "recorded_date", Width: 8, Kind: Numeric, Value: func(r *record) any { return r.batch.generatedAt }},
	zeros("credit_date", 8),
	blank("febraban_3", 33),
)

// Segment P identifies the title. The tracking number sits at [37:57] and the
// amount at [85:100], the offsets the reader uses for segment P.
var segmentPLayout = mustLayout("segment_p",
	fBank, fLot, fDetail, fSeq,
	Field{Name: "segment", Width: 1, Kind: Alpha, Value: constant("P")},
	blank("febraban_1", 1),
	fMovement,
	fAgency, fAgencyDV, fAccount, fAccountDV, fRoutingDV,
	Field{Name: "tracking_number", Width: 20, Kind: Alpha, Value: func(r *record) any { return r.title.TrackingNumber }},
	Field{Name: "wallet", Width: 1, Kind: Numeric, Value: func(r *record) any { return OperationCode(r.batch.routing.Wallet) }},
	Field{Name: "registration", Width: 1, Kind: Numeric, Value: constant("1")},
	Field{Name: "document_type", Width: 1, Kind: Alpha, Value: constant("1")},
	Field{Name: "issuer", Width: 1, Kind: Numeric, Value: constant("2")},
	Field{Name: "distribution", Width: 1, Kind: Alpha, Value: constant("2")},
	Field{Name: "document_number", Width: 15, Kind: Alpha, Value: func(r *record) any { return r.title.TrackingNumber }},
	Field{Name: "due_date", Width: 8, Kind: Numeric, Value: func(r *record) any { return r.title.DueDate }},
	Field{Name: "amount", Width: 15, Kind: Decimal, Value: func(r *record) any { return r.amount }},
	zeros("collecting_agency", 5),
	blank("collecting_agency_dv", 1),
	Field{Name: "species", Width: 2, Kind: Numeric, Value: constant("02")},
	Field{Name: "accepted", Width: 1, Kind: Alpha, Value: constant("N")},
	Field{Name: "issue_date", Width: 8, Kind: Numeric, Value: func(r *record) any { return r.issuedAt() }},
	Field{Name: "interest_code", Width: 1, Kind: Numeric, Value: func(r *record) any { return r.interestCode() }},
	Field{Name: "interest_date", Width: 8, Kind: Numeric, Value: func(r *record) any { return r.interestDate() }},
	Field{Name: "interest_per_day", Width: 15, Kind: Decimal, Value: func(r *record) any { return r.interestPerDay() }},
	Field{Name: "discount_code", Width: 1, Kind: Numeric, Value: func(r *record) any { return r.discountCode() }},
	Field{Name: "discount_date", Width: 8, Kind: Numeric, Value: func(r *record) any { return r.discountDate() }},
	Field{Name: "discount", Width: 15, Kind: Decimal, Value: func(r *record) any { return r.title.Discount }},
	zeros("iof", 15),
	zeros("rebate", 15),
	Field{Name: "company_use", Width: 25, Kind: Alpha, Value: func(r *record) any { return r.title.TitleID }},
	Field{Name: "protest_code", Width: 1, Kind: Numeric, Value: func(r *record) any { return r.protestCode() }},
	Field{Name: "protest_days", Width: 2, Kind: Numeric, Value: func(r *record) any { return r.batch.routing.ProtestDays }},
	Field{Name: "write_off_code", Width: 1, Kind: Numeric, Value: constant("0")},
	zeros("write_off_days", 3),
	Field{Name: "currency", Width: 2, Kind: Numeric, Value: constant("09")},
	Field{Name: "contract", Width: 10, Kind: Numeric, Value: func(r *record) any { return r.batch.routing.Covenant }},
	blank("febraban_2", 1),
)

// Segment Q carries the debtor identity and address.
var segmentQLayout = mustLayout("segment_q",
	fBank, fLot, fDetail, fSeq,
	Field{Name: "segment", Width: 1, Kind: Alpha, Value: constant("Q")},
	blank("febraban_1", 1),
	fMovement,
	Field{Name: "debtor_doc_type", Width: 1, Kind: Numeric, Value: func(r *record) any { return documentType(r.title.Debtor.Document) }},
	Field{Name: "debtor_document", Width: 15, Kind: Numeric, Value: func(r *record) any { return r.title.Debtor.Document }},
	Field{Name: "debtor_name", Width: 40, Kind: Alpha, Value: func(r *record) any { return r.title.Debtor.Name }},
	Field{Name: "debtor_address", Width: 40, Kind: Alpha, Value: func(r *record) any { return r.title.Debtor.Address }},
	Field{Name: "debtor_district", Width: 15, Kind: Alpha, Value: func(r *record) any { return r.title.Debtor.District }},
	Field{Name: "zip_code", Width: 5, Kind: Numeric, Value: func(r *record) any { return zipPrefix(r.title.Debtor.ZipCode) }},
	Field{Name: "zip_suffix", Width: 3, Kind: Numeric, Value: func(r *record) any { return zipSuffix(r.title.Debtor.ZipCode) }},
	Field{Name: "debtor_city", Width: 15, Kind: Alpha, Value: func(r *record) any { return r.title.Debtor.City }},
	Field{Name: "debtor_state", Width: 2, Kind: Alpha, Value: func(r *record) any { return r.title.Debtor.State }},
	zeros("guarantor_doc_type", 1),
	zeros("guarantor_document", 15),
	blank("guarantor_name", 40),
	zeros("correspondent_bank", 3),
	blank("correspondent_tracking", 20),
	blank("febraban_2", 8),
)

// Segment R carries the fine and the complementary instructions.
var segmentRLayout = mustLayout("segment_r",
	fBank, fLot, fDetail, fSeq,
	Field{Name: "segment", Width: 1, Kind: Alpha, Value: constant("R")},
	blank("febraban_1", 1),
	fMovement,
	zeros("discount_2_code", 1),
	zeros("discount_2_date", 8),
	zeros("discount_2", 15),
	zeros("discount_3_code", 1),
	zeros("discount_3_date", 8),
	zeros("discount_3", 15),
	Field{Name: "fine_code", Width: 1, Kind: Numeric, Value: func(r *record) any { return r.fineCode() }},
	Field{Name: "fine_date", Width: 8, Kind: Numeric, Value: func(r *record) any { return r.fineDate() }},
	Field{Name: "fine_percent", Width: 15, Kind: Decimal, Value: func(r *record) any { return r.batch.routing.FinePercent }},
	blank("debtor_info", 10),
	Field{Name: "message_3", Width: 40, Kind: Alpha, Value: func(r *record) any { return r.interestMessage() }},
	Field{Name: "message_4", Width: 40, Kind: Alpha, Value: func(r *record) any { return r.title.Description }},
	blank("febraban_2", 20),
	zeros("debtor_occurrence", 8),
	zeros("debit_bank", 3),
	zeros("debit_agency", 5),
	blank("debit_agency_dv", 1),
	zeros("debit_account", 12),
	blank("debit_account_dv", 1),
	blank("debit_routing_dv", 1),
	zeros("debit_notice", 1),
	blank("febraban_3", 9),
)

var lotTrailerLayout = mustLayout("lot_trailer",
	fBank, fLot,
	Field{Name: "record_type", Width: 1, Kind: Numeric, Value: constant(recordLotTrailer)},
	blank("febraban_1", 9),
	Field{Name: "lot_records", Width: 6, Kind: Numeric, Value: func(r *record) any { return r.batch.lotRecords() }},
	Field{Name: "simple_count", Width: 6, Kind: Numeric, Value: func(r *record) any { return r.batch.count }},
	Field{Name: "simple_total", Width: 17, Kind: Decimal, Value: func(r *record) any { return r.batch.total }},
	zeros("linked_count", 6),
	zeros("linked_total", 17),
	zeros("secured_count", 6),
	zeros("secured_total", 17),
	zeros("discounted_count", 6),
	zeros("discounted_total", 17),
	blank("notice_number", 8),
	blank("febraban_2", 117),
)

var fileTrailerLayout = mustLayout("file_trailer",
	fBank,
	Field{Name: "lot", Width: 4, Kind: Numeric, Value: constant(trailerLot)},
	Field{Name: "record_type", Width: 1, Kind: Numeric, Value: constant(recordFileTrailer)},
	blank("febraban_1", 9),
	Field{Name: "lot_count", Width: 6, Kind: Numeric, Value: constant("1")},
	Field{Name: "file_records", Width: 6, Kind: Numeric, Value: func(r *record) any { return r.batch.lotRecords() + 2 }},
	zeros("reconciled_accounts", 6),
	blank("febraban_2", 205),
)

// OperationCode maps a collection wallet to the wallet code carried in segment P.
func OperationCode(wallet string) string {
	switch wallet {
	case "31":
		return "2"
	case "51", "11":
		return "4"
	case "17":
		return "7"
	case "":
		return "7"
	}
	return wallet[len(wallet)-1:]
}

// InterestPerDay is amount * rate / 100 / 30 for a positive monthly rate.
func InterestPerDay(amount, rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() {
		return decimal.Zero
	}
	return amount.Mul(rate).Div(decimal.NewFromInt(100)).Div(decimal.NewFromInt(30))
}

// documentType is 1 for an 11 digit CPF, 2 for a 14 digit CNPJ, 0 otherwise.
func documentType(document string) string {
	switch len(onlyDigits(document)) {
	case 11:
		return "1"
	case 14:
		return "2"
	}
	return "0"
}

func zipPrefix(zip string) string {
	digits := EncodeNumeric(zip, 8)
	return digits[:5]
}

func zipSuffix(zip string) string {
	digits := EncodeNumeric(zip, 8)
	return digits[5:]
}
