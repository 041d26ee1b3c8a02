package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company is the collecting company named in CNAB file headers.
type Company struct {
	Name     string `json:"name"`
	Document string `json:"document"`
}

// Slip carries the numeric fields a boleto renderer needs for one title.
type Slip struct {
	TitleID        string          `json:"title_id"`
	TrackingNumber string          `json:"tracking_number"`
	DueDate        time.Time       `json:"due_date"`
	Amount         decimal.Decimal `json:"amount"`
	DigitLine      string          `json:"digit_line"`
	Barcode        string          `json:"barcode"`
}

// Remittance is a generated CNAB240 file and the slips it covers.
type Remittance struct {
	RemittanceID string     `json:"remittance_id"`
	Account      AccountRef `json:"account"`
	Sequence     int        `json:"sequence"`
	Content      string     `json:"content"`
	Slips        []Slip     `json:"slips"`
	CreatedAt    time.Time  `json:"created_at"`
}
