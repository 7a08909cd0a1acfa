package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one historical price observation for a symbol. Records are
// immutable once ingested; reloads replace a symbol's history wholesale.
type PricePoint struct {
	Symbol    string
	Price     decimal.Decimal
	Timestamp time.Time
}
