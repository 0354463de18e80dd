// Package transaction parses purchase transactions from the raw transaction log.
package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the layout of the date token in the timestamp column.
const DateLayout = "2006-01-02"

// Transaction is a single purchase.
type Transaction struct {
	TxID          string
	CustomerID    int64
	MerchantID    int64
	Date          time.Time
	InvoiceNumber string
	InvoiceAmount decimal.Decimal
	Segment       string
}

// Day returns the transaction date in YYYY-MM-DD form.
func (t Transaction) Day() string {
	return t.Date.Format(DateLayout)
}
