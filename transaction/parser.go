package transaction

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	numColumns   = 7
	headerMarker = "transaction"
)

const (
	colTxID = iota
	colCustomerID
	colMerchantID
	colTimestamp
	colInvoiceNumber
	colInvoiceAmount
	colSegment
)

// ErrHeader is returned by Parse for header rows. Callers are expected to skip them.
var ErrHeader = errors.New("header row")

// ParseError describes a malformed transaction line.
type ParseError struct {
	Line   string
	Column int
	Reason string
	Err    error
}

func (p *ParseError) Error() string {
	msg := p.Reason
	if p.Column >= 0 {
		msg = fmt.Sprintf("column %d: %s", p.Column, p.Reason)
	}
	if p.Err != nil {
		msg += ": " + p.Err.Error()
	}
	return fmt.Sprintf("malformed transaction %q: %s", p.Line, msg)
}

func (p *ParseError) Unwrap() error {
	return p.Err
}

// IsHeader reports whether the line is a header row of the transaction log.
func IsHeader(line string) bool {
	return strings.Contains(stripQuotes(line), headerMarker)
}

// Parse parses a comma-separated line with columns
// txId, customerId, merchantId, timestamp, invoiceNumber, invoiceAmount, segment.
func Parse(line string) (Transaction, error) {
	stripped := stripQuotes(line)
	if strings.Contains(stripped, headerMarker) {
		return Transaction{}, ErrHeader
	}
	cols := strings.Split(stripped, ",")
	if len(cols) != numColumns {
		return Transaction{}, &ParseError{
			Line:   line,
			Column: -1,
			Reason: fmt.Sprintf("expected %d columns, got %d", numColumns, len(cols)),
		}
	}
	fail := func(col int, reason string, err error) (Transaction, error) {
		return Transaction{}, &ParseError{Line: line, Column: col, Reason: reason, Err: err}
	}

	customerID, err := strconv.ParseInt(strings.TrimSpace(cols[colCustomerID]), 10, 64)
	if err != nil {
		return fail(colCustomerID, "invalid customer id", err)
	}
	merchantID, err := strconv.ParseInt(strings.TrimSpace(cols[colMerchantID]), 10, 64)
	if err != nil {
		return fail(colMerchantID, "invalid merchant id", err)
	}

	// time of day after the first space is discarded
	dateToken, _, _ := strings.Cut(strings.TrimSpace(cols[colTimestamp]), " ")
	date, err := time.Parse(DateLayout, dateToken)
	if err != nil {
		return fail(colTimestamp, "invalid date", err)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(cols[colInvoiceAmount]))
	if err != nil {
		return fail(colInvoiceAmount, "invalid invoice amount", err)
	}
	if amount.IsNegative() {
		return fail(colInvoiceAmount, "negative invoice amount", nil)
	}

	return Transaction{
		TxID:          cols[colTxID],
		CustomerID:    customerID,
		MerchantID:    merchantID,
		Date:          date,
		InvoiceNumber: strings.TrimSpace(cols[colInvoiceNumber]),
		InvoiceAmount: amount,
		Segment:       strings.TrimSpace(cols[colSegment]),
	}, nil
}

func stripQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}
