package analytics

import (
	"github.com/ab180/merchantagg/aggregate"
	"github.com/ab180/merchantagg/lrdd"
	"github.com/ab180/merchantagg/merchant"
	"github.com/ab180/merchantagg/metric"
	"github.com/ab180/merchantagg/transaction"
	"github.com/ab180/merchantagg/transformation"
	"github.com/pkg/errors"
)

// MerchantsBroadcastKey is the broadcast key of the merchant lookup.
const MerchantsBroadcastKey = "merchants"

const (
	ParsedRecordsMetric       = "parsed_records"
	HeaderRecordsMetric       = "header_records"
	MalformedRecordsMetric    = "malformed_records"
	UnresolvedMerchantsMetric = "unresolved_merchants"
)

// TransactionMapper emits a one-transaction bucket keyed by merchant name and day.
type TransactionMapper struct {
	lookup *merchant.Lookup
}

func (m *TransactionMapper) Setup(ctx transformation.Context) error {
	lookup := new(merchant.Lookup)
	if err := ctx.DecodeBroadcast(MerchantsBroadcastKey, lookup); err != nil {
		return errors.Wrap(err, "decode merchant lookup")
	}
	m.lookup = lookup
	return nil
}

func (m *TransactionMapper) Map(ctx transformation.Context, line string) (*lrdd.Row, error) {
	tx, err := transaction.Parse(line)
	if err != nil {
		if errors.Is(err, transaction.ErrHeader) {
			metric.RecordsCounter.WithLabelValues("header").Inc()
			ctx.AddMetric(HeaderRecordsMetric, 1)
			return nil, nil
		}
		metric.RecordsCounter.WithLabelValues("malformed").Inc()
		ctx.AddMetric(MalformedRecordsMetric, 1)
		return nil, transformation.Skip(err)
	}
	metric.RecordsCounter.WithLabelValues("parsed").Inc()
	ctx.AddMetric(ParsedRecordsMetric, 1)

	key := merchant.BuildKey(tx, m.lookup)
	if !key.Resolved {
		metric.UnresolvedMerchantsCounter.Inc()
		ctx.AddMetric(UnresolvedMerchantsMetric, 1)
	}
	partial := aggregate.Partial(aggregate.Classify(tx.InvoiceAmount))
	return lrdd.KeyValue(key.Canonical(), &partial), nil
}
