package test

import (
	"github.com/ab180/merchantagg"
	"github.com/ab180/merchantagg/analytics"
	"github.com/ab180/merchantagg/input"
	"github.com/ab180/merchantagg/merchant"
	"github.com/ab180/merchantagg/test/testdata"
)

// MerchantAnalytics aggregates the test transactions without writing any file.
func MerchantAnalytics(options ...merchantagg.PipelineOption) *merchantagg.Pipeline {
	lookup, err := merchant.LoadFiles(testdata.MerchantsPath())
	if err != nil {
		panic(err)
	}
	return merchantagg.NewPipeline(input.LocalFiles(testdata.TransactionsPath()), options...).
		Broadcast(analytics.MerchantsBroadcastKey, lookup).
		Map(&analytics.TransactionMapper{}).
		Reduce(analytics.BucketReducer{}).
		Repartition(3)
}
