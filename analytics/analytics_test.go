package analytics

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/ab180/merchantagg/aggregate"
	"github.com/ab180/merchantagg/executor"
	"github.com/ab180/merchantagg/input"
	"github.com/ab180/merchantagg/internal/serialization"
	"github.com/ab180/merchantagg/merchant"
	"github.com/ab180/merchantagg/metric"
	"github.com/ab180/merchantagg/output"
	"github.com/ab180/merchantagg/pkg/encoding/lz4"
	"github.com/ab180/merchantagg/transformation"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

type fakeContext struct {
	context.Context
	broadcasts serialization.SerializedBroadcast
	metrics    metric.Repository
}

func newFakeContext(t *testing.T, lookup *merchant.Lookup) *fakeContext {
	s, err := serialization.SerializeBroadcast(serialization.Broadcast{MerchantsBroadcastKey: lookup})
	require.NoError(t, err)
	return &fakeContext{Context: context.Background(), broadcasts: s, metrics: metric.NewRepository()}
}

func (f *fakeContext) Broadcast(string) interface{} { return nil }
func (f *fakeContext) DecodeBroadcast(key string, ptr interface{}) error {
	return f.broadcasts.Unmarshal(key, ptr)
}
func (f *fakeContext) PartitionID() string          { return "0" }
func (f *fakeContext) JobID() string                { return "J" }
func (f *fakeContext) AddMetric(name string, d int) { f.metrics.AddMetric(name, int64(d)) }
func (f *fakeContext) SetMetric(name string, v int) { f.metrics.SetMetric(name, int64(v)) }

func TestTransactionMapper(t *testing.T) {
	Convey("Given a mapper set up with a lookup", t, func() {
		ctx := newFakeContext(t, merchant.NewLookup(map[string]string{"1": "Acme"}))
		m := &TransactionMapper{}
		So(m.Setup(ctx), ShouldBeNil)

		Convey("It should emit a one-transaction bucket keyed by merchant and day", func() {
			row, err := m.Map(ctx, "t1,10,1,2024-01-01 00:00,INV1,4000,A")
			So(err, ShouldBeNil)
			So(row.Key, ShouldEqual, "Acme|2024-01-01")
			So(*row.Value.(*aggregate.Bucket), ShouldResemble, aggregate.Bucket{BelowOrEq5000: 1, Total: 1})
		})

		Convey("It should key unknown merchants with the sentinel name", func() {
			row, err := m.Map(ctx, "t1,10,42,2024-01-01 00:00,INV1,25000,A")
			So(err, ShouldBeNil)
			So(row.Key, ShouldEqual, merchant.UnknownMerchant+"|2024-01-01")
			So(*row.Value.(*aggregate.Bucket), ShouldResemble, aggregate.Bucket{Above20000: 1, Total: 1})
			So(ctx.metrics.Collect()[UnresolvedMerchantsMetric], ShouldEqual, uint64(1))
		})

		Convey("It should skip headers silently", func() {
			row, err := m.Map(ctx, "transactionId,customerId,merchantId,timestamp,invoiceNumber,invoiceAmount,segment")
			So(err, ShouldBeNil)
			So(row, ShouldBeNil)
			So(ctx.metrics.Collect()[HeaderRecordsMetric], ShouldEqual, uint64(1))
		})

		Convey("It should mark malformed lines as skipped", func() {
			row, err := m.Map(ctx, "t1,10,1,2024-01-01 00:00,INV1")
			So(row, ShouldBeNil)
			_, skipped := transformation.IsSkipped(err)
			So(skipped, ShouldBeTrue)
			So(ctx.metrics.Collect()[MalformedRecordsMetric], ShouldEqual, uint64(1))
		})
	})

	Convey("Given no broadcast lookup", t, func() {
		ctx := &fakeContext{Context: context.Background(), broadcasts: serialization.SerializedBroadcast{}}

		Convey("Setup should fail", func() {
			So((&TransactionMapper{}).Setup(ctx), ShouldNotBeNil)
		})
	})
}

func TestBucketReducer(t *testing.T) {
	Convey("Reducing buckets", t, func() {
		r := BucketReducer{}
		a := &aggregate.Bucket{BelowOrEq5000: 1, Total: 1}
		b := &aggregate.Bucket{BelowOrEq20000: 2, Total: 2}

		Convey("It should merge without modifying its arguments", func() {
			next, err := r.Reduce(nil, a, b)
			So(err, ShouldBeNil)
			So(*next.(*aggregate.Bucket), ShouldResemble, aggregate.Bucket{BelowOrEq5000: 1, BelowOrEq20000: 2, Total: 3})
			So(*a, ShouldResemble, aggregate.Bucket{BelowOrEq5000: 1, Total: 1})
		})

		Convey("It should start from the neutral bucket", func() {
			next, err := r.Reduce(nil, r.InitialValue(), a)
			So(err, ShouldBeNil)
			So(*next.(*aggregate.Bucket), ShouldResemble, *a)
		})
	})
}

func writeFile(t *testing.T, path string, lines ...string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func readOutputs(t *testing.T, files []string) []string {
	var lines []string
	for _, path := range files {
		f, err := os.Open(path)
		require.NoError(t, err)

		var r io.Reader = f
		if lz4.IsCompressed(path) {
			zr := lz4.NewReader(f)
			defer zr.Close()
			r = zr
		}
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		for _, l := range strings.Split(string(data), "\n") {
			if l != "" {
				lines = append(lines, l)
			}
		}
	}
	sort.Strings(lines)
	return lines
}

func testOptions(dir string) Options {
	opt := DefaultOptions()
	opt.InputPaths = []string{filepath.Join(dir, "input")}
	opt.LookupPaths = []string{filepath.Join(dir, "merchants.csv")}
	opt.OutputPath = filepath.Join(dir, "output")
	opt.Executor.Concurrency = 2
	opt.Executor.RetryDelay = 0
	return opt
}

func TestRun(t *testing.T) {
	Convey("Given transactions of a known merchant", t, func() {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "merchants.csv"), `"1","X","Acme"`)
		writeFile(t, filepath.Join(dir, "input", "part-0.csv"),
			"transactionId,customerId,merchantId,timestamp,invoiceNumber,invoiceAmount,segment",
			"t1,10,1,2024-01-01 00:00,INV1,4000,A",
			"t2,11,1,2024-01-01 00:00,INV2,15000,B",
		)
		opt := testOptions(dir)

		Convey("It should count orders of the merchant by amount range", func() {
			res, err := Run(context.Background(), opt)
			So(err, ShouldBeNil)
			So(res.Outputs, ShouldHaveLength, 1)
			So(res.Outputs[0].Key.String(), ShouldEqual, "Acme-2024-01-01")
			So(res.Outputs[0].Bucket, ShouldResemble, aggregate.Bucket{
				BelowOrEq5000:  1,
				BelowOrEq10000: 0,
				BelowOrEq20000: 1,
				Above20000:     0,
				Total:          2,
			})
			So(res.Skipped, ShouldBeEmpty)
			So(res.Metrics["map/"+ParsedRecordsMetric], ShouldEqual, uint64(2))
			So(res.Metrics["map/"+HeaderRecordsMetric], ShouldEqual, uint64(1))

			Convey("It should write every shard and the success marker", func() {
				So(res.Files, ShouldHaveLength, 5)
				_, err := os.Stat(filepath.Join(res.OutputDir, output.SuccessMarker))
				So(err, ShouldBeNil)
				So(readOutputs(t, res.Files), ShouldResemble, []string{"Acme-2024-01-01\t1\t0\t1\t0\t2"})
			})
		})

		Convey("It should write lz4 part files when compression is on", func() {
			opt.Compress = true
			opt.ShardCount = 2
			res, err := Run(context.Background(), opt)
			So(err, ShouldBeNil)
			So(res.Files, ShouldHaveLength, 2)
			for _, f := range res.Files {
				So(lz4.IsCompressed(f), ShouldBeTrue)
			}
			So(readOutputs(t, res.Files), ShouldResemble, []string{"Acme-2024-01-01\t1\t0\t1\t0\t2"})
		})
	})

	Convey("Given a batch with a malformed line", t, func() {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "merchants.csv"), "1,X,Acme", "2,Y,Globex")
		writeFile(t, filepath.Join(dir, "input", "a.csv"),
			"t1,10,1,2024-01-01 00:00,INV1,5000,A",
			"t2,11,2,2024-01-01 10:00,INV2,10000,B",
			"t3,12,2,2024-01-02",
		)
		writeFile(t, filepath.Join(dir, "input", "b.csv"),
			"t4,13,2,2024-01-01 11:00,INV4,20000.01,A",
			"t5,14,9,2024-01-01 12:00,INV5,1,A",
		)

		Convey("It should aggregate every well-formed line and report the malformed one", func() {
			res, err := Run(context.Background(), testOptions(dir))
			So(err, ShouldBeNil)
			So(res.Skipped, ShouldHaveLength, 1)
			So(res.Skipped[0].Line, ShouldEqual, 3)
			So(res.Metrics["map/"+executor.SkippedRecordMetric], ShouldEqual, uint64(1))
			So(res.Metrics["map/"+UnresolvedMerchantsMetric], ShouldEqual, uint64(1))

			got := make(map[string]aggregate.Bucket)
			for _, o := range res.Outputs {
				So(o.Bucket.Valid(), ShouldBeTrue)
				got[o.Key.String()] = o.Bucket
			}
			So(got, ShouldResemble, map[string]aggregate.Bucket{
				"Acme-2024-01-01":   {BelowOrEq5000: 1, Total: 1},
				"Globex-2024-01-01": {BelowOrEq10000: 1, Above20000: 1, Total: 2},
				merchant.UnknownMerchant + "-2024-01-01": {BelowOrEq5000: 1, Total: 1},
			})
		})
	})

	Convey("Given a batch with a line longer than the scan limit", t, func() {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "merchants.csv"), "1,X,Acme")
		writeFile(t, filepath.Join(dir, "input", "a.csv"),
			"t1,10,1,2024-01-01 00:00,INV1,5000,A",
			"t2,11,1,2024-01-01 00:00,INV2,"+strings.Repeat("9", 2*input.MaxLineSize)+",A",
			"t3,12,1,2024-01-01 00:00,INV3,6000,A",
		)

		Convey("It should skip the line and aggregate the rest", func() {
			res, err := Run(context.Background(), testOptions(dir))
			So(err, ShouldBeNil)
			So(res.Skipped, ShouldHaveLength, 1)
			So(res.Skipped[0].Line, ShouldEqual, 2)
			var tooLong *input.LineTooLongError
			So(errors.As(res.Skipped[0].Err, &tooLong), ShouldBeTrue)

			So(res.Outputs, ShouldHaveLength, 1)
			So(res.Outputs[0].Bucket, ShouldResemble, aggregate.Bucket{BelowOrEq5000: 1, BelowOrEq10000: 1, Total: 2})
		})
	})

	Convey("Given an unreadable lookup", t, func() {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "input", "a.csv"), "t1,10,1,2024-01-01 00:00,INV1,5000,A")

		Convey("It should fail before writing any output", func() {
			_, err := Run(context.Background(), testOptions(dir))
			So(err, ShouldNotBeNil)
			var loadErr *merchant.LoadError
			So(errors.As(err, &loadErr), ShouldBeTrue)
			_, err = os.Stat(filepath.Join(dir, "output"))
			So(os.IsNotExist(err), ShouldBeTrue)
		})
	})

	Convey("Given incomplete options", t, func() {
		Convey("It should refuse to run", func() {
			_, err := Run(context.Background(), DefaultOptions())
			So(err, ShouldNotBeNil)
		})
	})
}
