package analytics

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ab180/merchantagg"
	"github.com/ab180/merchantagg/aggregate"
	"github.com/ab180/merchantagg/executor"
	"github.com/ab180/merchantagg/input"
	"github.com/ab180/merchantagg/merchant"
	"github.com/ab180/merchantagg/metric"
	"github.com/ab180/merchantagg/output"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/therne/errorist"
)

// Output is the order amount bucket of a merchant on a day.
type Output struct {
	Key    merchant.GroupKey
	Bucket aggregate.Bucket
}

type Result struct {
	// OutputDir is the directory the run wrote its part files into.
	OutputDir string
	Files     []string

	Outputs []Output
	Metrics metric.Metrics
	Skipped []executor.SkippedRecord
}

// Run counts orders of each merchant per day by amount range,
// and writes them into a new directory under opt.OutputPath.
func Run(ctx context.Context, opt Options) (result *Result, err error) {
	if err := opt.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}
	lookup, err := merchant.LoadFiles(opt.LookupPaths...)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("merchants", lookup.Len()).
		Int("skipped", lookup.Skipped).
		Msg("loaded merchant lookup")

	files, err := input.ListFiles(opt.InputPaths...)
	if err != nil {
		return nil, errors.Wrap(err, "list input")
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no input files found in %v", opt.InputPaths)
	}
	in := input.LocalFiles(files...)

	outputDir := filepath.Join(opt.OutputPath, strconv.FormatInt(time.Now().UnixMilli(), 10))
	sink, err := output.NewFileSink(outputDir, output.FileSinkOptions{
		FormatKey: formatKey,
		Compress:  opt.Compress,
	})
	if err != nil {
		return nil, err
	}

	crd, err := merchantagg.ConnectCoordinator(opt.Store)
	if err != nil {
		return nil, err
	}
	defer errorist.CloseWithErrCapture(crd, &err, errorist.Wrapf("close coordinator"))

	res, err := merchantagg.NewPipeline(in,
		merchantagg.WithName("MerchantAnalytics"),
		merchantagg.WithExecutorOptions(opt.Executor),
		merchantagg.WithCoordinator(crd),
	).
		Broadcast(MerchantsBroadcastKey, lookup).
		Map(&TransactionMapper{}).
		Reduce(BucketReducer{}).
		Repartition(opt.ShardCount).
		WithOutput(sink).
		RunAndCollect(ctx)
	if err != nil {
		return nil, err
	}

	outputs := make([]Output, len(res.Outputs))
	for i, row := range res.Outputs {
		key, err := merchant.ParseCanonical(row.Key)
		if err != nil {
			return nil, err
		}
		b, ok := row.Value.(*aggregate.Bucket)
		if !ok {
			return nil, errors.Errorf("unexpected value %T of %s", row.Value, row.Key)
		}
		outputs[i] = Output{Key: key, Bucket: *b}
	}
	log.Info().
		Str("dir", outputDir).
		Int("keys", len(outputs)).
		Int("skipped", len(res.Skipped)).
		Msg("merchant analytics written")

	return &Result{
		OutputDir: outputDir,
		Files:     sink.Files(),
		Outputs:   outputs,
		Metrics:   res.Metrics,
		Skipped:   res.Skipped,
	}, nil
}

func formatKey(canonical string) string {
	key, err := merchant.ParseCanonical(canonical)
	if err != nil {
		return canonical
	}
	return key.String()
}
