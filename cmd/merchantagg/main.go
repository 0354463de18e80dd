package main

import (
	"os"
	"syscall"
	"time"

	"github.com/ab180/merchantagg/analytics"
	"github.com/ab180/merchantagg/internal/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	opt := analytics.DefaultOptions()
	var verbose bool

	cmd := &cobra.Command{
		Use:           "merchantagg",
		Short:         "Counts orders of each merchant per day by invoice amount range",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PreRun: func(*cobra.Command, []string) {
			setupLogger(verbose)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := util.ContextWithSignal(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			res, err := analytics.Run(ctx, opt)
			if err != nil {
				log.Error().Err(err).Msg("merchant analytics failed")
				return err
			}
			log.Info().
				Str("dir", res.OutputDir).
				Int("files", len(res.Files)).
				Int("keys", len(res.Outputs)).
				Int("skipped", len(res.Skipped)).
				Msg("done")
			for _, s := range res.Skipped {
				log.Debug().Err(s.Err).Str("split", s.Split).Int("line", s.Line).Msg("skipped record")
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&opt.InputPaths, "input", "i", nil, "transaction files or directories")
	flags.StringSliceVarP(&opt.LookupPaths, "lookup", "l", nil, "merchant lookup files or directories")
	flags.StringVarP(&opt.OutputPath, "output", "o", "", "base output directory; each run writes into <output>/<unix millis>")
	flags.IntVarP(&opt.ShardCount, "shards", "n", opt.ShardCount, "number of reduce shards")
	flags.IntVarP(&opt.Executor.Concurrency, "concurrency", "c", opt.Executor.Concurrency, "number of map workers")
	flags.BoolVar(&opt.Compress, "compress", opt.Compress, "write lz4-compressed part files")
	flags.StringSliceVar(&opt.Store.EtcdEndpoints, "etcd", nil, "etcd endpoints to store job status in. kept in memory if empty")
	flags.StringVar(&opt.Store.EtcdNamespace, "etcd-namespace", opt.Store.EtcdNamespace, "key prefix on etcd")
	flags.BoolVarP(&verbose, "verbose", "v", false, "print debug logs")
	for _, name := range []string{"input", "lookup", "output"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func setupLogger(verbose bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
