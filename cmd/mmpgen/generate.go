package main

import (
	"github.com/spf13/cobra"

	"github.com/leshachaplin/mmpgen/internal/config"
)

type generateOptions struct {
	numEvents      int
	historicalDays int
	output         string
	bucket         string
	seed           int64
	localOnly      bool
	validateOnly   bool
	stream         bool
	warehouse      bool
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate, validate and upload a batch of events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.newApp(func(cfg *config.Config) {
				opts.apply(cmd, cfg)
			})
			if err != nil {
				return err
			}
			defer a.Stop()

			if opts.validateOnly {
				_, err = a.Validate(a.Output())
				return err
			}
			_, err = a.Generate()
			return err
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.numEvents, "num-events", 100, "number of events to generate")
	f.IntVar(&opts.historicalDays, "historical-days", 30, "spread timestamps over this many past days")
	f.StringVar(&opts.output, "output", "", "local backup path (default data/raw/mmp_events.jsonl)")
	f.StringVar(&opts.bucket, "bucket", "", "GCS bucket name (default $GCS_BUCKET or mobile-measurement-data)")
	f.Int64Var(&opts.seed, "seed", 0, "random seed for reproducible batches, 0 picks one")
	f.BoolVar(&opts.localOnly, "local-only", false, "skip the upload")
	f.BoolVar(&opts.validateOnly, "validate-only", false, "validate the --output file instead of generating")
	f.BoolVar(&opts.stream, "stream", false, "publish the batch to the event topic")
	f.BoolVar(&opts.warehouse, "warehouse", false, "load the batch into ClickHouse")
	return cmd
}

// apply copies explicitly set flags over the loaded config.
func (o *generateOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("num-events") {
		cfg.Generator.NumEvents = o.numEvents
	}
	if f.Changed("historical-days") {
		cfg.Generator.HistoricalDays = o.historicalDays
	}
	if f.Changed("output") {
		cfg.Generator.Output = o.output
	}
	if f.Changed("bucket") {
		cfg.Storage.Bucket = o.bucket
	}
	if f.Changed("seed") {
		cfg.Generator.Seed = o.seed
	}
	if f.Changed("local-only") {
		cfg.Generator.LocalOnly = o.localOnly
	}
	if f.Changed("stream") {
		cfg.Generator.Stream = o.stream
	}
	if f.Changed("warehouse") {
		cfg.Generator.Warehouse = o.warehouse
	}
}
