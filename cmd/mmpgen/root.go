package main

import (
	"github.com/spf13/cobra"

	"github.com/leshachaplin/mmpgen/app"
	"github.com/leshachaplin/mmpgen/internal/config"
)

type rootOptions struct {
	cfgFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "mmpgen",
		Short:         "Synthetic mobile measurement event generator",
		Long:          `Generates realistic impression, click, install and reinstall events, validates them, keeps a local JSONL backup and uploads the batch to Google Cloud Storage.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is ./mmpgen.yaml or ./config/mmpgen.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: TRACE, DEBUG, INFO, WARN, ERROR, PANIC")

	cmd.AddCommand(
		newGenerateCmd(opts),
		newValidateCmd(opts),
		newServeCmd(opts),
		newBlobsCmd(opts),
	)
	return cmd
}

// newApp loads the config file and environment, then lets override apply flag values.
func (o *rootOptions) newApp(override func(*config.Config)) (*app.App, error) {
	return app.New(func() (config.Config, error) {
		cfg, err := config.Load(o.cfgFile)
		if err != nil {
			return config.Config{}, err
		}
		if o.logLevel != "" {
			cfg.LogLevel = o.logLevel
		}
		if override != nil {
			override(&cfg)
		}
		return cfg, nil
	})
}
