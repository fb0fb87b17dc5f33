package main

import (
	"github.com/spf13/cobra"

	"github.com/leshachaplin/mmpgen/internal/config"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		addr   string
		worker bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generate and validate HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.newApp(func(cfg *config.Config) {
				if cmd.Flags().Changed("addr") {
					cfg.Server.Addr = addr
				}
				if cmd.Flags().Changed("worker") {
					cfg.Server.Worker = worker
				}
			})
			if err != nil {
				return err
			}
			return a.Start()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&worker, "worker", false, "consume the event topic into ClickHouse")
	return cmd
}
