package main

import (
	"github.com/spf13/cobra"

	"github.com/leshachaplin/mmpgen/internal/config"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an existing JSONL event file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.newApp(func(cfg *config.Config) {
				if cmd.Flags().Changed("output") {
					cfg.Generator.Output = output
				}
			})
			if err != nil {
				return err
			}
			defer a.Stop()

			_, err = a.Validate(a.Output())
			return err
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "file to validate (default data/raw/mmp_events.jsonl)")
	return cmd
}
