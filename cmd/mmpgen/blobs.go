package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leshachaplin/mmpgen/internal/config"
)

func newBlobsCmd(root *rootOptions) *cobra.Command {
	var (
		bucket string
		prefix string
	)

	cmd := &cobra.Command{
		Use:   "blobs [name...]",
		Short: "List uploaded batches, or check the given blob names",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.newApp(func(cfg *config.Config) {
				if cmd.Flags().Changed("bucket") {
					cfg.Storage.Bucket = bucket
				}
				if !cmd.Flags().Changed("prefix") {
					prefix = cfg.Storage.Prefix
				}
			})
			if err != nil {
				return err
			}
			defer a.Stop()

			blobs, err := a.Blobs(prefix, args...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, b := range blobs {
				if !b.Exists {
					fmt.Fprintf(out, "%s\tmissing\n", b.Name)
					continue
				}
				fmt.Fprintf(out, "%s\t%d\n", b.Name, b.Size)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "GCS bucket name")
	cmd.Flags().StringVar(&prefix, "prefix", "", "blob name prefix (default storage.prefix)")
	return cmd
}
