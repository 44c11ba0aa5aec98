package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// newPublishCmd creates the command that uploads the asset tree to the bucket
func newPublishCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the static asset tree to Google Cloud Storage",
		Long: `Upload every file under the public root to the configured bucket. Objects whose size
already matches the local file are skipped unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, ctx, err := newService(cmd)
			if err != nil {
				return err
			}

			report, err := svc.Publish(ctx, force)
			if err != nil {
				return err
			}

			fmt.Printf("\nSummary:\n")
			fmt.Printf("  Uploaded: %d (%s)\n", report.Uploaded, humanize.Bytes(uint64(report.Bytes)))
			fmt.Printf("  Unchanged: %d\n", report.Skipped)
			fmt.Printf("  Errors: %d\n", report.Errors)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Upload every file even if an object of the same size exists")

	return cmd
}
