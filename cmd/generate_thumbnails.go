package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newGenerateThumbnailsCmd creates a new command for generating image thumbnails
func newGenerateThumbnailsCmd() *cobra.Command {
	var forceRegenerate bool

	cmd := &cobra.Command{
		Use:   "generate-thumbnails",
		Short: "Generate thumbnails for images without existing thumbnails",
		Long: `Walk the written game manifests and create the thumbnails their images are missing,
updating the manifests to point at them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, ctx, err := newService(cmd)
			if err != nil {
				return err
			}

			fmt.Println("Scanning manifests for images without thumbnails...")
			report, err := svc.RegenerateThumbnails(ctx, forceRegenerate)
			if err != nil {
				return err
			}

			fmt.Printf("\nSummary:\n")
			fmt.Printf("  Games scanned: %d\n", report.Games)
			fmt.Printf("  Thumbnails generated: %d\n", report.Processed)
			fmt.Printf("  Already present: %d\n", report.Skipped)
			fmt.Printf("  Validation warnings: %d\n", report.Warnings)
			fmt.Printf("  Errors: %d\n", report.Errors)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&forceRegenerate, "force", "f", false, "Force regeneration of all thumbnails, even if they exist")

	return cmd
}
