package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newScrapeMediaCmd creates the command that builds game manifests and media
func newScrapeMediaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape-media [index|title...]",
		Short: "Build game manifests, media and the gallery index",
		Long: `Fetch every catalog game's manifest from its repository and write the gallery index.
Games named by index or exact title are processed in full (media downloaded, thumbnails made,
per-game manifest written); the rest only contribute their index entry. Without arguments
every game is processed in full.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, ctx, err := newService(cmd)
			if err != nil {
				return err
			}
			cfg := svc.Config()
			if err := cfg.RequireGitHubToken(); err != nil {
				return err
			}

			entries, sel, err := loadCatalog(ctx, cfg, args)
			if err != nil {
				return err
			}

			report, err := svc.ScrapeMedia(ctx, entries, sel)
			if err != nil {
				return err
			}

			fmt.Printf("\nSummary:\n")
			fmt.Printf("  Games: %d\n", report.Games)
			fmt.Printf("  Fully processed: %d\n", report.Full)
			fmt.Printf("  Failed: %d\n", report.Failed)
			fmt.Printf("  Index: %s\n", cfg.Paths.Index)
			return nil
		},
	}
}
