package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"game-showcase/pkg/services"
)

// newScrapeReposCmd creates the command that archives playable builds
func newScrapeReposCmd() *cobra.Command {
	var opts services.ArchiveOptions

	cmd := &cobra.Command{
		Use:   "scrape-repos [index|title...]",
		Short: "Archive game repositories as playable builds",
		Long: `Download a snapshot of each selected game's repository into the repos root, place its
banner, run its build recipe and write the playable-builds index. Existing snapshots are reused
unless --force is given.`,
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

			report, err := svc.ScrapeRepos(ctx, entries, sel, opts)
			if err != nil {
				return err
			}

			fmt.Printf("\nSummary:\n")
			fmt.Printf("  Games archived: %d\n", report.Games)
			fmt.Printf("  Downloaded: %d\n", report.Fetched)
			fmt.Printf("  Reused: %d\n", report.Cached)
			fmt.Printf("  Skipped: %d\n", report.Skipped)
			fmt.Printf("  Failed: %d\n", report.Failed)
			fmt.Printf("  Index: %s\n", cfg.Paths.ArchiveIndex)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Download snapshots again even if they exist")
	cmd.Flags().BoolVar(&opts.SkipBuild, "skip-build", false, "Do not run build recipes")

	return cmd
}
