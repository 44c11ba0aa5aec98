package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"game-showcase/pkg/catalog"
	"game-showcase/pkg/models"
)

// newListGamesCmd creates a new command for listing catalog games
func newListGamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-games [index|title...]",
		Short: "List all catalog games",
		Long: `List every game of the catalog with its index, safe title, where its manifest comes from
and whether a scrape with the given selectors would process it in full.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ctx, err := LoadConfig(cmd)
			if err != nil {
				return err
			}
			entries, sel, err := loadCatalog(ctx, cfg, args)
			if err != nil {
				return err
			}
			listGames(entries, sel)
			return nil
		},
	}
}

// listGames displays the catalog entries and their processing mode
func listGames(entries []models.CatalogEntry, sel catalog.Selection) {
	fmt.Println("Games:")
	fmt.Println("======")

	full := 0
	for i, entry := range entries {
		mode := "metadata"
		if sel.Full(i) {
			mode = "full"
			full++
		}

		fmt.Printf("%d. %s\n", i, entry.Title)
		fmt.Printf("   Safe title: %s\n", catalog.SafeTitle(entry.Title))
		fmt.Printf("   Source: %s\n", sourceKind(entry))
		fmt.Printf("   Mode: %s\n", mode)
		fmt.Println()
	}

	fmt.Printf("Total: %d games (%d full)\n", len(entries), full)
}

func sourceKind(entry models.CatalogEntry) string {
	switch {
	case !entry.HasRepository():
		return "none"
	case entry.Path == "":
		return fmt.Sprintf("%s/%s (synthesized manifest)", entry.Owner, entry.Repo)
	default:
		return fmt.Sprintf("%s/%s:%s", entry.Owner, entry.Repo, entry.Path)
	}
}
