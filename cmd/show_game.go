package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"game-showcase/pkg/catalog"
	"game-showcase/pkg/models"
)

// newShowGameCmd creates a new command for showing a written game manifest
func newShowGameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-game [index|title]",
		Short: "Show the manifest of a specific game",
		Long:  `Show the manifest written for a game identified by its catalog index or exact title.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService(cmd)
			if err != nil {
				return err
			}

			entries, err := catalog.Load(svc.Config().Paths.Catalog)
			if err != nil {
				return err
			}
			_, entry, ok := catalog.Find(entries, args[0])
			if !ok {
				return fmt.Errorf("no game matches %q", args[0])
			}

			game, err := svc.LoadManifest(catalog.SafeTitle(entry.Title))
			if err != nil {
				return fmt.Errorf("loading manifest of %q: %w", entry.Title, err)
			}
			showGame(game)
			return nil
		},
	}
}

// showGame displays details about a game manifest
func showGame(game *models.GameManifest) {
	fmt.Printf("Game: %s\n", game.Title)
	if game.ByLine != "" {
		fmt.Printf("By: %s\n", game.ByLine)
	}
	if game.RepoOwner != "" {
		fmt.Printf("Repository: %s/%s\n", game.RepoOwner, game.RepoName)
	}
	fmt.Printf("Banner: %s\n", game.BannerTitleURI)
	if game.BannerWideURI != nil {
		fmt.Printf("Wide banner: %s\n", *game.BannerWideURI)
	}
	fmt.Printf("Markdown: %s\n", game.MarkdownURI)
	if game.WebPlayLink != nil {
		fmt.Printf("Play: %s\n", *game.WebPlayLink)
	}
	fmt.Printf("Media: %d (ready: %t)\n", len(game.Media), game.MediaDoneLoading())
	fmt.Println("================")

	for i, item := range game.Media {
		fmt.Printf("%d. [%s] %s\n", i+1, item.Kind, item.Title)
		switch item.Kind {
		case models.MediaImage:
			fmt.Printf("   Link: %s\n", item.Image.Link)
			if item.Image.Thumb != "" {
				fmt.Printf("   Thumbnail: %s\n", item.Image.Thumb)
			}
		case models.MediaVideo:
			fmt.Printf("   Vimeo: %s\n", item.Video.VimeoID)
			if item.Video.Thumb != "" {
				fmt.Printf("   Thumbnail: %s\n", item.Video.Thumb)
			}
		}
		fmt.Println()
	}
}
