package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"game-showcase/pkg/catalog"
	"game-showcase/pkg/config"
	"game-showcase/pkg/models"
	"game-showcase/pkg/services"
)

// Configuration flags
var (
	configFile string
	v          *viper.Viper
)

// flagBindings maps persistent flags onto configuration keys
var flagBindings = map[string]string{
	"github-token": "github.token",
	"vimeo-token":  "vimeo.token",
	"bucket":       "storage.bucket",
	"port":         "server.port",
	"catalog":      "paths.catalog",
	"public":       "paths.public",
	"log-level":    "log.level",
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	v = viper.New()

	rootCmd := &cobra.Command{
		Use:   "game-showcase",
		Short: "Game Showcase builds the static content of the student game gallery",
		Long: `Game Showcase reads the game catalog, pulls each game's manifest and media from its
GitHub repository and writes the files the gallery front-end consumes. It can also archive
playable builds, preview the result locally and publish it to Google Cloud Storage.`,
		SilenceUsage: true,
	}

	// Define persistent flags that will be available for all commands
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Config file (default ./showcase.yaml)")
	flags.StringP("github-token", "g", "", "Set the GitHub token (overrides SHOWCASE_GITHUB_TOKEN)")
	flags.String("vimeo-token", "", "Set the Vimeo token (overrides SHOWCASE_VIMEO_TOKEN)")
	flags.StringP("bucket", "b", "", "Set the storage bucket (overrides SHOWCASE_STORAGE_BUCKET)")
	flags.StringP("port", "p", "", "Set the server port (overrides SHOWCASE_SERVER_PORT)")
	flags.String("catalog", "", "Path of the game catalog")
	flags.String("public", "", "Static asset root")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")

	for name, key := range flagBindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	// Add commands to root
	rootCmd.AddCommand(newScrapeMediaCmd())
	rootCmd.AddCommand(newScrapeReposCmd())
	rootCmd.AddCommand(newListGamesCmd())
	rootCmd.AddCommand(newShowGameCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateThumbnailsCmd())
	rootCmd.AddCommand(newPublishCmd())

	return rootCmd
}

// LoadConfig loads configuration with respect to command line flags and returns the
// command context carrying a logger at the configured level
func LoadConfig(cmd *cobra.Command) (*config.Config, context.Context, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, nil, err
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})

	return cfg, log.WithContext(cmd.Context(), logger), nil
}

// newService loads the configuration and builds the service from it
func newService(cmd *cobra.Command) (*services.Service, context.Context, error) {
	cfg, ctx, err := LoadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	svc, err := services.NewService(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return svc, ctx, nil
}

// loadCatalog reads the configured catalog and resolves the selectors against it
func loadCatalog(ctx context.Context, cfg *config.Config, selectors []string) ([]models.CatalogEntry, catalog.Selection, error) {
	entries, err := catalog.Load(cfg.Paths.Catalog)
	if err != nil {
		return nil, catalog.Selection{}, err
	}
	return entries, catalog.Resolve(ctx, entries, selectors), nil
}
