package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"

	"game-showcase/pkg/catalog"
	"game-showcase/pkg/models"
)

// ScrapeReport summarizes a media pipeline run
type ScrapeReport struct {
	Games  int
	Full   int
	Failed int
}

// ScrapeMedia runs the media pipeline over the catalog in order and writes the aggregate
// index. Per-game failures are logged and never stop the batch; only failing to set up the
// output tree is returned as an error.
func (s *Service) ScrapeMedia(ctx context.Context, entries []models.CatalogEntry, sel catalog.Selection) (ScrapeReport, error) {
	logger := log.FromContext(ctx).WithPrefix("scrape")
	var report ScrapeReport

	if err := os.MkdirAll(s.config.Paths.Media, 0755); err != nil {
		return report, fmt.Errorf("creating media root: %w", err)
	}

	index := make([]models.CatalogIndexEntry, 0, len(entries))
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		full := sel.Full(i)
		report.Games++
		if full {
			report.Full++
		}

		row, err := s.processGame(ctx, entry, full)
		if err != nil {
			logger.Error("game failed", "game", entry.Title, "err", err)
			report.Failed++
		}
		index = append(index, row)
	}

	if err := s.WriteIndex(index); err != nil {
		return report, err
	}
	logger.Info("wrote index", "file", s.config.Paths.Index, "games", len(index))
	return report, nil
}

// processGame is the per-game failure boundary: panics become errors and the game still
// yields an index row.
func (s *Service) processGame(ctx context.Context, entry models.CatalogEntry, full bool) (row models.CatalogIndexEntry, err error) {
	safe := catalog.SafeTitle(entry.Title)
	row = s.indexEntry(safe, synthesizeManifest(entry))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	game := s.BuildManifest(ctx, entry, full)
	row = s.indexEntry(safe, game)

	if !full {
		log.FromContext(ctx).WithPrefix("scrape").Info("skipping media", "game", entry.Title)
		return row, nil
	}

	file, err := s.WriteManifest(safe, game)
	if err != nil {
		return row, err
	}
	log.FromContext(ctx).WithPrefix("scrape").Info("saved", "file", file)
	return row, nil
}

// synthesizeManifest builds the placeholder record of a game without a manifest file
func synthesizeManifest(entry models.CatalogEntry) *models.GameManifest {
	return &models.GameManifest{
		Title:          entry.Title,
		ByLine:         "",
		RepoOwner:      entry.Owner,
		RepoName:       entry.Repo,
		MarkdownURI:    models.PlaceholderMarkdown,
		BannerTitleURI: models.PlaceholderBanner,
		Media:          []models.MediaItem{},
	}
}

// BuildManifest produces a game's manifest. Games without a manifest path get the
// placeholder record. Otherwise the remote manifest is hydrated, its banners and
// description are fetched, and in full mode its media is normalized.
func (s *Service) BuildManifest(ctx context.Context, entry models.CatalogEntry, full bool) *models.GameManifest {
	logger := log.FromContext(ctx).WithPrefix("manifest")

	if entry.Path == "" {
		return synthesizeManifest(entry)
	}

	game := &models.GameManifest{}
	raw, ok := s.FetchJSON(ctx, entry.Owner, entry.Repo, entry.Path, game)
	if !ok {
		logger.Error("no manifest, using placeholders", "game", entry.Title)
		return synthesizeManifest(entry)
	}
	gjson.GetBytes(raw, "media").ForEach(func(i, item gjson.Result) bool {
		kind := item.Get("type")
		if kind.Exists() && kind.String() != string(models.MediaImage) && kind.String() != string(models.MediaVideo) {
			logger.Warn("unknown media type, inferring kind", "game", entry.Title, "item", i.Int(), "type", kind.String())
		}
		return true
	})
	if game.Title == "" {
		game.Title = entry.Title
	}
	if game.RepoOwner == "" {
		game.RepoOwner = entry.Owner
	}
	if game.RepoName == "" {
		game.RepoName = entry.Repo
	}
	if game.Media == nil {
		game.Media = []models.MediaItem{}
	}

	safe := catalog.SafeTitle(entry.Title)
	game.WebPlayLink = stringPtr(path.Join("game_repo", safe, "index.html"))
	game.WindowsDownloadLink = stringPtr(path.Join("game_builds", safe+"-win64.zip"))
	game.MacOSDownloadLink = stringPtr(path.Join("game_builds", safe+"-macOS.dmg"))

	destDir := filepath.Join(s.config.Paths.Media, safe)
	if full {
		if err := os.RemoveAll(destDir); err != nil {
			logger.Error("failed to clear media dir", "dir", destDir, "err", err)
		}
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		logger.Error("failed to create media dir", "dir", destDir, "err", err)
	}
	logger.Info("retrieving data", "game", entry.Title, "dir", destDir)

	game.BannerTitleURI = s.resolveOrSentinel(ctx, game, game.BannerTitleURI, models.PlaceholderBanner, safe, destDir, "title banner")
	game.MarkdownURI = s.resolveOrSentinel(ctx, game, game.MarkdownURI, models.PlaceholderMarkdown, safe, destDir, "markdown file")

	if game.BannerWideURI != nil && *game.BannerWideURI != "" {
		if local, ok := s.ResolveLink(ctx, *game.BannerWideURI, game.RepoOwner, game.RepoName, safe, destDir); ok {
			game.BannerWideURI = stringPtr(s.webPath(local))
		} else {
			logger.Error("failed to retrieve wide banner image", "game", entry.Title)
			game.BannerWideURI = nil
		}
	} else {
		game.BannerWideURI = nil
	}

	if full {
		s.NormalizeMedia(ctx, game, safe, destDir)
	}
	return game
}

func (s *Service) resolveOrSentinel(ctx context.Context, game *models.GameManifest, ref, sentinel, safe, destDir, what string) string {
	logger := log.FromContext(ctx).WithPrefix("manifest")
	if ref == "" || ref == sentinel {
		logger.Error("missing "+what+" uri", "game", game.Title)
		return sentinel
	}
	local, ok := s.ResolveLink(ctx, ref, game.RepoOwner, game.RepoName, safe, destDir)
	if !ok {
		logger.Error("failed to retrieve "+what, "game", game.Title, "ref", ref)
		return sentinel
	}
	return s.webPath(local)
}

func (s *Service) indexEntry(safe string, game *models.GameManifest) models.CatalogIndexEntry {
	return models.CatalogIndexEntry{
		GameTitle:   game.Title,
		GameDataURL: s.webPath(s.manifestFile(safe)),
		GameMDURL:   game.MarkdownURI,
		BannerLink:  game.BannerTitleURI,
		Cols:        2,
	}
}

func (s *Service) manifestFile(safe string) string {
	return filepath.Join(s.config.Paths.Media, safe+".json")
}

// WriteManifest writes a game's manifest to <media root>/<safe title>.json
func (s *Service) WriteManifest(safe string, game *models.GameManifest) (string, error) {
	file := s.manifestFile(safe)
	if err := writeJSON(file, game); err != nil {
		return "", err
	}

	s.manifestCache.Delete(safe)
	return file, nil
}

// LoadManifest reads a written manifest by safe title. Callers get their own copy.
func (s *Service) LoadManifest(safe string) (*models.GameManifest, error) {
	if cached, found := s.manifestCache.Get(safe); found {
		return cached.(*models.GameManifest).Clone(), nil
	}

	data, err := os.ReadFile(s.manifestFile(safe))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("manifest %s: %w", safe, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	game := &models.GameManifest{}
	if err := json.Unmarshal(data, game); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", safe, err)
	}

	s.manifestCache.Set(safe, game.Clone(), cache.DefaultExpiration)
	return game, nil
}

// ListManifests returns the safe titles of all written manifests in natural order
func (s *Service) ListManifests() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(s.config.Paths.Media, "*.json"))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, strings.TrimSuffix(filepath.Base(f), ".json"))
	}
	sort.Slice(names, func(i, j int) bool {
		return naturalLess(names[i], names[j])
	})
	return names, nil
}

// WriteIndex writes the aggregate catalog index
func (s *Service) WriteIndex(index []models.CatalogIndexEntry) error {
	if index == nil {
		index = []models.CatalogIndexEntry{}
	}
	return writeJSON(s.config.Paths.Index, index)
}

// LoadIndex reads the aggregate catalog index
func (s *Service) LoadIndex() ([]models.CatalogIndexEntry, error) {
	data, err := os.ReadFile(s.config.Paths.Index)
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	var index []models.CatalogIndexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parsing index: %w", err)
	}
	return index, nil
}

func writeJSON(file string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", file, err)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", file, err)
	}
	if err := os.WriteFile(file, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", file, err)
	}
	return nil
}

func stringPtr(s string) *string {
	return &s
}
