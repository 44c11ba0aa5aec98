package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"game-showcase/pkg/catalog"
	"game-showcase/pkg/models"
)

// ArchiveOptions tunes a repository archive run
type ArchiveOptions struct {
	// Force re-fetches snapshots that already exist on disk
	Force bool
	// SkipBuild never runs build recipes
	SkipBuild bool
}

// ArchiveReport summarizes a repository archive run
type ArchiveReport struct {
	Games   int
	Skipped int
	Cached  int
	Fetched int
	Failed  int
}

// ScrapeRepos snapshots the repository of every selected game, places its banner,
// runs its build recipe and writes the playable-builds index. Unselected games are
// left out of the index.
func (s *Service) ScrapeRepos(ctx context.Context, entries []models.CatalogEntry, sel catalog.Selection, opts ArchiveOptions) (ArchiveReport, error) {
	logger := log.FromContext(ctx).WithPrefix("archive")
	var report ArchiveReport

	for _, dir := range []string{s.config.Paths.Repos, s.config.Paths.Media} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return report, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	rows := make([]models.ArchiveIndexEntry, 0, len(entries))
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !sel.Full(i) {
			logger.Info("skipping", "game", entry.Title)
			report.Skipped++
			continue
		}
		report.Games++

		row, cached, err := s.archiveGame(ctx, entry, opts)
		switch {
		case err != nil:
			logger.Error("game failed", "game", entry.Title, "err", err)
			report.Failed++
		case cached:
			report.Cached++
		case entry.HasRepository():
			report.Fetched++
		}
		rows = append(rows, row)
	}

	if err := writeJSON(s.config.Paths.ArchiveIndex, rows); err != nil {
		return report, err
	}
	logger.Info("wrote index", "file", s.config.Paths.ArchiveIndex, "games", len(rows))
	return report, nil
}

// archiveGame is the per-game failure boundary of the archive pipeline
func (s *Service) archiveGame(ctx context.Context, entry models.CatalogEntry, opts ArchiveOptions) (row models.ArchiveIndexEntry, cached bool, err error) {
	logger := log.FromContext(ctx).WithPrefix("archive")
	safe := catalog.ArchiveSafeTitle(entry.Title)

	playLink := entry.PlayLink
	if playLink == "" {
		playLink = "index.html"
	}
	row = models.ArchiveIndexEntry{
		Title:     entry.Title,
		SafeTitle: safe,
		Semester:  entry.Semester,
		Year:      entry.Year,
		Banner:    path.Join(s.webPath(s.config.Paths.Media), models.PlaceholderBanner),
		PlayLink:  path.Join(s.webPath(s.config.Paths.Repos), safe, playLink),
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	var repoDir string
	if entry.HasRepository() {
		repoDir, cached, err = s.EnsureSnapshot(ctx, entry.Owner, entry.Repo, safe, opts.Force)
		if err != nil {
			return row, false, err
		}
	}

	row.Banner = path.Join(s.webPath(s.config.Paths.Media), s.PlaceBanner(ctx, entry, safe, repoDir))

	if repoDir != "" && entry.HasBuildRecipe() {
		if opts.SkipBuild {
			logger.Info("skipping build", "game", entry.Title)
		} else if err := s.BuildGame(ctx, entry, repoDir); err != nil {
			if errors.Is(err, ErrNpmNotFound) {
				logger.Warn("not building", "game", entry.Title, "err", err)
			} else {
				logger.Error("build failed", "game", entry.Title, "err", err)
			}
		}
	}

	return row, cached, nil
}

// EnsureSnapshot makes sure <repos root>/<safe> holds the repository. An existing
// directory is reused unless force is set.
func (s *Service) EnsureSnapshot(ctx context.Context, owner, repo, safe string, force bool) (string, bool, error) {
	logger := log.FromContext(ctx).WithPrefix("archive")
	repoDir := filepath.Join(s.config.Paths.Repos, safe)

	if _, err := os.Stat(repoDir); err == nil {
		if !force {
			logger.Info("using existing data", "dir", repoDir)
			return repoDir, true, nil
		}
		if err := os.RemoveAll(repoDir); err != nil {
			return "", false, fmt.Errorf("clearing %s: %w", repoDir, err)
		}
	}

	logger.Info("downloading game", "repo", owner+"/"+repo, "dir", repoDir)
	if err := s.newSnapshotter().Snapshot(ctx, owner, repo, repoDir); err != nil {
		return "", false, err
	}
	return repoDir, false, nil
}

// PlaceBanner puts the game's banner into the media root and returns its file name
// there. URL banners are downloaded, in-repository banners copied out of repoDir, and
// a generated placeholder stands in when neither works. Without a snapshot or URL the
// sentinel banner is returned.
func (s *Service) PlaceBanner(ctx context.Context, entry models.CatalogEntry, safe, repoDir string) string {
	logger := log.FromContext(ctx).WithPrefix("banner")
	base := safe + "_banner"

	if isRemote(entry.Banner) {
		ext := ""
		if u, err := url.Parse(entry.Banner); err == nil {
			ext = path.Ext(u.Path)
		}
		dest := filepath.Join(s.config.Paths.Media, base+ext)
		if err := s.downloader.Download(ctx, entry.Banner, dest); err != nil {
			logger.Error("banner download failed", "game", entry.Title, "err", err)
			return s.placeholderBanner(ctx, entry, base)
		}
		return base + ext
	}

	if repoDir == "" {
		return models.PlaceholderBanner
	}
	if _, err := os.Stat(repoDir); err != nil {
		return models.PlaceholderBanner
	}

	if entry.Banner == "" {
		return s.placeholderBanner(ctx, entry, base)
	}

	ext := path.Ext(entry.Banner)
	if err := copyRepoFile(repoDir, entry.Banner, filepath.Join(s.config.Paths.Media, base+ext)); err != nil {
		logger.Error("banner copy failed", "game", entry.Title, "err", err)
		return s.placeholderBanner(ctx, entry, base)
	}
	return base + ext
}

func (s *Service) placeholderBanner(ctx context.Context, entry models.CatalogEntry, base string) string {
	// encodeURIComponent-style escaping: spaces become %20
	text := strings.ReplaceAll(url.QueryEscape(entry.Title), "+", "%20")
	dest := filepath.Join(s.config.Paths.Media, base+".png")

	if err := s.downloader.Download(ctx, s.config.Archive.BannerPlaceholderURL+text, dest); err != nil {
		log.FromContext(ctx).WithPrefix("banner").Error("placeholder download failed", "game", entry.Title, "err", err)
		return models.PlaceholderBanner
	}
	return base + ".png"
}

// copyRepoFile copies a file addressed relative to repoDir, refusing paths that leave it
func copyRepoFile(repoDir, rel, dest string) error {
	root := filepath.Clean(repoDir)
	src := filepath.Join(root, filepath.FromSlash(strings.TrimLeft(rel, `/\`)))
	if !strings.HasPrefix(src, root+string(os.PathSeparator)) {
		return fmt.Errorf("%s is outside the repository", rel)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}
