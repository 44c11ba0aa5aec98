package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-showcase/pkg/catalog"
	"game-showcase/pkg/models"
)

func TestEnsureSnapshotTarball(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.AddTarball("x", "y", makeTarball(t, "x-y-abc1234", map[string]string{
		"index.html":     "<html></html>",
		"art/banner.png": "banner",
	}))
	cfg := testConfig(t, gh.URL(), gh.URL())
	svc := newTestService(t, cfg)
	ctx := testContext(nil)
	require.NoError(t, os.MkdirAll(cfg.Paths.Repos, 0755))

	dir, cached, err := svc.EnsureSnapshot(ctx, "x", "y", "Foo_Bar", false)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, filepath.Join(cfg.Paths.Repos, "Foo_Bar"), dir)
	assert.FileExists(t, filepath.Join(dir, "index.html"))
	assert.FileExists(t, filepath.Join(dir, "art", "banner.png"))

	// neither the archive nor the staging folder is left behind
	entries, err := os.ReadDir(cfg.Paths.Repos)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Foo_Bar", entries[0].Name())

	_, cached, err = svc.EnsureSnapshot(ctx, "x", "y", "Foo_Bar", false)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, gh.Calls("tarball:x/y"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("old"), 0644))
	_, cached, err = svc.EnsureSnapshot(ctx, "x", "y", "Foo_Bar", true)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, gh.Calls("tarball:x/y"))
	assert.NoFileExists(t, filepath.Join(dir, "stale.txt"))
}

func TestEnsureSnapshotMissingRepository(t *testing.T) {
	gh := newFakeGitHub(t)
	cfg := testConfig(t, gh.URL(), gh.URL())
	svc := newTestService(t, cfg)
	require.NoError(t, os.MkdirAll(cfg.Paths.Repos, 0755))

	_, _, err := svc.EnsureSnapshot(testContext(nil), "x", "gone", "Gone", false)
	assert.ErrorIs(t, err, ErrBadStatus)
	assert.NoDirExists(t, filepath.Join(cfg.Paths.Repos, "Gone"))
}

func TestScrapeReposWritesIndex(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.AddTarball("x", "y", makeTarball(t, "x-y-abc1234", map[string]string{
		"game/index.html": "<html></html>",
		"art/banner.png":  "banner-bytes",
	}))
	gh.AddStatic("/dummy", testPNG(t, 20, 10))

	cfg := testConfig(t, gh.URL(), gh.URL())
	svc := newTestService(t, cfg)
	ctx := testContext(nil)

	entries := []models.CatalogEntry{
		{Title: "Foo Bar", Owner: "x", Repo: "y", Banner: "art/banner.png", Year: 2021, Semester: "Fall", PlayLink: "game/index.html"},
		{Title: "Skipped", Owner: "x", Repo: "skipped"},
		{Title: "No Repo", Year: 2020},
		{Title: "Broken", Owner: "x", Repo: "broken"},
	}
	sel := catalog.Resolve(ctx, entries, []string{"Foo Bar", "No Repo", "Broken"})

	report, err := svc.ScrapeRepos(ctx, entries, sel, ArchiveOptions{SkipBuild: true})
	require.NoError(t, err)
	assert.Equal(t, ArchiveReport{Games: 3, Skipped: 1, Fetched: 1, Failed: 1}, report)
	assert.Equal(t, 0, gh.Calls("tarball:x/skipped"))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.Media, "Foo_Bar_banner.png"))
	require.NoError(t, err)
	assert.Equal(t, "banner-bytes", string(data))

	rows := readArchiveIndex(t, cfg.Paths.ArchiveIndex)
	require.Len(t, rows, 3)
	assert.Equal(t, models.ArchiveIndexEntry{
		Title:     "Foo Bar",
		SafeTitle: "Foo_Bar",
		Semester:  "Fall",
		Year:      2021,
		Banner:    "game_media/Foo_Bar_banner.png",
		PlayLink:  "game_repos/Foo_Bar/game/index.html",
	}, rows[0])
	assert.Equal(t, "game_media/tempBanner.gif", rows[1].Banner)
	assert.Equal(t, "game_repos/No_Repo/index.html", rows[1].PlayLink)
	assert.Equal(t, "Broken", rows[2].Title)
	assert.Equal(t, "game_media/tempBanner.gif", rows[2].Banner)
}

func TestPlaceBanner(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.AddStatic("/banners/wide.jpg", []byte("remote-banner"))
	gh.AddStatic("/dummy", []byte("placeholder"))

	cfg := testConfig(t, gh.URL(), gh.URL())
	svc := newTestService(t, cfg)
	ctx := testContext(nil)
	require.NoError(t, os.MkdirAll(cfg.Paths.Media, 0755))

	repoDir := filepath.Join(cfg.Paths.Repos, "Foo_Bar")
	require.NoError(t, os.MkdirAll(filepath.Join(repoDir, "art"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "art", "b.gif"), []byte("gif"), 0644))

	t.Run("remote", func(t *testing.T) {
		entry := models.CatalogEntry{Title: "Foo Bar", Banner: gh.URL() + "/banners/wide.jpg?x=1"}
		assert.Equal(t, "Foo_Bar_banner.jpg", svc.PlaceBanner(ctx, entry, "Foo_Bar", ""))
		data, err := os.ReadFile(filepath.Join(cfg.Paths.Media, "Foo_Bar_banner.jpg"))
		require.NoError(t, err)
		assert.Equal(t, "remote-banner", string(data))
	})

	t.Run("remote failure falls back to placeholder", func(t *testing.T) {
		entry := models.CatalogEntry{Title: "Foo Bar", Banner: gh.URL() + "/banners/missing.png"}
		before := gh.Calls("/dummy")
		assert.Equal(t, "Foo_Bar_banner.png", svc.PlaceBanner(ctx, entry, "Foo_Bar", ""))
		assert.Equal(t, before+1, gh.Calls("/dummy"))
	})

	t.Run("in repository", func(t *testing.T) {
		entry := models.CatalogEntry{Title: "Foo Bar", Owner: "x", Repo: "y", Banner: "/art/b.gif"}
		assert.Equal(t, "Foo_Bar_banner.gif", svc.PlaceBanner(ctx, entry, "Foo_Bar", repoDir))
		assert.FileExists(t, filepath.Join(cfg.Paths.Media, "Foo_Bar_banner.gif"))
	})

	t.Run("escaping path", func(t *testing.T) {
		entry := models.CatalogEntry{Title: "Foo Bar", Owner: "x", Repo: "y", Banner: "../../secret.png"}
		assert.Equal(t, "Foo_Bar_banner.png", svc.PlaceBanner(ctx, entry, "Foo_Bar", repoDir))
	})

	t.Run("no snapshot", func(t *testing.T) {
		entry := models.CatalogEntry{Title: "Foo Bar", Banner: "art/b.gif"}
		assert.Equal(t, models.PlaceholderBanner, svc.PlaceBanner(ctx, entry, "Foo_Bar", ""))
	})
}

func TestPlaceBannerPlaceholderUnreachable(t *testing.T) {
	gh := newFakeGitHub(t)
	cfg := testConfig(t, gh.URL(), gh.URL())
	svc := newTestService(t, cfg)
	require.NoError(t, os.MkdirAll(cfg.Paths.Media, 0755))

	repoDir := t.TempDir()
	entry := models.CatalogEntry{Title: "Foo Bar", Owner: "x", Repo: "y"}
	assert.Equal(t, models.PlaceholderBanner, svc.PlaceBanner(testContext(nil), entry, "Foo_Bar", repoDir))
}

func readArchiveIndex(t *testing.T, file string) []models.ArchiveIndexEntry {
	t.Helper()
	var rows []models.ArchiveIndexEntry
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rows))
	return rows
}
