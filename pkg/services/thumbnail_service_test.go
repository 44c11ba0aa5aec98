package services

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-showcase/pkg/models"
)

func TestGenerateThumbnail(t *testing.T) {
	src := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(src, testPNG(t, 740, 400), 0644))

	thumb, err := GenerateThumbnail(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(src), "shot_thumb.jpg"), thumb)

	f, err := os.Open(thumb)
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, ThumbnailWidth, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())

	assert.NoError(t, validateThumbnail(thumb))
}

func TestGenerateThumbnailRejectsNonImages(t *testing.T) {
	src := filepath.Join(t.TempDir(), "about.md")
	require.NoError(t, os.WriteFile(src, []byte("# Not a picture\n"), 0644))

	_, err := GenerateThumbnail(src)
	assert.ErrorIs(t, err, ErrNotImage)
	assert.NoFileExists(t, ThumbnailPath(src))
}

func TestValidateThumbnailSolidColor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 10, B: 10, A: 255})
		}
	}
	file := filepath.Join(t.TempDir(), "solid.png")
	f, err := os.Create(file)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	err = validateThumbnail(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "solid color")
}

func TestRegenerateThumbnails(t *testing.T) {
	gh := newFakeGitHub(t)
	cfg := testConfig(t, gh.URL(), gh.URL())
	svc := newTestService(t, cfg)
	ctx := testContext(nil)

	dir := filepath.Join(cfg.Paths.Media, "Foo_Bar")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shot.png"), testPNG(t, 400, 300), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("text"), 0644))

	_, err := svc.WriteManifest("Foo_Bar", &models.GameManifest{
		Title: "Foo Bar",
		Media: []models.MediaItem{
			models.NewImage("Shot", "", "game_media/Foo_Bar/shot.png", ""),
			models.NewImage("Notes", "", "game_media/Foo_Bar/notes.txt", ""),
			models.NewImage("Remote", "", "https://example.com/a.png", "https://example.com/a_thumb.png"),
			models.NewVideo("Trailer", "", "123", "game_media/Foo_Bar/123.jpg"),
		},
	})
	require.NoError(t, err)

	report, err := svc.RegenerateThumbnails(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, ThumbnailReport{Games: 1, Processed: 1, Errors: 1}, report)

	game, err := svc.LoadManifest("Foo_Bar")
	require.NoError(t, err)
	assert.Equal(t, "game_media/Foo_Bar/shot_thumb.jpg", game.Media[0].Image.Thumb)
	assert.Empty(t, game.Media[1].Image.Thumb)
	assert.Equal(t, "https://example.com/a_thumb.png", game.Media[2].Image.Thumb)
	assert.FileExists(t, filepath.Join(dir, "shot_thumb.jpg"))

	report, err = svc.RegenerateThumbnails(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Processed)

	report, err = svc.RegenerateThumbnails(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
}
