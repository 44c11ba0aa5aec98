package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"game-showcase/pkg/models"
)

const (
	// ThumbnailWidth is the width of generated thumbnails; height follows the aspect ratio
	ThumbnailWidth = 370
	// ThumbnailQuality is the JPEG quality of generated thumbnails
	ThumbnailQuality = 90

	thumbnailSuffix = "_thumb.jpg"

	// colorDifferenceThreshold defines the minimum difference between color components
	// to consider two pixels as different colors (accounts for compression artifacts)
	colorDifferenceThreshold = 256 // About 1 unit difference in 8-bit color
)

// ErrNotImage is returned when asked to thumbnail a file that is not an image
var ErrNotImage = errors.New("not an image")

// ThumbnailPath returns where the thumbnail of src is written
func ThumbnailPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + thumbnailSuffix
}

// GenerateThumbnail resizes the image at src to ThumbnailWidth and writes it next to src
// as a JPEG. It returns the thumbnail path.
func GenerateThumbnail(src string) (string, error) {
	mt, err := mimetype.DetectFile(src)
	if err != nil {
		return "", fmt.Errorf("detecting type of %s: %w", src, err)
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%s is %s: %w", src, mt.String(), ErrNotImage)
	}

	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := resize.Resize(ThumbnailWidth, 0, img, resize.Lanczos3)

	dest := ThumbnailPath(src)
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail: %w", err)
	}

	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: ThumbnailQuality}); err != nil {
		out.Close()
		os.Remove(dest)
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to write thumbnail: %w", err)
	}

	return dest, nil
}

// ThumbnailReport summarizes a RegenerateThumbnails run
type ThumbnailReport struct {
	Games     int
	Processed int
	Skipped   int
	Errors    int
	Warnings  int
}

// RegenerateThumbnails walks every written manifest and creates the thumbnails its
// image media is missing. With force every thumbnail is rebuilt.
func (s *Service) RegenerateThumbnails(ctx context.Context, force bool) (ThumbnailReport, error) {
	logger := log.FromContext(ctx).WithPrefix("thumbnails")
	var report ThumbnailReport

	names, err := s.ListManifests()
	if err != nil {
		return report, err
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		game, err := s.LoadManifest(name)
		if err != nil {
			logger.Error("skipping manifest", "game", name, "err", err)
			report.Errors++
			continue
		}
		report.Games++

		changed := false
		for i := range game.Media {
			item := &game.Media[i]
			switch item.Kind {
			case models.MediaImage:
				if item.Image == nil || item.Image.Link == "" || isRemote(item.Image.Link) {
					continue
				}
			case models.MediaVideo:
				continue
			}

			src := s.localPath(item.Image.Link)
			dest := ThumbnailPath(src)
			if _, err := os.Stat(dest); err == nil && !force {
				report.Skipped++
				continue
			}

			thumb, err := GenerateThumbnail(src)
			if err != nil {
				logger.Error("failed to make thumbnail", "file", src, "err", err)
				report.Errors++
				continue
			}

			if err := validateThumbnail(thumb); err != nil {
				logger.Warn("thumbnail validation failed", "file", thumb, "err", err)
				report.Warnings++
			}

			if rel := s.webPath(thumb); item.Image.Thumb != rel {
				item.Image.Thumb = rel
				changed = true
			}
			report.Processed++
			logger.Info("created thumbnail", "file", thumb)
		}

		if changed {
			if _, err := s.WriteManifest(name, game); err != nil {
				logger.Error("failed to rewrite manifest", "game", name, "err", err)
				report.Errors++
			}
		}
	}

	return report, nil
}

// validateThumbnail checks if a thumbnail is valid (not a solid color)
func validateThumbnail(thumbnailPath string) error {
	f, err := os.Open(thumbnailPath)
	if err != nil {
		return fmt.Errorf("failed to open thumbnail: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode thumbnail: %w", err)
	}

	// Sample a 10x10 grid of points across the image
	bounds := img.Bounds()
	sampleSize := 10
	stepX := max(bounds.Dx()/sampleSize, 1)
	stepY := max(bounds.Dy()/sampleSize, 1)

	r1, g1, b1, a1 := img.At(bounds.Min.X, bounds.Min.Y).RGBA()

	differentPixels := 0
	totalSamples := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			totalSamples++
			r2, g2, b2, a2 := img.At(x, y).RGBA()

			if abs(int(r1)-int(r2)) > colorDifferenceThreshold ||
				abs(int(g1)-int(g2)) > colorDifferenceThreshold ||
				abs(int(b1)-int(b2)) > colorDifferenceThreshold ||
				abs(int(a1)-int(a2)) > colorDifferenceThreshold {
				differentPixels++
			}
		}
	}

	// If less than 1% of pixels are different, consider it a solid color
	if totalSamples > 0 && float64(differentPixels)/float64(totalSamples) < 0.01 {
		return fmt.Errorf("thumbnail appears to be a solid color (only %d/%d sampled pixels differ)", differentPixels, totalSamples)
	}

	return nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
