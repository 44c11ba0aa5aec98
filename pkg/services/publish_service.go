package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/api/iterator"
)

// PublishReport summarizes an upload of the public tree
type PublishReport struct {
	Uploaded int
	Skipped  int
	Errors   int
	Bytes    int64
}

// Publish uploads every file under the public root to the configured bucket. Objects whose
// size already matches the local file are skipped unless force is set.
func (s *Service) Publish(ctx context.Context, force bool) (PublishReport, error) {
	var report PublishReport
	if err := s.config.RequireBucket(); err != nil {
		return report, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to create storage client: %w", err)
	}
	defer client.Close()

	return s.publishTo(ctx, client.Bucket(s.config.Storage.Bucket), force)
}

func (s *Service) publishTo(ctx context.Context, bucket *storage.BucketHandle, force bool) (PublishReport, error) {
	logger := log.FromContext(ctx).WithPrefix("publish")
	var report PublishReport

	existing := make(map[string]int64)
	it := bucket.Objects(ctx, nil)
	for {
		obj, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return report, fmt.Errorf("error iterating objects: %w", err)
		}
		existing[obj.Name] = obj.Size
	}

	root := s.config.Paths.Public
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return ctx.Err()
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		name := s.webPath(p)
		if size, ok := existing[name]; ok && size == info.Size() && !force {
			report.Skipped++
			return nil
		}

		if err := uploadFile(ctx, bucket, p, name); err != nil {
			logger.Error("upload failed", "object", name, "err", err)
			report.Errors++
			return nil
		}
		report.Uploaded++
		report.Bytes += info.Size()
		logger.Info("uploaded", "object", name, "size", humanize.Bytes(uint64(info.Size())))
		return nil
	})
	if err != nil {
		return report, err
	}
	return report, nil
}

// uploadFile uploads a file to GCS bucket with a detected content type
func uploadFile(ctx context.Context, bucket *storage.BucketHandle, src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("os.Open: %w", err)
	}
	defer f.Close()

	dst = strings.TrimPrefix(dst, "/")

	writer := bucket.Object(dst).NewWriter(ctx)
	writer.ContentType = contentType(src)

	if _, err := io.Copy(writer, f); err != nil {
		writer.Close()
		return fmt.Errorf("Writer.Write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}
	return nil
}

// contentType picks the object content type. Text formats the site relies on are
// mapped by extension, the rest is sniffed.
func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".json":
		return "application/json"
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".html":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "text/javascript; charset=utf-8"
	}
	mt, err := mimetype.DetectFile(file)
	if err != nil {
		return "application/octet-stream"
	}
	return mt.String()
}
