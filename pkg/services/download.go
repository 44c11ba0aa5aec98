package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Downloader streams HTTP responses to local files
type Downloader struct {
	client *http.Client
}

// NewDownloader creates a Downloader sending requests through client
func NewDownloader(client *http.Client) *Downloader {
	return &Downloader{client: client}
}

// Download saves the body of a GET on rawURL to dest. On any failure the partially
// written file is removed and the error returned.
func (d *Downloader) Download(ctx context.Context, rawURL, dest string) error {
	_, err := d.fetch(ctx, rawURL, dest)
	return err
}

// fetch is Download that also hands back the response headers
func (d *Downloader) fetch(ctx context.Context, rawURL, dest string) (http.Header, error) {
	logger := log.FromContext(ctx).WithPrefix("download")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", rawURL, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if !statusOK(resp.StatusCode) {
		return nil, fmt.Errorf("GET %s: %w: %d", rawURL, ErrBadStatus, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", dest, err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("os.Create: %w", err)
	}

	pr := &progressReader{
		reader:        resp.Body,
		contentLength: resp.ContentLength,
		fileName:      filepath.Base(dest),
		lastUpdate:    time.Now(),
		logger:        logger,
	}

	_, copyErr := io.Copy(f, pr)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		if err := os.Remove(dest); err != nil {
			logger.Warn("failed to remove partial file", "file", dest, "err", err)
		}
		if copyErr != nil {
			return nil, fmt.Errorf("writing %s: %w", dest, copyErr)
		}
		return nil, fmt.Errorf("closing %s: %w", dest, closeErr)
	}

	logger.Debug("saved", "file", dest, "size", humanize.Bytes(uint64(pr.bytesRead)))
	return resp.Header, nil
}

// progressReader wraps an io.Reader to provide progress updates
type progressReader struct {
	reader        io.Reader
	contentLength int64
	fileName      string
	lastUpdate    time.Time
	bytesRead     int64
	logger        *log.Logger
}

// Read implements the io.Reader interface
func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.bytesRead += int64(n)

	// Report at most every 500ms
	now := time.Now()
	if now.Sub(pr.lastUpdate) >= 500*time.Millisecond {
		pr.updateProgress()
		pr.lastUpdate = now
	}

	return n, err
}

func (pr *progressReader) updateProgress() {
	if pr.contentLength <= 0 {
		pr.logger.Info("downloading", "file", pr.fileName, "read", humanize.Bytes(uint64(pr.bytesRead)))
		return
	}

	percent := float64(pr.bytesRead) / float64(pr.contentLength) * 100
	pr.logger.Info("downloading",
		"file", pr.fileName,
		"progress", fmt.Sprintf("%.1f%%", percent),
		"read", humanize.Bytes(uint64(pr.bytesRead)),
		"total", humanize.Bytes(uint64(pr.contentLength)))
}

// getSafeFilename creates a safe filename from a URL by:
// 1. Removing query parameters
// 2. Using only the base name
// 3. If still too long, using a hash of the original path
func getSafeFilename(path string) string {
	if idx := strings.IndexAny(path, "?#"); idx != -1 {
		path = path[:idx]
	}

	baseName := path
	if idx := strings.LastIndex(baseName, "/"); idx != -1 {
		baseName = baseName[idx+1:]
	}

	baseName = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) {
			return '_'
		}
		return r
	}, baseName)

	if len(baseName) > 200 {
		hash := sha256.Sum256([]byte(path))
		extension := filepath.Ext(baseName)

		shortName := baseName[:20]
		baseName = fmt.Sprintf("%s-%s%s", shortName, hex.EncodeToString(hash[:8]), extension)
	}

	return baseName
}

func statusOK(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
