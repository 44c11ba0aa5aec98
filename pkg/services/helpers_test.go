package services

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"game-showcase/pkg/config"
)

// testContext returns a context carrying a logger that writes into buf
func testContext(buf io.Writer) context.Context {
	if buf == nil {
		buf = io.Discard
	}
	logger := log.NewWithOptions(buf, log.Options{ReportTimestamp: false, Level: log.DebugLevel})
	return log.WithContext(context.Background(), logger)
}

// fakeGitHub serves the slice of the GitHub REST API the scrapers use, plus arbitrary
// static files standing in for media hosts
type fakeGitHub struct {
	mu       sync.Mutex
	files    map[string][]byte // owner/repo/path
	blobs    map[string][]byte // sha
	tarballs map[string][]byte // owner/repo
	static   map[string][]byte // url path
	calls    map[string]int    // "contents:owner/repo/dir", "tarball:owner/repo", url path

	server *httptest.Server
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{
		files:    make(map[string][]byte),
		blobs:    make(map[string][]byte),
		tarballs: make(map[string][]byte),
		static:   make(map[string][]byte),
		calls:    make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGitHub) URL() string {
	return f.server.URL
}

func (f *fakeGitHub) AddFile(owner, repo, filePath string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := sha1.Sum(append([]byte(owner+"/"+repo+"/"+filePath+":"), data...))
	sha := hex.EncodeToString(sum[:])
	f.files[owner+"/"+repo+"/"+filePath] = []byte(sha)
	f.blobs[sha] = data
}

func (f *fakeGitHub) AddTarball(owner, repo string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tarballs[owner+"/"+repo] = data
}

func (f *fakeGitHub) AddStatic(urlPath string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.static[urlPath] = data
}

func (f *fakeGitHub) Calls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeGitHub) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !strings.HasPrefix(r.URL.Path, "/repos/") {
		f.calls[r.URL.Path]++
		if data, ok := f.static[r.URL.Path]; ok {
			w.Write(data)
			return
		}
		http.NotFound(w, r)
		return
	}

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/repos/"), "/", 4)
	if len(parts) < 3 {
		http.NotFound(w, r)
		return
	}
	owner, repo, kind := parts[0], parts[1], parts[2]
	rest := ""
	if len(parts) == 4 {
		rest = strings.Trim(parts[3], "/")
	}

	switch kind {
	case "contents":
		f.calls["contents:"+owner+"/"+repo+"/"+rest]++
		prefix := owner + "/" + repo + "/"
		listing := []map[string]any{}
		for key, sha := range f.files {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			p := strings.TrimPrefix(key, prefix)
			dir := path.Dir(p)
			if dir == "." {
				dir = ""
			}
			if dir != rest {
				continue
			}
			listing = append(listing, map[string]any{
				"type": "file", "name": path.Base(p), "path": p, "sha": string(sha),
			})
		}
		if len(listing) == 0 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(listing)

	case "git":
		sha := strings.TrimPrefix(rest, "blobs/")
		data, ok := f.blobs[sha]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"sha":      sha,
			"encoding": "base64",
			"content":  wrapBase64(base64.StdEncoding.EncodeToString(data)),
			"size":     len(data),
		})

	case "tarball":
		f.calls["tarball:"+owner+"/"+repo]++
		data, ok := f.tarballs[owner+"/"+repo]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/x-gzip")
		w.Header().Set("Content-Disposition", "attachment; filename="+owner+"-"+repo+"-abc1234.tar.gz")
		w.Write(data)

	default:
		http.NotFound(w, r)
	}
}

// wrapBase64 splits encoded content into lines the way the blob API does
func wrapBase64(s string) string {
	var b strings.Builder
	for len(s) > 60 {
		b.WriteString(s[:60])
		b.WriteByte('\n')
		s = s[60:]
	}
	b.WriteString(s)
	return b.String()
}

// makeTarball builds a gzipped tarball with every file under a single top folder
func makeTarball(t *testing.T, top string, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	require.NoError(t, tw.WriteHeader(&tar.Header{Name: top + "/", Typeflag: tar.TypeDir, Mode: 0755}))
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     top + "/" + name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// testPNG encodes a w x h gradient so thumbnail validation sees colour variation
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// testConfig lays out a scratch site under a temp dir, talking to the given fakes
func testConfig(t *testing.T, githubURL, vimeoURL string) *config.Config {
	t.Helper()
	root := t.TempDir()
	public := filepath.Join(root, "public")
	return &config.Config{
		GitHub: config.GitHubConfig{Token: "test-token", BaseURL: githubURL},
		Vimeo: config.VimeoConfig{
			Token:          "vimeo-token",
			BaseURL:        vimeoURL,
			PlaceholderURL: githubURL + "/placeholder.png",
		},
		Paths: config.PathsConfig{
			Catalog:      filepath.Join(root, "scraper", "gameList.json"),
			Public:       public,
			Media:        filepath.Join(public, "game_media"),
			Repos:        filepath.Join(public, "game_repos"),
			Index:        filepath.Join(root, "src", "GamePage", "gameList.json"),
			ArchiveIndex: filepath.Join(public, "gameList.json"),
		},
		HTTP: config.HTTPConfig{Timeout: 5 * time.Second},
		Log:  config.LogConfig{Level: "debug"},
		Archive: config.ArchiveConfig{
			Method:               config.ArchiveTarball,
			Ref:                  "master",
			CloneBase:            filepath.Join(root, "remotes"),
			BannerPlaceholderURL: githubURL + "/dummy?text=",
		},
		Server: config.ServerConfig{Port: "0", Views: "views"},
	}
}

func newTestService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), cfg)
	require.NoError(t, err)
	return svc
}
