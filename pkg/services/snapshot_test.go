package services

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-showcase/pkg/config"
)

func writeArchive(t *testing.T, headers []*tar.Header) string {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, hdr := range headers {
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Size > 0 {
			_, err := tw.Write(bytes.Repeat([]byte("x"), int(hdr.Size)))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	file := filepath.Join(t.TempDir(), "repo.tar.gz")
	require.NoError(t, os.WriteFile(file, buf.Bytes(), 0644))
	return file
}

func TestExtractTarballRejectsEscapes(t *testing.T) {
	tests := []struct {
		name   string
		header *tar.Header
	}{
		{"parent path", &tar.Header{Name: "../evil.txt", Typeflag: tar.TypeReg, Mode: 0644, Size: 4}},
		{"nested parent path", &tar.Header{Name: "top/../../evil.txt", Typeflag: tar.TypeReg, Mode: 0644, Size: 4}},
		{"absolute symlink", &tar.Header{Name: "top/link", Typeflag: tar.TypeSymlink, Linkname: "/etc/passwd"}},
		{"relative symlink", &tar.Header{Name: "top/link", Typeflag: tar.TypeSymlink, Linkname: "../../outside"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := writeArchive(t, []*tar.Header{tt.header})
			dest := filepath.Join(t.TempDir(), "out")
			err := extractTarball(archive, dest)
			assert.ErrorIs(t, err, ErrUnsafeArchive)
			assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), "evil.txt"))
		})
	}
}

func TestExtractTarballKeepsInternalSymlinks(t *testing.T) {
	archive := writeArchive(t, []*tar.Header{
		{Name: "top/", Typeflag: tar.TypeDir, Mode: 0755},
		{Name: "top/a.txt", Typeflag: tar.TypeReg, Mode: 0644, Size: 3},
		{Name: "top/link.txt", Typeflag: tar.TypeSymlink, Linkname: "a.txt"},
	})
	dest := t.TempDir()
	require.NoError(t, extractTarball(archive, dest))

	target, err := os.Readlink(filepath.Join(dest, "top", "link.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", target)

	data, err := os.ReadFile(filepath.Join(dest, "top", "link.txt"))
	require.NoError(t, err)
	assert.Equal(t, "xxx", string(data))
}

func TestArchiveFilename(t *testing.T) {
	assert.Equal(t, "x-y-abc.tar.gz", archiveFilename("attachment; filename=x-y-abc.tar.gz"))
	assert.Equal(t, "x-y-abc.tar.gz", archiveFilename(`attachment; filename="x-y-abc.tar.gz"`))
	assert.Equal(t, "evil.tar.gz", archiveFilename(`attachment; filename="../../evil.tar.gz"`))
	assert.Equal(t, "", archiveFilename("inline"))
	assert.Equal(t, "", archiveFilename(""))
}

// initRemote creates a repository with one commit on main under base/owner/repo
func initRemote(t *testing.T, base, owner, repo string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(base, owner, repo)
	r, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{
			DefaultBranch: "refs/heads/main",
		},
	})
	require.NoError(t, err)

	w, err := r.Worktree()
	require.NoError(t, err)
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
		_, err = w.Add(name)
		require.NoError(t, err)
	}

	_, err = w.Commit("initial commit", &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)
}

func TestEnsureSnapshotClone(t *testing.T) {
	gh := newFakeGitHub(t)
	cfg := testConfig(t, gh.URL(), gh.URL())
	cfg.Archive.Method = config.ArchiveClone
	cfg.Archive.Ref = "main"
	initRemote(t, cfg.Archive.CloneBase, "x", "y", map[string]string{
		"index.html":   "<html></html>",
		"js/game.js":   "console.log('hi')",
		"package.json": "{}",
	})

	svc := newTestService(t, cfg)
	require.NoError(t, os.MkdirAll(cfg.Paths.Repos, 0755))

	dir, cached, err := svc.EnsureSnapshot(testContext(nil), "x", "y", "Foo_Bar", false)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.FileExists(t, filepath.Join(dir, "index.html"))
	assert.FileExists(t, filepath.Join(dir, "js", "game.js"))
	assert.NoDirExists(t, filepath.Join(dir, ".git"))
	assert.Equal(t, 0, gh.Calls("tarball:x/y"))
}

func TestEnsureSnapshotCloneMissingRepository(t *testing.T) {
	gh := newFakeGitHub(t)
	cfg := testConfig(t, gh.URL(), gh.URL())
	cfg.Archive.Method = config.ArchiveClone
	cfg.Archive.Ref = "main"

	svc := newTestService(t, cfg)
	require.NoError(t, os.MkdirAll(cfg.Paths.Repos, 0755))

	_, _, err := svc.EnsureSnapshot(testContext(nil), "x", "nope", "Nope", false)
	require.Error(t, err)
	assert.NoDirExists(t, filepath.Join(cfg.Paths.Repos, "Nope"))
}
