package services

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	gogithttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"game-showcase/pkg/config"
)

// ErrUnsafeArchive is returned for tarball entries that would land outside the destination
var ErrUnsafeArchive = errors.New("archive entry escapes destination")

// Snapshotter obtains the files of a repository into dest, which must not exist yet
type Snapshotter interface {
	Snapshot(ctx context.Context, owner, repo, dest string) error
}

// newSnapshotter picks the snapshot method named in the configuration
func (s *Service) newSnapshotter() Snapshotter {
	if s.config.Archive.Method == config.ArchiveClone {
		return &cloneSnapshotter{
			base:  s.config.Archive.CloneBase,
			ref:   s.config.Archive.Ref,
			token: s.config.GitHub.Token,
		}
	}
	return &tarballSnapshotter{
		downloader: s.repoDownloader,
		apiBase:    s.github.BaseURL.String(),
		ref:        s.config.Archive.Ref,
	}
}

// tarballSnapshotter downloads the repository tarball through the GitHub API and expands it
type tarballSnapshotter struct {
	downloader *Downloader
	apiBase    string
	ref        string
}

func (t *tarballSnapshotter) Snapshot(ctx context.Context, owner, repo, dest string) error {
	logger := log.FromContext(ctx).WithPrefix("snapshot")
	parent := filepath.Dir(dest)

	archiveURL := fmt.Sprintf("%srepos/%s/%s/tarball/%s", ensureSlash(t.apiBase), owner, repo, t.ref)
	archive := filepath.Join(parent, fmt.Sprintf("%s-%s.tar.gz", owner, repo))

	logger.Info("downloading archive", "repo", owner+"/"+repo, "ref", t.ref)
	header, err := t.downloader.fetch(ctx, archiveURL, archive)
	if err != nil {
		return fmt.Errorf("archive retrieval error: %w", err)
	}

	if name := archiveFilename(header.Get("Content-Disposition")); name != "" && name != filepath.Base(archive) {
		renamed := filepath.Join(parent, name)
		if err := os.Rename(archive, renamed); err == nil {
			archive = renamed
		}
	}
	defer func() {
		if err := os.Remove(archive); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove archive", "file", archive, "err", err)
		}
	}()

	staging, err := os.MkdirTemp(parent, ".expand-*")
	if err != nil {
		return fmt.Errorf("creating staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	logger.Info("expanding archive", "file", archive)
	if err := extractTarball(archive, staging); err != nil {
		return fmt.Errorf("expanding %s: %w", filepath.Base(archive), err)
	}

	// GitHub wraps the tree in a single "<owner>-<repo>-<sha>" folder
	root := staging
	entries, err := os.ReadDir(staging)
	if err != nil {
		return err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		root = filepath.Join(staging, entries[0].Name())
	}

	if err := os.Rename(root, dest); err != nil {
		return fmt.Errorf("moving snapshot into place: %w", err)
	}
	return nil
}

// archiveFilename reads the file name out of a Content-Disposition header
func archiveFilename(contentDisposition string) string {
	if contentDisposition == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
		if name := params["filename"]; name != "" {
			return filepath.Base(name)
		}
	}
	if idx := strings.Index(contentDisposition, "filename="); idx != -1 {
		name := strings.Trim(contentDisposition[idx+len("filename="):], `"; `)
		return filepath.Base(name)
	}
	return ""
}

// extractTarball expands a gzipped tarball under destDir, rejecting entries that escape it
func extractTarball(archive, destDir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	root := filepath.Clean(destDir)
	inside := func(p string) bool {
		return p == root || strings.HasPrefix(p, root+string(os.PathSeparator))
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(root, filepath.FromSlash(hdr.Name))
		if !inside(target) {
			return fmt.Errorf("%s: %w", hdr.Name, ErrUnsafeArchive)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeTarFile(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) || !inside(filepath.Join(filepath.Dir(target), hdr.Linkname)) {
				return fmt.Errorf("%s -> %s: %w", hdr.Name, hdr.Linkname, ErrUnsafeArchive)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		default:
			// pax global headers and anything exotic
		}
	}
}

func writeTarFile(r io.Reader, target string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// cloneSnapshotter shallow-clones the repository with go-git and drops its history
type cloneSnapshotter struct {
	base  string
	ref   string
	token string
}

func (c *cloneSnapshotter) Snapshot(ctx context.Context, owner, repo, dest string) error {
	repoURL := ensureSlash(c.base) + owner + "/" + repo

	opts := &gogit.CloneOptions{
		URL:           repoURL,
		ReferenceName: plumbing.NewBranchReferenceName(c.ref),
		SingleBranch:  true,
	}
	// Local file remotes do not support shallow fetches
	if strings.Contains(repoURL, "://") {
		opts.Depth = 1
	}
	if c.token != "" && strings.HasPrefix(repoURL, "http") {
		opts.Auth = &gogithttp.BasicAuth{
			Username: "git", // ignored for token auth
			Password: c.token,
		}
	}

	log.FromContext(ctx).WithPrefix("snapshot").Info("cloning", "url", repoURL, "ref", c.ref)
	if _, err := gogit.PlainCloneContext(ctx, dest, false, opts); err != nil {
		os.RemoveAll(dest)
		return fmt.Errorf("git clone failed for %s: %w", repoURL, err)
	}

	if err := os.RemoveAll(filepath.Join(dest, ".git")); err != nil {
		return fmt.Errorf("removing git metadata: %w", err)
	}
	return nil
}
