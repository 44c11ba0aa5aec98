package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/patrickmn/go-cache"
)

// repoEntry is the part of a directory listing needed to find a file's blob
type repoEntry struct {
	Path string
	SHA  string
}

// FetchFile returns the decoded content of a file inside owner/repo. Failures are
// logged and reported as absent.
func (s *Service) FetchFile(ctx context.Context, owner, repo, filePath string) ([]byte, bool) {
	data, err := s.getRepoFile(ctx, owner, repo, filePath)
	if err != nil {
		log.FromContext(ctx).WithPrefix("github").Error("github api error",
			"repo", owner+"/"+repo, "path", filePath, "err", err)
		return nil, false
	}
	return data, true
}

// FetchJSON decodes a JSON file inside owner/repo into v and returns the raw document
func (s *Service) FetchJSON(ctx context.Context, owner, repo, filePath string, v any) ([]byte, bool) {
	data, ok := s.FetchFile(ctx, owner, repo, filePath)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.FromContext(ctx).WithPrefix("github").Error("invalid json",
			"repo", owner+"/"+repo, "path", filePath, "err", err)
		return nil, false
	}
	return data, true
}

// SaveRepoFile writes a repository file to destDir, naming it after its repository path
// with "/" replaced by "_". It returns the local path.
func (s *Service) SaveRepoFile(ctx context.Context, owner, repo, filePath, destDir string) (string, bool) {
	data, ok := s.FetchFile(ctx, owner, repo, filePath)
	if !ok {
		return "", false
	}

	dest := filepath.Join(destDir, strings.ReplaceAll(trimRepoPath(filePath), "/", "_"))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		log.FromContext(ctx).WithPrefix("github").Error("creating media dir", "dir", destDir, "err", err)
		return "", false
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		log.FromContext(ctx).WithPrefix("github").Error("writing file", "file", dest, "err", err)
		return "", false
	}
	return dest, true
}

func trimRepoPath(p string) string {
	return strings.TrimLeft(p, `/\`)
}

// getRepoFile lists the parent directory, locates the exact path and decodes its blob
func (s *Service) getRepoFile(ctx context.Context, owner, repo, filePath string) ([]byte, error) {
	target := trimRepoPath(filePath)
	if target == "" {
		return nil, fmt.Errorf("empty path: %w", ErrNotFound)
	}

	dir := path.Dir(target)
	if dir == "." {
		dir = ""
	}

	entries, err := s.listDirectory(ctx, owner, repo, dir)
	if err != nil {
		return nil, err
	}

	var sha string
	for _, entry := range entries {
		if entry.Path == target {
			sha = entry.SHA
			break
		}
	}
	if sha == "" {
		return nil, fmt.Errorf("%s not in directory listing: %w", target, ErrNotFound)
	}

	blob, resp, err := s.github.Git.GetBlob(ctx, owner, repo, sha)
	if err != nil {
		return nil, fmt.Errorf("getting blob %s: %w", sha, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("getting blob %s: %w: %d", sha, ErrBadStatus, resp.StatusCode)
	}

	content := blob.GetContent()
	switch blob.GetEncoding() {
	case "base64":
		data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("decoding blob %s: %w", sha, err)
		}
		return data, nil
	case "utf-8", "":
		return []byte(content), nil
	default:
		return nil, fmt.Errorf("unsupported blob encoding %q", blob.GetEncoding())
	}
}

// listDirectory returns a directory listing, cached per repository directory for the run
func (s *Service) listDirectory(ctx context.Context, owner, repo, dir string) ([]repoEntry, error) {
	key := owner + "/" + repo + ":" + dir

	if cached, found := s.listingCache.Get(key); found {
		return cached.([]repoEntry), nil
	}

	_, contents, _, err := s.github.Repositories.GetContents(ctx, owner, repo, dir, nil)
	if err != nil {
		return nil, fmt.Errorf("listing %s/%s/%s: %w", owner, repo, dir, err)
	}
	if contents == nil {
		return nil, fmt.Errorf("%s/%s/%s is not a directory: %w", owner, repo, dir, ErrNotFound)
	}

	entries := make([]repoEntry, 0, len(contents))
	for _, c := range contents {
		entries = append(entries, repoEntry{Path: c.GetPath(), SHA: c.GetSHA()})
	}

	s.listingCache.Set(key, entries, cache.NoExpiration)

	return entries, nil
}
