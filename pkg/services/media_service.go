package services

import (
	"context"
	"errors"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"game-showcase/pkg/models"
)

// isRemote reports whether a link is fetched over HTTP rather than from the repository
func isRemote(link string) bool {
	return strings.HasPrefix(strings.ToUpper(link), "HTTP")
}

// localPath maps a web-relative reference back to its file under the public root
func (s *Service) localPath(ref string) string {
	return filepath.Join(s.config.Paths.Public, filepath.FromSlash(ref))
}

// webPath turns a file under the public root into a web-relative reference with forward
// slashes. Files outside the root lose their leading segment instead.
func (s *Service) webPath(local string) string {
	if rel, err := filepath.Rel(s.config.Paths.Public, local); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	slashed := filepath.ToSlash(local)
	if idx := strings.Index(slashed, "/"); idx != -1 {
		return slashed[idx+1:]
	}
	return slashed
}

// remoteFileName derives the local name of a downloaded URL: the game's safe title,
// an underscore, then the last segment of the URL path
func remoteFileName(safeTitle, link string) string {
	last := link
	if u, err := url.Parse(link); err == nil && u.Path != "" {
		last = path.Base(u.Path)
	}
	return safeTitle + "_" + getSafeFilename(last)
}

// ResolveLink fetches one manifest reference into destDir, from the web when the link is
// an HTTP URL and from owner/repo otherwise. It returns the local file path.
func (s *Service) ResolveLink(ctx context.Context, link, owner, repo, safeTitle, destDir string) (string, bool) {
	if !isRemote(link) {
		return s.SaveRepoFile(ctx, owner, repo, link, destDir)
	}

	dest := filepath.Join(destDir, remoteFileName(safeTitle, link))
	if err := s.downloader.Download(ctx, link, dest); err != nil {
		log.FromContext(ctx).WithPrefix("media").Error("download failed", "url", link, "err", err)
		return "", false
	}
	return dest, true
}

// NormalizeMedia resolves every media item of game into destDir, in list order.
// Items that cannot be resolved are logged and left without a local link.
func (s *Service) NormalizeMedia(ctx context.Context, game *models.GameManifest, safeTitle, destDir string) {
	logger := log.FromContext(ctx).WithPrefix("media")

	for i := range game.Media {
		if ctx.Err() != nil {
			return
		}

		item := &game.Media[i]
		switch item.Kind {
		case models.MediaVideo:
			if item.Video == nil || item.Video.VimeoID == "" {
				logger.Error("video without vimeo id", "title", item.Title)
				item.Video = &models.VideoMedia{Thumb: s.config.Vimeo.PlaceholderURL}
				continue
			}
			if !isVimeoID(item.Video.VimeoID) {
				logger.Error("invalid vimeo id", "title", item.Title, "video", item.Video.VimeoID)
				item.Video.Thumb = s.config.Vimeo.PlaceholderURL
				continue
			}
			item.Video.Thumb = s.resolveVideoThumb(ctx, item.Video.VimeoID, destDir)
			logger.Info("saved", "thumb", item.Video.Thumb)

		case models.MediaImage:
			if item.Image == nil || item.Image.Link == "" {
				logger.Error("failed to retrieve media (missing link)", "title", item.Title)
				item.Image = &models.ImageMedia{}
				continue
			}
			s.resolveImage(ctx, game, item.Image, safeTitle, destDir)

		default:
			logger.Error("unknown media kind", "title", item.Title, "kind", item.Kind)
		}
	}
}

func (s *Service) resolveImage(ctx context.Context, game *models.GameManifest, img *models.ImageMedia, safeTitle, destDir string) {
	logger := log.FromContext(ctx).WithPrefix("media")

	local, ok := s.ResolveLink(ctx, img.Link, game.RepoOwner, game.RepoName, safeTitle, destDir)
	if !ok {
		logger.Error("failed to retrieve media", "link", img.Link)
		img.Link = ""
		img.Thumb = ""
		return
	}
	img.Link = s.webPath(local)
	img.Thumb = ""
	logger.Info("saved", "file", local)

	thumb, err := GenerateThumbnail(local)
	switch {
	case errors.Is(err, ErrNotImage):
		logger.Debug("not thumbnailing", "file", local, "err", err)
	case err != nil:
		logger.Error("failed to make thumbnail", "file", local, "err", err)
	default:
		img.Thumb = s.webPath(thumb)
		logger.Info("saved", "file", thumb)
	}
}

// isVimeoID reports whether id is a numeric video id, which also makes it safe as a file name
func isVimeoID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// resolveVideoThumb downloads the video's thumbnail to destDir/<id>.jpg. When that fails
// the placeholder is downloaded instead, and when that fails too its URL is returned.
func (s *Service) resolveVideoThumb(ctx context.Context, videoID, destDir string) string {
	logger := log.FromContext(ctx).WithPrefix("media")
	placeholder := s.config.Vimeo.PlaceholderURL
	dest := filepath.Join(destDir, videoID+".jpg")

	thumbURL := s.VimeoThumbnailURL(ctx, videoID)
	err := s.downloader.Download(ctx, thumbURL, dest)
	if err == nil {
		return s.webPath(dest)
	}
	logger.Error("failed to download video thumbnail", "video", videoID, "err", err)

	if thumbURL != placeholder {
		if err = s.downloader.Download(ctx, placeholder, dest); err == nil {
			return s.webPath(dest)
		}
		logger.Error("failed to download placeholder", "url", placeholder, "err", err)
	}
	return placeholder
}
