package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"
)

const (
	vimeoAccept         = "application/vnd.vimeo.*+json;version=3.4"
	vimeoThumbnailWidth = 640
)

// VimeoThumbnailURL looks up the 640px wide thumbnail (with play button) of a video.
// Any failure yields the configured placeholder URL.
func (s *Service) VimeoThumbnailURL(ctx context.Context, videoID string) string {
	logger := log.FromContext(ctx).WithPrefix("vimeo")

	link, err := s.lookupVimeoThumbnail(ctx, videoID)
	if err != nil {
		logger.Error("failed to retrieve vimeo thumbnail", "video", videoID, "err", err)
		return s.config.Vimeo.PlaceholderURL
	}
	return link
}

func (s *Service) lookupVimeoThumbnail(ctx context.Context, videoID string) (string, error) {
	endpoint := fmt.Sprintf("%svideos/%s/pictures", ensureSlash(s.config.Vimeo.BaseURL), url.PathEscape(videoID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "bearer "+s.config.Vimeo.Token)
	req.Header.Set("Accept", vimeoAccept)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	// Exact width only, no nearest-size fallback
	var link string
	gjson.GetBytes(body, "data.0.sizes").ForEach(func(_, size gjson.Result) bool {
		if size.Get("width").Int() == vimeoThumbnailWidth {
			link = size.Get("link_with_play_button").String()
			return false
		}
		return true
	})

	if link == "" {
		return "", fmt.Errorf("no %dpx rendition: %w", vimeoThumbnailWidth, ErrNotFound)
	}
	return link, nil
}

func ensureSlash(base string) string {
	if base == "" || base[len(base)-1] != '/' {
		return base + "/"
	}
	return base
}
