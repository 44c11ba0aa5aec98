package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/google/go-github/v30/github"
	"github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"

	"game-showcase/pkg/config"
)

var (
	// ErrNotFound is returned when a repository file or manifest does not exist
	ErrNotFound = errors.New("not found")
	// ErrBadStatus is returned for non-success HTTP responses
	ErrBadStatus = errors.New("bad status code")
)

// Service bundles the configured clients used by both scraping pipelines
type Service struct {
	config *config.Config

	github     *github.Client
	httpClient *http.Client

	// downloader fetches public URLs, repoDownloader sends the GitHub token
	downloader     *Downloader
	repoDownloader *Downloader

	listingCache  *cache.Cache
	manifestCache *cache.Cache
}

// NewService builds the GitHub, Vimeo and plain HTTP clients from cfg
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	transport := newTransport(cfg.HTTP.Timeout)

	// API calls are bounded as a whole, downloads only until the headers arrive and
	// otherwise by their context
	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout, Transport: transport}
	streamClient := &http.Client{Transport: transport}

	ghHTTP := &http.Client{Timeout: cfg.HTTP.Timeout, Transport: transport}
	ghStream := streamClient
	if cfg.GitHub.Token != "" {
		ts := oauth2.ReuseTokenSource(nil, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHub.Token}))
		authed := &oauth2.Transport{Source: ts, Base: transport}
		ghHTTP = &http.Client{Timeout: cfg.HTTP.Timeout, Transport: authed}
		ghStream = &http.Client{Transport: authed}
	}

	gh := github.NewClient(ghHTTP)
	if cfg.GitHub.BaseURL != "" {
		base, err := parseBaseURL(cfg.GitHub.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		gh.BaseURL = base
	}

	if _, err := parseBaseURL(cfg.Vimeo.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid vimeo base url: %w", err)
	}
	log.FromContext(ctx).WithPrefix("service").Debug("clients ready",
		"github", gh.BaseURL.String(), "vimeo", cfg.Vimeo.BaseURL, "timeout", cfg.HTTP.Timeout)

	return &Service{
		config:         cfg,
		github:         gh,
		httpClient:     httpClient,
		downloader:     NewDownloader(streamClient),
		repoDownloader: NewDownloader(ghStream),
		listingCache:   cache.New(cache.NoExpiration, 0),
		manifestCache:  cache.New(5*time.Minute, 10*time.Minute),
	}, nil
}

// Config returns the configuration the service was built from
func (s *Service) Config() *config.Config {
	return s.config
}

// newTransport bounds connecting and waiting for response headers by timeout
func newTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	t.ResponseHeaderTimeout = timeout
	return t
}

// parseBaseURL parses an API root and makes sure it ends with a slash
func parseBaseURL(raw string) (*url.URL, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute url", raw)
	}
	return u, nil
}

// naturalLess compares strings in a way that treats numbers as numbers rather than characters
// For example: "shot2.png" < "shot10.png" when using naturalLess
func naturalLess(s1, s2 string) bool {
	i, j := 0, 0
	for i < len(s1) && j < len(s2) {
		// Skip leading spaces
		for i < len(s1) && unicode.IsSpace(rune(s1[i])) {
			i++
		}
		for j < len(s2) && unicode.IsSpace(rune(s2[j])) {
			j++
		}

		if i >= len(s1) || j >= len(s2) {
			break
		}

		if unicode.IsDigit(rune(s1[i])) && unicode.IsDigit(rune(s2[j])) {
			start1, start2 := i, j
			for i < len(s1) && unicode.IsDigit(rune(s1[i])) {
				i++
			}
			for j < len(s2) && unicode.IsDigit(rune(s2[j])) {
				j++
			}

			n1, _ := strconv.Atoi(s1[start1:i])
			n2, _ := strconv.Atoi(s2[start2:j])
			if n1 != n2 {
				return n1 < n2
			}
		} else {
			if s1[i] != s2[j] {
				return s1[i] < s2[j]
			}
			i++
			j++
		}
	}

	return len(s1) < len(s2)
}
