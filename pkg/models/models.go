package models

import (
	"encoding/json"
	"fmt"
)

// Sentinel references the front-end treats as "unavailable" rather than real assets
const (
	PlaceholderBanner   = "tempBanner.gif"
	PlaceholderMarkdown = "tempMarkdown.md"
)

// CatalogEntry represents one game of the static catalog
type CatalogEntry struct {
	Title    string   `json:"title" yaml:"title"`
	Owner    string   `json:"owner,omitempty" yaml:"owner,omitempty"`
	Repo     string   `json:"repo,omitempty" yaml:"repo,omitempty"`
	Path     string   `json:"path,omitempty" yaml:"path,omitempty"`
	Banner   string   `json:"banner,omitempty" yaml:"banner,omitempty"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`
	Semester string   `json:"semester,omitempty" yaml:"semester,omitempty"`
	Install  bool     `json:"install,omitempty" yaml:"install,omitempty"`
	Scripts  []string `json:"scripts,omitempty" yaml:"scripts,omitempty"`
	PlayLink string   `json:"playLink,omitempty" yaml:"playLink,omitempty"`
}

// HasRepository reports whether the entry names a source repository
func (e CatalogEntry) HasRepository() bool {
	return e.Owner != "" && e.Repo != ""
}

// HasBuildRecipe reports whether the entry asks for dependency install or scripts
func (e CatalogEntry) HasBuildRecipe() bool {
	return e.Install || len(e.Scripts) > 0
}

// GameManifest represents the per-game document consumed by the game page
type GameManifest struct {
	Title               string      `json:"title"`
	ByLine              string      `json:"byLine"`
	RepoOwner           string      `json:"repoOwner,omitempty"`
	RepoName            string      `json:"repoName,omitempty"`
	BannerTitleURI      string      `json:"bannerTitleURI,omitempty"`
	BannerWideURI       *string     `json:"bannerWideURI,omitempty"`
	MarkdownURI         string      `json:"markdownURI,omitempty"`
	WebPlayLink         *string     `json:"webPlayLink,omitempty"`
	WindowsDownloadLink *string     `json:"windowsDownloadLink,omitempty"`
	MacOSDownloadLink   *string     `json:"macOSDownloadLink,omitempty"`
	Media               []MediaItem `json:"media"`
}

// MediaDoneLoading reports whether every media item resolved to something displayable
func (g *GameManifest) MediaDoneLoading() bool {
	for _, m := range g.Media {
		if !m.Ready() {
			return false
		}
	}
	return true
}

// Clone returns a copy of g that shares no pointers with it
func (g *GameManifest) Clone() *GameManifest {
	c := *g
	c.BannerWideURI = cloneString(g.BannerWideURI)
	c.WebPlayLink = cloneString(g.WebPlayLink)
	c.WindowsDownloadLink = cloneString(g.WindowsDownloadLink)
	c.MacOSDownloadLink = cloneString(g.MacOSDownloadLink)
	if g.Media != nil {
		c.Media = make([]MediaItem, len(g.Media))
		for i, m := range g.Media {
			if m.Image != nil {
				img := *m.Image
				m.Image = &img
			}
			if m.Video != nil {
				video := *m.Video
				m.Video = &video
			}
			c.Media[i] = m
		}
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// MediaKind discriminates the payload of a MediaItem
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// ImageMedia is the payload of an image media item
type ImageMedia struct {
	Link  string
	Thumb string
}

// VideoMedia is the payload of a Vimeo video media item
type VideoMedia struct {
	VimeoID string
	Thumb   string
}

// MediaItem is one image or video attached to a game. Exactly one of Image and Video
// is set, matching Kind.
type MediaItem struct {
	Kind  MediaKind
	Title string
	Alt   string
	Image *ImageMedia
	Video *VideoMedia
}

// NewImage creates an image media item
func NewImage(title, alt, link, thumb string) MediaItem {
	return MediaItem{Kind: MediaImage, Title: title, Alt: alt, Image: &ImageMedia{Link: link, Thumb: thumb}}
}

// NewVideo creates a video media item
func NewVideo(title, alt, vimeoID, thumb string) MediaItem {
	return MediaItem{Kind: MediaVideo, Title: title, Alt: alt, Video: &VideoMedia{VimeoID: vimeoID, Thumb: thumb}}
}

// Ready reports whether the item has a local reference to show
func (m MediaItem) Ready() bool {
	switch m.Kind {
	case MediaImage:
		return m.Image != nil && m.Image.Link != ""
	case MediaVideo:
		return m.Video != nil && m.Video.Thumb != ""
	}
	return false
}

// mediaItemJSON is the flat wire shape shared by both kinds
type mediaItemJSON struct {
	Type    MediaKind `json:"type,omitempty"`
	Title   string    `json:"title,omitempty"`
	Alt     string    `json:"alt,omitempty"`
	Link    string    `json:"link,omitempty"`
	Thumb   string    `json:"thumb,omitempty"`
	VimeoID idString  `json:"vimeoID,omitempty"`
}

// idString accepts identifiers written either as JSON strings or numbers
type idString string

func (s *idString) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = idString(n.String())
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("vimeoID must be a string or number: %w", err)
	}
	*s = idString(str)
	return nil
}

// MarshalJSON writes the item in its flat form
func (m MediaItem) MarshalJSON() ([]byte, error) {
	out := mediaItemJSON{Type: m.Kind, Title: m.Title, Alt: m.Alt}
	switch m.Kind {
	case MediaImage:
		if m.Image != nil {
			out.Link = m.Image.Link
			out.Thumb = m.Image.Thumb
		}
	case MediaVideo:
		if m.Video != nil {
			out.VimeoID = idString(m.Video.VimeoID)
			out.Thumb = m.Video.Thumb
		}
	default:
		return nil, fmt.Errorf("unknown media kind %q", m.Kind)
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat form. Items whose type is missing or not one of the
// known kinds are videos when they carry a vimeoID and images otherwise.
func (m *MediaItem) UnmarshalJSON(data []byte) error {
	var in mediaItemJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	kind := in.Type
	if kind != MediaImage && kind != MediaVideo {
		kind = MediaImage
		if in.VimeoID != "" {
			kind = MediaVideo
		}
	}

	if kind == MediaVideo {
		*m = NewVideo(in.Title, in.Alt, string(in.VimeoID), in.Thumb)
	} else {
		*m = NewImage(in.Title, in.Alt, in.Link, in.Thumb)
	}
	return nil
}

// CatalogIndexEntry is one row of the gallery index document
type CatalogIndexEntry struct {
	GameTitle   string `json:"gameTitle" yaml:"gameTitle"`
	GameDataURL string `json:"gameDataURL" yaml:"gameDataURL"`
	GameMDURL   string `json:"gameMDURL" yaml:"gameMDURL"`
	BannerLink  string `json:"bannerLink" yaml:"bannerLink"`
	Cols        int    `json:"cols" yaml:"cols"`
}

// ArchiveIndexEntry is one row of the playable-builds index written by the archive pipeline
type ArchiveIndexEntry struct {
	Title     string `json:"title"`
	SafeTitle string `json:"safeTitle"`
	Semester  string `json:"semester,omitempty"`
	Year      int    `json:"year,omitempty"`
	Banner    string `json:"banner"`
	PlayLink  string `json:"playLink"`
}

// Index represents the preview page data
type Index struct {
	Games []IndexGame
}

// IndexGame is an index row plus the link of its preview page
type IndexGame struct {
	CatalogIndexEntry
	PageLink string
}
