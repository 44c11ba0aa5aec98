package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	GitHub  GitHubConfig  `mapstructure:"github"`
	Vimeo   VimeoConfig   `mapstructure:"vimeo"`
	Paths   PathsConfig   `mapstructure:"paths"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
}

type GitHubConfig struct {
	Token   string `mapstructure:"token"`
	BaseURL string `mapstructure:"base_url"`
}

type VimeoConfig struct {
	Token   string `mapstructure:"token"`
	BaseURL string `mapstructure:"base_url"`
	// PlaceholderURL is downloaded when a video has no usable thumbnail
	PlaceholderURL string `mapstructure:"placeholder_url"`
}

// PathsConfig locates the catalog and every output of the pipelines
type PathsConfig struct {
	Catalog      string `mapstructure:"catalog"`
	Public       string `mapstructure:"public"`
	Media        string `mapstructure:"media"`
	Repos        string `mapstructure:"repos"`
	Index        string `mapstructure:"index"`
	ArchiveIndex string `mapstructure:"archive_index"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ArchiveConfig controls how repository snapshots are obtained
type ArchiveConfig struct {
	Method string `mapstructure:"method"`
	Ref    string `mapstructure:"ref"`
	// CloneBase is prefixed to "owner/repo" to form the clone URL
	CloneBase string `mapstructure:"clone_base"`
	// BannerPlaceholderURL gets the escaped game title appended
	BannerPlaceholderURL string `mapstructure:"banner_placeholder_url"`
}

type StorageConfig struct {
	Bucket string `mapstructure:"bucket"`
}

type ServerConfig struct {
	Port  string `mapstructure:"port"`
	Views string `mapstructure:"views"`
}

// Snapshot methods
const (
	ArchiveTarball = "tarball"
	ArchiveClone   = "clone"
)

// ErrGitHubTokenNotSet is returned when no GitHub token was configured
var ErrGitHubTokenNotSet = errors.New("github token not set (SHOWCASE_GITHUB_TOKEN or --github-token)")

// ErrBucketNameNotSet is returned when publishing without a bucket
var ErrBucketNameNotSet = errors.New("storage bucket not set (SHOWCASE_STORAGE_BUCKET or --bucket)")

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	// Empty defaults make the keys visible to Unmarshal so env overrides apply
	v.SetDefault("github.token", "")
	v.SetDefault("vimeo.token", "")
	v.SetDefault("storage.bucket", "")

	v.SetDefault("github.base_url", "https://api.github.com/")
	v.SetDefault("vimeo.base_url", "https://api.vimeo.com/")
	v.SetDefault("vimeo.placeholder_url", "https://via.placeholder.com/640x360.png?text=Video+Not+Available")

	v.SetDefault("paths.catalog", "scraper/gameList.json")
	v.SetDefault("paths.public", "public")
	// media, repos and archive_index default to locations under paths.public
	v.SetDefault("paths.media", "")
	v.SetDefault("paths.repos", "")
	v.SetDefault("paths.index", "src/GamePage/gameList.json")
	v.SetDefault("paths.archive_index", "")

	v.SetDefault("http.timeout", 60*time.Second)
	v.SetDefault("log.level", "info")

	v.SetDefault("archive.method", ArchiveTarball)
	v.SetDefault("archive.ref", "master")
	v.SetDefault("archive.clone_base", "https://github.com/")
	v.SetDefault("archive.banner_placeholder_url", "https://dummyimage.com/536x300/fff/000.gif&text=")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.views", "views")
}

// Load loads configuration from the config file (if any), SHOWCASE_* environment
// variables and flags already bound to v
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("SHOWCASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("showcase")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	cfg.Paths.derive()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// derive fills the output locations left unset from the public root
func (p *PathsConfig) derive() {
	if p.Media == "" {
		p.Media = filepath.Join(p.Public, "game_media")
	}
	if p.Repos == "" {
		p.Repos = filepath.Join(p.Public, "game_repos")
	}
	if p.ArchiveIndex == "" {
		p.ArchiveIndex = filepath.Join(p.Public, "gameList.json")
	}
}

func (c *Config) validate() error {
	switch c.Archive.Method {
	case ArchiveTarball, ArchiveClone:
	default:
		return fmt.Errorf("unknown archive method %q (want %q or %q)", c.Archive.Method, ArchiveTarball, ArchiveClone)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTP.Timeout)
	}
	return nil
}

// RequireGitHubToken fails when the scrapers would run unauthenticated
func (c *Config) RequireGitHubToken() error {
	if c.GitHub.Token == "" {
		return ErrGitHubTokenNotSet
	}
	return nil
}

// RequireBucket fails when publishing has nowhere to go
func (c *Config) RequireBucket() error {
	if c.Storage.Bucket == "" {
		return ErrBucketNameNotSet
	}
	return nil
}

// ServerAddress returns the server address with port
func (c *Config) ServerAddress() string {
	return fmt.Sprintf(":%s", c.Server.Port)
}

// PrintServerStartMessage prints a message when the server starts
func (c *Config) PrintServerStartMessage() {
	fmt.Printf("Starting server at port %s\n", c.Server.Port)
	fmt.Printf("Gallery URL: http://localhost:%s/\n", c.Server.Port)
	fmt.Printf("Index URL: http://localhost:%s/api/games\n", c.Server.Port)
}
