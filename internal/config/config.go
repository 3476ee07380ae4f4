// Package config provides configuration loading and structs for the Omoide server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Media     MediaConfig     `yaml:"media"`
	Watch     WatchConfig     `yaml:"watch"`
	Organize  OrganizeConfig  `yaml:"organize"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the index artifacts and the catalog database.
type StorageConfig struct {
	IndexDir    string `yaml:"index_dir"`
	CatalogPath string `yaml:"catalog_path"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	ModelPath   string `yaml:"model_path"`
	Dimensions  int    `yaml:"dimensions"`
	VideoFrames int    `yaml:"video_frames"`
	CacheSize   int    `yaml:"cache_size"`
}

// SearchConfig holds search ranking settings.
type SearchConfig struct {
	DefaultLimit  int     `yaml:"default_limit"`
	MaxLimit      int     `yaml:"max_limit"`
	MinSimilarity float64 `yaml:"min_similarity"`
	Oversample    int     `yaml:"oversample"`
}

// MediaConfig lists the file extensions treated as images and videos.
type MediaConfig struct {
	ImageExtensions []string `yaml:"image_extensions"`
	VideoExtensions []string `yaml:"video_extensions"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// OrganizeConfig holds media organizing settings.
type OrganizeConfig struct {
	// Copy controls whether organize copies files (true, default) or moves them.
	Copy *bool `yaml:"copy"`
}

// CopyOrDefault returns whether organize should copy; defaults to true when unset.
func (o *OrganizeConfig) CopyOrDefault() bool {
	if o.Copy != nil {
		return *o.Copy
	}
	return true
}

// AllExtensions returns the image and video extension lists combined.
func (m *MediaConfig) AllExtensions() []string {
	out := make([]string, 0, len(m.ImageExtensions)+len(m.VideoExtensions))
	out = append(out, m.ImageExtensions...)
	return append(out, m.VideoExtensions...)
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	cfg.Storage.CatalogPath = expandPath(cfg.Storage.CatalogPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
