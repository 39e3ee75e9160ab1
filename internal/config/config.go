// Package config provides configuration loading and structs for the kioku server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kioku/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Vector    VectorConfig    `yaml:"vector"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Upload    UploadConfig    `yaml:"upload"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects the document store. Driver is "memory" or "sqlite".
type StorageConfig struct {
	Driver       string `yaml:"driver"`
	DatabasePath string `yaml:"database_path"`
}

// VectorConfig selects the vector index backend: "memory" or "chromem".
type VectorConfig struct {
	Backend string `yaml:"backend"`
}

// EmbeddingConfig holds embedding backend settings.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	BatchSize      int    `yaml:"batch_size"`
	CacheSize      int    `yaml:"cache_size"`
	Dimensions     int    `yaml:"dimensions"` // mock provider only
}

// Timeout returns the request timeout as a duration.
func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// ChunkingConfig holds chunker settings. Overlap is a pointer so an explicit 0 survives defaults.
type ChunkingConfig struct {
	ChunkSize    int  `yaml:"chunk_size"`
	ChunkOverlap *int `yaml:"chunk_overlap"`
	MaxChunks    int  `yaml:"max_chunks"`
}

// Overlap returns the configured overlap.
func (c ChunkingConfig) Overlap() int {
	if c.ChunkOverlap == nil {
		return DefaultChunkOverlap
	}
	return *c.ChunkOverlap
}

// RetrievalConfig holds retrieval defaults.
type RetrievalConfig struct {
	TopK      int      `yaml:"top_k"`
	Threshold *float64 `yaml:"similarity_threshold"`
}

// ThresholdOrDefault returns the configured similarity threshold.
func (r RetrievalConfig) ThresholdOrDefault() float64 {
	if r.Threshold == nil {
		return DefaultSimilarityThreshold
	}
	return *r.Threshold
}

// UploadConfig restricts what may be uploaded.
type UploadConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`
	SupportedTypes []string `yaml:"supported_types"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
	DebounceMS  int      `yaml:"debounce_ms"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies defaults, expands paths and validates.
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
	applyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated configuration built only from defaults and environment.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	applyEnv(&cfg)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, ".")
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", models.ErrInvalidConfiguration, c.Chunking.ChunkSize)
	}
	if c.Chunking.Overlap() < 0 {
		return fmt.Errorf("%w: chunk_overlap must not be negative", models.ErrInvalidConfiguration)
	}
	if c.Chunking.MaxChunks <= 0 {
		return fmt.Errorf("%w: max_chunks must be positive", models.ErrInvalidConfiguration)
	}
	if th := c.Retrieval.ThresholdOrDefault(); th < -1 || th > 1 {
		return fmt.Errorf("%w: similarity_threshold must be within [-1, 1]", models.ErrInvalidConfiguration)
	}
	switch c.Storage.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("%w: unknown storage driver %q", models.ErrInvalidConfiguration, c.Storage.Driver)
	}
	switch c.Vector.Backend {
	case "memory", "chromem":
	default:
		return fmt.Errorf("%w: unknown vector backend %q", models.ErrInvalidConfiguration, c.Vector.Backend)
	}
	switch c.Embedding.Provider {
	case "ollama", "openai", "mock":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", models.ErrInvalidConfiguration, c.Embedding.Provider)
	}
	return nil
}

// SupportsType reports whether ext (with or without the leading dot) may be uploaded.
func (u UploadConfig) SupportsType(ext string) bool {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	for _, t := range u.SupportedTypes {
		if strings.TrimPrefix(strings.ToLower(t), ".") == ext {
			return true
		}
	}
	return false
}

func applyEnv(cfg *Config) {
	if key := os.Getenv("KIOKU_EMBEDDING_API_KEY"); key != "" {
		cfg.Embedding.APIKey = key
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir,
// "~/" is the home directory, other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	path = strings.TrimPrefix(path, "~/")
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
