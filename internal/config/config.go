package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir       string `toml:"data_dir"`
	LockDir       string `toml:"lock_dir"`
	TempDir       string `toml:"temp_dir"`
	LogDir        string `toml:"log_dir"`
	TemplatesFile string `toml:"templates_file"`
}

// Tools names the external executables the workers shell out to.
type Tools struct {
	FFmpeg   string `toml:"ffmpeg"`
	FFprobe  string `toml:"ffprobe"`
	Soffice  string `toml:"soffice"`
	Pdftoppm string `toml:"pdftoppm"`
}

// Processor contains queue processing settings.
type Processor struct {
	// Workers is the resolution order; the first worker accepting an item wins.
	Workers []string `toml:"workers"`
	// ItemTimeout bounds a single item's processing, in seconds.
	ItemTimeout     int `toml:"item_timeout"`
	BatchSize       int `toml:"batch_size"`
	StaleAfterHours int `toml:"stale_after_hours"`
	// RunInterval is the seconds between queue runs under `mediacache serve`; 0 disables.
	RunInterval int `toml:"run_interval"`
}

// Volume maps a volume identifier to the directory holding its files.
type Volume struct {
	ID   string `toml:"id"`
	Root string `toml:"root"`
}

// Storage describes one named storage backend.
type Storage struct {
	Name       string `toml:"name"`
	Type       string `toml:"type"`
	Dir        string `toml:"dir"`
	MinFreeMiB int    `toml:"min_free_mib"`
}

// MediaType registers or overrides a media type.
type MediaType struct {
	Key        string   `toml:"key"`
	Category   string   `toml:"category"`
	MimeType   string   `toml:"mime_type"`
	Extensions []string `toml:"extensions"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// HTTP contains the status server settings.
type HTTP struct {
	Bind string `toml:"bind"`
}

// Notifications configures ntfy delivery of queue run summaries.
type Notifications struct {
	// NtfyTopic is the full topic URL; empty disables notifications.
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	// OnlyFailures suppresses summaries for runs without failed items.
	OnlyFailures bool `toml:"only_failures"`
}

// Config encapsulates all configuration values for mediacache.
//
// Configuration sections by subsystem:
//   - Paths: data, lock, scratch and log directories plus the templates file
//   - Tools: external binaries (ffmpeg, ffprobe, soffice, pdftoppm)
//   - Processor: worker order, per-item timeout, batch size, health window
//   - Volumes: source volumes ([[volume]])
//   - Storages: derivative storage backends ([[storage]])
//   - MediaTypes: additional media types ([[media_type]])
//   - Logging: log format and level
//   - HTTP: status server bind address
//   - Notifications: ntfy topic for queue run summaries
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	Processor     Processor     `toml:"processor"`
	Volumes       []Volume      `toml:"volume"`
	Storages      []Storage     `toml:"storage"`
	MediaTypes    []MediaType   `toml:"media_type"`
	Logging       Logging       `toml:"logging"`
	HTTP          HTTP          `toml:"http"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// Arrays of tables replace the defaults rather than appending to them.
		cfg.Storages = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if len(cfg.Storages) == 0 {
			cfg.Storages = Default().Storages
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediacache.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for queue processing.
// Volume roots are not created: they belong to whoever uploads the media.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LockDir, c.Paths.TempDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, storage := range c.Storages {
		if strings.TrimSpace(storage.Dir) == "" {
			continue
		}
		if err := os.MkdirAll(storage.Dir, 0o755); err != nil {
			return fmt.Errorf("create storage directory %q: %w", storage.Dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "mediacache.db")
}

// NotificationTimeout returns the ntfy request timeout.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

// ItemTimeout returns the per-item processing deadline.
func (c *Config) ItemTimeout() time.Duration {
	return time.Duration(c.Processor.ItemTimeout) * time.Second
}

// StaleAfter returns the age after which the last queue run is reported as stale.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Processor.StaleAfterHours) * time.Hour
}

// RunInterval returns the periodic queue interval used by the status server.
func (c *Config) RunInterval() time.Duration {
	return time.Duration(c.Processor.RunInterval) * time.Second
}

// FFmpegBinary returns the ffmpeg executable used for transcoding.
func (c *Config) FFmpegBinary() string {
	return binaryOrDefault(c.Tools.FFmpeg, "ffmpeg")
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return binaryOrDefault(c.Tools.FFprobe, "ffprobe")
}

// SofficeBinary returns the LibreOffice executable used for document conversion.
func (c *Config) SofficeBinary() string {
	return binaryOrDefault(c.Tools.Soffice, "soffice")
}

// PdftoppmBinary returns the poppler rasterizer used for document previews.
func (c *Config) PdftoppmBinary() string {
	return binaryOrDefault(c.Tools.Pdftoppm, "pdftoppm")
}

func binaryOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultTempDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "mediacache", "tmp")
	}
	return "~/.cache/mediacache/tmp"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// StorageByName returns the named storage section.
func (c *Config) StorageByName(name string) (Storage, bool) {
	for _, storage := range c.Storages {
		if storage.Name == name {
			return storage, true
		}
	}
	return Storage{}, false
}
