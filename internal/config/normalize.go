package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProcessor()
	if err := c.normalizeVolumes(); err != nil {
		return err
	}
	if err := c.normalizeStorages(); err != nil {
		return err
	}
	c.normalizeMediaTypes()
	c.normalizeLogging()
	c.normalizeNotifications()
	c.HTTP.Bind = strings.TrimSpace(c.HTTP.Bind)
	if c.HTTP.Bind == "" {
		c.HTTP.Bind = defaultHTTPBind
	}
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("MEDIACACHE_LOCK_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.LockDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("MEDIACACHE_TEMPLATES_FILE"); ok && strings.TrimSpace(value) != "" {
		c.Paths.TemplatesFile = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir()
	}
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LockDir, err = expandPath(c.Paths.LockDir); err != nil {
		return fmt.Errorf("paths.lock_dir: %w", err)
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.TemplatesFile, err = expandPath(c.Paths.TemplatesFile); err != nil {
		return fmt.Errorf("paths.templates_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeProcessor() {
	if len(c.Processor.Workers) == 0 {
		c.Processor.Workers = append([]string(nil), KnownWorkers...)
	}
	workers := make([]string, 0, len(c.Processor.Workers))
	for _, name := range c.Processor.Workers {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		workers = append(workers, normalized)
	}
	c.Processor.Workers = workers
	if c.Processor.StaleAfterHours <= 0 {
		c.Processor.StaleAfterHours = defaultStaleAfterHours
	}
	if c.Processor.RunInterval < 0 {
		c.Processor.RunInterval = 0
	}
}

func (c *Config) normalizeVolumes() error {
	for i := range c.Volumes {
		c.Volumes[i].ID = strings.TrimSpace(c.Volumes[i].ID)
		root, err := expandPath(strings.TrimSpace(c.Volumes[i].Root))
		if err != nil {
			return fmt.Errorf("volume[%d].root: %w", i, err)
		}
		c.Volumes[i].Root = root
	}
	return nil
}

func (c *Config) normalizeStorages() error {
	for i := range c.Storages {
		c.Storages[i].Name = strings.TrimSpace(c.Storages[i].Name)
		c.Storages[i].Type = strings.ToLower(strings.TrimSpace(c.Storages[i].Type))
		if c.Storages[i].Type == "" {
			c.Storages[i].Type = defaultStorageType
		}
		dir, err := expandPath(strings.TrimSpace(c.Storages[i].Dir))
		if err != nil {
			return fmt.Errorf("storage[%d].dir: %w", i, err)
		}
		c.Storages[i].Dir = dir
		if c.Storages[i].MinFreeMiB < 0 {
			c.Storages[i].MinFreeMiB = 0
		}
	}
	return nil
}

func (c *Config) normalizeMediaTypes() {
	for i := range c.MediaTypes {
		mt := &c.MediaTypes[i]
		mt.Key = strings.ToLower(strings.TrimSpace(mt.Key))
		mt.Category = strings.ToLower(strings.TrimSpace(mt.Category))
		mt.MimeType = strings.ToLower(strings.TrimSpace(mt.MimeType))
		exts := make([]string, 0, len(mt.Extensions))
		for _, ext := range mt.Extensions {
			ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
			if ext != "" {
				exts = append(exts, ext)
			}
		}
		mt.Extensions = exts
	}
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("MEDIACACHE_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeNotifications() {
	if value, ok := os.LookupEnv("MEDIACACHE_NTFY_TOPIC"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyTopic = value
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}
