package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var validCategories = []string{"video", "image", "audio", "document", "archive", "other"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateProcessor(); err != nil {
		return err
	}
	if err := c.validateVolumes(); err != nil {
		return err
	}
	if err := c.validateStorages(); err != nil {
		return err
	}
	if err := c.validateMediaTypes(); err != nil {
		return err
	}
	if topic := c.Notifications.NtfyTopic; topic != "" &&
		!strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LockDir) == "" {
		return errors.New("paths.lock_dir must be set")
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		return errors.New("paths.temp_dir must be set")
	}
	return nil
}

func (c *Config) validateProcessor() error {
	if err := ensurePositiveMap(map[string]int{
		"processor.item_timeout": c.Processor.ItemTimeout,
		"processor.batch_size":   c.Processor.BatchSize,
	}); err != nil {
		return err
	}
	if len(c.Processor.Workers) == 0 {
		return errors.New("processor.workers must list at least one worker")
	}
	seen := make(map[string]struct{}, len(c.Processor.Workers))
	for _, name := range c.Processor.Workers {
		if !slices.Contains(KnownWorkers, name) {
			return fmt.Errorf("processor.workers: unknown worker %q (valid: %s)", name, strings.Join(KnownWorkers, ", "))
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("processor.workers: worker %q listed twice", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func (c *Config) validateVolumes() error {
	seen := make(map[string]struct{}, len(c.Volumes))
	for i, volume := range c.Volumes {
		if volume.ID == "" {
			return fmt.Errorf("volume[%d].id must be set", i)
		}
		if volume.Root == "" {
			return fmt.Errorf("volume %q: root must be set", volume.ID)
		}
		if _, dup := seen[volume.ID]; dup {
			return fmt.Errorf("volume %q defined twice", volume.ID)
		}
		seen[volume.ID] = struct{}{}
	}
	return nil
}

func (c *Config) validateStorages() error {
	if len(c.Storages) == 0 {
		return errors.New("at least one [[storage]] backend must be configured")
	}
	seen := make(map[string]struct{}, len(c.Storages))
	for i, storage := range c.Storages {
		if storage.Name == "" {
			return fmt.Errorf("storage[%d].name must be set", i)
		}
		if _, dup := seen[storage.Name]; dup {
			return fmt.Errorf("storage %q defined twice", storage.Name)
		}
		seen[storage.Name] = struct{}{}
		if storage.Type != "filesystem" {
			return fmt.Errorf("storage %q: unsupported type %q", storage.Name, storage.Type)
		}
		if storage.Dir == "" {
			return fmt.Errorf("storage %q: dir must be set", storage.Name)
		}
	}
	return nil
}

func (c *Config) validateMediaTypes() error {
	for i, mt := range c.MediaTypes {
		if mt.Key == "" {
			return fmt.Errorf("media_type[%d].key must be set", i)
		}
		if !slices.Contains(validCategories, mt.Category) {
			return fmt.Errorf("media_type %q: unknown category %q", mt.Key, mt.Category)
		}
		if mt.MimeType == "" {
			return fmt.Errorf("media_type %q: mime_type must be set", mt.Key)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
