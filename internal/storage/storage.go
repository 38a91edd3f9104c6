// Package storage persists finished derivatives under the backend named by a
// template.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mediacache/internal/config"
	"mediacache/internal/mediacache"
)

var (
	// ErrStorageNotFound is returned for backend names that are not configured.
	ErrStorageNotFound = errors.New("storage not found")
	// ErrInsufficientSpace is returned when a store would breach the free-space floor.
	ErrInsufficientSpace = errors.New("insufficient free space")
)

// Storage durably persists the rendition of a cache item. Store must be
// idempotent for the same item ID: a repeated store overwrites in place.
type Storage interface {
	Name() string
	Store(ctx context.Context, item *mediacache.CacheItem, localPath string) error
	Locate(item *mediacache.CacheItem) (string, bool, error)
	Remove(ctx context.Context, item *mediacache.CacheItem) error
}

// Manager resolves storage backends by name.
type Manager struct {
	backends map[string]Storage
}

// NewManager builds every [[storage]] backend in cfg.
func NewManager(cfg *config.Config, logger *slog.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	m := &Manager{backends: make(map[string]Storage, len(cfg.Storages))}
	for _, entry := range cfg.Storages {
		switch entry.Type {
		case "", "filesystem":
			m.backends[entry.Name] = NewFilesystem(entry.Name, entry.Dir, uint64(entry.MinFreeMiB)*1024*1024, logger)
		default:
			return nil, fmt.Errorf("storage %q: unsupported type %q", entry.Name, entry.Type)
		}
	}
	return m, nil
}

// NewManagerWith builds a manager over explicit backends.
func NewManagerWith(backends ...Storage) *Manager {
	m := &Manager{backends: make(map[string]Storage, len(backends))}
	for _, backend := range backends {
		m.backends[backend.Name()] = backend
	}
	return m
}

// Get returns the backend registered under name.
func (m *Manager) Get(name string) (Storage, error) {
	if m != nil {
		if backend, ok := m.backends[name]; ok {
			return backend, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrStorageNotFound, name)
}
