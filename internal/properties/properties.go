// Package properties stores process-wide key/value settings grouped by namespace.
package properties

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediacache/internal/database"
)

// Store reads and writes properties.
type Store struct {
	db  *database.DB
	now func() time.Time
}

// New constructs a Store over an open database.
func New(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Get returns the value for namespace/key. The boolean is false when unset.
func (s *Store) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(ctx, `SELECT value FROM properties WHERE namespace = ? AND key = ?`, namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get property %s/%s: %w", namespace, key, err)
	}
	return value, true, nil
}

// Set stores value under namespace/key, replacing any previous value.
func (s *Store) Set(ctx context.Context, namespace, key, value string) error {
	if strings.TrimSpace(namespace) == "" || strings.TrimSpace(key) == "" {
		return errors.New("property namespace and key are required")
	}
	if _, err := s.db.Exec(
		ctx,
		`INSERT INTO properties (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace,
		key,
		value,
		database.FormatTime(s.now()),
	); err != nil {
		return fmt.Errorf("set property %s/%s: %w", namespace, key, err)
	}
	return nil
}

// GetTime parses a timestamp property written by SetTime.
func (s *Store) GetTime(ctx context.Context, namespace, key string) (time.Time, bool, error) {
	raw, ok, err := s.Get(ctx, namespace, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	parsed, err := database.ParseTime(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse property %s/%s: %w", namespace, key, err)
	}
	return parsed, true, nil
}

// SetTime stores t as a timestamp property.
func (s *Store) SetTime(ctx context.Context, namespace, key string, t time.Time) error {
	return s.Set(ctx, namespace, key, database.FormatTime(t))
}
