package mediacache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediacache/internal/database"
)

const itemColumns = "id, volume_id, file_id, file_version, template_key, template_revision, cache_status, queue_status, mime_type, media_type, extension, file_size, width, height, error, created_at, updated_at, finished_at"

// Manager persists cache items.
type Manager struct {
	db  *database.DB
	now func() time.Time
}

// NewManager constructs a Manager over an open database.
func NewManager(db *database.DB) *Manager {
	return &Manager{db: db, now: time.Now}
}

// UpdateCacheItem inserts or updates item by ID.
func (m *Manager) UpdateCacheItem(ctx context.Context, item *CacheItem) error {
	if item == nil {
		return errors.New("cache item is nil")
	}
	if strings.TrimSpace(item.ID) == "" {
		return errors.New("cache item id is required")
	}
	if err := item.Identity().Validate(); err != nil {
		return err
	}
	if _, err := ParseCacheStatus(string(item.CacheStatus)); err != nil {
		return err
	}
	if _, err := ParseQueueStatus(string(item.QueueStatus)); err != nil {
		return err
	}
	now := m.now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	if _, err := m.db.Exec(
		ctx,
		`INSERT INTO cache_items (`+itemColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             volume_id = excluded.volume_id, file_id = excluded.file_id,
             file_version = excluded.file_version, template_key = excluded.template_key,
             template_revision = excluded.template_revision, cache_status = excluded.cache_status,
             queue_status = excluded.queue_status, mime_type = excluded.mime_type,
             media_type = excluded.media_type, extension = excluded.extension,
             file_size = excluded.file_size, width = excluded.width, height = excluded.height,
             error = excluded.error, updated_at = excluded.updated_at, finished_at = excluded.finished_at`,
		item.ID,
		item.VolumeID,
		item.FileID,
		item.FileVersion,
		item.TemplateKey,
		item.TemplateRevision,
		item.CacheStatus,
		item.QueueStatus,
		database.NullableString(item.MimeType),
		database.NullableString(item.MediaType),
		database.NullableString(item.Extension),
		item.FileSize,
		database.NullableInt(item.Width),
		database.NullableInt(item.Height),
		database.NullableString(item.Error),
		database.FormatTime(item.CreatedAt),
		database.FormatTime(item.UpdatedAt),
		database.NullableTime(item.FinishedAt),
	); err != nil {
		return fmt.Errorf("update cache item %s: %w", item.ID, err)
	}
	return nil
}

// Get fetches a cache item by identifier. A missing item yields nil, nil.
func (m *Manager) Get(ctx context.Context, id string) (*CacheItem, error) {
	row := m.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM cache_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache item: %w", err)
	}
	return item, nil
}

// FindByIdentity returns the item for an identity, or nil when none exists.
func (m *Manager) FindByIdentity(ctx context.Context, identity Identity) (*CacheItem, error) {
	row := m.db.QueryRow(
		ctx,
		`SELECT `+itemColumns+` FROM cache_items
         WHERE volume_id = ? AND file_id = ? AND file_version = ? AND template_key = ? AND template_revision = ?`,
		identity.VolumeID,
		identity.FileID,
		identity.FileVersion,
		identity.TemplateKey,
		identity.TemplateRevision,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find cache item by identity: %w", err)
	}
	return item, nil
}

// Enqueue creates the item for identity, or resets an existing one, so the
// next queue run processes it.
func (m *Manager) Enqueue(ctx context.Context, identity Identity) (*CacheItem, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	item, err := m.FindByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	if item == nil {
		item = &CacheItem{
			ID:               uuid.NewString(),
			VolumeID:         identity.VolumeID,
			FileID:           identity.FileID,
			FileVersion:      identity.FileVersion,
			TemplateKey:      identity.TemplateKey,
			TemplateRevision: identity.TemplateRevision,
		}
	}
	item.CacheStatus = StatusPending
	item.QueueStatus = QueueQueued
	item.Error = ""
	item.FinishedAt = nil
	if err := m.UpdateCacheItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Queue returns up to limit queued items, oldest first. A limit <= 0 returns all.
func (m *Manager) Queue(ctx context.Context, limit int) (*Queue, error) {
	items, err := m.List(ctx, Filter{QueueStatuses: []QueueStatus{QueueQueued}, Limit: limit})
	if err != nil {
		return nil, err
	}
	return NewQueue(items...), nil
}

// List returns items matching filter ordered by creation time.
func (m *Manager) List(ctx context.Context, filter Filter) ([]*CacheItem, error) {
	var (
		clauses []string
		args    []any
	)
	if len(filter.CacheStatuses) > 0 {
		clauses = append(clauses, "cache_status IN ("+database.Placeholders(len(filter.CacheStatuses))+")")
		for _, status := range filter.CacheStatuses {
			args = append(args, status)
		}
	}
	if len(filter.QueueStatuses) > 0 {
		clauses = append(clauses, "queue_status IN ("+database.Placeholders(len(filter.QueueStatuses))+")")
		for _, status := range filter.QueueStatuses {
			args = append(args, status)
		}
	}
	if filter.TemplateKey != "" {
		clauses = append(clauses, "template_key = ?")
		args = append(args, filter.TemplateKey)
	}
	if filter.FileID != "" {
		clauses = append(clauses, "file_id = ?")
		args = append(args, filter.FileID)
	}

	query := `SELECT ` + itemColumns + ` FROM cache_items`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := m.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cache items: %w", err)
	}
	defer rows.Close()

	var items []*CacheItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cache item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Stats returns item counts grouped by cache and queue status.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		ByCacheStatus: make(map[CacheStatus]int),
		ByQueueStatus: make(map[QueueStatus]int),
	}
	rows, err := m.db.Query(ctx, `SELECT cache_status, queue_status, COUNT(1) FROM cache_items GROUP BY cache_status, queue_status`)
	if err != nil {
		return stats, fmt.Errorf("cache stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cacheStatus CacheStatus
			queueStatus QueueStatus
			count       int
		)
		if err := rows.Scan(&cacheStatus, &queueStatus, &count); err != nil {
			return stats, err
		}
		stats.Total += count
		stats.ByCacheStatus[cacheStatus] += count
		stats.ByQueueStatus[queueStatus] += count
	}
	return stats, rows.Err()
}

// RetryFailed re-queues every item whose last run errored.
func (m *Manager) RetryFailed(ctx context.Context) (int64, error) {
	res, err := m.db.Exec(
		ctx,
		`UPDATE cache_items SET cache_status = ?, queue_status = ?, error = NULL, finished_at = NULL, updated_at = ?
         WHERE queue_status = ?`,
		StatusPending,
		QueueQueued,
		database.FormatTime(m.now()),
		QueueError,
	)
	if err != nil {
		return 0, fmt.Errorf("retry failed items: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes an item. The boolean reports whether a row existed.
func (m *Manager) Delete(ctx context.Context, id string) (bool, error) {
	res, err := m.db.Exec(ctx, `DELETE FROM cache_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete cache item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*CacheItem, error) {
	var (
		item        CacheItem
		cacheStatus string
		queueStatus string
		mimeType    sql.NullString
		mediaType   sql.NullString
		extension   sql.NullString
		width       sql.NullInt64
		height      sql.NullInt64
		errorText   sql.NullString
		createdRaw  string
		updatedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&item.ID,
		&item.VolumeID,
		&item.FileID,
		&item.FileVersion,
		&item.TemplateKey,
		&item.TemplateRevision,
		&cacheStatus,
		&queueStatus,
		&mimeType,
		&mediaType,
		&extension,
		&item.FileSize,
		&width,
		&height,
		&errorText,
		&createdRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	item.CacheStatus = CacheStatus(cacheStatus)
	item.QueueStatus = QueueStatus(queueStatus)
	item.MimeType = mimeType.String
	item.MediaType = mediaType.String
	item.Extension = extension.String
	item.Width = database.IntPtr(width)
	item.Height = database.IntPtr(height)
	item.Error = errorText.String
	if created, err := database.ParseTime(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := database.ParseTime(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	item.FinishedAt = database.ParseNullTime(finishedRaw)
	return &item, nil
}
