package volume

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"mediacache/internal/config"
	"mediacache/internal/database"
	"mediacache/internal/fileutil"
	"mediacache/internal/mediatype"
)

const fileCacheSize = 512

var (
	// ErrVolumeNotFound is returned for unknown volume identifiers.
	ErrVolumeNotFound = errors.New("volume not found")
	// ErrFileNotFound is returned when no record matches a file id and version.
	ErrFileNotFound = errors.New("file not found")
)

// File is a source media record.
type File struct {
	ID        string
	Version   int
	VolumeID  string
	Name      string
	RelPath   string
	Path      string
	MediaType string
	MimeType  string
	Size      int64
	CreatedAt time.Time
}

type fileKey struct {
	id      string
	version int
}

// Volume is a configured root directory holding source files.
type Volume struct {
	id    string
	root  string
	db    *database.DB
	files *lru.Cache[fileKey, File]
}

// ID returns the volume identifier.
func (v *Volume) ID() string { return v.id }

// Root returns the volume root directory.
func (v *Volume) Root() string { return v.root }

// FindFile returns the record for fileID at version.
func (v *Volume) FindFile(ctx context.Context, fileID string, version int) (*File, error) {
	key := fileKey{id: fileID, version: version}
	if cached, ok := v.files.Get(key); ok {
		file := cached
		return &file, nil
	}

	row := v.db.QueryRow(
		ctx,
		`SELECT id, version, volume_id, name, rel_path, media_type, mime_type, size, created_at
         FROM files WHERE volume_id = ? AND id = ? AND version = ?`,
		v.id, fileID, version,
	)
	file, err := v.scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s v%d in volume %s", ErrFileNotFound, fileID, version, v.id)
	}
	if err != nil {
		return nil, fmt.Errorf("find file %s v%d: %w", fileID, version, err)
	}
	v.files.Add(key, *file)
	return file, nil
}

// Files lists every file version in the volume, newest first per file.
func (v *Volume) Files(ctx context.Context) ([]*File, error) {
	rows, err := v.db.Query(
		ctx,
		`SELECT id, version, volume_id, name, rel_path, media_type, mime_type, size, created_at
         FROM files WHERE volume_id = ? ORDER BY created_at, id, version DESC`,
		v.id,
	)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		file, err := v.scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (v *Volume) scanFile(scanner interface{ Scan(dest ...any) error }) (*File, error) {
	var (
		file       File
		mediaType  sql.NullString
		mimeType   sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(
		&file.ID,
		&file.Version,
		&file.VolumeID,
		&file.Name,
		&file.RelPath,
		&mediaType,
		&mimeType,
		&file.Size,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	file.MediaType = mediaType.String
	file.MimeType = mimeType.String
	file.Path = filepath.Join(v.root, filepath.FromSlash(file.RelPath))
	if created, err := database.ParseTime(createdRaw); err == nil {
		file.CreatedAt = created
	}
	return &file, nil
}

// Manager resolves configured volumes.
type Manager struct {
	db       *database.DB
	registry *mediatype.Registry
	volumes  map[string]*Volume
	now      func() time.Time
}

// NewManager builds volumes from the [[volume]] configuration sections.
func NewManager(cfg *config.Config, db *database.DB, registry *mediatype.Registry) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if registry == nil {
		registry = mediatype.New()
	}
	m := &Manager{
		db:       db,
		registry: registry,
		volumes:  make(map[string]*Volume, len(cfg.Volumes)),
		now:      time.Now,
	}
	for _, entry := range cfg.Volumes {
		cache, err := lru.New[fileKey, File](fileCacheSize)
		if err != nil {
			return nil, fmt.Errorf("volume %s: file cache: %w", entry.ID, err)
		}
		m.volumes[entry.ID] = &Volume{id: entry.ID, root: entry.Root, db: db, files: cache}
	}
	return m, nil
}

// GetByID returns the volume registered under id.
func (m *Manager) GetByID(id string) (*Volume, error) {
	if volume, ok := m.volumes[id]; ok {
		return volume, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrVolumeNotFound, id)
}

// Register records path as a new file in the volume. Paths outside the
// volume root are copied into it first.
func (m *Manager) Register(ctx context.Context, volumeID, path string) (*File, error) {
	return m.register(ctx, volumeID, uuid.NewString(), 1, path)
}

// AddVersion records path as the next version of an existing file.
func (m *Manager) AddVersion(ctx context.Context, volumeID, fileID, path string) (*File, error) {
	volume, err := m.GetByID(volumeID)
	if err != nil {
		return nil, err
	}
	var latest sql.NullInt64
	if err := m.db.QueryRow(
		ctx,
		`SELECT MAX(version) FROM files WHERE volume_id = ? AND id = ?`,
		volume.id, fileID,
	).Scan(&latest); err != nil {
		return nil, fmt.Errorf("latest version of %s: %w", fileID, err)
	}
	if !latest.Valid {
		return nil, fmt.Errorf("%w: %s in volume %s", ErrFileNotFound, fileID, volume.id)
	}
	return m.register(ctx, volumeID, fileID, int(latest.Int64)+1, path)
}

func (m *Manager) register(ctx context.Context, volumeID, fileID string, version int, path string) (*File, error) {
	volume, err := m.GetByID(volumeID)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat source file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", abs)
	}

	rel, inside := relativeTo(volume.root, abs)
	if !inside {
		rel = filepath.Join(fileID[:2], fileID, fmt.Sprintf("v%d", version), filepath.Base(abs))
		if err := fileutil.CopyFile(abs, filepath.Join(volume.root, rel)); err != nil {
			return nil, fmt.Errorf("import into volume %s: %w", volume.id, err)
		}
	}

	mt, err := m.registry.FindByFilename(abs)
	if err != nil {
		return nil, fmt.Errorf("detect media type: %w", err)
	}

	file := &File{
		ID:        fileID,
		Version:   version,
		VolumeID:  volume.id,
		Name:      filepath.Base(abs),
		RelPath:   filepath.ToSlash(rel),
		Path:      filepath.Join(volume.root, rel),
		MediaType: mt.Key,
		MimeType:  mt.MimeType,
		Size:      info.Size(),
		CreatedAt: m.now().UTC(),
	}
	if _, err := m.db.Exec(
		ctx,
		`INSERT INTO files (volume_id, id, version, name, rel_path, media_type, mime_type, size, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		file.VolumeID,
		file.ID,
		file.Version,
		file.Name,
		file.RelPath,
		database.NullableString(file.MediaType),
		database.NullableString(file.MimeType),
		file.Size,
		database.FormatTime(file.CreatedAt),
	); err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}
	return file, nil
}

func relativeTo(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
