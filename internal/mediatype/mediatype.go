// Package mediatype maps file names, contents and keys to media type descriptors.
package mediatype

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"mediacache/internal/config"
)

// Category groups media types by the kind of worker able to handle them.
type Category string

const (
	CategoryVideo    Category = "video"
	CategoryImage    Category = "image"
	CategoryAudio    Category = "audio"
	CategoryDocument Category = "document"
	CategoryArchive  Category = "archive"
	CategoryOther    Category = "other"
)

// BinaryKey is the fallback type for content nothing else matches.
const BinaryKey = "binary"

// ErrUnknown is returned when no media type matches a lookup.
var ErrUnknown = errors.New("unknown media type")

// MediaType describes one kind of media file.
type MediaType struct {
	Key        string
	Category   Category
	MimeType   string
	Extensions []string
}

// PrimaryExtension returns the preferred file extension, without a dot.
func (m MediaType) PrimaryExtension() string {
	if len(m.Extensions) == 0 {
		return ""
	}
	return m.Extensions[0]
}

// Registry resolves media types.
type Registry struct {
	byKey  map[string]MediaType
	byExt  map[string]string
	byMime map[string]string
}

// New builds a registry from the built-in table plus extra definitions.
// Extra definitions override built-ins with the same key.
func New(extra ...MediaType) *Registry {
	r := &Registry{
		byKey:  make(map[string]MediaType),
		byExt:  make(map[string]string),
		byMime: make(map[string]string),
	}
	for _, mt := range builtins {
		r.add(mt)
	}
	for _, mt := range extra {
		r.add(mt)
	}
	return r
}

// FromConfig builds a registry including the [[media_type]] sections.
func FromConfig(cfg *config.Config) *Registry {
	if cfg == nil {
		return New()
	}
	extra := make([]MediaType, 0, len(cfg.MediaTypes))
	for _, mt := range cfg.MediaTypes {
		extra = append(extra, MediaType{
			Key:        mt.Key,
			Category:   Category(mt.Category),
			MimeType:   mt.MimeType,
			Extensions: mt.Extensions,
		})
	}
	return New(extra...)
}

func (r *Registry) add(mt MediaType) {
	mt.Key = foldKey(mt.Key)
	if mt.Key == "" {
		return
	}
	exts := make([]string, 0, len(mt.Extensions))
	for _, ext := range mt.Extensions {
		ext = foldKey(strings.TrimPrefix(ext, "."))
		if ext == "" {
			continue
		}
		exts = append(exts, ext)
		r.byExt[ext] = mt.Key
	}
	mt.Extensions = exts
	mt.MimeType = strings.ToLower(strings.TrimSpace(mt.MimeType))
	if mt.MimeType != "" {
		if _, exists := r.byMime[mt.MimeType]; !exists {
			r.byMime[mt.MimeType] = mt.Key
		}
	}
	r.byKey[mt.Key] = mt
}

// Find returns the media type registered under key.
func (r *Registry) Find(key string) (MediaType, error) {
	if mt, ok := r.byKey[foldKey(key)]; ok {
		return mt, nil
	}
	return MediaType{}, fmt.Errorf("%w: %q", ErrUnknown, key)
}

// FindByMimeType returns the first media type registered for mimeType.
func (r *Registry) FindByMimeType(mimeType string) (MediaType, error) {
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		base = strings.TrimSpace(mimeType)
	}
	if key, ok := r.byMime[strings.ToLower(base)]; ok {
		return r.byKey[key], nil
	}
	return MediaType{}, fmt.Errorf("%w: mime type %q", ErrUnknown, mimeType)
}

// FindByFilename resolves the media type of path from its extension, falling
// back to sniffing the first bytes of the file. Content nothing recognizes is
// reported as the binary type.
func (r *Registry) FindByFilename(path string) (MediaType, error) {
	ext := foldKey(strings.TrimPrefix(filepath.Ext(path), "."))
	if key, ok := r.byExt[ext]; ok {
		return r.byKey[key], nil
	}
	sniffed, err := sniff(path)
	if err != nil {
		return MediaType{}, err
	}
	if mt, err := r.FindByMimeType(sniffed); err == nil {
		return mt, nil
	}
	return r.Find(BinaryKey)
}

// All returns every registered type ordered by key.
func (r *Registry) All() []MediaType {
	out := make([]MediaType, 0, len(r.byKey))
	for _, mt := range r.byKey {
		out = append(out, mt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func sniff(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("sniff media type: %w", err)
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("sniff media type: %w", err)
	}
	return http.DetectContentType(buf[:n]), nil
}

func foldKey(value string) string {
	return cases.Fold().String(strings.TrimSpace(value))
}
