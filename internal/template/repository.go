package template

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrTemplateNotFound is returned for keys that are not defined.
var ErrTemplateNotFound = errors.New("template not found")

var knownTypes = []string{TypeVideo, TypeAudio, TypeImage, TypePDF, TypeOriginal}

type templateFile struct {
	Templates []Template `toml:"template"`
}

// Repository holds the templates defined in a TOML file.
type Repository struct {
	templates map[string]*Template
}

// NewRepository builds a repository from already decoded templates.
func NewRepository(templates ...Template) (*Repository, error) {
	repo := &Repository{templates: make(map[string]*Template, len(templates))}
	for i := range templates {
		tpl := templates[i]
		tpl.Key = strings.TrimSpace(tpl.Key)
		tpl.Type = strings.ToLower(strings.TrimSpace(tpl.Type))
		tpl.Storage = strings.TrimSpace(tpl.Storage)
		if tpl.Key == "" {
			return nil, fmt.Errorf("template[%d]: key must be set", i)
		}
		if !slices.Contains(knownTypes, tpl.Type) {
			return nil, fmt.Errorf("template %q: unknown type %q", tpl.Key, tpl.Type)
		}
		if tpl.Revision < 0 {
			return nil, fmt.Errorf("template %q: revision must not be negative", tpl.Key)
		}
		if err := checkEncoder(&tpl); err != nil {
			return nil, err
		}
		if tpl.Storage == "" {
			tpl.Storage = "default"
		}
		if _, dup := repo.templates[tpl.Key]; dup {
			return nil, fmt.Errorf("template %q defined twice", tpl.Key)
		}
		repo.templates[tpl.Key] = tpl.Clone()
	}
	return repo, nil
}

// checkEncoder rejects drapto video templates asking for a container other
// than Matroska.
func checkEncoder(tpl *Template) error {
	if tpl.Type != TypeVideo || !strings.EqualFold(strings.TrimSpace(tpl.StringParameter("encoder", "")), "drapto") {
		return nil
	}
	format := tpl.StringParameter("format", tpl.StringParameter("video_format", ""))
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if format != "" && format != "mkv" {
		return fmt.Errorf("template %q: encoder drapto writes mkv, not %q", tpl.Key, format)
	}
	return nil
}

// Load reads a templates file. A missing file yields an empty repository.
func Load(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return NewRepository()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewRepository()
		}
		return nil, fmt.Errorf("read templates: %w", err)
	}
	return Parse(data)
}

// Parse decodes templates from TOML data.
func Parse(data []byte) (*Repository, error) {
	var file templateFile
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return NewRepository(file.Templates...)
}

// Find returns the template registered under key.
func (r *Repository) Find(key string) (*Template, error) {
	if r != nil {
		if tpl, ok := r.templates[strings.TrimSpace(key)]; ok {
			return tpl, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, key)
}

// All returns every template ordered by key.
func (r *Repository) All() []*Template {
	if r == nil {
		return nil
	}
	out := make([]*Template, 0, len(r.templates))
	for _, tpl := range r.templates {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
