// Package template loads the derivative templates that cache items reference.
package template

import (
	"fmt"
	"strconv"
	"strings"
)

// Known template types. Each maps onto a worker of the same name.
const (
	TypeVideo    = "video"
	TypeAudio    = "audio"
	TypeImage    = "image"
	TypePDF      = "pdf"
	TypeOriginal = "original"
)

// Template describes how a derivative rendition is produced.
type Template struct {
	Key        string         `toml:"key"`
	Type       string         `toml:"type"`
	Revision   int            `toml:"revision"`
	Storage    string         `toml:"storage"`
	Parameters map[string]any `toml:"parameters"`
}

// HasParameter reports whether name is set on the template.
func (t *Template) HasParameter(name string) bool {
	if t == nil || t.Parameters == nil {
		return false
	}
	_, ok := t.Parameters[name]
	return ok
}

// Parameter returns the raw parameter value or def when unset.
func (t *Template) Parameter(name string, def any) any {
	if !t.HasParameter(name) {
		return def
	}
	return t.Parameters[name]
}

// StringParameter returns the parameter formatted as a string.
func (t *Template) StringParameter(name, def string) string {
	if !t.HasParameter(name) {
		return def
	}
	switch v := t.Parameters[name].(type) {
	case string:
		return v
	case nil:
		return def
	default:
		return fmt.Sprint(v)
	}
}

// IntParameter returns the parameter as an int. Values that cannot be
// converted yield def.
func (t *Template) IntParameter(name string, def int) int {
	if !t.HasParameter(name) {
		return def
	}
	switch v := t.Parameters[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// BoolParameter returns the parameter as a bool.
func (t *Template) BoolParameter(name string, def bool) bool {
	if !t.HasParameter(name) {
		return def
	}
	switch v := t.Parameters[name].(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return parsed
	case int64:
		return v != 0
	case int:
		return v != 0
	default:
		return def
	}
}

// Clone returns a copy whose parameter map can be modified independently.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	clone := *t
	if t.Parameters != nil {
		clone.Parameters = make(map[string]any, len(t.Parameters))
		for k, v := range t.Parameters {
			clone.Parameters[k] = v
		}
	}
	return &clone
}
