package applier

import (
	"context"
	"errors"
	"os"

	"mediacache/internal/template"
)

// ErrUnsupported is returned when an applier cannot render a template.
var ErrUnsupported = errors.New("unsupported by applier")

// Applier produces output from input according to a template.
type Applier interface {
	Name() string
	// Accepts reports whether the applier can render tpl from input. It must
	// be cheap and free of side effects.
	Accepts(tpl *template.Template, input string) bool
	Apply(ctx context.Context, tpl *template.Template, input, output string) error
}

// Select returns the first applier accepting tpl and input, or nil.
func Select(appliers []Applier, tpl *template.Template, input string) Applier {
	for _, candidate := range appliers {
		if candidate != nil && candidate.Accepts(tpl, input) {
			return candidate
		}
	}
	return nil
}

func readable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
