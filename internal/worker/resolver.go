package worker

import (
	"fmt"

	"mediacache/internal/mediatype"
	"mediacache/internal/template"
	"mediacache/internal/volume"
)

// Resolver picks the first worker that accepts a triple. Order is priority:
// specific workers must come before generic fallbacks.
type Resolver struct {
	workers []Worker
}

// NewResolver keeps workers in the given order.
func NewResolver(workers ...Worker) *Resolver {
	r := &Resolver{}
	for _, w := range workers {
		if w != nil {
			r.workers = append(r.workers, w)
		}
	}
	return r
}

// NewOrderedResolver arranges available workers by the configured names.
// Every name must match a worker.
func NewOrderedResolver(order []string, available ...Worker) (*Resolver, error) {
	byName := make(map[string]Worker, len(available))
	for _, w := range available {
		byName[w.Name()] = w
	}
	ordered := make([]Worker, 0, len(order))
	for _, name := range order {
		w, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("worker %q is not available", name)
		}
		ordered = append(ordered, w)
	}
	return NewResolver(ordered...), nil
}

// Resolve returns the first accepting worker, or nil when none does.
func (r *Resolver) Resolve(tpl *template.Template, file *volume.File, mt mediatype.MediaType) Worker {
	if r == nil {
		return nil
	}
	for _, w := range r.workers {
		if w.Accept(tpl, file, mt) {
			return w
		}
	}
	return nil
}

// Names lists the workers in resolution order.
func (r *Resolver) Names() []string {
	names := make([]string, 0, len(r.workers))
	for _, w := range r.workers {
		names = append(names, w.Name())
	}
	return names
}
