package execx

import (
	"context"
	"strings"
	"sync"
)

// Call records one invocation made through a FakeRunner.
type Call struct {
	Name string
	Args []string
}

// FakeRunner is a Runner for tests. Handler decides the result of each call;
// a nil Handler succeeds with empty output.
type FakeRunner struct {
	Handler func(ctx context.Context, name string, args []string) ([]byte, error)

	mu    sync.Mutex
	calls []Call
}

// Run records the call and delegates to Handler.
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()
	if f.Handler == nil {
		return nil, nil
	}
	return f.Handler(ctx, name, args)
}

// Calls returns a copy of the recorded invocations.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns invocations of the named binary.
func (f *FakeRunner) CallsTo(name string) []Call {
	var out []Call
	for _, call := range f.Calls() {
		if call.Name == name {
			out = append(out, call)
		}
	}
	return out
}

// String renders a call as a shell-like line for test failure messages.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

var _ Runner = (*FakeRunner)(nil)
