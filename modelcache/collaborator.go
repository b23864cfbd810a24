package modelcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/goliatone/go-model-cache/cache"
)

// Collaborator is the data-access object whose methods are cached.
//
// Invoke runs the named retrieval method with args. FromJSON rebuilds one
// instance from its JSON form and backs GetOne and GetMany hits.
type Collaborator interface {
	Name() string
	Invoke(ctx context.Context, method string, args []any) (any, error)
	FromJSON(data json.RawMessage) (any, error)
}

// MethodChecker is implemented by collaborators that can report their method
// set up front, letting Wrap reject unknown names before the first call.
type MethodChecker interface {
	HasMethod(method string) bool
}

// MethodFunc is a registered retrieval method.
type MethodFunc func(ctx context.Context, args ...any) (any, error)

// DecodeFunc rebuilds an instance from JSON.
type DecodeFunc func(data json.RawMessage) (any, error)

// Table is a Collaborator built from a registration table of methods.
type Table struct {
	name     string
	methods  map[string]MethodFunc
	fromJSON DecodeFunc
}

// NewTable creates a collaborator named name. A nil fromJSON decodes into any.
func NewTable(name string, fromJSON DecodeFunc) *Table {
	if fromJSON == nil {
		fromJSON = DecodeInto[any]()
	}
	return &Table{name: name, methods: map[string]MethodFunc{}, fromJSON: fromJSON}
}

// Register adds or replaces a method and returns the table for chaining.
func (t *Table) Register(method string, fn MethodFunc) *Table {
	t.methods[method] = fn
	return t
}

// Name returns the collaborator name used as the first key segment.
func (t *Table) Name() string { return t.name }

// HasMethod reports whether method is registered.
func (t *Table) HasMethod(method string) bool {
	_, ok := t.methods[method]
	return ok
}

// Methods returns the registered method names in sorted order.
func (t *Table) Methods() []string {
	names := make([]string, 0, len(t.methods))
	for name := range t.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs a registered method.
func (t *Table) Invoke(ctx context.Context, method string, args []any) (any, error) {
	fn, ok := t.methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", cache.ErrUnknownMethod, t.name, method)
	}
	return fn(ctx, args...)
}

// FromJSON decodes one instance.
func (t *Table) FromJSON(data json.RawMessage) (any, error) {
	return t.fromJSON(data)
}

// DecodeInto returns a DecodeFunc that unmarshals into a fresh T.
func DecodeInto[T any]() DecodeFunc {
	return func(data json.RawMessage) (any, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
