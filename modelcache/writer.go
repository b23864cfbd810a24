package modelcache

import "context"

// Mutations is the write side of a collaborator.
type Mutations[T any] interface {
	Insert(ctx context.Context, record T) (T, error)
	Update(ctx context.Context, record T) (T, error)
	Delete(ctx context.Context, record T) error
}

// Writer runs mutations and invalidates the collaborator's entries after each
// one succeeds. Invalidation failures are logged by the Cache and never change
// the mutation's result.
type Writer[T any] struct {
	next         Mutations[T]
	cache        *Cache
	collaborator string
}

// NewWriter wraps next so that its mutations invalidate collaborator.
func NewWriter[T any](c *Cache, collaborator string, next Mutations[T]) *Writer[T] {
	return &Writer[T]{next: next, cache: c, collaborator: collaborator}
}

// Insert creates record.
func (w *Writer[T]) Insert(ctx context.Context, record T) (T, error) {
	result, err := w.next.Insert(ctx, record)
	if err == nil {
		w.invalidate(ctx)
	}
	return result, err
}

// Update modifies record.
func (w *Writer[T]) Update(ctx context.Context, record T) (T, error) {
	result, err := w.next.Update(ctx, record)
	if err == nil {
		w.invalidate(ctx)
	}
	return result, err
}

// Delete removes record.
func (w *Writer[T]) Delete(ctx context.Context, record T) error {
	err := w.next.Delete(ctx, record)
	if err == nil {
		w.invalidate(ctx)
	}
	return err
}

func (w *Writer[T]) invalidate(ctx context.Context) {
	_ = w.cache.Invalidate(ctx, w.collaborator)
}
