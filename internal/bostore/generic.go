package bostore

import "context"

// Resource is the type-erased store surface the HTTP layer binds to.
// Views come back as any; they carry their own JSON marshalling.
type Resource interface {
	Entity() string
	Create(ctx context.Context, data map[string]any) (any, error)
	Update(ctx context.Context, id string, partial map[string]any) (any, error)
	Delete(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (any, bool)
	Query(ctx context.Context, filter map[string]any) []any
	Local() *Collection
}

// AsResource erases a typed store for uniform route registration.
func AsResource[V any](s *Store[V]) Resource {
	return resource[V]{s}
}

type resource[V any] struct {
	s *Store[V]
}

func (r resource[V]) Entity() string { return r.s.Entity() }

func (r resource[V]) Local() *Collection { return r.s.Local() }

func (r resource[V]) Create(ctx context.Context, data map[string]any) (any, error) {
	return r.s.Create(ctx, data)
}

func (r resource[V]) Update(ctx context.Context, id string, partial map[string]any) (any, error) {
	return r.s.Update(ctx, id, partial)
}

func (r resource[V]) Delete(ctx context.Context, id string) (bool, error) {
	return r.s.Delete(ctx, id)
}

func (r resource[V]) Get(ctx context.Context, id string) (any, bool) {
	return r.s.GetByID(ctx, id)
}

func (r resource[V]) Query(ctx context.Context, filter map[string]any) []any {
	views := r.s.Query(ctx, filter)
	out := make([]any, len(views))
	for i, v := range views {
		out[i] = v
	}
	return out
}
