// Package remote defines the optional remote persistence collaborator used
// by the business object stores. A store configured without a remote
// collection runs in local-only mode; that is a supported deployment, not an
// error.
package remote

import (
	"context"

	"github.com/pulsedigest/core/internal/schema"
)

// Collection is the narrow CRUD surface the stores call through. Records
// cross the boundary in canonical form. FindByID returns (nil, nil) when the
// record does not exist remotely.
type Collection interface {
	Create(ctx context.Context, entity string, rec schema.Record) error
	Update(ctx context.Context, entity, id string, rec schema.Record) error
	Delete(ctx context.Context, entity, id string) error
	FindByID(ctx context.Context, entity, id string) (schema.Record, error)
	FindMany(ctx context.Context, entity string, filter map[string]any) ([]schema.Record, error)
}
