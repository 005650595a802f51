// Package kvstore provides the persistent key-value collaborator used by the
// selected-items manager and saved selections.
package kvstore

import "context"

// Store is a minimal async key-value surface. Get reports presence
// explicitly so callers can distinguish "missing" from "empty value".
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
