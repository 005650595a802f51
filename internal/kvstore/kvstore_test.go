package kvstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Both implementations must behave identically through the Store surface.
func TestStoreImplementations(t *testing.T) {
	ctx := context.Background()

	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"badger": func(t *testing.T) Store {
			s, err := OpenBadger(t.TempDir(), zap.NewNop())
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			store := open(t)

			t.Run("get missing", func(t *testing.T) {
				_, ok, err := store.Get(ctx, "missing")
				require.NoError(t, err)
				assert.False(t, ok)
			})

			t.Run("set then get", func(t *testing.T) {
				require.NoError(t, store.Set(ctx, "a", []byte("one")))
				val, ok, err := store.Get(ctx, "a")
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, []byte("one"), val)
			})

			t.Run("overwrite", func(t *testing.T) {
				require.NoError(t, store.Set(ctx, "a", []byte("two")))
				val, _, err := store.Get(ctx, "a")
				require.NoError(t, err)
				assert.Equal(t, []byte("two"), val)
			})

			t.Run("empty value is present", func(t *testing.T) {
				require.NoError(t, store.Set(ctx, "empty", nil))
				_, ok, err := store.Get(ctx, "empty")
				require.NoError(t, err)
				assert.True(t, ok, "presence is distinct from emptiness")
			})

			t.Run("keys by prefix", func(t *testing.T) {
				require.NoError(t, store.Set(ctx, "sel:1", []byte("x")))
				require.NoError(t, store.Set(ctx, "sel:2", []byte("y")))
				require.NoError(t, store.Set(ctx, "other", []byte("z")))

				keys, err := store.Keys(ctx, "sel:")
				require.NoError(t, err)
				assert.ElementsMatch(t, []string{"sel:1", "sel:2"}, keys)
			})

			t.Run("delete", func(t *testing.T) {
				require.NoError(t, store.Delete(ctx, "a"))
				_, ok, err := store.Get(ctx, "a")
				require.NoError(t, err)
				assert.False(t, ok)

				assert.NoError(t, store.Delete(ctx, "a"), "deleting a missing key is not an error")
			})
		})
	}
}

func TestMemoryStore_FailWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "a", []byte("one")))

	boom := errors.New("boom")
	store.FailWrites = boom

	assert.ErrorIs(t, store.Set(ctx, "b", []byte("two")), boom)
	assert.ErrorIs(t, store.Delete(ctx, "a"), boom)

	val, ok, err := store.Get(ctx, "a")
	require.NoError(t, err, "reads keep working")
	require.True(t, ok)
	assert.Equal(t, []byte("one"), val)
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := OpenBadger(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "durable", []byte("kept")))
	require.NoError(t, first.Close())

	second, err := OpenBadger(dir, zap.NewNop())
	require.NoError(t, err)
	defer second.Close()

	val, ok, err := second.Get(ctx, "durable")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("kept"), val)
}
