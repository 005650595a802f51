package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsedigest/core/internal/schema"
)

func TestJSONB_ValueAndScan(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		original := JSONB(`{"id":"r1","status":"queued"}`)
		val, err := original.Value()
		require.NoError(t, err)

		var scanned JSONB
		require.NoError(t, scanned.Scan(val))
		assert.Equal(t, original, scanned)
	})

	t.Run("empty document stores null", func(t *testing.T) {
		val, err := JSONB(nil).Value()
		require.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("scan string source", func(t *testing.T) {
		var j JSONB
		require.NoError(t, j.Scan(`{"id":"r2"}`))
		assert.Equal(t, JSONB(`{"id":"r2"}`), j)
	})

	t.Run("scan nil clears", func(t *testing.T) {
		j := JSONB(`{"id":"r3"}`)
		require.NoError(t, j.Scan(nil))
		assert.Nil(t, j)
	})

	t.Run("unsupported source", func(t *testing.T) {
		var j JSONB
		assert.Error(t, j.Scan(42))
	})
}

func TestDecodeDocument(t *testing.T) {
	rec, err := decodeDocument("usage", JSONB(`{"id":"u1","api_calls":12}`))
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.ID())
	assert.EqualValues(t, 12, rec["api_calls"])

	_, err = decodeDocument("usage", JSONB(`{broken`))
	assert.Error(t, err)
}

func TestMatchesFilter(t *testing.T) {
	rec := schema.Record{"id": "r1", "status": "queued", "retry_count": 2}

	assert.True(t, matchesFilter(rec, map[string]any{"status": "queued"}))
	assert.True(t, matchesFilter(rec, nil), "empty filter matches everything")
	assert.False(t, matchesFilter(rec, map[string]any{"status": "failed"}))
	assert.False(t, matchesFilter(rec, map[string]any{"missing": "x"}))

	t.Run("numeric values match across decode types", func(t *testing.T) {
		// Documents come back from jsonb with float64 numbers.
		decoded := schema.Record{"retry_count": float64(2)}
		assert.True(t, matchesFilter(decoded, map[string]any{"retry_count": 2}))
		assert.False(t, matchesFilter(decoded, map[string]any{"retry_count": 3}))
	})

	t.Run("non-scalar filter values are skipped", func(t *testing.T) {
		assert.NotPanics(t, func() {
			assert.True(t, matchesFilter(rec, map[string]any{
				"tags":   []string{"go"},
				"status": "queued",
			}), "the slice value is ignored, the scalar still matches")
		})
	})
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "object:usage:u1", cacheKey("usage", "u1"))
}
