package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStoreMetrics_Observe(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewStoreMetrics(registry)

	start := time.Now()
	m.Observe("ai_result", "create", start, nil)
	m.Observe("ai_result", "create", start, nil)
	m.Observe("ai_result", "create", start, errors.New("remote down"))

	ok := testutil.ToFloat64(m.operations.WithLabelValues("ai_result", "create", "ok"))
	failed := testutil.ToFloat64(m.operations.WithLabelValues("ai_result", "create", "error"))
	assert.Equal(t, 2.0, ok)
	assert.Equal(t, 1.0, failed)
}

func TestStoreMetrics_NilReceiver(t *testing.T) {
	var m *StoreMetrics
	assert.NotPanics(t, func() {
		m.Observe("ai_result", "create", time.Now(), nil)
	})
}
