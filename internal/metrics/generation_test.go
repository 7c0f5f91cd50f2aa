package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGenerationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGenerationMetrics(reg)

	m.ObserveSuccess(20*time.Millisecond, 54, 18, 3)
	m.ObserveSuccess(30*time.Millisecond, 6, 2, 1)
	m.ObserveFailure(time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.generations.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues(ResultError)))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.vertices))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.triangles))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fields))

	m.Reset()
	assert.Zero(t, testutil.ToFloat64(m.vertices))

	n, err := testutil.GatherAndCount(reg, "terrain_generation_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGenerationMetrics_NilSafe(t *testing.T) {
	var m *GenerationMetrics
	assert.NotPanics(t, func() {
		m.ObserveSuccess(time.Second, 1, 1, 1)
		m.ObserveFailure(time.Second)
		m.Reset()
	})
}

func TestNewRegistry_RuntimeCollectors(t *testing.T) {
	reg := NewRegistry()
	NewGenerationMetrics(reg)

	n, err := testutil.GatherAndCount(reg, "go_goroutines")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
