package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerEndReturnsErrorAndCounts(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	boom := errors.New("boom")
	got := m.Track("sweep").End(boom)
	assert.ErrorIs(t, got, boom, "End must hand the error back for the return path")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("sweep")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("sweep", "failure")))

	require.NoError(t, m.Track("sweep").End(nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("sweep", "success")))
}

func TestTrackerIsNilSafe(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("x").End(boom), boom)
}

func TestAddViolationsDefaultsTenantLabel(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddViolations("patients", "", 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.violations.WithLabelValues("patients", "unknown")))
}
