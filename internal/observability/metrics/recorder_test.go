package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Recorder = (*ComponentMetrics)(nil)
	_ Recorder = NoOpRecorder{}
)

func TestComponentMetricsRecord(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewComponentMetrics(registry, "export")
	require.NoError(t, err)

	m.RecordOperation(OpPublish+":local", StatusSuccess)
	m.RecordOperation(OpPublish+":local", StatusSuccess)
	m.RecordOperation(OpPublish+":ftp", StatusError)
	m.RecordError(OpPublish+":ftp", "export-io")
	m.RecordDuration(OpFlush, 0.02)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Operations.WithLabelValues("publish:local", StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Errors.WithLabelValues("publish:ftp", "export-io")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.Durations))
}

func TestComponentMetricsDuplicateRegistration(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewComponentMetrics(registry, "remote")
	require.NoError(t, err)
	_, err = NewComponentMetrics(registry, "remote")
	assert.Error(t, err)
}

func TestBoardMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewBoardMetrics(registry)
	require.NoError(t, err)

	m.QueueLength.Set(3)
	m.ReviewsTotal.Inc()

	assert.InDelta(t, 3, testutil.ToFloat64(m.QueueLength), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ReviewsTotal), 0)
	assert.Equal(t, 6, testutil.CollectAndCount(m))
}
