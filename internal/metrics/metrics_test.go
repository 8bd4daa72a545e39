package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.SetJob(12)
	m.AddSeeded("person", 4)
	m.ObservePage(2, 500, 120)
	m.ObservePage(2, 30, 5)
	m.IncrementPageFailure(3)
	m.AddIssues("Error", 2)
	m.AddIssues("Anomaly", 0)
	m.ObserveRound(2, 1500*time.Millisecond)

	assert.Equal(t, float64(12), testutil.ToFloat64(m.Job))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.Seeded.WithLabelValues("person")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Pages.WithLabelValues("2")))
	assert.Equal(t, float64(530), testutil.ToFloat64(m.Processed.WithLabelValues("2")))
	assert.Equal(t, float64(125), testutil.ToFloat64(m.Tightened.WithLabelValues("2")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PageFailure.WithLabelValues("3")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Issues.WithLabelValues("Error")))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.RoundDuration.WithLabelValues("2")))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.SetJob(1)
	m.ObservePage(2, 1, 1)
	m.AddIssues("Error", 1)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile("ignored.prom"))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObservePage(2, 10, 3)

	path := filepath.Join(t.TempDir(), "dqa.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `dqa_persons_processed_total{round="2"} 10`)

	assert.NoError(t, m.WriteTextfile(""))
}
