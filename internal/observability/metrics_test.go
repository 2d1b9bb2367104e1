package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotAggregates(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/tickets", "GET", 200, 30*time.Millisecond)
	m.RecordError("/tickets/:id", "GET", "NOT_FOUND")
	m.RecordAssignment("assigned")
	m.RecordAssignment("assigned")
	m.RecordAssignment("no_eligible_technician")

	snap := m.Snapshot()
	require.Len(t, snap.Requests, 1)
	assert.Equal(t, "/tickets|GET|200", snap.Requests[0].Key)
	assert.EqualValues(t, 2, snap.Requests[0].Count)
	assert.InDelta(t, 20.0, snap.Requests[0].AvgLatencyMS, 0.001)
	assert.EqualValues(t, 1, snap.Errors["/tickets/:id|GET|NOT_FOUND"])
	assert.EqualValues(t, 2, snap.Assignments["assigned"])
	assert.EqualValues(t, 1, snap.Assignments["no_eligible_technician"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordAssignment("assigned")
	assert.Empty(t, m.Snapshot().Requests)
}
