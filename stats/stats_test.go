// File: stats/stats_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stats

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySinkAccumulatesCounters(t *testing.T) {
	m := NewMemorySink()
	m.Event("accepted")
	m.Event("accepted")
	m.Event("timedout")
	m.BytesIn(100)
	m.BytesOut(50)
	m.HandlerError(404)
	m.HandlerError(404)
	m.HandlerError(500)

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap["accepted"])
	assert.EqualValues(t, 1, snap["timedout"])
	assert.EqualValues(t, 100, snap["bytes_in"])
	assert.EqualValues(t, 50, snap["bytes_out"])
	assert.EqualValues(t, 2, snap["error_404"])
	assert.EqualValues(t, 1, snap["error_500"])
}

func TestMemorySinkConcurrentEventsAreSafe(t *testing.T) {
	m := NewMemorySink()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Event("accepted")
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 100, m.Snapshot()["accepted"])
}

func TestPrometheusSinkExportsRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewPrometheusSink(reg)
	s.Event("accepted")
	s.BytesIn(10)
	s.HandlerError(418)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]*dto.MetricFamily{}
	for _, f := range families {
		names[f.GetName()] = f
	}
	assert.Contains(t, names, "evhttp_events_total")
	assert.Contains(t, names, "evhttp_bytes_in_total")
	assert.Contains(t, names, "evhttp_handler_errors_total")
}
