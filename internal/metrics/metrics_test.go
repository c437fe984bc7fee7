package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource map[string]int

func (f fakeSource) Lengths() map[string]int { return f }

func TestCollectorEmitsGaugePerQueueAndTotal(t *testing.T) {
	src := fakeSource{"a": 3, "b": 0}
	c := NewCollector(src)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	families, err := reg.Gather()
	require.NoError(t, err)

	var length, count *dto.MetricFamily
	for _, f := range families {
		switch f.GetName() {
		case "qswitch_queue_length":
			length = f
		case "qswitch_queue_count":
			count = f
		}
	}
	require.NotNil(t, length)
	require.NotNil(t, count)

	require.Len(t, count.Metric, 1)
	assert.Equal(t, float64(2), count.Metric[0].GetGauge().GetValue())

	require.Len(t, length.Metric, 2)
	seen := map[string]float64{}
	for _, m := range length.Metric {
		seen[m.Label[0].GetValue()] = m.GetGauge().GetValue()
	}
	assert.Equal(t, map[string]float64{"a": 3, "b": 0}, seen)
}

func TestCollectorWithNoQueues(t *testing.T) {
	c := NewCollector(fakeSource{})
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
