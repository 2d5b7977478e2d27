package telemetry_test

import (
	"context"
	"testing"

	"codeberg.org/mutker/rumcollect/internal/errors"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/performance"
	"codeberg.org/mutker/rumcollect/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setup(t *testing.T) (telemetry.Recorder, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp, err := telemetry.Setup(context.Background(), telemetry.DefaultConfig(), reader)
	require.NoError(t, err)
	t.Cleanup(func() { telemetry.Shutdown(context.Background(), mp) })

	rec, err := telemetry.New(mp)
	require.NoError(t, err)
	return rec, reader
}

// sums returns the data points of the counter name keyed by one attribute.
func sums(t *testing.T, reader *sdkmetric.ManualReader, name string, key attribute.Key) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				label := ""
				if value, ok := dp.Attributes.Value(key); ok {
					label = value.Emit()
				}
				out[label] += dp.Value
			}
		}
	}
	return out
}

func TestMatchOutcomes(t *testing.T) {
	rec, reader := setup(t)

	rec.RecordMatch("matched")
	rec.RecordMatch("matched")
	rec.RecordMatch("ambiguous")

	assert.Equal(t, map[string]int64{"matched": 2, "ambiguous": 1},
		sums(t, reader, "rum.resource.matches", "outcome"))
}

func TestAssembledEvents(t *testing.T) {
	rec, reader := setup(t)

	rec.RecordAssembled("action", true)
	rec.RecordAssembled("action", false)
	rec.RecordAssembled("view", true)

	assert.Equal(t, map[string]int64{"true": 2, "false": 1},
		sums(t, reader, "rum.events.assembled", "attributed"))
	assert.Equal(t, map[string]int64{"action": 2, "view": 1},
		sums(t, reader, "rum.events.assembled", "type"))
}

func TestEvictions(t *testing.T) {
	rec, reader := setup(t)

	rec.RecordEvictions(3)
	rec.RecordEvictions(2)

	assert.Equal(t, map[string]int64{"": 5}, sums(t, reader, "rum.view_history.evictions", "none"))
}

func TestCountEntries(t *testing.T) {
	rec, reader := setup(t)
	lc := lifecycle.New()
	sub := telemetry.CountEntries(lc, rec)
	defer sub.Unsubscribe()

	lc.Notify(lifecycle.PerformanceEntriesCollected, []performance.Entry{
		&performance.ResourceTiming{Name: "https://example.com/a.js"},
		&performance.ResourceTiming{Name: "https://example.com/b.js"},
		&performance.LongTaskTiming{Duration: 60},
	})

	assert.Equal(t, map[string]int64{"resource": 2, "longtask": 1},
		sums(t, reader, "rum.performance.entries", "entry_type"))
}

func TestConfigValidation(t *testing.T) {
	cfg := telemetry.DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.OTLPEndpoint = "not a url"
	assert.True(t, errors.HasCode(cfg.Validate(), telemetry.ErrInvalidEndpoint))

	cfg = telemetry.DefaultConfig()
	cfg.ExportInterval = 0
	assert.True(t, errors.HasCode(cfg.Validate(), telemetry.ErrInvalidInterval))

	_, err := telemetry.Setup(context.Background(), telemetry.Config{})
	assert.True(t, errors.HasCode(err, telemetry.ErrInvalidConfig))
}
