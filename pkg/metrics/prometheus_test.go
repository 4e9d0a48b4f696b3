package metrics

import (
	"testing"

	"MacroCompass/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounters(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordFetch("fred", false)
	r.RecordFetch("fred", true)
	r.RecordFetch("fred", true)
	r.RecordCache(true)
	r.RecordCache(false)
	r.RecordComposite(0.42, models.Components{Credit: -0.5}.Entries())

	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues("fred", "live")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.fetches.WithLabelValues("fred", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cache.WithLabelValues("hit")))
	assert.Equal(t, 0.42, testutil.ToFloat64(r.composite))
	assert.Equal(t, -0.5, testutil.ToFloat64(r.component.WithLabelValues("Credit")))
}
