package prometheus

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewRecorder(t *testing.T) {
	t.Run("already registered", func(t *testing.T) {
		reg := prometheus.NewRegistry()

		_, err := NewRecorder(reg)
		assert.NoError(t, err)

		rec, err := NewRecorder(reg)
		assert.Error(t, err)
		assert.Nil(t, rec)
	})
}

func TestRecorder_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()

	rec, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("Failed to create recorder: %v", err)
	}

	rec.Observe("success")
	rec.Observe("success")
	rec.Observe("not_found")
	rec.Observe("expired")

	assert.Equal(t, float64(2), testutil.ToFloat64(rec.redirects.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(rec.redirects.WithLabelValues("not_found")))
	assert.Equal(t, float64(1), testutil.ToFloat64(rec.redirects.WithLabelValues("expired")))

	want := `
# HELP tinyurl_redirect_total Total number of short code resolutions by outcome.
# TYPE tinyurl_redirect_total counter
tinyurl_redirect_total{status="expired"} 1
tinyurl_redirect_total{status="not_found"} 1
tinyurl_redirect_total{status="success"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "tinyurl_redirect_total"))
}
