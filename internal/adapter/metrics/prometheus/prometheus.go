// Package prometheus records URL resolution outcomes as Prometheus counters.
package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "tinyurl"
	subsystem = "redirect"
)

// Recorder counts resolutions by outcome.
type Recorder struct {
	redirects *prometheus.CounterVec
}

// NewRecorder creates a Recorder and registers its collectors with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	const op = "adapter.metrics.prometheus.NewRecorder"

	redirects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "total",
		Help:      "Total number of short code resolutions by outcome.",
	}, []string{"status"})

	if err := reg.Register(redirects); err != nil {
		return nil, fmt.Errorf("%s: failed to register redirect counter: %w", op, err)
	}

	return &Recorder{redirects: redirects}, nil
}

// Observe increments the counter for outcome. It never fails.
func (r *Recorder) Observe(outcome string) {
	r.redirects.WithLabelValues(outcome).Inc()
}
