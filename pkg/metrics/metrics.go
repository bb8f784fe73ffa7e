// Package metrics provides Prometheus metrics for fileguard.
// A nil *Registry is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fileguard-project/fileguard/pkg/model"
)

// Registry holds all fileguard metrics on a private Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	captures        *prometheus.CounterVec
	restores        *prometheus.CounterVec
	captureDuration prometheus.Histogram
	restoreDuration prometheus.Histogram
	staged          prometheus.Gauge
	areasCreated    prometheus.Counter
}

// NewRegistry creates a new metrics registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		captures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileguard_captures_total",
				Help: "Total number of captures by entry kind and result",
			},
			[]string{"kind", "result"},
		),
		restores: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileguard_restores_total",
				Help: "Total number of restores by entry kind and result",
			},
			[]string{"kind", "result"},
		),
		captureDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fileguard_capture_duration_seconds",
			Help:    "Time spent staging a copy",
			Buckets: prometheus.DefBuckets,
		}),
		restoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fileguard_restore_duration_seconds",
			Help:    "Time spent replaying a staged copy",
			Buckets: prometheus.DefBuckets,
		}),
		staged: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fileguard_staged_copies",
			Help: "Number of outstanding staged copies",
		}),
		areasCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fileguard_staging_areas_created_total",
			Help: "Total number of staging areas created",
		}),
	}
	r.reg.MustRegister(r.captures, r.restores, r.captureDuration, r.restoreDuration, r.staged, r.areasCreated)
	return r
}

// Gatherer exposes the registry for scraping or dumping.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// RecordCapture records a capture attempt. kind is empty when the path
// could not be inspected.
func (r *Registry) RecordCapture(kind model.EntryKind, success bool, duration time.Duration) {
	if r == nil {
		return
	}
	r.captures.WithLabelValues(kindLabel(kind), resultLabel(success)).Inc()
	r.captureDuration.Observe(duration.Seconds())
}

// RecordRestore records a restore attempt.
func (r *Registry) RecordRestore(kind model.EntryKind, success bool, duration time.Duration) {
	if r == nil {
		return
	}
	r.restores.WithLabelValues(kindLabel(kind), resultLabel(success)).Inc()
	r.restoreDuration.Observe(duration.Seconds())
}

// SetStaged sets the outstanding staged copy count.
func (r *Registry) SetStaged(n int) {
	if r == nil {
		return
	}
	r.staged.Set(float64(n))
}

// StagingAreaCreated counts a new staging area.
func (r *Registry) StagingAreaCreated() {
	if r == nil {
		return
	}
	r.areasCreated.Inc()
}

func kindLabel(k model.EntryKind) string {
	if k == "" {
		return "unknown"
	}
	return string(k)
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
