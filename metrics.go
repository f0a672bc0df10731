// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.27
//

package goppp

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics of the epoch processing
type Metrics struct {
	Epochs        *prometheus.CounterVec
	Failures      *prometheus.CounterVec
	SatellitesUse prometheus.Gauge
	Duration      prometheus.Histogram
}

// Register the metrics against reg, the global registry when nil
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	epochs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goppp_epochs_total",
		Help: "Processed epochs, labeled by result (ok, failed).",
	}, []string{"result"})
	if err := register(reg, &epochs, "goppp_epochs_total"); err != nil {
		return nil, err
	}

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goppp_epoch_failures_total",
		Help: "Failed epochs, labeled by processing step.",
	}, []string{"step"})
	if err := register(reg, &failures, "goppp_epoch_failures_total"); err != nil {
		return nil, err
	}

	sats := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "goppp_satellites_used",
		Help: "Satellites used in the last successful epoch.",
	})
	if err := register(reg, &sats, "goppp_satellites_used"); err != nil {
		return nil, err
	}

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "goppp_epoch_duration_seconds",
		Help:    "Processing time of one epoch in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	})
	if err := register(reg, &duration, "goppp_epoch_duration_seconds"); err != nil {
		return nil, err
	}

	return &Metrics{Epochs: epochs, Failures: failures, SatellitesUse: sats, Duration: duration}, nil
}

// Register a collector, reusing an existing one of the same type
func register[T prometheus.Collector](reg prometheus.Registerer, c *T, name string) error {
	if err := reg.Register(*c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				*c = existing
				return nil
			}
			return fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return err
	}
	return nil
}

// Record the result of one epoch
func (m *Metrics) observe(out *Output, elapsed time.Duration) {
	if m == nil || out == nil {
		return
	}
	m.Duration.Observe(elapsed.Seconds())
	if out.Error {
		m.Epochs.WithLabelValues("failed").Inc()
		m.Failures.WithLabelValues(out.Step.String()).Inc()
		return
	}
	m.Epochs.WithLabelValues("ok").Inc()
	m.SatellitesUse.Set(float64(out.NumSat))
}
