// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.28
//

package goppp

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_metrics(t *testing.T) {
	assert := assert.New(t)
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.observe(&Output{NumSat: 14}, 3*time.Millisecond)
	m.observe(&Output{NumSat: 12}, 2*time.Millisecond)
	m.observe(&Output{Error: true, Step: StepFilter}, time.Millisecond)
	m.observe(nil, time.Millisecond)

	assert.Equal(2.0, testutil.ToFloat64(m.Epochs.WithLabelValues("ok")))
	assert.Equal(1.0, testutil.ToFloat64(m.Epochs.WithLabelValues("failed")))
	assert.Equal(1.0, testutil.ToFloat64(m.Failures.WithLabelValues("filter")))
	assert.Equal(12.0, testutil.ToFloat64(m.SatellitesUse))

	n, err := testutil.GatherAndCount(reg, "goppp_epoch_duration_seconds")
	require.NoError(t, err)
	assert.Equal(1, n)

	// Registering again reuses the collectors
	m2, err := NewMetrics(reg)
	require.NoError(t, err)
	assert.Same(m.Epochs, m2.Epochs)
	m2.observe(&Output{NumSat: 9}, time.Millisecond)
	assert.Equal(3.0, testutil.ToFloat64(m.Epochs.WithLabelValues("ok")))

	// Nil metrics are ignored
	var none *Metrics
	none.observe(&Output{}, time.Millisecond)
}

func Test_metricsConflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{Name: "goppp_epochs_total", Help: "other"}))
	_, err := NewMetrics(reg)
	assert.Error(t, err)
}
