// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T) map[string]*dto.MetricFamily {
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	m := make(map[string]*dto.MetricFamily)
	for _, f := range families {
		m[f.GetName()] = f
	}
	return m
}

func TestPromMetrics(t *testing.T) {
	resetNoop()
	InitializePrometheusMetrics()

	Counter("test_count").Add(1)
	Counter("test_count").Add(2)

	vec := CounterVec("test_count_vec", []string{"family"})
	vec.AddWithLabel(3, map[string]string{"family": "arbitrum"})
	vec.AddWithLabel(4, map[string]string{"family": "wormhole"})

	Gauge("test_gauge").Set(10)
	Gauge("test_gauge").Add(-3)

	GaugeVec("test_gauge_vec", []string{"chain"}).SetWithLabel(5, map[string]string{"chain": "10"})

	hist := Histogram("test_hist", []int64{1, 10, 100})
	hist.Observe(5)
	hist.Observe(50)

	got := gather(t)
	assert.Equal(t, float64(3), got["dispenser_test_count"].Metric[0].GetCounter().GetValue())
	vecSum := got["dispenser_test_count_vec"].Metric[0].GetCounter().GetValue() +
		got["dispenser_test_count_vec"].Metric[1].GetCounter().GetValue()
	assert.Equal(t, float64(7), vecSum)
	assert.Equal(t, float64(7), got["dispenser_test_gauge"].Metric[0].GetGauge().GetValue())
	assert.Equal(t, float64(5), got["dispenser_test_gauge_vec"].Metric[0].GetGauge().GetValue())
	assert.Equal(t, float64(55), got["dispenser_test_hist"].Metric[0].GetHistogram().GetSampleSum())

	srv := httptest.NewServer(HTTPHandler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLazyLoading(t *testing.T) {
	resetNoop()

	lazyCounter := LazyLoadCounter("lazy_counter")
	lazyCounterVec := LazyLoadCounterVec("lazy_counter_vec", []string{"x"})
	lazyGauge := LazyLoadGauge("lazy_gauge")
	lazyGaugeVec := LazyLoadGaugeVec("lazy_gauge_vec", []string{"x"})
	lazyHistogram := LazyLoadHistogram("lazy_hist", nil)

	InitializePrometheusMetrics()

	assert.IsType(t, &promCountMeter{}, lazyCounter())
	assert.IsType(t, &promCountVecMeter{}, lazyCounterVec())
	assert.IsType(t, &promGaugeMeter{}, lazyGauge())
	assert.IsType(t, &promGaugeVecMeter{}, lazyGaugeVec())
	assert.IsType(t, &promHistogramMeter{}, lazyHistogram())
}
