// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopMetrics(t *testing.T) {
	resetNoop()

	assert.Nil(t, HTTPHandler())
	for _, m := range []any{
		Counter("noopCounter"),
		CounterVec("noopCounterVec", nil),
		Gauge("noopGauge"),
		GaugeVec("noopGaugeVec", nil),
		Histogram("noopHist", nil),
	} {
		assert.IsType(t, &noopMeters{}, m)
	}

	// labels are ignored entirely
	CounterVec("noopCounterVec", []string{"chain"}).AddWithLabel(1, map[string]string{"nonsense": "ok"})
	GaugeVec("noopGaugeVec", []string{"chain"}).SetWithLabel(1, nil)
}

func resetNoop() {
	mu.Lock()
	metrics = defaultNoopMetrics()
	mu.Unlock()
}
