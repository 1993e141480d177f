// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bridge

import "github.com/vechain/dispenser/metrics"

var (
	metricEnvelopesSent = metrics.LazyLoadCounterVec("bridge_envelopes_sent_count", []string{"family", "kind"})
	metricDeliveries    = metrics.LazyLoadCounterVec("bridge_deliveries_count", []string{"family", "kind", "status"})
	metricPending       = metrics.LazyLoadGaugeVec("bridge_pending_envelopes", []string{"chain"})
)
