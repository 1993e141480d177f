// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dispenser

import "github.com/vechain/dispenser/metrics"

var (
	metricClaims         = metrics.LazyLoadCounterVec("dispenser_claims_count", []string{"kind", "status"})
	metricStakingTargets = metrics.LazyLoadCounterVec("dispenser_staking_targets_count", []string{"chain"})
	metricNominees       = metrics.LazyLoadCounterVec("dispenser_nominee_changes_count", []string{"change"})
)

func observeClaim(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	metricClaims().AddWithLabel(1, map[string]string{"kind": kind, "status": status})
}
