// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"sync"
	"time"
)

type Relaying struct {
	LastRound          *time.Time `json:"lastRound"`
	LastDeliveryTime   *time.Time `json:"lastDeliveryTime"`
	DeliveredTotal     int        `json:"deliveredTotal"`
	FailedTotal        int        `json:"failedTotal"`
	OutstandingFailure bool       `json:"outstandingFailure"`
}

type Status struct {
	Healthy  bool      `json:"healthy"`
	Relaying *Relaying `json:"relaying"`
	Serving  bool      `json:"serving"`
}

// Health tracks whether the relay loop keeps up. A network is healthy once it serves and
// a relay round completed within the tolerance.
type Health struct {
	lock        sync.RWMutex
	tolerance   time.Duration
	lastRound   time.Time
	lastDeliver time.Time
	delivered   int
	failed      int
	outstanding bool
	serving     bool
}

func New(tolerance time.Duration) *Health {
	return &Health{tolerance: tolerance}
}

// RelayRound records a completed relay round. outstanding tells whether failed deliveries
// wait for a retry.
func (h *Health) RelayRound(delivered, failed int, outstanding bool) {
	h.lock.Lock()
	defer h.lock.Unlock()

	now := time.Now()
	h.lastRound = now
	if delivered > 0 {
		h.lastDeliver = now
	}
	h.delivered += delivered
	h.failed += failed
	h.outstanding = outstanding
}

func (h *Health) ServingStatus(serving bool) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.serving = serving
}

func (h *Health) Status() *Status {
	h.lock.RLock()
	defer h.lock.RUnlock()

	relaying := &Relaying{
		DeliveredTotal:     h.delivered,
		FailedTotal:        h.failed,
		OutstandingFailure: h.outstanding,
	}
	if !h.lastRound.IsZero() {
		t := h.lastRound
		relaying.LastRound = &t
	}
	if !h.lastDeliver.IsZero() {
		t := h.lastDeliver
		relaying.LastDeliveryTime = &t
	}

	healthy := h.serving && !h.lastRound.IsZero() && time.Since(h.lastRound) <= h.tolerance

	return &Status{
		Healthy:  healthy,
		Relaying: relaying,
		Serving:  h.serving,
	}
}
