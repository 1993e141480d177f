// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package depositprocessor

import (
	"math/big"

	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/xchain"
)

// polygon uses the fx tunnel. Its state sync is free and takes no payload.
type polygon struct {
	ep *bridge.Endpoint
}

func (p *polygon) quote([]byte, *big.Int) (*quote, error) {
	return &quote{cost: new(big.Int)}, nil
}

func (p *polygon) authenticate(d *bridge.Delivery, l2TargetDispenser xchain.Address) error {
	return authenticateSender(p.ep, d, l2TargetDispenser)
}
