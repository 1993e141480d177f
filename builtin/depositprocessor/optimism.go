// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package depositprocessor

import (
	"math/big"

	"github.com/vechain/dispenser/abi"
	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/xchain"
)

// optimism sends through the cross domain messenger, which charges the cost in the payload.
type optimism struct {
	ep *bridge.Endpoint
}

func (o *optimism) quote(payload []byte, _ *big.Int) (*quote, error) {
	p, err := abi.DecodeOptimism(payload)
	if err != nil {
		return nil, decodeError(err)
	}
	if err := requireNonZero("cost", p.Cost); err != nil {
		return nil, err
	}
	if err := requireNonZero("gas limit", p.GasLimitMessage); err != nil {
		return nil, err
	}
	if _, err := toU256(p.Cost); err != nil {
		return nil, err
	}
	return &quote{cost: p.Cost}, nil
}

func (o *optimism) authenticate(d *bridge.Delivery, l2TargetDispenser xchain.Address) error {
	return authenticateSender(o.ep, d, l2TargetDispenser)
}
