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

// gnosis relays through the arbitrary message bridge, free of charge.
type gnosis struct {
	ep *bridge.Endpoint
}

func (g *gnosis) quote(payload []byte, _ *big.Int) (*quote, error) {
	p, err := abi.DecodeGnosis(payload)
	if err != nil {
		return nil, decodeError(err)
	}
	if err := requireNonZero("gas limit", p.GasLimitMessage); err != nil {
		return nil, err
	}
	return &quote{cost: new(big.Int)}, nil
}

func (g *gnosis) authenticate(d *bridge.Delivery, l2TargetDispenser xchain.Address) error {
	if err := authenticateSender(g.ep, d, l2TargetDispenser); err != nil {
		return err
	}
	if d.SourceChain != g.ep.Config().PeerNativeID {
		return fail(WrongChainId, "source chain %d", d.SourceChain)
	}
	return nil
}
