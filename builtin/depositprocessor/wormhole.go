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

// wormhole delivers through the standard relayer, priced by the gas limit of the delivery.
// Deliveries may repeat, so they are deduplicated by the processor.
type wormhole struct {
	ep *bridge.Endpoint
}

func (w *wormhole) quote(payload []byte, _ *big.Int) (*quote, error) {
	p, err := abi.DecodeWormhole(payload)
	if err != nil {
		return nil, decodeError(err)
	}
	if err := requireNonZero("gas limit", p.GasLimitMessage); err != nil {
		return nil, err
	}
	cost := w.ep.QuoteDelivery(abi.ClampGasLimit(p.GasLimitMessage, MinGasLimit, MaxGasLimit))
	if _, err := toU256(cost); err != nil {
		return nil, err
	}
	return &quote{cost: cost, refunds: true, refund: p.Refund}, nil
}

func (w *wormhole) authenticate(d *bridge.Delivery, l2TargetDispenser xchain.Address) error {
	if d.Caller != w.ep.Address() {
		return fail(TargetRelayerOnly, "%v", d.Caller)
	}
	if d.SourceChain != w.ep.Config().PeerNativeID {
		return fail(WrongChainId, "source chain %d", d.SourceChain)
	}
	if d.Emitter != l2TargetDispenser.Bytes32() {
		return fail(WrongMessageSender, "emitter %v", d.Emitter)
	}
	return nil
}
