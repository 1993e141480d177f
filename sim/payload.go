// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sim

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/dispenser/abi"
	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/xchain"
)

// Bridging parameters used when a caller does not bring its own payload.
var (
	DefaultGasLimit       = big.NewInt(300_000)
	DefaultGasPriceBid    = big.NewInt(1)
	DefaultSubmissionCost = big.NewInt(100)
	DefaultOptimismCost   = big.NewInt(1000)
)

// DefaultPayload builds a bridging payload accepted by family. refund receives the unspent
// value on the destination chain where the family refunds.
func DefaultPayload(family bridge.Family, refund xchain.Address) ([]byte, error) {
	switch family {
	case bridge.Arbitrum:
		return abi.EncodeArbitrum(&abi.ArbitrumPayload{
			Refund:                   refund,
			GasPriceBid:              DefaultGasPriceBid,
			MaxSubmissionCostToken:   DefaultSubmissionCost,
			GasLimitMessage:          DefaultGasLimit,
			MaxSubmissionCostMessage: DefaultSubmissionCost,
		})
	case bridge.Optimism:
		return abi.EncodeOptimism(&abi.OptimismPayload{Cost: DefaultOptimismCost, GasLimitMessage: DefaultGasLimit})
	case bridge.Gnosis:
		return abi.EncodeGnosis(&abi.GnosisPayload{GasLimitMessage: DefaultGasLimit})
	case bridge.Polygon:
		return nil, nil
	case bridge.Wormhole:
		return abi.EncodeWormhole(&abi.WormholePayload{Refund: refund, GasLimitMessage: DefaultGasLimit})
	}
	return nil, errors.Errorf("unknown bridge family %d", family)
}
