// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package abi

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vechain/dispenser/xchain"
)

var (
	arbitrumLayout = newLayout("arbitrum", "address", "uint256", "uint256", "uint256", "uint256")
	optimismLayout = newLayout("optimism", "uint256", "uint256")
	gnosisLayout   = newLayout("gnosis", "uint256")
	wormholeLayout = newLayout("wormhole", "address", "uint256")
)

// ArbitrumPayload prices the retryable tickets of the token and message legs.
type ArbitrumPayload struct {
	Refund                   xchain.Address
	GasPriceBid              *big.Int
	MaxSubmissionCostToken   *big.Int
	GasLimitMessage          *big.Int
	MaxSubmissionCostMessage *big.Int
}

func EncodeArbitrum(p *ArbitrumPayload) ([]byte, error) {
	return arbitrumLayout.Encode(common.Address(p.Refund), orZero(p.GasPriceBid), orZero(p.MaxSubmissionCostToken),
		orZero(p.GasLimitMessage), orZero(p.MaxSubmissionCostMessage))
}

func DecodeArbitrum(data []byte) (*ArbitrumPayload, error) {
	v, err := arbitrumLayout.Decode(data)
	if err != nil {
		return nil, err
	}
	return &ArbitrumPayload{
		Refund:                   xchain.Address(v[0].(common.Address)),
		GasPriceBid:              v[1].(*big.Int),
		MaxSubmissionCostToken:   v[2].(*big.Int),
		GasLimitMessage:          v[3].(*big.Int),
		MaxSubmissionCostMessage: v[4].(*big.Int),
	}, nil
}

// OptimismPayload carries the fee paid to the cross domain messenger and the message gas limit.
type OptimismPayload struct {
	Cost            *big.Int
	GasLimitMessage *big.Int
}

func EncodeOptimism(p *OptimismPayload) ([]byte, error) {
	return optimismLayout.Encode(orZero(p.Cost), orZero(p.GasLimitMessage))
}

func DecodeOptimism(data []byte) (*OptimismPayload, error) {
	v, err := optimismLayout.Decode(data)
	if err != nil {
		return nil, err
	}
	return &OptimismPayload{Cost: v[0].(*big.Int), GasLimitMessage: v[1].(*big.Int)}, nil
}

// GnosisPayload carries the gas limit requested from the arbitrary message bridge.
type GnosisPayload struct {
	GasLimitMessage *big.Int
}

func EncodeGnosis(p *GnosisPayload) ([]byte, error) {
	return gnosisLayout.Encode(orZero(p.GasLimitMessage))
}

func DecodeGnosis(data []byte) (*GnosisPayload, error) {
	v, err := gnosisLayout.Decode(data)
	if err != nil {
		return nil, err
	}
	return &GnosisPayload{GasLimitMessage: v[0].(*big.Int)}, nil
}

// WormholePayload carries the refund account on the target chain and the delivery gas limit.
type WormholePayload struct {
	Refund          xchain.Address
	GasLimitMessage *big.Int
}

func EncodeWormhole(p *WormholePayload) ([]byte, error) {
	return wormholeLayout.Encode(common.Address(p.Refund), orZero(p.GasLimitMessage))
}

func DecodeWormhole(data []byte) (*WormholePayload, error) {
	v, err := wormholeLayout.Decode(data)
	if err != nil {
		return nil, err
	}
	return &WormholePayload{Refund: xchain.Address(v[0].(common.Address)), GasLimitMessage: v[1].(*big.Int)}, nil
}

// ClampGasLimit bounds a requested gas limit to [min, max].
func ClampGasLimit(gasLimit *big.Int, min, max uint64) uint64 {
	if !gasLimit.IsUint64() || gasLimit.Uint64() > max {
		return max
	}
	if gasLimit.Uint64() < min {
		return min
	}
	return gasLimit.Uint64()
}
