// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package depositprocessor

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/vechain/dispenser/abi"
	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/xchain"
)

// arbitrum sends retryable tickets through the inbox and receives through the outbox.
type arbitrum struct {
	ep *bridge.Endpoint
}

func (a *arbitrum) quote(payload []byte, transferAmount *big.Int) (*quote, error) {
	p, err := abi.DecodeArbitrum(payload)
	if err != nil {
		return nil, decodeError(err)
	}
	if err := requireNonZero("gas price bid", p.GasPriceBid); err != nil {
		return nil, err
	}
	if err := requireNonZero("gas limit", p.GasLimitMessage); err != nil {
		return nil, err
	}
	if err := requireNonZero("max submission cost", p.MaxSubmissionCostMessage); err != nil {
		return nil, err
	}
	bid, err := toU256(p.GasPriceBid)
	if err != nil {
		return nil, err
	}
	cost, err := retryableCost(bid, p.MaxSubmissionCostMessage, abi.ClampGasLimit(p.GasLimitMessage, MinGasLimit, MaxGasLimit))
	if err != nil {
		return nil, err
	}
	if transferAmount.Sign() > 0 {
		if err := requireNonZero("max submission cost of token", p.MaxSubmissionCostToken); err != nil {
			return nil, err
		}
		tokenCost, err := retryableCost(bid, p.MaxSubmissionCostToken, TokenGasLimit)
		if err != nil {
			return nil, err
		}
		if _, overflow := cost.AddOverflow(cost, tokenCost); overflow {
			return nil, fail(Overflow, "arbitrum cost")
		}
	}
	return &quote{cost: cost.ToBig(), refunds: true, refund: p.Refund}, nil
}

// retryableCost is submissionCost + bid * gasLimit.
func retryableCost(bid *uint256.Int, submissionCost *big.Int, gasLimit uint64) (*uint256.Int, error) {
	sub, err := toU256(submissionCost)
	if err != nil {
		return nil, err
	}
	cost, overflow := new(uint256.Int).MulOverflow(bid, uint256.NewInt(gasLimit))
	if overflow {
		return nil, fail(Overflow, "gas cost")
	}
	if _, overflow := cost.AddOverflow(cost, sub); overflow {
		return nil, fail(Overflow, "retryable cost")
	}
	return cost, nil
}

func (a *arbitrum) authenticate(d *bridge.Delivery, l2TargetDispenser xchain.Address) error {
	return authenticateSender(a.ep, d, l2TargetDispenser)
}

// authenticateSender checks the delivery comes from the bridge contract on behalf of the
// paired target dispenser.
func authenticateSender(ep *bridge.Endpoint, d *bridge.Delivery, l2TargetDispenser xchain.Address) error {
	if d.Caller != ep.Address() {
		return fail(TargetRelayerOnly, "%v", d.Caller)
	}
	if d.Sender != l2TargetDispenser {
		return fail(WrongMessageSender, "%v", d.Sender)
	}
	return nil
}
