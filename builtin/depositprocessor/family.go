// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package depositprocessor

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/dispenser/abi"
	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/xchain"
)

const (
	MinGasLimit = 300_000
	MaxGasLimit = 2_000_000
	// TokenGasLimit is the gas of the token leg retryable on Arbitrum.
	TokenGasLimit = 300_000
)

// quote is the price of one send and how it is charged.
type quote struct {
	cost *big.Int
	// refunds is set for families crediting value above cost to refund on the target chain.
	refunds bool
	refund  xchain.Address
}

// family prices outbound sends and authenticates inbound deliveries the way one bridge does.
type family interface {
	quote(payload []byte, transferAmount *big.Int) (*quote, error)
	authenticate(d *bridge.Delivery, l2TargetDispenser xchain.Address) error
}

func newFamily(ep *bridge.Endpoint) family {
	switch ep.Family() {
	case bridge.Arbitrum:
		return &arbitrum{ep}
	case bridge.Optimism:
		return &optimism{ep}
	case bridge.Gnosis:
		return &gnosis{ep}
	case bridge.Polygon:
		return &polygon{ep}
	case bridge.Wormhole:
		return &wormhole{ep}
	}
	panic("depositprocessor: unknown bridge family " + ep.Family().String())
}

// decodeError maps payload decoding failures onto revert codes.
func decodeError(err error) error {
	if errors.Is(err, abi.ErrShortData) || errors.Is(err, abi.ErrMalformed) {
		return fail(IncorrectDataLength, "%v", err)
	}
	return err
}

// requireNonZero fails ZeroValue if the named payload field is zero.
func requireNonZero(name string, v *big.Int) error {
	if v == nil || v.Sign() == 0 {
		return fail(ZeroValue, "%s", name)
	}
	return nil
}

// toU256 converts v, failing Overflow if it does not fit 256 bits.
func toU256(v *big.Int) (*uint256.Int, error) {
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fail(Overflow, "%v exceeds 256 bits", v)
	}
	return u, nil
}
