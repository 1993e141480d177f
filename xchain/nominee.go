// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xchain

import (
	"fmt"
	"math/big"
)

// Nominee is a staking target on a given chain eligible for incentives.
// The account is opaque; on EVM chains it holds a left padded address.
type Nominee struct {
	Chain   ChainID
	Account Bytes32
}

// NewNominee creates a nominee for an EVM staking target.
func NewNominee(chain ChainID, target Address) Nominee {
	return Nominee{Chain: chain, Account: target.Bytes32()}
}

// Hash returns keccak256(uint256(chain) ‖ account).
func (n Nominee) Hash() Bytes32 {
	return Keccak256(n.Chain.Bytes(), n.Account[:])
}

// Compare defines the total order used by claim batches: chain first, then account.
func (n Nominee) Compare(other Nominee) int {
	switch {
	case n.Chain < other.Chain:
		return -1
	case n.Chain > other.Chain:
		return 1
	}
	return n.Account.Compare(other.Account)
}

func (n Nominee) String() string {
	return fmt.Sprintf("%d:%s", n.Chain, n.Account.AbbrevString())
}

// QueueHash identifies a queued (target, amount, batch nonce) triple.
func QueueHash(target Address, amount *big.Int, nonce *big.Int) Bytes32 {
	return Keccak256(
		target.Bytes32().Bytes(),
		BytesToBytes32(amount.Bytes()).Bytes(),
		BytesToBytes32(nonce.Bytes()).Bytes(),
	)
}
