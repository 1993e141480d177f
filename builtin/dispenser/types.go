// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dispenser

import (
	"math/big"

	"github.com/vechain/dispenser/xchain"
)

// PauseState gates the two claim families independently.
type PauseState uint8

const (
	Unpaused PauseState = iota
	DevIncentivesPaused
	StakingIncentivesPaused
	AllPaused
)

func (p PauseState) String() string {
	switch p {
	case Unpaused:
		return "unpaused"
	case DevIncentivesPaused:
		return "dev-incentives-paused"
	case StakingIncentivesPaused:
		return "staking-incentives-paused"
	case AllPaused:
		return "all-paused"
	}
	return "unknown"
}

func (p PauseState) stakingPaused() bool {
	return p == StakingIncentivesPaused || p == AllPaused
}

func (p PauseState) devPaused() bool {
	return p == DevIncentivesPaused || p == AllPaused
}

// UnitKind is the kind of a registry unit whose owner accrues incentives.
type UnitKind uint8

const (
	Component UnitKind = iota
	Agent
)

// Tokenomics is the epoch accounting collaborator. Every epoch before EpochCounter is settled.
type Tokenomics interface {
	EpochCounter() (uint32, error)
	// StakingIncentive returns, for one settled epoch, the amount owed to the nominee and the
	// amount of its allocation that goes back to the inflation pool.
	StakingIncentive(nominee xchain.Nominee, epoch uint32) (incentive, returnAmount *big.Int, err error)
	RefundFromStaking(amount *big.Int) error
	// AccountOwnerIncentives returns and clears the pending owner incentives of account's units.
	AccountOwnerIncentives(account xchain.Address, kinds []UnitKind, ids []*big.Int) (reward, topUp *big.Int, err error)
}

// Treasury pays out native rewards and mints top-up tokens.
type Treasury interface {
	WithdrawToAccount(account xchain.Address, reward, topUp *big.Int) error
}

// DepositProcessor is the outbound adapter serving one destination chain.
type DepositProcessor interface {
	Address() xchain.Address
	// QuoteCost returns the native value a send with payload costs.
	QuoteCost(payload []byte, transferAmount *big.Int) (*big.Int, error)
	SendMessage(caller, payer xchain.Address, value *big.Int, target xchain.Bytes32, amount *big.Int,
		payload []byte, transferAmount *big.Int) error
	SendMessageBatch(caller, payer xchain.Address, value *big.Int, targets []xchain.Bytes32, amounts []*big.Int,
		payload []byte, transferAmount *big.Int) error
}

// StakingQuote is the outcome a staking claim would have for one chain.
type StakingQuote struct {
	ChainID        xchain.ChainID
	Targets        []xchain.Bytes32
	Amounts        []*big.Int
	Total          *big.Int
	ReturnAmount   *big.Int
	TransferAmount *big.Int
	Cost           *big.Int
}
