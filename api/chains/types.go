// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chains

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/sim"
	"github.com/vechain/dispenser/xchain"
)

type Chain struct {
	ID        xchain.ChainID `json:"id"`
	Name      string         `json:"name"`
	Family    bridge.Family  `json:"family"`
	Processor xchain.Address `json:"processor"`
	Ledger    xchain.Address `json:"ledger"`
}

type Target struct {
	Address   xchain.Address        `json:"address"`
	Limit     *math.HexOrDecimal256 `json:"limit"`
	Deposited *math.HexOrDecimal256 `json:"deposited"`
}

type Ledger struct {
	Chain
	ProcessorPhase    string                `json:"processorPhase"`
	Lifecycle         string                `json:"lifecycle"`
	StakingBatchNonce *math.HexOrDecimal256 `json:"stakingBatchNonce"`
	Balance           *math.HexOrDecimal256 `json:"balance"`
	WithheldAmount    *math.HexOrDecimal256 `json:"withheldAmount"`
	WithheldCredit    *math.HexOrDecimal256 `json:"withheldCredit"`
	Targets           []Target              `json:"targets"`
}

type RedeemRequest struct {
	Caller xchain.Address        `json:"caller"`
	Target xchain.Address        `json:"target"`
	Amount *math.HexOrDecimal256 `json:"amount"`
	Nonce  *math.HexOrDecimal256 `json:"nonce"`
}

// SyncRequest reports the withheld amount back. Without payload the default bridging
// parameters apply; without value the quoted cost is paid.
type SyncRequest struct {
	Caller  xchain.Address        `json:"caller"`
	Value   *math.HexOrDecimal256 `json:"value,omitempty"`
	Payload *hexutil.Bytes        `json:"payload,omitempty"`
}

type SyncResult struct {
	Amount *math.HexOrDecimal256 `json:"amount"`
	Cost   *math.HexOrDecimal256 `json:"cost"`
}

func hex(v *big.Int) *math.HexOrDecimal256 {
	if v == nil {
		v = new(big.Int)
	}
	return (*math.HexOrDecimal256)(v)
}

func toBig(v *math.HexOrDecimal256) *big.Int {
	if v == nil {
		return nil
	}
	return (*big.Int)(v)
}

func convertChain(s *sim.ChainStatus) Chain {
	return Chain{
		ID:        s.ID,
		Name:      s.Name,
		Family:    s.Family,
		Processor: s.Processor,
		Ledger:    s.Ledger,
	}
}

func convertLedger(s *sim.ChainStatus) *Ledger {
	l := &Ledger{
		Chain:             convertChain(s),
		ProcessorPhase:    s.Phase,
		Lifecycle:         s.Lifecycle,
		StakingBatchNonce: hex(s.Nonce),
		Balance:           hex(s.Balance),
		WithheldAmount:    hex(s.Withheld),
		WithheldCredit:    hex(s.Credit),
		Targets:           make([]Target, 0, len(s.Targets)),
	}
	for _, t := range s.Targets {
		l.Targets = append(l.Targets, Target{Address: t.Address, Limit: hex(t.Limit), Deposited: hex(t.Deposited)})
	}
	return l
}
