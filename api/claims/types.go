// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package claims

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/dispenser/builtin/dispenser"
	"github.com/vechain/dispenser/xchain"
)

// ChainClaim is the part of a staking claim bound for one chain. Without payload the default
// bridging parameters apply, with the caller as refund account; without value the quoted
// cost is paid.
type ChainClaim struct {
	ChainID xchain.ChainID        `json:"chainId"`
	Targets []xchain.Bytes32      `json:"targets"`
	Payload *hexutil.Bytes        `json:"payload,omitempty"`
	Value   *math.HexOrDecimal256 `json:"value,omitempty"`
}

type StakingRequest struct {
	Caller    xchain.Address `json:"caller"`
	NumEpochs uint32         `json:"numEpochs"`
	Claims    []ChainClaim   `json:"claims"`
}

type Quote struct {
	ChainID        xchain.ChainID          `json:"chainId"`
	Targets        []xchain.Bytes32        `json:"targets"`
	Amounts        []*math.HexOrDecimal256 `json:"amounts"`
	Total          *math.HexOrDecimal256   `json:"total"`
	ReturnAmount   *math.HexOrDecimal256   `json:"returnAmount"`
	TransferAmount *math.HexOrDecimal256   `json:"transferAmount"`
	Cost           *math.HexOrDecimal256   `json:"cost"`
}

type Unit struct {
	Kind dispenser.UnitKind    `json:"kind"`
	ID   *math.HexOrDecimal256 `json:"id"`
}

type OwnerRequest struct {
	Caller xchain.Address `json:"caller"`
	Units  []Unit         `json:"units"`
}

type OwnerResult struct {
	Reward *math.HexOrDecimal256 `json:"reward"`
	TopUp  *math.HexOrDecimal256 `json:"topUp"`
}

type RetainRequest struct {
	Caller xchain.Address `json:"caller"`
}

func hex(v *big.Int) *math.HexOrDecimal256 {
	if v == nil {
		v = new(big.Int)
	}
	return (*math.HexOrDecimal256)(v)
}

func convertQuote(q *dispenser.StakingQuote) *Quote {
	out := &Quote{
		ChainID:        q.ChainID,
		Targets:        q.Targets,
		Amounts:        make([]*math.HexOrDecimal256, 0, len(q.Amounts)),
		Total:          hex(q.Total),
		ReturnAmount:   hex(q.ReturnAmount),
		TransferAmount: hex(q.TransferAmount),
		Cost:           hex(q.Cost),
	}
	for _, a := range q.Amounts {
		out.Amounts = append(out.Amounts, hex(a))
	}
	return out
}
