// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package abi

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/vechain/dispenser/xchain"
)

// ErrArrayLength is returned when a batch has no pairs or its arrays differ in length.
var ErrArrayLength = errors.New("abi: wrong array length")

var (
	batchLayout    = newLayout("batch", "address[]", "uint256[]")
	withheldLayout = newLayout("withheld", "uint256", "uint256")
)

// Batch is the instruction a deposit processor sends to its target dispenser:
// deposit Amounts[i] into staking target Targets[i].
type Batch struct {
	Targets []xchain.Address
	Amounts []*big.Int
}

// Total returns the sum of the batch amounts.
func (b *Batch) Total() *big.Int {
	total := new(big.Int)
	for _, a := range b.Amounts {
		total.Add(total, a)
	}
	return total
}

func EncodeBatch(b *Batch) ([]byte, error) {
	if len(b.Targets) == 0 || len(b.Targets) != len(b.Amounts) {
		return nil, ErrArrayLength
	}
	return batchLayout.Encode(toAddresses(b.Targets), b.Amounts)
}

func DecodeBatch(data []byte) (*Batch, error) {
	values, err := batchLayout.Decode(data)
	if err != nil {
		return nil, err
	}
	targets := values[0].([]common.Address)
	amounts := values[1].([]*big.Int)
	if len(targets) == 0 || len(targets) != len(amounts) {
		return nil, errors.WithMessagef(ErrArrayLength, "%d targets, %d amounts", len(targets), len(amounts))
	}
	return &Batch{Targets: fromAddresses(targets), Amounts: amounts}, nil
}

// Withheld is the accounting message a target dispenser sends back to the base chain:
// Amount tokens are withheld on chain ChainID.
type Withheld struct {
	ChainID xchain.ChainID
	Amount  *big.Int
}

func EncodeWithheld(w *Withheld) ([]byte, error) {
	return withheldLayout.Encode(new(big.Int).SetUint64(uint64(w.ChainID)), orZero(w.Amount))
}

func DecodeWithheld(data []byte) (*Withheld, error) {
	values, err := withheldLayout.Decode(data)
	if err != nil {
		return nil, err
	}
	chainID := values[0].(*big.Int)
	if !chainID.IsUint64() {
		return nil, errors.WithMessage(ErrMalformed, "withheld: chain id overflows")
	}
	return &Withheld{ChainID: xchain.ChainID(chainID.Uint64()), Amount: values[1].(*big.Int)}, nil
}
