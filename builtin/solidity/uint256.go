// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/dispenser/xchain"
)

var (
	ErrUint256Overflow  = errors.New("uint256 overflow")
	ErrUint256Underflow = errors.New("uint256 underflow")
)

// Uint256 is a wrapper for storage and retrieval of an uint256. Similar to storing an uint256 in a smart contract.
// Set truncates a value wider than 256 bits to fit into xchain.Bytes32; Add and Sub refuse to
// leave the uint256 range and keep the stored value.
type Uint256 struct {
	context *Context
	pos     xchain.Bytes32
}

func NewUint256(context *Context, slot xchain.Bytes32) *Uint256 {
	return &Uint256{context: context, pos: slot}
}

func (u *Uint256) Get() (*big.Int, error) {
	storage, err := u.context.state.GetStorage(u.context.address, u.pos)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(storage.Bytes()), nil
}

func (u *Uint256) Set(value *big.Int) {
	u.context.state.SetStorage(u.context.address, u.pos, xchain.BytesToBytes32(value.Bytes()))
}

func (u *Uint256) Add(value *big.Int) (*big.Int, error) {
	storage, err := u.Get()
	if err != nil {
		return nil, err
	}
	storage.Add(storage, value)
	if storage.BitLen() > 256 {
		return nil, ErrUint256Overflow
	}
	u.Set(storage)
	return storage, nil
}

func (u *Uint256) Sub(value *big.Int) (*big.Int, error) {
	storage, err := u.Get()
	if err != nil {
		return nil, err
	}
	storage.Sub(storage, value)
	if storage.Sign() < 0 {
		return nil, ErrUint256Underflow
	}
	u.Set(storage)
	return storage, nil
}
