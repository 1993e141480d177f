// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/vechain/dispenser/xchain"
)

// Address is a wrapper for storage and retrieval of an address. Similar to storing an address in a smart contract.
type Address struct {
	context *Context
	pos     xchain.Bytes32
}

func NewAddress(context *Context, pos xchain.Bytes32) *Address {
	return &Address{context: context, pos: pos}
}

func (a *Address) Get() (xchain.Address, error) {
	storage, err := a.context.state.GetStorage(a.context.address, a.pos)
	if err != nil {
		return xchain.Address{}, err
	}
	return xchain.BytesToAddress(storage.Bytes()), nil
}

// Set stores addr. The zero address clears the slot.
func (a *Address) Set(addr xchain.Address) {
	a.context.state.SetStorage(a.context.address, a.pos, xchain.BytesToBytes32(addr.Bytes()))
}

// Bool is a storage flag.
type Bool struct {
	context *Context
	pos     xchain.Bytes32
}

func NewBool(context *Context, pos xchain.Bytes32) *Bool {
	return &Bool{context: context, pos: pos}
}

func (b *Bool) Get() (bool, error) {
	storage, err := b.context.state.GetStorage(b.context.address, b.pos)
	if err != nil {
		return false, err
	}
	return !storage.IsZero(), nil
}

func (b *Bool) Set(v bool) {
	var storage xchain.Bytes32
	if v {
		storage[31] = 1
	}
	b.context.state.SetStorage(b.context.address, b.pos, storage)
}
