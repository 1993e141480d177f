// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package solidity provides storage primitives for native contracts, laid out the way
// a solidity contract lays out its state variables.
package solidity

import (
	"github.com/vechain/dispenser/state"
	"github.com/vechain/dispenser/xchain"
)

// Context binds a contract address to the state of the chain it is deployed on.
type Context struct {
	address xchain.Address
	state   *state.State
}

func NewContext(address xchain.Address, state *state.State) *Context {
	return &Context{address: address, state: state}
}

func (c *Context) Address() xchain.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}

// Slot derives a storage position from a variable name.
func Slot(name string) xchain.Bytes32 {
	return xchain.BytesToBytes32([]byte(name))
}
