// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"math/big"

	"github.com/vechain/dispenser/log"
	"github.com/vechain/dispenser/xchain"
)

// ConfigVariable is a uint32 parameter with a compiled-in default that can be overridden in storage.
// A stored zero means "use the default".
type ConfigVariable struct {
	slot         xchain.Bytes32
	name         string
	defaultValue uint32
}

func NewConfigVariable(name string, defaultValue uint32) *ConfigVariable {
	return &ConfigVariable{
		slot:         Slot(name),
		name:         name,
		defaultValue: defaultValue,
	}
}

func (c *ConfigVariable) Name() string {
	return c.name
}

func (c *ConfigVariable) Slot() xchain.Bytes32 {
	return c.slot
}

// Get reads the current value through ctx.
func (c *ConfigVariable) Get(ctx *Context) (uint32, error) {
	storage, err := ctx.state.GetStorage(ctx.address, c.slot)
	if err != nil {
		return 0, err
	}
	num := new(big.Int).SetBytes(storage.Bytes())
	if num.Sign() == 0 {
		return c.defaultValue, nil
	}
	return uint32(num.Uint64()), nil
}

// Set overrides the value in storage.
func (c *ConfigVariable) Set(ctx *Context, value uint32) {
	log.Debug("config value overridden", "slot", c.name, "value", value)
	ctx.state.SetStorage(ctx.address, c.slot, xchain.BytesToBytes32(new(big.Int).SetUint64(uint64(value)).Bytes()))
}
