// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token is the fungible incentive token, deployed once per chain.
// Bridged chains hold a mintable representation of the base chain token.
package token

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/dispenser/builtin/reverts"
	"github.com/vechain/dispenser/builtin/solidity"
	"github.com/vechain/dispenser/log"
	"github.com/vechain/dispenser/state"
	"github.com/vechain/dispenser/xchain"
)

var (
	logger = log.WithContext("pkg", "token")

	balancesSlot    = solidity.Slot("balances")
	totalSupplySlot = solidity.Slot("total-supply")

	// ErrInsufficientBalance is raised when a transfer or burn exceeds the holder balance.
	ErrInsufficientBalance = reverts.NewRequireError("token: transfer amount exceeds balance")
)

// Token keeps balances in the storage of the token contract.
type Token struct {
	addr        xchain.Address
	balances    *solidity.Mapping[xchain.Address, *big.Int]
	totalSupply *solidity.Uint256
}

func New(addr xchain.Address, state *state.State) *Token {
	ctx := solidity.NewContext(addr, state)
	return &Token{
		addr:        addr,
		balances:    solidity.NewMapping[xchain.Address, *big.Int](ctx, balancesSlot),
		totalSupply: solidity.NewUint256(ctx, totalSupplySlot),
	}
}

// Address returns the token contract address.
func (t *Token) Address() xchain.Address {
	return t.addr
}

func (t *Token) BalanceOf(holder xchain.Address) (*big.Int, error) {
	bal, err := t.balances.Get(holder)
	if err != nil {
		return nil, errors.Wrap(err, "balance of")
	}
	return bal, nil
}

func (t *Token) TotalSupply() (*big.Int, error) {
	return t.totalSupply.Get()
}

// Transfer moves amount from one holder to another.
func (t *Token) Transfer(from, to xchain.Address, amount *big.Int) error {
	if amount.Sign() == 0 || from == to {
		return nil
	}
	if err := t.sub(from, amount); err != nil {
		return err
	}
	if err := t.add(to, amount); err != nil {
		return err
	}
	logger.Trace("transfer", "from", from, "to", to, "amount", amount)
	return nil
}

// Mint creates amount tokens for holder.
func (t *Token) Mint(holder xchain.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := t.add(holder, amount); err != nil {
		return err
	}
	if _, err := t.totalSupply.Add(amount); err != nil {
		return errors.Wrap(err, "mint")
	}
	logger.Trace("mint", "to", holder, "amount", amount)
	return nil
}

// Burn destroys amount tokens of holder.
func (t *Token) Burn(holder xchain.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := t.sub(holder, amount); err != nil {
		return err
	}
	if _, err := t.totalSupply.Sub(amount); err != nil {
		return errors.Wrap(err, "burn")
	}
	logger.Trace("burn", "from", holder, "amount", amount)
	return nil
}

func (t *Token) add(holder xchain.Address, amount *big.Int) error {
	bal, err := t.BalanceOf(holder)
	if err != nil {
		return err
	}
	return t.balances.Set(holder, bal.Add(bal, amount))
}

func (t *Token) sub(holder xchain.Address, amount *big.Int) error {
	bal, err := t.BalanceOf(holder)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	bal.Sub(bal, amount)
	if bal.Sign() == 0 {
		t.balances.Delete(holder)
		return nil
	}
	return t.balances.Set(holder, bal)
}
