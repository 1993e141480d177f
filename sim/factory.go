// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sim

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/dispenser/builtin/solidity"
	"github.com/vechain/dispenser/builtin/targetdispenser"
	"github.com/vechain/dispenser/state"
	"github.com/vechain/dispenser/xchain"
)

var _ targetdispenser.StakingFactory = (*StakingFactory)(nil)

// StakingFactory is the staking proxy registry of a satellite chain.
type StakingFactory struct {
	state     *state.State
	limits    *solidity.Mapping[xchain.Address, *big.Int]
	deposited *solidity.Mapping[xchain.Address, *big.Int]
}

func NewStakingFactory(addr xchain.Address, st *state.State) *StakingFactory {
	ctx := solidity.NewContext(addr, st)
	return &StakingFactory{
		state:     st,
		limits:    solidity.NewMapping[xchain.Address, *big.Int](ctx, solidity.Slot("instances")),
		deposited: solidity.NewMapping[xchain.Address, *big.Int](ctx, solidity.Slot("deposited")),
	}
}

// AddInstance deploys a staking proxy at target accepting up to limit per deposit.
func (f *StakingFactory) AddInstance(target xchain.Address, limit *big.Int) error {
	if limit.Sign() == 0 {
		return errors.Errorf("staking factory: zero limit for %v", target)
	}
	if err := f.state.SetCode(target, []byte("staking-proxy")); err != nil {
		return err
	}
	return f.limits.Set(target, limit)
}

func (f *StakingFactory) VerifyInstance(target xchain.Address) (*big.Int, error) {
	return f.limits.Get(target)
}

func (f *StakingFactory) Deposit(target xchain.Address, amount *big.Int) error {
	limit, err := f.limits.Get(target)
	if err != nil {
		return err
	}
	if limit.Sign() == 0 {
		return errors.Errorf("staking factory: %v is not an instance", target)
	}
	d, err := f.deposited.Get(target)
	if err != nil {
		return err
	}
	return f.deposited.Set(target, d.Add(d, amount))
}

// Deposited returns the total deposited into target.
func (f *StakingFactory) Deposited(target xchain.Address) (*big.Int, error) {
	return f.deposited.Get(target)
}
