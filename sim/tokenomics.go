// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sim

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/dispenser/builtin/dispenser"
	"github.com/vechain/dispenser/builtin/solidity"
	"github.com/vechain/dispenser/builtin/token"
	"github.com/vechain/dispenser/state"
	"github.com/vechain/dispenser/xchain"
)

var _ dispenser.Tokenomics = (*Tokenomics)(nil)

func unitKey(owner xchain.Address, kind dispenser.UnitKind, id *big.Int) xchain.Bytes32 {
	return xchain.Blake2b(owner.Bytes(), []byte{byte(kind)}, xchain.BytesToBytes32(id.Bytes()).Bytes())
}

// Tokenomics is a flat epoch accounting: every epoch mints the same staking inflation,
// split by settled vote weight and capped per nominee.
type Tokenomics struct {
	addr      xchain.Address
	state     *state.State
	weighting *VoteWeighting

	epoch        *solidity.Uint256
	perEpoch     *solidity.Uint256
	maxPerTarget *solidity.Uint256
	refunded     *solidity.Uint256
	rewards      *solidity.Mapping[xchain.Bytes32, *big.Int]
	topUps       *solidity.Mapping[xchain.Bytes32, *big.Int]
}

func NewTokenomics(addr xchain.Address, st *state.State, weighting *VoteWeighting) *Tokenomics {
	ctx := solidity.NewContext(addr, st)
	return &Tokenomics{
		addr:         addr,
		state:        st,
		weighting:    weighting,
		epoch:        solidity.NewUint256(ctx, solidity.Slot("epoch-counter")),
		perEpoch:     solidity.NewUint256(ctx, solidity.Slot("staking-per-epoch")),
		maxPerTarget: solidity.NewUint256(ctx, solidity.Slot("max-per-target")),
		refunded:     solidity.NewUint256(ctx, solidity.Slot("refunded")),
		rewards:      solidity.NewMapping[xchain.Bytes32, *big.Int](ctx, solidity.Slot("rewards")),
		topUps:       solidity.NewMapping[xchain.Bytes32, *big.Int](ctx, solidity.Slot("top-ups")),
	}
}

// Setup starts the first epoch. It is a no-op on an already started accounting.
func (t *Tokenomics) Setup(perEpoch, maxPerTarget *big.Int) error {
	epoch, err := t.epoch.Get()
	if err != nil {
		return err
	}
	if epoch.Sign() > 0 {
		return nil
	}
	t.epoch.Set(big.NewInt(1))
	t.perEpoch.Set(perEpoch)
	t.maxPerTarget.Set(maxPerTarget)
	return nil
}

func (t *Tokenomics) EpochCounter() (uint32, error) {
	epoch, err := t.epoch.Get()
	if err != nil {
		return 0, err
	}
	if !epoch.IsUint64() || epoch.Uint64() > uint64(^uint32(0)) {
		return 0, errors.New("tokenomics: epoch counter overflows")
	}
	return uint32(epoch.Uint64()), nil
}

// Checkpoint settles the current epoch and starts the next one.
func (t *Tokenomics) Checkpoint() (uint32, error) {
	var settled uint32
	err := t.state.Atomic(func() error {
		epoch, err := t.EpochCounter()
		if err != nil {
			return err
		}
		if err := t.weighting.Snapshot(epoch); err != nil {
			return err
		}
		settled = epoch
		t.epoch.Set(big.NewInt(int64(epoch) + 1))
		return nil
	})
	return settled, err
}

func (t *Tokenomics) StakingIncentive(n xchain.Nominee, epoch uint32) (incentive, returnAmount *big.Int, err error) {
	weight, total, err := t.weighting.RelativeWeight(n, epoch)
	if err != nil {
		return nil, nil, err
	}
	if total.Sign() == 0 || weight.Sign() == 0 {
		return new(big.Int), new(big.Int), nil
	}
	perEpoch, err := t.perEpoch.Get()
	if err != nil {
		return nil, nil, err
	}
	maxPerTarget, err := t.maxPerTarget.Get()
	if err != nil {
		return nil, nil, err
	}
	share := new(big.Int).Mul(perEpoch, weight)
	share.Div(share, total)
	if maxPerTarget.Sign() > 0 && share.Cmp(maxPerTarget) > 0 {
		return maxPerTarget, share.Sub(share, maxPerTarget), nil
	}
	return share, new(big.Int), nil
}

func (t *Tokenomics) RefundFromStaking(amount *big.Int) error {
	_, err := t.refunded.Add(amount)
	return err
}

// Refunded returns the total staking inflation returned to the pool.
func (t *Tokenomics) Refunded() (*big.Int, error) {
	return t.refunded.Get()
}

// Accrue credits owner incentives to a unit of owner.
func (t *Tokenomics) Accrue(owner xchain.Address, kind dispenser.UnitKind, id, reward, topUp *big.Int) error {
	if reward == nil {
		reward = new(big.Int)
	}
	if topUp == nil {
		topUp = new(big.Int)
	}
	key := unitKey(owner, kind, id)
	r, err := t.rewards.Get(key)
	if err != nil {
		return err
	}
	if err := t.rewards.Set(key, r.Add(r, reward)); err != nil {
		return err
	}
	u, err := t.topUps.Get(key)
	if err != nil {
		return err
	}
	return t.topUps.Set(key, u.Add(u, topUp))
}

func (t *Tokenomics) AccountOwnerIncentives(account xchain.Address, kinds []dispenser.UnitKind, ids []*big.Int) (reward, topUp *big.Int, err error) {
	reward, topUp = new(big.Int), new(big.Int)
	for i := range kinds {
		key := unitKey(account, kinds[i], ids[i])
		r, err := t.rewards.Get(key)
		if err != nil {
			return nil, nil, err
		}
		u, err := t.topUps.Get(key)
		if err != nil {
			return nil, nil, err
		}
		reward.Add(reward, r)
		topUp.Add(topUp, u)
		t.rewards.Delete(key)
		t.topUps.Delete(key)
	}
	return reward, topUp, nil
}

// Treasury holds the native rewards and mints top-ups.
type Treasury struct {
	addr  xchain.Address
	state *state.State
	token *token.Token
}

var _ dispenser.Treasury = (*Treasury)(nil)

func NewTreasury(addr xchain.Address, st *state.State, tk *token.Token) *Treasury {
	return &Treasury{addr: addr, state: st, token: tk}
}

func (t *Treasury) Address() xchain.Address { return t.addr }

func (t *Treasury) WithdrawToAccount(account xchain.Address, reward, topUp *big.Int) error {
	if reward != nil && reward.Sign() > 0 {
		ok, err := t.state.Transfer(t.addr, account, reward)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Errorf("treasury: balance below reward %v", reward)
		}
	}
	if topUp != nil && topUp.Sign() > 0 {
		return t.token.Mint(account, topUp)
	}
	return nil
}
