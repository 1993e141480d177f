// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sim

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/dispenser/builtin/solidity"
	"github.com/vechain/dispenser/state"
	"github.com/vechain/dispenser/xchain"
)

// NomineeRegistry is the dispenser side of vote weighting: it is notified of nominees
// entering and leaving the vote.
type NomineeRegistry interface {
	AddNominee(caller xchain.Address, n xchain.Nominee) error
	RemoveNominee(caller xchain.Address, n xchain.Nominee) error
}

type index uint64

func (i index) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(i))
	return b[:]
}

// epochWeightKey keys the weight of a nominee, or the total when the nominee hash is zero,
// in a settled epoch.
func epochWeightKey(nominee xchain.Bytes32, epoch uint32) xchain.Bytes32 {
	var e [4]byte
	binary.BigEndian.PutUint32(e[:], epoch)
	return xchain.Blake2b(nominee.Bytes(), e[:])
}

// VoteWeighting keeps the vote weight of each nominee and snapshots them when an epoch settles.
type VoteWeighting struct {
	addr         xchain.Address
	state        *state.State
	registry     NomineeRegistry
	count        *solidity.Uint256
	nominees     *solidity.Mapping[index, xchain.Nominee]
	weights      *solidity.Mapping[xchain.Bytes32, *big.Int]
	epochWeights *solidity.Mapping[xchain.Bytes32, *big.Int]
}

func NewVoteWeighting(addr xchain.Address, st *state.State) *VoteWeighting {
	ctx := solidity.NewContext(addr, st)
	return &VoteWeighting{
		addr:         addr,
		state:        st,
		count:        solidity.NewUint256(ctx, solidity.Slot("nominee-count")),
		nominees:     solidity.NewMapping[index, xchain.Nominee](ctx, solidity.Slot("nominees")),
		weights:      solidity.NewMapping[xchain.Bytes32, *big.Int](ctx, solidity.Slot("weights")),
		epochWeights: solidity.NewMapping[xchain.Bytes32, *big.Int](ctx, solidity.Slot("epoch-weights")),
	}
}

func (v *VoteWeighting) Address() xchain.Address { return v.addr }

// Bind sets the dispenser notified of nominee changes.
func (v *VoteWeighting) Bind(registry NomineeRegistry) {
	v.registry = registry
}

// AddNominee registers n with weight and announces it to the dispenser.
func (v *VoteWeighting) AddNominee(n xchain.Nominee, weight uint64) error {
	return v.state.Atomic(func() error {
		if err := v.registry.AddNominee(v.addr, n); err != nil {
			return err
		}
		count, err := v.count.Get()
		if err != nil {
			return err
		}
		if err := v.nominees.Set(index(count.Uint64()), n); err != nil {
			return err
		}
		v.count.Set(count.Add(count, big.NewInt(1)))
		return v.weights.Set(n.Hash(), new(big.Int).SetUint64(weight))
	})
}

// RemoveNominee drops the weight of n and announces the removal to the dispenser.
func (v *VoteWeighting) RemoveNominee(n xchain.Nominee) error {
	return v.state.Atomic(func() error {
		if err := v.registry.RemoveNominee(v.addr, n); err != nil {
			return err
		}
		return v.weights.Set(n.Hash(), new(big.Int))
	})
}

// SetWeight changes the vote weight of n from the current epoch on.
func (v *VoteWeighting) SetWeight(n xchain.Nominee, weight uint64) error {
	return v.weights.Set(n.Hash(), new(big.Int).SetUint64(weight))
}

// Nominees lists every nominee ever registered, in registration order.
func (v *VoteWeighting) Nominees() ([]xchain.Nominee, error) {
	count, err := v.count.Get()
	if err != nil {
		return nil, err
	}
	out := make([]xchain.Nominee, 0, count.Uint64())
	for i := uint64(0); i < count.Uint64(); i++ {
		n, err := v.nominees.Get(index(i))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Snapshot freezes the current weights as those of epoch.
func (v *VoteWeighting) Snapshot(epoch uint32) error {
	nominees, err := v.Nominees()
	if err != nil {
		return err
	}
	total := new(big.Int)
	for _, n := range nominees {
		w, err := v.weights.Get(n.Hash())
		if err != nil {
			return err
		}
		if err := v.epochWeights.Set(epochWeightKey(n.Hash(), epoch), w); err != nil {
			return err
		}
		total.Add(total, w)
	}
	return v.epochWeights.Set(epochWeightKey(xchain.Bytes32{}, epoch), total)
}

// RelativeWeight returns the weight of n and the total weight in a settled epoch.
func (v *VoteWeighting) RelativeWeight(n xchain.Nominee, epoch uint32) (weight, total *big.Int, err error) {
	if weight, err = v.epochWeights.Get(epochWeightKey(n.Hash(), epoch)); err != nil {
		return nil, nil, errors.Wrap(err, "nominee weight")
	}
	if total, err = v.epochWeights.Get(epochWeightKey(xchain.Bytes32{}, epoch)); err != nil {
		return nil, nil, errors.Wrap(err, "total weight")
	}
	return weight, total, nil
}
