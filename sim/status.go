// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sim

import (
	"math/big"

	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/xchain"
)

// TargetStatus is what a staking target received on its chain.
type TargetStatus struct {
	Address   xchain.Address
	Limit     *big.Int
	Deposited *big.Int
}

// ChainStatus is a snapshot of one satellite and of its accounting on the base chain.
type ChainStatus struct {
	ID        xchain.ChainID
	Name      string
	Family    bridge.Family
	Processor xchain.Address
	Ledger    xchain.Address
	Phase     string
	Lifecycle string
	Nonce     *big.Int
	Balance   *big.Int
	Withheld  *big.Int
	// Credit is the withheld amount the dispenser still deducts from transfers to the chain.
	Credit  *big.Int
	Targets []TargetStatus
}

func (n *Network) chainStatus(sat *Satellite) (*ChainStatus, error) {
	s := &ChainStatus{
		ID:        sat.Config.ID,
		Name:      sat.Config.Name,
		Family:    sat.Config.Family,
		Processor: sat.Processor.Address(),
		Ledger:    sat.Ledger.Address(),
	}
	phase, err := sat.Processor.Phase()
	if err != nil {
		return nil, err
	}
	s.Phase = phase.String()
	lifecycle, err := sat.Ledger.Lifecycle()
	if err != nil {
		return nil, err
	}
	s.Lifecycle = lifecycle.String()
	if s.Nonce, err = sat.Ledger.StakingBatchNonce(); err != nil {
		return nil, err
	}
	if s.Balance, err = sat.Ledger.Balance(); err != nil {
		return nil, err
	}
	if s.Withheld, err = sat.Ledger.WithheldAmount(); err != nil {
		return nil, err
	}
	if s.Credit, err = n.dispenser.WithheldAmount(sat.Config.ID); err != nil {
		return nil, err
	}
	for _, t := range sat.Config.Targets {
		deposited, err := sat.Factory.Deposited(t.Address)
		if err != nil {
			return nil, err
		}
		s.Targets = append(s.Targets, TargetStatus{
			Address:   t.Address,
			Limit:     new(big.Int).SetUint64(t.Limit),
			Deposited: deposited,
		})
	}
	return s, nil
}

// Status returns the snapshot of chain.
func (n *Network) Status(chain xchain.ChainID) (*ChainStatus, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	sat, err := n.Satellite(chain)
	if err != nil {
		return nil, err
	}
	return n.chainStatus(sat)
}

// Statuses returns the snapshot of every satellite.
func (n *Network) Statuses() ([]*ChainStatus, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]*ChainStatus, 0, len(n.ids))
	for _, id := range n.ids {
		s, err := n.chainStatus(n.chains[id])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
