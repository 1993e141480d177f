// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package dispenser is the dispatcher of the base chain. It turns settled epoch incentives
// into amounts per nominee and routes them to the deposit processor of each chain.
package dispenser

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/dispenser/builtin/guard"
	"github.com/vechain/dispenser/builtin/solidity"
	"github.com/vechain/dispenser/log"
	"github.com/vechain/dispenser/state"
	"github.com/vechain/dispenser/xchain"
)

const (
	DefaultMaxNumClaimingEpochs = 10
	DefaultMaxNumStakingTargets = 100
)

var (
	logger = log.WithContext("pkg", "dispenser")

	ownerSlot         = solidity.Slot("owner")
	voteWeightingSlot = solidity.Slot("vote-weighting")
	pauseSlot         = solidity.Slot("pause-state")
	retainerSlot      = solidity.Slot("retainer")
	lastClaimedSlot   = solidity.Slot("last-claimed-epochs")
	removedSlot       = solidity.Slot("removed-epochs")
	routesSlot        = solidity.Slot("deposit-processors")
	withheldSlot      = solidity.Slot("withheld-amounts")

	maxNumClaimingEpochs = solidity.NewConfigVariable("max-num-claiming-epochs", DefaultMaxNumClaimingEpochs)
	maxNumStakingTargets = solidity.NewConfigVariable("max-num-staking-targets", DefaultMaxNumStakingTargets)

	code = []byte("dispenser")
)

// Dispenser is deployed once, on the base chain.
type Dispenser struct {
	addr          xchain.Address
	state         *state.State
	ctx           *solidity.Context
	owner         *solidity.Address
	voteWeighting *solidity.Address
	pause         *solidity.Uint256
	lastClaimed   *solidity.Mapping[xchain.Bytes32, uint32]
	removed       *solidity.Mapping[xchain.Bytes32, uint32]
	routes        *solidity.Mapping[xchain.ChainID, xchain.Address]
	withheld      *solidity.Mapping[xchain.ChainID, *big.Int]
	guard         *guard.Guard

	tokenomics Tokenomics
	treasury   Treasury
	processors map[xchain.Address]DepositProcessor
}

func New(addr xchain.Address, st *state.State, tokenomics Tokenomics, treasury Treasury) *Dispenser {
	ctx := solidity.NewContext(addr, st)
	return &Dispenser{
		addr:          addr,
		state:         st,
		ctx:           ctx,
		owner:         solidity.NewAddress(ctx, ownerSlot),
		voteWeighting: solidity.NewAddress(ctx, voteWeightingSlot),
		pause:         solidity.NewUint256(ctx, pauseSlot),
		lastClaimed:   solidity.NewMapping[xchain.Bytes32, uint32](ctx, lastClaimedSlot),
		removed:       solidity.NewMapping[xchain.Bytes32, uint32](ctx, removedSlot),
		routes:        solidity.NewMapping[xchain.ChainID, xchain.Address](ctx, routesSlot),
		withheld:      solidity.NewMapping[xchain.ChainID, *big.Int](ctx, withheldSlot),
		guard:         guard.New(ctx),
		tokenomics:    tokenomics,
		treasury:      treasury,
		processors:    make(map[xchain.Address]DepositProcessor),
	}
}

// Initialize deploys the contract: it sets the owner and the vote weighting collaborator.
func (d *Dispenser) Initialize(owner, voteWeighting xchain.Address) error {
	return d.state.Atomic(func() error {
		deployed, err := d.state.IsContract(d.addr)
		if err != nil {
			return err
		}
		if deployed {
			return errors.Errorf("dispenser: already deployed at %v", d.addr)
		}
		if owner.IsZero() || voteWeighting.IsZero() {
			return fail(ZeroAddress, "owner or vote weighting")
		}
		if err := d.state.SetCode(d.addr, code); err != nil {
			return err
		}
		d.owner.Set(owner)
		d.voteWeighting.Set(voteWeighting)
		return nil
	})
}

// RegisterProcessor makes a deposit processor reachable. Routing to it still requires
// SetDepositProcessorChainIDs.
func (d *Dispenser) RegisterProcessor(p DepositProcessor) {
	d.processors[p.Address()] = p
}

func (d *Dispenser) Address() xchain.Address {
	return d.addr
}

func (d *Dispenser) Owner() (xchain.Address, error) {
	return d.owner.Get()
}

func (d *Dispenser) VoteWeighting() (xchain.Address, error) {
	return d.voteWeighting.Get()
}

func (d *Dispenser) PauseState() (PauseState, error) {
	v, err := d.pause.Get()
	if err != nil {
		return 0, err
	}
	return PauseState(v.Uint64()), nil
}

// LastClaimedEpoch returns the first epoch not yet claimed for the nominee, zero when unknown.
func (d *Dispenser) LastClaimedEpoch(n xchain.Nominee) (uint32, error) {
	return d.lastClaimed.Get(n.Hash())
}

// RemovedEpoch returns the epoch the nominee was removed at, zero when it was not.
func (d *Dispenser) RemovedEpoch(n xchain.Nominee) (uint32, error) {
	return d.removed.Get(n.Hash())
}

func (d *Dispenser) Retainer() (xchain.Bytes32, error) {
	return d.state.GetStorage(d.addr, retainerSlot)
}

// Route returns the deposit processor address serving chain, zero when none.
func (d *Dispenser) Route(chain xchain.ChainID) (xchain.Address, error) {
	return d.routes.Get(chain)
}

// WithheldAmount returns the credit of tokens withheld on chain, consumed by later transfers.
func (d *Dispenser) WithheldAmount(chain xchain.ChainID) (*big.Int, error) {
	return d.withheld.Get(chain)
}

// StakingParams returns the maximum number of epochs per claim and of targets per call.
func (d *Dispenser) StakingParams() (maxEpochs, maxTargets uint32, err error) {
	if maxEpochs, err = maxNumClaimingEpochs.Get(d.ctx); err != nil {
		return
	}
	maxTargets, err = maxNumStakingTargets.Get(d.ctx)
	return
}

func (d *Dispenser) onlyOwner(caller xchain.Address) error {
	owner, err := d.owner.Get()
	if err != nil {
		return err
	}
	if owner.IsZero() || caller != owner {
		return fail(OwnerOnly, "%v", caller)
	}
	return nil
}

// enter acquires the reentrancy guard.
func (d *Dispenser) enter() (func(), error) {
	release, err := d.guard.Enter()
	if errors.Is(err, guard.ErrReentrant) {
		return nil, fail(ReentrancyGuard, "")
	}
	return release, err
}

func (d *Dispenser) isRegistered(n xchain.Nominee) (registered, removed bool, err error) {
	last, err := d.lastClaimed.Get(n.Hash())
	if err != nil {
		return false, false, err
	}
	eRemoved, err := d.removed.Get(n.Hash())
	if err != nil {
		return false, false, err
	}
	return last > 0, eRemoved > 0, nil
}

// AddNominee registers a nominee. Only the vote weighting collaborator may call it.
// The nominee can claim from the current epoch on.
func (d *Dispenser) AddNominee(caller xchain.Address, n xchain.Nominee) error {
	logger.Debug("adding nominee", "nominee", n)
	err := d.state.Atomic(func() error {
		vw, err := d.voteWeighting.Get()
		if err != nil {
			return err
		}
		if caller != vw {
			return fail(ManagerOnly, "%v", caller)
		}
		if n.Account.IsZero() {
			return fail(ZeroAddress, "nominee account")
		}
		registered, removed, err := d.isRegistered(n)
		if err != nil {
			return err
		}
		if registered || removed {
			return fail(WrongAccount, "nominee %v already registered", n)
		}
		eCounter, err := d.tokenomics.EpochCounter()
		if err != nil {
			return errors.Wrap(err, "epoch counter")
		}
		// zero marks an unregistered nominee
		if eCounter == 0 {
			return fail(ZeroValue, "epoch counter")
		}
		return d.lastClaimed.Set(n.Hash(), eCounter)
	})
	if err != nil {
		logger.Info("add nominee failed", "nominee", n, "error", err)
		return err
	}
	metricNominees().AddWithLabel(1, map[string]string{"change": "add"})
	logger.Info("added nominee", "nominee", n)
	return nil
}

// RemoveNominee stops the accrual of a nominee at the current epoch. Epochs before it
// remain claimable.
func (d *Dispenser) RemoveNominee(caller xchain.Address, n xchain.Nominee) error {
	logger.Debug("removing nominee", "nominee", n)
	err := d.state.Atomic(func() error {
		vw, err := d.voteWeighting.Get()
		if err != nil {
			return err
		}
		if caller != vw {
			return fail(ManagerOnly, "%v", caller)
		}
		registered, removed, err := d.isRegistered(n)
		if err != nil {
			return err
		}
		if !registered || removed {
			return fail(WrongAccount, "nominee %v not active", n)
		}
		retainer, err := d.Retainer()
		if err != nil {
			return err
		}
		if n.Chain == xchain.BaseChainID && n.Account == retainer {
			return fail(WrongAccount, "nominee %v is the retainer", n)
		}
		eCounter, err := d.tokenomics.EpochCounter()
		if err != nil {
			return errors.Wrap(err, "epoch counter")
		}
		return d.removed.Set(n.Hash(), eCounter)
	})
	if err != nil {
		logger.Info("remove nominee failed", "nominee", n, "error", err)
		return err
	}
	metricNominees().AddWithLabel(1, map[string]string{"change": "remove"})
	logger.Info("removed nominee", "nominee", n)
	return nil
}

// ChangeRetainer designates the base chain nominee absorbing unclaimed inflation.
func (d *Dispenser) ChangeRetainer(caller xchain.Address, account xchain.Bytes32) error {
	return d.admin("change retainer", caller, func() error {
		if account.IsZero() {
			return fail(ZeroAddress, "retainer")
		}
		registered, removed, err := d.isRegistered(xchain.Nominee{Chain: xchain.BaseChainID, Account: account})
		if err != nil {
			return err
		}
		if !registered || removed {
			return fail(ZeroValue, "retainer %v is not an active nominee", account)
		}
		d.state.SetStorage(d.addr, retainerSlot, account)
		return nil
	})
}

func (d *Dispenser) SetPauseState(caller xchain.Address, ps PauseState) error {
	return d.admin("set pause state", caller, func() error {
		if ps > AllPaused {
			return fail(Overflow, "pause state %d", ps)
		}
		d.pause.Set(big.NewInt(int64(ps)))
		return nil
	})
}

// ChangeOwner hands the owner capability over to newOwner.
func (d *Dispenser) ChangeOwner(caller, newOwner xchain.Address) error {
	return d.admin("change owner", caller, func() error {
		if newOwner.IsZero() {
			return fail(ZeroAddress, "owner")
		}
		d.owner.Set(newOwner)
		return nil
	})
}

func (d *Dispenser) ChangeStakingParams(caller xchain.Address, maxEpochs, maxTargets uint32) error {
	return d.admin("change staking params", caller, func() error {
		if maxEpochs == 0 || maxTargets == 0 {
			return fail(ZeroValue, "staking params")
		}
		maxNumClaimingEpochs.Set(d.ctx, maxEpochs)
		maxNumStakingTargets.Set(d.ctx, maxTargets)
		return nil
	})
}

// SetDepositProcessorChainIDs routes chainIDs[i] to processors[i].
func (d *Dispenser) SetDepositProcessorChainIDs(caller xchain.Address, processors []xchain.Address, chainIDs []xchain.ChainID) error {
	return d.admin("set deposit processors", caller, func() error {
		if len(processors) == 0 || len(processors) != len(chainIDs) {
			return fail(WrongArrayLength, "%d processors, %d chains", len(processors), len(chainIDs))
		}
		for i, chainID := range chainIDs {
			if chainID == 0 {
				return fail(ZeroValue, "chain id")
			}
			if processors[i].IsZero() {
				return fail(ZeroAddress, "processor for chain %v", chainID)
			}
			if _, ok := d.processors[processors[i]]; !ok {
				return fail(WrongAccount, "no deposit processor at %v", processors[i])
			}
			if err := d.routes.Set(chainID, processors[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ChangeManagers swaps the epoch accounting and treasury strategies and the vote weighting
// address. Nil or zero arguments keep the current value.
func (d *Dispenser) ChangeManagers(caller xchain.Address, tokenomics Tokenomics, treasury Treasury, voteWeighting xchain.Address) error {
	return d.admin("change managers", caller, func() error {
		if tokenomics == nil && treasury == nil && voteWeighting.IsZero() {
			return fail(ZeroAddress, "managers")
		}
		if !voteWeighting.IsZero() {
			d.voteWeighting.Set(voteWeighting)
		}
		if tokenomics != nil {
			d.tokenomics = tokenomics
		}
		if treasury != nil {
			d.treasury = treasury
		}
		return nil
	})
}

// SyncWithheldAmount credits amount of tokens withheld on chainID. Only the deposit
// processor of that chain may call it, on behalf of its target dispenser.
func (d *Dispenser) SyncWithheldAmount(caller xchain.Address, chainID xchain.ChainID, amount *big.Int) error {
	logger.Debug("syncing withheld amount", "chain", chainID, "amount", amount)
	err := d.state.Atomic(func() error {
		route, err := d.routes.Get(chainID)
		if err != nil {
			return err
		}
		if route.IsZero() || caller != route {
			return fail(DepositProcessorOnly, "%v for chain %v", caller, chainID)
		}
		return d.addWithheld(chainID, amount)
	})
	if err != nil {
		logger.Info("sync withheld amount failed", "chain", chainID, "error", err)
		return err
	}
	logger.Info("synced withheld amount", "chain", chainID, "amount", amount)
	return nil
}

// UpdateWithheldAmountMaintenance overrides the withheld credit of a chain.
func (d *Dispenser) UpdateWithheldAmountMaintenance(caller xchain.Address, chainID xchain.ChainID, amount *big.Int) error {
	return d.admin("update withheld amount", caller, func() error {
		if chainID == 0 {
			return fail(ZeroValue, "chain id")
		}
		return d.withheld.Set(chainID, new(big.Int).Set(amount))
	})
}

func (d *Dispenser) addWithheld(chainID xchain.ChainID, amount *big.Int) error {
	w, err := d.withheld.Get(chainID)
	if err != nil {
		return err
	}
	return d.withheld.Set(chainID, w.Add(w, amount))
}

// admin runs an owner gated operation atomically.
func (d *Dispenser) admin(op string, caller xchain.Address, fn func() error) error {
	logger.Debug(op, "caller", caller)
	err := d.state.Atomic(func() error {
		if err := d.onlyOwner(caller); err != nil {
			return err
		}
		return fn()
	})
	if err != nil {
		logger.Info(op+" failed", "caller", caller, "error", err)
		return err
	}
	logger.Info(op, "caller", caller)
	return nil
}
