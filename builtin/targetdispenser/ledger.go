// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package targetdispenser implements the inbound ledger of a satellite chain. It receives
// deposit instructions from its deposit processor on the base chain and the tokens for them,
// in any order, and reconciles the two.
package targetdispenser

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/builtin/guard"
	"github.com/vechain/dispenser/builtin/solidity"
	"github.com/vechain/dispenser/builtin/token"
	"github.com/vechain/dispenser/log"
	"github.com/vechain/dispenser/metrics"
	"github.com/vechain/dispenser/state"
	"github.com/vechain/dispenser/xchain"
)

var (
	logger = log.WithContext("pkg", "targetdispenser")

	metricReceived = metrics.LazyLoadCounterVec("ledger_messages_count", []string{"family", "status"})
	metricEntries  = metrics.LazyLoadCounterVec("ledger_entries_count", []string{"chain", "outcome"})
	metricWithheld = metrics.LazyLoadGaugeVec("ledger_withheld_amount", []string{"chain"})

	ownerSlot     = solidity.Slot("owner")
	pausedSlot    = solidity.Slot("paused")
	migratedSlot  = solidity.Slot("migrated")
	nonceSlot     = solidity.Slot("staking-batch-nonce")
	withheldSlot  = solidity.Slot("withheld-amount")
	queuedSlot    = solidity.Slot("queued-hashes")
	deliveredSlot = solidity.Slot("delivered")

	code = []byte("target-dispenser")
)

// StakingFactory is the registry of staking proxies on the satellite chain.
type StakingFactory interface {
	// VerifyInstance returns the emission limit of target, zero when it is not a valid instance.
	VerifyInstance(target xchain.Address) (*big.Int, error)
	// Deposit credits amount, already transferred to target, to its emissions.
	Deposit(target xchain.Address, amount *big.Int) error
}

// Lifecycle is the coarse state of a ledger.
type Lifecycle uint8

const (
	Active Lifecycle = iota
	LifecyclePaused
	Migrated
)

func (l Lifecycle) String() string {
	switch l {
	case Active:
		return "active"
	case LifecyclePaused:
		return "paused"
	case Migrated:
		return "migrated"
	}
	return "unknown"
}

// Config places a ledger.
type Config struct {
	Address xchain.Address
	// Chain is the satellite chain the ledger lives on.
	Chain xchain.ChainID
	// Processor is the paired deposit processor on the base chain.
	Processor xchain.Address
}

type Ledger struct {
	cfg      Config
	state    *state.State
	token    *token.Token
	endpoint *bridge.Endpoint
	factory  StakingFactory

	owner     *solidity.Address
	paused    *solidity.Bool
	migrated  *solidity.Bool
	nonce     *solidity.Uint256
	withheld  *solidity.Uint256
	queued    *solidity.Mapping[xchain.Bytes32, bool]
	delivered *solidity.Mapping[xchain.Bytes32, bool]
	guard     *guard.Guard
}

// New creates the ledger and registers it on ep to receive the messages of its processor.
func New(cfg Config, st *state.State, tk *token.Token, ep *bridge.Endpoint, factory StakingFactory) *Ledger {
	ctx := solidity.NewContext(cfg.Address, st)
	l := &Ledger{
		cfg:       cfg,
		state:     st,
		token:     tk,
		endpoint:  ep,
		factory:   factory,
		owner:     solidity.NewAddress(ctx, ownerSlot),
		paused:    solidity.NewBool(ctx, pausedSlot),
		migrated:  solidity.NewBool(ctx, migratedSlot),
		nonce:     solidity.NewUint256(ctx, nonceSlot),
		withheld:  solidity.NewUint256(ctx, withheldSlot),
		queued:    solidity.NewMapping[xchain.Bytes32, bool](ctx, queuedSlot),
		delivered: solidity.NewMapping[xchain.Bytes32, bool](ctx, deliveredSlot),
		guard:     guard.New(ctx),
	}
	ep.Register(cfg.Address, l)
	return l
}

// Initialize deploys the ledger, owned by owner.
func (l *Ledger) Initialize(owner xchain.Address) error {
	return l.state.Atomic(func() error {
		deployed, err := l.state.IsContract(l.cfg.Address)
		if err != nil {
			return err
		}
		if deployed {
			return errors.Errorf("targetdispenser: already deployed at %v", l.cfg.Address)
		}
		if owner.IsZero() || l.cfg.Processor.IsZero() {
			return fail(ZeroAddress, "owner or processor")
		}
		if err := l.state.SetCode(l.cfg.Address, code); err != nil {
			return err
		}
		l.owner.Set(owner)
		return nil
	})
}

func (l *Ledger) Address() xchain.Address    { return l.cfg.Address }
func (l *Ledger) Chain() xchain.ChainID      { return l.cfg.Chain }
func (l *Ledger) Processor() xchain.Address  { return l.cfg.Processor }
func (l *Ledger) Family() bridge.Family      { return l.endpoint.Family() }
func (l *Ledger) Endpoint() *bridge.Endpoint { return l.endpoint }
func (l *Ledger) Token() *token.Token        { return l.token }

// Owner returns the owner, zero once the ledger has been migrated.
func (l *Ledger) Owner() (xchain.Address, error) {
	return l.owner.Get()
}

func (l *Ledger) Paused() (bool, error) {
	return l.paused.Get()
}

func (l *Ledger) Lifecycle() (Lifecycle, error) {
	migrated, err := l.migrated.Get()
	if err != nil {
		return 0, err
	}
	if migrated {
		return Migrated, nil
	}
	paused, err := l.paused.Get()
	if err != nil {
		return 0, err
	}
	if paused {
		return LifecyclePaused, nil
	}
	return Active, nil
}

// StakingBatchNonce returns the nonce the next batch will be processed under.
func (l *Ledger) StakingBatchNonce() (*big.Int, error) {
	return l.nonce.Get()
}

func (l *Ledger) WithheldAmount() (*big.Int, error) {
	return l.withheld.Get()
}

// Queued reports whether amount for target is waiting for redemption under nonce.
func (l *Ledger) Queued(target xchain.Address, amount, nonce *big.Int) (bool, error) {
	return l.queued.Get(xchain.QueueHash(target, amount, nonce))
}

// Delivered reports whether a delivery id was already accepted.
func (l *Ledger) Delivered(id xchain.Bytes32) (bool, error) {
	return l.delivered.Get(id)
}

// Balance returns the token balance of the ledger.
func (l *Ledger) Balance() (*big.Int, error) {
	return l.token.BalanceOf(l.cfg.Address)
}

func (l *Ledger) onlyOwner(caller xchain.Address) error {
	owner, err := l.owner.Get()
	if err != nil {
		return err
	}
	if owner.IsZero() || caller != owner {
		return fail(OwnerOnly, "%v", caller)
	}
	return nil
}

func (l *Ledger) enter() (func(), error) {
	release, err := l.guard.Enter()
	if errors.Is(err, guard.ErrReentrant) {
		return nil, fail(ReentrancyGuard, "")
	}
	return release, err
}

// owned runs an owner gated operation atomically.
func (l *Ledger) owned(op string, caller xchain.Address, fn func() error) error {
	logger.Debug(op, "chain", l.cfg.Chain, "caller", caller)
	err := l.state.Atomic(func() error {
		if err := l.onlyOwner(caller); err != nil {
			return err
		}
		return fn()
	})
	if err != nil {
		logger.Info(op+" failed", "chain", l.cfg.Chain, "caller", caller, "error", err)
		return err
	}
	logger.Info(op, "chain", l.cfg.Chain, "caller", caller)
	return nil
}

func (l *Ledger) Pause(caller xchain.Address) error {
	return l.owned("pause", caller, func() error {
		l.paused.Set(true)
		return nil
	})
}

func (l *Ledger) Unpause(caller xchain.Address) error {
	return l.owned("unpause", caller, func() error {
		l.paused.Set(false)
		return nil
	})
}

func (l *Ledger) ChangeOwner(caller, newOwner xchain.Address) error {
	return l.owned("change owner", caller, func() error {
		if newOwner.IsZero() {
			return fail(ZeroAddress, "owner")
		}
		l.owner.Set(newOwner)
		return nil
	})
}

// Drain sweeps the native balance of the ledger, such as bridge refunds, to the owner.
func (l *Ledger) Drain(caller xchain.Address) (*big.Int, error) {
	var amount *big.Int
	err := l.owned("drain", caller, func() error {
		release, err := l.enter()
		if err != nil {
			return err
		}
		defer release()

		if amount, err = l.state.GetBalance(l.cfg.Address); err != nil {
			return err
		}
		if amount.Sign() == 0 {
			return fail(ZeroValue, "nothing to drain")
		}
		if _, err := l.state.Transfer(l.cfg.Address, caller, amount); err != nil {
			return errors.Wrap(err, "drain")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// Migrate moves the whole token balance to newLedger and gives up ownership for good.
// The ledger must be paused.
func (l *Ledger) Migrate(caller, newLedger xchain.Address) error {
	return l.owned("migrate", caller, func() error {
		release, err := l.enter()
		if err != nil {
			return err
		}
		defer release()

		paused, err := l.paused.Get()
		if err != nil {
			return err
		}
		if !paused {
			return fail(Unpaused, "migrate requires a paused ledger")
		}
		if newLedger.IsZero() {
			return fail(ZeroAddress, "new ledger")
		}
		if newLedger == l.cfg.Address {
			return fail(WrongAccount, "cannot migrate to itself")
		}
		isContract, err := l.state.IsContract(newLedger)
		if err != nil {
			return err
		}
		if !isContract {
			return fail(WrongAccount, "%v is not a contract", newLedger)
		}
		balance, err := l.Balance()
		if err != nil {
			return err
		}
		if err := l.token.Transfer(l.cfg.Address, newLedger, balance); err != nil {
			return fail(TransferFailed, "%v", err)
		}
		l.owner.Set(xchain.Address{})
		l.migrated.Set(true)
		return nil
	})
}

func (l *Ledger) observeWithheld() {
	w, err := l.withheld.Get()
	if err != nil || !w.IsInt64() {
		return
	}
	metricWithheld().SetWithLabel(w.Int64(), map[string]string{"chain": l.cfg.Chain.String()})
}
