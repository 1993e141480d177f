// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package depositprocessor implements the outbound adapters of the dispenser. A processor
// lives on the base chain and serves exactly one destination chain through its bridge.
package depositprocessor

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/dispenser/abi"
	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/builtin/solidity"
	"github.com/vechain/dispenser/builtin/token"
	"github.com/vechain/dispenser/log"
	"github.com/vechain/dispenser/metrics"
	"github.com/vechain/dispenser/state"
	"github.com/vechain/dispenser/xchain"
)

var (
	logger = log.WithContext("pkg", "depositprocessor")

	metricSends    = metrics.LazyLoadCounterVec("processor_sends_count", []string{"family", "status"})
	metricReceived = metrics.LazyLoadCounterVec("processor_withheld_received_count", []string{"family"})

	ownerSlot     = solidity.Slot("owner")
	l2TargetSlot  = solidity.Slot("l2-target-dispenser")
	phaseSlot     = solidity.Slot("phase")
	deliveredSlot = solidity.Slot("delivered")

	code = []byte("deposit-processor")
)

// Phase is the progress of an outbound send. Outside of a send it is always Idle.
type Phase uint8

const (
	Idle Phase = iota
	Validating
	Dispatching
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Dispatching:
		return "dispatching"
	}
	return "unknown"
}

// Dispatcher is the dispenser a processor serves.
type Dispatcher interface {
	Address() xchain.Address
	SyncWithheldAmount(caller xchain.Address, chainID xchain.ChainID, amount *big.Int) error
}

type Processor struct {
	addr       xchain.Address
	chainID    xchain.ChainID
	state      *state.State
	token      *token.Token
	endpoint   *bridge.Endpoint
	family     family
	dispatcher Dispatcher

	owner     *solidity.Address
	l2Target  *solidity.Address
	phase     *solidity.Uint256
	delivered *solidity.Mapping[xchain.Bytes32, bool]
}

// New creates the processor at addr serving chainID through ep, and registers it on ep
// to receive messages from its target dispenser.
func New(addr xchain.Address, chainID xchain.ChainID, st *state.State, tk *token.Token, ep *bridge.Endpoint, dispatcher Dispatcher) *Processor {
	ctx := solidity.NewContext(addr, st)
	p := &Processor{
		addr:       addr,
		chainID:    chainID,
		state:      st,
		token:      tk,
		endpoint:   ep,
		family:     newFamily(ep),
		dispatcher: dispatcher,
		owner:      solidity.NewAddress(ctx, ownerSlot),
		l2Target:   solidity.NewAddress(ctx, l2TargetSlot),
		phase:      solidity.NewUint256(ctx, phaseSlot),
		delivered:  solidity.NewMapping[xchain.Bytes32, bool](ctx, deliveredSlot),
	}
	ep.Register(addr, p)
	return p
}

// Initialize deploys the processor with owner allowed to bind its target dispenser once.
func (p *Processor) Initialize(owner xchain.Address) error {
	return p.state.Atomic(func() error {
		deployed, err := p.state.IsContract(p.addr)
		if err != nil {
			return err
		}
		if deployed {
			return errors.Errorf("depositprocessor: already deployed at %v", p.addr)
		}
		if owner.IsZero() {
			return fail(ZeroAddress, "owner")
		}
		if err := p.state.SetCode(p.addr, code); err != nil {
			return err
		}
		p.owner.Set(owner)
		return nil
	})
}

func (p *Processor) Address() xchain.Address    { return p.addr }
func (p *Processor) ChainID() xchain.ChainID    { return p.chainID }
func (p *Processor) Family() bridge.Family      { return p.endpoint.Family() }
func (p *Processor) Endpoint() *bridge.Endpoint { return p.endpoint }

func (p *Processor) Owner() (xchain.Address, error) {
	return p.owner.Get()
}

// L2TargetDispenser returns the paired target dispenser, zero while unbound.
func (p *Processor) L2TargetDispenser() (xchain.Address, error) {
	return p.l2Target.Get()
}

func (p *Processor) Phase() (Phase, error) {
	v, err := p.phase.Get()
	if err != nil {
		return 0, err
	}
	return Phase(v.Uint64()), nil
}

func (p *Processor) setPhase(ph Phase) {
	p.phase.Set(big.NewInt(int64(ph)))
}

// SetL2TargetDispenser binds the processor to its target dispenser. The owner is cleared
// afterwards, so the binding can never change.
func (p *Processor) SetL2TargetDispenser(caller, l2TargetDispenser xchain.Address) error {
	err := p.state.Atomic(func() error {
		owner, err := p.owner.Get()
		if err != nil {
			return err
		}
		if owner.IsZero() || caller != owner {
			return fail(OwnerOnly, "%v", caller)
		}
		if l2TargetDispenser.IsZero() {
			return fail(ZeroAddress, "target dispenser")
		}
		p.l2Target.Set(l2TargetDispenser)
		p.owner.Set(xchain.Address{})
		return nil
	})
	if err != nil {
		logger.Info("set target dispenser failed", "processor", p.addr, "error", err)
		return err
	}
	logger.Info("bound target dispenser", "processor", p.addr, "chain", p.chainID, "target", l2TargetDispenser)
	return nil
}

// QuoteCost returns the native value sending payload costs when transferAmount tokens move.
func (p *Processor) QuoteCost(payload []byte, transferAmount *big.Int) (*big.Int, error) {
	q, err := p.family.quote(payload, transferAmount)
	if err != nil {
		return nil, err
	}
	return q.cost, nil
}

// SendMessage bridges transferAmount tokens and the instruction to deposit amount into target.
func (p *Processor) SendMessage(caller, payer xchain.Address, value *big.Int, target xchain.Bytes32, amount *big.Int, payload []byte, transferAmount *big.Int) error {
	return p.send(caller, payer, value, []xchain.Bytes32{target}, []*big.Int{amount}, payload, transferAmount)
}

// SendMessageBatch is SendMessage for several targets sharing one message.
func (p *Processor) SendMessageBatch(caller, payer xchain.Address, value *big.Int, targets []xchain.Bytes32, amounts []*big.Int, payload []byte, transferAmount *big.Int) error {
	return p.send(caller, payer, value, targets, amounts, payload, transferAmount)
}

func (p *Processor) send(caller, payer xchain.Address, value *big.Int, targets []xchain.Bytes32, amounts []*big.Int, payload []byte, transferAmount *big.Int) error {
	logger.Debug("sending", "chain", p.chainID, "targets", len(targets), "transfer", transferAmount)
	if value == nil {
		value = new(big.Int)
	}
	if transferAmount == nil {
		transferAmount = new(big.Int)
	}
	err := p.state.Atomic(func() error {
		if caller != p.dispatcher.Address() {
			return fail(ManagerOnly, "%v", caller)
		}
		ph, err := p.Phase()
		if err != nil {
			return err
		}
		if ph != Idle {
			return fail(ReentrancyGuard, "send while %v", ph)
		}
		p.setPhase(Validating)

		l2, err := p.l2Target.Get()
		if err != nil {
			return err
		}
		if l2.IsZero() {
			return fail(ZeroAddress, "target dispenser is not bound")
		}
		if len(targets) == 0 || len(targets) != len(amounts) {
			return fail(WrongArrayLength, "%d targets, %d amounts", len(targets), len(amounts))
		}
		batch := &abi.Batch{Targets: make([]xchain.Address, len(targets)), Amounts: amounts}
		for i, t := range targets {
			if !t.IsAddress() {
				return fail(WrongAccount, "target %v is not an address", t)
			}
			batch.Targets[i] = t.Address()
		}
		q, err := p.family.quote(payload, transferAmount)
		if err != nil {
			return err
		}
		if value.Cmp(q.cost) < 0 {
			return fail(LowerThan, "value %v below cost %v", value, q.cost)
		}
		data, err := abi.EncodeBatch(batch)
		if err != nil {
			return errors.Wrap(err, "encode batch")
		}

		p.setPhase(Dispatching)
		if transferAmount.Sign() > 0 {
			if _, err := p.endpoint.SendTokens(p.addr, l2, transferAmount); err != nil {
				return fail(TransferFailed, "bridge tokens: %v", err)
			}
		}
		msg := &bridge.Message{
			Payer:     payer,
			Sender:    p.addr,
			Recipient: l2,
			Data:      data,
			Fee:       q.cost,
		}
		if q.refunds {
			msg.Fee = value
			msg.RefundValue = new(big.Int).Sub(value, q.cost)
			msg.Refund = q.refund
			if msg.Refund.IsZero() {
				msg.Refund = payer
			}
		}
		if _, err := p.endpoint.SendMessage(msg); err != nil {
			if errors.Is(err, bridge.ErrInsufficientFee) {
				return fail(TransferFailed, "payer %v cannot cover %v", payer, msg.Fee)
			}
			return err
		}
		p.setPhase(Idle)
		return nil
	})
	status := "ok"
	if err != nil {
		status = "failed"
	}
	metricSends().AddWithLabel(1, map[string]string{"family": p.Family().String(), "status": status})
	if err != nil {
		logger.Info("send failed", "chain", p.chainID, "error", err)
		return err
	}
	logger.Info("sent", "chain", p.chainID, "targets", len(targets), "transfer", transferAmount)
	return nil
}

// ReceiveMessage accepts the withheld amount reported by the target dispenser and credits it
// to the dispenser.
func (p *Processor) ReceiveMessage(d *bridge.Delivery) error {
	logger.Debug("receiving", "chain", p.chainID, "id", d.ID)
	var w *abi.Withheld
	err := p.state.Atomic(func() error {
		l2, err := p.l2Target.Get()
		if err != nil {
			return err
		}
		if l2.IsZero() {
			return fail(ZeroAddress, "target dispenser is not bound")
		}
		if err := p.family.authenticate(d, l2); err != nil {
			return err
		}
		if !d.Family.ExactlyOnce() {
			seen, err := p.delivered.Get(d.ID)
			if err != nil {
				return err
			}
			if seen {
				return fail(AlreadyDelivered, "%v", d.ID)
			}
			if err := p.delivered.Set(d.ID, true); err != nil {
				return err
			}
		}
		if w, err = abi.DecodeWithheld(d.Data); err != nil {
			return decodeError(err)
		}
		if w.ChainID != p.chainID {
			return fail(WrongChainId, "withheld on chain %v", w.ChainID)
		}
		return p.dispatcher.SyncWithheldAmount(p.addr, w.ChainID, w.Amount)
	})
	if err != nil {
		logger.Info("receive failed", "chain", p.chainID, "id", d.ID, "error", err)
		return err
	}
	metricReceived().AddWithLabel(1, map[string]string{"family": p.Family().String()})
	logger.Info("received withheld amount", "chain", p.chainID, "amount", w.Amount)
	return nil
}

// Delivered reports whether a delivery id was already accepted.
func (p *Processor) Delivered(id xchain.Bytes32) (bool, error) {
	return p.delivered.Get(id)
}
