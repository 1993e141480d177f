// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bridge

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/dispenser/builtin/solidity"
	"github.com/vechain/dispenser/builtin/token"
	"github.com/vechain/dispenser/state"
	"github.com/vechain/dispenser/xchain"
)

var (
	// ErrInsufficientFee is returned when the payer cannot cover the message fee.
	ErrInsufficientFee = errors.New("bridge: insufficient fee balance")
	// ErrNoReceiver is returned when a message targets an address without a registered receiver.
	ErrNoReceiver = errors.New("bridge: no receiver at recipient")

	seqSlot     = solidity.Slot("outbox-seq")
	headSlot    = solidity.Slot("outbox-head")
	outboxSlot  = solidity.Slot("outbox")
	relayedSlot = solidity.Slot("outbox-relayed")
)

// Config describes one side of a bridge link.
type Config struct {
	Family Family
	// Address is the bridge contract on Chain: the Arbitrum inbox or outbox, the cross domain
	// messenger, the AMB, the fx tunnel or the Wormhole relayer.
	Address xchain.Address
	Chain   xchain.ChainID
	Peer    xchain.ChainID
	// NativeID and PeerNativeID number both chains the way the bridge does.
	NativeID     uint64
	PeerNativeID uint64
	// Home endpoints escrow tokens; the others mint and burn a bridged representation.
	Home bool
	// GasPrice is the Wormhole delivery price per unit of gas on the peer chain.
	GasPrice *big.Int
}

type seqKey uint64

func (k seqKey) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(k))
	return b[:]
}

// Endpoint is the bridge contract on one chain of a link. Its outbox is kept in the chain
// state, so an envelope disappears with the checkpoint of a reverted send.
type Endpoint struct {
	cfg       Config
	state     *state.State
	token     *token.Token
	seq       *solidity.Uint256
	head      *solidity.Uint256
	outbox    *solidity.Mapping[seqKey, *Envelope]
	relayed   *solidity.Mapping[seqKey, bool]
	receivers map[xchain.Address]Receiver
}

func NewEndpoint(cfg Config, st *state.State, tk *token.Token) *Endpoint {
	ctx := solidity.NewContext(cfg.Address, st)
	if cfg.GasPrice == nil {
		cfg.GasPrice = new(big.Int)
	}
	return &Endpoint{
		cfg:       cfg,
		state:     st,
		token:     tk,
		seq:       solidity.NewUint256(ctx, seqSlot),
		head:      solidity.NewUint256(ctx, headSlot),
		outbox:    solidity.NewMapping[seqKey, *Envelope](ctx, outboxSlot),
		relayed:   solidity.NewMapping[seqKey, bool](ctx, relayedSlot),
		receivers: make(map[xchain.Address]Receiver),
	}
}

func (e *Endpoint) Config() Config          { return e.cfg }
func (e *Endpoint) Address() xchain.Address { return e.cfg.Address }
func (e *Endpoint) Family() Family          { return e.cfg.Family }
func (e *Endpoint) Chain() xchain.ChainID   { return e.cfg.Chain }
func (e *Endpoint) Peer() xchain.ChainID    { return e.cfg.Peer }

// Register binds a receiving contract to addr.
func (e *Endpoint) Register(addr xchain.Address, r Receiver) {
	e.receivers[addr] = r
}

// QuoteDelivery returns the price of delivering a message with gasLimit gas on the peer chain.
func (e *Endpoint) QuoteDelivery(gasLimit uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), e.cfg.GasPrice)
}

// SendMessage charges the fee to the payer and queues the message for the peer chain.
func (e *Endpoint) SendMessage(msg *Message) (*Envelope, error) {
	fee := orZero(msg.Fee)
	if fee.Sign() > 0 {
		ok, err := e.state.Transfer(msg.Payer, e.cfg.Address, fee)
		if err != nil {
			return nil, errors.Wrap(err, "charge fee")
		}
		if !ok {
			return nil, ErrInsufficientFee
		}
	}
	env := &Envelope{
		Kind:        KindMessage,
		Sender:      msg.Sender,
		Recipient:   msg.Recipient,
		Data:        msg.Data,
		Amount:      new(big.Int),
		Refund:      msg.Refund,
		RefundValue: orZero(msg.RefundValue),
	}
	if err := e.enqueue(env); err != nil {
		return nil, err
	}
	metricEnvelopesSent().AddWithLabel(1, map[string]string{"family": e.cfg.Family.String(), "kind": env.Kind.String()})
	return env, nil
}

// SendTokens takes amount tokens from sender and queues them for recipient on the peer chain.
func (e *Endpoint) SendTokens(sender, recipient xchain.Address, amount *big.Int) (*Envelope, error) {
	var err error
	if e.cfg.Home {
		err = e.token.Transfer(sender, e.cfg.Address, amount)
	} else {
		err = e.token.Burn(sender, amount)
	}
	if err != nil {
		return nil, err
	}
	env := &Envelope{
		Kind:        KindTokens,
		Sender:      sender,
		Recipient:   recipient,
		Amount:      new(big.Int).Set(amount),
		RefundValue: new(big.Int),
	}
	if err := e.enqueue(env); err != nil {
		return nil, err
	}
	metricEnvelopesSent().AddWithLabel(1, map[string]string{"family": e.cfg.Family.String(), "kind": env.Kind.String()})
	return env, nil
}

func (e *Endpoint) enqueue(env *Envelope) error {
	seq, err := e.seq.Get()
	if err != nil {
		return err
	}
	env.Seq = seq.Uint64()
	env.Source = e.cfg.Chain
	env.Target = e.cfg.Peer
	if err := e.outbox.Set(seqKey(env.Seq), env); err != nil {
		return err
	}
	e.seq.Set(seq.Add(seq, big.NewInt(1)))
	return nil
}

// Pending returns the envelopes not yet relayed, in send order.
func (e *Endpoint) Pending() ([]*Envelope, error) {
	head, err := e.head.Get()
	if err != nil {
		return nil, err
	}
	seq, err := e.seq.Get()
	if err != nil {
		return nil, err
	}
	var pending []*Envelope
	for i := head.Uint64(); i < seq.Uint64(); i++ {
		done, err := e.relayed.Get(seqKey(i))
		if err != nil {
			return nil, err
		}
		if done {
			continue
		}
		env, err := e.outbox.Get(seqKey(i))
		if err != nil {
			return nil, err
		}
		pending = append(pending, env)
	}
	return pending, nil
}

// markRelayed removes an envelope from the pending set and advances the head past
// every consecutive relayed entry.
func (e *Endpoint) markRelayed(seq uint64) error {
	if err := e.relayed.Set(seqKey(seq), true); err != nil {
		return err
	}
	head, err := e.head.Get()
	if err != nil {
		return err
	}
	next, err := e.seq.Get()
	if err != nil {
		return err
	}
	h := head.Uint64()
	for h < next.Uint64() {
		done, err := e.relayed.Get(seqKey(h))
		if err != nil {
			return err
		}
		if !done {
			break
		}
		e.relayed.Delete(seqKey(h))
		h++
	}
	e.head.Set(new(big.Int).SetUint64(h))
	return nil
}

// deliver executes env on this endpoint's chain. src is the endpoint env was sent from.
func (e *Endpoint) deliver(env *Envelope, src *Endpoint) error {
	if env.Kind == KindTokens {
		if e.cfg.Home {
			return e.token.Transfer(e.cfg.Address, env.Recipient, env.Amount)
		}
		return e.token.Mint(env.Recipient, env.Amount)
	}

	if env.RefundValue.Sign() > 0 && !env.Refund.IsZero() {
		if err := e.state.AddBalance(env.Refund, env.RefundValue); err != nil {
			return errors.Wrap(err, "refund")
		}
	}
	r, ok := e.receivers[env.Recipient]
	if !ok {
		return errors.WithMessagef(ErrNoReceiver, "%v", env.Recipient)
	}
	return r.ReceiveMessage(e.present(env, src))
}

// present builds the delivery the way the family exposes it to the receiving contract.
func (e *Endpoint) present(env *Envelope, src *Endpoint) *Delivery {
	d := &Delivery{
		ID:     env.ID(),
		Family: e.cfg.Family,
		Caller: e.cfg.Address,
		Data:   env.Data,
	}
	switch e.cfg.Family {
	case Arbitrum:
		if e.cfg.Home {
			// L2 to L1 executes through the outbox, which reports the L2 sender
			d.Sender = env.Sender
		} else {
			d.Caller = ApplyL1ToL2Alias(env.Sender)
		}
	case Optimism, Polygon:
		d.Sender = env.Sender
	case Gnosis:
		d.Sender = env.Sender
		d.SourceChain = src.cfg.NativeID
	case Wormhole:
		d.Emitter = env.Sender.Bytes32()
		d.SourceChain = src.cfg.NativeID
	}
	return d
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
