// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bridge

import (
	"encoding/binary"
	"math/big"

	"github.com/vechain/dispenser/xchain"
)

// Kind tells the two legs of a transfer apart.
type Kind uint8

const (
	KindMessage Kind = iota + 1
	KindTokens
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindTokens:
		return "tokens"
	}
	return "unknown"
}

// Envelope is an entry of an endpoint outbox.
type Envelope struct {
	Kind        Kind
	Seq         uint64
	Source      xchain.ChainID
	Target      xchain.ChainID
	Sender      xchain.Address
	Recipient   xchain.Address
	Data        []byte
	Amount      *big.Int // tokens carried by a KindTokens envelope
	Refund      xchain.Address
	RefundValue *big.Int // native value credited to Refund on the target chain
}

// ID identifies the envelope across both chains. Wormhole presents it as the delivery hash.
func (e *Envelope) ID() xchain.Bytes32 {
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], e.Seq)
	return xchain.Keccak256(e.Source.Bytes(), e.Target.Bytes(), seq[:])
}

// Delivery is how a receiving contract sees an inbound message. Which fields are set
// depends on the family, the way each real bridge exposes its sender proof.
type Delivery struct {
	ID          xchain.Bytes32
	Family      Family
	Caller      xchain.Address // msg.sender of the receiving call
	Sender      xchain.Address // origin sender reported by the bridge, if it reports one
	Emitter     xchain.Bytes32 // Wormhole emitter
	SourceChain uint64         // source chain in the bridge numbering, if reported
	Data        []byte
}

// Receiver is a contract accepting bridged messages.
type Receiver interface {
	ReceiveMessage(d *Delivery) error
}

// Message is a send request on an endpoint.
type Message struct {
	Payer       xchain.Address // pays Fee in native currency
	Sender      xchain.Address
	Recipient   xchain.Address
	Data        []byte
	Fee         *big.Int
	Refund      xchain.Address
	RefundValue *big.Int
}
