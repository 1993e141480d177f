// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package targetdispenser

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/dispenser/abi"
	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/xchain"
)

const (
	minGasLimit = 300_000
	maxGasLimit = 2_000_000
)

// returnQuote prices a message back to the base chain. refunds is set when the value above
// cost is credited to refund on the base chain.
func (l *Ledger) returnQuote(payload []byte) (cost *big.Int, refunds bool, refund xchain.Address, err error) {
	switch l.endpoint.Family() {
	case bridge.Optimism:
		p, err := abi.DecodeOptimism(payload)
		if err != nil {
			return nil, false, refund, payloadError(err)
		}
		if p.Cost.Sign() == 0 || p.GasLimitMessage.Sign() == 0 {
			return nil, false, refund, fail(ZeroValue, "cost or gas limit")
		}
		return p.Cost, false, refund, nil
	case bridge.Gnosis:
		p, err := abi.DecodeGnosis(payload)
		if err != nil {
			return nil, false, refund, payloadError(err)
		}
		if p.GasLimitMessage.Sign() == 0 {
			return nil, false, refund, fail(ZeroValue, "gas limit")
		}
	case bridge.Wormhole:
		p, err := abi.DecodeWormhole(payload)
		if err != nil {
			return nil, false, refund, payloadError(err)
		}
		if p.GasLimitMessage.Sign() == 0 {
			return nil, false, refund, fail(ZeroValue, "gas limit")
		}
		return l.endpoint.QuoteDelivery(abi.ClampGasLimit(p.GasLimitMessage, minGasLimit, maxGasLimit)), true, p.Refund, nil
	}
	// arbitrum and polygon exits are paid on the base chain when claimed
	return new(big.Int), false, refund, nil
}

func payloadError(err error) error {
	if errors.Is(err, abi.ErrShortData) || errors.Is(err, abi.ErrMalformed) {
		return fail(IncorrectDataLength, "%v", err)
	}
	return err
}

// QuoteSync returns the native value SyncWithheldTokens with payload costs.
func (l *Ledger) QuoteSync(payload []byte) (*big.Int, error) {
	cost, _, _, err := l.returnQuote(payload)
	return cost, err
}

// SyncWithheldTokens reports the whole withheld amount to the dispenser through the paired
// processor, and resets it. The dispenser then credits it against later transfers to this
// chain. value pays for the return message.
func (l *Ledger) SyncWithheldTokens(caller xchain.Address, value *big.Int, payload []byte) (*big.Int, error) {
	logger.Debug("syncing withheld tokens", "chain", l.cfg.Chain, "caller", caller)
	if value == nil {
		value = new(big.Int)
	}
	var amount *big.Int
	err := l.state.Atomic(func() error {
		release, err := l.enter()
		if err != nil {
			return err
		}
		defer release()

		paused, err := l.paused.Get()
		if err != nil {
			return err
		}
		if paused {
			return fail(Paused, "")
		}
		if amount, err = l.withheld.Get(); err != nil {
			return err
		}
		if amount.Sign() == 0 {
			return fail(ZeroValue, "nothing withheld")
		}
		cost, refunds, refund, err := l.returnQuote(payload)
		if err != nil {
			return err
		}
		if value.Cmp(cost) < 0 {
			return fail(LowerThan, "value %v below cost %v", value, cost)
		}
		data, err := abi.EncodeWithheld(&abi.Withheld{ChainID: l.cfg.Chain, Amount: amount})
		if err != nil {
			return errors.Wrap(err, "encode withheld")
		}
		msg := &bridge.Message{
			Payer:     caller,
			Sender:    l.cfg.Address,
			Recipient: l.cfg.Processor,
			Data:      data,
			Fee:       cost,
		}
		if refunds {
			msg.Fee = value
			msg.RefundValue = new(big.Int).Sub(value, cost)
			msg.Refund = refund
			if msg.Refund.IsZero() {
				msg.Refund = caller
			}
		}
		if _, err := l.endpoint.SendMessage(msg); err != nil {
			if errors.Is(err, bridge.ErrInsufficientFee) {
				return fail(TransferFailed, "caller %v cannot cover %v", caller, msg.Fee)
			}
			return err
		}
		l.withheld.Set(new(big.Int))
		return nil
	})
	if err != nil {
		logger.Info("sync withheld tokens failed", "chain", l.cfg.Chain, "error", err)
		return nil, err
	}
	l.observeWithheld()
	logger.Info("synced withheld tokens", "chain", l.cfg.Chain, "amount", amount)
	return amount, nil
}
