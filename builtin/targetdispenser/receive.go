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
	"github.com/vechain/dispenser/builtin/solidity"
	"github.com/vechain/dispenser/xchain"
)

// authenticate checks that d was sent by the paired processor, through the proof the
// bridge family offers.
func (l *Ledger) authenticate(d *bridge.Delivery) error {
	ep := l.endpoint.Config()
	switch ep.Family {
	case bridge.Arbitrum:
		// retryables execute from the aliased L1 sender
		if d.Caller != bridge.ApplyL1ToL2Alias(l.cfg.Processor) {
			return fail(WrongMessageSender, "%v", d.Caller)
		}
		return nil
	case bridge.Wormhole:
		if d.Caller != ep.Address {
			return fail(TargetRelayerOnly, "%v", d.Caller)
		}
		if d.SourceChain != ep.PeerNativeID {
			return fail(WrongChainId, "source chain %d", d.SourceChain)
		}
		if d.Emitter != l.cfg.Processor.Bytes32() {
			return fail(WrongMessageSender, "emitter %v", d.Emitter)
		}
		return nil
	}
	if d.Caller != ep.Address {
		return fail(TargetRelayerOnly, "%v", d.Caller)
	}
	if d.Sender != l.cfg.Processor {
		return fail(WrongMessageSender, "%v", d.Sender)
	}
	if ep.Family == bridge.Gnosis && d.SourceChain != ep.PeerNativeID {
		return fail(WrongChainId, "source chain %d", d.SourceChain)
	}
	return nil
}

// ReceiveMessage processes a deposit instruction of the paired processor.
func (l *Ledger) ReceiveMessage(d *bridge.Delivery) error {
	logger.Debug("receiving", "chain", l.cfg.Chain, "id", d.ID)
	var nonce *big.Int
	err := l.state.Atomic(func() error {
		release, err := l.enter()
		if err != nil {
			return err
		}
		defer release()

		if err := l.authenticate(d); err != nil {
			return err
		}
		if !d.Family.ExactlyOnce() {
			seen, err := l.delivered.Get(d.ID)
			if err != nil {
				return err
			}
			if seen {
				return fail(AlreadyDelivered, "%v", d.ID)
			}
			if err := l.delivered.Set(d.ID, true); err != nil {
				return err
			}
		}
		nonce, err = l.processData(d.Data)
		return err
	})
	status := "ok"
	if err != nil {
		status = "failed"
	}
	metricReceived().AddWithLabel(1, map[string]string{"family": d.Family.String(), "status": status})
	if err != nil {
		logger.Info("receive failed", "chain", l.cfg.Chain, "id", d.ID, "error", err)
		return err
	}
	logger.Info("received batch", "chain", l.cfg.Chain, "id", d.ID, "nonce", nonce)
	return nil
}

// ProcessDataMaintenance processes a batch on behalf of the owner, as if it had been delivered.
func (l *Ledger) ProcessDataMaintenance(caller xchain.Address, data []byte) error {
	return l.owned("process data maintenance", caller, func() error {
		release, err := l.enter()
		if err != nil {
			return err
		}
		defer release()

		_, err = l.processData(data)
		return err
	})
}

// processData settles one batch under the current nonce, which then advances by one.
// Each pair is deposited, queued for redemption or withheld.
func (l *Ledger) processData(data []byte) (*big.Int, error) {
	batch, err := abi.DecodeBatch(data)
	switch {
	case errors.Is(err, abi.ErrArrayLength):
		return nil, fail(WrongArrayLength, "%v", err)
	case errors.Is(err, abi.ErrShortData), errors.Is(err, abi.ErrMalformed):
		return nil, fail(IncorrectDataLength, "%v", err)
	case err != nil:
		return nil, err
	}
	// queue entries are keyed by (target, amount, nonce) and must not collide
	seen := make(map[xchain.Address]struct{}, len(batch.Targets))
	for _, target := range batch.Targets {
		if _, ok := seen[target]; ok {
			return nil, fail(WrongAccount, "duplicate target %v", target)
		}
		seen[target] = struct{}{}
	}

	nonce, err := l.nonce.Get()
	if err != nil {
		return nil, err
	}
	paused, err := l.paused.Get()
	if err != nil {
		return nil, err
	}
	balance, err := l.Balance()
	if err != nil {
		return nil, err
	}
	withheld := new(big.Int)
	chain := l.cfg.Chain.String()

	for i, target := range batch.Targets {
		amount := new(big.Int).Set(batch.Amounts[i])
		if amount.Sign() == 0 {
			continue
		}
		limit, err := l.factory.VerifyInstance(target)
		if err != nil {
			return nil, errors.Wrapf(err, "verify instance %v", target)
		}
		if limit.Sign() == 0 {
			withheld.Add(withheld, amount)
			metricEntries().AddWithLabel(1, map[string]string{"chain": chain, "outcome": "withheld"})
			logger.Info("withheld deposit for invalid target", "chain", l.cfg.Chain, "target", target, "amount", amount)
			continue
		}
		if amount.Cmp(limit) > 0 {
			withheld.Add(withheld, new(big.Int).Sub(amount, limit))
			amount.Set(limit)
		}
		if paused || balance.Cmp(amount) < 0 {
			if err := l.queued.Set(xchain.QueueHash(target, amount, nonce), true); err != nil {
				return nil, err
			}
			metricEntries().AddWithLabel(1, map[string]string{"chain": chain, "outcome": "queued"})
			logger.Info("queued deposit", "chain", l.cfg.Chain, "target", target, "amount", amount, "nonce", nonce)
			continue
		}
		if err := l.deposit(target, amount); err != nil {
			return nil, err
		}
		balance.Sub(balance, amount)
		metricEntries().AddWithLabel(1, map[string]string{"chain": chain, "outcome": "deposited"})
	}

	if withheld.Sign() > 0 {
		if _, err := l.withheld.Add(withheld); err != nil {
			if errors.Is(err, solidity.ErrUint256Overflow) {
				return nil, fail(Overflow, "withheld amount")
			}
			return nil, err
		}
		l.observeWithheld()
	}
	if _, err := l.nonce.Add(big.NewInt(1)); err != nil {
		if errors.Is(err, solidity.ErrUint256Overflow) {
			return nil, fail(Overflow, "staking batch nonce")
		}
		return nil, err
	}
	return nonce, nil
}

func (l *Ledger) deposit(target xchain.Address, amount *big.Int) error {
	if err := l.token.Transfer(l.cfg.Address, target, amount); err != nil {
		return fail(TransferFailed, "%v", err)
	}
	if err := l.factory.Deposit(target, amount); err != nil {
		return errors.Wrapf(err, "deposit to %v", target)
	}
	return nil
}

// Redeem deposits an entry queued under nonce, once the ledger holds enough tokens.
// Anyone may call it.
func (l *Ledger) Redeem(caller, target xchain.Address, amount, nonce *big.Int) error {
	logger.Debug("redeeming", "chain", l.cfg.Chain, "target", target, "amount", amount, "nonce", nonce)
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
		hash := xchain.QueueHash(target, amount, nonce)
		queued, err := l.queued.Get(hash)
		if err != nil {
			return err
		}
		if !queued {
			return fail(TargetAmountNotQueued, "%v %v at nonce %v", target, amount, nonce)
		}
		balance, err := l.Balance()
		if err != nil {
			return err
		}
		if balance.Cmp(amount) < 0 {
			return fail(InsufficientBalance, "%v below %v", balance, amount)
		}
		l.queued.Delete(hash)
		return l.deposit(target, amount)
	})
	if err != nil {
		logger.Info("redeem failed", "chain", l.cfg.Chain, "caller", caller, "error", err)
		return err
	}
	metricEntries().AddWithLabel(1, map[string]string{"chain": l.cfg.Chain.String(), "outcome": "redeemed"})
	logger.Info("redeemed", "chain", l.cfg.Chain, "target", target, "amount", amount, "nonce", nonce)
	return nil
}
