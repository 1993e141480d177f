// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dispenser

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/dispenser/xchain"
)

func (d *Dispenser) checkPause(staking bool) error {
	ps, err := d.PauseState()
	if err != nil {
		return err
	}
	if (staking && ps.stakingPaused()) || (!staking && ps.devPaused()) {
		return fail(Paused, "%v", ps)
	}
	return nil
}

// ClaimOwnerIncentives pays the caller the rewards and top-ups accrued by the listed units it owns.
// Units must be sorted by kind, then id, without duplicates.
func (d *Dispenser) ClaimOwnerIncentives(caller xchain.Address, kinds []UnitKind, ids []*big.Int) (reward, topUp *big.Int, err error) {
	logger.Debug("claiming owner incentives", "account", caller, "units", len(ids))
	err = d.state.Atomic(func() error {
		if err := d.checkPause(false); err != nil {
			return err
		}
		if len(kinds) == 0 || len(kinds) != len(ids) {
			return fail(WrongArrayLength, "%d kinds, %d ids", len(kinds), len(ids))
		}
		for i := range kinds {
			if kinds[i] > Agent || ids[i] == nil || ids[i].Sign() < 0 {
				return fail(WrongUnitId, "unit %d", i)
			}
			if i > 0 && (kinds[i] < kinds[i-1] || (kinds[i] == kinds[i-1] && ids[i].Cmp(ids[i-1]) <= 0)) {
				return fail(WrongUnitId, "unit %d is out of order", i)
			}
		}
		release, err := d.enter()
		if err != nil {
			return err
		}
		defer release()

		if reward, topUp, err = d.tokenomics.AccountOwnerIncentives(caller, kinds, ids); err != nil {
			return errors.Wrap(err, "account owner incentives")
		}
		if reward.Sign() == 0 && topUp.Sign() == 0 {
			return fail(ClaimIncentivesFailed, "nothing accrued for %v", caller)
		}
		if err := d.treasury.WithdrawToAccount(caller, reward, topUp); err != nil {
			return fail(ClaimIncentivesFailed, "withdraw: %v", err)
		}
		return nil
	})
	observeClaim("owner", err)
	if err != nil {
		logger.Info("claim owner incentives failed", "account", caller, "error", err)
		return nil, nil, err
	}
	logger.Info("claimed owner incentives", "account", caller, "reward", reward, "topUp", topUp)
	return reward, topUp, nil
}

// claimWindow returns the epochs [first, last) the nominee can claim, capped to numEpochs.
func (d *Dispenser) claimWindow(n xchain.Nominee, numEpochs uint32) (first, last uint32, err error) {
	if first, err = d.lastClaimed.Get(n.Hash()); err != nil {
		return
	}
	if first == 0 {
		return 0, 0, fail(WrongAccount, "nominee %v is not registered", n)
	}
	eCounter, err := d.tokenomics.EpochCounter()
	if err != nil {
		return 0, 0, errors.Wrap(err, "epoch counter")
	}
	last = eCounter
	if uint64(first)+uint64(numEpochs) < uint64(last) {
		last = first + numEpochs
	}
	removed, err := d.removed.Get(n.Hash())
	if err != nil {
		return 0, 0, err
	}
	if removed > 0 && removed < last {
		last = removed
	}
	if first >= last {
		return 0, 0, fail(Overflow, "nothing to claim for %v from epoch %d", n, first)
	}
	return first, last, nil
}

// settle sums the incentives of the nominee over its claim window and advances its record.
func (d *Dispenser) settle(n xchain.Nominee, numEpochs uint32) (incentive, returnAmount *big.Int, err error) {
	first, last, err := d.claimWindow(n, numEpochs)
	if err != nil {
		return nil, nil, err
	}
	incentive, returnAmount = new(big.Int), new(big.Int)
	for e := first; e < last; e++ {
		inc, ret, err := d.tokenomics.StakingIncentive(n, e)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "staking incentive for epoch %d", e)
		}
		incentive.Add(incentive, inc)
		returnAmount.Add(returnAmount, ret)
	}
	if err := d.lastClaimed.Set(n.Hash(), last); err != nil {
		return nil, nil, err
	}
	return incentive, returnAmount, nil
}

func (d *Dispenser) checkNumEpochs(numEpochs uint32) error {
	if numEpochs == 0 {
		return fail(ZeroValue, "number of epochs")
	}
	maxEpochs, err := maxNumClaimingEpochs.Get(d.ctx)
	if err != nil {
		return err
	}
	if numEpochs > maxEpochs {
		return fail(Overflow, "%d epochs above %d", numEpochs, maxEpochs)
	}
	return nil
}

func (d *Dispenser) processorOf(chainID xchain.ChainID) (DepositProcessor, error) {
	route, err := d.routes.Get(chainID)
	if err != nil {
		return nil, err
	}
	p, ok := d.processors[route]
	if route.IsZero() || !ok {
		return nil, fail(WrongChainId, "no deposit processor for chain %v", chainID)
	}
	return p, nil
}

// quoteChain settles the targets of one chain and prepares the outbound request, without sending.
func (d *Dispenser) quoteChain(numEpochs uint32, chainID xchain.ChainID, targets []xchain.Bytes32, payload []byte) (*StakingQuote, DepositProcessor, error) {
	if len(targets) == 0 {
		return nil, nil, fail(ZeroValue, "no targets for chain %v", chainID)
	}
	p, err := d.processorOf(chainID)
	if err != nil {
		return nil, nil, err
	}
	retainer, err := d.Retainer()
	if err != nil {
		return nil, nil, err
	}

	q := &StakingQuote{
		ChainID:        chainID,
		Total:          new(big.Int),
		ReturnAmount:   new(big.Int),
		TransferAmount: new(big.Int),
		Cost:           new(big.Int),
	}
	for i, target := range targets {
		if target.IsZero() {
			return nil, nil, fail(ZeroAddress, "target %d of chain %v", i, chainID)
		}
		if i > 0 && targets[i-1].Compare(target) >= 0 {
			return nil, nil, fail(WrongAccount, "target %v of chain %v is out of order", target, chainID)
		}
		if chainID == xchain.BaseChainID && target == retainer {
			return nil, nil, fail(WrongAccount, "retainer %v claims through Retain", target)
		}
		incentive, ret, err := d.settle(xchain.Nominee{Chain: chainID, Account: target}, numEpochs)
		if err != nil {
			return nil, nil, err
		}
		q.ReturnAmount.Add(q.ReturnAmount, ret)
		if incentive.Sign() == 0 {
			continue
		}
		q.Targets = append(q.Targets, target)
		q.Amounts = append(q.Amounts, incentive)
		q.Total.Add(q.Total, incentive)
	}
	if q.Total.Sign() == 0 {
		return q, p, nil
	}

	withheld, err := d.withheld.Get(chainID)
	if err != nil {
		return nil, nil, err
	}
	q.TransferAmount.Set(q.Total)
	if withheld.Sign() > 0 {
		credit := withheld
		if credit.Cmp(q.Total) > 0 {
			credit = new(big.Int).Set(q.Total)
		}
		q.TransferAmount.Sub(q.TransferAmount, credit)
		if err := d.withheld.Set(chainID, withheld.Sub(withheld, credit)); err != nil {
			return nil, nil, err
		}
	}
	if q.Cost, err = p.QuoteCost(payload, q.TransferAmount); err != nil {
		return nil, nil, err
	}
	return q, p, nil
}

// dispatch funds the processor and hands the request over.
func (d *Dispenser) dispatch(p DepositProcessor, q *StakingQuote, payer xchain.Address, value *big.Int, payload []byte) error {
	if q.ReturnAmount.Sign() > 0 {
		if err := d.tokenomics.RefundFromStaking(q.ReturnAmount); err != nil {
			return errors.Wrap(err, "refund from staking")
		}
	}
	if q.Total.Sign() == 0 {
		return nil
	}
	if q.TransferAmount.Sign() > 0 {
		if err := d.treasury.WithdrawToAccount(p.Address(), new(big.Int), q.TransferAmount); err != nil {
			return fail(TransferFailed, "withdraw to processor %v: %v", p.Address(), err)
		}
	}
	var err error
	if len(q.Targets) == 1 {
		err = p.SendMessage(d.addr, payer, value, q.Targets[0], q.Amounts[0], payload, q.TransferAmount)
	} else {
		err = p.SendMessageBatch(d.addr, payer, value, q.Targets, q.Amounts, payload, q.TransferAmount)
	}
	if err != nil {
		return err
	}
	metricStakingTargets().AddWithLabel(int64(len(q.Targets)), map[string]string{"chain": q.ChainID.String()})
	return nil
}

// ClaimStakingIncentives claims up to numEpochs settled epochs for one staking target and
// forwards the incentive to the chain of the target. value pays for bridging.
func (d *Dispenser) ClaimStakingIncentives(
	caller xchain.Address,
	value *big.Int,
	numEpochs uint32,
	chainID xchain.ChainID,
	target xchain.Bytes32,
	payload []byte,
) error {
	logger.Debug("claiming staking incentives", "chain", chainID, "target", target, "epochs", numEpochs)
	err := d.state.Atomic(func() error {
		if err := d.checkPause(true); err != nil {
			return err
		}
		if err := d.checkNumEpochs(numEpochs); err != nil {
			return err
		}
		release, err := d.enter()
		if err != nil {
			return err
		}
		defer release()

		q, p, err := d.quoteChain(numEpochs, chainID, []xchain.Bytes32{target}, payload)
		if err != nil {
			return err
		}
		return d.dispatch(p, q, caller, value, payload)
	})
	observeClaim("staking", err)
	if err != nil {
		logger.Info("claim staking incentives failed", "chain", chainID, "target", target, "error", err)
		return err
	}
	logger.Info("claimed staking incentives", "chain", chainID, "target", target)
	return nil
}

// ClaimStakingIncentivesBatch claims for several chains at once. Chains must be strictly
// ascending and so must the targets of each chain. values[i] pays the bridging of chain i
// and must match its quoted cost exactly.
func (d *Dispenser) ClaimStakingIncentivesBatch(
	caller xchain.Address,
	value *big.Int,
	numEpochs uint32,
	chainIDs []xchain.ChainID,
	targets [][]xchain.Bytes32,
	payloads [][]byte,
	values []*big.Int,
) error {
	logger.Debug("claiming staking incentives batch", "chains", len(chainIDs), "epochs", numEpochs)
	if value == nil {
		value = new(big.Int)
	}
	err := d.state.Atomic(func() error {
		if err := d.checkPause(true); err != nil {
			return err
		}
		if len(chainIDs) == 0 || len(chainIDs) != len(targets) || len(chainIDs) != len(payloads) || len(chainIDs) != len(values) {
			return fail(WrongArrayLength, "%d chains, %d target lists, %d payloads, %d values",
				len(chainIDs), len(targets), len(payloads), len(values))
		}
		if err := d.checkNumEpochs(numEpochs); err != nil {
			return err
		}
		maxTargets, err := maxNumStakingTargets.Get(d.ctx)
		if err != nil {
			return err
		}
		var (
			numTargets int
			sum        = new(big.Int)
		)
		for i, chainID := range chainIDs {
			if i > 0 && chainIDs[i-1] >= chainID {
				return fail(WrongChainId, "chain %v is out of order", chainID)
			}
			numTargets += len(targets[i])
			if values[i] == nil || values[i].Sign() < 0 {
				return fail(WrongAmount, "value of chain %v", chainID)
			}
			sum.Add(sum, values[i])
		}
		if numTargets > int(maxTargets) {
			return fail(Overflow, "%d targets above %d", numTargets, maxTargets)
		}
		if sum.Cmp(value) != 0 {
			return fail(WrongAmount, "values sum to %v, attached %v", sum, value)
		}

		release, err := d.enter()
		if err != nil {
			return err
		}
		defer release()

		for i, chainID := range chainIDs {
			q, p, err := d.quoteChain(numEpochs, chainID, targets[i], payloads[i])
			if err != nil {
				return err
			}
			if q.Cost.Cmp(values[i]) != 0 {
				return fail(WrongAmount, "chain %v costs %v, got %v", chainID, q.Cost, values[i])
			}
			if err := d.dispatch(p, q, caller, values[i], payloads[i]); err != nil {
				return err
			}
		}
		return nil
	})
	observeClaim("staking-batch", err)
	if err != nil {
		logger.Info("claim staking incentives batch failed", "error", err)
		return err
	}
	logger.Info("claimed staking incentives batch", "chains", len(chainIDs))
	return nil
}

// QuoteStakingClaim computes what ClaimStakingIncentivesBatch would send and what each chain
// costs. It leaves no trace in state.
func (d *Dispenser) QuoteStakingClaim(numEpochs uint32, chainIDs []xchain.ChainID, targets [][]xchain.Bytes32, payloads [][]byte) ([]*StakingQuote, error) {
	if len(chainIDs) != len(targets) || len(chainIDs) != len(payloads) {
		return nil, fail(WrongArrayLength, "%d chains, %d target lists, %d payloads", len(chainIDs), len(targets), len(payloads))
	}
	rev := d.state.NewCheckpoint()
	defer d.state.RevertTo(rev)

	if err := d.checkNumEpochs(numEpochs); err != nil {
		return nil, err
	}
	quotes := make([]*StakingQuote, 0, len(chainIDs))
	for i, chainID := range chainIDs {
		q, _, err := d.quoteChain(numEpochs, chainID, targets[i], payloads[i])
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// Retain returns the incentives accrued by the retainer to the inflation pool.
func (d *Dispenser) Retain(caller xchain.Address) (*big.Int, error) {
	logger.Debug("retaining", "caller", caller)
	var amount *big.Int
	err := d.state.Atomic(func() error {
		retainer, err := d.Retainer()
		if err != nil {
			return err
		}
		if retainer.IsZero() {
			return fail(ZeroAddress, "no retainer")
		}
		release, err := d.enter()
		if err != nil {
			return err
		}
		defer release()

		maxEpochs, err := maxNumClaimingEpochs.Get(d.ctx)
		if err != nil {
			return err
		}
		n := xchain.Nominee{Chain: xchain.BaseChainID, Account: retainer}
		incentive, returnAmount, err := d.settle(n, maxEpochs)
		if errors.Is(err, Overflow) {
			return fail(ZeroValue, "nothing to retain")
		}
		if err != nil {
			return err
		}
		amount = incentive.Add(incentive, returnAmount)
		if amount.Sign() == 0 {
			return fail(ZeroValue, "nothing to retain")
		}
		return d.tokenomics.RefundFromStaking(amount)
	})
	if err != nil {
		logger.Info("retain failed", "error", err)
		return nil, err
	}
	logger.Info("retained", "amount", amount)
	return amount, nil
}
