// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dispenser

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/dispenser/state"
	"github.com/vechain/dispenser/xchain"
)

type fakeTokenomics struct {
	epoch     uint32
	incentive int64
	ret       int64
	refunded  *big.Int
	owed      map[xchain.Address][2]int64
}

func (f *fakeTokenomics) EpochCounter() (uint32, error) { return f.epoch, nil }

func (f *fakeTokenomics) StakingIncentive(_ xchain.Nominee, _ uint32) (*big.Int, *big.Int, error) {
	return big.NewInt(f.incentive), big.NewInt(f.ret), nil
}

func (f *fakeTokenomics) RefundFromStaking(amount *big.Int) error {
	f.refunded.Add(f.refunded, amount)
	return nil
}

func (f *fakeTokenomics) AccountOwnerIncentives(account xchain.Address, _ []UnitKind, _ []*big.Int) (*big.Int, *big.Int, error) {
	owed := f.owed[account]
	delete(f.owed, account)
	return big.NewInt(owed[0]), big.NewInt(owed[1]), nil
}

type fakeTreasury struct {
	paid map[xchain.Address]*big.Int
	err  error
}

func (f *fakeTreasury) WithdrawToAccount(account xchain.Address, reward, topUp *big.Int) error {
	if f.err != nil {
		return f.err
	}
	if f.paid[account] == nil {
		f.paid[account] = new(big.Int)
	}
	f.paid[account].Add(f.paid[account], new(big.Int).Add(reward, topUp))
	return nil
}

type sent struct {
	targets  []xchain.Bytes32
	amounts  []*big.Int
	transfer *big.Int
	value    *big.Int
}

type fakeProcessor struct {
	addr  xchain.Address
	cost  int64
	sends []sent
	hook  func() error
}

func (f *fakeProcessor) Address() xchain.Address { return f.addr }

func (f *fakeProcessor) QuoteCost(_ []byte, _ *big.Int) (*big.Int, error) {
	return big.NewInt(f.cost), nil
}

func (f *fakeProcessor) SendMessage(_, _ xchain.Address, value *big.Int, target xchain.Bytes32, amount *big.Int, _ []byte, transfer *big.Int) error {
	return f.SendMessageBatch(xchain.Address{}, xchain.Address{}, value, []xchain.Bytes32{target}, []*big.Int{amount}, nil, transfer)
}

func (f *fakeProcessor) SendMessageBatch(_, _ xchain.Address, value *big.Int, targets []xchain.Bytes32, amounts []*big.Int, _ []byte, transfer *big.Int) error {
	if f.hook != nil {
		if err := f.hook(); err != nil {
			return err
		}
	}
	f.sends = append(f.sends, sent{targets, amounts, transfer, value})
	return nil
}

var (
	owner      = xchain.Address{0x0a}
	voteWeight = xchain.Address{0x0b}
	claimer    = xchain.Address{0x0c}
	chainA     = xchain.ChainID(10)
	chainB     = xchain.ChainID(137)
	targetA    = xchain.Address{0x01}.Bytes32()
	targetB    = xchain.Address{0x02}.Bytes32()
)

type fixture struct {
	st         *state.State
	d          *Dispenser
	tokenomics *fakeTokenomics
	treasury   *fakeTreasury
	procA      *fakeProcessor
	procB      *fakeProcessor
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		st:         state.New(nil),
		tokenomics: &fakeTokenomics{epoch: 1, incentive: 100, ret: 10, refunded: new(big.Int), owed: map[xchain.Address][2]int64{}},
		treasury:   &fakeTreasury{paid: map[xchain.Address]*big.Int{}},
		procA:      &fakeProcessor{addr: xchain.Address{0xa1}, cost: 5},
		procB:      &fakeProcessor{addr: xchain.Address{0xa2}},
	}
	f.d = New(xchain.Address{0xd1}, f.st, f.tokenomics, f.treasury)
	require.NoError(t, f.d.Initialize(owner, voteWeight))
	f.d.RegisterProcessor(f.procA)
	f.d.RegisterProcessor(f.procB)
	require.NoError(t, f.d.SetDepositProcessorChainIDs(owner,
		[]xchain.Address{f.procA.addr, f.procB.addr}, []xchain.ChainID{chainA, chainB}))
	return f
}

func (f *fixture) addNominees(t *testing.T, chain xchain.ChainID, targets ...xchain.Bytes32) {
	for _, target := range targets {
		require.NoError(t, f.d.AddNominee(voteWeight, xchain.Nominee{Chain: chain, Account: target}))
	}
}

func TestInitialize(t *testing.T) {
	f := newFixture(t)
	assert.Error(t, f.d.Initialize(owner, voteWeight))

	got, err := f.d.Owner()
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	maxEpochs, maxTargets, err := f.d.StakingParams()
	require.NoError(t, err)
	assert.Equal(t, uint32(DefaultMaxNumClaimingEpochs), maxEpochs)
	assert.Equal(t, uint32(DefaultMaxNumStakingTargets), maxTargets)

	d := New(xchain.Address{0xd2}, state.New(nil), nil, nil)
	assert.ErrorIs(t, d.Initialize(xchain.Address{}, voteWeight), ZeroAddress)
}

func TestOwnerSetters(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.d.ChangeOwner(claimer, claimer), OwnerOnly)
	assert.ErrorIs(t, f.d.ChangeOwner(owner, xchain.Address{}), ZeroAddress)
	assert.ErrorIs(t, f.d.SetPauseState(owner, AllPaused+1), Overflow)
	assert.ErrorIs(t, f.d.ChangeStakingParams(owner, 0, 1), ZeroValue)
	assert.ErrorIs(t, f.d.SetDepositProcessorChainIDs(owner, []xchain.Address{f.procA.addr}, nil), WrongArrayLength)
	assert.ErrorIs(t, f.d.SetDepositProcessorChainIDs(owner, []xchain.Address{{0x99}}, []xchain.ChainID{5}), WrongAccount)
	assert.ErrorIs(t, f.d.ChangeManagers(owner, nil, nil, xchain.Address{}), ZeroAddress)

	require.NoError(t, f.d.ChangeStakingParams(owner, 3, 7))
	maxEpochs, maxTargets, err := f.d.StakingParams()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), maxEpochs)
	assert.Equal(t, uint32(7), maxTargets)

	require.NoError(t, f.d.ChangeOwner(owner, claimer))
	assert.ErrorIs(t, f.d.SetPauseState(owner, AllPaused), OwnerOnly)
	require.NoError(t, f.d.SetPauseState(claimer, AllPaused))
	ps, err := f.d.PauseState()
	require.NoError(t, err)
	assert.Equal(t, AllPaused, ps)
}

func TestNominees(t *testing.T) {
	f := newFixture(t)
	n := xchain.Nominee{Chain: chainA, Account: targetA}

	assert.ErrorIs(t, f.d.AddNominee(owner, n), ManagerOnly)

	// an accounting that has not started yet cannot register anyone
	f.tokenomics.epoch = 0
	assert.ErrorIs(t, f.d.AddNominee(voteWeight, n), ZeroValue)
	f.tokenomics.epoch = 1

	require.NoError(t, f.d.AddNominee(voteWeight, n))
	assert.ErrorIs(t, f.d.AddNominee(voteWeight, n), WrongAccount)

	last, err := f.d.LastClaimedEpoch(n)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), last)

	f.tokenomics.epoch = 4
	assert.ErrorIs(t, f.d.RemoveNominee(owner, n), ManagerOnly)
	require.NoError(t, f.d.RemoveNominee(voteWeight, n))
	assert.ErrorIs(t, f.d.RemoveNominee(voteWeight, n), WrongAccount)
	assert.ErrorIs(t, f.d.AddNominee(voteWeight, n), WrongAccount)

	// epochs before the removal stay claimable
	f.tokenomics.epoch = 9
	require.NoError(t, f.d.ClaimStakingIncentives(claimer, big.NewInt(5), 10, chainA, targetA, nil))
	require.Len(t, f.procA.sends, 1)
	assert.Equal(t, big.NewInt(300), f.procA.sends[0].amounts[0])
	assert.ErrorIs(t, f.d.ClaimStakingIncentives(claimer, big.NewInt(5), 10, chainA, targetA, nil), Overflow)
}

func TestChangeRetainer(t *testing.T) {
	f := newFixture(t)
	retainer := xchain.Address{0x77}.Bytes32()

	assert.ErrorIs(t, f.d.ChangeRetainer(owner, xchain.Bytes32{}), ZeroAddress)
	assert.ErrorIs(t, f.d.ChangeRetainer(owner, retainer), ZeroValue)
	assert.ErrorIs(t, f.d.ChangeRetainer(claimer, retainer), OwnerOnly)

	f.addNominees(t, xchain.BaseChainID, retainer)
	require.NoError(t, f.d.ChangeRetainer(owner, retainer))
	got, err := f.d.Retainer()
	require.NoError(t, err)
	assert.Equal(t, retainer, got)

	assert.ErrorIs(t, f.d.RemoveNominee(voteWeight, xchain.Nominee{Chain: xchain.BaseChainID, Account: retainer}), WrongAccount)
}

func TestRetain(t *testing.T) {
	f := newFixture(t)
	_, err := f.d.Retain(claimer)
	assert.ErrorIs(t, err, ZeroAddress)

	retainer := xchain.Address{0x77}.Bytes32()
	f.addNominees(t, xchain.BaseChainID, retainer)
	require.NoError(t, f.d.ChangeRetainer(owner, retainer))

	_, err = f.d.Retain(claimer)
	assert.ErrorIs(t, err, ZeroValue)

	f.tokenomics.epoch = 3
	amount, err := f.d.Retain(claimer)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(220), amount)
	assert.Equal(t, big.NewInt(220), f.tokenomics.refunded)

	_, err = f.d.Retain(claimer)
	assert.ErrorIs(t, err, ZeroValue)

	err = f.d.ClaimStakingIncentives(claimer, new(big.Int), 1, xchain.BaseChainID, retainer, nil)
	assert.ErrorIs(t, err, WrongChainId)
}

func TestClaimTargetOrder(t *testing.T) {
	f := newFixture(t)
	f.addNominees(t, chainB, targetA, targetB)
	f.tokenomics.epoch = 2

	claim := func(targets ...xchain.Bytes32) error {
		return f.d.ClaimStakingIncentivesBatch(claimer, new(big.Int), 1,
			[]xchain.ChainID{chainB}, [][]xchain.Bytes32{targets}, [][]byte{nil}, []*big.Int{new(big.Int)})
	}
	assert.ErrorIs(t, claim(targetB, targetA), WrongAccount)
	assert.ErrorIs(t, claim(targetA, targetA), WrongAccount)
	assert.ErrorIs(t, claim(), ZeroValue)
	assert.Empty(t, f.procB.sends)

	require.NoError(t, claim(targetA, targetB))
	require.Len(t, f.procB.sends, 1)
	assert.Equal(t, []xchain.Bytes32{targetA, targetB}, f.procB.sends[0].targets)
	assert.Equal(t, big.NewInt(200), f.procB.sends[0].transfer)
	assert.Equal(t, big.NewInt(200), f.treasury.paid[f.procB.addr])
	assert.Equal(t, big.NewInt(20), f.tokenomics.refunded)

	// settled epochs cannot be claimed twice
	assert.ErrorIs(t, claim(targetA, targetB), Overflow)
	assert.Len(t, f.procB.sends, 1)
}

func TestClaimValidation(t *testing.T) {
	f := newFixture(t)
	f.addNominees(t, chainA, targetA)
	f.addNominees(t, chainB, targetA)
	f.tokenomics.epoch = 5

	cases := []struct {
		name     string
		value    int64
		epochs   uint32
		chains   []xchain.ChainID
		targets  [][]xchain.Bytes32
		values   []int64
		expected error
	}{
		{"zero epochs", 5, 0, []xchain.ChainID{chainA}, [][]xchain.Bytes32{{targetA}}, []int64{5}, ZeroValue},
		{"too many epochs", 5, 11, []xchain.ChainID{chainA}, [][]xchain.Bytes32{{targetA}}, []int64{5}, Overflow},
		{"descending chains", 5, 1, []xchain.ChainID{chainB, chainA}, [][]xchain.Bytes32{{targetA}, {targetA}}, []int64{0, 5}, WrongChainId},
		{"unknown chain", 0, 1, []xchain.ChainID{3}, [][]xchain.Bytes32{{targetA}}, []int64{0}, WrongChainId},
		{"zero target", 5, 1, []xchain.ChainID{chainA}, [][]xchain.Bytes32{{{}}}, []int64{5}, ZeroAddress},
		{"unregistered target", 5, 1, []xchain.ChainID{chainA}, [][]xchain.Bytes32{{targetB}}, []int64{5}, WrongAccount},
		{"value sum mismatch", 4, 1, []xchain.ChainID{chainA}, [][]xchain.Bytes32{{targetA}}, []int64{5}, WrongAmount},
		{"value below cost", 4, 1, []xchain.ChainID{chainA}, [][]xchain.Bytes32{{targetA}}, []int64{4}, WrongAmount},
		{"length mismatch", 5, 1, []xchain.ChainID{chainA}, [][]xchain.Bytes32{{targetA}}, nil, WrongArrayLength},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			values := make([]*big.Int, len(tc.values))
			payloads := make([][]byte, len(tc.chains))
			for i, v := range tc.values {
				values[i] = big.NewInt(v)
			}
			err := f.d.ClaimStakingIncentivesBatch(claimer, big.NewInt(tc.value), tc.epochs, tc.chains, tc.targets, payloads, values)
			assert.ErrorIs(t, err, tc.expected)
		})
	}

	// no attached value counts as zero
	assert.NotPanics(t, func() {
		err := f.d.ClaimStakingIncentivesBatch(claimer, nil, 1, []xchain.ChainID{chainA},
			[][]xchain.Bytes32{{targetA}}, [][]byte{nil}, []*big.Int{big.NewInt(5)})
		assert.ErrorIs(t, err, WrongAmount)
	})

	require.NoError(t, f.d.ChangeStakingParams(owner, 10, 1))
	err := f.d.ClaimStakingIncentivesBatch(claimer, big.NewInt(5), 1, []xchain.ChainID{chainA, chainB},
		[][]xchain.Bytes32{{targetA}, {targetA}}, [][]byte{nil, nil}, []*big.Int{big.NewInt(5), new(big.Int)})
	assert.ErrorIs(t, err, Overflow)

	// nothing of the failed calls stuck
	last, err := f.d.LastClaimedEpoch(xchain.Nominee{Chain: chainA, Account: targetA})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), last)

	require.NoError(t, f.d.ChangeStakingParams(owner, 10, 2))
	require.NoError(t, f.d.ClaimStakingIncentivesBatch(claimer, big.NewInt(5), 2, []xchain.ChainID{chainA, chainB},
		[][]xchain.Bytes32{{targetA}, {targetA}}, [][]byte{nil, nil}, []*big.Int{big.NewInt(5), new(big.Int)}))
	require.Len(t, f.procA.sends, 1)
	assert.Equal(t, big.NewInt(5), f.procA.sends[0].value)
	assert.Equal(t, big.NewInt(200), f.procA.sends[0].amounts[0])
	require.Len(t, f.procB.sends, 1)
}

func TestZeroIncentiveClaim(t *testing.T) {
	f := newFixture(t)
	f.addNominees(t, chainA, targetA)
	f.tokenomics.epoch = 3
	f.tokenomics.incentive = 0

	// the cost of a chain with nothing to send is zero
	err := f.d.ClaimStakingIncentivesBatch(claimer, big.NewInt(5), 2, []xchain.ChainID{chainA},
		[][]xchain.Bytes32{{targetA}}, [][]byte{nil}, []*big.Int{big.NewInt(5)})
	assert.ErrorIs(t, err, WrongAmount)

	require.NoError(t, f.d.ClaimStakingIncentives(claimer, new(big.Int), 2, chainA, targetA, nil))
	assert.Empty(t, f.procA.sends)
	assert.Equal(t, big.NewInt(20), f.tokenomics.refunded)
}

func TestPauseGating(t *testing.T) {
	f := newFixture(t)
	f.addNominees(t, chainB, targetA)
	f.tokenomics.epoch = 2
	f.tokenomics.owed[claimer] = [2]int64{3, 4}

	require.NoError(t, f.d.SetPauseState(owner, StakingIncentivesPaused))
	assert.ErrorIs(t, f.d.ClaimStakingIncentives(claimer, new(big.Int), 1, chainB, targetA, nil), Paused)
	reward, topUp, err := f.d.ClaimOwnerIncentives(claimer, []UnitKind{Component}, []*big.Int{big.NewInt(1)})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(3), reward)
	assert.Equal(t, big.NewInt(4), topUp)

	require.NoError(t, f.d.SetPauseState(owner, DevIncentivesPaused))
	_, _, err = f.d.ClaimOwnerIncentives(claimer, []UnitKind{Component}, []*big.Int{big.NewInt(1)})
	assert.ErrorIs(t, err, Paused)
	require.NoError(t, f.d.ClaimStakingIncentives(claimer, new(big.Int), 1, chainB, targetA, nil))

	require.NoError(t, f.d.SetPauseState(owner, AllPaused))
	_, _, err = f.d.ClaimOwnerIncentives(claimer, []UnitKind{Component}, []*big.Int{big.NewInt(1)})
	assert.ErrorIs(t, err, Paused)
}

func TestClaimOwnerIncentives(t *testing.T) {
	f := newFixture(t)
	one, two := big.NewInt(1), big.NewInt(2)

	_, _, err := f.d.ClaimOwnerIncentives(claimer, []UnitKind{Component}, nil)
	assert.ErrorIs(t, err, WrongArrayLength)
	_, _, err = f.d.ClaimOwnerIncentives(claimer, []UnitKind{Component, Component}, []*big.Int{two, one})
	assert.ErrorIs(t, err, WrongUnitId)
	_, _, err = f.d.ClaimOwnerIncentives(claimer, []UnitKind{Agent, Component}, []*big.Int{one, two})
	assert.ErrorIs(t, err, WrongUnitId)
	_, _, err = f.d.ClaimOwnerIncentives(claimer, []UnitKind{Agent + 1}, []*big.Int{one})
	assert.ErrorIs(t, err, WrongUnitId)

	_, _, err = f.d.ClaimOwnerIncentives(claimer, []UnitKind{Component, Agent}, []*big.Int{two, one})
	assert.ErrorIs(t, err, ClaimIncentivesFailed)

	f.tokenomics.owed[claimer] = [2]int64{10, 0}
	f.treasury.err = errors.New("empty treasury")
	_, _, err = f.d.ClaimOwnerIncentives(claimer, []UnitKind{Component, Agent}, []*big.Int{two, one})
	assert.ErrorIs(t, err, ClaimIncentivesFailed)

	f.tokenomics.owed[claimer] = [2]int64{10, 0}
	f.treasury.err = nil
	_, _, err = f.d.ClaimOwnerIncentives(claimer, []UnitKind{Component, Agent}, []*big.Int{two, one})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10), f.treasury.paid[claimer])
}

func TestWithheldCredit(t *testing.T) {
	f := newFixture(t)
	f.addNominees(t, chainA, targetA)
	f.tokenomics.epoch = 2

	assert.ErrorIs(t, f.d.SyncWithheldAmount(claimer, chainA, big.NewInt(30)), DepositProcessorOnly)
	assert.ErrorIs(t, f.d.SyncWithheldAmount(f.procA.addr, chainB, big.NewInt(30)), DepositProcessorOnly)
	require.NoError(t, f.d.SyncWithheldAmount(f.procA.addr, chainA, big.NewInt(30)))
	require.NoError(t, f.d.SyncWithheldAmount(f.procA.addr, chainA, big.NewInt(100)))

	require.NoError(t, f.d.ClaimStakingIncentives(claimer, big.NewInt(5), 1, chainA, targetA, nil))
	require.Len(t, f.procA.sends, 1)
	assert.Equal(t, big.NewInt(100), f.procA.sends[0].amounts[0])
	assert.Equal(t, int64(0), f.procA.sends[0].transfer.Int64())
	_, paid := f.treasury.paid[f.procA.addr]
	assert.False(t, paid)

	w, err := f.d.WithheldAmount(chainA)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(30), w)

	assert.ErrorIs(t, f.d.UpdateWithheldAmountMaintenance(claimer, chainA, new(big.Int)), OwnerOnly)
	require.NoError(t, f.d.UpdateWithheldAmountMaintenance(owner, chainA, big.NewInt(7)))
	w, err = f.d.WithheldAmount(chainA)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7), w)
}

func TestQuoteStakingClaim(t *testing.T) {
	f := newFixture(t)
	f.addNominees(t, chainA, targetA, targetB)
	f.tokenomics.epoch = 4

	quotes, err := f.d.QuoteStakingClaim(2, []xchain.ChainID{chainA}, [][]xchain.Bytes32{{targetA, targetB}}, [][]byte{nil})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, big.NewInt(400), quotes[0].Total)
	assert.Equal(t, big.NewInt(40), quotes[0].ReturnAmount)
	assert.Equal(t, big.NewInt(5), quotes[0].Cost)

	last, err := f.d.LastClaimedEpoch(xchain.Nominee{Chain: chainA, Account: targetA})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), last)
}

func TestClaimReentrancy(t *testing.T) {
	f := newFixture(t)
	f.addNominees(t, chainA, targetA)
	f.addNominees(t, chainB, targetA)
	f.tokenomics.epoch = 2

	f.procA.hook = func() error {
		return f.d.ClaimStakingIncentives(claimer, new(big.Int), 1, chainB, targetA, nil)
	}
	err := f.d.ClaimStakingIncentives(claimer, big.NewInt(5), 1, chainA, targetA, nil)
	assert.ErrorIs(t, err, ReentrancyGuard)
	assert.Empty(t, f.procA.sends)

	f.procA.hook = nil
	require.NoError(t, f.d.ClaimStakingIncentives(claimer, big.NewInt(5), 1, chainA, targetA, nil))
}
