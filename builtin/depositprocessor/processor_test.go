// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package depositprocessor

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/dispenser/abi"
	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/builtin/token"
	"github.com/vechain/dispenser/state"
	"github.com/vechain/dispenser/xchain"
)

type fakeDispatcher struct {
	addr   xchain.Address
	synced map[xchain.ChainID]*big.Int
}

func (f *fakeDispatcher) Address() xchain.Address { return f.addr }

func (f *fakeDispatcher) SyncWithheldAmount(_ xchain.Address, chainID xchain.ChainID, amount *big.Int) error {
	if f.synced[chainID] == nil {
		f.synced[chainID] = new(big.Int)
	}
	f.synced[chainID].Add(f.synced[chainID], amount)
	return nil
}

type inbox struct {
	deliveries []*bridge.Delivery
}

func (i *inbox) ReceiveMessage(d *bridge.Delivery) error {
	i.deliveries = append(i.deliveries, d)
	return nil
}

var (
	owner     = xchain.Address{0x0a}
	payer     = xchain.Address{0x0c}
	procAddr  = xchain.Address{0xa1}
	l2Addr    = xchain.Address{0xb1}
	l2Chain   = xchain.ChainID(10)
	targetA   = xchain.Address{0x01}.Bytes32()
	targetB   = xchain.Address{0x02}.Bytes32()
	tokenAddr = xchain.Address{0x70}
)

type fixture struct {
	home, remote     *state.State
	homeTk, remoteTk *token.Token
	homeEp, remoteEp *bridge.Endpoint
	dispatcher       *fakeDispatcher
	proc             *Processor
	ledger           *inbox
	relayer          *bridge.Relayer
}

func newFixture(t *testing.T, family bridge.Family) *fixture {
	f := &fixture{
		home:       state.New(nil),
		remote:     state.New(nil),
		dispatcher: &fakeDispatcher{addr: xchain.Address{0xd1}, synced: map[xchain.ChainID]*big.Int{}},
		ledger:     &inbox{},
	}
	f.homeTk = token.New(tokenAddr, f.home)
	f.remoteTk = token.New(tokenAddr, f.remote)
	f.homeEp = bridge.NewEndpoint(bridge.Config{
		Family: family, Address: xchain.Address{0xe1}, Chain: xchain.BaseChainID, Peer: l2Chain,
		NativeID: 2, PeerNativeID: 24, Home: true, GasPrice: big.NewInt(3),
	}, f.home, f.homeTk)
	f.remoteEp = bridge.NewEndpoint(bridge.Config{
		Family: family, Address: xchain.Address{0xe2}, Chain: l2Chain, Peer: xchain.BaseChainID,
		NativeID: 24, PeerNativeID: 2, GasPrice: big.NewInt(3),
	}, f.remote, f.remoteTk)
	f.remoteEp.Register(l2Addr, f.ledger)
	f.relayer = bridge.NewRelayer(bridge.Options{}, f.homeEp, f.remoteEp)

	f.proc = New(procAddr, l2Chain, f.home, f.homeTk, f.homeEp, f.dispatcher)
	require.NoError(t, f.proc.Initialize(owner))
	require.NoError(t, f.home.SetBalance(payer, big.NewInt(1e9)))
	require.NoError(t, f.homeTk.Mint(procAddr, big.NewInt(1000)))
	return f
}

func (f *fixture) bind(t *testing.T) {
	require.NoError(t, f.proc.SetL2TargetDispenser(owner, l2Addr))
}

func mustEncode(t *testing.T) func([]byte, error) []byte {
	return func(data []byte, err error) []byte {
		require.NoError(t, err)
		return data
	}
}

func arbitrumPayload(t *testing.T) []byte {
	return mustEncode(t)(abi.EncodeArbitrum(&abi.ArbitrumPayload{
		Refund:                   xchain.Address{0xfe},
		GasPriceBid:              big.NewInt(2),
		MaxSubmissionCostToken:   big.NewInt(10),
		GasLimitMessage:          big.NewInt(100),
		MaxSubmissionCostMessage: big.NewInt(20),
	}))
}

func TestSetL2TargetDispenser(t *testing.T) {
	f := newFixture(t, bridge.Polygon)

	assert.ErrorIs(t, f.proc.SetL2TargetDispenser(payer, l2Addr), OwnerOnly)
	assert.ErrorIs(t, f.proc.SetL2TargetDispenser(owner, xchain.Address{}), ZeroAddress)
	f.bind(t)

	got, err := f.proc.L2TargetDispenser()
	require.NoError(t, err)
	assert.Equal(t, l2Addr, got)
	o, err := f.proc.Owner()
	require.NoError(t, err)
	assert.True(t, o.IsZero())

	assert.ErrorIs(t, f.proc.SetL2TargetDispenser(owner, xchain.Address{0xb2}), OwnerOnly)
}

func TestQuoteCost(t *testing.T) {
	cases := []struct {
		family   bridge.Family
		payload  func(t *testing.T) []byte
		transfer int64
		cost     int64
	}{
		{bridge.Arbitrum, arbitrumPayload, 100, 10 + 2*TokenGasLimit + 20 + 2*MinGasLimit},
		{bridge.Arbitrum, arbitrumPayload, 0, 20 + 2*MinGasLimit},
		{bridge.Optimism, func(t *testing.T) []byte {
			return mustEncode(t)(abi.EncodeOptimism(&abi.OptimismPayload{Cost: big.NewInt(7), GasLimitMessage: big.NewInt(1)}))
		}, 100, 7},
		{bridge.Gnosis, func(t *testing.T) []byte {
			return mustEncode(t)(abi.EncodeGnosis(&abi.GnosisPayload{GasLimitMessage: big.NewInt(500_000)}))
		}, 100, 0},
		{bridge.Polygon, func(*testing.T) []byte { return nil }, 100, 0},
		{bridge.Wormhole, func(t *testing.T) []byte {
			return mustEncode(t)(abi.EncodeWormhole(&abi.WormholePayload{GasLimitMessage: big.NewInt(500_000)}))
		}, 100, 3 * 500_000},
		{bridge.Wormhole, func(t *testing.T) []byte {
			return mustEncode(t)(abi.EncodeWormhole(&abi.WormholePayload{GasLimitMessage: big.NewInt(9_000_000)}))
		}, 100, 3 * MaxGasLimit},
	}
	for _, tc := range cases {
		t.Run(tc.family.String(), func(t *testing.T) {
			f := newFixture(t, tc.family)
			cost, err := f.proc.QuoteCost(tc.payload(t), big.NewInt(tc.transfer))
			require.NoError(t, err)
			assert.Equal(t, big.NewInt(tc.cost), cost)
		})
	}
}

func TestQuoteValidation(t *testing.T) {
	f := newFixture(t, bridge.Arbitrum)

	_, err := f.proc.QuoteCost(arbitrumPayload(t)[:64], big.NewInt(1))
	assert.ErrorIs(t, err, IncorrectDataLength)

	noBid := mustEncode(t)(abi.EncodeArbitrum(&abi.ArbitrumPayload{
		GasLimitMessage: big.NewInt(1), MaxSubmissionCostMessage: big.NewInt(1),
	}))
	_, err = f.proc.QuoteCost(noBid, new(big.Int))
	assert.ErrorIs(t, err, ZeroValue)

	noTokenCost := mustEncode(t)(abi.EncodeArbitrum(&abi.ArbitrumPayload{
		GasPriceBid: big.NewInt(1), GasLimitMessage: big.NewInt(1), MaxSubmissionCostMessage: big.NewInt(1),
	}))
	_, err = f.proc.QuoteCost(noTokenCost, new(big.Int))
	assert.NoError(t, err)
	_, err = f.proc.QuoteCost(noTokenCost, big.NewInt(1))
	assert.ErrorIs(t, err, ZeroValue)

	huge := mustEncode(t)(abi.EncodeArbitrum(&abi.ArbitrumPayload{
		GasPriceBid:              new(big.Int).Lsh(big.NewInt(1), 255),
		GasLimitMessage:          big.NewInt(1),
		MaxSubmissionCostMessage: big.NewInt(1),
	}))
	_, err = f.proc.QuoteCost(huge, new(big.Int))
	assert.ErrorIs(t, err, Overflow)

	g := newFixture(t, bridge.Gnosis)
	_, err = g.proc.QuoteCost(nil, new(big.Int))
	assert.ErrorIs(t, err, IncorrectDataLength)
	_, err = g.proc.QuoteCost(mustEncode(t)(abi.EncodeGnosis(&abi.GnosisPayload{})), new(big.Int))
	assert.ErrorIs(t, err, ZeroValue)
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t, bridge.Arbitrum)
	d := f.dispatcher.addr
	payload := arbitrumPayload(t)
	cost, err := f.proc.QuoteCost(payload, big.NewInt(100))
	require.NoError(t, err)

	err = f.proc.SendMessage(payer, payer, cost, targetA, big.NewInt(100), payload, big.NewInt(100))
	assert.ErrorIs(t, err, ManagerOnly)
	err = f.proc.SendMessage(d, payer, cost, targetA, big.NewInt(100), payload, big.NewInt(100))
	assert.ErrorIs(t, err, ZeroAddress)

	f.bind(t)
	err = f.proc.SendMessage(d, payer, new(big.Int).Sub(cost, big.NewInt(1)), targetA, big.NewInt(100), payload, big.NewInt(100))
	assert.ErrorIs(t, err, LowerThan)
	err = f.proc.SendMessage(d, payer, cost, xchain.Bytes32{0xff}, big.NewInt(100), payload, big.NewInt(100))
	assert.ErrorIs(t, err, WrongAccount)
	err = f.proc.SendMessageBatch(d, payer, cost, []xchain.Bytes32{targetA}, nil, payload, big.NewInt(100))
	assert.ErrorIs(t, err, WrongArrayLength)
	err = f.proc.SendMessage(d, payer, cost, targetA, big.NewInt(5000), payload, big.NewInt(5000))
	assert.ErrorIs(t, err, TransferFailed)

	pending, err := f.relayer.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
	ph, err := f.proc.Phase()
	require.NoError(t, err)
	assert.Equal(t, Idle, ph)
}

func TestSendArbitrum(t *testing.T) {
	f := newFixture(t, bridge.Arbitrum)
	f.bind(t)
	payload := arbitrumPayload(t)
	cost, err := f.proc.QuoteCost(payload, big.NewInt(300))
	require.NoError(t, err)
	value := new(big.Int).Add(cost, big.NewInt(1000))

	err = f.proc.SendMessageBatch(f.dispatcher.addr, payer, value, []xchain.Bytes32{targetA, targetB},
		[]*big.Int{big.NewInt(100), big.NewInt(200)}, payload, big.NewInt(300))
	require.NoError(t, err)

	paid, err := f.home.GetBalance(payer)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Sub(big.NewInt(1e9), value), paid)

	report, err := f.relayer.Relay()
	require.NoError(t, err)
	assert.Equal(t, 2, report.Delivered)

	require.Len(t, f.ledger.deliveries, 1)
	d := f.ledger.deliveries[0]
	assert.Equal(t, bridge.ApplyL1ToL2Alias(procAddr), d.Caller)
	batch, err := abi.DecodeBatch(d.Data)
	require.NoError(t, err)
	assert.Equal(t, []xchain.Address{targetA.Address(), targetB.Address()}, batch.Targets)
	assert.Equal(t, big.NewInt(300), batch.Total())

	bal, err := f.remoteTk.BalanceOf(l2Addr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(300), bal)
	refund, err := f.remote.GetBalance(xchain.Address{0xfe})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), refund)
}

func TestSendOptimismChargesCost(t *testing.T) {
	f := newFixture(t, bridge.Optimism)
	f.bind(t)
	payload := mustEncode(t)(abi.EncodeOptimism(&abi.OptimismPayload{Cost: big.NewInt(7), GasLimitMessage: big.NewInt(1)}))

	require.NoError(t, f.proc.SendMessage(f.dispatcher.addr, payer, big.NewInt(50), targetA, big.NewInt(10), payload, new(big.Int)))
	paid, err := f.home.GetBalance(payer)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1e9-7), paid)

	pending, err := f.relayer.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, bridge.KindMessage, pending[0].Kind)
}

func sendWithheld(t *testing.T, f *fixture, sender xchain.Address, chain xchain.ChainID, amount int64) *bridge.Envelope {
	data := mustEncode(t)(abi.EncodeWithheld(&abi.Withheld{ChainID: chain, Amount: big.NewInt(amount)}))
	env, err := f.remoteEp.SendMessage(&bridge.Message{Sender: sender, Recipient: procAddr, Data: data})
	require.NoError(t, err)
	return env
}

func TestReceiveMessage(t *testing.T) {
	for _, family := range bridge.Families {
		t.Run(family.String(), func(t *testing.T) {
			f := newFixture(t, family)
			f.bind(t)

			sendWithheld(t, f, l2Addr, l2Chain, 40)
			forged := sendWithheld(t, f, xchain.Address{0xbb}, l2Chain, 1)
			other := sendWithheld(t, f, l2Addr, 11, 1)
			report, err := f.relayer.Relay()
			require.NoError(t, err)
			assert.Equal(t, 1, report.Delivered)

			assert.Equal(t, big.NewInt(40), f.dispatcher.synced[l2Chain])
			failures := f.relayer.Failures()
			require.Len(t, failures, 2)
			assert.Equal(t, forged.ID(), failures[0].Envelope.ID())
			assert.ErrorIs(t, failures[0].Err, WrongMessageSender)
			assert.Equal(t, other.ID(), failures[1].Envelope.ID())
			assert.ErrorIs(t, failures[1].Err, WrongChainId)
		})
	}
}

func TestReceiveMessageAuthentication(t *testing.T) {
	f := newFixture(t, bridge.Gnosis)
	data := mustEncode(t)(abi.EncodeWithheld(&abi.Withheld{ChainID: l2Chain, Amount: big.NewInt(1)}))
	d := &bridge.Delivery{Family: bridge.Gnosis, Caller: f.homeEp.Address(), Sender: l2Addr, SourceChain: 24, Data: data}

	assert.ErrorIs(t, f.proc.ReceiveMessage(d), ZeroAddress)
	f.bind(t)

	forged := *d
	forged.Caller = l2Addr
	assert.ErrorIs(t, f.proc.ReceiveMessage(&forged), TargetRelayerOnly)
	forged = *d
	forged.SourceChain = 100
	assert.ErrorIs(t, f.proc.ReceiveMessage(&forged), WrongChainId)
	short := *d
	short.Data = data[:32]
	assert.ErrorIs(t, f.proc.ReceiveMessage(&short), IncorrectDataLength)

	require.NoError(t, f.proc.ReceiveMessage(d))
	assert.Equal(t, big.NewInt(1), f.dispatcher.synced[l2Chain])
}

func TestReceiveWormholeReplay(t *testing.T) {
	f := newFixture(t, bridge.Wormhole)
	f.bind(t)
	env := sendWithheld(t, f, l2Addr, l2Chain, 25)

	_, err := f.relayer.Relay()
	require.NoError(t, err)
	assert.ErrorIs(t, f.relayer.Replay(env.ID()), AlreadyDelivered)
	assert.Equal(t, big.NewInt(25), f.dispatcher.synced[l2Chain])

	seen, err := f.proc.Delivered(env.ID())
	require.NoError(t, err)
	assert.True(t, seen)
}
