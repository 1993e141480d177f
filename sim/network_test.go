// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sim

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/builtin/dispenser"
	"github.com/vechain/dispenser/xchain"
)

var (
	claimer = xchain.Address{0xc1}
	target1 = xchain.Address{19: 1}
	target2 = xchain.Address{19: 2}
)

func openNetwork(t *testing.T, cfg *Config, opts bridge.Options) *Network {
	n, err := Open(cfg, "", opts)
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })
	require.NoError(t, n.Fund(xchain.BaseChainID, claimer, big.NewInt(1e18)))
	return n
}

func (n *Network) claim(t *testing.T, chain xchain.ChainID, target xchain.Address) {
	payload, err := n.Payload(chain, claimer)
	require.NoError(t, err)
	quotes, err := n.QuoteStaking(1, []xchain.ChainID{chain}, [][]xchain.Bytes32{{target.Bytes32()}}, [][]byte{payload})
	require.NoError(t, err)
	require.NoError(t, n.ClaimStaking(claimer, quotes[0].Cost, 1, chain, target.Bytes32(), payload), "chain %v", chain)
}

func (n *Network) status(t *testing.T, chain xchain.ChainID) *ChainStatus {
	s, err := n.Status(chain)
	require.NoError(t, err)
	return s
}

func TestClaimEveryFamily(t *testing.T) {
	n := openNetwork(t, DefaultConfig(), bridge.Options{})
	epoch, err := n.Checkpoint()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), epoch)

	for _, id := range n.Chains() {
		n.claim(t, id, target1)
	}
	report, err := n.Relay()
	require.NoError(t, err)
	assert.Zero(t, report.Failed)
	assert.Equal(t, 2*len(n.Chains()), report.Delivered)

	for _, id := range n.Chains() {
		s := n.status(t, id)
		// weight 2 out of 16
		assert.Equal(t, int64(125000), s.Targets[0].Deposited.Int64(), s.Name)
		assert.Zero(t, s.Targets[1].Deposited.Sign(), s.Name)
		assert.Equal(t, int64(1), s.Nonce.Int64(), s.Name)
		assert.Zero(t, s.Balance.Sign(), s.Name)
		assert.Equal(t, "idle", s.Phase, s.Name)
	}
}

func TestBatchClaim(t *testing.T) {
	n := openNetwork(t, DefaultConfig(), bridge.Options{MessagesFirst: true})
	_, err := n.Checkpoint()
	require.NoError(t, err)

	ids := n.Chains()
	targets := make([][]xchain.Bytes32, len(ids))
	payloads := make([][]byte, len(ids))
	for i, id := range ids {
		targets[i] = []xchain.Bytes32{target1.Bytes32(), target2.Bytes32()}
		payloads[i], err = n.Payload(id, claimer)
		require.NoError(t, err)
	}
	quotes, err := n.QuoteStaking(1, ids, targets, payloads)
	require.NoError(t, err)
	values := make([]*big.Int, len(quotes))
	for i, q := range quotes {
		assert.Equal(t, int64(187500), q.Total.Int64())
		values[i] = q.Cost
	}
	require.NoError(t, n.ClaimStakingBatch(claimer, 1, ids, targets, payloads, values))

	// a repeated claim has no settled epoch left
	err = n.ClaimStakingBatch(claimer, 1, ids, targets, payloads, values)
	assert.True(t, errors.Is(err, dispenser.Overflow), "%v", err)

	// messages land before the tokens, so every entry is queued first
	_, err = n.Relay()
	require.NoError(t, err)
	for _, id := range ids {
		s := n.status(t, id)
		assert.Zero(t, s.Targets[0].Deposited.Sign(), s.Name)
		assert.Equal(t, int64(187500), s.Balance.Int64(), s.Name)

		nonce := new(big.Int)
		require.NoError(t, n.Redeem(id, claimer, target1, big.NewInt(125000), nonce))
		require.NoError(t, n.Redeem(id, claimer, target2, big.NewInt(62500), nonce))
		s = n.status(t, id)
		assert.Equal(t, int64(125000), s.Targets[0].Deposited.Int64(), s.Name)
		assert.Equal(t, int64(62500), s.Targets[1].Deposited.Int64(), s.Name)
	}
}

func TestClaimStakingAtQuote(t *testing.T) {
	const arbitrum = xchain.ChainID(42161)
	n := openNetwork(t, DefaultConfig(), bridge.Options{})
	_, err := n.Checkpoint()
	require.NoError(t, err)

	payload, err := n.Payload(arbitrum, claimer)
	require.NoError(t, err)
	ids := []xchain.ChainID{arbitrum}
	targets := [][]xchain.Bytes32{{target1.Bytes32(), target2.Bytes32()}}
	payloads := [][]byte{payload}
	quotes, err := n.QuoteStaking(1, ids, targets, payloads)
	require.NoError(t, err)
	require.Positive(t, quotes[0].Cost.Sign())

	// paying anything but the cost is refused and nothing is claimed
	short := new(big.Int).Sub(quotes[0].Cost, big.NewInt(1))
	_, err = n.ClaimStakingAtQuote(claimer, 1, ids, targets, payloads, []*big.Int{short})
	assert.True(t, errors.Is(err, dispenser.WrongAmount), "%v", err)

	claimed, err := n.ClaimStakingAtQuote(claimer, 1, ids, targets, payloads, nil)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, quotes[0].Cost, claimed[0].Cost)
	assert.Equal(t, int64(187500), claimed[0].Total.Int64())

	_, err = n.Relay()
	require.NoError(t, err)
	s := n.status(t, arbitrum)
	assert.Equal(t, int64(125000), s.Targets[0].Deposited.Int64())
	assert.Equal(t, int64(62500), s.Targets[1].Deposited.Int64())
}

func TestWithheldRoundTrip(t *testing.T) {
	const gnosis = xchain.ChainID(100)
	cfg := DefaultConfig()
	for i := range cfg.Chains {
		if cfg.Chains[i].ID == gnosis {
			cfg.Chains[i].Targets = cfg.Chains[i].Targets[:1]
		}
	}
	n := openNetwork(t, cfg, bridge.Options{})
	_, err := n.Checkpoint()
	require.NoError(t, err)

	n.claim(t, gnosis, target2)
	_, err = n.Relay()
	require.NoError(t, err)
	s := n.status(t, gnosis)
	assert.Equal(t, int64(62500), s.Withheld.Int64())
	assert.Equal(t, int64(62500), s.Balance.Int64())

	payload, err := n.Payload(gnosis, claimer)
	require.NoError(t, err)
	cost, err := n.QuoteSync(gnosis, payload)
	require.NoError(t, err)
	assert.Zero(t, cost.Sign())
	amount, err := n.Sync(gnosis, claimer, cost, payload)
	require.NoError(t, err)
	assert.Equal(t, int64(62500), amount.Int64())
	_, err = n.Relay()
	require.NoError(t, err)

	s = n.status(t, gnosis)
	assert.Zero(t, s.Withheld.Sign())
	assert.Equal(t, int64(62500), s.Credit.Int64())

	// the credit covers half of the next transfer
	quotes, err := n.QuoteStaking(1, []xchain.ChainID{gnosis}, [][]xchain.Bytes32{{target1.Bytes32()}}, [][]byte{payload})
	require.NoError(t, err)
	assert.Equal(t, int64(62500), quotes[0].TransferAmount.Int64())

	n.claim(t, gnosis, target1)
	_, err = n.Relay()
	require.NoError(t, err)
	s = n.status(t, gnosis)
	assert.Equal(t, int64(125000), s.Targets[0].Deposited.Int64())
	assert.Zero(t, s.Balance.Sign())
	assert.Zero(t, s.Credit.Sign())
}

func TestDuplicateDeliveries(t *testing.T) {
	n := openNetwork(t, DefaultConfig(), bridge.Options{DuplicateDeliveries: true})
	_, err := n.Checkpoint()
	require.NoError(t, err)
	for _, id := range n.Chains() {
		n.claim(t, id, target1)
	}
	report, err := n.Relay()
	require.NoError(t, err)
	assert.Positive(t, report.Duplicates)

	for _, id := range n.Chains() {
		s := n.status(t, id)
		assert.Equal(t, int64(125000), s.Targets[0].Deposited.Int64(), s.Name)
		assert.Equal(t, int64(1), s.Nonce.Int64(), s.Name)
	}
}

func TestRetainAndOwnerIncentives(t *testing.T) {
	n := openNetwork(t, DefaultConfig(), bridge.Options{})
	_, err := n.Checkpoint()
	require.NoError(t, err)

	amount, err := n.Retain(claimer)
	require.NoError(t, err)
	assert.Equal(t, int64(62500), amount.Int64())
	refunded, err := n.Tokenomics().Refunded()
	require.NoError(t, err)
	assert.Equal(t, int64(62500), refunded.Int64())
	_, err = n.Retain(claimer)
	assert.True(t, errors.Is(err, dispenser.ZeroValue), "%v", err)

	unitOwner := xchain.Address{0x0b}
	require.NoError(t, n.Accrue(unitOwner, dispenser.Agent, big.NewInt(7), big.NewInt(100), big.NewInt(50)))
	reward, topUp, err := n.ClaimOwnerIncentives(unitOwner, []dispenser.UnitKind{dispenser.Agent}, []*big.Int{big.NewInt(7)})
	require.NoError(t, err)
	assert.Equal(t, int64(100), reward.Int64())
	assert.Equal(t, int64(50), topUp.Int64())
	balance, err := n.Balance(xchain.BaseChainID, unitOwner)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance.Int64())
}

func TestReopen(t *testing.T) {
	const polygon = xchain.ChainID(137)
	dir := t.TempDir()

	n, err := Open(DefaultConfig(), dir, bridge.Options{})
	require.NoError(t, err)
	_, err = n.Checkpoint()
	require.NoError(t, err)
	n.claim(t, polygon, target1)
	_, err = n.Relay()
	require.NoError(t, err)
	require.NoError(t, n.Close())

	n, err = Open(DefaultConfig(), dir, bridge.Options{})
	require.NoError(t, err)
	defer n.Close()

	epoch, err := n.Tokenomics().EpochCounter()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), epoch)
	s := n.status(t, polygon)
	assert.Equal(t, int64(125000), s.Targets[0].Deposited.Int64())
	assert.Equal(t, int64(1), s.Nonce.Int64())

	err = n.ClaimStaking(claimer, new(big.Int), 1, polygon, target1.Bytes32(), nil)
	assert.True(t, errors.Is(err, dispenser.Overflow), "%v", err)
}

func TestUnknownChain(t *testing.T) {
	n := openNetwork(t, DefaultConfig(), bridge.Options{})
	_, err := n.Status(5)
	assert.True(t, errors.Is(err, ErrUnknownChain))
	_, err = n.Sync(5, claimer, nil, nil)
	assert.True(t, errors.Is(err, ErrUnknownChain))
}
