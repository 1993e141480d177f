// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package abi

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/dispenser/xchain"
)

func TestBatch(t *testing.T) {
	b := &Batch{
		Targets: []xchain.Address{{1}, {2}},
		Amounts: []*big.Int{big.NewInt(100), big.NewInt(50)},
	}
	data, err := EncodeBatch(b)
	require.NoError(t, err)
	// offsets, then the two arrays
	assert.Len(t, data, 32*2+32*3+32*3)

	got, err := DecodeBatch(data)
	require.NoError(t, err)
	assert.Equal(t, b.Targets, got.Targets)
	assert.Equal(t, big.NewInt(150), got.Total())

	_, err = EncodeBatch(&Batch{Targets: []xchain.Address{{1}}})
	assert.ErrorIs(t, err, ErrArrayLength)
}

func TestDecodeBatchErrors(t *testing.T) {
	_, err := DecodeBatch(make([]byte, 10))
	assert.ErrorIs(t, err, ErrShortData)

	// offsets pointing past the end
	bad := make([]byte, 64)
	bad[31] = 0xff
	_, err = DecodeBatch(bad)
	assert.ErrorIs(t, err, ErrMalformed)

	// two targets, one amount
	mismatch, err := batchLayout.Encode(toAddresses([]xchain.Address{{1}, {2}}), []*big.Int{big.NewInt(1)})
	require.NoError(t, err)
	_, err = DecodeBatch(mismatch)
	assert.ErrorIs(t, err, ErrArrayLength)

	empty, err := batchLayout.Encode(toAddresses(nil), []*big.Int{})
	require.NoError(t, err)
	_, err = DecodeBatch(empty)
	assert.ErrorIs(t, err, ErrArrayLength)
}

func TestWithheld(t *testing.T) {
	data, err := EncodeWithheld(&Withheld{ChainID: 42161, Amount: big.NewInt(50)})
	require.NoError(t, err)
	assert.Equal(t,
		"0x000000000000000000000000000000000000000000000000000000000000a4b1"+
			"0000000000000000000000000000000000000000000000000000000000000032",
		hexutil.Encode(data))

	w, err := DecodeWithheld(data)
	require.NoError(t, err)
	assert.Equal(t, xchain.ChainID(42161), w.ChainID)
	assert.Equal(t, big.NewInt(50), w.Amount)

	_, err = DecodeWithheld(data[:40])
	assert.ErrorIs(t, err, ErrShortData)
}

func TestPayloads(t *testing.T) {
	arb := &ArbitrumPayload{
		Refund:                   xchain.Address{9},
		GasPriceBid:              big.NewInt(2),
		MaxSubmissionCostToken:   big.NewInt(3),
		GasLimitMessage:          big.NewInt(400_000),
		MaxSubmissionCostMessage: big.NewInt(5),
	}
	data, err := EncodeArbitrum(arb)
	require.NoError(t, err)
	assert.Len(t, data, arbitrumLayout.Size())
	gotArb, err := DecodeArbitrum(data)
	require.NoError(t, err)
	assert.Equal(t, arb, gotArb)

	_, err = DecodeArbitrum(data[:4*32])
	assert.ErrorIs(t, err, ErrShortData)

	data, err = EncodeOptimism(&OptimismPayload{Cost: big.NewInt(7)})
	require.NoError(t, err)
	op, err := DecodeOptimism(data)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7), op.Cost)
	assert.Equal(t, 0, op.GasLimitMessage.Sign())

	data, err = EncodeGnosis(&GnosisPayload{GasLimitMessage: big.NewInt(1)})
	require.NoError(t, err)
	gn, err := DecodeGnosis(append(data, 0xde, 0xad))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1), gn.GasLimitMessage)

	data, err = EncodeWormhole(&WormholePayload{Refund: xchain.Address{7}, GasLimitMessage: big.NewInt(500_000)})
	require.NoError(t, err)
	wh, err := DecodeWormhole(data)
	require.NoError(t, err)
	assert.Equal(t, xchain.Address{7}, wh.Refund)

	_, err = DecodeWormhole(nil)
	assert.ErrorIs(t, err, ErrShortData)
}

func TestClampGasLimit(t *testing.T) {
	tests := []struct {
		in   *big.Int
		want uint64
	}{
		{big.NewInt(1), 300_000},
		{big.NewInt(500_000), 500_000},
		{big.NewInt(3_000_000), 2_000_000},
		{new(big.Int).Lsh(big.NewInt(1), 70), 2_000_000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampGasLimit(tt.in, 300_000, 2_000_000), tt.in.String())
	}
}
