// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package abi encodes the tuples carried across bridges: the per family bridge payloads
// and the protocol messages exchanged between deposit processors and target dispensers.
package abi

import (
	"fmt"
	"math/big"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/vechain/dispenser/xchain"
)

var (
	// ErrShortData is returned when the data is shorter than the static part of the layout.
	ErrShortData = errors.New("abi: data too short")
	// ErrMalformed is returned when the data cannot be decoded with the layout.
	ErrMalformed = errors.New("abi: malformed data")
)

// Layout is a tuple of ABI values.
type Layout struct {
	name string
	args ethabi.Arguments
}

func newLayout(name string, types ...string) *Layout {
	args := make(ethabi.Arguments, 0, len(types))
	for _, t := range types {
		typ, err := ethabi.NewType(t, "", nil)
		if err != nil {
			panic(fmt.Sprintf("abi: layout %s: %v", name, err))
		}
		args = append(args, ethabi.Argument{Type: typ})
	}
	return &Layout{name: name, args: args}
}

// Name returns the layout name.
func (l *Layout) Name() string {
	return l.name
}

// Size returns the length of the static head of an encoded tuple.
func (l *Layout) Size() int {
	return 32 * len(l.args)
}

// Encode packs values, which must match the layout types.
func (l *Layout) Encode(values ...any) ([]byte, error) {
	data, err := l.args.Pack(values...)
	if err != nil {
		return nil, errors.Wrapf(err, "abi: encode %s", l.name)
	}
	return data, nil
}

// Decode unpacks data. Trailing bytes after the tuple are ignored.
func (l *Layout) Decode(data []byte) ([]any, error) {
	if len(data) < l.Size() {
		return nil, errors.WithMessagef(ErrShortData, "%s: want %d bytes, got %d", l.name, l.Size(), len(data))
	}
	values, err := l.args.Unpack(data)
	if err != nil {
		return nil, errors.WithMessagef(ErrMalformed, "%s: %v", l.name, err)
	}
	return values, nil
}

func toAddresses(addrs []xchain.Address) []common.Address {
	out := make([]common.Address, len(addrs))
	for i, a := range addrs {
		out[i] = common.Address(a)
	}
	return out
}

func fromAddresses(addrs []common.Address) []xchain.Address {
	out := make([]xchain.Address, len(addrs))
	for i, a := range addrs {
		out[i] = xchain.Address(a)
	}
	return out
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
