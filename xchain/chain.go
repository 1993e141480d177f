// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xchain

import (
	"encoding/binary"
	"strconv"
)

// ChainID is the EVM chain id a component lives on or routes to.
type ChainID uint64

// BaseChainID is the chain hosting the dispenser and the deposit processors.
const BaseChainID ChainID = 1

// Bytes returns the id as a 32 bytes big-endian word.
func (c ChainID) Bytes() []byte {
	var b Bytes32
	binary.BigEndian.PutUint64(b[24:], uint64(c))
	return b[:]
}

func (c ChainID) String() string {
	return strconv.FormatUint(uint64(c), 10)
}
