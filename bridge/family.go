// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bridge

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"

	"github.com/vechain/dispenser/xchain"
)

// Family is a bridge protocol. Each family authenticates messages its own way.
type Family uint8

const (
	Arbitrum Family = iota + 1
	Optimism
	Gnosis
	Polygon
	Wormhole
)

var familyNames = map[Family]string{
	Arbitrum: "arbitrum",
	Optimism: "optimism",
	Gnosis:   "gnosis",
	Polygon:  "polygon",
	Wormhole: "wormhole",
}

// Families lists every supported family.
var Families = []Family{Arbitrum, Optimism, Gnosis, Polygon, Wormhole}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFamily parses a family name, case insensitive.
func ParseFamily(s string) (Family, error) {
	for f, name := range familyNames {
		if strings.EqualFold(s, name) {
			return f, nil
		}
	}
	return 0, errors.Errorf("bridge: unknown family %q", s)
}

func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Family) UnmarshalText(text []byte) error {
	parsed, err := ParseFamily(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ExactlyOnce reports whether the family guarantees a message is executed at most once.
// Receivers on other families must keep their own record of delivered messages.
func (f Family) ExactlyOnce() bool {
	return f != Wormhole
}

var aliasOffset = new(big.Int).SetBytes(xchain.MustParseAddress("0x1111000000000000000000000000000000001111").Bytes())

var addressSpace = new(big.Int).Lsh(big.NewInt(1), 160)

// ApplyL1ToL2Alias returns the address an L1 contract appears as on Arbitrum.
func ApplyL1ToL2Alias(addr xchain.Address) xchain.Address {
	v := new(big.Int).SetBytes(addr.Bytes())
	v.Add(v, aliasOffset).Mod(v, addressSpace)
	return xchain.BytesToAddress(v.Bytes())
}

// UndoL1ToL2Alias reverses ApplyL1ToL2Alias.
func UndoL1ToL2Alias(addr xchain.Address) xchain.Address {
	v := new(big.Int).SetBytes(addr.Bytes())
	v.Sub(v, aliasOffset).Mod(v, addressSpace)
	return xchain.BytesToAddress(v.Bytes())
}
