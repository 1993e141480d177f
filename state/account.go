// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// Account is the chain-level record of an address: its native balance and, for contracts, a code marker.
type Account struct {
	Balance *big.Int
	Code    []byte
}

// IsEmpty returns if an account is empty.
// An empty account has zero balance and no code.
func (a *Account) IsEmpty() bool {
	return a.Balance.Sign() == 0 && len(a.Code) == 0
}

func emptyAccount() *Account {
	return &Account{Balance: &big.Int{}}
}

func loadAccount(raw []byte) (*Account, error) {
	if len(raw) == 0 {
		return emptyAccount(), nil
	}
	var a Account
	if err := rlp.DecodeBytes(raw, &a); err != nil {
		return nil, err
	}
	if a.Balance == nil {
		a.Balance = &big.Int{}
	}
	return &a, nil
}

func saveAccount(a *Account) ([]byte, error) {
	if a.IsEmpty() {
		return nil, nil
	}
	return rlp.EncodeToBytes(a)
}
