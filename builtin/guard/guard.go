// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package guard implements the reentrancy lock of a native contract. The lock lives in the
// contract's storage, so it follows checkpoints and reverts like any other state variable.
package guard

import (
	"github.com/pkg/errors"

	"github.com/vechain/dispenser/builtin/solidity"
)

var lockedSlot = solidity.Slot("reentrancy-locked")

// ErrReentrant is returned when the guard is already held.
var ErrReentrant = errors.New("reentrant call")

type Guard struct {
	locked *solidity.Bool
}

func New(ctx *solidity.Context) *Guard {
	return &Guard{locked: solidity.NewBool(ctx, lockedSlot)}
}

// Enter acquires the guard. The returned release func must be called on every exit path,
// typically deferred right after a successful Enter.
func (g *Guard) Enter() (release func(), err error) {
	locked, err := g.locked.Get()
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, ErrReentrant
	}
	g.locked.Set(true)
	return func() { g.locked.Set(false) }, nil
}

// Held reports whether a guarded call is in progress.
func (g *Guard) Held() (bool, error) {
	return g.locked.Get()
}
