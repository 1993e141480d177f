// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dispenser

import (
	"github.com/vechain/dispenser/builtin/reverts"
)

// Code is a revert condition of the dispenser.
type Code uint8

const (
	OwnerOnly Code = iota + 1
	ManagerOnly
	DepositProcessorOnly
	ZeroAddress
	ZeroValue
	WrongArrayLength
	WrongUnitId
	WrongChainId
	WrongAccount
	WrongAmount
	Overflow
	Paused
	ReentrancyGuard
	ClaimIncentivesFailed
	TransferFailed
)

var codeNames = [...]string{
	OwnerOnly:             "OwnerOnly",
	ManagerOnly:           "ManagerOnly",
	DepositProcessorOnly:  "DepositProcessorOnly",
	ZeroAddress:           "ZeroAddress",
	ZeroValue:             "ZeroValue",
	WrongArrayLength:      "WrongArrayLength",
	WrongUnitId:           "WrongUnitId",
	WrongChainId:          "WrongChainId",
	WrongAccount:          "WrongAccount",
	WrongAmount:           "WrongAmount",
	Overflow:              "Overflow",
	Paused:                "Paused",
	ReentrancyGuard:       "ReentrancyGuard",
	ClaimIncentivesFailed: "ClaimIncentivesFailed",
	TransferFailed:        "TransferFailed",
}

func (c Code) String() string {
	if int(c) < len(codeNames) && codeNames[c] != "" {
		return codeNames[c]
	}
	return "Unknown"
}

func (c Code) Error() string {
	return "dispenser: " + c.String()
}

// Error is a dispenser revert. Match it with errors.Is(err, dispenser.Paused).
type Error = reverts.Error[Code]

func fail(code Code, format string, args ...any) error {
	return reverts.Errorf("dispenser", code, format, args...)
}
