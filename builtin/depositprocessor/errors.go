// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package depositprocessor

import (
	"github.com/vechain/dispenser/builtin/reverts"
)

// Code is a revert condition of a deposit processor.
type Code uint8

const (
	OwnerOnly Code = iota + 1
	ManagerOnly
	TargetRelayerOnly
	WrongMessageSender
	ZeroAddress
	ZeroValue
	IncorrectDataLength
	LowerThan
	Overflow
	WrongAccount
	WrongArrayLength
	WrongChainId
	AlreadyDelivered
	ReentrancyGuard
	TransferFailed
)

var codeNames = [...]string{
	OwnerOnly:           "OwnerOnly",
	ManagerOnly:         "ManagerOnly",
	TargetRelayerOnly:   "TargetRelayerOnly",
	WrongMessageSender:  "WrongMessageSender",
	ZeroAddress:         "ZeroAddress",
	ZeroValue:           "ZeroValue",
	IncorrectDataLength: "IncorrectDataLength",
	LowerThan:           "LowerThan",
	Overflow:            "Overflow",
	WrongAccount:        "WrongAccount",
	WrongArrayLength:    "WrongArrayLength",
	WrongChainId:        "WrongChainId",
	AlreadyDelivered:    "AlreadyDelivered",
	ReentrancyGuard:     "ReentrancyGuard",
	TransferFailed:      "TransferFailed",
}

func (c Code) String() string {
	if int(c) < len(codeNames) && codeNames[c] != "" {
		return codeNames[c]
	}
	return "Unknown"
}

func (c Code) Error() string {
	return "depositprocessor: " + c.String()
}

type Error = reverts.Error[Code]

func fail(code Code, format string, args ...any) error {
	return reverts.Errorf("depositprocessor", code, format, args...)
}
