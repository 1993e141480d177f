// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package targetdispenser

import (
	"github.com/vechain/dispenser/builtin/reverts"
)

// Code is a revert condition of a target dispenser.
type Code uint8

const (
	OwnerOnly Code = iota + 1
	TargetRelayerOnly
	WrongMessageSender
	ZeroAddress
	ZeroValue
	IncorrectDataLength
	WrongArrayLength
	WrongChainId
	WrongAccount
	AlreadyDelivered
	TargetAmountNotQueued
	InsufficientBalance
	LowerThan
	Overflow
	Paused
	Unpaused
	ReentrancyGuard
	TransferFailed
)

var codeNames = [...]string{
	OwnerOnly:             "OwnerOnly",
	TargetRelayerOnly:     "TargetRelayerOnly",
	WrongMessageSender:    "WrongMessageSender",
	ZeroAddress:           "ZeroAddress",
	ZeroValue:             "ZeroValue",
	IncorrectDataLength:   "IncorrectDataLength",
	WrongArrayLength:      "WrongArrayLength",
	WrongChainId:          "WrongChainId",
	WrongAccount:          "WrongAccount",
	AlreadyDelivered:      "AlreadyDelivered",
	TargetAmountNotQueued: "TargetAmountNotQueued",
	InsufficientBalance:   "InsufficientBalance",
	LowerThan:             "LowerThan",
	Overflow:              "Overflow",
	Paused:                "Paused",
	Unpaused:              "Unpaused",
	ReentrancyGuard:       "ReentrancyGuard",
	TransferFailed:        "TransferFailed",
}

func (c Code) String() string {
	if int(c) < len(codeNames) && codeNames[c] != "" {
		return codeNames[c]
	}
	return "Unknown"
}

func (c Code) Error() string {
	return "targetdispenser: " + c.String()
}

type Error = reverts.Error[Code]

func fail(code Code, format string, args ...any) error {
	return reverts.Errorf("targetdispenser", code, format, args...)
}
