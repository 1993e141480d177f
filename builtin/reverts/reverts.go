// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reverts holds the revert errors raised by native contracts. A revert aborts the
// entry point and discards every state change it made.
package reverts

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vechain/dispenser/xchain"
)

// revert is implemented by every error of this package.
type revert interface {
	error
	Bytes() []byte
}

// ErrRequire is a plain require(cond, "message") failure.
type ErrRequire struct {
	message string
}

func NewRequireError(message string) *ErrRequire {
	return &ErrRequire{
		message: message,
	}
}

func (e *ErrRequire) Error() string {
	return e.message
}

// Bytes returns the message ABI encoded as Error(string).
func (e *ErrRequire) Bytes() []byte {
	if e == nil {
		return nil
	}
	msgBytes := []byte(e.message)
	padded := ((len(msgBytes) + 31) / 32) * 32

	encoded := make([]byte, 0, 4+32+32+padded)
	encoded = append(encoded, selector("Error(string)")...)

	word := make([]byte, 32)
	binary.BigEndian.PutUint64(word[24:], 32)
	encoded = append(encoded, word...)

	word = make([]byte, 32)
	binary.BigEndian.PutUint64(word[24:], uint64(len(msgBytes)))
	encoded = append(encoded, word...)

	data := make([]byte, padded)
	copy(data, msgBytes)
	return append(encoded, data...)
}

// Code is the closed set of custom errors one contract can raise.
type Code interface {
	comparable
	error
	String() string
}

// Error is a custom solidity error, such as Paused(), raised by a component.
// errors.Is(err, code) reports whether err carries that code.
type Error[C Code] struct {
	Code      C
	component string
	detail    string
}

// Errorf builds the revert for code, with an optional detail message for logs.
func Errorf[C Code](component string, code C, format string, args ...any) *Error[C] {
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	}
	return &Error[C]{Code: code, component: component, detail: detail}
}

func (e *Error[C]) Error() string {
	if e.detail == "" {
		return fmt.Sprintf("%s: %s", e.component, e.Code.String())
	}
	return fmt.Sprintf("%s: %s: %s", e.component, e.Code.String(), e.detail)
}

func (e *Error[C]) Is(target error) bool {
	c, ok := target.(C)
	return ok && c == e.Code
}

// Bytes returns the 4 bytes selector of the custom error, e.g. keccak256("Paused()")[:4].
func (e *Error[C]) Bytes() []byte {
	return selector(e.Code.String() + "()")
}

// IsRevertErr reports whether err is, or wraps, a revert.
func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var r revert
	return errors.As(e, &r)
}

// Data returns the ABI revert data of the revert carried by err.
func Data(err error) ([]byte, bool) {
	var r revert
	if !errors.As(err, &r) {
		return nil, false
	}
	return r.Bytes(), true
}

func selector(signature string) []byte {
	return xchain.Keccak256([]byte(signature)).Bytes()[:4]
}
