// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru"

	"github.com/vechain/dispenser/kv"
	"github.com/vechain/dispenser/stackedmap"
	"github.com/vechain/dispenser/xchain"
)

const readCacheSize = 4096

var (
	accountPrefix = []byte("a")
	storagePrefix = []byte("s")
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// State manages the state of one chain: native balances, contract markers and contract storage.
// All writes are journaled so that any call can be reverted to a checkpoint.
type State struct {
	src   kv.Getter
	cache *lru.Cache
	sm    *stackedmap.StackedMap
}

// New create state object on top of committed values in src.
// A nil src yields an empty state.
func New(src kv.Getter) *State {
	cache, _ := lru.New(readCacheSize)
	s := &State{src: src, cache: cache}
	s.reset()
	return s
}

func (s *State) reset() {
	s.sm = stackedmap.New(s.load)
	s.sm.Push()
}

// load implements stackedmap.MapGetter.
func (s *State) load(key any) (any, bool, error) {
	switch k := key.(type) {
	case xchain.Address:
		raw, err := s.read(accountKey(k))
		if err != nil {
			return nil, false, err
		}
		acc, err := loadAccount(raw)
		if err != nil {
			return nil, false, err
		}
		return acc, true, nil
	case storageKey:
		raw, err := s.read(k.kvKey())
		if err != nil {
			return nil, false, err
		}
		return rlp.RawValue(raw), true, nil
	}
	panic(fmt.Errorf("unexpected key type %+v", key))
}

func (s *State) read(key []byte) ([]byte, error) {
	if s.src == nil {
		return nil, nil
	}
	if v, ok := s.cache.Get(string(key)); ok {
		return v.([]byte), nil
	}
	enc, err := s.src.Get(key)
	if err != nil {
		if s.src.IsNotFound(err) {
			s.cache.Add(string(key), []byte(nil))
			return nil, nil
		}
		return nil, err
	}
	raw, err := snappy.Decode(nil, enc)
	if err != nil {
		return nil, err
	}
	s.cache.Add(string(key), raw)
	return raw, nil
}

// getAccount gets account by address. the returned account should not be modified.
func (s *State) getAccount(addr xchain.Address) (*Account, error) {
	v, _, err := s.sm.Get(addr)
	if err != nil {
		return nil, err
	}
	return v.(*Account), nil
}

// getAccountCopy get a copy of account by address.
func (s *State) getAccountCopy(addr xchain.Address) (Account, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return Account{}, err
	}
	return *acc, nil
}

// GetBalance returns native balance for the given address.
func (s *State) GetBalance(addr xchain.Address) (*big.Int, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return nil, &Error{err}
	}
	return new(big.Int).Set(acc.Balance), nil
}

// SetBalance set native balance for the given address.
func (s *State) SetBalance(addr xchain.Address, balance *big.Int) error {
	cpy, err := s.getAccountCopy(addr)
	if err != nil {
		return &Error{err}
	}
	cpy.Balance = new(big.Int).Set(balance)
	s.sm.Put(addr, &cpy)
	return nil
}

// AddBalance credits native balance.
func (s *State) AddBalance(addr xchain.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	bal, err := s.GetBalance(addr)
	if err != nil {
		return err
	}
	return s.SetBalance(addr, bal.Add(bal, amount))
}

// SubBalance debits native balance. It returns false without touching the state if the balance is not enough.
func (s *State) SubBalance(addr xchain.Address, amount *big.Int) (bool, error) {
	bal, err := s.GetBalance(addr)
	if err != nil {
		return false, err
	}
	if bal.Cmp(amount) < 0 {
		return false, nil
	}
	if amount.Sign() == 0 {
		return true, nil
	}
	return true, s.SetBalance(addr, bal.Sub(bal, amount))
}

// Transfer moves native balance between two addresses.
func (s *State) Transfer(from, to xchain.Address, amount *big.Int) (bool, error) {
	ok, err := s.SubBalance(from, amount)
	if err != nil || !ok {
		return ok, err
	}
	return true, s.AddBalance(to, amount)
}

// SetCode marks the address as a contract.
func (s *State) SetCode(addr xchain.Address, code []byte) error {
	cpy, err := s.getAccountCopy(addr)
	if err != nil {
		return &Error{err}
	}
	cpy.Code = append([]byte(nil), code...)
	s.sm.Put(addr, &cpy)
	return nil
}

// IsContract returns whether code is deployed at the address.
func (s *State) IsContract(addr xchain.Address) (bool, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return false, &Error{err}
	}
	return len(acc.Code) > 0, nil
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr xchain.Address, key xchain.Bytes32) (xchain.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return xchain.Bytes32{}, err
	}
	if len(raw) == 0 {
		return xchain.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return xchain.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// special case for rlp list, it should be customized storage value
		// return hash of raw data
		return xchain.Blake2b(raw), nil
	}
	return xchain.BytesToBytes32(content), nil
}

// SetStorage set storage value for the given address and key.
func (s *State) SetStorage(addr xchain.Address, key, value xchain.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	s.SetRawStorage(addr, key, v)
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr xchain.Address, key xchain.Bytes32) (rlp.RawValue, error) {
	data, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return data.(rlp.RawValue), nil
}

// SetRawStorage set storage value in rlp raw.
func (s *State) SetRawStorage(addr xchain.Address, key xchain.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// EncodeStorage set storage value encoded by given enc method.
// Error returned by end will be absorbed by State instance.
func (s *State) EncodeStorage(addr xchain.Address, key xchain.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// Error returned by dec will be absorbed by State instance.
func (s *State) DecodeStorage(addr xchain.Address, key xchain.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
	if s.sm.Depth() == 0 {
		s.sm.Push()
	}
}

// Atomic runs fn inside a checkpoint. Every change made by fn is reverted if it returns an error.
func (s *State) Atomic(fn func() error) error {
	rev := s.NewCheckpoint()
	if err := fn(); err != nil {
		s.RevertTo(rev)
		return err
	}
	return nil
}

type (
	storageKey struct {
		addr xchain.Address
		key  xchain.Bytes32
	}
)

func accountKey(addr xchain.Address) []byte {
	return append(append([]byte(nil), accountPrefix...), addr[:]...)
}

func (k storageKey) kvKey() []byte {
	key := make([]byte, 0, len(storagePrefix)+xchain.AddressLength+32)
	key = append(key, storagePrefix...)
	key = append(key, k.addr[:]...)
	return append(key, k.key[:]...)
}
