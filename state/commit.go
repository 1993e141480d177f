// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/vechain/dispenser/kv"
	"github.com/vechain/dispenser/xchain"
)

// Commit flattens all journaled changes into bulk and writes it.
// The state keeps reading from its source afterwards, so bulk is expected to target that source.
func (s *State) Commit(bulk kv.Bulk) error {
	var (
		changes = make(map[string][]byte)
		order   []string
		jerr    error
	)

	s.sm.Journal(func(k, v any) bool {
		var (
			key []byte
			raw []byte
		)
		switch typed := k.(type) {
		case xchain.Address:
			key = accountKey(typed)
			if raw, jerr = saveAccount(v.(*Account)); jerr != nil {
				return false
			}
		case storageKey:
			key = typed.kvKey()
			raw = v.(rlp.RawValue)
		}
		if _, ok := changes[string(key)]; !ok {
			order = append(order, string(key))
		}
		changes[string(key)] = raw
		return true
	})
	if jerr != nil {
		return &Error{jerr}
	}

	for _, key := range order {
		raw := changes[key]
		var err error
		if len(raw) == 0 {
			err = bulk.Delete([]byte(key))
		} else {
			err = bulk.Put([]byte(key), snappy.Encode(nil, raw))
		}
		if err != nil {
			return errors.Wrap(err, "stage state change")
		}
	}
	if err := bulk.Write(); err != nil {
		return errors.Wrap(err, "commit state")
	}

	s.cache.Purge()
	s.reset()
	return nil
}
