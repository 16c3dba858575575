// Copyright 2025 PolyCrypt GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"

	"perun.network/perun-adjudicator/event"
)

// Reader gives read access to the ledger state at a fixed point in time.
type Reader interface {
	// Get returns ErrNotFound for unknown keys.
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	// Now is the ledger time the read happens at.
	Now() uint64
}

// Writer is a Reader that can also modify the state and emit events.
type Writer interface {
	Reader
	Put(key, value []byte) error
	Emit(evs ...event.PerunEvent)
}

// Tx is a single ledger transaction. It reads its own writes.
type Tx struct {
	ltx    *leveldb.Transaction
	now    uint64
	events []event.PerunEvent
}

var _ Writer = (*Tx)(nil)

// Now returns the block timestamp of the transaction.
func (tx *Tx) Now() uint64 {
	return tx.now
}

func (tx *Tx) Get(key []byte) ([]byte, error) {
	v, err := tx.ltx.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (tx *Tx) Has(key []byte) (bool, error) {
	return tx.ltx.Has(key, nil)
}

func (tx *Tx) Put(key, value []byte) error {
	return tx.ltx.Put(key, value, nil)
}

// Emit buffers events until the transaction commits.
func (tx *Tx) Emit(evs ...event.PerunEvent) {
	tx.events = append(tx.events, evs...)
}

// Events returns the events emitted so far.
func (tx *Tx) Events() []event.PerunEvent {
	return tx.events
}

// GetUint256 reads an amount. Unknown keys hold zero.
func GetUint256(r Reader, key []byte) (*uint256.Int, error) {
	v, err := r.Get(key)
	if errors.Is(err, ErrNotFound) {
		return new(uint256.Int), nil
	} else if err != nil {
		return nil, err
	}
	if len(v) != 32 { //nolint:gomnd
		return nil, errors.Errorf("corrupt amount of length %d at %s", len(v), key)
	}
	return new(uint256.Int).SetBytes(v), nil
}

// PutUint256 writes an amount.
func PutUint256(w Writer, key []byte, amount *uint256.Int) error {
	b := amount.Bytes32()
	return w.Put(key, b[:])
}

// GetFlag reads a boolean flag. Unknown keys are unset.
func GetFlag(r Reader, key []byte) (bool, error) {
	v, err := r.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return len(v) == 1 && v[0] == 1, nil
}

// SetFlag sets a boolean flag.
func SetFlag(w Writer, key []byte) error {
	return w.Put(key, []byte{1})
}
