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

// Package ledger simulates the environment the adjudicator and the asset
// holders run in. Calls are serialized transactions over a goleveldb state
// that commit completely or not at all.
package ledger

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"perun.network/go-perun/log"
	pkgsync "polycry.pt/poly-go/sync"

	"perun.network/perun-adjudicator/event"
)

// ErrNotFound is returned when reading a key that was never written.
var ErrNotFound = errors.New("ledger: key not found")

// Ledger executes transactions one at a time against a goleveldb database.
// Every transaction observes the full effect of all previously committed
// ones and either commits completely or leaves the state untouched.
type Ledger struct {
	log.Embedding

	mu    pkgsync.Mutex
	db    *leveldb.DB
	clock Clock
	bus   *event.Bus
	last  uint64
}

// New wraps an open database.
func New(db *leveldb.DB, clock Clock) *Ledger {
	return &Ledger{
		Embedding: log.MakeEmbedding(log.Default()),
		db:        db,
		clock:     clock,
		bus:       event.NewBus(),
	}
}

// NewMemory creates a ledger backed by an in-memory database.
func NewMemory(clock Clock) (*Ledger, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "opening in-memory database")
	}
	return New(db, clock), nil
}

// Open creates the ledger described by cfg.
func Open(cfg Config) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.InMemory {
		return NewMemory(cfg.NewClock())
	}
	db, err := leveldb.OpenFile(cfg.DataDir, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "opening database at %s", cfg.DataDir)
	}
	return New(db, cfg.NewClock()), nil
}

// Clock returns the ledger's timestamp oracle.
func (l *Ledger) Clock() Clock {
	return l.clock
}

// Bus returns the bus committed events are published on.
func (l *Ledger) Bus() *event.Bus {
	return l.bus
}

// Now returns the current ledger time. It never decreases, even if the
// underlying clock does.
func (l *Ledger) Now() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now()
}

func (l *Ledger) now() uint64 {
	if t := l.clock.Now(); t > l.last {
		l.last = t
	}
	return l.last
}

// Exec runs fn inside a transaction. If fn returns an error, every write
// of the transaction is discarded and no event is published. Otherwise the
// writes are committed together with the emitted events in the event log,
// and the events are published in order.
func (l *Ledger) Exec(fn func(*Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ltx, err := l.db.OpenTransaction()
	if err != nil {
		return errors.Wrap(err, "opening transaction")
	}
	committed := false
	defer func() {
		if !committed {
			ltx.Discard()
		}
	}()

	tx := &Tx{ltx: ltx, now: l.now()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := appendEvents(tx); err != nil {
		return err
	}
	if err := ltx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	committed = true

	l.Log().WithField("events", len(tx.events)).Debugf("Committed transaction at %d", tx.now)
	l.bus.Publish(tx.events...)
	return nil
}

// View runs fn against a consistent snapshot of the committed state.
func (l *Ledger) View(fn func(Reader) error) error {
	l.mu.Lock()
	snap, err := l.db.GetSnapshot()
	now := l.now()
	l.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "taking snapshot")
	}
	defer snap.Release()
	return fn(&snapshotReader{snap: snap, now: now})
}

// Close closes the event bus and the database.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.bus.Close(); err != nil {
		return err
	}
	return l.db.Close()
}

type snapshotReader struct {
	snap *leveldb.Snapshot
	now  uint64
}

func (r *snapshotReader) Get(key []byte) ([]byte, error) {
	v, err := r.snap.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (r *snapshotReader) Has(key []byte) (bool, error) {
	return r.snap.Has(key, nil)
}

func (r *snapshotReader) Now() uint64 {
	return r.now
}
