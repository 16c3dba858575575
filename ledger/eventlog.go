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
	"github.com/stellar/go/xdr"

	"perun.network/perun-adjudicator/event"
)

// appendEvents writes the events of tx to the event log in their contract
// event form, as part of tx itself.
func appendEvents(tx *Tx) error {
	if len(tx.events) == 0 {
		return nil
	}
	seq, err := EventCount(tx)
	if err != nil {
		return err
	}
	for _, ev := range tx.events {
		ce, err := event.EncodeEvent(ev)
		if err != nil {
			return errors.WithMessagef(err, "encoding %v event", ev.GetType())
		}
		data, err := ce.MarshalBinary()
		if err != nil {
			return errors.Wrap(err, "marshalling contract event")
		}
		if err := tx.Put(EventKey(seq), data); err != nil {
			return err
		}
		seq++
	}
	return PutUint256(tx, keyEventCount, uint256.NewInt(seq))
}

// EventCount returns the number of events committed so far. It is the
// sequence number the next committed event gets.
func EventCount(r Reader) (uint64, error) {
	n, err := GetUint256(r, keyEventCount)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// ReadEvents returns the committed contract events from sequence number
// from on, in commit order.
func ReadEvents(r Reader, from uint64) ([]xdr.ContractEvent, error) {
	n, err := EventCount(r)
	if err != nil {
		return nil, err
	}
	if from >= n {
		return nil, nil
	}
	ces := make([]xdr.ContractEvent, 0, n-from)
	for seq := from; seq < n; seq++ {
		data, err := r.Get(EventKey(seq))
		if err != nil {
			return nil, errors.WithMessagef(err, "reading event %d", seq)
		}
		var ce xdr.ContractEvent
		if err := xdr.SafeUnmarshal(data, &ce); err != nil {
			return nil, errors.Wrapf(err, "decoding event %d", seq)
		}
		ces = append(ces, ce)
	}
	return ces, nil
}

// EventCount returns the number of committed events.
func (l *Ledger) EventCount() (n uint64, err error) {
	err = l.View(func(r Reader) error {
		n, err = EventCount(r)
		return err
	})
	return n, err
}

// Events returns the committed contract events from sequence number from
// on. Observers that cannot subscribe to the bus, such as a later process
// on the same data directory, read the ledger's events this way.
func (l *Ledger) Events(from uint64) (ces []xdr.ContractEvent, err error) {
	err = l.View(func(r Reader) error {
		ces, err = ReadEvents(r, from)
		return err
	})
	return ces, err
}
