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

package wire

import (
	"bytes"
	"fmt"

	"github.com/stellar/go/xdr"
	pchannel "perun.network/go-perun/channel"

	"perun.network/perun-adjudicator/wire/scval"
)

const (
	SymbolStateAppData   xdr.ScSymbol = "app_data"
	SymbolStateChannelID xdr.ScSymbol = "channel_id"
	SymbolStateIsFinal   xdr.ScSymbol = "is_final"
	SymbolStateOutcome   xdr.ScSymbol = "outcome"
	SymbolStateVersion   xdr.ScSymbol = "version"
)

// State is a signed snapshot of a channel. It is only meaningful together
// with the Params whose id it references.
type State struct {
	ChannelID pchannel.ID
	Version   uint64
	Outcome   Allocation
	AppData   []byte
	IsFinal   bool
}

// Valid checks the state against the parameters it claims to belong to.
func (s State) Valid(params Params) error {
	id, err := params.ID()
	if err != nil {
		return err
	}
	if id != s.ChannelID {
		return fmt.Errorf("state references channel %x, params derive %x", s.ChannelID, id)
	}
	return s.Outcome.Valid(params.NumParts())
}

// Hash returns the digest committed to in dispute records.
func (s State) Hash() ([HashLength]byte, error) {
	return Hash(s)
}

// Equal reports whether both states have the same canonical encoding.
func (s State) Equal(other State) bool {
	a, errA := Encode(s)
	b, errB := Encode(other)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	clone := s
	clone.Outcome = s.Outcome.Clone()
	clone.AppData = append([]byte(nil), s.AppData...)
	return clone
}

func (s State) ToScVal() (xdr.ScVal, error) {
	appData, err := scval.WrapScBytes(s.AppData)
	if err != nil {
		return xdr.ScVal{}, err
	}
	channelID, err := scval.WrapScBytes(s.ChannelID[:])
	if err != nil {
		return xdr.ScVal{}, err
	}
	isFinal, err := scval.WrapBool(s.IsFinal)
	if err != nil {
		return xdr.ScVal{}, err
	}
	outcome, err := s.Outcome.ToScVal()
	if err != nil {
		return xdr.ScVal{}, err
	}
	version, err := scval.WrapUint64(xdr.Uint64(s.Version))
	if err != nil {
		return xdr.ScVal{}, err
	}
	m, err := MakeSymbolScMap(
		[]xdr.ScSymbol{
			SymbolStateAppData,
			SymbolStateChannelID,
			SymbolStateIsFinal,
			SymbolStateOutcome,
			SymbolStateVersion,
		},
		[]xdr.ScVal{appData, channelID, isFinal, outcome, version},
	)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapScMap(m)
}

func (s *State) FromScVal(v xdr.ScVal) error {
	m, err := symbolMap(v, 5, "state") //nolint:gomnd
	if err != nil {
		return err
	}
	appData, err := getBytes(m, SymbolStateAppData)
	if err != nil {
		return err
	}
	channelID, err := getID(m, SymbolStateChannelID)
	if err != nil {
		return err
	}
	isFinal, err := getBool(m, SymbolStateIsFinal)
	if err != nil {
		return err
	}
	outcomeVal, err := GetScMapValueFromSymbol(SymbolStateOutcome, m)
	if err != nil {
		return err
	}
	var outcome Allocation
	if err := outcome.FromScVal(outcomeVal); err != nil {
		return err
	}
	version, err := getU64(m, SymbolStateVersion)
	if err != nil {
		return err
	}
	s.AppData = appData
	s.ChannelID = channelID
	s.IsFinal = isFinal
	s.Outcome = outcome
	s.Version = version
	return nil
}

func (s State) MarshalBinary() ([]byte, error) {
	return Encode(s)
}

func (s *State) UnmarshalBinary(data []byte) error {
	v, err := decodeScVal(data)
	if err != nil {
		return err
	}
	return s.FromScVal(v)
}

// StateFromScVal decodes a State struct from a xdr.ScVal.
func StateFromScVal(v xdr.ScVal) (State, error) {
	var s State
	err := (&s).FromScVal(v)
	return s, err
}
