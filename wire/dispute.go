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
	"fmt"

	"github.com/stellar/go/xdr"

	"perun.network/perun-adjudicator/wire/scval"
)

// Phase is the phase of a registered channel. Channels without a record
// are unregistered.
type Phase uint32

const (
	PhaseDispute Phase = iota
	PhaseForceExec
	PhaseConcluded
)

func (p Phase) String() string {
	switch p {
	case PhaseDispute:
		return "DISPUTE"
	case PhaseForceExec:
		return "FORCEEXEC"
	case PhaseConcluded:
		return "CONCLUDED"
	default:
		return fmt.Sprintf("Phase(%d)", uint32(p))
	}
}

const (
	SymbolDisputeChallengeDuration xdr.ScSymbol = "challenge_duration"
	SymbolDisputeHasApp            xdr.ScSymbol = "has_app"
	SymbolDisputePhase             xdr.ScSymbol = "phase"
	SymbolDisputeStateHash         xdr.ScSymbol = "state_hash"
	SymbolDisputeTimeout           xdr.ScSymbol = "timeout"
	SymbolDisputeVersion           xdr.ScSymbol = "version"
)

// Dispute is the record the adjudicator keeps per registered channel. It
// commits to the latest state by hash only.
type Dispute struct {
	Timeout           uint64
	ChallengeDuration uint64
	StateHash         [HashLength]byte
	Version           uint64
	HasApp            bool
	Phase             Phase
}

func (d Dispute) ToScVal() (xdr.ScVal, error) {
	challengeDuration, err := scval.WrapUint64(xdr.Uint64(d.ChallengeDuration))
	if err != nil {
		return xdr.ScVal{}, err
	}
	hasApp, err := scval.WrapBool(d.HasApp)
	if err != nil {
		return xdr.ScVal{}, err
	}
	phase, err := scval.WrapUint32(xdr.Uint32(d.Phase))
	if err != nil {
		return xdr.ScVal{}, err
	}
	stateHash, err := scval.WrapScBytes(d.StateHash[:])
	if err != nil {
		return xdr.ScVal{}, err
	}
	timeout, err := scval.WrapUint64(xdr.Uint64(d.Timeout))
	if err != nil {
		return xdr.ScVal{}, err
	}
	version, err := scval.WrapUint64(xdr.Uint64(d.Version))
	if err != nil {
		return xdr.ScVal{}, err
	}
	m, err := MakeSymbolScMap(
		[]xdr.ScSymbol{
			SymbolDisputeChallengeDuration,
			SymbolDisputeHasApp,
			SymbolDisputePhase,
			SymbolDisputeStateHash,
			SymbolDisputeTimeout,
			SymbolDisputeVersion,
		},
		[]xdr.ScVal{challengeDuration, hasApp, phase, stateHash, timeout, version},
	)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapScMap(m)
}

func (d *Dispute) FromScVal(v xdr.ScVal) error {
	m, err := symbolMap(v, 6, "dispute") //nolint:gomnd
	if err != nil {
		return err
	}
	challengeDuration, err := getU64(m, SymbolDisputeChallengeDuration)
	if err != nil {
		return err
	}
	hasApp, err := getBool(m, SymbolDisputeHasApp)
	if err != nil {
		return err
	}
	phase, err := getU32(m, SymbolDisputePhase)
	if err != nil {
		return err
	}
	if Phase(phase) > PhaseConcluded {
		return fmt.Errorf("unknown phase %d", phase)
	}
	stateHash, err := getID(m, SymbolDisputeStateHash)
	if err != nil {
		return err
	}
	timeout, err := getU64(m, SymbolDisputeTimeout)
	if err != nil {
		return err
	}
	version, err := getU64(m, SymbolDisputeVersion)
	if err != nil {
		return err
	}
	d.ChallengeDuration = challengeDuration
	d.HasApp = hasApp
	d.Phase = Phase(phase)
	d.StateHash = stateHash
	d.Timeout = timeout
	d.Version = version
	return nil
}

func (d Dispute) MarshalBinary() ([]byte, error) {
	return Encode(d)
}

func (d *Dispute) UnmarshalBinary(data []byte) error {
	v, err := decodeScVal(data)
	if err != nil {
		return err
	}
	return d.FromScVal(v)
}
