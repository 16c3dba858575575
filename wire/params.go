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
	"errors"
	"fmt"
	"math/big"

	"github.com/stellar/go/xdr"
	pchannel "perun.network/go-perun/channel"

	"perun.network/perun-adjudicator/channel/types"
	wtypes "perun.network/perun-adjudicator/wallet/types"
	"perun.network/perun-adjudicator/wire/scval"
)

// NonceLength is the length of the encoded nonce.
const NonceLength = 32

const (
	SymbolParamsApp               xdr.ScSymbol = "app"
	SymbolParamsChallengeDuration xdr.ScSymbol = "challenge_duration"
	SymbolParamsNonce             xdr.ScSymbol = "nonce"
	SymbolParamsParticipants      xdr.ScSymbol = "participants"
)

// Params are the immutable parameters of a channel. The order of
// Participants fixes the actor indices used in every other call.
type Params struct {
	App               types.AppID
	ChallengeDuration uint64
	Nonce             *big.Int
	Participants      []wtypes.Participant
}

// Valid checks the shape of the parameters.
func (p Params) Valid() error {
	if len(p.Participants) < 2 { //nolint:gomnd
		return errors.New("expected at least two participants")
	}
	if p.ChallengeDuration == 0 {
		return errors.New("challenge duration must not be zero")
	}
	if p.Nonce == nil || p.Nonce.Sign() < 0 || p.Nonce.BitLen() > NonceLength*8 {
		return errors.New("nonce must be a non-negative 256 bit integer")
	}
	for i := range p.Participants {
		for j := i + 1; j < len(p.Participants); j++ {
			if p.Participants[i].Equal(p.Participants[j]) {
				return fmt.Errorf("participants %d and %d are equal", i, j)
			}
		}
	}
	return nil
}

// ID returns the channel id derived from the parameters.
func (p Params) ID() (pchannel.ID, error) {
	return ChannelID(p)
}

// NumParts returns the number of participants.
func (p Params) NumParts() int {
	return len(p.Participants)
}

// IndexOf returns the actor index of the participant, or -1.
func (p Params) IndexOf(part wtypes.Participant) int {
	for i, q := range p.Participants {
		if q.Equal(part) {
			return i
		}
	}
	return -1
}

func (p Params) ToScVal() (xdr.ScVal, error) {
	if p.Nonce == nil || p.Nonce.Sign() < 0 || p.Nonce.BitLen() > NonceLength*8 {
		return xdr.ScVal{}, errors.New("invalid nonce")
	}
	app, err := p.App.ToScVal()
	if err != nil {
		return xdr.ScVal{}, err
	}
	challengeDuration, err := scval.WrapUint64(xdr.Uint64(p.ChallengeDuration))
	if err != nil {
		return xdr.ScVal{}, err
	}
	nonce, err := scval.WrapScBytes(MakeNonce(p.Nonce))
	if err != nil {
		return xdr.ScVal{}, err
	}
	parts := make(xdr.ScVec, len(p.Participants))
	for i, part := range p.Participants {
		addr, err := part.ScAddress()
		if err != nil {
			return xdr.ScVal{}, err
		}
		if parts[i], err = scval.WrapScAddress(addr); err != nil {
			return xdr.ScVal{}, err
		}
	}
	participants, err := scval.WrapVec(parts)
	if err != nil {
		return xdr.ScVal{}, err
	}
	m, err := MakeSymbolScMap(
		[]xdr.ScSymbol{
			SymbolParamsApp,
			SymbolParamsChallengeDuration,
			SymbolParamsNonce,
			SymbolParamsParticipants,
		},
		[]xdr.ScVal{app, challengeDuration, nonce, participants},
	)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapScMap(m)
}

func (p *Params) FromScVal(v xdr.ScVal) error {
	m, err := symbolMap(v, 4, "params") //nolint:gomnd
	if err != nil {
		return err
	}
	appVal, err := GetScMapValueFromSymbol(SymbolParamsApp, m)
	if err != nil {
		return err
	}
	var app types.AppID
	if err := app.FromScVal(appVal); err != nil {
		return err
	}
	challengeDuration, err := getU64(m, SymbolParamsChallengeDuration)
	if err != nil {
		return err
	}
	nonce, err := getBytes(m, SymbolParamsNonce)
	if err != nil {
		return err
	}
	if len(nonce) != NonceLength {
		return errors.New("invalid nonce length")
	}
	partsVec, err := getVec(m, SymbolParamsParticipants)
	if err != nil {
		return err
	}
	parts := make([]wtypes.Participant, len(partsVec))
	for i, pv := range partsVec {
		addr, ok := pv.GetAddress()
		if !ok {
			return errors.New("expected address decoding participant")
		}
		if parts[i], err = wtypes.ParticipantFromScAddress(addr); err != nil {
			return err
		}
	}
	p.App = app
	p.ChallengeDuration = challengeDuration
	p.Nonce = ToNonce(nonce)
	p.Participants = parts
	return nil
}

func (p Params) MarshalBinary() ([]byte, error) {
	return Encode(p)
}

func (p *Params) UnmarshalBinary(data []byte) error {
	v, err := decodeScVal(data)
	if err != nil {
		return err
	}
	return p.FromScVal(v)
}

// ParamsFromScVal decodes a Params struct from a xdr.ScVal.
func ParamsFromScVal(v xdr.ScVal) (Params, error) {
	var p Params
	err := (&p).FromScVal(v)
	return p, err
}

// MakeNonce encodes the nonce as 32 big-endian bytes.
func MakeNonce(nonce *big.Int) xdr.ScBytes {
	return nonce.FillBytes(make([]byte, NonceLength))
}

// ToNonce decodes a nonce encoded by MakeNonce.
func ToNonce(bytes xdr.ScBytes) *big.Int {
	return new(big.Int).SetBytes(bytes)
}
