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
	"math/big"

	"github.com/stellar/go/xdr"
	pchannel "perun.network/go-perun/channel"

	wtypes "perun.network/perun-adjudicator/wallet/types"
	"perun.network/perun-adjudicator/wire/scval"
)

const (
	SymbolAuthorizationAmount      xdr.ScSymbol = "amount"
	SymbolAuthorizationChannelID   xdr.ScSymbol = "channel_id"
	SymbolAuthorizationParticipant xdr.ScSymbol = "participant"
	SymbolAuthorizationReceiver    xdr.ScSymbol = "receiver"
)

// Authorization is a participant's signed permission to pay Amount of its
// holdings in a channel out to Receiver.
type Authorization struct {
	ChannelID   pchannel.ID
	Participant wtypes.Participant
	Receiver    wtypes.Participant
	Amount      *big.Int
}

// FundingID returns the holdings key the authorization draws from.
func (a Authorization) FundingID() (pchannel.ID, error) {
	return FundingID(a.ChannelID, a.Participant)
}

func (a Authorization) ToScVal() (xdr.ScVal, error) {
	amountParts, err := MakeInt128Parts(a.Amount)
	if err != nil {
		return xdr.ScVal{}, err
	}
	amount, err := scval.WrapInt128Parts(amountParts)
	if err != nil {
		return xdr.ScVal{}, err
	}
	channelID, err := scval.WrapScBytes(a.ChannelID[:])
	if err != nil {
		return xdr.ScVal{}, err
	}
	partAddr, err := a.Participant.ScAddress()
	if err != nil {
		return xdr.ScVal{}, err
	}
	participant, err := scval.WrapScAddress(partAddr)
	if err != nil {
		return xdr.ScVal{}, err
	}
	recvAddr, err := a.Receiver.ScAddress()
	if err != nil {
		return xdr.ScVal{}, err
	}
	receiver, err := scval.WrapScAddress(recvAddr)
	if err != nil {
		return xdr.ScVal{}, err
	}
	m, err := MakeSymbolScMap(
		[]xdr.ScSymbol{
			SymbolAuthorizationAmount,
			SymbolAuthorizationChannelID,
			SymbolAuthorizationParticipant,
			SymbolAuthorizationReceiver,
		},
		[]xdr.ScVal{amount, channelID, participant, receiver},
	)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapScMap(m)
}

func (a *Authorization) FromScVal(v xdr.ScVal) error {
	m, err := symbolMap(v, 4, "authorization") //nolint:gomnd
	if err != nil {
		return err
	}
	amountVal, err := GetScMapValueFromSymbol(SymbolAuthorizationAmount, m)
	if err != nil {
		return err
	}
	amountParts, ok := amountVal.GetI128()
	if !ok {
		return errors.New("expected i128 decoding amount")
	}
	amount, err := ToBigInt(amountParts)
	if err != nil {
		return err
	}
	channelID, err := getID(m, SymbolAuthorizationChannelID)
	if err != nil {
		return err
	}
	participant, err := getParticipant(m, SymbolAuthorizationParticipant)
	if err != nil {
		return err
	}
	receiver, err := getParticipant(m, SymbolAuthorizationReceiver)
	if err != nil {
		return err
	}
	a.Amount = amount
	a.ChannelID = channelID
	a.Participant = participant
	a.Receiver = receiver
	return nil
}

func (a Authorization) MarshalBinary() ([]byte, error) {
	return Encode(a)
}

func (a *Authorization) UnmarshalBinary(data []byte) error {
	v, err := decodeScVal(data)
	if err != nil {
		return err
	}
	return a.FromScVal(v)
}

func getParticipant(m xdr.ScMap, key xdr.ScSymbol) (wtypes.Participant, error) {
	v, err := GetScMapValueFromSymbol(key, m)
	if err != nil {
		return wtypes.Participant{}, err
	}
	addr, ok := v.GetAddress()
	if !ok {
		return wtypes.Participant{}, errors.New("expected address decoding " + string(key))
	}
	return wtypes.ParticipantFromScAddress(addr)
}
