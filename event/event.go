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

package event

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/stellar/go/xdr"
	pchannel "perun.network/go-perun/channel"

	"perun.network/perun-adjudicator/channel/types"
	wtypes "perun.network/perun-adjudicator/wallet/types"
	"perun.network/perun-adjudicator/wire"
	"perun.network/perun-adjudicator/wire/scval"
)

type EventType int

const (
	EventTypeChannelUpdate EventType = iota // dispute record created or changed
	EventTypeDeposited                      // holdings increased
	EventTypeOutcomeSet                     // channel settled on an asset holder
	EventTypeWithdrawn                      // holdings paid out
)

const AssertPerunSymbol = "perun"

var (
	PerunTopics = map[xdr.ScSymbol]EventType{
		xdr.ScSymbol("update"):   EventTypeChannelUpdate,
		xdr.ScSymbol("deposit"):  EventTypeDeposited,
		xdr.ScSymbol("outcome"):  EventTypeOutcomeSet,
		xdr.ScSymbol("withdraw"): EventTypeWithdrawn,
	}

	ErrNotPerunEvent    = errors.New("event was not emitted by the adjudicator or an asset holder")
	ErrEventUnsupported = errors.New("this type of event is unsupported")
	ErrEventDecode      = errors.New("error while decoding events")
	ErrNoUpdateEvent    = errors.New("channel update event not found")
	ErrNoDepositEvent   = errors.New("deposit event not found")
	ErrNoWithdrawEvent  = errors.New("withdraw event not found")
)

const (
	SymbolAmount    xdr.ScSymbol = "amount"
	SymbolAsset     xdr.ScSymbol = "asset"
	SymbolChannelID xdr.ScSymbol = "channel_id"
	SymbolFundingID xdr.ScSymbol = "funding_id"
	SymbolPhase     xdr.ScSymbol = "phase"
	SymbolReceiver  xdr.ScSymbol = "receiver"
	SymbolTimeout   xdr.ScSymbol = "timeout"
	SymbolVersion   xdr.ScSymbol = "version"
)

type (
	// PerunEvent is an event emitted by the adjudicator or an asset holder.
	// GetID returns the channel id for adjudicator events and the funding
	// id for custody events.
	PerunEvent interface {
		GetID() pchannel.ID
		GetType() EventType
		ToScVal() (xdr.ScVal, error)
	}

	// ChannelUpdate is emitted whenever a dispute record changes.
	ChannelUpdate struct {
		ChannelID pchannel.ID
		Version   uint64
		Phase     wire.Phase
		Timeout   uint64
	}

	// Deposited is emitted when holdings of a funding id increase.
	Deposited struct {
		Asset     types.Asset
		FundingID pchannel.ID
		Amount    *big.Int
	}

	// OutcomeSet is emitted when an asset holder settles a channel.
	OutcomeSet struct {
		Asset     types.Asset
		ChannelID pchannel.ID
	}

	// Withdrawn is emitted when holdings are paid out to a receiver.
	Withdrawn struct {
		Asset     types.Asset
		FundingID pchannel.ID
		Amount    *big.Int
		Receiver  wtypes.Participant
	}
)

func (e *ChannelUpdate) GetID() pchannel.ID { return e.ChannelID }
func (e *ChannelUpdate) GetType() EventType { return EventTypeChannelUpdate }

func (e *Deposited) GetID() pchannel.ID { return e.FundingID }
func (e *Deposited) GetType() EventType { return EventTypeDeposited }

func (e *OutcomeSet) GetID() pchannel.ID { return e.ChannelID }
func (e *OutcomeSet) GetType() EventType { return EventTypeOutcomeSet }

func (e *Withdrawn) GetID() pchannel.ID { return e.FundingID }
func (e *Withdrawn) GetType() EventType { return EventTypeWithdrawn }

func (e *ChannelUpdate) ToScVal() (xdr.ScVal, error) {
	m, err := wire.MakeSymbolScMap(
		[]xdr.ScSymbol{SymbolChannelID, SymbolPhase, SymbolTimeout, SymbolVersion},
		[]xdr.ScVal{
			scval.MustWrapScBytes(e.ChannelID[:]),
			scval.MustWrapUint32(xdr.Uint32(e.Phase)),
			scval.MustWrapUint64(xdr.Uint64(e.Timeout)),
			scval.MustWrapUint64(xdr.Uint64(e.Version)),
		},
	)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapScMap(m)
}

func (e *ChannelUpdate) FromScVal(v xdr.ScVal) error {
	m, err := dataMap(v, 4) //nolint:gomnd
	if err != nil {
		return err
	}
	if e.ChannelID, err = getID(m, SymbolChannelID); err != nil {
		return err
	}
	phaseVal, err := wire.GetScMapValueFromSymbol(SymbolPhase, m)
	if err != nil {
		return err
	}
	phase, ok := phaseVal.GetU32()
	if !ok || wire.Phase(phase) > wire.PhaseConcluded {
		return ErrEventDecode
	}
	e.Phase = wire.Phase(phase)
	if e.Timeout, err = getU64(m, SymbolTimeout); err != nil {
		return err
	}
	e.Version, err = getU64(m, SymbolVersion)
	return err
}

func (e *Deposited) ToScVal() (xdr.ScVal, error) {
	asset, err := wrapAsset(e.Asset)
	if err != nil {
		return xdr.ScVal{}, err
	}
	amount, err := wrapAmount(e.Amount)
	if err != nil {
		return xdr.ScVal{}, err
	}
	m, err := wire.MakeSymbolScMap(
		[]xdr.ScSymbol{SymbolAmount, SymbolAsset, SymbolFundingID},
		[]xdr.ScVal{amount, asset, scval.MustWrapScBytes(e.FundingID[:])},
	)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapScMap(m)
}

func (e *Deposited) FromScVal(v xdr.ScVal) error {
	m, err := dataMap(v, 3) //nolint:gomnd
	if err != nil {
		return err
	}
	if e.Amount, err = getAmount(m); err != nil {
		return err
	}
	if e.Asset, err = getAsset(m); err != nil {
		return err
	}
	e.FundingID, err = getID(m, SymbolFundingID)
	return err
}

func (e *OutcomeSet) ToScVal() (xdr.ScVal, error) {
	asset, err := wrapAsset(e.Asset)
	if err != nil {
		return xdr.ScVal{}, err
	}
	m, err := wire.MakeSymbolScMap(
		[]xdr.ScSymbol{SymbolAsset, SymbolChannelID},
		[]xdr.ScVal{asset, scval.MustWrapScBytes(e.ChannelID[:])},
	)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapScMap(m)
}

func (e *OutcomeSet) FromScVal(v xdr.ScVal) error {
	m, err := dataMap(v, 2) //nolint:gomnd
	if err != nil {
		return err
	}
	if e.Asset, err = getAsset(m); err != nil {
		return err
	}
	e.ChannelID, err = getID(m, SymbolChannelID)
	return err
}

func (e *Withdrawn) ToScVal() (xdr.ScVal, error) {
	asset, err := wrapAsset(e.Asset)
	if err != nil {
		return xdr.ScVal{}, err
	}
	amount, err := wrapAmount(e.Amount)
	if err != nil {
		return xdr.ScVal{}, err
	}
	recvAddr, err := e.Receiver.ScAddress()
	if err != nil {
		return xdr.ScVal{}, err
	}
	m, err := wire.MakeSymbolScMap(
		[]xdr.ScSymbol{SymbolAmount, SymbolAsset, SymbolFundingID, SymbolReceiver},
		[]xdr.ScVal{amount, asset, scval.MustWrapScBytes(e.FundingID[:]), scval.MustWrapScAddress(recvAddr)},
	)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapScMap(m)
}

func (e *Withdrawn) FromScVal(v xdr.ScVal) error {
	m, err := dataMap(v, 4) //nolint:gomnd
	if err != nil {
		return err
	}
	if e.Amount, err = getAmount(m); err != nil {
		return err
	}
	if e.Asset, err = getAsset(m); err != nil {
		return err
	}
	if e.FundingID, err = getID(m, SymbolFundingID); err != nil {
		return err
	}
	recvVal, err := wire.GetScMapValueFromSymbol(SymbolReceiver, m)
	if err != nil {
		return err
	}
	addr, ok := recvVal.GetAddress()
	if !ok {
		return ErrEventDecode
	}
	e.Receiver, err = wtypes.ParticipantFromScAddress(addr)
	return err
}

// Topic returns the topic symbol of the event type.
func (t EventType) Topic() xdr.ScSymbol {
	for sym, et := range PerunTopics {
		if et == t {
			return sym
		}
	}
	return ""
}

func (t EventType) String() string {
	switch t {
	case EventTypeChannelUpdate:
		return "ChannelUpdate"
	case EventTypeDeposited:
		return "Deposited"
	case EventTypeOutcomeSet:
		return "OutcomeSet"
	case EventTypeWithdrawn:
		return "Withdrawn"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// EncodeEvent converts the event into the contract event layout observers
// read from the ledger: topics ["perun", <type>] and a map as data. Custody
// events carry the asset holder's contract id.
func EncodeEvent(ev PerunEvent) (xdr.ContractEvent, error) {
	data, err := ev.ToScVal()
	if err != nil {
		return xdr.ContractEvent{}, err
	}
	topics := xdr.ScVec{
		scval.MustWrapScSymbol(AssertPerunSymbol),
		scval.MustWrapScSymbol(ev.GetType().Topic()),
	}
	ce := xdr.ContractEvent{
		Type: xdr.ContractEventTypeContract,
		Body: xdr.ContractEventBody{
			V:  0,
			V0: &xdr.ContractEventV0{Topics: topics, Data: data},
		},
	}
	switch e := ev.(type) {
	case *Deposited:
		id := e.Asset.ContractID()
		ce.ContractId = &id
	case *OutcomeSet:
		id := e.Asset.ContractID()
		ce.ContractId = &id
	case *Withdrawn:
		id := e.Asset.ContractID()
		ce.ContractId = &id
	}
	return ce, nil
}

// DecodeEvent converts a contract event back into its typed form.
func DecodeEvent(ce xdr.ContractEvent) (PerunEvent, error) {
	if ce.Body.V0 == nil {
		return nil, ErrNotPerunEvent
	}
	topics := ce.Body.V0.Topics
	if len(topics) < 2 { //nolint:gomnd
		return nil, ErrNotPerunEvent
	}
	perunString, ok := topics[0].GetSym()
	if !ok || perunString != AssertPerunSymbol {
		return nil, ErrNotPerunEvent
	}
	fn, ok := topics[1].GetSym()
	if !ok {
		return nil, ErrNotPerunEvent
	}
	eventType, found := PerunTopics[fn]
	if !found {
		return nil, ErrEventUnsupported
	}

	var ev interface {
		PerunEvent
		FromScVal(xdr.ScVal) error
	}
	switch eventType {
	case EventTypeChannelUpdate:
		ev = &ChannelUpdate{}
	case EventTypeDeposited:
		ev = &Deposited{}
	case EventTypeOutcomeSet:
		ev = &OutcomeSet{}
	case EventTypeWithdrawn:
		ev = &Withdrawn{}
	}
	if err := ev.FromScVal(ce.Body.V0.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEventDecode, err)
	}
	return ev, nil
}

// DecodeEvents decodes all events of a transaction, skipping events that
// were not emitted by the adjudicator or an asset holder.
func DecodeEvents(ces []xdr.ContractEvent) ([]PerunEvent, error) {
	evs := make([]PerunEvent, 0, len(ces))
	for _, ce := range ces {
		ev, err := DecodeEvent(ce)
		if errors.Is(err, ErrNotPerunEvent) {
			continue
		} else if err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}
	return evs, nil
}

// AssertChannelUpdate returns the last update of channel cid among evs. It
// fails with ErrNoUpdateEvent if there is none or if the channel did not
// end up in phase.
func AssertChannelUpdate(evs []PerunEvent, cid pchannel.ID, phase wire.Phase) (*ChannelUpdate, error) {
	var last *ChannelUpdate
	for _, ev := range evs {
		if u, ok := ev.(*ChannelUpdate); ok && u.ChannelID == cid {
			last = u
		}
	}
	if last == nil {
		return nil, ErrNoUpdateEvent
	}
	if last.Phase != phase {
		return nil, fmt.Errorf("%w: channel in phase %v, expected %v", ErrNoUpdateEvent, last.Phase, phase)
	}
	return last, nil
}

func AssertDepositEvent(evs []PerunEvent, fundingID pchannel.ID) error {
	for _, ev := range evs {
		if ev.GetType() == EventTypeDeposited && ev.GetID() == fundingID {
			return nil
		}
	}
	return ErrNoDepositEvent
}

func AssertWithdrawEvent(evs []PerunEvent, fundingID pchannel.ID) error {
	for _, ev := range evs {
		if ev.GetType() == EventTypeWithdrawn && ev.GetID() == fundingID {
			return nil
		}
	}
	return ErrNoWithdrawEvent
}

func dataMap(v xdr.ScVal, n int) (xdr.ScMap, error) {
	m, ok := v.GetMap()
	if !ok || m == nil || len(*m) != n {
		return nil, ErrEventDecode
	}
	return *m, nil
}

func getID(m xdr.ScMap, key xdr.ScSymbol) (pchannel.ID, error) {
	v, err := wire.GetScMapValueFromSymbol(key, m)
	if err != nil {
		return pchannel.ID{}, err
	}
	b, ok := v.GetBytes()
	if !ok || len(b) != wire.HashLength {
		return pchannel.ID{}, ErrEventDecode
	}
	var id pchannel.ID
	copy(id[:], b)
	return id, nil
}

func getU64(m xdr.ScMap, key xdr.ScSymbol) (uint64, error) {
	v, err := wire.GetScMapValueFromSymbol(key, m)
	if err != nil {
		return 0, err
	}
	u, ok := v.GetU64()
	if !ok {
		return 0, ErrEventDecode
	}
	return uint64(u), nil
}

func getAmount(m xdr.ScMap) (*big.Int, error) {
	v, err := wire.GetScMapValueFromSymbol(SymbolAmount, m)
	if err != nil {
		return nil, err
	}
	parts, ok := v.GetI128()
	if !ok {
		return nil, ErrEventDecode
	}
	return wire.ToBigInt(parts)
}

func getAsset(m xdr.ScMap) (types.Asset, error) {
	v, err := wire.GetScMapValueFromSymbol(SymbolAsset, m)
	if err != nil {
		return types.Asset{}, err
	}
	addr, ok := v.GetAddress()
	if !ok {
		return types.Asset{}, ErrEventDecode
	}
	return types.AssetFromScAddress(addr)
}

func wrapAsset(a types.Asset) (xdr.ScVal, error) {
	addr, err := a.MakeScAddress()
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapScAddress(addr)
}

func wrapAmount(amount *big.Int) (xdr.ScVal, error) {
	parts, err := wire.MakeInt128Parts(amount)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapInt128Parts(parts)
}
