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

package channel

import (
	"math"
	"math/big"

	"github.com/pkg/errors"
	pchannel "perun.network/go-perun/channel"
	"perun.network/go-perun/log"
	pwallet "perun.network/go-perun/wallet"
	pkgsync "polycry.pt/poly-go/sync"

	"perun.network/perun-adjudicator/channel/types"
	"perun.network/perun-adjudicator/event"
	"perun.network/perun-adjudicator/ledger"
	wtypes "perun.network/perun-adjudicator/wallet/types"
	"perun.network/perun-adjudicator/wire"
)

// SubState is a concluded sub-channel passed to Conclude. State must be the
// settled state the sub-channel's record commits to, see SettledState.
type SubState struct {
	Params wire.Params
	State  wire.State
}

// Adjudicator resolves disputes. It keeps one record per channel, drives
// the DISPUTE -> FORCEEXEC -> CONCLUDED phase machine and settles concluded
// channels on the asset holders of their assets.
type Adjudicator struct {
	log.Embedding

	ledger    *ledger.Ledger
	authority wtypes.Participant
	apps      *AppRegistry

	mu      pkgsync.Mutex
	holders map[types.AssetMapKey]*AssetHolder
}

// NewAdjudicator returns an adjudicator on l that settles channels in the
// name of authority.
func NewAdjudicator(l *ledger.Ledger, authority wtypes.Participant, apps *AppRegistry) *Adjudicator {
	return &Adjudicator{
		Embedding: log.MakeEmbedding(log.Default()),
		ledger:    l,
		authority: authority,
		apps:      apps,
		holders:   make(map[types.AssetMapKey]*AssetHolder),
	}
}

// Ledger returns the ledger the adjudicator runs on.
func (a *Adjudicator) Ledger() *ledger.Ledger {
	return a.ledger
}

// Authority returns the identity the adjudicator settles channels with.
func (a *Adjudicator) Authority() wtypes.Participant {
	return a.authority
}

// Apps returns the app registry consulted during forced execution.
func (a *Adjudicator) Apps() *AppRegistry {
	return a.apps
}

// AddAssetHolder makes h the asset holder of its asset. h must answer to
// the adjudicator's authority.
func (a *Adjudicator) AddAssetHolder(h *AssetHolder) error {
	if !h.Authority().Equal(a.authority) {
		return ErrInvalidAuthority
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.holders[h.Asset().MapKey()]; ok {
		return errors.Errorf("asset holder for %s already registered", h.Asset())
	}
	a.holders[h.Asset().MapKey()] = h
	return nil
}

// AssetHolder returns the asset holder of asset.
func (a *Adjudicator) AssetHolder(asset types.Asset) (*AssetHolder, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h, ok := a.holders[asset.MapKey()]
	if !ok {
		return nil, errors.WithMessagef(ErrUnknownAsset, "asset %s", asset)
	}
	return h, nil
}

func (a *Adjudicator) holdersFor(assets []types.Asset) ([]*AssetHolder, error) {
	holders := make([]*AssetHolder, len(assets))
	for i, asset := range assets {
		var err error
		if holders[i], err = a.AssetHolder(asset); err != nil {
			return nil, err
		}
	}
	return holders, nil
}

// Register opens a dispute with a state signed by all participants, or
// refutes the registered state with one of higher version. A refutation
// leaves the timeout unchanged. Registering is only possible in the
// DISPUTE phase before the timeout.
func (a *Adjudicator) Register(params wire.Params, state wire.State, sigs []pwallet.Sig) error {
	if err := checkParamsState(params, state); err != nil {
		return err
	}
	if err := verifySigs(params, state, sigs); err != nil {
		return err
	}
	hash, err := state.Hash()
	if err != nil {
		return errors.WithMessage(ErrInvalidState, err.Error())
	}

	return a.ledger.Exec(func(tx *ledger.Tx) error {
		d, found, err := getDispute(tx, state.ChannelID)
		if err != nil {
			return err
		}
		now := tx.Now()
		if !found {
			d = wire.Dispute{
				Timeout:           addTime(now, params.ChallengeDuration),
				ChallengeDuration: params.ChallengeDuration,
				HasApp:            !params.App.IsNoApp(),
				Phase:             wire.PhaseDispute,
			}
		} else {
			switch d.Phase {
			case wire.PhaseConcluded:
				return pastDisputeError{ErrAlreadyConcluded}
			case wire.PhaseForceExec:
				return errors.WithMessagef(ErrAlreadyRegistered, "phase %v", d.Phase)
			}
			if now >= d.Timeout {
				return errors.WithMessagef(ErrTimeoutElapsed, "refutation window closed at %d", d.Timeout)
			}
			if state.Version <= d.Version {
				return errors.WithMessagef(ErrVersionTooLow, "version %d, registered %d", state.Version, d.Version)
			}
		}
		d.StateHash = hash
		d.Version = state.Version
		if err := putDispute(tx, state.ChannelID, d); err != nil {
			return err
		}
		tx.Emit(channelUpdate(state.ChannelID, d))
		a.Log().WithField("channel", state.ChannelID).Debugf("Registered version %d, timeout %d", d.Version, d.Timeout)
		return nil
	})
}

// Progress advances a registered channel by one unilateral step of the
// actor. It is possible once the dispute timeout elapsed and, after the
// first step, until the force-execution timeout elapses. Every step resets
// the timeout.
func (a *Adjudicator) Progress(params wire.Params, from, to wire.State, actorIdx int, sig pwallet.Sig) error {
	if params.App.IsNoApp() {
		return ErrNoApp
	}
	if actorIdx < 0 || actorIdx >= params.NumParts() {
		return errors.WithMessagef(ErrActorIndex, "index %d of %d participants", actorIdx, params.NumParts())
	}
	if err := checkParamsState(params, from); err != nil {
		return err
	}
	if err := checkParamsState(params, to); err != nil {
		return err
	}
	if to.Version != from.Version+1 {
		return errors.WithMessagef(ErrVersionNotIncremented, "from %d to %d", from.Version, to.Version)
	}
	if from.IsFinal {
		return ErrFinalState
	}
	if !to.Outcome.EqualLocked(from.Outcome) {
		return ErrLockedChanged
	}
	if !to.Outcome.EqualAssets(from.Outcome) {
		return ErrAssetMismatch
	}
	fromSums, toSums := from.Outcome.Sum(), to.Outcome.Sum()
	for i := range fromSums {
		if fromSums[i].Cmp(toSums[i]) != 0 {
			return errors.WithMessagef(ErrBalanceMismatch, "asset %d: %s != %s", i, fromSums[i], toSums[i])
		}
	}
	if ok, err := Backend.Verify(params.Participants[actorIdx], to, sig); err != nil {
		return err
	} else if !ok {
		return errors.WithMessagef(ErrInvalidSignature, "actor %d", actorIdx)
	}
	app, err := a.apps.Lookup(params.App)
	if err != nil {
		return err
	}
	if err := app.ValidTransition(params, from, to, actorIdx); err != nil {
		return errors.WithMessage(ErrInvalidTransition, err.Error())
	}
	fromHash, err := from.Hash()
	if err != nil {
		return errors.WithMessage(ErrInvalidState, err.Error())
	}
	toHash, err := to.Hash()
	if err != nil {
		return errors.WithMessage(ErrInvalidState, err.Error())
	}

	return a.ledger.Exec(func(tx *ledger.Tx) error {
		d, found, err := getDispute(tx, from.ChannelID)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotRegistered
		}
		now := tx.Now()
		switch d.Phase {
		case wire.PhaseConcluded:
			return ErrAlreadyConcluded
		case wire.PhaseDispute:
			if now < d.Timeout {
				return errors.WithMessagef(ErrTimeoutNotElapsed, "dispute timeout %d, now %d", d.Timeout, now)
			}
		case wire.PhaseForceExec:
			if now >= d.Timeout {
				return errors.WithMessagef(ErrTimeoutElapsed, "force-execution timeout %d, now %d", d.Timeout, now)
			}
		}
		if d.StateHash != fromHash {
			return ErrStateMismatch
		}

		d.StateHash = toHash
		d.Version = to.Version
		d.Timeout = addTime(now, params.ChallengeDuration)
		d.Phase = wire.PhaseForceExec
		if err := putDispute(tx, to.ChannelID, d); err != nil {
			return err
		}
		tx.Emit(channelUpdate(to.ChannelID, d))
		a.Log().WithField("channel", to.ChannelID).Debugf("Progressed to version %d by actor %d", d.Version, actorIdx)
		return nil
	})
}

// Conclude settles a registered channel after its timeouts elapsed. state
// must be the registered state. subStates are the settled states of the
// sub-channels locked in state, in the same order. Their outcomes are
// added to the participants of the channel before settlement.
func (a *Adjudicator) Conclude(params wire.Params, state wire.State, subStates []SubState) error {
	settled, err := a.SettledState(params, state, subStates)
	if err != nil {
		return err
	}
	holders, err := a.holdersFor(state.Outcome.Assets)
	if err != nil {
		return err
	}
	stateHash, err := state.Hash()
	if err != nil {
		return errors.WithMessage(ErrInvalidState, err.Error())
	}
	settledHash, err := settled.Hash()
	if err != nil {
		return errors.WithMessage(ErrInvalidState, err.Error())
	}
	subHashes := make([][wire.HashLength]byte, len(subStates))
	for i, sub := range subStates {
		if subHashes[i], err = sub.State.Hash(); err != nil {
			return errors.WithMessage(ErrInvalidState, err.Error())
		}
	}

	return a.ledger.Exec(func(tx *ledger.Tx) error {
		d, found, err := getDispute(tx, state.ChannelID)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotRegistered
		}
		if d.Phase == wire.PhaseConcluded {
			return ErrAlreadyConcluded
		}
		if d.StateHash != stateHash {
			return ErrStateMismatch
		}
		if now := tx.Now(); !concludable(d, now) {
			return errors.WithMessagef(ErrTimeoutNotElapsed, "phase %v, timeout %d, now %d", d.Phase, d.Timeout, now)
		}
		for i, sub := range subStates {
			sd, found, err := getDispute(tx, sub.State.ChannelID)
			if err != nil {
				return err
			}
			if !found || sd.Phase != wire.PhaseConcluded {
				return errors.WithMessagef(ErrSubchannelNotConcluded, "sub-channel %d", i)
			}
			if sd.StateHash != subHashes[i] {
				return errors.WithMessagef(ErrSubchannelMismatch, "sub-state %d is not the settled state", i)
			}
		}

		if err := a.settle(tx, holders, params, settled); err != nil {
			return err
		}
		d.StateHash = settledHash
		d.Phase = wire.PhaseConcluded
		if err := putDispute(tx, state.ChannelID, d); err != nil {
			return err
		}
		tx.Emit(channelUpdate(state.ChannelID, d))
		a.Log().WithField("channel", state.ChannelID).Debugf("Concluded at version %d", d.Version)
		return nil
	})
}

// ConcludeFinal settles a channel with a final state signed by all
// participants. It is accepted in every phase but CONCLUDED, with or
// without a prior registration and regardless of the registered version.
func (a *Adjudicator) ConcludeFinal(params wire.Params, state wire.State, sigs []pwallet.Sig) error {
	if err := checkParamsState(params, state); err != nil {
		return err
	}
	if !state.IsFinal {
		return ErrNotFinal
	}
	if len(state.Outcome.Locked) != 0 {
		return ErrLockedNotEmpty
	}
	if err := verifySigs(params, state, sigs); err != nil {
		return err
	}
	holders, err := a.holdersFor(state.Outcome.Assets)
	if err != nil {
		return err
	}
	hash, err := state.Hash()
	if err != nil {
		return errors.WithMessage(ErrInvalidState, err.Error())
	}

	return a.ledger.Exec(func(tx *ledger.Tx) error {
		d, found, err := getDispute(tx, state.ChannelID)
		if err != nil {
			return err
		}
		if !found {
			d = wire.Dispute{
				Timeout:           tx.Now(),
				ChallengeDuration: params.ChallengeDuration,
				HasApp:            !params.App.IsNoApp(),
			}
		} else if d.Phase == wire.PhaseConcluded {
			return ErrAlreadyConcluded
		}

		if err := a.settle(tx, holders, params, state); err != nil {
			return err
		}
		d.StateHash = hash
		d.Version = state.Version
		d.Phase = wire.PhaseConcluded
		if err := putDispute(tx, state.ChannelID, d); err != nil {
			return err
		}
		tx.Emit(channelUpdate(state.ChannelID, d))
		a.Log().WithField("channel", state.ChannelID).Debugf("Concluded final state version %d", d.Version)
		return nil
	})
}

// SettledState returns the state a channel's record commits to once it is
// concluded: state with the outcomes of subStates added to its balances
// and no locked funds. A parent channel passes this state of each of its
// sub-channels to Conclude.
func (a *Adjudicator) SettledState(params wire.Params, state wire.State, subStates []SubState) (wire.State, error) {
	if err := checkParamsState(params, state); err != nil {
		return wire.State{}, err
	}
	locked := state.Outcome.Locked
	if len(subStates) != len(locked) {
		return wire.State{}, errors.WithMessagef(ErrSubchannelCount, "%d sub-states, %d locked", len(subStates), len(locked))
	}

	outcome := state.Outcome.Clone()
	outcome.Locked = nil
	for i, sub := range subStates {
		if sub.State.ChannelID != locked[i].ID {
			return wire.State{}, errors.WithMessagef(ErrSubchannelMismatch, "sub-state %d belongs to another channel", i)
		}
		if err := checkParamsState(sub.Params, sub.State); err != nil {
			return wire.State{}, errors.WithMessagef(err, "sub-state %d", i)
		}
		if len(sub.State.Outcome.Locked) != 0 {
			return wire.State{}, errors.WithMessagef(ErrSubchannelMismatch, "sub-state %d locks funds", i)
		}
		if !sub.State.Outcome.EqualAssets(state.Outcome) {
			return wire.State{}, errors.WithMessagef(ErrAssetMismatch, "sub-state %d", i)
		}
		idx := make([]int, sub.Params.NumParts())
		for q, p := range sub.Params.Participants {
			if idx[q] = params.IndexOf(p); idx[q] < 0 {
				return wire.State{}, errors.WithMessagef(ErrSubchannelMismatch, "participant %s of sub-channel %d is not in the channel", p, i)
			}
		}
		for k, bals := range sub.State.Outcome.Balances {
			if total := wire.SumBalances(bals); total.Cmp(locked[i].Balances[k]) != 0 {
				return wire.State{}, errors.WithMessagef(ErrSubchannelMismatch, "sub-state %d distributes %s of asset %d, %s are locked", i, total, k, locked[i].Balances[k])
			}
			for q, bal := range bals {
				acc := outcome.Balances[k][idx[q]]
				outcome.Balances[k][idx[q]] = new(big.Int).Add(acc, bal)
			}
		}
	}
	if err := outcome.Valid(params.NumParts()); err != nil {
		return wire.State{}, errors.WithMessage(ErrInvalidState, err.Error())
	}

	settled := state.Clone()
	settled.Outcome = outcome
	return settled, nil
}

// Dispute returns the record of a channel. found is false for unregistered
// channels.
func (a *Adjudicator) Dispute(channelID pchannel.ID) (d wire.Dispute, found bool, err error) {
	err = a.ledger.View(func(r ledger.Reader) error {
		d, found, err = getDispute(r, channelID)
		return err
	})
	return d, found, err
}

func (a *Adjudicator) settle(w ledger.Writer, holders []*AssetHolder, params wire.Params, state wire.State) error {
	for i, h := range holders {
		if err := h.SetOutcome(w, a.authority, state.ChannelID, params.Participants, state.Outcome.Balances[i]); err != nil {
			return err
		}
	}
	return nil
}

// concludable reports whether the timeouts of a registered channel allow
// concluding it at now. With an app, a channel still in DISPUTE has to wait
// for the force-execution window that follows the dispute timeout.
func concludable(d wire.Dispute, now uint64) bool {
	switch {
	case !d.HasApp:
		return d.Phase == wire.PhaseDispute && now >= d.Timeout
	case d.Phase == wire.PhaseForceExec:
		return now >= d.Timeout
	default:
		return now >= addTime(d.Timeout, d.ChallengeDuration)
	}
}

func checkParamsState(params wire.Params, state wire.State) error {
	if err := params.Valid(); err != nil {
		return errors.WithMessage(ErrInvalidParams, err.Error())
	}
	id, err := params.ID()
	if err != nil {
		return errors.WithMessage(ErrInvalidParams, err.Error())
	}
	if id != state.ChannelID {
		return errors.WithMessagef(ErrInvalidParams, "state of channel %x, params of channel %x", state.ChannelID, id)
	}
	if err := state.Outcome.Valid(params.NumParts()); err != nil {
		return errors.WithMessage(ErrInvalidState, err.Error())
	}
	return nil
}

func verifySigs(params wire.Params, state wire.State, sigs []pwallet.Sig) error {
	if len(sigs) != params.NumParts() {
		return errors.WithMessagef(ErrSignatureCount, "%d signatures, %d participants", len(sigs), params.NumParts())
	}
	for i, p := range params.Participants {
		ok, err := Backend.Verify(p, state, sigs[i])
		if err != nil {
			return err
		}
		if !ok {
			return errors.WithMessagef(ErrInvalidSignature, "participant %d", i)
		}
	}
	return nil
}

func getDispute(r ledger.Reader, channelID pchannel.ID) (wire.Dispute, bool, error) {
	data, err := r.Get(ledger.DisputeKey(channelID))
	if errors.Is(err, ledger.ErrNotFound) {
		return wire.Dispute{}, false, nil
	} else if err != nil {
		return wire.Dispute{}, false, err
	}
	var d wire.Dispute
	if err := d.UnmarshalBinary(data); err != nil {
		return wire.Dispute{}, false, errors.Wrap(err, "decoding dispute record")
	}
	return d, true, nil
}

func putDispute(w ledger.Writer, channelID pchannel.ID, d wire.Dispute) error {
	data, err := d.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "encoding dispute record")
	}
	return w.Put(ledger.DisputeKey(channelID), data)
}

func channelUpdate(channelID pchannel.ID, d wire.Dispute) *event.ChannelUpdate {
	return &event.ChannelUpdate{
		ChannelID: channelID,
		Version:   d.Version,
		Phase:     d.Phase,
		Timeout:   d.Timeout,
	}
}

func addTime(t, d uint64) uint64 {
	if t > math.MaxUint64-d {
		return math.MaxUint64
	}
	return t + d
}
