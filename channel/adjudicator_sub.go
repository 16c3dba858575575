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
	pchannel "perun.network/go-perun/channel"
	"perun.network/go-perun/log"

	"perun.network/perun-adjudicator/event"
	"perun.network/perun-adjudicator/ledger"
	"perun.network/perun-adjudicator/wire"
)

// AdjEventSub streams the phase changes of one channel as go-perun
// adjudicator events.
type AdjEventSub struct {
	log.Embedding

	cid   pchannel.ID
	clock ledger.Clock
	sub   *event.Subscription
}

var _ pchannel.AdjudicatorSubscription = (*AdjEventSub)(nil)

// Subscribe returns a subscription to the updates of the channel's dispute
// record that happen after the call.
func (a *Adjudicator) Subscribe(cid pchannel.ID) (*AdjEventSub, error) {
	sub, err := a.ledger.Bus().Subscribe(func(ev event.PerunEvent) bool {
		return ev.GetType() == event.EventTypeChannelUpdate && ev.GetID() == cid
	})
	if err != nil {
		return nil, err
	}
	return &AdjEventSub{
		Embedding: log.MakeEmbedding(log.WithField("channel", cid)),
		cid:       cid,
		clock:     a.ledger.Clock(),
		sub:       sub,
	}, nil
}

// AdjudicatorEvent translates a dispute record update into the go-perun
// event of the phase it entered. The event's timeout elapses on clock.
func AdjudicatorEvent(clock ledger.Clock, ev *event.ChannelUpdate) pchannel.AdjudicatorEvent {
	base := pchannel.AdjudicatorEventBase{
		IDV:      ev.ChannelID,
		TimeoutV: event.NewTimeout(clock, ev.Timeout),
		VersionV: ev.Version,
	}
	switch ev.Phase {
	case wire.PhaseDispute:
		return &pchannel.RegisteredEvent{AdjudicatorEventBase: base}
	case wire.PhaseForceExec:
		return &pchannel.ProgressedEvent{AdjudicatorEventBase: base}
	default:
		return &pchannel.ConcludedEvent{AdjudicatorEventBase: base}
	}
}
