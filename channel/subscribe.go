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
	"context"

	pchannel "perun.network/go-perun/channel"

	"perun.network/perun-adjudicator/event"
)

// Next blocks until the channel's record changes and returns the matching
// adjudicator event. It returns nil after Close.
func (s *AdjEventSub) Next() pchannel.AdjudicatorEvent {
	for {
		ev := s.sub.Next(context.Background())
		if ev == nil {
			return nil
		}
		update, ok := ev.(*event.ChannelUpdate)
		if !ok {
			s.Log().Warnf("Dropping unexpected event %v", ev.GetType())
			continue
		}
		s.Log().Debugf("Channel entered %v at version %d", update.Phase, update.Version)
		return AdjudicatorEvent(s.clock, update)
	}
}

// Close ends the subscription.
func (s *AdjEventSub) Close() error {
	return s.sub.Close()
}

// Err returns the error that ended the subscription, if any.
func (s *AdjEventSub) Err() error {
	return s.sub.Err()
}
