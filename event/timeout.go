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
	"context"
	"time"

	pchannel "perun.network/go-perun/channel"
)

// DefaultTimeoutPollInterval default value for the PollInterval of a Timeout.
const DefaultTimeoutPollInterval = 1 * time.Second

// Clock is the ledger time source timeouts are measured against.
type Clock interface {
	Now() uint64
}

// Timeout elapses when the ledger clock reaches a dispute's timeout, not
// when wall-clock time does.
type Timeout struct {
	clock        Clock
	when         uint64
	PollInterval time.Duration
}

var _ pchannel.Timeout = (*Timeout)(nil)

// NewTimeout returns a timeout which expires once clock reports when.
func NewTimeout(clock Clock, when uint64) *Timeout {
	return &Timeout{clock: clock, when: when, PollInterval: DefaultTimeoutPollInterval}
}

// When returns the ledger time at which the timeout expires.
func (t *Timeout) When() uint64 {
	return t.when
}

// IsElapsed reports whether the ledger clock has reached the timeout.
func (t *Timeout) IsElapsed(context.Context) bool {
	return t.clock.Now() >= t.when
}

// Wait polls the ledger clock until the timeout elapsed or ctx is done.
func (t *Timeout) Wait(ctx context.Context) error {
	ticker := time.NewTicker(t.PollInterval)
	defer ticker.Stop()
	for !t.IsElapsed(ctx) {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
