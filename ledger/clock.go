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
	"time"

	"github.com/pkg/errors"
	pkgsync "polycry.pt/poly-go/sync"
)

// Clock is the ledger's timestamp oracle in unix seconds.
type Clock interface {
	Now() uint64
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

// Now returns the current unix time in seconds.
func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// SimClock is a manually advanced clock for simulations and tests.
type SimClock struct {
	mu  pkgsync.Mutex
	now uint64
}

// NewSimClock returns a clock that starts at start.
func NewSimClock(start uint64) *SimClock {
	return &SimClock{now: start}
}

// Now returns the current simulated time.
func (c *SimClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock d seconds forward.
func (c *SimClock) Advance(d uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}

// Set moves the clock to t, which must not lie in the past.
func (c *SimClock) Set(t uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t < c.now {
		return errors.Errorf("cannot move clock back from %d to %d", c.now, t)
	}
	c.now = t
	return nil
}
