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
	"errors"

	pkgsync "polycry.pt/poly-go/sync"
)

// ErrBusClosed is returned when subscribing to a closed bus.
var ErrBusClosed = errors.New("event bus closed")

// Filter selects the events a subscription receives. A nil filter accepts
// all events.
type Filter func(PerunEvent) bool

// Bus fans committed events out to subscriptions. Publishing never blocks:
// every subscription buffers its events until they are read.
type Bus struct {
	mu     pkgsync.Mutex
	subs   map[*Subscription]struct{}
	closer *pkgsync.Closer
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		closer: new(pkgsync.Closer),
	}
}

// Subscribe registers a subscription for all events accepted by filter.
// Only events published after the call are delivered.
func (b *Bus) Subscribe(filter Filter) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closer.IsClosed() {
		return nil, ErrBusClosed
	}
	s := &Subscription{
		bus:    b,
		filter: filter,
		notify: make(chan struct{}, 1),
		closer: new(pkgsync.Closer),
	}
	b.subs[s] = struct{}{}
	return s, nil
}

// Publish delivers the events in order to every matching subscription.
func (b *Bus) Publish(evs ...PerunEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		for _, ev := range evs {
			if s.filter == nil || s.filter(ev) {
				s.push(ev)
			}
		}
	}
}

// Close closes the bus and all of its subscriptions.
func (b *Bus) Close() error {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()
	for _, s := range subs {
		s.Close() //nolint:errcheck
	}
	return b.closer.Close()
}

func (b *Bus) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s)
}

// Subscription is a stream of events from a Bus.
type Subscription struct {
	bus    *Bus
	filter Filter

	mu     pkgsync.Mutex
	queue  []PerunEvent
	notify chan struct{}
	err    error
	closer *pkgsync.Closer
}

func (s *Subscription) push(ev PerunEvent) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) pop() PerunEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev
}

// Next blocks until the next event arrives and returns it. It returns nil
// once the subscription is closed or ctx is done, in which case Err tells
// which.
func (s *Subscription) Next(ctx context.Context) PerunEvent {
	for {
		if s.closer.IsClosed() {
			return nil
		}
		if ev := s.pop(); ev != nil {
			return ev
		}
		select {
		case <-s.notify:
		case <-s.closer.Closed():
			return nil
		case <-ctx.Done():
			s.mu.Lock()
			s.err = ctx.Err()
			s.mu.Unlock()
			return nil
		}
	}
}

// Err returns the context error that ended the last call to Next, or nil.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops delivery of further events.
func (s *Subscription) Close() error {
	s.bus.unsubscribe(s)
	return s.closer.Close()
}
