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
	"github.com/pkg/errors"
	pkgsync "polycry.pt/poly-go/sync"

	"perun.network/perun-adjudicator/channel/types"
	"perun.network/perun-adjudicator/wire"
)

// App decides which unilateral transitions are valid during forced
// execution. A nil error accepts the transition.
type App interface {
	ValidTransition(params wire.Params, from, to wire.State, actorIdx int) error
}

// AppRegistry maps app ids to their implementation.
type AppRegistry struct {
	mu   pkgsync.Mutex
	apps map[string]App
}

// NewAppRegistry creates an empty registry.
func NewAppRegistry() *AppRegistry {
	return &AppRegistry{apps: make(map[string]App)}
}

// Register makes app the implementation of id.
func (r *AppRegistry) Register(id types.AppID, app App) error {
	if id.IsNoApp() {
		return errors.New("cannot register an implementation for NoApp")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[id.MapKey()] = app
	return nil
}

// Lookup returns the implementation of id.
func (r *AppRegistry) Lookup(id types.AppID) (App, error) {
	if id.IsNoApp() {
		return nil, ErrNoApp
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id.MapKey()]
	if !ok {
		return nil, ErrUnknownApp
	}
	return app, nil
}

// TrivialApp accepts every transition.
type TrivialApp struct{}

func (TrivialApp) ValidTransition(wire.Params, wire.State, wire.State, int) error {
	return nil
}

// RejectingApp rejects every transition.
type RejectingApp struct{}

func (RejectingApp) ValidTransition(wire.Params, wire.State, wire.State, int) error {
	return errors.New("transition rejected by app")
}
