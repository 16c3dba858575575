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
	"math/big"
	"time"

	"github.com/pkg/errors"
	"perun.network/go-perun/log"

	"perun.network/perun-adjudicator/ledger"
	"perun.network/perun-adjudicator/wallet"
	"perun.network/perun-adjudicator/wire"
)

const (
	MaxIterationsUntilAbort = 20
	DefaultPollingInterval  = 50 * time.Millisecond
)

// ErrFundingTimeout is returned by Fund if the other participants did not
// deposit their shares in time.
var ErrFundingTimeout = errors.New("channel was not funded in time")

// FundingReq asks the participant at Idx to fund its share of State.
type FundingReq struct {
	Params wire.Params
	State  wire.State
	Idx    int
}

// Funder deposits the share of one account into channels and waits until
// the channel is fully funded.
type Funder struct {
	log.Embedding

	acc             *wallet.Account
	adj             *Adjudicator
	maxIters        int
	pollingInterval time.Duration
}

// NewFunder returns a funder depositing from acc on the asset holders of adj.
func NewFunder(acc *wallet.Account, adj *Adjudicator) *Funder {
	return &Funder{
		Embedding:       log.MakeEmbedding(log.WithField("participant", acc.Participant())),
		acc:             acc,
		adj:             adj,
		maxIters:        MaxIterationsUntilAbort,
		pollingInterval: DefaultPollingInterval,
	}
}

// SetPolling changes how often and how long Fund polls for the deposits of
// the other participants.
func (f *Funder) SetPolling(maxIters int, interval time.Duration) {
	f.maxIters = maxIters
	f.pollingInterval = interval
}

// Fund deposits the account's balances of every asset of req.State into
// its funding ids and blocks until all participants are funded.
func (f *Funder) Fund(ctx context.Context, req FundingReq) error {
	if req.Idx < 0 || req.Idx >= req.Params.NumParts() {
		return errors.WithMessagef(ErrActorIndex, "funding index %d", req.Idx)
	}
	if !req.Params.Participants[req.Idx].Equal(f.acc.Participant()) {
		return errors.Errorf("account %s is not participant %d", f.acc.Participant(), req.Idx)
	}
	if err := checkParamsState(req.Params, req.State); err != nil {
		return err
	}
	if err := f.deposit(req); err != nil {
		return errors.WithMessage(err, "depositing")
	}

	for i := 0; i < f.maxIters; i++ {
		funded, err := f.Funded(req.Params, req.State)
		if err != nil {
			return err
		}
		if funded {
			f.Log().WithField("channel", req.State.ChannelID).Debug("Channel funded")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.pollingInterval):
		}
	}
	return ErrFundingTimeout
}

func (f *Funder) deposit(req FundingReq) error {
	part := f.acc.Participant()
	fid, err := wire.FundingID(req.State.ChannelID, part)
	if err != nil {
		return err
	}
	holders, err := f.adj.holdersFor(req.State.Outcome.Assets)
	if err != nil {
		return err
	}
	return f.adj.Ledger().Exec(func(tx *ledger.Tx) error {
		for k, h := range holders {
			amount := req.State.Outcome.Balances[k][req.Idx]
			if amount.Sign() == 0 {
				continue
			}
			if err := h.Deposit(tx, part, fid, amount, attachedValue(h.Vault(), amount)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Funded reports whether the holdings of every participant cover its
// balance in state for every asset.
func (f *Funder) Funded(params wire.Params, state wire.State) (bool, error) {
	fids, err := wire.FundingIDs(state.ChannelID, params.Participants)
	if err != nil {
		return false, err
	}
	holders, err := f.adj.holdersFor(state.Outcome.Assets)
	if err != nil {
		return false, err
	}
	funded := true
	err = f.adj.Ledger().View(func(r ledger.Reader) error {
		for k, h := range holders {
			for i, fid := range fids {
				holdings, err := h.Holdings(r, fid)
				if err != nil {
					return err
				}
				if holdings.Cmp(state.Outcome.Balances[k][i]) < 0 {
					funded = false
					return nil
				}
			}
		}
		return nil
	})
	return funded && err == nil, err
}

// attachedValue is the native value a deposit of amount into v carries.
func attachedValue(v Vault, amount *big.Int) *big.Int {
	if _, ok := v.(*NativeVault); ok {
		return amount
	}
	return new(big.Int)
}
