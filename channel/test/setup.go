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

// Package test provides an in-memory ledger with funded accounts, asset
// holders and an adjudicator for tests.
package test

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	pwallet "perun.network/go-perun/wallet"
	pkgtest "polycry.pt/poly-go/test"

	"perun.network/perun-adjudicator/channel"
	"perun.network/perun-adjudicator/channel/types"
	"perun.network/perun-adjudicator/ledger"
	"perun.network/perun-adjudicator/wallet"
	wtypes "perun.network/perun-adjudicator/wallet/types"
	"perun.network/perun-adjudicator/wire"
)

const (
	// StartTime is the initial ledger time of a Setup.
	StartTime = 1_000
	// ChallengeDuration is the challenge duration of channels made by Setup.
	ChallengeDuration = 60
	// InitialBalance is minted to every account for every asset.
	InitialBalance = 1_000_000
)

// Setup is a ledger populated for channel tests. The first asset is held
// in a native vault, all others in token vaults.
type Setup struct {
	T        *testing.T
	Rng      *rand.Rand
	Clock    *ledger.SimClock
	Ledger   *ledger.Ledger
	Adj      *channel.Adjudicator
	Wallet   *wallet.EphemeralWallet
	Accounts []*wallet.Account
	Assets   []types.Asset
	Holders  []*channel.AssetHolder
	App      types.AppID
}

// NewSetup creates a Setup with numAccounts funded accounts and numAssets
// assets. App is registered as a TrivialApp.
func NewSetup(t *testing.T, numAccounts, numAssets int) *Setup {
	t.Helper()
	rng := pkgtest.Prng(t)
	clock := ledger.NewSimClock(StartTime)
	l, err := ledger.NewMemory(clock)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() }) //nolint:errcheck

	authority, err := wallet.NewRandomAccount(rng)
	require.NoError(t, err)
	apps := channel.NewAppRegistry()
	app := NewRandomApp(rng)
	require.NoError(t, apps.Register(app, channel.TrivialApp{}))

	s := &Setup{
		T:      t,
		Rng:    rng,
		Clock:  clock,
		Ledger: l,
		Adj:    channel.NewAdjudicator(l, authority.Participant(), apps),
		Wallet: wallet.NewEphemeralWallet(),
		App:    app,
	}
	for i := 0; i < numAccounts; i++ {
		acc, err := s.Wallet.AddNewAccount(rng)
		require.NoError(t, err)
		s.Accounts = append(s.Accounts, acc)
	}
	for i := 0; i < numAssets; i++ {
		asset := NewRandomAsset(rng)
		var vault channel.Vault
		if i == 0 {
			vault = channel.NewNativeVault(asset)
		} else {
			vault = channel.NewTokenVault(asset)
		}
		h := channel.NewAssetHolder(asset, authority.Participant(), vault)
		require.NoError(t, s.Adj.AddAssetHolder(h))
		s.Assets = append(s.Assets, asset)
		s.Holders = append(s.Holders, h)
	}
	require.NoError(t, l.Exec(func(tx *ledger.Tx) error {
		for _, h := range s.Holders {
			for _, acc := range s.Accounts {
				if err := h.Vault().Mint(tx, acc.Participant(), big.NewInt(InitialBalance)); err != nil {
					return err
				}
				if tv, ok := h.Vault().(*channel.TokenVault); ok {
					if err := tv.Approve(tx, acc.Participant(), big.NewInt(InitialBalance)); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}))
	return s
}

// Participants returns the participants of the given accounts.
func Participants(accs ...*wallet.Account) []wtypes.Participant {
	parts := make([]wtypes.Participant, len(accs))
	for i, acc := range accs {
		parts[i] = acc.Participant()
	}
	return parts
}

// NewParams returns parameters of a fresh channel between accs.
func (s *Setup) NewParams(app types.AppID, accs ...*wallet.Account) wire.Params {
	return wire.Params{
		App:               app,
		ChallengeDuration: ChallengeDuration,
		Nonce:             NewRandomNonce(s.Rng),
		Participants:      Participants(accs...),
	}
}

// NewState returns version 0 of the channel with balances[k] of asset k.
func (s *Setup) NewState(params wire.Params, balances ...[]int64) wire.State {
	s.T.Helper()
	cid, err := params.ID()
	require.NoError(s.T, err)
	outcome := wire.Allocation{
		Assets:   append([]types.Asset(nil), s.Assets[:len(balances)]...),
		Balances: make([][]*big.Int, len(balances)),
	}
	for k, bals := range balances {
		outcome.Balances[k] = Ints(bals...)
	}
	return wire.State{ChannelID: cid, Outcome: outcome}
}

// Ints converts int64 balances to big.Ints.
func Ints(vals ...int64) []*big.Int {
	bals := make([]*big.Int, len(vals))
	for i, v := range vals {
		bals[i] = big.NewInt(v)
	}
	return bals
}

// Sign returns the signatures of all participants of params on state.
func (s *Setup) Sign(params wire.Params, state wire.State) []pwallet.Sig {
	s.T.Helper()
	msg, err := wire.Encode(state)
	require.NoError(s.T, err)
	sigs, err := s.Wallet.Sign(msg, params.Participants...)
	require.NoError(s.T, err)
	return sigs
}

// SignBy returns the signature of participant idx of params on state.
func (s *Setup) SignBy(params wire.Params, state wire.State, idx int) pwallet.Sig {
	return s.Sign(params, state)[idx]
}

// Deposit deposits amount of asset k into the funding id of participant
// idx of the channel.
func (s *Setup) Deposit(params wire.Params, k, idx int, amount int64) error {
	s.T.Helper()
	cid, err := params.ID()
	require.NoError(s.T, err)
	part := params.Participants[idx]
	fid, err := wire.FundingID(cid, part)
	require.NoError(s.T, err)
	h := s.Holders[k]
	value := big.NewInt(0)
	if k == 0 {
		value = big.NewInt(amount)
	}
	return s.Ledger.Exec(func(tx *ledger.Tx) error {
		return h.Deposit(tx, part, fid, big.NewInt(amount), value)
	})
}

// Fund deposits the balances of state for every participant.
func (s *Setup) Fund(params wire.Params, state wire.State) {
	s.T.Helper()
	for k, bals := range state.Outcome.Balances {
		for i, bal := range bals {
			if bal.Sign() > 0 {
				require.NoError(s.T, s.Deposit(params, k, i, bal.Int64()))
			}
		}
	}
}

// Holdings returns the holdings of asset k of participant idx.
func (s *Setup) Holdings(params wire.Params, k, idx int) *big.Int {
	s.T.Helper()
	cid, err := params.ID()
	require.NoError(s.T, err)
	fid, err := wire.FundingID(cid, params.Participants[idx])
	require.NoError(s.T, err)
	var holdings *big.Int
	require.NoError(s.T, s.Ledger.View(func(r ledger.Reader) error {
		holdings, err = s.Holders[k].Holdings(r, fid)
		return err
	}))
	return holdings
}

// Balance returns the vault balance of asset k of p.
func (s *Setup) Balance(k int, p wtypes.Participant) *big.Int {
	s.T.Helper()
	var bal *big.Int
	require.NoError(s.T, s.Ledger.View(func(r ledger.Reader) (err error) {
		bal, err = s.Holders[k].Vault().BalanceOf(r, p)
		return err
	}))
	return bal
}

// Withdraw withdraws amount of asset k of participant idx to receiver,
// signed by the participant.
func (s *Setup) Withdraw(params wire.Params, k, idx int, receiver wtypes.Participant, amount int64) error {
	s.T.Helper()
	cid, err := params.ID()
	require.NoError(s.T, err)
	auth := wire.Authorization{
		ChannelID:   cid,
		Participant: params.Participants[idx],
		Receiver:    receiver,
		Amount:      big.NewInt(amount),
	}
	msg, err := wire.Encode(auth)
	require.NoError(s.T, err)
	sigs, err := s.Wallet.Sign(msg, auth.Participant)
	require.NoError(s.T, err)
	return s.Ledger.Exec(func(tx *ledger.Tx) error {
		return s.Holders[k].Withdraw(tx, auth, sigs[0])
	})
}
