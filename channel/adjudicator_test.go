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

package channel_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	pchannel "perun.network/go-perun/channel"
	pwallet "perun.network/go-perun/wallet"

	"perun.network/perun-adjudicator/channel"
	chtest "perun.network/perun-adjudicator/channel/test"
	"perun.network/perun-adjudicator/channel/types"
	"perun.network/perun-adjudicator/event"
	wtypes "perun.network/perun-adjudicator/wallet/types"
	"perun.network/perun-adjudicator/wire"
)

func withVersion(s wire.State, version uint64) wire.State {
	next := s.Clone()
	next.Version = version
	return next
}

func withBalances(s wire.State, k int, bals ...int64) wire.State {
	next := s.Clone()
	next.Outcome.Balances[k] = chtest.Ints(bals...)
	return next
}

func requireAmount(t *testing.T, want int64, got *big.Int) {
	t.Helper()
	require.Zerof(t, big.NewInt(want).Cmp(got), "want %d, got %s", want, got)
}

func requireRecord(t *testing.T, s *chtest.Setup, cid pchannel.ID) wire.Dispute {
	t.Helper()
	d, found, err := s.Adj.Dispute(cid)
	require.NoError(t, err)
	require.True(t, found, "channel must be registered")
	return d
}

func requireNoRecord(t *testing.T, s *chtest.Setup, cid pchannel.ID) {
	t.Helper()
	_, found, err := s.Adj.Dispute(cid)
	require.NoError(t, err)
	require.False(t, found, "channel must not be registered")
}

func TestRegisterConclude(t *testing.T) {
	s := chtest.NewSetup(t, 2, 1)
	alice, bob := s.Accounts[0], s.Accounts[1]
	params := s.NewParams(types.NoApp(), alice, bob)
	state := s.NewState(params, []int64{10, 20})
	s.Fund(params, state)

	v2 := withVersion(state, 2)
	require.NoError(t, s.Adj.Register(params, v2, s.Sign(params, v2)))
	d := requireRecord(t, s, v2.ChannelID)
	require.Equal(t, wire.PhaseDispute, d.Phase)
	require.Equal(t, uint64(chtest.StartTime+chtest.ChallengeDuration), d.Timeout)
	require.Equal(t, uint64(2), d.Version)
	require.False(t, d.HasApp)

	err := s.Adj.Conclude(params, v2, nil)
	require.ErrorIs(t, err, channel.ErrTimeoutNotElapsed)

	s.Clock.Advance(chtest.ChallengeDuration)
	require.NoError(t, s.Adj.Conclude(params, v2, nil))
	d = requireRecord(t, s, v2.ChannelID)
	require.Equal(t, wire.PhaseConcluded, d.Phase)
	require.Equal(t, uint64(2), d.Version)

	requireAmount(t, 10, s.Holdings(params, 0, 0))
	requireAmount(t, 20, s.Holdings(params, 0, 1))

	require.NoError(t, s.Withdraw(params, 0, 0, alice.Participant(), 10))
	require.NoError(t, s.Withdraw(params, 0, 1, bob.Participant(), 20))
	requireAmount(t, chtest.InitialBalance, s.Balance(0, alice.Participant()))
	requireAmount(t, chtest.InitialBalance, s.Balance(0, bob.Participant()))
	require.Zero(t, s.Holdings(params, 0, 0).Sign())
}

func TestRefute(t *testing.T) {
	s := chtest.NewSetup(t, 2, 1)
	params := s.NewParams(types.NoApp(), s.Accounts[0], s.Accounts[1])
	state := s.NewState(params, []int64{10, 20})
	s.Fund(params, state)

	v3, v4, v5 := withVersion(state, 3), withVersion(state, 4), withVersion(state, 5)
	require.NoError(t, s.Adj.Register(params, v3, s.Sign(params, v3)))
	timeout := requireRecord(t, s, state.ChannelID).Timeout

	s.Clock.Advance(chtest.ChallengeDuration / 2)
	require.NoError(t, s.Adj.Register(params, v5, s.Sign(params, v5)))
	d := requireRecord(t, s, state.ChannelID)
	require.Equal(t, uint64(5), d.Version)
	require.Equal(t, timeout, d.Timeout, "refutation must not extend the timeout")

	require.ErrorIs(t, s.Adj.Register(params, v4, s.Sign(params, v4)), channel.ErrVersionTooLow)
	require.ErrorIs(t, s.Adj.Register(params, v5, s.Sign(params, v5)), channel.ErrVersionTooLow)

	s.Clock.Advance(chtest.ChallengeDuration / 2)
	v6 := withVersion(state, 6)
	require.ErrorIs(t, s.Adj.Register(params, v6, s.Sign(params, v6)), channel.ErrTimeoutElapsed)

	require.ErrorIs(t, s.Adj.Conclude(params, v3, nil), channel.ErrStateMismatch)
	require.NoError(t, s.Adj.Conclude(params, v5, nil))

	require.ErrorIs(t, s.Adj.Conclude(params, v5, nil), channel.ErrAlreadyConcluded)
	err := s.Adj.Register(params, v6, s.Sign(params, v6))
	require.ErrorIs(t, err, channel.ErrAlreadyConcluded)
	require.ErrorIs(t, err, channel.ErrAlreadyRegistered, "a concluded channel is past the dispute phase")
	require.Equal(t, channel.CategorySequencing, channel.ErrorCategory(err))
}

func TestRegisterInvalid(t *testing.T) {
	s := chtest.NewSetup(t, 3, 1)
	params := s.NewParams(types.NoApp(), s.Accounts[0], s.Accounts[1])
	state := s.NewState(params, []int64{10, 20})
	sigs := s.Sign(params, state)

	t.Run("signature count", func(t *testing.T) {
		err := s.Adj.Register(params, state, sigs[:1])
		require.ErrorIs(t, err, channel.ErrSignatureCount)
		require.Equal(t, channel.CategoryMalformedInput, channel.ErrorCategory(err))
	})
	t.Run("swapped signatures", func(t *testing.T) {
		err := s.Adj.Register(params, state, []pwallet.Sig{sigs[1], sigs[0]})
		require.ErrorIs(t, err, channel.ErrInvalidSignature)
		require.Equal(t, channel.CategoryAuthentication, channel.ErrorCategory(err))
	})
	t.Run("signature of outsider", func(t *testing.T) {
		outsider := s.NewParams(types.NoApp(), s.Accounts[2], s.Accounts[1])
		err := s.Adj.Register(params, state, []pwallet.Sig{s.Sign(outsider, state)[0], sigs[1]})
		require.ErrorIs(t, err, channel.ErrInvalidSignature)
	})
	t.Run("foreign params", func(t *testing.T) {
		other := s.NewParams(types.NoApp(), s.Accounts[0], s.Accounts[1])
		err := s.Adj.Register(other, state, sigs)
		require.ErrorIs(t, err, channel.ErrInvalidParams)
	})
	t.Run("zero challenge duration", func(t *testing.T) {
		p := params
		p.ChallengeDuration = 0
		require.ErrorIs(t, s.Adj.Register(p, state, sigs), channel.ErrInvalidParams)
	})
	t.Run("balance cardinality", func(t *testing.T) {
		bad := withBalances(state, 0, 10, 20, 30)
		require.ErrorIs(t, s.Adj.Register(params, bad, s.Sign(params, bad)), channel.ErrInvalidState)
	})

	requireNoRecord(t, s, state.ChannelID)
}

func TestProgress(t *testing.T) {
	s := chtest.NewSetup(t, 2, 1)
	params := s.NewParams(s.App, s.Accounts[0], s.Accounts[1])
	v0 := s.NewState(params, []int64{10, 20})
	s.Fund(params, v0)
	require.NoError(t, s.Adj.Register(params, v0, s.Sign(params, v0)))

	v1 := withBalances(withVersion(v0, 1), 0, 15, 15)
	err := s.Adj.Progress(params, v0, v1, 0, s.SignBy(params, v1, 0))
	require.ErrorIs(t, err, channel.ErrTimeoutNotElapsed)

	s.Clock.Advance(chtest.ChallengeDuration)
	progressStart := s.Ledger.Now()

	t.Run("invalid", func(t *testing.T) {
		require.ErrorIs(t, s.Adj.Progress(params, v0, v1, 2, s.SignBy(params, v1, 0)), channel.ErrActorIndex)
		require.ErrorIs(t, s.Adj.Progress(params, v0, v1, 0, s.SignBy(params, v1, 1)), channel.ErrInvalidSignature)

		skip := withVersion(v1, 2)
		require.ErrorIs(t, s.Adj.Progress(params, v0, skip, 0, s.SignBy(params, skip, 0)), channel.ErrVersionNotIncremented)

		inflate := withBalances(v1, 0, 15, 16)
		err := s.Adj.Progress(params, v0, inflate, 0, s.SignBy(params, inflate, 0))
		require.ErrorIs(t, err, channel.ErrBalanceMismatch)
		require.Equal(t, channel.CategoryConsistency, channel.ErrorCategory(err))

		final := v0.Clone()
		final.IsFinal = true
		next := withVersion(final, 1)
		require.ErrorIs(t, s.Adj.Progress(params, final, next, 0, s.SignBy(params, next, 0)), channel.ErrFinalState)

		noApp := s.NewParams(types.NoApp(), s.Accounts[0], s.Accounts[1])
		require.ErrorIs(t, s.Adj.Progress(noApp, v0, v1, 0, nil), channel.ErrNoApp)
	})

	require.NoError(t, s.Adj.Progress(params, v0, v1, 0, s.SignBy(params, v1, 0)))
	d := requireRecord(t, s, v0.ChannelID)
	require.Equal(t, wire.PhaseForceExec, d.Phase)
	require.Equal(t, uint64(1), d.Version)
	require.Equal(t, progressStart+chtest.ChallengeDuration, d.Timeout)

	// The registered state moved on, v0 is stale now.
	require.ErrorIs(t, s.Adj.Progress(params, v0, v1, 0, s.SignBy(params, v1, 0)), channel.ErrStateMismatch)
	require.ErrorIs(t, s.Adj.Conclude(params, v1, nil), channel.ErrTimeoutNotElapsed)
	require.ErrorIs(t, s.Adj.Register(params, withVersion(v1, 7), s.Sign(params, withVersion(v1, 7))), channel.ErrAlreadyRegistered)

	v2 := withBalances(withVersion(v1, 2), 0, 5, 25)
	require.NoError(t, s.Adj.Progress(params, v1, v2, 1, s.SignBy(params, v2, 1)))

	s.Clock.Advance(chtest.ChallengeDuration)
	v3 := withVersion(v2, 3)
	require.ErrorIs(t, s.Adj.Progress(params, v2, v3, 0, s.SignBy(params, v3, 0)), channel.ErrTimeoutElapsed)

	require.NoError(t, s.Adj.Conclude(params, v2, nil))
	requireAmount(t, 5, s.Holdings(params, 0, 0))
	requireAmount(t, 25, s.Holdings(params, 0, 1))
}

func TestProgressRejectedByApp(t *testing.T) {
	s := chtest.NewSetup(t, 2, 1)
	app := chtest.NewRandomApp(s.Rng)
	require.NoError(t, s.Adj.Apps().Register(app, channel.RejectingApp{}))
	params := s.NewParams(app, s.Accounts[0], s.Accounts[1])
	v0 := s.NewState(params, []int64{10, 20})
	require.NoError(t, s.Adj.Register(params, v0, s.Sign(params, v0)))
	s.Clock.Advance(chtest.ChallengeDuration)

	v1 := withVersion(v0, 1)
	err := s.Adj.Progress(params, v0, v1, 0, s.SignBy(params, v1, 0))
	require.ErrorIs(t, err, channel.ErrInvalidTransition)

	unknown := s.NewParams(chtest.NewRandomApp(s.Rng), s.Accounts[0], s.Accounts[1])
	u0 := s.NewState(unknown, []int64{10, 20})
	u1 := withVersion(u0, 1)
	require.ErrorIs(t, s.Adj.Progress(unknown, u0, u1, 0, s.SignBy(unknown, u1, 0)), channel.ErrUnknownApp)

	d := requireRecord(t, s, v0.ChannelID)
	require.Equal(t, wire.PhaseDispute, d.Phase)
	require.Zero(t, d.Version)
}

func TestConcludeWithAppWaitsForForceExecution(t *testing.T) {
	s := chtest.NewSetup(t, 2, 1)
	params := s.NewParams(s.App, s.Accounts[0], s.Accounts[1])
	state := s.NewState(params, []int64{10, 20})
	s.Fund(params, state)
	require.NoError(t, s.Adj.Register(params, state, s.Sign(params, state)))
	require.True(t, requireRecord(t, s, state.ChannelID).HasApp)

	s.Clock.Advance(chtest.ChallengeDuration)
	require.ErrorIs(t, s.Adj.Conclude(params, state, nil), channel.ErrTimeoutNotElapsed)
	s.Clock.Advance(chtest.ChallengeDuration)
	require.NoError(t, s.Adj.Conclude(params, state, nil))
}

func TestConcludeFinal(t *testing.T) {
	s := chtest.NewSetup(t, 2, 2)
	params := s.NewParams(types.NoApp(), s.Accounts[0], s.Accounts[1])
	state := s.NewState(params, []int64{10, 20}, []int64{3, 4})
	s.Fund(params, state)

	final := withBalances(withBalances(withVersion(state, 3), 0, 25, 5), 1, 7, 0)
	final.IsFinal = true

	notFinal := withVersion(final, 3)
	notFinal.IsFinal = false
	require.ErrorIs(t, s.Adj.ConcludeFinal(params, notFinal, s.Sign(params, notFinal)), channel.ErrNotFinal)

	locking := final.Clone()
	locking.Outcome.Locked = []wire.SubAlloc{{ID: pchannel.ID{1}, Balances: chtest.Ints(0, 0)}}
	require.ErrorIs(t, s.Adj.ConcludeFinal(params, locking, s.Sign(params, locking)), channel.ErrLockedNotEmpty)
	requireNoRecord(t, s, state.ChannelID)

	require.NoError(t, s.Adj.ConcludeFinal(params, final, s.Sign(params, final)))
	d := requireRecord(t, s, state.ChannelID)
	require.Equal(t, wire.PhaseConcluded, d.Phase)
	require.Equal(t, uint64(3), d.Version)

	requireAmount(t, 25, s.Holdings(params, 0, 0))
	requireAmount(t, 5, s.Holdings(params, 0, 1))
	requireAmount(t, 7, s.Holdings(params, 1, 0))
	require.Zero(t, s.Holdings(params, 1, 1).Sign())

	require.ErrorIs(t, s.Adj.ConcludeFinal(params, final, s.Sign(params, final)), channel.ErrAlreadyConcluded)
}

func TestConcludeFinalOverridesDispute(t *testing.T) {
	s := chtest.NewSetup(t, 2, 1)
	params := s.NewParams(s.App, s.Accounts[0], s.Accounts[1])
	state := s.NewState(params, []int64{10, 20})
	s.Fund(params, state)

	v5 := withVersion(state, 5)
	require.NoError(t, s.Adj.Register(params, v5, s.Sign(params, v5)))

	// A final state ends the channel immediately, whatever was registered.
	final := withBalances(withVersion(state, 3), 0, 30, 0)
	final.IsFinal = true
	require.NoError(t, s.Adj.ConcludeFinal(params, final, s.Sign(params, final)))

	d := requireRecord(t, s, state.ChannelID)
	require.Equal(t, wire.PhaseConcluded, d.Phase)
	require.Equal(t, uint64(3), d.Version)
	requireAmount(t, 30, s.Holdings(params, 0, 0))
	require.ErrorIs(t, s.Adj.Conclude(params, v5, nil), channel.ErrAlreadyConcluded)
}

func TestUnderfundedOutcome(t *testing.T) {
	s := chtest.NewSetup(t, 2, 1)
	params := s.NewParams(types.NoApp(), s.Accounts[0], s.Accounts[1])
	final := s.NewState(params, []int64{10, 20})
	final.IsFinal = true
	require.NoError(t, s.Deposit(params, 0, 1, 20))

	require.NoError(t, s.Adj.ConcludeFinal(params, final, s.Sign(params, final)))
	requireAmount(t, 10, s.Holdings(params, 0, 0))
	requireAmount(t, 10, s.Holdings(params, 0, 1))
}

func TestOverfundedOutcome(t *testing.T) {
	s := chtest.NewSetup(t, 2, 1)
	params := s.NewParams(types.NoApp(), s.Accounts[0], s.Accounts[1])
	final := s.NewState(params, []int64{10, 20})
	final.IsFinal = true
	require.NoError(t, s.Deposit(params, 0, 0, 15))
	require.NoError(t, s.Deposit(params, 0, 1, 20))

	require.NoError(t, s.Adj.ConcludeFinal(params, final, s.Sign(params, final)))
	requireAmount(t, 10, s.Holdings(params, 0, 0))
	requireAmount(t, 20, s.Holdings(params, 0, 1))
}

func TestConcludeUnknownAsset(t *testing.T) {
	s := chtest.NewSetup(t, 2, 1)
	params := s.NewParams(types.NoApp(), s.Accounts[0], s.Accounts[1])
	final := s.NewState(params, []int64{10, 20})
	final.Outcome.Assets[0] = chtest.NewRandomAsset(s.Rng)
	final.IsFinal = true

	err := s.Adj.ConcludeFinal(params, final, s.Sign(params, final))
	require.ErrorIs(t, err, channel.ErrUnknownAsset)
	requireNoRecord(t, s, final.ChannelID)
}

func TestSubchannels(t *testing.T) {
	s := chtest.NewSetup(t, 3, 1)
	alice, bob, carol := s.Accounts[0], s.Accounts[1], s.Accounts[2]

	subParams := s.NewParams(types.NoApp(), bob, alice)
	sub := s.NewState(subParams, []int64{5, 7})
	sub.Version = 4
	sub.IsFinal = true

	params := s.NewParams(types.NoApp(), alice, bob)
	parent := s.NewState(params, []int64{10, 20})
	parent.Version = 1
	parent.Outcome.Locked = []wire.SubAlloc{{ID: sub.ChannelID, Balances: chtest.Ints(12)}}
	require.NoError(t, s.Deposit(params, 0, 0, 17))
	require.NoError(t, s.Deposit(params, 0, 1, 25))
	require.NoError(t, s.Adj.Register(params, parent, s.Sign(params, parent)))
	s.Clock.Advance(chtest.ChallengeDuration)

	subStates := []channel.SubState{{Params: subParams, State: sub}}
	require.ErrorIs(t, s.Adj.Conclude(params, parent, nil), channel.ErrSubchannelCount)
	require.ErrorIs(t, s.Adj.Conclude(params, parent, subStates), channel.ErrSubchannelNotConcluded)

	t.Run("mismatching sub-states", func(t *testing.T) {
		short := withBalances(sub, 0, 5, 6)
		_, err := s.Adj.SettledState(params, parent, []channel.SubState{{Params: subParams, State: short}})
		require.ErrorIs(t, err, channel.ErrSubchannelMismatch)

		foreignParams := s.NewParams(types.NoApp(), bob, carol)
		foreign := s.NewState(foreignParams, []int64{5, 7})
		foreignParent := parent.Clone()
		foreignParent.Outcome.Locked[0].ID = foreign.ChannelID
		_, err = s.Adj.SettledState(params, foreignParent, []channel.SubState{{Params: foreignParams, State: foreign}})
		require.ErrorIs(t, err, channel.ErrSubchannelMismatch)
		require.Equal(t, []wtypes.Participant{bob.Participant(), carol.Participant()}, foreignParams.Participants)
	})

	require.NoError(t, s.Adj.ConcludeFinal(subParams, sub, s.Sign(subParams, sub)))
	require.NoError(t, s.Adj.Conclude(params, parent, subStates))

	requireAmount(t, 17, s.Holdings(params, 0, 0))
	requireAmount(t, 25, s.Holdings(params, 0, 1))

	settled, err := s.Adj.SettledState(params, parent, subStates)
	require.NoError(t, err)
	require.Empty(t, settled.Outcome.Locked)
	requireAmount(t, 17, settled.Outcome.Balances[0][0])
	requireAmount(t, 25, settled.Outcome.Balances[0][1])
	hash, err := settled.Hash()
	require.NoError(t, err)
	require.Equal(t, hash, requireRecord(t, s, parent.ChannelID).StateHash)
}

func TestNestedSubchannels(t *testing.T) {
	s := chtest.NewSetup(t, 2, 1)
	alice, bob := s.Accounts[0], s.Accounts[1]

	// The grandchild is locked in the child, which is locked in the parent
	// next to a sibling.
	gParams := s.NewParams(types.NoApp(), alice, bob)
	grandchild := s.NewState(gParams, []int64{1, 2})
	grandchild.IsFinal = true

	cParams := s.NewParams(s.App, alice, bob)
	child := s.NewState(cParams, []int64{4, 3})
	child.Outcome.Locked = []wire.SubAlloc{{ID: grandchild.ChannelID, Balances: chtest.Ints(3)}}

	xParams := s.NewParams(types.NoApp(), bob, alice)
	sibling := s.NewState(xParams, []int64{2, 4})
	sibling.IsFinal = true

	pParams := s.NewParams(types.NoApp(), alice, bob)
	parent := s.NewState(pParams, []int64{11, 24})
	parent.Outcome.Locked = []wire.SubAlloc{
		{ID: child.ChannelID, Balances: chtest.Ints(10)},
		{ID: sibling.ChannelID, Balances: chtest.Ints(6)},
	}
	require.NoError(t, s.Deposit(pParams, 0, 0, 20))
	require.NoError(t, s.Deposit(pParams, 0, 1, 31))

	require.NoError(t, s.Adj.ConcludeFinal(gParams, grandchild, s.Sign(gParams, grandchild)))

	require.NoError(t, s.Adj.Register(cParams, child, s.Sign(cParams, child)))
	s.Clock.Advance(2 * chtest.ChallengeDuration)
	gSubs := []channel.SubState{{Params: gParams, State: grandchild}}
	require.NoError(t, s.Adj.Conclude(cParams, child, gSubs))
	settledChild, err := s.Adj.SettledState(cParams, child, gSubs)
	require.NoError(t, err)
	requireAmount(t, 5, settledChild.Outcome.Balances[0][0])
	requireAmount(t, 5, settledChild.Outcome.Balances[0][1])
	hash, err := settledChild.Hash()
	require.NoError(t, err)
	require.Equal(t, hash, requireRecord(t, s, child.ChannelID).StateHash, "a concluded record commits its settled state")

	require.NoError(t, s.Adj.ConcludeFinal(xParams, sibling, s.Sign(xParams, sibling)))

	require.NoError(t, s.Adj.Register(pParams, parent, s.Sign(pParams, parent)))
	s.Clock.Advance(chtest.ChallengeDuration)

	raw := []channel.SubState{{Params: cParams, State: child}, {Params: xParams, State: sibling}}
	require.ErrorIs(t, s.Adj.Conclude(pParams, parent, raw), channel.ErrSubchannelMismatch)
	swapped := []channel.SubState{{Params: xParams, State: sibling}, {Params: cParams, State: settledChild}}
	require.ErrorIs(t, s.Adj.Conclude(pParams, parent, swapped), channel.ErrSubchannelMismatch)
	require.Equal(t, wire.PhaseDispute, requireRecord(t, s, parent.ChannelID).Phase)

	subs := []channel.SubState{{Params: cParams, State: settledChild}, {Params: xParams, State: sibling}}
	require.NoError(t, s.Adj.Conclude(pParams, parent, subs))
	require.Equal(t, wire.PhaseConcluded, requireRecord(t, s, parent.ChannelID).Phase)
	requireAmount(t, 11+5+4, s.Holdings(pParams, 0, 0))
	requireAmount(t, 24+5+2, s.Holdings(pParams, 0, 1))
}

func TestSubscription(t *testing.T) {
	s := chtest.NewSetup(t, 2, 1)
	params := s.NewParams(s.App, s.Accounts[0], s.Accounts[1])
	v0 := s.NewState(params, []int64{10, 20})
	s.Fund(params, v0)

	sub, err := s.Adj.Subscribe(v0.ChannelID)
	require.NoError(t, err)

	require.NoError(t, s.Adj.Register(params, v0, s.Sign(params, v0)))
	ev := sub.Next()
	require.IsType(t, &pchannel.RegisteredEvent{}, ev)
	require.Equal(t, v0.ChannelID, ev.ID())
	require.Equal(t, uint64(chtest.StartTime+chtest.ChallengeDuration), ev.Timeout().(*event.Timeout).When())

	s.Clock.Advance(chtest.ChallengeDuration)
	v1 := withVersion(v0, 1)
	require.NoError(t, s.Adj.Progress(params, v0, v1, 1, s.SignBy(params, v1, 1)))
	ev = sub.Next()
	require.IsType(t, &pchannel.ProgressedEvent{}, ev)
	require.Equal(t, uint64(1), ev.Version())

	s.Clock.Advance(chtest.ChallengeDuration)
	require.True(t, ev.Timeout().IsElapsed(context.Background()))
	require.NoError(t, s.Adj.Conclude(params, v1, nil))
	ev = sub.Next()
	require.IsType(t, &pchannel.ConcludedEvent{}, ev)

	require.NoError(t, sub.Close())
	require.Nil(t, sub.Next())
	require.NoError(t, sub.Err())
}

func TestFailedCallsLeaveNoTrace(t *testing.T) {
	s := chtest.NewSetup(t, 2, 2)
	params := s.NewParams(types.NoApp(), s.Accounts[0], s.Accounts[1])
	state := s.NewState(params, []int64{10, 20}, []int64{1, 2})

	// The token deposit exceeds the approved allowance, so the native one
	// before it must be rolled back as well.
	f := channel.NewFunder(s.Accounts[0], s.Adj)
	over := withBalances(state, 1, chtest.InitialBalance+1, 2)
	err := f.Fund(context.Background(), channel.FundingReq{Params: params, State: over, Idx: 0})
	require.ErrorIs(t, err, channel.ErrInsufficientAllowance)
	require.Equal(t, channel.CategoryCustody, channel.ErrorCategory(err))
	require.Zero(t, s.Holdings(params, 0, 0).Sign())
	requireAmount(t, chtest.InitialBalance, s.Balance(0, s.Accounts[0].Participant()))

	require.NoError(t, s.Adj.Register(params, state, s.Sign(params, state)))
	before := requireRecord(t, s, state.ChannelID)
	v1 := withVersion(state, 1)
	require.Error(t, s.Adj.Register(params, v1, s.Sign(params, state)))
	require.Equal(t, before, requireRecord(t, s, state.ChannelID))
}

func TestErrorCategory(t *testing.T) {
	require.Equal(t, channel.CategoryNone, channel.ErrorCategory(nil))
	require.Equal(t, channel.CategorySequencing, channel.ErrorCategory(channel.ErrNotRegistered))
	require.Equal(t, channel.CategoryCustody, channel.ErrorCategory(channel.ErrAlreadySettled))
	require.Equal(t, "sequencing violation", channel.CategorySequencing.String())
}

func TestBackend(t *testing.T) {
	s := chtest.NewSetup(t, 2, 1)
	params := s.NewParams(types.NoApp(), s.Accounts[0], s.Accounts[1])
	state := s.NewState(params, []int64{1, 2})

	id, err := channel.Backend.CalcID(params)
	require.NoError(t, err)
	require.Equal(t, state.ChannelID, id)

	sig, err := channel.Backend.Sign(s.Accounts[0], state)
	require.NoError(t, err)
	require.Equal(t, s.SignBy(params, state, 0), sig)

	ok, err := channel.Backend.Verify(params.Participants[0], state, sig)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = channel.Backend.Verify(params.Participants[1], state, sig)
	require.NoError(t, err)
	require.False(t, ok)
}
