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

package wire_test

import (
	"encoding/hex"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/require"
	pchannel "perun.network/go-perun/channel"
	pkgtest "polycry.pt/poly-go/test"

	"perun.network/perun-adjudicator/channel/types"
	"perun.network/perun-adjudicator/wallet"
	wtypes "perun.network/perun-adjudicator/wallet/types"
	"perun.network/perun-adjudicator/wire"
)

func randomParticipants(t *testing.T, rng *rand.Rand, n int) []wtypes.Participant {
	t.Helper()
	parts := make([]wtypes.Participant, n)
	for i := range parts {
		acc, err := wallet.NewRandomAccount(rng)
		require.NoError(t, err)
		parts[i] = acc.Participant()
	}
	return parts
}

func randomHash(rng *rand.Rand) xdr.Hash {
	var h xdr.Hash
	rng.Read(h[:])
	return h
}

func randomParams(t *testing.T, rng *rand.Rand) wire.Params {
	t.Helper()
	return wire.Params{
		App:               types.NewAppID(randomHash(rng)),
		ChallengeDuration: uint64(rng.Intn(1000) + 1),
		Nonce:             new(big.Int).SetUint64(rng.Uint64()),
		Participants:      randomParticipants(t, rng, 2),
	}
}

func randomState(t *testing.T, rng *rand.Rand, params wire.Params, numLocked int) wire.State {
	t.Helper()
	id, err := params.ID()
	require.NoError(t, err)
	assets := []types.Asset{types.NewAsset(randomHash(rng)), types.NewAsset(randomHash(rng))}
	alloc := wire.Allocation{Assets: assets, Balances: make([][]*big.Int, len(assets))}
	for i := range assets {
		for range params.Participants {
			alloc.Balances[i] = append(alloc.Balances[i], big.NewInt(rng.Int63n(1<<40)))
		}
	}
	for i := 0; i < numLocked; i++ {
		var subID pchannel.ID
		rng.Read(subID[:])
		alloc.Locked = append(alloc.Locked, wire.SubAlloc{
			ID:       subID,
			Balances: []*big.Int{big.NewInt(rng.Int63()), big.NewInt(rng.Int63())},
		})
	}
	return wire.State{
		ChannelID: id,
		Version:   rng.Uint64(),
		Outcome:   alloc,
		AppData:   []byte{1, 2, 3},
		IsFinal:   rng.Intn(2) == 0,
	}
}

func TestParamsRoundTrip(t *testing.T) {
	rng := pkgtest.Prng(t)
	for _, app := range []types.AppID{types.NoApp(), types.NewAppID(randomHash(rng))} {
		p := randomParams(t, rng)
		p.App = app
		require.NoError(t, p.Valid())

		data, err := p.MarshalBinary()
		require.NoError(t, err)
		var q wire.Params
		require.NoError(t, q.UnmarshalBinary(data))

		require.True(t, p.App.Equal(q.App))
		require.Equal(t, p.ChallengeDuration, q.ChallengeDuration)
		require.Zero(t, p.Nonce.Cmp(q.Nonce))
		require.Len(t, q.Participants, len(p.Participants))
		for i := range p.Participants {
			require.True(t, p.Participants[i].Equal(q.Participants[i]))
		}

		idP, err := p.ID()
		require.NoError(t, err)
		idQ, err := q.ID()
		require.NoError(t, err)
		require.Equal(t, idP, idQ)
	}
}

func TestParamsValid(t *testing.T) {
	rng := pkgtest.Prng(t)
	p := randomParams(t, rng)
	require.NoError(t, p.Valid())

	single := p
	single.Participants = p.Participants[:1]
	require.Error(t, single.Valid())

	dup := p
	dup.Participants = []wtypes.Participant{p.Participants[0], p.Participants[0]}
	require.Error(t, dup.Valid())

	zero := p
	zero.ChallengeDuration = 0
	require.Error(t, zero.Valid())

	bigNonce := p
	bigNonce.Nonce = new(big.Int).Lsh(big.NewInt(1), 256)
	require.Error(t, bigNonce.Valid())
	_, err := bigNonce.MarshalBinary()
	require.Error(t, err)
}

func TestChannelIDDistinct(t *testing.T) {
	rng := pkgtest.Prng(t)
	p := randomParams(t, rng)
	id, err := wire.ChannelID(p)
	require.NoError(t, err)

	variants := []func(q *wire.Params){
		func(q *wire.Params) { q.ChallengeDuration++ },
		func(q *wire.Params) { q.Nonce = new(big.Int).Add(q.Nonce, big.NewInt(1)) },
		func(q *wire.Params) { q.App = types.NoApp() },
		func(q *wire.Params) {
			q.Participants = []wtypes.Participant{q.Participants[1], q.Participants[0]}
		},
	}
	for _, mutate := range variants {
		q := p
		q.Participants = append([]wtypes.Participant(nil), p.Participants...)
		mutate(&q)
		other, err := wire.ChannelID(q)
		require.NoError(t, err)
		require.NotEqual(t, id, other)
	}
}

func TestFundingID(t *testing.T) {
	rng := pkgtest.Prng(t)
	p := randomParams(t, rng)
	id, err := p.ID()
	require.NoError(t, err)

	ids, err := wire.FundingIDs(id, p.Participants)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.NotEqual(t, ids[0], ids[1])
	require.NotEqual(t, id, ids[0])

	again, err := wire.FundingID(id, p.Participants[0])
	require.NoError(t, err)
	require.Equal(t, ids[0], again)
}

func TestStateRoundTrip(t *testing.T) {
	rng := pkgtest.Prng(t)
	params := randomParams(t, rng)
	for numLocked := 0; numLocked < 3; numLocked++ {
		s := randomState(t, rng, params, numLocked)
		require.NoError(t, s.Valid(params))

		data, err := s.MarshalBinary()
		require.NoError(t, err)
		var decoded wire.State
		require.NoError(t, decoded.UnmarshalBinary(data))
		require.True(t, s.Equal(decoded))
		require.Equal(t, s.ChannelID, decoded.ChannelID)
		require.Equal(t, s.Version, decoded.Version)
		require.Equal(t, s.IsFinal, decoded.IsFinal)
		require.True(t, s.Outcome.EqualAssets(decoded.Outcome))
		require.True(t, s.Outcome.EqualLocked(decoded.Outcome))

		h1, err := s.Hash()
		require.NoError(t, err)
		h2, err := decoded.Hash()
		require.NoError(t, err)
		require.Equal(t, h1, h2)
	}
}

func TestStateEncodingSensitive(t *testing.T) {
	rng := pkgtest.Prng(t)
	params := randomParams(t, rng)
	s := randomState(t, rng, params, 1)

	mutations := []func(x *wire.State){
		func(x *wire.State) { x.Version++ },
		func(x *wire.State) { x.IsFinal = !x.IsFinal },
		func(x *wire.State) { x.AppData = append(x.AppData, 0) },
		func(x *wire.State) { x.Outcome.Balances[0][1].Add(x.Outcome.Balances[0][1], big.NewInt(1)) },
		func(x *wire.State) { x.Outcome.Locked = nil },
		func(x *wire.State) {
			x.Outcome.Assets[0], x.Outcome.Assets[1] = x.Outcome.Assets[1], x.Outcome.Assets[0]
		},
	}
	for _, mutate := range mutations {
		x := s.Clone()
		mutate(&x)
		require.False(t, s.Equal(x))
	}
}

func TestStateValid(t *testing.T) {
	rng := pkgtest.Prng(t)
	params := randomParams(t, rng)
	s := randomState(t, rng, params, 1)
	require.NoError(t, s.Valid(params))

	wrongID := s.Clone()
	wrongID.ChannelID[0] ^= 1
	require.Error(t, wrongID.Valid(params))

	missingAsset := s.Clone()
	missingAsset.Outcome.Balances = missingAsset.Outcome.Balances[:1]
	require.Error(t, missingAsset.Valid(params))

	shortBals := s.Clone()
	shortBals.Outcome.Balances[1] = shortBals.Outcome.Balances[1][:1]
	require.Error(t, shortBals.Valid(params))

	negative := s.Clone()
	negative.Outcome.Balances[0][0] = big.NewInt(-1)
	require.Error(t, negative.Valid(params))

	badSub := s.Clone()
	badSub.Outcome.Locked[0].Balances = badSub.Outcome.Locked[0].Balances[:1]
	require.Error(t, badSub.Valid(params))

	dupAsset := s.Clone()
	dupAsset.Outcome.Assets[1] = dupAsset.Outcome.Assets[0]
	require.Error(t, dupAsset.Valid(params))
}

func TestAuthorizationRoundTrip(t *testing.T) {
	rng := pkgtest.Prng(t)
	parts := randomParticipants(t, rng, 2)
	var cid pchannel.ID
	rng.Read(cid[:])
	a := wire.Authorization{
		ChannelID:   cid,
		Participant: parts[0],
		Receiver:    parts[1],
		Amount:      big.NewInt(12345),
	}
	data, err := a.MarshalBinary()
	require.NoError(t, err)
	var b wire.Authorization
	require.NoError(t, b.UnmarshalBinary(data))
	require.Equal(t, a.ChannelID, b.ChannelID)
	require.True(t, a.Participant.Equal(b.Participant))
	require.True(t, a.Receiver.Equal(b.Receiver))
	require.Zero(t, a.Amount.Cmp(b.Amount))

	fid, err := a.FundingID()
	require.NoError(t, err)
	expected, err := wire.FundingID(cid, parts[0])
	require.NoError(t, err)
	require.Equal(t, expected, fid)
}

func TestDispute(t *testing.T) {
	x, err := hex.DecodeString("0000001100000001000000060000000f000000126368616c6c656e67655f6475726174696f6e000000000005000000000000003c0000000f000000076861735f6170700000000000000000010000000f00000005706861736500000000000003000000010000000f0000000a73746174655f6861736800000000000d00000020000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f0000000f0000000774696d656f7574000000000500000000000003e80000000f0000000776657273696f6e00000000050000000000000007")
	require.NoError(t, err)

	d := wire.Dispute{
		Timeout:           1000,
		ChallengeDuration: 60,
		Version:           7,
		HasApp:            true,
		Phase:             wire.PhaseForceExec,
	}
	for i := range d.StateHash {
		d.StateHash[i] = byte(i)
	}
	res, err := d.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, x, res)

	var decoded wire.Dispute
	require.NoError(t, decoded.UnmarshalBinary(x))
	require.Equal(t, d, decoded)
	require.Equal(t, "FORCEEXEC", decoded.Phase.String())
}

func TestInt128(t *testing.T) {
	for _, v := range []*big.Int{big.NewInt(0), big.NewInt(1), new(big.Int).Lsh(big.NewInt(1), 64), wire.MaxBalance} {
		parts, err := wire.MakeInt128Parts(v)
		require.NoError(t, err)
		back, err := wire.ToBigInt(parts)
		require.NoError(t, err)
		require.Zero(t, v.Cmp(back))
	}
	_, err := wire.MakeInt128Parts(big.NewInt(-1))
	require.Error(t, err)
	_, err = wire.MakeInt128Parts(new(big.Int).Add(wire.MaxBalance, big.NewInt(1)))
	require.Error(t, err)
	_, err = wire.ToBigInt(xdr.Int128Parts{Hi: -1})
	require.Error(t, err)
}
