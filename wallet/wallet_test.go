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

package wallet_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	pkgtest "polycry.pt/poly-go/test"

	"perun.network/perun-adjudicator/wallet"
	"perun.network/perun-adjudicator/wallet/types"
)

// TestEphemeralWallet tests the ephemeral wallet implementation.
func TestEphemeralWallet(t *testing.T) {
	rng := pkgtest.Prng(t)
	w := wallet.NewEphemeralWallet()

	acc, err := w.AddNewAccount(rng)
	require.NoError(t, err)
	require.Error(t, w.AddAccount(acc), "adding an account twice must fail")

	unlockedAccount, err := w.Unlock(acc.Participant())
	require.NoError(t, err)
	require.True(t, acc.Participant().Equal(unlockedAccount.Participant()))

	msg := []byte("hello world")
	sig, err := unlockedAccount.SignData(msg)
	require.NoError(t, err)
	require.Len(t, sig, wallet.SignatureLength)

	require.True(t, wallet.Backend.VerifySignature(msg, sig, acc.Participant()))
	require.False(t, wallet.Backend.VerifySignature([]byte("hello world!"), sig, acc.Participant()))
	require.False(t, wallet.Backend.VerifySignature(msg, sig[:10], acc.Participant()))

	decoded, err := wallet.Backend.DecodeSig(bytes.NewReader(sig))
	require.NoError(t, err)
	require.Equal(t, []byte(sig), []byte(decoded))
}

func TestEphemeralWallet_Sign(t *testing.T) {
	rng := pkgtest.Prng(t)
	w := wallet.NewEphemeralWallet()
	a, err := w.AddNewAccount(rng)
	require.NoError(t, err)
	b, err := w.AddNewAccount(rng)
	require.NoError(t, err)

	msg := []byte("state")
	sigs, err := w.Sign(msg, a.Participant(), b.Participant())
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	require.True(t, a.Participant().Verify(msg, sigs[0]))
	require.True(t, b.Participant().Verify(msg, sigs[1]))
	require.False(t, a.Participant().Verify(msg, sigs[1]))

	_, err = w.Sign(msg, types.ZeroParticipant())
	require.Error(t, err)
}

func TestParticipantBinary(t *testing.T) {
	rng := pkgtest.Prng(t)
	acc, err := wallet.NewRandomAccount(rng)
	require.NoError(t, err)
	p := acc.Participant()

	data, err := p.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, 32)

	var q types.Participant
	require.NoError(t, q.UnmarshalBinary(data))
	require.True(t, p.Equal(q))
	require.Equal(t, p.String(), q.String())

	require.Error(t, q.UnmarshalBinary(data[:31]))
}

func TestParticipantScAddress(t *testing.T) {
	rng := pkgtest.Prng(t)
	acc, err := wallet.NewRandomAccount(rng)
	require.NoError(t, err)

	addr, err := acc.Participant().ScAddress()
	require.NoError(t, err)
	p, err := types.ParticipantFromScAddress(addr)
	require.NoError(t, err)
	require.True(t, acc.Participant().Equal(p))
}

func TestNewRandomAccountDeterministic(t *testing.T) {
	a, err := wallet.NewRandomAccount(pkgtest.Prng(t))
	require.NoError(t, err)
	b, err := wallet.NewRandomAccount(pkgtest.Prng(t))
	require.NoError(t, err)
	require.True(t, a.Participant().Equal(b.Participant()))
}
