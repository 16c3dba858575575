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

package main

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	pkgtest "polycry.pt/poly-go/test"

	"perun.network/perun-adjudicator/event"
	"perun.network/perun-adjudicator/ledger"
	"perun.network/perun-adjudicator/wallet"
	"perun.network/perun-adjudicator/wire"
)

func TestDemo(t *testing.T) {
	require.NoError(t, newApp().Run([]string{"perun-adjudicator", "--loglevel", "warn", "demo", "--seed", "7"}))
}

func TestDemoPersisted(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "ledger.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("data_dir = \""+filepath.Join(dir, "db")+"\"\nin_memory = false\nlog_level = \"error\"\n"), 0o600))

	require.NoError(t, newApp().Run([]string{"perun-adjudicator", "--config", cfg, "demo"}))
	unknown := hex.EncodeToString(make([]byte, 32))
	require.NoError(t, newApp().Run([]string{"perun-adjudicator", "--config", cfg, "inspect", "--channel", unknown}))

	lcfg, err := ledger.LoadConfig(cfg)
	require.NoError(t, err)
	l, err := ledger.Open(lcfg)
	require.NoError(t, err)
	ces, err := l.Events(0)
	require.NoError(t, err)
	evs, err := event.DecodeEvents(ces)
	require.NoError(t, err)
	require.Len(t, evs, 8, "two deposits, register, refute, outcome, conclude and two withdrawals")
	cid := evs[2].GetID()
	chEvs, err := channelEvents(l, cid)
	require.NoError(t, err)
	require.Len(t, chEvs, 4)
	_, err = event.AssertChannelUpdate(chEvs, cid, wire.PhaseConcluded)
	require.NoError(t, err)
	require.NoError(t, event.AssertWithdrawEvent(evs, evs[0].GetID()))
	require.NoError(t, l.Close())

	require.NoError(t, newApp().Run([]string{"perun-adjudicator", "--config", cfg, "inspect", "--events", "--channel", hex.EncodeToString(cid[:])}))
	require.NoError(t, newApp().Run([]string{"perun-adjudicator", "--config", cfg, "inspect", "--events", "--channel", unknown}))
}

func TestIDCommands(t *testing.T) {
	rng := pkgtest.Prng(t)
	a, err := wallet.NewRandomAccount(rng)
	require.NoError(t, err)
	b, err := wallet.NewRandomAccount(rng)
	require.NoError(t, err)

	require.NoError(t, newApp().Run([]string{"perun-adjudicator", "channel-id",
		"--participant", a.Participant().String(), "--participant", b.Participant().String(), "--nonce", "42"}))
	require.Error(t, newApp().Run([]string{"perun-adjudicator", "channel-id",
		"--participant", a.Participant().String(), "--nonce", "42"}), "a single participant is no channel")
	require.Error(t, newApp().Run([]string{"perun-adjudicator", "channel-id",
		"--participant", a.Participant().String(), "--participant", b.Participant().String(), "--nonce", "x"}))

	cid := hex.EncodeToString(make([]byte, 32))
	require.NoError(t, newApp().Run([]string{"perun-adjudicator", "funding-id", "--channel", cid, "--participant", a.Participant().String()}))
	require.Error(t, newApp().Run([]string{"perun-adjudicator", "funding-id", "--channel", "00", "--participant", a.Participant().String()}))
}
