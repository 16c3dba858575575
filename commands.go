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
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	pchannel "perun.network/go-perun/channel"
	"perun.network/go-perun/log"
	pwallet "perun.network/go-perun/wallet"

	"perun.network/perun-adjudicator/channel"
	"perun.network/perun-adjudicator/channel/types"
	"perun.network/perun-adjudicator/client"
	"perun.network/perun-adjudicator/event"
	"perun.network/perun-adjudicator/ledger"
	"perun.network/perun-adjudicator/wallet"
	wtypes "perun.network/perun-adjudicator/wallet/types"
	"perun.network/perun-adjudicator/wire"
)

var (
	participantFlag = &cli.StringSliceFlag{
		Name:  "participant",
		Usage: "participant account address (G...), repeat in channel order",
	}
	nonceFlag = &cli.StringFlag{
		Name:  "nonce",
		Usage: "channel nonce in decimal",
		Value: "0",
	}
	challengeDurationFlag = &cli.Uint64Flag{
		Name:  "challenge-duration",
		Usage: "challenge duration in seconds",
		Value: 60,
	}
	appFlag = &cli.StringFlag{
		Name:  "app",
		Usage: "hex contract id of the channel app, empty for none",
	}
	channelFlag = &cli.StringFlag{
		Name:     "channel",
		Usage:    "hex channel id",
		Required: true,
	}
	eventsFlag = &cli.BoolFlag{
		Name:  "events",
		Usage: "also print the logged events of the channel",
	}
	seedFlag = &cli.Int64Flag{
		Name:  "seed",
		Usage: "seed for the demo accounts",
		Value: 1,
	}
)

var commandChannelID = &cli.Command{
	Name:   "channel-id",
	Usage:  "compute the id of a channel",
	Flags:  []cli.Flag{participantFlag, nonceFlag, challengeDurationFlag, appFlag},
	Action: channelID,
}

var commandFundingID = &cli.Command{
	Name:   "funding-id",
	Usage:  "compute the funding id of a participant in a channel",
	Flags:  []cli.Flag{channelFlag, participantFlag},
	Action: fundingID,
}

var commandInspect = &cli.Command{
	Name:   "inspect",
	Usage:  "print the dispute record of a channel",
	Flags:  []cli.Flag{channelFlag, eventsFlag},
	Action: inspect,
}

var commandDemo = &cli.Command{
	Name:   "demo",
	Usage:  "fund, dispute, conclude and withdraw a channel between two fresh accounts",
	Flags:  []cli.Flag{seedFlag, challengeDurationFlag},
	Action: demo,
}

func channelID(c *cli.Context) error {
	params, err := paramsFromFlags(c)
	if err != nil {
		return err
	}
	id, err := params.ID()
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(id[:]))
	return nil
}

func paramsFromFlags(c *cli.Context) (wire.Params, error) {
	var params wire.Params
	for _, s := range c.StringSlice(participantFlag.Name) {
		p, err := wtypes.ParseParticipant(s)
		if err != nil {
			return wire.Params{}, err
		}
		params.Participants = append(params.Participants, p)
	}
	nonce, ok := new(big.Int).SetString(c.String(nonceFlag.Name), 10)
	if !ok {
		return wire.Params{}, errors.Errorf("invalid nonce %q", c.String(nonceFlag.Name))
	}
	params.Nonce = nonce
	params.ChallengeDuration = c.Uint64(challengeDurationFlag.Name)
	params.App = types.NoApp()
	if app := c.String(appFlag.Name); app != "" {
		asset, err := types.ParseAsset(app)
		if err != nil {
			return wire.Params{}, errors.WithMessage(err, "parsing app")
		}
		params.App = types.NewAppID(asset.ContractID())
	}
	return params, params.Valid()
}

func fundingID(c *cli.Context) error {
	cid, err := parseChannelID(c.String(channelFlag.Name))
	if err != nil {
		return err
	}
	parts := c.StringSlice(participantFlag.Name)
	if len(parts) != 1 {
		return errors.New("exactly one participant required")
	}
	p, err := wtypes.ParseParticipant(parts[0])
	if err != nil {
		return err
	}
	fid, err := wire.FundingID(cid, p)
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(fid[:]))
	return nil
}

func inspect(c *cli.Context) error {
	cid, err := parseChannelID(c.String(channelFlag.Name))
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	l, err := ledger.Open(cfg)
	if err != nil {
		return err
	}
	defer l.Close() //nolint:errcheck

	adj := channel.NewAdjudicator(l, wtypes.ZeroParticipant(), channel.NewAppRegistry())
	d, found, err := adj.Dispute(cid)
	if err != nil {
		return err
	}
	if !found {
		fmt.Println("not registered")
	} else {
		fmt.Printf("phase:              %v\n", d.Phase)
		fmt.Printf("version:            %d\n", d.Version)
		fmt.Printf("timeout:            %d\n", d.Timeout)
		fmt.Printf("challenge duration: %d\n", d.ChallengeDuration)
		fmt.Printf("has app:            %t\n", d.HasApp)
		fmt.Printf("state hash:         %x\n", d.StateHash)
	}
	if !c.Bool(eventsFlag.Name) {
		return nil
	}

	evs, err := channelEvents(l, cid)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		switch e := ev.(type) {
		case *event.ChannelUpdate:
			fmt.Printf("%v: version %d, phase %v, timeout %d\n", e.GetType(), e.Version, e.Phase, e.Timeout)
		case *event.OutcomeSet:
			fmt.Printf("%v: asset %s\n", e.GetType(), e.Asset)
		default:
			fmt.Println(ev.GetType())
		}
	}
	return nil
}

// channelEvents returns the logged adjudicator and settlement events of
// channel cid in commit order.
func channelEvents(l *ledger.Ledger, cid pchannel.ID) ([]event.PerunEvent, error) {
	ces, err := l.Events(0)
	if err != nil {
		return nil, err
	}
	evs, err := event.DecodeEvents(ces)
	if err != nil {
		return nil, err
	}
	var chEvs []event.PerunEvent
	for _, ev := range evs {
		switch ev.GetType() {
		case event.EventTypeChannelUpdate, event.EventTypeOutcomeSet:
			if ev.GetID() == cid {
				chEvs = append(chEvs, ev)
			}
		}
	}
	return chEvs, nil
}

func parseChannelID(s string) (pchannel.ID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return pchannel.ID{}, errors.Wrap(err, "decoding channel id")
	}
	if len(b) != len(pchannel.ID{}) {
		return pchannel.ID{}, errors.Errorf("channel id must be %d bytes", len(pchannel.ID{}))
	}
	var id pchannel.ID
	copy(id[:], b)
	return id, nil
}

func demo(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	l, err := ledger.Open(cfg)
	if err != nil {
		return err
	}
	defer l.Close() //nolint:errcheck
	ctx := c.Context
	rng := rand.New(rand.NewSource(c.Int64(seedFlag.Name))) //nolint:gosec

	accs := make([]*wallet.Account, 3)
	for i := range accs {
		if accs[i], err = wallet.NewRandomAccount(rng); err != nil {
			return err
		}
	}
	authority, alice, bob := accs[0], accs[1], accs[2]

	adj := channel.NewAdjudicator(l, authority.Participant(), channel.NewAppRegistry())
	var contractID [32]byte
	rng.Read(contractID[:]) //nolint:gosec
	asset := types.NewAsset(contractID)
	holder := channel.NewAssetHolder(asset, authority.Participant(), channel.NewNativeVault(asset))
	if err := adj.AddAssetHolder(holder); err != nil {
		return err
	}
	if err := l.Exec(func(tx *ledger.Tx) error {
		for _, acc := range []*wallet.Account{alice, bob} {
			if err := holder.Vault().Mint(tx, acc.Participant(), big.NewInt(1000)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	host := client.NewHost(adj)
	ca, cb := client.NewContractBackend(alice, host), client.NewContractBackend(bob, host)
	params := wire.Params{
		App:               types.NoApp(),
		ChallengeDuration: c.Uint64(challengeDurationFlag.Name),
		Nonce:             big.NewInt(rng.Int63()),
		Participants:      []wtypes.Participant{alice.Participant(), bob.Participant()},
	}
	cid, err := params.ID()
	if err != nil {
		return err
	}
	state := wire.State{
		ChannelID: cid,
		Outcome: wire.Allocation{
			Assets:   []types.Asset{asset},
			Balances: [][]*big.Int{{big.NewInt(100), big.NewInt(200)}},
		},
	}
	fmt.Printf("channel %x\n", cid)

	if err := ca.Deposit(ctx, asset, cid, big.NewInt(100), true); err != nil {
		return err
	}
	if err := cb.Deposit(ctx, asset, cid, big.NewInt(200), true); err != nil {
		return err
	}

	sub, err := adj.Subscribe(cid)
	if err != nil {
		return err
	}
	defer sub.Close() //nolint:errcheck

	v1 := nextState(state, 120, 180)
	if err := ca.Register(ctx, params, v1, cosign(v1, alice, bob)); err != nil {
		return err
	}
	registered := sub.Next()
	log.Infof("Registered version %d", registered.Version())

	v2 := nextState(v1, 150, 150)
	if err := cb.Refute(ctx, params, v2, cosign(v2, alice, bob)); err != nil {
		return err
	}
	log.Infof("Refuted with version %d", sub.Next().Version())

	if err := waitTimeout(ctx, l, registered.Timeout()); err != nil {
		return err
	}
	if err := ca.Conclude(ctx, params, v2, nil); err != nil {
		return err
	}
	log.Infof("Concluded at version %d", sub.Next().Version())

	for _, b := range []*client.ContractBackend{ca, cb} {
		held, err := b.GetHoldings(ctx, asset, cid, b.Participant())
		if err != nil {
			return err
		}
		if err := b.Withdraw(ctx, asset, cid, b.Participant(), held); err != nil {
			return err
		}
		bal, err := b.GetBalance(ctx, asset)
		if err != nil {
			return err
		}
		fmt.Printf("%s withdrew %s, balance %s\n", b.Participant(), held, bal)
	}
	return nil
}

func nextState(s wire.State, balances ...int64) wire.State {
	next := s.Clone()
	next.Version++
	for i, b := range balances {
		next.Outcome.Balances[0][i] = big.NewInt(b)
	}
	return next
}

func cosign(state wire.State, accs ...*wallet.Account) []pwallet.Sig {
	sigs := make([]pwallet.Sig, len(accs))
	for i, acc := range accs {
		sig, err := channel.Backend.Sign(acc, state)
		if err != nil {
			panic(err)
		}
		sigs[i] = sig
	}
	return sigs
}

// waitTimeout lets a simulated clock jump to the timeout and waits for it
// otherwise.
func waitTimeout(ctx context.Context, l *ledger.Ledger, timeout pchannel.Timeout) error {
	if sim, ok := l.Clock().(*ledger.SimClock); ok {
		if t, ok := timeout.(interface{ When() uint64 }); ok && t.When() > sim.Now() {
			return sim.Set(t.When())
		}
	}
	return timeout.Wait(ctx)
}
