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

package client

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"github.com/stellar/go/xdr"
	pchannel "perun.network/go-perun/channel"
	pwallet "perun.network/go-perun/wallet"

	"perun.network/perun-adjudicator/channel"
	"perun.network/perun-adjudicator/channel/types"
	"perun.network/perun-adjudicator/event"
	wtypes "perun.network/perun-adjudicator/wallet/types"
	"perun.network/perun-adjudicator/wire"
	"perun.network/perun-adjudicator/wire/scval"
)

// ErrNotParticipant is returned if the backend's account is not a
// participant of the channel it acts on.
var ErrNotParticipant = errors.New("account is not a channel participant")

// SignState signs state with the backend's account.
func (cb *ContractBackend) SignState(state wire.State) (pwallet.Sig, error) {
	return channel.Backend.Sign(cb.acc, state)
}

// Deposit deposits amount of asset for the account into channel chanID.
// Native deposits carry their value, token deposits are pulled from the
// approved allowance.
func (cb *ContractBackend) Deposit(ctx context.Context, asset types.Asset, chanID pchannel.ID, amount *big.Int, native bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fid, err := wire.FundingID(chanID, cb.Participant())
	if err != nil {
		return err
	}
	value := new(big.Int)
	if native {
		value = amount
	}
	args, err := buildDepositTxArgs(asset, fid, amount, value)
	if err != nil {
		return errors.WithMessage(err, "building deposit tx")
	}
	evs, err := cb.invokeForEvents(FnDeposit, args)
	if err != nil {
		return err
	}
	return event.AssertDepositEvent(evs, fid)
}

// Register opens a dispute with a state signed by all participants.
func (cb *ContractBackend) Register(ctx context.Context, params wire.Params, state wire.State, sigs []pwallet.Sig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	args, err := buildSignedStateTxArgs(params, state, sigs)
	if err != nil {
		return errors.WithMessage(err, "building register tx")
	}
	evs, err := cb.invokeForEvents(FnRegister, args)
	if err != nil {
		return err
	}
	_, err = event.AssertChannelUpdate(evs, state.ChannelID, wire.PhaseDispute)
	return err
}

// Refute replaces the registered state of a running dispute with a newer
// one. Unlike Register it fails if the channel is not registered yet.
func (cb *ContractBackend) Refute(ctx context.Context, params wire.Params, state wire.State, sigs []pwallet.Sig) error {
	_, found, err := cb.GetDispute(ctx, state.ChannelID)
	if err != nil {
		return err
	}
	if !found {
		return channel.ErrNotRegistered
	}
	return cb.Register(ctx, params, state, sigs)
}

// Progress advances the channel from from to to as the account, which must
// be a participant of the channel.
func (cb *ContractBackend) Progress(ctx context.Context, params wire.Params, from, to wire.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx := params.IndexOf(cb.Participant())
	if idx < 0 {
		return ErrNotParticipant
	}
	sig, err := cb.SignState(to)
	if err != nil {
		return err
	}
	args, err := buildProgressTxArgs(params, from, to, idx, sig)
	if err != nil {
		return errors.WithMessage(err, "building progress tx")
	}
	evs, err := cb.invokeForEvents(FnProgress, args)
	if err != nil {
		return err
	}
	_, err = event.AssertChannelUpdate(evs, to.ChannelID, wire.PhaseForceExec)
	return err
}

// Conclude concludes a registered channel. subStates are the settled states
// of its sub-channels.
func (cb *ContractBackend) Conclude(ctx context.Context, params wire.Params, state wire.State, subStates []channel.SubState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	args, err := buildConcludeTxArgs(params, state, subStates)
	if err != nil {
		return errors.WithMessage(err, "building conclude tx")
	}
	evs, err := cb.invokeForEvents(FnConclude, args)
	if err != nil {
		return err
	}
	_, err = event.AssertChannelUpdate(evs, state.ChannelID, wire.PhaseConcluded)
	return err
}

// ConcludeFinal concludes a channel with a final state signed by all
// participants.
func (cb *ContractBackend) ConcludeFinal(ctx context.Context, params wire.Params, state wire.State, sigs []pwallet.Sig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	args, err := buildSignedStateTxArgs(params, state, sigs)
	if err != nil {
		return errors.WithMessage(err, "building conclude_final tx")
	}
	evs, err := cb.invokeForEvents(FnConcludeFinal, args)
	if err != nil {
		return err
	}
	_, err = event.AssertChannelUpdate(evs, state.ChannelID, wire.PhaseConcluded)
	return err
}

// Withdraw pays amount of the account's holdings of asset in chanID out to
// receiver.
func (cb *ContractBackend) Withdraw(ctx context.Context, asset types.Asset, chanID pchannel.ID, receiver wtypes.Participant, amount *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	auth := wire.Authorization{
		ChannelID:   chanID,
		Participant: cb.Participant(),
		Receiver:    receiver,
		Amount:      amount,
	}
	msg, err := wire.Encode(auth)
	if err != nil {
		return err
	}
	sig, err := cb.acc.SignData(msg)
	if err != nil {
		return err
	}
	args, err := buildWithdrawTxArgs(asset, auth, sig)
	if err != nil {
		return errors.WithMessage(err, "building withdraw tx")
	}
	evs, err := cb.invokeForEvents(FnWithdraw, args)
	if err != nil {
		return err
	}
	fid, err := wire.FundingID(chanID, cb.Participant())
	if err != nil {
		return err
	}
	return event.AssertWithdrawEvent(evs, fid)
}

// invokeForEvents invokes fname and decodes the events the call committed.
func (cb *ContractBackend) invokeForEvents(fname string, args xdr.ScVec) ([]event.PerunEvent, error) {
	res, err := cb.InvokeSignedTx(fname, args)
	if err != nil {
		return nil, err
	}
	return event.DecodeEvents(res.Events)
}

// GetDispute returns the dispute record of chanID.
func (cb *ContractBackend) GetDispute(ctx context.Context, chanID pchannel.ID) (wire.Dispute, bool, error) {
	if err := ctx.Err(); err != nil {
		return wire.Dispute{}, false, err
	}
	args, err := buildChanIDTxArgs(chanID)
	if err != nil {
		return wire.Dispute{}, false, err
	}
	res, err := cb.InvokeUnsignedTx(FnGetDispute, args)
	if err != nil {
		return wire.Dispute{}, false, err
	}
	if scval.IsVoid(res.Value) {
		return wire.Dispute{}, false, nil
	}
	var d wire.Dispute
	if err := d.FromScVal(res.Value); err != nil {
		return wire.Dispute{}, false, err
	}
	return d, true, nil
}

// GetHoldings returns the holdings of asset of participant p in chanID.
func (cb *ContractBackend) GetHoldings(ctx context.Context, asset types.Asset, chanID pchannel.ID, p wtypes.Participant) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fid, err := wire.FundingID(chanID, p)
	if err != nil {
		return nil, err
	}
	args, err := buildHoldingsTxArgs(asset, fid)
	if err != nil {
		return nil, err
	}
	res, err := cb.InvokeUnsignedTx(FnHoldings, args)
	if err != nil {
		return nil, err
	}
	return amountFromScVal(res.Value)
}

// GetBalance returns the account's spendable balance of asset.
func (cb *ContractBackend) GetBalance(ctx context.Context, asset types.Asset) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	args, err := BuildGetBalanceArgs(asset, cb.Participant())
	if err != nil {
		return nil, err
	}
	res, err := cb.InvokeUnsignedTx(FnBalance, args)
	if err != nil {
		return nil, err
	}
	return amountFromScVal(res.Value)
}
