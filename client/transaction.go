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
	"math/big"

	"github.com/pkg/errors"
	"github.com/stellar/go/xdr"
	pchannel "perun.network/go-perun/channel"
	"perun.network/go-perun/log"
	pwallet "perun.network/go-perun/wallet"
	pkgsync "polycry.pt/poly-go/sync"

	"perun.network/perun-adjudicator/channel"
	"perun.network/perun-adjudicator/channel/types"
	"perun.network/perun-adjudicator/ledger"
	wtypes "perun.network/perun-adjudicator/wallet/types"
	"perun.network/perun-adjudicator/wire"
	"perun.network/perun-adjudicator/wire/scval"
)

// Names of the functions a Host can invoke.
const (
	FnDeposit       = "deposit"
	FnRegister      = "register"
	FnProgress      = "progress"
	FnConclude      = "conclude"
	FnConcludeFinal = "conclude_final"
	FnWithdraw      = "withdraw"
	FnGetDispute    = "get_dispute"
	FnHoldings      = "holdings"
	FnBalance       = "balance"
)

// ErrUnknownFunction is returned for invocations of unknown functions.
var ErrUnknownFunction = errors.New("unknown function")

// ErrMalformedArgs is returned if the arguments of an invocation cannot be
// decoded.
var ErrMalformedArgs = errors.New("malformed arguments")

// Host exposes an adjudicator and its asset holders as functions taking and
// returning XDR values, the way contracts are invoked on the ledger.
type Host struct {
	log.Embedding
	mu  pkgsync.Mutex
	adj *channel.Adjudicator
}

// TxResult is the outcome of an invocation: the returned value and the
// contract events committed by it.
type TxResult struct {
	Value  xdr.ScVal
	Events []xdr.ContractEvent
}

// NewHost returns a host for adj.
func NewHost(adj *channel.Adjudicator) *Host {
	return &Host{
		Embedding: log.MakeEmbedding(log.Default()),
		adj:       adj,
	}
}

// Adjudicator returns the hosted adjudicator.
func (h *Host) Adjudicator() *channel.Adjudicator {
	return h.adj
}

// Invoke calls fname with args on behalf of caller and returns the result
// together with the events read back from the ledger's event log.
// Functions without a result return void. Invocations of the same host are
// serialized, so the events of concurrent callers going through it do not
// mix.
func (h *Host) Invoke(caller wtypes.Participant, fname string, args xdr.ScVec) (*TxResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Log().WithField("fn", fname).Tracef("Invoked by %s", caller)

	l := h.adj.Ledger()
	seq, err := l.EventCount()
	if err != nil {
		return nil, errors.WithMessage(err, "reading event log")
	}
	val, err := h.invoke(caller, fname, args)
	if err != nil {
		return nil, err
	}
	evs, err := l.Events(seq)
	if err != nil {
		return nil, errors.WithMessage(err, "reading event log")
	}
	return &TxResult{Value: val, Events: evs}, nil
}

func (h *Host) invoke(caller wtypes.Participant, fname string, args xdr.ScVec) (xdr.ScVal, error) {
	switch fname {
	case FnDeposit:
		return void(h.deposit(caller, args))
	case FnRegister:
		return void(h.register(args))
	case FnProgress:
		return void(h.progress(args))
	case FnConclude:
		return void(h.conclude(args))
	case FnConcludeFinal:
		return void(h.concludeFinal(args))
	case FnWithdraw:
		return void(h.withdraw(args))
	case FnGetDispute:
		return h.getDispute(args)
	case FnHoldings:
		return h.holdings(args)
	case FnBalance:
		return h.balance(args)
	default:
		return xdr.ScVal{}, errors.WithMessage(ErrUnknownFunction, fname)
	}
}

func (h *Host) deposit(caller wtypes.Participant, args xdr.ScVec) error {
	if err := argCount(args, 4); err != nil {
		return err
	}
	holder, err := h.holder(args[0])
	if err != nil {
		return err
	}
	fid, err := decodeID(args[1])
	if err != nil {
		return err
	}
	amount, err := decodeAmount(args[2])
	if err != nil {
		return err
	}
	value, err := decodeAmount(args[3])
	if err != nil {
		return err
	}
	return h.adj.Ledger().Exec(func(tx *ledger.Tx) error {
		return holder.Deposit(tx, caller, fid, amount, value)
	})
}

func (h *Host) register(args xdr.ScVec) error {
	params, state, sigs, err := decodeSignedState(args)
	if err != nil {
		return err
	}
	return h.adj.Register(params, state, sigs)
}

func (h *Host) concludeFinal(args xdr.ScVec) error {
	params, state, sigs, err := decodeSignedState(args)
	if err != nil {
		return err
	}
	return h.adj.ConcludeFinal(params, state, sigs)
}

func (h *Host) progress(args xdr.ScVec) error {
	if err := argCount(args, 5); err != nil {
		return err
	}
	params, err := wire.ParamsFromScVal(args[0])
	if err != nil {
		return malformed(err)
	}
	from, err := wire.StateFromScVal(args[1])
	if err != nil {
		return malformed(err)
	}
	to, err := wire.StateFromScVal(args[2])
	if err != nil {
		return malformed(err)
	}
	actorIdx, ok := args[3].GetU32()
	if !ok {
		return errors.WithMessage(ErrMalformedArgs, "actor index must be u32")
	}
	sig, err := decodeBytes(args[4])
	if err != nil {
		return err
	}
	return h.adj.Progress(params, from, to, int(actorIdx), sig)
}

func (h *Host) conclude(args xdr.ScVec) error {
	if err := argCount(args, 3); err != nil {
		return err
	}
	params, err := wire.ParamsFromScVal(args[0])
	if err != nil {
		return malformed(err)
	}
	state, err := wire.StateFromScVal(args[1])
	if err != nil {
		return malformed(err)
	}
	subVec, err := decodeVec(args[2])
	if err != nil {
		return err
	}
	subStates := make([]channel.SubState, len(subVec))
	for i, v := range subVec {
		pair, err := decodeVec(v)
		if err != nil {
			return err
		}
		if len(pair) != 2 {
			return errors.WithMessagef(ErrMalformedArgs, "sub-state %d must be [params, state]", i)
		}
		if subStates[i].Params, err = wire.ParamsFromScVal(pair[0]); err != nil {
			return malformed(err)
		}
		if subStates[i].State, err = wire.StateFromScVal(pair[1]); err != nil {
			return malformed(err)
		}
	}
	return h.adj.Conclude(params, state, subStates)
}

func (h *Host) withdraw(args xdr.ScVec) error {
	if err := argCount(args, 3); err != nil {
		return err
	}
	holder, err := h.holder(args[0])
	if err != nil {
		return err
	}
	var auth wire.Authorization
	if err := auth.FromScVal(args[1]); err != nil {
		return malformed(err)
	}
	sig, err := decodeBytes(args[2])
	if err != nil {
		return err
	}
	return h.adj.Ledger().Exec(func(tx *ledger.Tx) error {
		return holder.Withdraw(tx, auth, sig)
	})
}

func (h *Host) getDispute(args xdr.ScVec) (xdr.ScVal, error) {
	if err := argCount(args, 1); err != nil {
		return xdr.ScVal{}, err
	}
	cid, err := decodeID(args[0])
	if err != nil {
		return xdr.ScVal{}, err
	}
	d, found, err := h.adj.Dispute(cid)
	if err != nil {
		return xdr.ScVal{}, err
	}
	if !found {
		return scval.WrapVoid()
	}
	return d.ToScVal()
}

func (h *Host) holdings(args xdr.ScVec) (xdr.ScVal, error) {
	if err := argCount(args, 2); err != nil {
		return xdr.ScVal{}, err
	}
	holder, err := h.holder(args[0])
	if err != nil {
		return xdr.ScVal{}, err
	}
	fid, err := decodeID(args[1])
	if err != nil {
		return xdr.ScVal{}, err
	}
	var holdings *big.Int
	if err := h.adj.Ledger().View(func(r ledger.Reader) (err error) {
		holdings, err = holder.Holdings(r, fid)
		return err
	}); err != nil {
		return xdr.ScVal{}, err
	}
	return wrapAmount(holdings)
}

func (h *Host) balance(args xdr.ScVec) (xdr.ScVal, error) {
	if err := argCount(args, 2); err != nil {
		return xdr.ScVal{}, err
	}
	holder, err := h.holder(args[0])
	if err != nil {
		return xdr.ScVal{}, err
	}
	addr, ok := args[1].GetAddress()
	if !ok {
		return xdr.ScVal{}, errors.WithMessage(ErrMalformedArgs, "owner must be an address")
	}
	owner, err := wtypes.ParticipantFromScAddress(addr)
	if err != nil {
		return xdr.ScVal{}, malformed(err)
	}
	var bal *big.Int
	if err := h.adj.Ledger().View(func(r ledger.Reader) (err error) {
		bal, err = holder.Vault().BalanceOf(r, owner)
		return err
	}); err != nil {
		return xdr.ScVal{}, err
	}
	return wrapAmount(bal)
}

func (h *Host) holder(v xdr.ScVal) (*channel.AssetHolder, error) {
	addr, ok := v.GetAddress()
	if !ok {
		return nil, errors.WithMessage(ErrMalformedArgs, "asset must be an address")
	}
	asset, err := types.AssetFromScAddress(addr)
	if err != nil {
		return nil, malformed(err)
	}
	return h.adj.AssetHolder(asset)
}

func decodeSignedState(args xdr.ScVec) (wire.Params, wire.State, []pwallet.Sig, error) {
	if err := argCount(args, 3); err != nil {
		return wire.Params{}, wire.State{}, nil, err
	}
	params, err := wire.ParamsFromScVal(args[0])
	if err != nil {
		return wire.Params{}, wire.State{}, nil, malformed(err)
	}
	state, err := wire.StateFromScVal(args[1])
	if err != nil {
		return wire.Params{}, wire.State{}, nil, malformed(err)
	}
	sigVec, err := decodeVec(args[2])
	if err != nil {
		return wire.Params{}, wire.State{}, nil, err
	}
	sigs := make([]pwallet.Sig, len(sigVec))
	for i, v := range sigVec {
		if sigs[i], err = decodeBytes(v); err != nil {
			return wire.Params{}, wire.State{}, nil, err
		}
	}
	return params, state, sigs, nil
}

func argCount(args xdr.ScVec, n int) error {
	if len(args) != n {
		return errors.WithMessagef(ErrMalformedArgs, "expected %d arguments, got %d", n, len(args))
	}
	return nil
}

func decodeID(v xdr.ScVal) (pchannel.ID, error) {
	b, err := decodeBytes(v)
	if err != nil {
		return pchannel.ID{}, err
	}
	if len(b) != wire.HashLength {
		return pchannel.ID{}, errors.WithMessagef(ErrMalformedArgs, "id of length %d", len(b))
	}
	var id pchannel.ID
	copy(id[:], b)
	return id, nil
}

func decodeBytes(v xdr.ScVal) ([]byte, error) {
	b, ok := v.GetBytes()
	if !ok {
		return nil, errors.WithMessage(ErrMalformedArgs, "expected bytes")
	}
	return b, nil
}

func decodeVec(v xdr.ScVal) (xdr.ScVec, error) {
	vec, ok := v.GetVec()
	if !ok || vec == nil {
		return nil, errors.WithMessage(ErrMalformedArgs, "expected vec")
	}
	return *vec, nil
}

func decodeAmount(v xdr.ScVal) (*big.Int, error) {
	parts, ok := v.GetI128()
	if !ok {
		return nil, errors.WithMessage(ErrMalformedArgs, "amount must be i128")
	}
	amount, err := wire.ToBigInt(parts)
	if err != nil {
		return nil, malformed(err)
	}
	return amount, nil
}

func malformed(err error) error {
	return errors.WithMessage(ErrMalformedArgs, err.Error())
}

func void(err error) (xdr.ScVal, error) {
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapVoid()
}
