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

	"github.com/stellar/go/xdr"
	pchannel "perun.network/go-perun/channel"
	pwallet "perun.network/go-perun/wallet"

	"perun.network/perun-adjudicator/channel"
	"perun.network/perun-adjudicator/channel/types"
	wtypes "perun.network/perun-adjudicator/wallet/types"
	"perun.network/perun-adjudicator/wire"
	"perun.network/perun-adjudicator/wire/scval"
)

func buildDepositTxArgs(asset types.Asset, fundingID pchannel.ID, amount, value *big.Int) (xdr.ScVec, error) {
	assetXdr, err := wrapAsset(asset)
	if err != nil {
		return xdr.ScVec{}, err
	}
	amountXdr, err := wrapAmount(amount)
	if err != nil {
		return xdr.ScVec{}, err
	}
	valueXdr, err := wrapAmount(value)
	if err != nil {
		return xdr.ScVec{}, err
	}
	return xdr.ScVec{
		assetXdr,
		scval.MustWrapScBytes(fundingID[:]),
		amountXdr,
		valueXdr,
	}, nil
}

func buildSignedStateTxArgs(params wire.Params, state wire.State, sigs []pwallet.Sig) (xdr.ScVec, error) {
	paramsXdr, err := params.ToScVal()
	if err != nil {
		return xdr.ScVec{}, err
	}
	stateXdr, err := state.ToScVal()
	if err != nil {
		return xdr.ScVec{}, err
	}
	sigVec := make(xdr.ScVec, len(sigs))
	for i, sig := range sigs {
		sigVec[i] = scval.MustWrapScBytes(sig)
	}
	return xdr.ScVec{
		paramsXdr,
		stateXdr,
		scval.MustWrapVec(sigVec),
	}, nil
}

func buildProgressTxArgs(params wire.Params, from, to wire.State, actorIdx int, sig pwallet.Sig) (xdr.ScVec, error) {
	paramsXdr, err := params.ToScVal()
	if err != nil {
		return xdr.ScVec{}, err
	}
	fromXdr, err := from.ToScVal()
	if err != nil {
		return xdr.ScVec{}, err
	}
	toXdr, err := to.ToScVal()
	if err != nil {
		return xdr.ScVec{}, err
	}
	return xdr.ScVec{
		paramsXdr,
		fromXdr,
		toXdr,
		scval.MustWrapUint32(xdr.Uint32(actorIdx)),
		scval.MustWrapScBytes(sig),
	}, nil
}

func buildConcludeTxArgs(params wire.Params, state wire.State, subStates []channel.SubState) (xdr.ScVec, error) {
	paramsXdr, err := params.ToScVal()
	if err != nil {
		return xdr.ScVec{}, err
	}
	stateXdr, err := state.ToScVal()
	if err != nil {
		return xdr.ScVec{}, err
	}
	subVec := make(xdr.ScVec, len(subStates))
	for i, sub := range subStates {
		subParams, err := sub.Params.ToScVal()
		if err != nil {
			return xdr.ScVec{}, err
		}
		subState, err := sub.State.ToScVal()
		if err != nil {
			return xdr.ScVec{}, err
		}
		subVec[i] = scval.MustWrapVec(xdr.ScVec{subParams, subState})
	}
	return xdr.ScVec{
		paramsXdr,
		stateXdr,
		scval.MustWrapVec(subVec),
	}, nil
}

func buildWithdrawTxArgs(asset types.Asset, auth wire.Authorization, sig pwallet.Sig) (xdr.ScVec, error) {
	assetXdr, err := wrapAsset(asset)
	if err != nil {
		return xdr.ScVec{}, err
	}
	authXdr, err := auth.ToScVal()
	if err != nil {
		return xdr.ScVec{}, err
	}
	return xdr.ScVec{
		assetXdr,
		authXdr,
		scval.MustWrapScBytes(sig),
	}, nil
}

func buildChanIDTxArgs(chanID pchannel.ID) (xdr.ScVec, error) {
	channelID, err := scval.WrapScBytes(chanID[:])
	if err != nil {
		return xdr.ScVec{}, err
	}
	return xdr.ScVec{channelID}, nil
}

func buildHoldingsTxArgs(asset types.Asset, fundingID pchannel.ID) (xdr.ScVec, error) {
	assetXdr, err := wrapAsset(asset)
	if err != nil {
		return xdr.ScVec{}, err
	}
	return xdr.ScVec{assetXdr, scval.MustWrapScBytes(fundingID[:])}, nil
}

// BuildGetBalanceArgs builds the arguments of a balance query of owner.
func BuildGetBalanceArgs(asset types.Asset, owner wtypes.Participant) (xdr.ScVec, error) {
	assetXdr, err := wrapAsset(asset)
	if err != nil {
		return xdr.ScVec{}, err
	}
	addr, err := owner.ScAddress()
	if err != nil {
		return xdr.ScVec{}, err
	}
	return xdr.ScVec{assetXdr, scval.MustWrapScAddress(addr)}, nil
}

func wrapAsset(asset types.Asset) (xdr.ScVal, error) {
	addr, err := asset.MakeScAddress()
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapScAddress(addr)
}

func wrapAmount(amount *big.Int) (xdr.ScVal, error) {
	parts, err := wire.MakeInt128Parts(amount)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapInt128Parts(parts)
}
