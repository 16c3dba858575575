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
	"github.com/pkg/errors"
	pchannel "perun.network/go-perun/channel"
	pwallet "perun.network/go-perun/wallet"

	"perun.network/perun-adjudicator/wallet"
	wtypes "perun.network/perun-adjudicator/wallet/types"
	"perun.network/perun-adjudicator/wire"
)

type backend struct{}

// Backend computes channel ids and signs and verifies channel states.
var Backend = backend{}

func (b backend) CalcID(params wire.Params) (pchannel.ID, error) {
	return params.ID()
}

func (b backend) Sign(account *wallet.Account, state wire.State) (pwallet.Sig, error) {
	bytes, err := EncodeState(state)
	if err != nil {
		return nil, err
	}
	return account.SignData(bytes)
}

func (b backend) Verify(p wtypes.Participant, state wire.State, sig pwallet.Sig) (bool, error) {
	bytes, err := EncodeState(state)
	if err != nil {
		return false, err
	}
	return wallet.Backend.VerifySignature(bytes, sig, p), nil
}

// EncodeState returns the bytes participants sign for a state.
func EncodeState(state wire.State) ([]byte, error) {
	bytes, err := wire.Encode(state)
	if err != nil {
		return nil, errors.WithMessage(ErrInvalidState, err.Error())
	}
	return bytes, nil
}
