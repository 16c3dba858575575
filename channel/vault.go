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
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"perun.network/perun-adjudicator/channel/types"
	"perun.network/perun-adjudicator/ledger"
	wtypes "perun.network/perun-adjudicator/wallet/types"
)

// Vault moves the underlying asset in and out of an asset holder.
type Vault interface {
	// Pull escrows amount from depositor. value is the native value
	// attached to the deposit call.
	Pull(w ledger.Writer, depositor wtypes.Participant, amount, value *uint256.Int) error
	// Push pays amount out of escrow to receiver.
	Push(w ledger.Writer, receiver wtypes.Participant, amount *uint256.Int) error
	// BalanceOf returns the spendable balance of an account.
	BalanceOf(r ledger.Reader, owner wtypes.Participant) (*big.Int, error)
	// Mint credits an account out of thin air, as a genesis allocation or
	// faucet would.
	Mint(w ledger.Writer, to wtypes.Participant, amount *big.Int) error
}

// NativeVault holds the ledger's native asset. Deposits carry their value
// with the call.
type NativeVault struct {
	asset types.Asset
}

var _ Vault = (*NativeVault)(nil)

// NewNativeVault returns the vault of the native asset held under asset.
func NewNativeVault(asset types.Asset) *NativeVault {
	return &NativeVault{asset: asset}
}

func (v *NativeVault) Pull(w ledger.Writer, depositor wtypes.Participant, amount, value *uint256.Int) error {
	if !value.Eq(amount) {
		return errors.WithMessagef(ErrValueMismatch, "value %s, amount %s", value.ToBig().String(), amount.ToBig().String())
	}
	return debit(w, balanceKey(v.asset, depositor), value)
}

func (v *NativeVault) Push(w ledger.Writer, receiver wtypes.Participant, amount *uint256.Int) error {
	return credit(w, balanceKey(v.asset, receiver), amount)
}

func (v *NativeVault) BalanceOf(r ledger.Reader, owner wtypes.Participant) (*big.Int, error) {
	bal, err := ledger.GetUint256(r, balanceKey(v.asset, owner))
	if err != nil {
		return nil, err
	}
	return bal.ToBig(), nil
}

func (v *NativeVault) Mint(w ledger.Writer, to wtypes.Participant, amount *big.Int) error {
	a, err := toUint256(amount)
	if err != nil {
		return err
	}
	return credit(w, balanceKey(v.asset, to), a)
}

func balanceKey(asset types.Asset, owner wtypes.Participant) []byte {
	return ledger.AccountKey(asset, "balance", owner.String())
}

func debit(w ledger.Writer, key []byte, amount *uint256.Int) error {
	bal, err := ledger.GetUint256(w, key)
	if err != nil {
		return err
	}
	if bal.Lt(amount) {
		return errors.WithMessagef(ErrInsufficientBalance, "balance %s, need %s", bal.ToBig().String(), amount.ToBig().String())
	}
	return ledger.PutUint256(w, key, new(uint256.Int).Sub(bal, amount))
}

func credit(w ledger.Writer, key []byte, amount *uint256.Int) error {
	bal, err := ledger.GetUint256(w, key)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(bal, amount)
	if overflow {
		return ErrOverflow
	}
	return ledger.PutUint256(w, key, sum)
}

func toUint256(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	a, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, errors.WithMessage(ErrInvalidAmount, "amount exceeds 256 bits")
	}
	return a, nil
}
