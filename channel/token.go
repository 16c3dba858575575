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

// TokenVault holds a token that is moved by allowance. A depositor first
// approves the asset holder, which then pulls the deposit.
type TokenVault struct {
	token types.Asset
}

var _ Vault = (*TokenVault)(nil)

// NewTokenVault returns the vault of the token deployed at token.
func NewTokenVault(token types.Asset) *TokenVault {
	return &TokenVault{token: token}
}

// Approve sets the amount the asset holder may pull from owner.
func (v *TokenVault) Approve(w ledger.Writer, owner wtypes.Participant, amount *big.Int) error {
	a, err := toUint256(amount)
	if err != nil {
		return err
	}
	return ledger.PutUint256(w, v.allowanceKey(owner), a)
}

// Allowance returns the amount the asset holder may still pull from owner.
func (v *TokenVault) Allowance(r ledger.Reader, owner wtypes.Participant) (*big.Int, error) {
	a, err := ledger.GetUint256(r, v.allowanceKey(owner))
	if err != nil {
		return nil, err
	}
	return a.ToBig(), nil
}

func (v *TokenVault) Pull(w ledger.Writer, depositor wtypes.Participant, amount, value *uint256.Int) error {
	if !value.IsZero() {
		return errors.WithMessage(ErrValueMismatch, "token deposits carry no value")
	}
	allowance, err := ledger.GetUint256(w, v.allowanceKey(depositor))
	if err != nil {
		return err
	}
	if allowance.Lt(amount) {
		return errors.WithMessagef(ErrInsufficientAllowance, "allowance %s, need %s", allowance.ToBig().String(), amount.ToBig().String())
	}
	if err := debit(w, balanceKey(v.token, depositor), amount); err != nil {
		return err
	}
	return ledger.PutUint256(w, v.allowanceKey(depositor), new(uint256.Int).Sub(allowance, amount))
}

func (v *TokenVault) Push(w ledger.Writer, receiver wtypes.Participant, amount *uint256.Int) error {
	return credit(w, balanceKey(v.token, receiver), amount)
}

func (v *TokenVault) BalanceOf(r ledger.Reader, owner wtypes.Participant) (*big.Int, error) {
	bal, err := ledger.GetUint256(r, balanceKey(v.token, owner))
	if err != nil {
		return nil, err
	}
	return bal.ToBig(), nil
}

func (v *TokenVault) Mint(w ledger.Writer, to wtypes.Participant, amount *big.Int) error {
	a, err := toUint256(amount)
	if err != nil {
		return err
	}
	return credit(w, balanceKey(v.token, to), a)
}

func (v *TokenVault) allowanceKey(owner wtypes.Participant) []byte {
	return ledger.AccountKey(v.token, "allowance", owner.String())
}
