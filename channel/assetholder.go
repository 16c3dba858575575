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
	pchannel "perun.network/go-perun/channel"
	"perun.network/go-perun/log"

	"perun.network/perun-adjudicator/channel/types"
	"perun.network/perun-adjudicator/event"
	"perun.network/perun-adjudicator/ledger"
	"perun.network/perun-adjudicator/wallet"
	wtypes "perun.network/perun-adjudicator/wallet/types"
	"perun.network/perun-adjudicator/wire"
)

// AssetHolder is the custody ledger of one asset. It maps funding ids to
// holdings and pays them out on signed authorizations. Only the adjudicator
// authority may settle a channel, and only once.
type AssetHolder struct {
	log.Embedding

	asset     types.Asset
	authority wtypes.Participant
	vault     Vault
}

// NewAssetHolder creates the asset holder of asset answering to authority.
func NewAssetHolder(asset types.Asset, authority wtypes.Participant, vault Vault) *AssetHolder {
	return &AssetHolder{
		Embedding: log.MakeEmbedding(log.WithField("asset", asset.String())),
		asset:     asset,
		authority: authority,
		vault:     vault,
	}
}

// Asset returns the asset the holder is responsible for.
func (h *AssetHolder) Asset() types.Asset {
	return h.asset
}

// Authority returns the identity allowed to settle channels.
func (h *AssetHolder) Authority() wtypes.Participant {
	return h.authority
}

// Vault returns the vault the underlying asset is kept in.
func (h *AssetHolder) Vault() Vault {
	return h.vault
}

// Deposit credits amount to fundingID. The depositor escrows exactly amount
// through the vault; value is the native value attached to the call.
func (h *AssetHolder) Deposit(w ledger.Writer, depositor wtypes.Participant, fundingID pchannel.ID, amount, value *big.Int) error {
	a, err := toUint256(amount)
	if err != nil {
		return err
	}
	v, err := toUint256(value)
	if err != nil {
		return errors.WithMessage(ErrValueMismatch, "invalid attached value")
	}
	key := ledger.HoldingsKey(h.asset, fundingID)
	holdings, err := ledger.GetUint256(w, key)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(holdings, a)
	if overflow {
		return ErrOverflow
	}

	if err := h.vault.Pull(w, depositor, a, v); err != nil {
		return err
	}
	if err := ledger.PutUint256(w, key, sum); err != nil {
		return err
	}
	w.Emit(&event.Deposited{Asset: h.asset, FundingID: fundingID, Amount: a.ToBig()})
	h.Log().WithField("funding", fundingID).Debugf("Deposited %s", amount)
	return nil
}

// SetOutcome settles a channel. The pot, the sum of the current holdings of
// all participants, is paid out in participant order: each participant
// receives min(balances[i], remaining pot). Funds beyond the outcome stay
// in custody unassigned.
func (h *AssetHolder) SetOutcome(w ledger.Writer, caller wtypes.Participant, channelID pchannel.ID, participants []wtypes.Participant, balances []*big.Int) error {
	if !caller.Equal(h.authority) {
		return ErrUnauthorized
	}
	if len(participants) != len(balances) {
		return errors.WithMessagef(ErrLengthMismatch, "%d participants, %d balances", len(participants), len(balances))
	}
	owed := make([]*uint256.Int, len(balances))
	for i, b := range balances {
		var err error
		if owed[i], err = toUint256(b); err != nil {
			return err
		}
	}
	settledKey := ledger.SettledKey(h.asset, channelID)
	settled, err := ledger.GetFlag(w, settledKey)
	if err != nil {
		return err
	}
	if settled {
		return ErrAlreadySettled
	}
	fundingIDs, err := wire.FundingIDs(channelID, participants)
	if err != nil {
		return errors.WithMessage(ErrInvalidParams, err.Error())
	}

	pot := new(uint256.Int)
	for _, fid := range fundingIDs {
		holdings, err := ledger.GetUint256(w, ledger.HoldingsKey(h.asset, fid))
		if err != nil {
			return err
		}
		var overflow bool
		if pot, overflow = new(uint256.Int).AddOverflow(pot, holdings); overflow {
			return ErrOverflow
		}
	}

	for i, fid := range fundingIDs {
		pay := owed[i]
		if pot.Lt(pay) {
			pay = new(uint256.Int).Set(pot)
		}
		pot = new(uint256.Int).Sub(pot, pay)
		if err := ledger.PutUint256(w, ledger.HoldingsKey(h.asset, fid), pay); err != nil {
			return err
		}
	}
	if err := ledger.SetFlag(w, settledKey); err != nil {
		return err
	}
	w.Emit(&event.OutcomeSet{Asset: h.asset, ChannelID: channelID})
	h.Log().WithField("channel", channelID).Debug("Outcome set")
	return nil
}

// Withdraw pays auth.Amount of the participant's holdings to auth.Receiver.
// sig must be the participant's signature over the encoded authorization.
// Withdrawing does not require the channel to be settled.
//
// The authorization names neither the asset holder nor a nonce. A signed
// authorization is therefore accepted by every asset holder the
// participant holds funds in for the channel, and it can be submitted again
// until the holdings are exhausted. Participants only sign authorizations
// for amounts they are entitled to under every asset.
func (h *AssetHolder) Withdraw(w ledger.Writer, auth wire.Authorization, sig []byte) error {
	msg, err := wire.Encode(auth)
	if err != nil {
		return errors.WithMessage(ErrInvalidAmount, err.Error())
	}
	if !wallet.Backend.VerifySignature(msg, sig, auth.Participant) {
		return ErrInvalidSignature
	}
	amount, err := toUint256(auth.Amount)
	if err != nil {
		return err
	}
	fid, err := auth.FundingID()
	if err != nil {
		return err
	}
	key := ledger.HoldingsKey(h.asset, fid)
	holdings, err := ledger.GetUint256(w, key)
	if err != nil {
		return err
	}
	if holdings.Lt(amount) {
		return errors.WithMessagef(ErrInsufficientFunds, "holdings %s, requested %s", holdings.ToBig(), auth.Amount)
	}

	if err := ledger.PutUint256(w, key, new(uint256.Int).Sub(holdings, amount)); err != nil {
		return err
	}
	if err := h.vault.Push(w, auth.Receiver, amount); err != nil {
		return err
	}
	w.Emit(&event.Withdrawn{Asset: h.asset, FundingID: fid, Amount: amount.ToBig(), Receiver: auth.Receiver})
	h.Log().WithField("funding", fid).Debugf("Withdrew %s to %s", auth.Amount, auth.Receiver)
	return nil
}

// Holdings returns the current holdings of fundingID.
func (h *AssetHolder) Holdings(r ledger.Reader, fundingID pchannel.ID) (*big.Int, error) {
	holdings, err := ledger.GetUint256(r, ledger.HoldingsKey(h.asset, fundingID))
	if err != nil {
		return nil, err
	}
	return holdings.ToBig(), nil
}

// Settled reports whether the outcome of channelID has been set.
func (h *AssetHolder) Settled(r ledger.Reader, channelID pchannel.ID) (bool, error) {
	return ledger.GetFlag(r, ledger.SettledKey(h.asset, channelID))
}
