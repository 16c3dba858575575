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

package types

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

// Participant is the on-ledger identity of a channel participant. It is a
// Stellar account whose ed25519 key signs channel states and withdrawal
// authorizations.
type Participant struct {
	// StellarAddress is the account address (G...) of the participant.
	StellarAddress keypair.FromAddress
}

// NewParticipant creates a participant from a parsed account address.
func NewParticipant(addr keypair.FromAddress) Participant {
	return Participant{StellarAddress: addr}
}

// ParticipantFromKP derives the participant of the given key pair.
func ParticipantFromKP(kp keypair.KP) (Participant, error) {
	addr, err := keypair.ParseAddress(kp.Address())
	if err != nil {
		return Participant{}, err
	}
	return NewParticipant(*addr), nil
}

// ParseParticipant parses a strkey encoded account address.
func ParseParticipant(s string) (Participant, error) {
	addr, err := keypair.ParseAddress(s)
	if err != nil {
		return Participant{}, fmt.Errorf("parsing participant address: %w", err)
	}
	return NewParticipant(*addr), nil
}

// MustParseParticipant is ParseParticipant but panics on error.
func MustParseParticipant(s string) Participant {
	p, err := ParseParticipant(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the strkey representation of the participant.
func (p Participant) String() string {
	return p.StellarAddress.Address()
}

// Equal compares two participants.
func (p Participant) Equal(other Participant) bool {
	return p.StellarAddress.Equal(&other.StellarAddress)
}

// PublicKey returns the raw ed25519 key of the participant.
func (p Participant) PublicKey() (ed25519.PublicKey, error) {
	raw, err := strkey.Decode(strkey.VersionByteAccountID, p.String())
	if err != nil {
		return nil, err
	}
	return ed25519.PublicKey(raw), nil
}

// Verify checks that sig is a valid signature of p over msg.
func (p Participant) Verify(msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return p.StellarAddress.Verify(msg, sig) == nil
}

// MarshalBinary encodes the participant as its raw public key.
func (p Participant) MarshalBinary() ([]byte, error) {
	return p.PublicKey()
}

// UnmarshalBinary decodes a participant from its raw public key.
func (p *Participant) UnmarshalBinary(data []byte) error {
	if len(data) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid public key size: %d", len(data))
	}
	s, err := strkey.Encode(strkey.VersionByteAccountID, data)
	if err != nil {
		return err
	}
	parsed, err := ParseParticipant(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ScAddress encodes the participant as an account address.
func (p Participant) ScAddress() (xdr.ScAddress, error) {
	return AccountAddressFromAddress(p.StellarAddress)
}

// ParticipantFromScAddress decodes an account address.
func ParticipantFromScAddress(address xdr.ScAddress) (Participant, error) {
	addr, err := ToAccountAddress(address)
	if err != nil {
		return Participant{}, err
	}
	return NewParticipant(addr), nil
}

// ZeroParticipant returns the participant with the all-zero public key. No
// one holds its secret key, so it can never produce a valid signature.
func ZeroParticipant() Participant {
	zeros := make([]byte, ed25519.PublicKeySize)
	s, err := strkey.Encode(strkey.VersionByteAccountID, zeros)
	if err != nil {
		panic(err)
	}
	return MustParseParticipant(s)
}

// AccountAddressFromAddress generates an account address from the given address.
func AccountAddressFromAddress(addr keypair.FromAddress) (xdr.ScAddress, error) {
	accountID, err := xdr.AddressToAccountId(addr.Address())
	if err != nil {
		return xdr.ScAddress{}, err
	}
	return xdr.NewScAddress(xdr.ScAddressTypeScAddressTypeAccount, accountID)
}

// ToAccountAddress converts the given ScAddress to an account address.
func ToAccountAddress(address xdr.ScAddress) (keypair.FromAddress, error) {
	if address.Type != xdr.ScAddressTypeScAddressTypeAccount || address.AccountId == nil {
		return keypair.FromAddress{}, errors.New("invalid address type")
	}
	kp, err := keypair.ParseAddress(address.AccountId.Address())
	if err != nil {
		return keypair.FromAddress{}, err
	}
	return *kp, nil
}
