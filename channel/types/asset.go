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
	"encoding/hex"
	"errors"

	"github.com/stellar/go/xdr"
)

// HashLenXdr is the length of a contract id.
const HashLenXdr = 32

// Asset identifies one asset-holder instance by the contract id it is
// deployed under. Each asset kind or token deployment has its own holder.
type Asset struct {
	contractID xdr.Hash
}

// AssetMapKey is a comparable representation of an asset.
type AssetMapKey string

// NewAsset creates an asset with the given contract id.
func NewAsset(contractID xdr.Hash) Asset {
	return Asset{contractID: contractID}
}

// ContractID returns the contract id of the asset.
func (a Asset) ContractID() xdr.Hash {
	return a.contractID
}

// Equal reports whether both assets refer to the same holder.
func (a Asset) Equal(other Asset) bool {
	return a.contractID == other.contractID
}

// MapKey returns the asset's map key representation.
func (a Asset) MapKey() AssetMapKey {
	return AssetMapKey(a.contractID[:])
}

// String returns the hex encoded contract id.
func (a Asset) String() string {
	return hex.EncodeToString(a.contractID[:])
}

// MarshalBinary marshals the asset into its binary representation.
func (a Asset) MarshalBinary() (data []byte, err error) {
	return a.contractID.MarshalBinary()
}

// UnmarshalBinary unmarshals the asset from its binary representation.
func (a *Asset) UnmarshalBinary(data []byte) error {
	if len(data) != HashLenXdr {
		return errors.New("could not unmarshal contract id")
	}
	copy(a.contractID[:], data)
	return nil
}

// MakeScAddress generates a contract ScAddress from the asset.
func (a Asset) MakeScAddress() (xdr.ScAddress, error) {
	return MakeContractAddress(a.contractID)
}

// AssetFromScAddress decodes an asset from a contract address.
func AssetFromScAddress(address xdr.ScAddress) (Asset, error) {
	if address.Type != xdr.ScAddressTypeScAddressTypeContract || address.ContractId == nil {
		return Asset{}, errors.New("invalid address type")
	}
	return NewAsset(*address.ContractId), nil
}

// ParseAsset parses a hex encoded contract id.
func ParseAsset(s string) (Asset, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Asset{}, err
	}
	var a Asset
	if err := a.UnmarshalBinary(raw); err != nil {
		return Asset{}, err
	}
	return a, nil
}

// MakeContractAddress generates a contract address from the given contract ID.
func MakeContractAddress(contractID xdr.Hash) (xdr.ScAddress, error) {
	return xdr.NewScAddress(xdr.ScAddressTypeScAddressTypeContract, contractID)
}
