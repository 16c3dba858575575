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
	"errors"

	"github.com/stellar/go/xdr"
)

// AppID references the application whose transition predicate governs
// forced progression. The zero value is NoApp.
type AppID struct {
	contractID *xdr.Hash
}

// NoApp returns the app id of channels without forced execution.
func NoApp() AppID {
	return AppID{}
}

// NewAppID returns the app id of the app deployed at contractID.
func NewAppID(contractID xdr.Hash) AppID {
	id := contractID
	return AppID{contractID: &id}
}

// IsNoApp reports whether the id is NoApp.
func (a AppID) IsNoApp() bool {
	return a.contractID == nil
}

// ContractID returns the app contract id. ok is false for NoApp.
func (a AppID) ContractID() (id xdr.Hash, ok bool) {
	if a.contractID == nil {
		return xdr.Hash{}, false
	}
	return *a.contractID, true
}

// Equal compares two app ids.
func (a AppID) Equal(other AppID) bool {
	if a.IsNoApp() || other.IsNoApp() {
		return a.IsNoApp() == other.IsNoApp()
	}
	return *a.contractID == *other.contractID
}

// MapKey returns a comparable key, empty for NoApp.
func (a AppID) MapKey() string {
	if a.contractID == nil {
		return ""
	}
	return string(a.contractID[:])
}

// ToScVal encodes the app id as a contract address, or void for NoApp.
func (a AppID) ToScVal() (xdr.ScVal, error) {
	if a.contractID == nil {
		return xdr.NewScVal(xdr.ScValTypeScvVoid, nil)
	}
	addr, err := MakeContractAddress(*a.contractID)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return xdr.NewScVal(xdr.ScValTypeScvAddress, addr)
}

// FromScVal decodes an app id encoded by ToScVal.
func (a *AppID) FromScVal(v xdr.ScVal) error {
	if v.Type == xdr.ScValTypeScvVoid {
		*a = NoApp()
		return nil
	}
	addr, ok := v.GetAddress()
	if !ok {
		return errors.New("expected address or void decoding app")
	}
	if addr.Type != xdr.ScAddressTypeScAddressTypeContract || addr.ContractId == nil {
		return errors.New("expected contract address decoding app")
	}
	*a = NewAppID(*addr.ContractId)
	return nil
}
