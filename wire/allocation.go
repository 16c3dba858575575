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

package wire

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/stellar/go/xdr"
	pchannel "perun.network/go-perun/channel"

	"perun.network/perun-adjudicator/channel/types"
	"perun.network/perun-adjudicator/wire/scval"
)

const (
	SymbolAllocationAssets   xdr.ScSymbol = "assets"
	SymbolAllocationBalances xdr.ScSymbol = "balances"
	SymbolAllocationLocked   xdr.ScSymbol = "locked"

	SymbolSubAllocID       xdr.ScSymbol = "id"
	SymbolSubAllocBalances xdr.ScSymbol = "balances"
)

type (
	// Allocation is the outcome of a channel. Balances[a][p] is the amount
	// of asset Assets[a] owed to participant p.
	Allocation struct {
		Assets   []types.Asset
		Balances [][]*big.Int
		Locked   []SubAlloc
	}

	// SubAlloc is the part of an allocation escrowed in a sub-channel.
	// Balances holds one aggregate amount per asset of the parent.
	SubAlloc struct {
		ID       pchannel.ID
		Balances []*big.Int
	}
)

// Valid checks the cardinality invariants of the allocation for a channel
// with numParts participants.
func (a Allocation) Valid(numParts int) error {
	if len(a.Assets) == 0 {
		return errors.New("expected at least one asset")
	}
	for i := range a.Assets {
		for j := i + 1; j < len(a.Assets); j++ {
			if a.Assets[i].Equal(a.Assets[j]) {
				return fmt.Errorf("duplicate asset at indices %d and %d", i, j)
			}
		}
	}
	if len(a.Balances) != len(a.Assets) {
		return fmt.Errorf("expected %d balance vectors, got %d", len(a.Assets), len(a.Balances))
	}
	for i, bals := range a.Balances {
		if len(bals) != numParts {
			return fmt.Errorf("expected %d balances for asset %d, got %d", numParts, i, len(bals))
		}
		for _, b := range bals {
			if err := checkBalance(b); err != nil {
				return fmt.Errorf("asset %d: %w", i, err)
			}
		}
	}
	for i, sub := range a.Locked {
		if len(sub.Balances) != len(a.Assets) {
			return fmt.Errorf("expected %d balances in sub-allocation %d, got %d", len(a.Assets), i, len(sub.Balances))
		}
		for _, b := range sub.Balances {
			if err := checkBalance(b); err != nil {
				return fmt.Errorf("sub-allocation %d: %w", i, err)
			}
		}
		for j := i + 1; j < len(a.Locked); j++ {
			if sub.ID == a.Locked[j].ID {
				return fmt.Errorf("duplicate sub-allocation at indices %d and %d", i, j)
			}
		}
	}
	return nil
}

// Sum returns the total of the participant balances of every asset,
// excluding locked funds.
func (a Allocation) Sum() []*big.Int {
	sums := make([]*big.Int, len(a.Balances))
	for i, bals := range a.Balances {
		sums[i] = SumBalances(bals)
	}
	return sums
}

// EqualAssets reports whether both allocations list the same assets in the
// same order.
func (a Allocation) EqualAssets(b Allocation) bool {
	if len(a.Assets) != len(b.Assets) {
		return false
	}
	for i := range a.Assets {
		if !a.Assets[i].Equal(b.Assets[i]) {
			return false
		}
	}
	return true
}

// EqualLocked reports whether both allocations lock the same sub-channels
// with the same amounts.
func (a Allocation) EqualLocked(b Allocation) bool {
	if len(a.Locked) != len(b.Locked) {
		return false
	}
	for i := range a.Locked {
		if !a.Locked[i].Equal(b.Locked[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the allocation.
func (a Allocation) Clone() Allocation {
	clone := Allocation{
		Assets:   append([]types.Asset(nil), a.Assets...),
		Balances: make([][]*big.Int, len(a.Balances)),
		Locked:   make([]SubAlloc, len(a.Locked)),
	}
	for i, bals := range a.Balances {
		clone.Balances[i] = CloneBalances(bals)
	}
	for i, sub := range a.Locked {
		clone.Locked[i] = SubAlloc{ID: sub.ID, Balances: CloneBalances(sub.Balances)}
	}
	return clone
}

// Equal compares two sub-allocations.
func (s SubAlloc) Equal(other SubAlloc) bool {
	return s.ID == other.ID && equalBalances(s.Balances, other.Balances)
}

func (s SubAlloc) ToScVal() (xdr.ScVal, error) {
	id, err := scval.WrapScBytes(s.ID[:])
	if err != nil {
		return xdr.ScVal{}, err
	}
	balsVec, err := MakeBalanceVec(s.Balances)
	if err != nil {
		return xdr.ScVal{}, err
	}
	bals, err := scval.WrapVec(balsVec)
	if err != nil {
		return xdr.ScVal{}, err
	}
	m, err := MakeSymbolScMap(
		[]xdr.ScSymbol{SymbolSubAllocID, SymbolSubAllocBalances},
		[]xdr.ScVal{id, bals},
	)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapScMap(m)
}

func (s *SubAlloc) FromScVal(v xdr.ScVal) error {
	m, err := symbolMap(v, 2, "sub-allocation") //nolint:gomnd
	if err != nil {
		return err
	}
	id, err := getID(m, SymbolSubAllocID)
	if err != nil {
		return err
	}
	balsVal, err := GetScMapValueFromSymbol(SymbolSubAllocBalances, m)
	if err != nil {
		return err
	}
	bals, err := BalanceVecFromScVal(balsVal)
	if err != nil {
		return err
	}
	s.ID = id
	s.Balances = bals
	return nil
}

func (a Allocation) ToScVal() (xdr.ScVal, error) {
	assetVec := make(xdr.ScVec, len(a.Assets))
	for i, asset := range a.Assets {
		addr, err := asset.MakeScAddress()
		if err != nil {
			return xdr.ScVal{}, err
		}
		if assetVec[i], err = scval.WrapScAddress(addr); err != nil {
			return xdr.ScVal{}, err
		}
	}
	assets, err := scval.WrapVec(assetVec)
	if err != nil {
		return xdr.ScVal{}, err
	}
	balVec := make(xdr.ScVec, len(a.Balances))
	for i, bals := range a.Balances {
		vec, err := MakeBalanceVec(bals)
		if err != nil {
			return xdr.ScVal{}, err
		}
		if balVec[i], err = scval.WrapVec(vec); err != nil {
			return xdr.ScVal{}, err
		}
	}
	balances, err := scval.WrapVec(balVec)
	if err != nil {
		return xdr.ScVal{}, err
	}
	lockedVec := make(xdr.ScVec, len(a.Locked))
	for i, sub := range a.Locked {
		if lockedVec[i], err = sub.ToScVal(); err != nil {
			return xdr.ScVal{}, err
		}
	}
	locked, err := scval.WrapVec(lockedVec)
	if err != nil {
		return xdr.ScVal{}, err
	}
	m, err := MakeSymbolScMap(
		[]xdr.ScSymbol{
			SymbolAllocationAssets,
			SymbolAllocationBalances,
			SymbolAllocationLocked,
		},
		[]xdr.ScVal{assets, balances, locked},
	)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapScMap(m)
}

func (a *Allocation) FromScVal(v xdr.ScVal) error {
	m, err := symbolMap(v, 3, "allocation") //nolint:gomnd
	if err != nil {
		return err
	}
	assetVec, err := getVec(m, SymbolAllocationAssets)
	if err != nil {
		return err
	}
	assets := make([]types.Asset, len(assetVec))
	for i, av := range assetVec {
		addr, ok := av.GetAddress()
		if !ok {
			return errors.New("expected address decoding asset")
		}
		if assets[i], err = types.AssetFromScAddress(addr); err != nil {
			return err
		}
	}
	balVec, err := getVec(m, SymbolAllocationBalances)
	if err != nil {
		return err
	}
	balances := make([][]*big.Int, len(balVec))
	for i, bv := range balVec {
		if balances[i], err = BalanceVecFromScVal(bv); err != nil {
			return err
		}
	}
	lockedVec, err := getVec(m, SymbolAllocationLocked)
	if err != nil {
		return err
	}
	locked := make([]SubAlloc, len(lockedVec))
	for i, lv := range lockedVec {
		if err := locked[i].FromScVal(lv); err != nil {
			return err
		}
	}
	a.Assets = assets
	a.Balances = balances
	a.Locked = locked
	return nil
}
