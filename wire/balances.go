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
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/stellar/go/xdr"

	"perun.network/perun-adjudicator/wire/scval"
)

// MaxBalance is the maximum balance that can be represented in the wire format.
var MaxBalance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1)) //nolint:gomnd

// MakeInt128Parts converts a big.Int to xdr.Int128Parts.
// It returns an error if the big.Int is negative or too large.
//
//nolint:gomnd
func MakeInt128Parts(i *big.Int) (xdr.Int128Parts, error) {
	if i == nil {
		return xdr.Int128Parts{}, errors.New("nil balance")
	}
	if i.Sign() < 0 {
		return xdr.Int128Parts{}, errors.New("expected non-negative balance")
	}
	if i.Cmp(MaxBalance) > 0 {
		return xdr.Int128Parts{}, errors.New("balance too large")
	}
	b := make([]byte, 16)
	b = i.FillBytes(b)
	hi := binary.BigEndian.Uint64(b[:8])
	lo := binary.BigEndian.Uint64(b[8:])
	return xdr.Int128Parts{
		Hi: xdr.Int64(hi),
		Lo: xdr.Uint64(lo),
	}, nil
}

// ToBigInt converts xdr.Int128Parts to a big.Int. Negative values are
// rejected since balances never are.
//
//nolint:gomnd
func ToBigInt(i xdr.Int128Parts) (*big.Int, error) {
	if i.Hi < 0 {
		return nil, errors.New("expected non-negative balance")
	}
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], uint64(i.Hi))
	binary.BigEndian.PutUint64(b[8:], uint64(i.Lo))
	return new(big.Int).SetBytes(b), nil
}

// MakeBalanceVec encodes a vector of balances as a vec of i128 values.
func MakeBalanceVec(bals []*big.Int) (xdr.ScVec, error) {
	vec := make(xdr.ScVec, len(bals))
	for i, bal := range bals {
		parts, err := MakeInt128Parts(bal)
		if err != nil {
			return nil, err
		}
		if vec[i], err = scval.WrapInt128Parts(parts); err != nil {
			return nil, err
		}
	}
	return vec, nil
}

// BalanceVecFromScVal decodes a vec of i128 values.
func BalanceVecFromScVal(v xdr.ScVal) ([]*big.Int, error) {
	vec, err := vecFromScVal(v, "balances")
	if err != nil {
		return nil, err
	}
	bals := make([]*big.Int, len(vec))
	for i, b := range vec {
		parts, ok := b.GetI128()
		if !ok {
			return nil, errors.New("expected i128 decoding balance")
		}
		if bals[i], err = ToBigInt(parts); err != nil {
			return nil, err
		}
	}
	return bals, nil
}

// SumBalances returns the sum of the given balances.
func SumBalances(bals []*big.Int) *big.Int {
	sum := new(big.Int)
	for _, b := range bals {
		sum.Add(sum, b)
	}
	return sum
}

// CloneBalances deep copies a balance vector.
func CloneBalances(bals []*big.Int) []*big.Int {
	clone := make([]*big.Int, len(bals))
	for i, b := range bals {
		clone[i] = new(big.Int).Set(b)
	}
	return clone
}

func equalBalances(a, b []*big.Int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Cmp(b[i]) != 0 {
			return false
		}
	}
	return true
}

func checkBalance(b *big.Int) error {
	if b == nil {
		return errors.New("nil balance")
	}
	if b.Sign() < 0 {
		return errors.New("negative balance")
	}
	if b.Cmp(MaxBalance) > 0 {
		return errors.New("balance too large")
	}
	return nil
}
