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
	"sort"
	"strings"

	"github.com/stellar/go/xdr"

	"perun.network/perun-adjudicator/wire/scval"
)

// MakeSymbolScMap creates a xdr.ScMap from a slice of symbols and a slice of values.
// The entries are sorted lexicographically by symbol. We expect that keys does not contain duplicates.
func MakeSymbolScMap(keys []xdr.ScSymbol, values []xdr.ScVal) (xdr.ScMap, error) {
	if len(keys) != len(values) {
		return xdr.ScMap{}, errors.New("keys and values must have the same length")
	}
	m := make(xdr.ScMap, len(keys))
	for i, k := range keys {
		m[i] = xdr.ScMapEntry{
			Key: scval.MustWrapScSymbol(k),
			Val: values[i],
		}
	}
	sort.Slice(m, func(i, j int) bool {
		return strings.Compare(string(m[i].Key.MustSym()), string(m[j].Key.MustSym())) < 0
	})
	return m, nil
}

// GetScMapEntry returns the entry stored under key.
func GetScMapEntry(key xdr.ScVal, m xdr.ScMap) (xdr.ScMapEntry, error) {
	for _, v := range m {
		if v.Key.Equals(key) {
			return v, nil
		}
	}

	return xdr.ScMapEntry{}, errors.New("key not found")
}

// GetMapValue returns the value stored under key.
func GetMapValue(key xdr.ScVal, m xdr.ScMap) (xdr.ScVal, error) {
	entry, err := GetScMapEntry(key, m)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return entry.Val, nil
}

// GetScMapValueFromSymbol returns the value stored under the symbol key.
func GetScMapValueFromSymbol(key xdr.ScSymbol, m xdr.ScMap) (xdr.ScVal, error) {
	keyVal, err := scval.WrapScSymbol(key)
	if err != nil {
		return xdr.ScVal{}, err
	}
	v, err := GetMapValue(keyVal, m)
	if err != nil {
		return xdr.ScVal{}, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// symbolMap unwraps a map value and checks that it has exactly n entries.
func symbolMap(v xdr.ScVal, n int, what string) (xdr.ScMap, error) {
	m, ok := v.GetMap()
	if !ok || m == nil {
		return nil, fmt.Errorf("expected map decoding %s", what)
	}
	if len(*m) != n {
		return nil, fmt.Errorf("expected map of length %d decoding %s", n, what)
	}
	return *m, nil
}

func getBytes(m xdr.ScMap, key xdr.ScSymbol) (xdr.ScBytes, error) {
	v, err := GetScMapValueFromSymbol(key, m)
	if err != nil {
		return nil, err
	}
	b, ok := v.GetBytes()
	if !ok {
		return nil, fmt.Errorf("expected bytes decoding %s", key)
	}
	return b, nil
}

func getID(m xdr.ScMap, key xdr.ScSymbol) ([32]byte, error) {
	b, err := getBytes(m, key)
	if err != nil {
		return [32]byte{}, err
	}
	if len(b) != HashLength {
		return [32]byte{}, fmt.Errorf("invalid length %d decoding %s", len(b), key)
	}
	var id [32]byte
	copy(id[:], b)
	return id, nil
}

func getU64(m xdr.ScMap, key xdr.ScSymbol) (uint64, error) {
	v, err := GetScMapValueFromSymbol(key, m)
	if err != nil {
		return 0, err
	}
	u, ok := v.GetU64()
	if !ok {
		return 0, fmt.Errorf("expected uint64 decoding %s", key)
	}
	return uint64(u), nil
}

func getU32(m xdr.ScMap, key xdr.ScSymbol) (uint32, error) {
	v, err := GetScMapValueFromSymbol(key, m)
	if err != nil {
		return 0, err
	}
	u, ok := v.GetU32()
	if !ok {
		return 0, fmt.Errorf("expected uint32 decoding %s", key)
	}
	return uint32(u), nil
}

func getBool(m xdr.ScMap, key xdr.ScSymbol) (bool, error) {
	v, err := GetScMapValueFromSymbol(key, m)
	if err != nil {
		return false, err
	}
	b, ok := v.GetB()
	if !ok {
		return false, fmt.Errorf("expected bool decoding %s", key)
	}
	return b, nil
}

func getVec(m xdr.ScMap, key xdr.ScSymbol) (xdr.ScVec, error) {
	v, err := GetScMapValueFromSymbol(key, m)
	if err != nil {
		return nil, err
	}
	return vecFromScVal(v, string(key))
}

func vecFromScVal(v xdr.ScVal, what string) (xdr.ScVec, error) {
	vec, ok := v.GetVec()
	if !ok || vec == nil {
		return nil, fmt.Errorf("expected vec decoding %s", what)
	}
	return *vec, nil
}
