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

// Package scval wraps Go values into xdr.ScVal unions.
package scval

import "github.com/stellar/go/xdr"

func WrapScAddress(address xdr.ScAddress) (xdr.ScVal, error) {
	return xdr.NewScVal(xdr.ScValTypeScvAddress, address)
}

func MustWrapScAddress(address xdr.ScAddress) xdr.ScVal {
	v, err := WrapScAddress(address)
	if err != nil {
		panic(err)
	}
	return v
}

func WrapInt128Parts(parts xdr.Int128Parts) (xdr.ScVal, error) {
	return xdr.NewScVal(xdr.ScValTypeScvI128, parts)
}

func WrapScMap(m xdr.ScMap) (xdr.ScVal, error) {
	return xdr.NewScVal(xdr.ScValTypeScvMap, &m)
}

func MustWrapScMap(m xdr.ScMap) xdr.ScVal {
	v, err := WrapScMap(m)
	if err != nil {
		panic(err)
	}
	return v
}

// WrapVec wraps a vector. Vectors are length-prefixed on the wire.
func WrapVec(v xdr.ScVec) (xdr.ScVal, error) {
	return xdr.NewScVal(xdr.ScValTypeScvVec, &v)
}

func MustWrapVec(v xdr.ScVec) xdr.ScVal {
	w, err := WrapVec(v)
	if err != nil {
		panic(err)
	}
	return w
}

func WrapScSymbol(symbol xdr.ScSymbol) (xdr.ScVal, error) {
	return xdr.NewScVal(xdr.ScValTypeScvSymbol, symbol)
}

func MustWrapScSymbol(symbol xdr.ScSymbol) xdr.ScVal {
	v, err := WrapScSymbol(symbol)
	if err != nil {
		panic(err)
	}
	return v
}

func WrapScBytes(b xdr.ScBytes) (xdr.ScVal, error) {
	return xdr.NewScVal(xdr.ScValTypeScvBytes, b)
}

func MustWrapScBytes(b xdr.ScBytes) xdr.ScVal {
	v, err := WrapScBytes(b)
	if err != nil {
		panic(err)
	}
	return v
}

func WrapUint64(i xdr.Uint64) (xdr.ScVal, error) {
	return xdr.NewScVal(xdr.ScValTypeScvU64, i)
}

func MustWrapUint64(i xdr.Uint64) xdr.ScVal {
	v, err := WrapUint64(i)
	if err != nil {
		panic(err)
	}
	return v
}

func WrapUint32(i xdr.Uint32) (xdr.ScVal, error) {
	return xdr.NewScVal(xdr.ScValTypeScvU32, i)
}

func MustWrapUint32(i xdr.Uint32) xdr.ScVal {
	v, err := WrapUint32(i)
	if err != nil {
		panic(err)
	}
	return v
}

// WrapVoid returns the unit value, used for absent optional fields.
func WrapVoid() (xdr.ScVal, error) {
	return xdr.NewScVal(xdr.ScValTypeScvVoid, nil)
}

func WrapBool(b bool) (xdr.ScVal, error) {
	return xdr.NewScVal(xdr.ScValTypeScvBool, b)
}

func MustWrapBool(b bool) xdr.ScVal {
	v, err := WrapBool(b)
	if err != nil {
		panic(err)
	}
	return v
}

// IsVoid reports whether v is the unit value.
func IsVoid(v xdr.ScVal) bool {
	return v.Type == xdr.ScValTypeScvVoid
}
