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
	"bytes"

	xdr3 "github.com/stellar/go-xdr/xdr3"
	"github.com/stellar/go/hash"
	"github.com/stellar/go/xdr"
)

// HashLength is the length of channel ids, funding ids and state hashes.
const HashLength = 32

// ScValer is implemented by every type with a canonical encoding.
type ScValer interface {
	ToScVal() (xdr.ScVal, error)
}

// Encode returns the canonical encoding of v. It is the message that
// participants sign and the preimage of every identifier.
func Encode(v ScValer) ([]byte, error) {
	sv, err := v.ToScVal()
	if err != nil {
		return nil, err
	}
	return encodeScVal(sv)
}

// Hash returns the SHA-256 digest of the canonical encoding of v.
func Hash(v ScValer) ([HashLength]byte, error) {
	data, err := Encode(v)
	if err != nil {
		return [HashLength]byte{}, err
	}
	return hash.Hash(data), nil
}

func encodeScVal(v xdr.ScVal) ([]byte, error) {
	buf := bytes.Buffer{}
	e := xdr3.NewEncoder(&buf)
	if err := v.EncodeTo(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeScVal(data []byte) (xdr.ScVal, error) {
	var v xdr.ScVal
	err := xdr.SafeUnmarshal(data, &v)
	return v, err
}
