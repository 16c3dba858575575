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

package test

import (
	"math/big"
	"math/rand"

	"github.com/stellar/go/xdr"

	"perun.network/perun-adjudicator/channel/types"
)

// NewRandomHash draws a 32 byte hash from rng.
func NewRandomHash(rng *rand.Rand) xdr.Hash {
	var h xdr.Hash
	rng.Read(h[:]) //nolint:gosec
	return h
}

// NewRandomAsset returns an asset at a random contract address.
func NewRandomAsset(rng *rand.Rand) types.Asset {
	return types.NewAsset(NewRandomHash(rng))
}

// NewRandomApp returns an app id at a random contract address.
func NewRandomApp(rng *rand.Rand) types.AppID {
	return types.NewAppID(NewRandomHash(rng))
}

// NewRandomNonce draws a 256 bit nonce from rng.
func NewRandomNonce(rng *rand.Rand) *big.Int {
	var b [32]byte
	rng.Read(b[:]) //nolint:gosec
	return new(big.Int).SetBytes(b[:])
}
