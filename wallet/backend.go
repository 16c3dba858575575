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

package wallet

import (
	"crypto/ed25519"
	"io"

	pwallet "perun.network/go-perun/wallet"

	"perun.network/perun-adjudicator/wallet/types"
)

// SignatureLength is the length of a signature in bytes.
const SignatureLength = ed25519.SignatureSize

type backend struct{}

// Backend verifies signatures produced by any Account, in this process or
// another one.
var Backend = backend{}

// DecodeSig decodes a signature of length SignatureLength from the reader.
func (b backend) DecodeSig(reader io.Reader) (pwallet.Sig, error) {
	sig := make([]byte, SignatureLength)
	if _, err := io.ReadFull(reader, sig); err != nil {
		return nil, err
	}
	return sig, nil
}

// VerifySignature reports whether sig is p's signature over msg. Malformed
// signatures are reported as invalid, not as errors.
func (b backend) VerifySignature(msg []byte, sig pwallet.Sig, p types.Participant) bool {
	return p.Verify(msg, sig)
}
