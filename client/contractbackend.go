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

package client

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/stellar/go/xdr"
	pkgsync "polycry.pt/poly-go/sync"

	"perun.network/perun-adjudicator/wallet"
	wtypes "perun.network/perun-adjudicator/wallet/types"
	"perun.network/perun-adjudicator/wire"
)

// ContractBackend sends the calls of one account to a Host. Calls of the
// same backend are serialized.
type ContractBackend struct {
	acc     *wallet.Account
	host    *Host
	cbMutex pkgsync.Mutex
}

// NewContractBackend returns a backend invoking host as acc.
func NewContractBackend(acc *wallet.Account, host *Host) *ContractBackend {
	return &ContractBackend{acc: acc, host: host}
}

// Account returns the account the backend calls with.
func (cb *ContractBackend) Account() *wallet.Account {
	return cb.acc
}

// Participant returns the identity of the backend's account.
func (cb *ContractBackend) Participant() wtypes.Participant {
	return cb.acc.Participant()
}

// InvokeSignedTx invokes fname as the backend's account.
func (cb *ContractBackend) InvokeSignedTx(fname string, callTxArgs xdr.ScVec) (*TxResult, error) {
	cb.cbMutex.Lock()
	defer cb.cbMutex.Unlock()
	return cb.host.Invoke(cb.acc.Participant(), fname, callTxArgs)
}

// InvokeUnsignedTx invokes a query that needs no caller.
func (cb *ContractBackend) InvokeUnsignedTx(fname string, callTxArgs xdr.ScVec) (*TxResult, error) {
	return cb.host.Invoke(wtypes.ZeroParticipant(), fname, callTxArgs)
}

func amountFromScVal(v xdr.ScVal) (*big.Int, error) {
	parts, ok := v.GetI128()
	if !ok {
		return nil, errors.Errorf("expected i128 result, got %v", v.Type)
	}
	return wire.ToBigInt(parts)
}
