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

package channel

import (
	"github.com/pkg/errors"
)

// Category classifies why a call was rejected. A rejected call never
// changes the ledger, so every category is recoverable by retrying with
// corrected input.
type Category int

const (
	CategoryNone Category = iota
	CategoryMalformedInput
	CategoryAuthentication
	CategorySequencing
	CategoryConsistency
	CategoryCustody
)

func (c Category) String() string {
	switch c {
	case CategoryMalformedInput:
		return "malformed input"
	case CategoryAuthentication:
		return "authentication failure"
	case CategorySequencing:
		return "sequencing violation"
	case CategoryConsistency:
		return "consistency violation"
	case CategoryCustody:
		return "custody violation"
	default:
		return "uncategorized"
	}
}

var (
	// Malformed input.
	ErrInvalidParams    = errors.New("invalid channel parameters")
	ErrInvalidState     = errors.New("invalid channel state")
	ErrSignatureCount   = errors.New("wrong number of signatures")
	ErrActorIndex       = errors.New("actor index out of range")
	ErrNotFinal         = errors.New("state is not final")
	ErrLockedNotEmpty   = errors.New("final state must not lock funds in sub-channels")
	ErrLengthMismatch   = errors.New("number of participants and balances differ")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrSubchannelCount  = errors.New("number of sub-states and locked sub-allocations differ")
	ErrInvalidAuthority = errors.New("asset holder answers to a different adjudicator")

	// Authentication failure.
	ErrInvalidSignature = errors.New("invalid signature")

	// Sequencing violation.
	ErrNotRegistered         = errors.New("channel is not registered")
	ErrAlreadyRegistered     = errors.New("channel is past the dispute phase")
	ErrAlreadyConcluded      = errors.New("channel is already concluded")
	ErrVersionTooLow         = errors.New("version must be greater than the registered version")
	ErrVersionNotIncremented = errors.New("version must increase by exactly one")
	ErrTimeoutNotElapsed     = errors.New("timeout not elapsed")
	ErrTimeoutElapsed        = errors.New("timeout already elapsed")
	ErrStateMismatch         = errors.New("state does not match the registered state")
	ErrFinalState            = errors.New("cannot progress from a final state")
	ErrNoApp                 = errors.New("channel has no app and cannot be progressed")

	// Consistency violation.
	ErrInvalidTransition      = errors.New("invalid state transition")
	ErrBalanceMismatch        = errors.New("balances are not conserved")
	ErrLockedChanged          = errors.New("locked sub-allocations changed")
	ErrAssetMismatch          = errors.New("asset lists differ")
	ErrSubchannelMismatch     = errors.New("sub-state does not match the locked sub-allocation")
	ErrSubchannelNotConcluded = errors.New("sub-channel is not concluded")
	ErrUnknownApp             = errors.New("no implementation registered for app")
	ErrUnknownAsset           = errors.New("no asset holder registered for asset")

	// Custody violation.
	ErrUnauthorized          = errors.New("caller is not the adjudicator")
	ErrAlreadySettled        = errors.New("channel already settled")
	ErrInsufficientFunds     = errors.New("insufficient holdings")
	ErrValueMismatch         = errors.New("attached value does not match amount")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrOverflow              = errors.New("amount overflow")
)

// pastDisputeError marks a rejection because the channel left the dispute
// phase. It matches ErrAlreadyRegistered and the wrapped cause.
type pastDisputeError struct{ error }

func (e pastDisputeError) Unwrap() error { return e.error }

func (e pastDisputeError) Is(target error) bool { return target == ErrAlreadyRegistered }

var categories = []struct {
	category Category
	errs     []error
}{
	{CategoryMalformedInput, []error{
		ErrInvalidParams, ErrInvalidState, ErrSignatureCount, ErrActorIndex,
		ErrNotFinal, ErrLockedNotEmpty, ErrLengthMismatch, ErrInvalidAmount,
		ErrSubchannelCount, ErrInvalidAuthority,
	}},
	{CategoryAuthentication, []error{ErrInvalidSignature}},
	{CategorySequencing, []error{
		ErrNotRegistered, ErrAlreadyRegistered, ErrAlreadyConcluded,
		ErrVersionTooLow, ErrVersionNotIncremented, ErrTimeoutNotElapsed,
		ErrTimeoutElapsed, ErrStateMismatch, ErrFinalState, ErrNoApp,
	}},
	{CategoryConsistency, []error{
		ErrInvalidTransition, ErrBalanceMismatch, ErrLockedChanged,
		ErrAssetMismatch, ErrSubchannelMismatch, ErrSubchannelNotConcluded,
		ErrUnknownApp, ErrUnknownAsset,
	}},
	{CategoryCustody, []error{
		ErrUnauthorized, ErrAlreadySettled, ErrInsufficientFunds,
		ErrValueMismatch, ErrInsufficientAllowance, ErrInsufficientBalance,
		ErrOverflow,
	}},
}

// ErrorCategory returns the category of a rejection error, or CategoryNone
// for errors that did not originate from a validation.
func ErrorCategory(err error) Category {
	for _, c := range categories {
		for _, e := range c.errs {
			if errors.Is(err, e) {
				return c.category
			}
		}
	}
	return CategoryNone
}
