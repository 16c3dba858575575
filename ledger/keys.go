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

package ledger

import (
	"encoding/hex"
	"fmt"

	pchannel "perun.network/go-perun/channel"

	"perun.network/perun-adjudicator/channel/types"
)

var (
	prefixHoldings = "holdings/"
	prefixSettled  = "settled/"
	prefixDisputes = "disputes/"
	prefixAccounts = "accounts/"
	prefixEvents   = "events/"

	keyEventCount = []byte("meta/event_count")
)

// HoldingsKey is the key of the holdings of fundingID at the asset holder.
func HoldingsKey(asset types.Asset, fundingID pchannel.ID) []byte {
	return []byte(prefixHoldings + asset.String() + "/" + hex.EncodeToString(fundingID[:]))
}

// SettledKey is the key of the settled flag of a channel at the asset holder.
func SettledKey(asset types.Asset, channelID pchannel.ID) []byte {
	return []byte(prefixSettled + asset.String() + "/" + hex.EncodeToString(channelID[:]))
}

// DisputeKey is the key of the dispute record of a channel.
func DisputeKey(channelID pchannel.ID) []byte {
	return []byte(prefixDisputes + hex.EncodeToString(channelID[:]))
}

// AccountKey is the key of a vault ledger entry, such as a native balance,
// a token balance or an allowance. Parts are joined with '/'.
func AccountKey(asset types.Asset, parts ...string) []byte {
	key := prefixAccounts + asset.String()
	for _, p := range parts {
		key += "/" + p
	}
	return []byte(key)
}

// EventKey is the key of the committed event with sequence number seq.
// Keys sort in commit order.
func EventKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixEvents, seq))
}
