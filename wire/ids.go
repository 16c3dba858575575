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
	"github.com/stellar/go/hash"
	"github.com/stellar/go/xdr"
	pchannel "perun.network/go-perun/channel"

	wtypes "perun.network/perun-adjudicator/wallet/types"
	"perun.network/perun-adjudicator/wire/scval"
)

// ChannelID derives the channel id as the hash of the encoded parameters.
func ChannelID(params Params) (pchannel.ID, error) {
	return Hash(params)
}

// FundingID derives the holdings key of a participant in a channel as the
// hash of the encoded pair (channel id, participant).
func FundingID(channelID pchannel.ID, participant wtypes.Participant) (pchannel.ID, error) {
	addr, err := participant.ScAddress()
	if err != nil {
		return pchannel.ID{}, err
	}
	v, err := scval.WrapVec(xdr.ScVec{
		scval.MustWrapScBytes(channelID[:]),
		scval.MustWrapScAddress(addr),
	})
	if err != nil {
		return pchannel.ID{}, err
	}
	data, err := encodeScVal(v)
	if err != nil {
		return pchannel.ID{}, err
	}
	return hash.Hash(data), nil
}

// FundingIDs derives the funding ids of all participants of a channel.
func FundingIDs(channelID pchannel.ID, participants []wtypes.Participant) ([]pchannel.ID, error) {
	ids := make([]pchannel.ID, len(participants))
	for i, p := range participants {
		var err error
		if ids[i], err = FundingID(channelID, p); err != nil {
			return nil, err
		}
	}
	return ids, nil
}
