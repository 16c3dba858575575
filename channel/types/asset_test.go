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

package types_test

import (
	"testing"

	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/require"

	"perun.network/perun-adjudicator/channel/types"
)

func testHash(s string) xdr.Hash {
	var hash xdr.Hash
	copy(hash[:], []byte(s))
	return hash
}

func TestMarshalAndUnmarshalBinary(t *testing.T) {
	asset := types.NewAsset(testHash("testhashfortestingonly!testhash"))

	data, err := asset.MarshalBinary()
	require.NoError(t, err)

	var newAsset types.Asset
	require.NoError(t, newAsset.UnmarshalBinary(data))
	require.True(t, asset.Equal(newAsset))
	require.Equal(t, asset.ContractID().HexString(), newAsset.ContractID().HexString())

	require.Error(t, newAsset.UnmarshalBinary(data[:5]))
}

func TestAssetScAddress(t *testing.T) {
	asset := types.NewAsset(testHash("native"))
	addr, err := asset.MakeScAddress()
	require.NoError(t, err)
	require.Equal(t, xdr.ScAddressTypeScAddressTypeContract, addr.Type)

	decoded, err := types.AssetFromScAddress(addr)
	require.NoError(t, err)
	require.True(t, asset.Equal(decoded))

	parsed, err := types.ParseAsset(asset.String())
	require.NoError(t, err)
	require.Equal(t, asset.MapKey(), parsed.MapKey())
}

func TestAppID(t *testing.T) {
	noApp := types.NoApp()
	require.True(t, noApp.IsNoApp())
	require.True(t, noApp.Equal(types.AppID{}))

	app := types.NewAppID(testHash("app"))
	require.False(t, app.IsNoApp())
	require.False(t, app.Equal(noApp))
	require.True(t, app.Equal(types.NewAppID(testHash("app"))))
	require.False(t, app.Equal(types.NewAppID(testHash("other"))))

	for _, id := range []types.AppID{noApp, app} {
		v, err := id.ToScVal()
		require.NoError(t, err)
		var decoded types.AppID
		require.NoError(t, decoded.FromScVal(v))
		require.True(t, id.Equal(decoded))
	}
}
