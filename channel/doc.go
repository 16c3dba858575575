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

// Package channel implements dispute resolution and custody for Perun
// channels. The Adjudicator keeps one dispute record per channel and moves
// it from DISPUTE through FORCEEXEC to CONCLUDED. Asset holders escrow
// deposits per funding id and pay out the outcome of concluded channels.
// Funder and AdjEventSub connect both to go-perun clients.
package channel
