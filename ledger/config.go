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
	"os"

	"github.com/naoina/toml"
	"github.com/pkg/errors"
)

const (
	ClockSystem    = "system"
	ClockSimulated = "simulated"
)

// Config configures the ledger environment.
type Config struct {
	// DataDir is the goleveldb directory. Ignored if InMemory is set.
	DataDir  string `toml:"data_dir"`
	InMemory bool   `toml:"in_memory"`
	// Clock is either "system" or "simulated".
	Clock     string `toml:"clock"`
	StartTime uint64 `toml:"start_time"`
	LogLevel  string `toml:"log_level"`
}

// DefaultConfig is an in-memory ledger with a simulated clock.
func DefaultConfig() Config {
	return Config{
		InMemory: true,
		Clock:    ClockSimulated,
		LogLevel: "info",
	}
}

// ParseConfig parses a TOML document on top of the default config.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parsing config")
	}
	return cfg, cfg.Validate()
}

// LoadConfig reads and parses a TOML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading config")
	}
	return ParseConfig(data)
}

// Validate checks the config for consistency.
func (c Config) Validate() error {
	if !c.InMemory && c.DataDir == "" {
		return errors.New("data_dir is required unless in_memory is set")
	}
	switch c.Clock {
	case ClockSystem, ClockSimulated:
	default:
		return errors.Errorf("unknown clock %q", c.Clock)
	}
	return nil
}

// NewClock returns the clock selected by the config.
func (c Config) NewClock() Clock {
	if c.Clock == ClockSystem {
		return SystemClock{}
	}
	return NewSimClock(c.StartTime)
}
