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

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	plogrus "perun.network/go-perun/log/logrus"

	"perun.network/perun-adjudicator/ledger"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML file configuring the ledger",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "store the ledger in this directory instead of memory",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "loglevel",
		Usage: "log level (trace, debug, info, warn, error)",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "perun-adjudicator",
		Usage: "dispute resolution and custody for Perun channels",
		Flags: []cli.Flag{configFlag, dataDirFlag, logLevelFlag},
		Commands: []*cli.Command{
			commandDemo,
			commandChannelID,
			commandFundingID,
			commandInspect,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the ledger config and applies the global flags on top.
// It also installs the logger at the configured level.
func loadConfig(c *cli.Context) (ledger.Config, error) {
	cfg := ledger.DefaultConfig()
	if path := c.String(configFlag.Name); path != "" {
		var err error
		if cfg, err = ledger.LoadConfig(path); err != nil {
			return ledger.Config{}, err
		}
	}
	if dir := c.String(dataDirFlag.Name); dir != "" {
		cfg.DataDir = dir
		cfg.InMemory = false
	}
	if lvl := c.String(logLevelFlag.Name); lvl != "" {
		cfg.LogLevel = lvl
	}
	if err := cfg.Validate(); err != nil {
		return ledger.Config{}, err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return ledger.Config{}, err
	}
	plogrus.Set(level, &logrus.TextFormatter{FullTimestamp: true})
	return cfg, nil
}
