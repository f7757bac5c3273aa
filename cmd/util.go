// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-forecast/data"
	"github.com/penny-vault/pv-forecast/forecast"
)

// chartWidth is the number of columns used by terminal charts
const chartWidth = 90

func newManager() *data.Manager {
	manager, err := data.NewManagerFromConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("could not create market data manager")
	}
	return manager
}

func loadSettings() *forecast.Settings {
	settings, err := forecast.LoadSettings()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid forecast configuration")
	}
	return settings
}

func checkYears(years int) {
	if years < 1 || years > 5 {
		log.Fatal().Int("Years", years).Msg("years must be between 1 and 5")
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("could not encode JSON")
	}
	fmt.Fprintln(os.Stdout, string(out))
}
