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

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-forecast/forecast"
)

func init() {
	rootCmd.AddCommand(modelsCmd)
}

var modelsCmd = &cobra.Command{
	Use:   "models [SHORTCODE]",
	Short: "List the available forecasting models",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			info, err := forecast.Lookup(args[0])
			if err != nil {
				log.Fatal().Err(err).Msg("unknown model")
			}
			fmt.Printf("%s (%s)\n\n%s\n", info.Name, info.Shortcode, info.LongDescription)
			return
		}

		forecast.InitializeModelMap()
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Shortcode", "Name", "Family", "Description"})
		table.SetAutoWrapText(false)
		for _, info := range forecast.ModelList {
			table.Append([]string{info.Shortcode, info.Name, info.Family, info.Description})
		}
		table.Render()
	},
}
