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
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-forecast/capm"
)

var (
	capmYears     int
	capmBenchmark string
	capmJSON      bool
)

func init() {
	capmCmd.Flags().IntVarP(&capmYears, "years", "y", 2, "Years of daily returns to regress (1-5)")
	capmCmd.Flags().StringVarP(&capmBenchmark, "benchmark", "b", capm.DefaultBenchmark, "Market benchmark symbol")
	capmCmd.Flags().BoolVar(&capmJSON, "json", false, "Print the estimate as JSON")

	rootCmd.AddCommand(capmCmd)
}

func pct(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
}

var capmCmd = &cobra.Command{
	Use:   "capm TICKER",
	Short: "Estimate beta and the CAPM expected return of a stock",
	Long: `Regress the daily returns of TICKER on a benchmark to estimate beta and
combine it with the 3-month treasury bill rate (FRED DTB3) into the CAPM
expected annual return.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := capm.Analyze(context.Background(), newManager(), args[0], capmBenchmark, capmYears)
		if err != nil {
			log.Fatal().Err(err).Str("Ticker", args[0]).Msg("capm estimate failed")
		}

		if capmJSON {
			printJSON(res)
			return
		}

		fmt.Printf("CAPM for %s against %s, %s to %s\n\n", res.Symbol, res.Benchmark,
			res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"))

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Measure", "Value"})
		table.Append([]string{"Beta", strconv.FormatFloat(res.Beta, 'f', 3, 64)})
		table.Append([]string{"Risk-free rate", pct(res.RiskFree)})
		table.Append([]string{"Market return", pct(res.MarketReturn)})
		table.Append([]string{"Expected return", pct(res.ExpectedReturn)})
		table.Append([]string{"Observations", strconv.Itoa(res.Observations)})
		table.Render()
	},
}
