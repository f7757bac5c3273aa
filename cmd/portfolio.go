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
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-forecast/common"
	"github.com/penny-vault/pv-forecast/portfolio"
)

var (
	portfolioStart string
	portfolioEnd   string
	portfolioJSON  bool
)

func init() {
	portfolioCmd.Flags().StringVarP(&portfolioStart, "start", "s", portfolio.DefaultStart.Format("2006-01-02"), "First day of the analysis")
	portfolioCmd.Flags().StringVarP(&portfolioEnd, "end", "e", "today", "Last day of the analysis")
	portfolioCmd.Flags().BoolVar(&portfolioJSON, "json", false, "Print the analysis as JSON")

	rootCmd.AddCommand(portfolioCmd)
}

var portfolioCmd = &cobra.Command{
	Use:   "portfolio [TICKER...]",
	Short: "Analyse the daily returns of several stocks",
	Long: `Compute daily returns, their correlation matrix, cumulative growth and
risk statistics for the given tickers (default AAPL MSFT).`,
	Run: func(cmd *cobra.Command, args []string) {
		tickers := args
		if len(tickers) == 0 {
			tickers = portfolio.DefaultTickers
		}

		tz := common.GetTimezone()
		start, err := time.ParseInLocation("2006-01-02", portfolioStart, tz)
		if err != nil {
			log.Fatal().Err(err).Str("Start", portfolioStart).Msg("cannot parse start date")
		}

		end := common.Midnight(time.Now())
		if portfolioEnd != "today" {
			end, err = time.ParseInLocation("2006-01-02", portfolioEnd, tz)
			if err != nil {
				log.Fatal().Err(err).Str("End", portfolioEnd).Msg("cannot parse end date")
			}
		}

		analysis, err := portfolio.Load(context.Background(), newManager(), tickers, start, end)
		if err != nil {
			log.Fatal().Err(err).Strs("Tickers", tickers).Msg("portfolio analysis failed")
		}

		if portfolioJSON {
			printJSON(analysis.JSON())
			return
		}

		fmt.Println(analysis.Chart(chartWidth))
		fmt.Println()
		fmt.Println("Correlation of daily returns")
		fmt.Println(analysis.CorrelationTable())
		fmt.Println(analysis.StatsTable())
	},
}
