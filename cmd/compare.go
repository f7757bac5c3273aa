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
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-forecast/data"
	"github.com/penny-vault/pv-forecast/forecast"
)

var (
	compareYears int
	compareJSON  bool
)

func init() {
	compareCmd.Flags().IntVarP(&compareYears, "years", "y", 2, "Years of history to load (1-5)")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "Print the comparison as JSON")

	rootCmd.AddCommand(compareCmd)
}

var compareCmd = &cobra.Command{
	Use:   "compare [TICKER]",
	Short: "Compare forecasting models on a stock's history",
	Long: `Download the daily closes of TICKER (default AAPL), hold out the last 20%
of the history, forecast up to 30 days of it with every configured model and
rank the models by RMSE.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ticker := "AAPL"
		if len(args) == 1 {
			ticker = args[0]
		}
		checkYears(compareYears)

		ctx := context.Background()
		manager := newManager()
		settings := loadSettings()

		series, err := manager.LoadLookback(ctx, ticker, compareYears)
		if errors.Is(err, data.ErrDataUnavailable) {
			log.Debug().Err(err).Str("Ticker", ticker).Msg("load failed")
			fmt.Fprintln(os.Stderr, "Failed to load stock data. Please enter a valid ticker.")
			os.Exit(1)
		}
		if err != nil {
			log.Fatal().Err(err).Str("Ticker", ticker).Msg("could not load prices")
		}

		pipeline, err := forecast.NewPipeline(settings)
		if err != nil {
			log.Fatal().Err(err).Msg("could not build model pipeline")
		}

		comparison, err := pipeline.Compare(ctx, series)
		if err != nil {
			log.Fatal().Err(err).Str("Ticker", series.Symbol).Msg("model comparison failed")
		}

		if compareJSON {
			printJSON(forecast.NewComparisonJSON(comparison))
			return
		}

		report := forecast.Render(comparison)
		fmt.Println(forecast.RenderSeries(series, chartWidth))
		fmt.Println()
		fmt.Println(report.String())

		for _, res := range comparison.Results {
			if !res.OK() {
				fmt.Printf("%s: %s\n", res.Model, res.Err)
			}
		}
	},
}
