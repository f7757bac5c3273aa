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

	"github.com/penny-vault/pv-forecast/forecast"
	"github.com/penny-vault/pv-forecast/tradecron"
)

var (
	predictModel string
	predictDays  int
	predictYears int
	predictJSON  bool
)

func init() {
	predictCmd.Flags().StringVarP(&predictModel, "model", "m", "arima", "Model shortcode, see `pvforecast models`")
	predictCmd.Flags().IntVarP(&predictDays, "days", "d", 30, "Number of trading days to forecast")
	predictCmd.Flags().IntVarP(&predictYears, "years", "y", 2, "Years of history to fit on (1-5)")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "Print the prediction as JSON")

	rootCmd.AddCommand(predictCmd)
}

var predictCmd = &cobra.Command{
	Use:   "predict TICKER",
	Short: "Forecast the next trading days of a stock",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		checkYears(predictYears)

		if _, err := forecast.Lookup(predictModel); err != nil {
			log.Fatal().Err(err).Msg("unknown model")
		}

		ctx := context.Background()
		manager := newManager()
		pipeline := &forecast.Pipeline{Settings: loadSettings()}

		series, err := manager.LoadLookback(ctx, args[0], predictYears)
		if err != nil {
			log.Fatal().Err(err).Str("Ticker", args[0]).Msg("could not load prices")
		}

		prediction, err := pipeline.Predict(ctx, series, predictModel, predictDays, tradecron.NewMarketStatus(&tradecron.RegularHours))
		if err != nil {
			log.Fatal().Err(err).Str("Ticker", series.Symbol).Str("Model", predictModel).Msg("prediction failed")
		}

		if predictJSON {
			printJSON(forecast.NewPredictionJSON(prediction))
			return
		}

		fmt.Printf("%s %s forecast from %s (last close %.2f)\n\n", prediction.Symbol, prediction.Model,
			prediction.LastDate.Format("2006-01-02"), prediction.LastClose)

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Date", "Forecast"})
		table.SetAlignment(tablewriter.ALIGN_RIGHT)
		for idx, dt := range prediction.Dates {
			table.Append([]string{dt.Format("2006-01-02"), strconv.FormatFloat(prediction.Values[idx], 'f', 2, 64)})
		}
		table.Render()
	},
}
