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

// Package portfolio analyses the joint behaviour of a small set of stocks:
// daily returns, their correlation and the growth of one dollar in each.
package portfolio

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-forecast/common"
	"github.com/penny-vault/pv-forecast/data"
	"github.com/penny-vault/pv-forecast/dataframe"
)

// DefaultTickers are analysed when none are given
var DefaultTickers = []string{"AAPL", "MSFT"}

// DefaultStart is the first day of the default analysis range
var DefaultStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// Analysis holds the results of a portfolio analysis. Every frame has one
// column per ticker in the requested order.
type Analysis struct {
	Tickers     []string
	Start       time.Time
	End         time.Time
	RiskFree    float64
	Prices      *dataframe.DataFrame
	Returns     *dataframe.DataFrame
	Cumulative  *dataframe.DataFrame
	Correlation [][]float64
	Stats       []AssetStats
}

// Analyze computes daily returns over the dates every series trades on,
// their correlation matrix, cumulative growth and per asset statistics.
// riskFree is the annual rate used for Sharpe ratios.
func Analyze(series []*data.PriceSeries, riskFree float64) (*Analysis, error) {
	if len(series) == 0 {
		return nil, ErrNoTickers
	}

	frames := make([]*dataframe.DataFrame, len(series))
	tickers := make([]string, len(series))
	for idx, s := range series {
		frames[idx] = s.DataFrame()
		tickers[idx] = s.Symbol
	}

	prices := dataframe.Merge(frames...)
	returns := prices.PctChange().Drop(math.NaN())
	if returns.Len() < 2 {
		return nil, fmt.Errorf("%w: %v", ErrNoCommonHistory, tickers)
	}

	corr, err := returns.Corr()
	if err != nil {
		return nil, err
	}

	cumulative := returns.AddScalar(1).CumProd()

	stats := make([]AssetStats, len(tickers))
	for idx, ticker := range tickers {
		rets := returns.Vals[idx]
		stats[idx] = AssetStats{
			Symbol:           ticker,
			TotalReturn:      TotalReturn(rets),
			AnnualizedReturn: AnnualizedReturn(rets),
			StdDev:           StdDev(rets),
			SharpeRatio:      SharpeRatio(rets, riskFree),
			MaxDrawDown:      MaxDrawDown(cumulative.Dates, cumulative.Vals[idx]),
		}
	}

	return &Analysis{
		Tickers:     tickers,
		Start:       returns.Start(),
		End:         returns.End(),
		RiskFree:    riskFree,
		Prices:      prices,
		Returns:     returns,
		Cumulative:  cumulative,
		Correlation: corr,
		Stats:       stats,
	}, nil
}

// Load downloads daily closes for tickers over [start, end] and analyses
// them. Duplicate tickers are ignored. A missing risk-free rate only disables
// the excess return in Sharpe ratios.
func Load(ctx context.Context, manager *data.Manager, tickers []string, start, end time.Time) (*Analysis, error) {
	tickers = unique(common.NormalizeSymbols(tickers))
	if len(tickers) == 0 {
		return nil, ErrNoTickers
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidRange, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	series, err := manager.LoadMany(ctx, tickers, start, end)
	if err != nil {
		return nil, err
	}

	rf, err := manager.RiskFreeRate(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("risk-free rate unavailable; sharpe ratios use zero")
		rf = 0
	}

	analysis, err := Analyze(series, rf)
	if err != nil {
		return nil, err
	}

	log.Info().Strs("Tickers", tickers).Int("Days", analysis.Returns.Len()).Msg("portfolio analysed")
	return analysis, nil
}

func unique(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
