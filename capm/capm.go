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

// Package capm estimates the market beta of a stock and its expected return
// under the capital asset pricing model.
package capm

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"github.com/penny-vault/pv-forecast/common"
	"github.com/penny-vault/pv-forecast/data"
	"github.com/penny-vault/pv-forecast/dataframe"
)

const (
	// DefaultBenchmark is the S&P 500 index
	DefaultBenchmark = "^GSPC"

	// TradingDaysPerYear annualizes daily returns
	TradingDaysPerYear = 252

	assetCol  = "ASSET"
	marketCol = "MARKET"
)

// Result is the CAPM estimate for one asset. Rates are annual decimals.
type Result struct {
	Symbol         string
	Benchmark      string
	Beta           float64
	RiskFree       float64
	MarketReturn   float64
	ExpectedReturn float64
	Observations   int
	Start          time.Time
	End            time.Time
}

// Returns aligns the daily returns of asset and benchmark on their common
// dates. Rows where either side is missing are dropped.
func Returns(asset, benchmark *data.PriceSeries) (*dataframe.DataFrame, error) {
	a := asset.DataFrame()
	a.ColNames = []string{assetCol}
	m := benchmark.DataFrame()
	m.ColNames = []string{marketCol}

	returns := dataframe.Merge(a, m).PctChange().Drop(math.NaN())
	if returns.Len() < 2 {
		return nil, fmt.Errorf("%w: %s and %s", ErrNoOverlap, asset.Symbol, benchmark.Symbol)
	}
	return returns, nil
}

// Beta is the covariance of asset and market returns divided by the variance
// of the market returns
func Beta(returns *dataframe.DataFrame) (float64, error) {
	market, err := returns.Column(marketCol)
	if err != nil {
		return math.NaN(), err
	}

	variance := stat.Variance(market, nil)
	if variance == 0 || math.IsNaN(variance) {
		return math.NaN(), ErrFlatBenchmark
	}

	cov, err := returns.Covariance(assetCol, marketCol)
	if err != nil {
		return math.NaN(), err
	}
	return cov / variance, nil
}

// ExpectedReturn is rf + beta * (rm - rf)
func ExpectedReturn(beta, riskFree, marketReturn float64) float64 {
	return riskFree + beta*(marketReturn-riskFree)
}

// Compute estimates beta from the overlapping history of asset and benchmark
// and prices the asset with the given annual risk-free rate. The market
// return is the mean daily benchmark return annualized over 252 days.
func Compute(asset, benchmark *data.PriceSeries, riskFree float64) (*Result, error) {
	returns, err := Returns(asset, benchmark)
	if err != nil {
		return nil, err
	}

	beta, err := Beta(returns)
	if err != nil {
		return nil, err
	}

	market, _ := returns.Column(marketCol)
	marketReturn := stat.Mean(market, nil) * TradingDaysPerYear

	return &Result{
		Symbol:         asset.Symbol,
		Benchmark:      benchmark.Symbol,
		Beta:           beta,
		RiskFree:       riskFree,
		MarketReturn:   marketReturn,
		ExpectedReturn: ExpectedReturn(beta, riskFree, marketReturn),
		Observations:   returns.Len(),
		Start:          returns.Start(),
		End:            returns.End(),
	}, nil
}

// Analyze loads `years` of history for symbol and benchmark together with the
// current risk-free rate and computes the CAPM estimate
func Analyze(ctx context.Context, manager *data.Manager, symbol, benchmark string, years int) (*Result, error) {
	if years < 1 || years > 5 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLookback, years)
	}
	if benchmark == "" {
		benchmark = DefaultBenchmark
	}

	subLog := log.With().Str("Symbol", symbol).Str("Benchmark", benchmark).Int("Years", years).Logger()

	begin, end := common.LookbackRange(manager.Now(), years)
	series, err := manager.LoadMany(ctx, []string{symbol, benchmark}, begin, end)
	if err != nil {
		subLog.Error().Err(err).Msg("could not load prices")
		return nil, err
	}

	rf, err := manager.RiskFreeRate(ctx)
	if err != nil {
		subLog.Error().Err(err).Msg("could not load risk-free rate")
		return nil, err
	}

	res, err := Compute(series[0], series[1], rf)
	if err != nil {
		subLog.Warn().Err(err).Msg("capm estimate failed")
		return nil, err
	}

	subLog.Info().Float64("Beta", res.Beta).Float64("ExpectedReturn", res.ExpectedReturn).Msg("capm estimate")
	return res, nil
}
