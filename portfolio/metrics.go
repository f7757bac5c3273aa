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

package portfolio

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear annualizes daily statistics
const TradingDaysPerYear = 252

// DrawDown is a fall from a previous peak
type DrawDown struct {
	Begin       time.Time `json:"begin"`
	End         time.Time `json:"end"`
	Recovery    time.Time `json:"recovery"`
	LossPercent float64   `json:"lossPercent"`
}

// AssetStats summarizes the daily returns of one asset
type AssetStats struct {
	Symbol           string
	TotalReturn      float64
	AnnualizedReturn float64
	StdDev           float64
	SharpeRatio      float64
	MaxDrawDown      *DrawDown
}

// TotalReturn compounds daily returns into a single period return
func TotalReturn(rets []float64) float64 {
	growth := 1.0
	for _, r := range rets {
		growth *= 1 + r
	}
	return growth - 1
}

// AnnualizedReturn converts the compounded return of the given daily returns
// into a yearly rate; periods shorter than a year are not annualized
func AnnualizedReturn(rets []float64) float64 {
	if len(rets) == 0 {
		return math.NaN()
	}

	total := TotalReturn(rets)
	years := float64(len(rets)) / TradingDaysPerYear
	if years > 1.0 {
		return math.Pow(1+total, 1/years) - 1
	}
	return total
}

// StdDev calculates the annualized standard deviation of daily returns
func StdDev(rets []float64) float64 {
	if len(rets) < 2 {
		return math.NaN()
	}
	return stat.StdDev(rets, nil) * math.Sqrt(TradingDaysPerYear)
}

// SharpeRatio is the excess annualized return per unit of annualized
// volatility. riskFree is an annual rate.
//
// Sharpe = (Rp - Rf) / (annualized std. dev)
func SharpeRatio(rets []float64, riskFree float64) float64 {
	stdev := StdDev(rets)
	if math.IsNaN(stdev) || stdev == 0 {
		return math.NaN()
	}
	return (AnnualizedReturn(rets) - riskFree) / stdev
}

// AllDrawDowns walks a value curve and returns every completed or open fall
// from a running peak
func AllDrawDowns(dates []time.Time, values []float64) []*DrawDown {
	allDrawDowns := []*DrawDown{}
	if len(values) < 2 {
		return allDrawDowns
	}

	peak := values[0]
	var drawDown *DrawDown
	prev := dates[0]
	for idx, value := range values {
		peak = math.Max(peak, value)
		diff := value - peak
		if diff < 0 {
			if drawDown == nil {
				drawDown = &DrawDown{
					Begin:       prev,
					End:         dates[idx],
					LossPercent: (value / peak) - 1.0,
				}
			}

			loss := value/peak - 1.0
			if loss < drawDown.LossPercent {
				drawDown.End = dates[idx]
				drawDown.LossPercent = loss
			}
		} else if drawDown != nil {
			drawDown.Recovery = dates[idx]
			allDrawDowns = append(allDrawDowns, drawDown)
			drawDown = nil
		}
		prev = dates[idx]
	}

	// still under water at the end of the range
	if drawDown != nil {
		allDrawDowns = append(allDrawDowns, drawDown)
	}

	return allDrawDowns
}

// MaxDrawDown returns the deepest draw down of the value curve or nil if the
// curve never falls
func MaxDrawDown(dates []time.Time, values []float64) *DrawDown {
	var worst *DrawDown
	for _, dd := range AllDrawDowns(dates, values) {
		if worst == nil || dd.LossPercent < worst.LossPercent {
			worst = dd
		}
	}
	return worst
}
