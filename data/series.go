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

package data

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/penny-vault/pv-forecast/common"
	"github.com/penny-vault/pv-forecast/dataframe"
)

// Observation is a single dated value returned by a provider
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// PriceSeries is an ordered sequence of daily closing prices for one symbol.
// Dates are strictly increasing midnights in New York and every close is a
// positive finite number.
type PriceSeries struct {
	Symbol string
	Dates  []time.Time
	Close  []float64
}

// NewPriceSeries normalizes raw provider observations: dates are truncated to
// midnight New York, rows are sorted, the last observation of a duplicated
// date wins and missing, non-finite or non-positive closes are dropped
func NewPriceSeries(symbol string, obs []Observation) (*PriceSeries, error) {
	rows := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) || o.Value <= 0 {
			continue
		}
		rows = append(rows, Observation{Date: common.Midnight(o.Date), Value: o.Value})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})

	series := &PriceSeries{
		Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
		Dates:  make([]time.Time, 0, len(rows)),
		Close:  make([]float64, 0, len(rows)),
	}

	for _, row := range rows {
		last := len(series.Dates) - 1
		if last >= 0 && series.Dates[last].Equal(row.Date) {
			series.Close[last] = row.Value
			continue
		}
		series.Dates = append(series.Dates, row.Date)
		series.Close = append(series.Close, row.Value)
	}

	if series.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, series.Symbol)
	}

	return series, nil
}

// Len returns the number of observations
func (s *PriceSeries) Len() int {
	return len(s.Close)
}

// Values returns a copy of the closing prices
func (s *PriceSeries) Values() []float64 {
	vals := make([]float64, len(s.Close))
	copy(vals, s.Close)
	return vals
}

// Slice returns the observations in [begin, end). The result shares memory
// with s and must not be modified.
func (s *PriceSeries) Slice(begin, end int) *PriceSeries {
	return &PriceSeries{
		Symbol: s.Symbol,
		Dates:  s.Dates[begin:end],
		Close:  s.Close[begin:end],
	}
}

// LastDate returns the date of the final observation
func (s *PriceSeries) LastDate() time.Time {
	if len(s.Dates) == 0 {
		return time.Time{}
	}
	return s.Dates[len(s.Dates)-1]
}

// DataFrame converts the series into a single column dataframe named after the symbol
func (s *PriceSeries) DataFrame() *dataframe.DataFrame {
	dates := make([]time.Time, len(s.Dates))
	copy(dates, s.Dates)
	return dataframe.New(s.Symbol, dates, s.Values())
}
