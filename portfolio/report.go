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
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
)

const dateLayout = "2006-01-02"

func formatFloat(v float64, pct bool) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case pct:
		return fmt.Sprintf("%.2f%%", v*100)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// CorrelationTable renders the correlation matrix with tickers on both axes
func (a *Analysis) CorrelationTable() string {
	s := &strings.Builder{}
	table := tablewriter.NewWriter(s)
	table.SetHeader(append([]string{""}, a.Tickers...))
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)

	for ii, row := range a.Correlation {
		cells := []string{a.Tickers[ii]}
		for _, v := range row {
			cells = append(cells, formatFloat(v, false))
		}
		table.Append(cells)
	}

	table.Render()
	return s.String()
}

// StatsTable renders the per asset statistics
func (a *Analysis) StatsTable() string {
	s := &strings.Builder{}
	table := tablewriter.NewWriter(s)
	table.SetHeader([]string{"Ticker", "Total Return", "Annualized", "Std. Dev.", "Sharpe", "Max Draw Down"})
	table.SetBorder(false)

	for _, st := range a.Stats {
		dd := "-"
		if st.MaxDrawDown != nil {
			dd = formatFloat(st.MaxDrawDown.LossPercent, true)
		}
		table.Append([]string{
			st.Symbol,
			formatFloat(st.TotalReturn, true),
			formatFloat(st.AnnualizedReturn, true),
			formatFloat(st.StdDev, true),
			formatFloat(st.SharpeRatio, false),
			dd,
		})
	}

	table.Render()
	return s.String()
}

// Chart plots the cumulative growth of every ticker
func (a *Analysis) Chart(width int) string {
	opts := []asciigraph.Option{
		asciigraph.Height(15),
		asciigraph.Caption(fmt.Sprintf("Cumulative Returns %s to %s", a.Start.Format(dateLayout), a.End.Format(dateLayout))),
		asciigraph.SeriesLegends(a.Tickers...),
	}

	palette := []asciigraph.AnsiColor{asciigraph.Blue, asciigraph.Red, asciigraph.Green, asciigraph.Yellow, asciigraph.Magenta, asciigraph.Cyan}
	colors := make([]asciigraph.AnsiColor, len(a.Tickers))
	for idx := range colors {
		colors[idx] = palette[idx%len(palette)]
	}
	opts = append(opts, asciigraph.SeriesColors(colors...))

	if width > 0 {
		opts = append(opts, asciigraph.Width(width))
	}
	return asciigraph.PlotMany(a.Cumulative.Vals, opts...)
}

// StatsJSON is AssetStats with missing values as null
type StatsJSON struct {
	Symbol           string    `json:"symbol"`
	TotalReturn      *float64  `json:"totalReturn"`
	AnnualizedReturn *float64  `json:"annualizedReturn"`
	StdDev           *float64  `json:"stdDev"`
	SharpeRatio      *float64  `json:"sharpeRatio"`
	MaxDrawDown      *DrawDown `json:"maxDrawDown"`
}

// AnalysisJSON is the API representation of an Analysis
type AnalysisJSON struct {
	Tickers     []string             `json:"tickers"`
	Start       string               `json:"start"`
	End         string               `json:"end"`
	RiskFree    float64              `json:"riskFree"`
	Dates       []string             `json:"dates"`
	Returns     map[string][]float64 `json:"returns"`
	Cumulative  map[string][]float64 `json:"cumulative"`
	Correlation [][]*float64         `json:"correlation"`
	Stats       []StatsJSON          `json:"stats"`
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// JSON converts the analysis for encoding
func (a *Analysis) JSON() *AnalysisJSON {
	out := &AnalysisJSON{
		Tickers:    a.Tickers,
		Start:      a.Start.Format(dateLayout),
		End:        a.End.Format(dateLayout),
		RiskFree:   a.RiskFree,
		Dates:      make([]string, a.Returns.Len()),
		Returns:    make(map[string][]float64, len(a.Tickers)),
		Cumulative: make(map[string][]float64, len(a.Tickers)),
	}

	for idx, d := range a.Returns.Dates {
		out.Dates[idx] = d.Format(dateLayout)
	}
	for idx, ticker := range a.Tickers {
		out.Returns[ticker] = a.Returns.Vals[idx]
		out.Cumulative[ticker] = a.Cumulative.Vals[idx]
	}

	for _, row := range a.Correlation {
		cells := make([]*float64, len(row))
		for jj, v := range row {
			cells[jj] = nullable(v)
		}
		out.Correlation = append(out.Correlation, cells)
	}

	for _, st := range a.Stats {
		out.Stats = append(out.Stats, StatsJSON{
			Symbol:           st.Symbol,
			TotalReturn:      nullable(st.TotalReturn),
			AnnualizedReturn: nullable(st.AnnualizedReturn),
			StdDev:           nullable(st.StdDev),
			SharpeRatio:      nullable(st.SharpeRatio),
			MaxDrawDown:      st.MaxDrawDown,
		})
	}

	return out
}
