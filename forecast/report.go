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

package forecast

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"

	"github.com/penny-vault/pv-forecast/data"
)

const (
	chartHeight = 15
	dateLayout  = "2006-01-02"
)

var lineColors = []asciigraph.AnsiColor{
	asciigraph.Default,
	asciigraph.Blue,
	asciigraph.Red,
	asciigraph.Green,
	asciigraph.Yellow,
	asciigraph.Magenta,
}

// Title is the chart heading for a symbol
func Title(symbol string) string {
	return fmt.Sprintf("Model Forecast Comparison - %s", symbol)
}

// RoundRMSE rounds to two decimals; NaN stays NaN
func RoundRMSE(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Round(v*100) / 100
}

// FormatRMSE renders a score for display; missing scores print as NaN
func FormatRMSE(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(RoundRMSE(v), 'f', 2, 64)
}

// Report is the rendered text form of a comparison
type Report struct {
	Title string
	Chart string
	Table string
}

// Render builds the chart and score table for c
func Render(c *Comparison) *Report {
	return &Report{
		Title: Title(c.Symbol),
		Chart: RenderChart(c),
		Table: RenderTable(c.Scores),
	}
}

func (r *Report) String() string {
	var sb strings.Builder
	sb.WriteString(r.Chart)
	sb.WriteString("\n\n")
	sb.WriteString(r.Table)
	return sb.String()
}

// RenderChart plots the actual test closes against every model forecast.
// Missing values leave gaps. An empty horizon renders only the title.
func RenderChart(c *Comparison) string {
	h := c.Split.Horizon
	if h == 0 {
		return Title(c.Symbol) + "\n<NO FORECAST HORIZON>"
	}

	lines := [][]float64{c.Actuals()}
	legends := []string{"Actual"}
	for _, r := range c.Results {
		lines = append(lines, r.Values)
		legends = append(legends, r.Model)
	}

	colors := make([]asciigraph.AnsiColor, len(lines))
	for idx := range colors {
		colors[idx] = lineColors[idx%len(lineColors)]
	}

	dates := c.Dates()
	caption := fmt.Sprintf("%s  (%s to %s)", Title(c.Symbol), dates[0].Format(dateLayout), dates[len(dates)-1].Format(dateLayout))

	return asciigraph.PlotMany(lines,
		asciigraph.Height(chartHeight),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(legends...),
	)
}

// RenderSeries plots the closing prices of a whole series
func RenderSeries(series *data.PriceSeries, width int) string {
	if series == nil || series.Len() == 0 {
		return "<NO DATA>"
	}

	opts := []asciigraph.Option{
		asciigraph.Height(chartHeight),
		asciigraph.Caption(fmt.Sprintf("%s Closing Price", series.Symbol)),
	}
	if width > 0 {
		opts = append(opts, asciigraph.Width(width))
	}
	return asciigraph.Plot(series.Values(), opts...)
}

// RenderTable formats scores as a (Model, RMSE) table in insertion order
func RenderTable(scores []ScoreRecord) string {
	s := &strings.Builder{}
	table := tablewriter.NewWriter(s)
	table.SetHeader([]string{"Model", "RMSE"})
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, score := range scores {
		table.Append([]string{score.Model, FormatRMSE(score.RMSE)})
	}

	table.Render()
	return s.String()
}

// LineJSON is one named line of the chart; null marks a missing value
type LineJSON struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// ChartJSON is the chart in a form a browser can plot
type ChartJSON struct {
	Title string     `json:"title"`
	Dates []string   `json:"dates"`
	Lines []LineJSON `json:"lines"`
}

// ScoreJSON is one table row
type ScoreJSON struct {
	Model     string   `json:"model"`
	RMSE      *float64 `json:"rmse"`
	Status    string   `json:"status"`
	Error     string   `json:"error,omitempty"`
	ElapsedMS int64    `json:"elapsedMs"`
}

// ComparisonJSON is the API representation of a Comparison
type ComparisonJSON struct {
	ID           string      `json:"id"`
	Symbol       string      `json:"symbol"`
	GeneratedAt  time.Time   `json:"generatedAt"`
	Observations int         `json:"observations"`
	TrainSize    int         `json:"trainSize"`
	TestSize     int         `json:"testSize"`
	Horizon      int         `json:"horizon"`
	Chart        ChartJSON   `json:"chart"`
	Scores       []ScoreJSON `json:"scores"`
}

// PredictionJSON is the API representation of a Prediction
type PredictionJSON struct {
	Symbol    string    `json:"symbol"`
	Model     string    `json:"model"`
	LastDate  string    `json:"lastDate"`
	LastClose float64   `json:"lastClose"`
	Dates     []string  `json:"dates"`
	Values    []float64 `json:"values"`
	ElapsedMS int64     `json:"elapsedMs"`
}

func nullable(vals []float64) []*float64 {
	out := make([]*float64, len(vals))
	for idx, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		val := v
		out[idx] = &val
	}
	return out
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for idx, d := range dates {
		out[idx] = d.Format(dateLayout)
	}
	return out
}

// NewComparisonJSON converts c for JSON encoding
func NewComparisonJSON(c *Comparison) *ComparisonJSON {
	chart := ChartJSON{
		Title: Title(c.Symbol),
		Dates: formatDates(c.Dates()),
		Lines: []LineJSON{{Name: "Actual", Values: nullable(c.Actuals())}},
	}
	for _, r := range c.Results {
		chart.Lines = append(chart.Lines, LineJSON{Name: r.Model, Values: nullable(r.Values)})
	}

	scores := make([]ScoreJSON, len(c.Scores))
	for idx, s := range c.Scores {
		row := ScoreJSON{Model: s.Model, Status: OutcomeOK}
		if !s.Missing() {
			rmse := RoundRMSE(s.RMSE)
			row.RMSE = &rmse
		}
		if idx < len(c.Results) {
			r := c.Results[idx]
			row.Status = r.Outcome()
			row.ElapsedMS = r.Elapsed.Milliseconds()
			if r.Err != nil {
				row.Error = r.Err.Error()
			}
		}
		scores[idx] = row
	}

	return &ComparisonJSON{
		ID:           c.ID.String(),
		Symbol:       c.Symbol,
		GeneratedAt:  c.GeneratedAt,
		Observations: c.Series.Len(),
		TrainSize:    c.Split.Train.Len(),
		TestSize:     c.Split.Test.Len(),
		Horizon:      c.Split.Horizon,
		Chart:        chart,
		Scores:       scores,
	}
}

// NewPredictionJSON converts p for JSON encoding
func NewPredictionJSON(p *Prediction) *PredictionJSON {
	return &PredictionJSON{
		Symbol:    p.Symbol,
		Model:     p.Model,
		LastDate:  p.LastDate.Format(dateLayout),
		LastClose: p.LastClose,
		Dates:     formatDates(p.Dates),
		Values:    p.Values,
		ElapsedMS: p.Elapsed.Milliseconds(),
	}
}
