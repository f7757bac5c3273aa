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

package forecast_test

import (
	"errors"
	"math"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-forecast/forecast"
)

func sampleComparison(h int) *forecast.Comparison {
	series := makeSeries(10, trend)
	split, err := forecast.SplitSeries(series, 0.8, h)
	Expect(err).NotTo(HaveOccurred())

	actuals := split.Actuals()
	results := []forecast.Result{
		forecast.Success("ARIMA", actuals),
		forecast.Failure("LSTM", split.Horizon, forecast.ErrInsufficientData),
	}

	return &forecast.Comparison{
		ID:          uuid.New(),
		Symbol:      "TEST",
		Series:      series,
		Split:       split,
		Results:     results,
		Scores:      forecast.Score(results, actuals),
		GeneratedAt: time.Now(),
	}
}

var _ = Describe("Reporter", func() {
	DescribeTable("formats scores",
		func(v float64, want string) {
			Expect(forecast.FormatRMSE(v)).To(Equal(want))
		},
		Entry("rounds to two decimals", 1.23456, "1.23"),
		Entry("rounds half up", 2.005001, "2.01"),
		Entry("zero", 0.0, "0.00"),
		Entry("missing", math.NaN(), "NaN"),
	)

	It("titles the chart with the symbol", func() {
		Expect(forecast.Title("AAPL")).To(Equal("Model Forecast Comparison - AAPL"))
	})

	It("renders the score table in model order", func() {
		table := forecast.RenderTable([]forecast.ScoreRecord{
			{Model: "SARIMA", RMSE: 4.5678},
			{Model: "ARIMA", RMSE: math.NaN()},
		})
		Expect(table).To(ContainSubstring("MODEL"))
		Expect(table).To(ContainSubstring("4.57"))
		Expect(table).To(ContainSubstring("NaN"))
		Expect(table).To(MatchRegexp(`(?s)SARIMA.*ARIMA`))
	})

	It("plots every model with a legend", func() {
		chart := forecast.RenderChart(sampleComparison(30))
		Expect(chart).To(ContainSubstring("Model Forecast Comparison - TEST"))
		Expect(chart).To(ContainSubstring("Actual"))
		Expect(chart).To(ContainSubstring("ARIMA"))
		Expect(chart).To(ContainSubstring("LSTM"))
	})

	It("does not plot an empty horizon", func() {
		cmp := sampleComparison(0)
		Expect(forecast.RenderChart(cmp)).To(ContainSubstring("NO FORECAST HORIZON"))
		Expect(forecast.Render(cmp).String()).To(ContainSubstring("NaN"))
	})

	It("encodes missing values as null", func() {
		cmp := sampleComparison(30)
		out := forecast.NewComparisonJSON(cmp)
		Expect(out.Horizon).To(Equal(2))
		Expect(out.Chart.Lines).To(HaveLen(3))
		Expect(out.Chart.Lines[2].Values).To(Equal([]*float64{nil, nil}))
		Expect(out.Scores[0].RMSE).NotTo(BeNil())
		Expect(*out.Scores[0].RMSE).To(Equal(0.0))
		Expect(out.Scores[1].RMSE).To(BeNil())
		Expect(out.Scores[1].Status).To(Equal(forecast.OutcomeFailed))
		Expect(out.Scores[1].Error).NotTo(BeEmpty())

		buf, err := json.Marshal(out)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(buf)).To(ContainSubstring(`"rmse":null`))
	})

	It("counts timeouts separately from other failures", func() {
		r := forecast.Failure("slow", 1, errors.Join(forecast.ErrTimeout))
		Expect(r.Outcome()).To(Equal(forecast.OutcomeTimeout))
	})
})
