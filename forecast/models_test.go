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
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-forecast/forecast"
)

var _ = Describe("HoltWinters", func() {
	var cfg forecast.HoltWintersConfig

	BeforeEach(func() {
		cfg = forecast.DefaultSettings().HoltWinters
	})

	It("forecasts h values from the training prefix", func() {
		series := makeSeries(80, trend).Values()
		in := forecast.Input{Train: series[:64], Context: series[64:], Horizon: 16}

		out, err := forecast.NewHoltWinters(cfg).Forecast(context.Background(), in)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(16))
	})

	It("extends past the test data when fitting the full series", func() {
		series := makeSeries(80, trend).Values()
		in := forecast.Input{Train: series[:64], Context: series[64:], Horizon: 16}

		trainOnly, err := forecast.NewHoltWinters(cfg).Forecast(context.Background(), in)
		Expect(err).NotTo(HaveOccurred())

		cfg.FullSeries = true
		full, err := forecast.NewHoltWinters(cfg).Forecast(context.Background(), in)
		Expect(err).NotTo(HaveOccurred())
		Expect(full).To(HaveLen(16))
		Expect(full).NotTo(Equal(trainOnly))
	})

	It("needs more than one season of data", func() {
		in := forecast.Input{Train: []float64{1, 2, 3, 4, 5, 6}, Horizon: 2}
		_, err := forecast.NewHoltWinters(cfg).Forecast(context.Background(), in)
		Expect(err).To(MatchError(forecast.ErrInsufficientData))
	})
})

var _ = Describe("LSTM", func() {
	var cfg forecast.LSTMConfig

	BeforeEach(func() {
		s := forecast.DefaultSettings()
		smallLSTM(s)
		cfg = s.LSTM
	})

	series := func() []float64 { return makeSeries(80, trend).Values() }

	It("forecasts h values in windowed mode", func() {
		vals := series()
		out, err := forecast.NewLSTM(cfg).Forecast(context.Background(), forecast.Input{Train: vals[:64], Context: vals[64:], Horizon: 16})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(16))
	})

	It("forecasts h values in recursive mode without test data", func() {
		cfg.Mode = forecast.ModeRecursive
		vals := series()
		out, err := forecast.NewLSTM(cfg).Forecast(context.Background(), forecast.Input{Train: vals, Horizon: 7})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(7))
	})

	It("reproduces the full series fit", func() {
		cfg.FullSeries = true
		vals := series()
		out, err := forecast.NewLSTM(cfg).Forecast(context.Background(), forecast.Input{Train: vals[:64], Context: vals[64:], Horizon: 16})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(16))
	})

	It("skips training on a series no longer than the window", func() {
		cfg.Window = 60
		vals := makeSeries(60, trend).Values()
		_, err := forecast.NewLSTM(cfg).Forecast(context.Background(), forecast.Input{Train: vals[:48], Context: vals[48:], Horizon: 12})
		Expect(err).To(MatchError(forecast.ErrInsufficientData))
	})

	It("needs a training window inside the training prefix", func() {
		cfg.Window = 60
		vals := makeSeries(70, trend).Values()
		_, err := forecast.NewLSTM(cfg).Forecast(context.Background(), forecast.Input{Train: vals[:56], Context: vals[56:], Horizon: 14})
		Expect(err).To(MatchError(forecast.ErrInsufficientData))
	})

	DescribeTable("needs more than a window of training data at the default split",
		func(n int, fullSeries bool, fits bool) {
			cfg.Window = 60
			cfg.FullSeries = fullSeries
			split, err := forecast.SplitSeries(makeSeries(n, trend), 0.8, 30)
			Expect(err).NotTo(HaveOccurred())

			_, err = forecast.NewLSTM(cfg).Forecast(context.Background(), split.Input())
			if fits {
				Expect(err).NotTo(HaveOccurred())
			} else {
				Expect(err).To(MatchError(forecast.ErrInsufficientData))
			}
		},
		Entry("61 observations", 61, false, false),
		Entry("76 observations", 76, false, false),
		Entry("77 observations", 77, false, true),
		Entry("74 observations fitted on the whole series", 74, true, false),
		Entry("75 observations fitted on the whole series", 75, true, true),
	)

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		vals := series()
		_, err := forecast.NewLSTM(cfg).Forecast(ctx, forecast.Input{Train: vals[:64], Context: vals[64:], Horizon: 16})
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("SARIMA", func() {
	var cfg forecast.SARIMAConfig

	BeforeEach(func() {
		cfg = forecast.DefaultSettings().SARIMA
	})

	DescribeTable("picks the largest order the training data supports",
		func(n int, expected forecast.SARIMAConfig, ok bool) {
			order, fits := cfg.Order(n)
			Expect(fits).To(Equal(ok))
			Expect(order).To(Equal(expected))
		},
		Entry("full seasonal order", 47,
			forecast.SARIMAConfig{P: 1, D: 1, Q: 1, SeasonP: 1, SeasonD: 1, SeasonQ: 0, Period: 12}, true),
		Entry("seasonal differencing only", 40,
			forecast.SARIMAConfig{P: 1, D: 1, Q: 1, SeasonP: 0, SeasonD: 1, SeasonQ: 0, Period: 12}, true),
		Entry("non-seasonal", 30,
			forecast.SARIMAConfig{P: 1, D: 1, Q: 1, SeasonP: 0, SeasonD: 0, SeasonQ: 0, Period: 12}, true),
		Entry("too short for any order", 22,
			forecast.SARIMAConfig{P: 1, D: 1, Q: 1, SeasonP: 1, SeasonD: 1, SeasonQ: 0, Period: 12}, false),
	)

	It("forecasts from a training prefix shorter than one full seasonal fit", func() {
		series := makeSeries(50, trend).Values()
		in := forecast.Input{Train: series[:40], Context: series[40:], Horizon: 10}

		out, err := forecast.NewSARIMA(cfg).Forecast(context.Background(), in)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(10))
	})

	It("reports series too short for any order", func() {
		series := makeSeries(20, trend).Values()
		_, err := forecast.NewSARIMA(cfg).Forecast(context.Background(), forecast.Input{Train: series, Horizon: 5})
		Expect(err).To(MatchError(forecast.ErrInsufficientData))
	})
})

var _ = Describe("ARIMA", func() {
	It("reports series shorter than the library minimum", func() {
		cfg := forecast.DefaultSettings().ARIMA
		series := makeSeries(15, trend).Values()
		_, err := forecast.NewARIMA(cfg).Forecast(context.Background(), forecast.Input{Train: series, Horizon: 3})
		Expect(err).To(MatchError(forecast.ErrInsufficientData))
	})
})
