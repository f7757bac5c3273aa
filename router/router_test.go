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

package router_test

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-forecast/common"
	"github.com/penny-vault/pv-forecast/data"
	"github.com/penny-vault/pv-forecast/forecast"
	"github.com/penny-vault/pv-forecast/handler"
	"github.com/penny-vault/pv-forecast/portfolio"
	"github.com/penny-vault/pv-forecast/router"
)

// fakeProvider serves pre-built observations by symbol
type fakeProvider struct {
	obs map[string][]data.Observation
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchDaily(_ context.Context, symbol string, _, _ time.Time) ([]data.Observation, error) {
	obs, ok := f.obs[symbol]
	if !ok {
		return nil, data.ErrSymbolNotFound
	}
	return obs, nil
}

// tradingDays returns n weekdays starting 2022-01-03 with closes from price
func tradingDays(n int, price func(int) float64) []data.Observation {
	obs := make([]data.Observation, 0, n)
	dt := time.Date(2022, 1, 3, 0, 0, 0, 0, common.GetTimezone())
	for len(obs) < n {
		if dt.Weekday() != time.Saturday && dt.Weekday() != time.Sunday {
			obs = append(obs, data.Observation{Date: dt, Value: price(len(obs))})
		}
		dt = dt.AddDate(0, 0, 1)
	}
	return obs
}

func get(app *fiber.App, url string) (int, []byte) {
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, url, nil), -1)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, body
}

var _ = Describe("Router", func() {
	var app *fiber.App

	BeforeEach(func() {
		prices := &fakeProvider{obs: map[string][]data.Observation{
			"TREND": tradingDays(300, func(i int) float64 { return 100 + 60*float64(i)/299 }),
			"WAVE":  tradingDays(300, func(i int) float64 { return 100 + 5*math.Sin(float64(i)/7) }),
			"^GSPC": tradingDays(300, func(i int) float64 { return 4000 + 40*math.Sin(float64(i)/5) + float64(i) }),
			"ONE":   tradingDays(1, func(int) float64 { return 10 }),
		}}
		rates := &fakeProvider{obs: map[string][]data.Observation{
			data.RiskFreeSeries: tradingDays(1, func(int) float64 { return 4.5 }),
		}}

		manager := data.NewManager(prices, rates)
		manager.Now = func() time.Time { return time.Date(2023, 3, 1, 12, 0, 0, 0, common.GetTimezone()) }

		settings := forecast.DefaultSettings()
		settings.Forecast.Models = []string{"arima", "holtwinters"}

		app = router.New(handler.New(manager, settings, nil), "")
	})

	It("answers ping", func() {
		status, body := get(app, "/v1/ping")
		Expect(status).To(Equal(fiber.StatusOK))

		var resp handler.PingResponse
		Expect(json.Unmarshal(body, &resp)).To(Succeed())
		Expect(resp.Status).To(Equal("success"))
		Expect(resp.Version).To(Equal(common.CurrentVersion.String()))
	})

	It("lists the registered models", func() {
		status, body := get(app, "/v1/models")
		Expect(status).To(Equal(fiber.StatusOK))

		var models []forecast.ModelInfo
		Expect(json.Unmarshal(body, &models)).To(Succeed())
		Expect(models).To(HaveLen(4))
	})

	It("returns a single model and 404 for unknown ones", func() {
		status, body := get(app, "/v1/models/SARIMA")
		Expect(status).To(Equal(fiber.StatusOK))

		var info forecast.ModelInfo
		Expect(json.Unmarshal(body, &info)).To(Succeed())
		Expect(info.Shortcode).To(Equal("sarima"))

		status, _ = get(app, "/v1/models/prophet")
		Expect(status).To(Equal(fiber.StatusNotFound))
	})

	Describe("compare", func() {
		It("scores every configured model", func() {
			status, body := get(app, "/v1/compare/trend?years=2")
			Expect(status).To(Equal(fiber.StatusOK))

			var resp forecast.ComparisonJSON
			Expect(json.Unmarshal(body, &resp)).To(Succeed())
			Expect(resp.Symbol).To(Equal("TREND"))
			Expect(resp.Observations).To(Equal(300))
			Expect(resp.TrainSize).To(Equal(240))
			Expect(resp.Horizon).To(Equal(30))
			Expect(resp.Scores).To(HaveLen(2))
			Expect(resp.Scores[0].Model).To(Equal("ARIMA"))
			Expect(resp.Scores[1].Model).To(Equal("Holt-Winters"))
			Expect(resp.Chart.Dates).To(HaveLen(30))
		})

		It("rejects an out of range lookback", func() {
			status, body := get(app, "/v1/compare/trend?years=9")
			Expect(status).To(Equal(fiber.StatusBadRequest))

			var resp handler.ErrorResponse
			Expect(json.Unmarshal(body, &resp)).To(Succeed())
			Expect(resp.Errors).To(HaveLen(1))
			Expect(resp.Errors[0].Code).To(Equal("ERR_MAX"))
			Expect(resp.Errors[0].Field).To(Equal("Years"))
		})

		It("returns 404 for unknown tickers", func() {
			status, _ := get(app, "/v1/compare/zzzz")
			Expect(status).To(Equal(fiber.StatusNotFound))
		})

		It("returns 422 when the series cannot be split", func() {
			status, _ := get(app, "/v1/compare/one")
			Expect(status).To(Equal(fiber.StatusUnprocessableEntity))
		})
	})

	Describe("predict", func() {
		It("forecasts the requested number of trading days", func() {
			status, body := get(app, "/v1/predict/wave?model=holtwinters&days=5")
			Expect(status).To(Equal(fiber.StatusOK))

			var resp forecast.PredictionJSON
			Expect(json.Unmarshal(body, &resp)).To(Succeed())
			Expect(resp.Model).To(Equal("Holt-Winters"))
			Expect(resp.Values).To(HaveLen(5))
			Expect(resp.Dates).To(HaveLen(5))
		})

		It("returns 404 for an unknown model", func() {
			status, _ := get(app, "/v1/predict/wave?model=prophet")
			Expect(status).To(Equal(fiber.StatusNotFound))
		})

		It("rejects a non-positive horizon", func() {
			status, _ := get(app, "/v1/predict/wave?days=-1")
			Expect(status).To(Equal(fiber.StatusBadRequest))
		})
	})

	It("estimates CAPM", func() {
		status, body := get(app, "/v1/capm/wave?years=1")
		Expect(status).To(Equal(fiber.StatusOK))

		var resp handler.CAPMResponse
		Expect(json.Unmarshal(body, &resp)).To(Succeed())
		Expect(resp.Symbol).To(Equal("WAVE"))
		Expect(resp.Benchmark).To(Equal("^GSPC"))
		Expect(resp.RiskFree).To(BeNumerically("~", 0.045, 1e-12))
		Expect(math.IsNaN(resp.Beta)).To(BeFalse())
	})

	Describe("portfolio", func() {
		It("analyses the requested tickers", func() {
			status, body := get(app, "/v1/portfolio?tickers=trend,wave&start=2022-01-01&end=2023-03-01")
			Expect(status).To(Equal(fiber.StatusOK))

			var resp portfolio.AnalysisJSON
			Expect(json.Unmarshal(body, &resp)).To(Succeed())
			Expect(resp.Tickers).To(Equal([]string{"TREND", "WAVE"}))
			Expect(resp.Correlation).To(HaveLen(2))
			Expect(resp.Stats).To(HaveLen(2))
		})

		It("rejects malformed dates", func() {
			status, body := get(app, "/v1/portfolio?start=01/01/2022")
			Expect(status).To(Equal(fiber.StatusBadRequest))

			var resp handler.ErrorResponse
			Expect(json.Unmarshal(body, &resp)).To(Succeed())
			Expect(resp.Errors[0].Code).To(Equal("ERR_DATETIME"))
		})
	})

	It("exposes prometheus metrics", func() {
		status, body := get(app, "/metrics")
		Expect(status).To(Equal(fiber.StatusOK))
		Expect(string(body)).To(ContainSubstring("go_goroutines"))
	})

	It("returns 404 for unknown routes", func() {
		status, _ := get(app, "/v2/nothing")
		Expect(status).To(Equal(fiber.StatusNotFound))
	})
})
