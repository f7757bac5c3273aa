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

package portfolio_test

import (
	"context"
	"math"
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-forecast/common"
	"github.com/penny-vault/pv-forecast/data"
	"github.com/penny-vault/pv-forecast/portfolio"
)

func nyDay(i int) time.Time {
	return time.Date(2020, 1, 2, 0, 0, 0, 0, common.GetTimezone()).AddDate(0, 0, i)
}

func series(symbol string, closes ...float64) *data.PriceSeries {
	obs := make([]data.Observation, len(closes))
	for i, c := range closes {
		obs[i] = data.Observation{Date: nyDay(i), Value: c}
	}
	s, err := data.NewPriceSeries(symbol, obs)
	Expect(err).NotTo(HaveOccurred())
	return s
}

type staticProvider struct {
	obs map[string][]data.Observation
}

func (p *staticProvider) Name() string { return "static" }

func (p *staticProvider) FetchDaily(_ context.Context, symbol string, _, _ time.Time) ([]data.Observation, error) {
	obs, ok := p.obs[symbol]
	if !ok {
		return nil, data.ErrSymbolNotFound
	}
	return obs, nil
}

var _ = Describe("Portfolio", func() {
	It("computes returns, correlation and cumulative growth", func() {
		a := series("AAPL", 100, 110, 99, 108.9)
		m := series("MSFT", 50, 55, 49.5, 54.45)

		res, err := portfolio.Analyze([]*data.PriceSeries{a, m}, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Tickers).To(Equal([]string{"AAPL", "MSFT"}))

		Expect(res.Returns.Len()).To(Equal(3))
		Expect(res.Returns.Dates[0]).To(Equal(nyDay(1)))
		Expect(res.Returns.Vals[0][0]).To(BeNumerically("~", 0.1, 1e-12))
		Expect(res.Returns.Vals[0][1]).To(BeNumerically("~", -0.1, 1e-12))

		Expect(res.Correlation[0][1]).To(BeNumerically("~", 1, 1e-9))
		Expect(res.Correlation[1][1]).To(Equal(1.0))

		last := res.Cumulative.Len() - 1
		Expect(res.Cumulative.Vals[0][last]).To(BeNumerically("~", 1.089, 1e-9))
		Expect(res.Cumulative.Vals[1][last]).To(BeNumerically("~", 1.089, 1e-9))

		Expect(res.Stats[0].TotalReturn).To(BeNumerically("~", 0.089, 1e-9))
		Expect(res.Stats[0].MaxDrawDown.LossPercent).To(BeNumerically("~", -0.1, 1e-9))
	})

	It("drops days on which any ticker is missing", func() {
		a := series("AAPL", 100, 101, 102, 103, 104)
		m := series("MSFT", 10, 11, 12)

		res, err := portfolio.Analyze([]*data.PriceSeries{a, m}, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Returns.Len()).To(Equal(2))
		Expect(res.End).To(Equal(nyDay(2)))
	})

	It("analyses a single ticker", func() {
		res, err := portfolio.Analyze([]*data.PriceSeries{series("AAPL", 1, 2, 3)}, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Correlation).To(Equal([][]float64{{1}}))
	})

	It("requires at least one ticker", func() {
		_, err := portfolio.Analyze(nil, 0)
		Expect(err).To(MatchError(portfolio.ErrNoTickers))
	})

	It("requires overlapping history", func() {
		_, err := portfolio.Analyze([]*data.PriceSeries{series("AAPL", 1, 2)}, 0)
		Expect(err).To(MatchError(portfolio.ErrNoCommonHistory))
	})

	It("renders tables, a chart and JSON", func() {
		res, err := portfolio.Analyze([]*data.PriceSeries{series("AAPL", 100, 110, 99, 108.9), series("MSFT", 50, 52, 51, 50)}, 0.01)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.CorrelationTable()).To(ContainSubstring("MSFT"))
		Expect(res.StatsTable()).To(ContainSubstring("8.90%"))
		Expect(res.Chart(0)).To(ContainSubstring("Cumulative Returns"))

		buf, err := json.Marshal(res.JSON())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(buf)).To(ContainSubstring(`"tickers":["AAPL","MSFT"]`))
	})

	Describe("Load", func() {
		var manager *data.Manager

		BeforeEach(func() {
			provider := &staticProvider{obs: map[string][]data.Observation{
				"AAPL": {{Date: nyDay(0), Value: 10}, {Date: nyDay(1), Value: 11}, {Date: nyDay(2), Value: 12}},
				"MSFT": {{Date: nyDay(0), Value: 20}, {Date: nyDay(1), Value: 19}, {Date: nyDay(2), Value: 21}},
			}}
			manager = data.NewManager(provider, nil)
		})

		It("normalizes and deduplicates tickers", func() {
			res, err := portfolio.Load(context.Background(), manager, []string{"aapl", " MSFT", "AAPL"}, nyDay(0), nyDay(5))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Tickers).To(Equal([]string{"AAPL", "MSFT"}))
			Expect(res.RiskFree).To(Equal(0.0))
			Expect(math.IsNaN(res.Stats[1].TotalReturn)).To(BeFalse())
		})

		It("rejects an empty ticker list", func() {
			_, err := portfolio.Load(context.Background(), manager, []string{" "}, nyDay(0), nyDay(5))
			Expect(err).To(MatchError(portfolio.ErrNoTickers))
		})

		It("rejects an inverted range", func() {
			_, err := portfolio.Load(context.Background(), manager, []string{"AAPL"}, nyDay(5), nyDay(0))
			Expect(err).To(MatchError(portfolio.ErrInvalidRange))
		})

		It("fails when a ticker cannot be loaded", func() {
			_, err := portfolio.Load(context.Background(), manager, []string{"AAPL", "ZZZZ"}, nyDay(0), nyDay(5))
			Expect(err).To(MatchError(data.ErrDataUnavailable))
		})
	})
})
