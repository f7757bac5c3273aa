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

package capm_test

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-forecast/capm"
	"github.com/penny-vault/pv-forecast/common"
	"github.com/penny-vault/pv-forecast/data"
)

func day(i int) time.Time {
	return time.Date(2023, 1, 2, 0, 0, 0, 0, common.GetTimezone()).AddDate(0, 0, i)
}

// leveraged returns a market series and an asset whose daily return is
// exactly k times the market's
func leveraged(n int, k float64) (*data.PriceSeries, *data.PriceSeries) {
	market := make([]data.Observation, n)
	asset := make([]data.Observation, n)
	m, a := 100.0, 50.0
	for i := 0; i < n; i++ {
		if i > 0 {
			r := 0.01 * math.Sin(float64(i))
			m *= 1 + r
			a *= 1 + k*r
		}
		market[i] = data.Observation{Date: day(i), Value: m}
		asset[i] = data.Observation{Date: day(i), Value: a}
	}

	ms, err := data.NewPriceSeries("^GSPC", market)
	Expect(err).NotTo(HaveOccurred())
	as, err := data.NewPriceSeries("LEV", asset)
	Expect(err).NotTo(HaveOccurred())
	return as, ms
}

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

func observations(s *data.PriceSeries) []data.Observation {
	obs := make([]data.Observation, s.Len())
	for i := range obs {
		obs[i] = data.Observation{Date: s.Dates[i], Value: s.Close[i]}
	}
	return obs
}

var _ = Describe("CAPM", func() {
	It("recovers the beta of a leveraged series", func() {
		asset, market := leveraged(200, 2)
		returns, err := capm.Returns(asset, market)
		Expect(err).NotTo(HaveOccurred())
		Expect(returns.Len()).To(Equal(199))

		beta, err := capm.Beta(returns)
		Expect(err).NotTo(HaveOccurred())
		Expect(beta).To(BeNumerically("~", 2, 1e-9))
	})

	It("has a beta of one against itself", func() {
		_, market := leveraged(50, 1)
		res, err := capm.Compute(market, market, 0.05)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Beta).To(BeNumerically("~", 1, 1e-12))
		Expect(res.ExpectedReturn).To(BeNumerically("~", res.MarketReturn, 1e-12))
	})

	It("prices the asset along the security market line", func() {
		Expect(capm.ExpectedReturn(1.5, 0.04, 0.10)).To(BeNumerically("~", 0.13, 1e-12))
		Expect(capm.ExpectedReturn(0, 0.04, 0.10)).To(BeNumerically("~", 0.04, 1e-12))
	})

	It("only uses dates both series trade on", func() {
		asset, market := leveraged(30, 1.5)
		late := asset.Slice(20, 30)

		res, err := capm.Compute(late, market, 0.01)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Observations).To(Equal(9))
		Expect(res.Start).To(Equal(day(21)))
		Expect(res.End).To(Equal(day(29)))
		Expect(res.Beta).To(BeNumerically("~", 1.5, 1e-9))
	})

	It("fails when the series do not overlap", func() {
		asset, market := leveraged(30, 1)
		_, err := capm.Compute(asset.Slice(0, 10), market.Slice(15, 30), 0.01)
		Expect(err).To(MatchError(capm.ErrNoOverlap))
	})

	It("rejects a flat benchmark", func() {
		obs := []data.Observation{{Date: day(0), Value: 10}, {Date: day(1), Value: 10}, {Date: day(2), Value: 10}}
		flat, err := data.NewPriceSeries("FLAT", obs)
		Expect(err).NotTo(HaveOccurred())
		asset, _ := leveraged(3, 1)

		_, err = capm.Compute(asset, flat, 0.01)
		Expect(err).To(MatchError(capm.ErrFlatBenchmark))
	})

	Describe("Analyze", func() {
		var manager *data.Manager

		BeforeEach(func() {
			asset, market := leveraged(120, 1.2)
			prices := &fakeProvider{obs: map[string][]data.Observation{
				"LEV":   observations(asset),
				"^GSPC": observations(market),
			}}
			rates := &fakeProvider{obs: map[string][]data.Observation{
				data.RiskFreeSeries: {{Date: day(100), Value: 5.25}},
			}}
			manager = data.NewManager(prices, rates)
			manager.Now = func() time.Time { return day(119) }
		})

		It("combines prices and the risk-free rate", func() {
			res, err := capm.Analyze(context.Background(), manager, "lev", "", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Symbol).To(Equal("LEV"))
			Expect(res.Benchmark).To(Equal("^GSPC"))
			Expect(res.RiskFree).To(BeNumerically("~", 0.0525, 1e-12))
			Expect(res.Beta).To(BeNumerically("~", 1.2, 1e-9))
		})

		It("reports unknown symbols as unavailable", func() {
			_, err := capm.Analyze(context.Background(), manager, "ZZZZ", "", 1)
			Expect(err).To(MatchError(data.ErrDataUnavailable))
		})

		It("validates the lookback", func() {
			_, err := capm.Analyze(context.Background(), manager, "LEV", "", 9)
			Expect(err).To(MatchError(capm.ErrInvalidLookback))
		})
	})
})
