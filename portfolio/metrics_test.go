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
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-forecast/portfolio"
)

func days(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}
	return out
}

var _ = Describe("Metrics", func() {
	It("compounds returns", func() {
		Expect(portfolio.TotalReturn([]float64{0.1, -0.1})).To(BeNumerically("~", -0.01, 1e-12))
		Expect(portfolio.TotalReturn(nil)).To(Equal(0.0))
	})

	It("only annualizes periods longer than a year", func() {
		short := []float64{0.01, 0.01}
		Expect(portfolio.AnnualizedReturn(short)).To(BeNumerically("~", portfolio.TotalReturn(short), 1e-12))

		long := make([]float64, 504)
		for i := range long {
			long[i] = 0.0005
		}
		want := math.Pow(1.0005, 252) - 1
		Expect(portfolio.AnnualizedReturn(long)).To(BeNumerically("~", want, 1e-9))
	})

	It("annualizes the standard deviation of daily returns", func() {
		rets := []float64{0.01, -0.01, 0.01, -0.01}
		Expect(portfolio.StdDev(rets)).To(BeNumerically("~", math.Sqrt(4.0/3.0)*0.01*math.Sqrt(252), 1e-12))
		Expect(math.IsNaN(portfolio.StdDev([]float64{0.1}))).To(BeTrue())
	})

	It("has no sharpe ratio without volatility", func() {
		Expect(math.IsNaN(portfolio.SharpeRatio([]float64{0.01, 0.01, 0.01}, 0.02))).To(BeTrue())
	})

	It("subtracts the risk-free rate in the sharpe ratio", func() {
		rets := []float64{0.02, -0.01, 0.015, 0.0}
		diff := portfolio.SharpeRatio(rets, 0) - portfolio.SharpeRatio(rets, 0.05)
		Expect(diff).To(BeNumerically("~", 0.05/portfolio.StdDev(rets), 1e-12))
	})

	It("finds the deepest draw down", func() {
		dates := days(7)
		values := []float64{1, 1.2, 0.9, 1.0, 1.3, 1.1, 1.2}

		all := portfolio.AllDrawDowns(dates, values)
		Expect(all).To(HaveLen(2))
		Expect(all[0].Recovery).To(Equal(dates[4]))
		Expect(all[1].Recovery.IsZero()).To(BeTrue())

		dd := portfolio.MaxDrawDown(dates, values)
		Expect(dd).NotTo(BeNil())
		Expect(dd.Begin).To(Equal(dates[1]))
		Expect(dd.End).To(Equal(dates[2]))
		Expect(dd.LossPercent).To(BeNumerically("~", -0.25, 1e-12))
	})

	It("returns nil for a curve that never falls", func() {
		Expect(portfolio.MaxDrawDown(days(3), []float64{1, 2, 3})).To(BeNil())
	})
})
