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

package data_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-forecast/common"
	"github.com/penny-vault/pv-forecast/data"
)

type fakeProvider struct {
	calls atomic.Int32
	delay time.Duration
	obs   []data.Observation
	err   error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchDaily(ctx context.Context, symbol string, begin, end time.Time) ([]data.Observation, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.obs, f.err
}

var _ = Describe("Manager", func() {
	var (
		ctx      context.Context
		provider *fakeProvider
		manager  *data.Manager
	)

	BeforeEach(func() {
		ctx = context.Background()
		viper.Set("cache.enabled", false)
		Expect(common.SetupCache()).To(Succeed())

		provider = &fakeProvider{
			obs: []data.Observation{
				{Date: nyDay(4), Value: 10},
				{Date: nyDay(5), Value: 11},
			},
		}
		manager = data.NewManager(provider, data.NewFred())
		manager.Now = func() time.Time { return time.Date(2024, 5, 6, 12, 0, 0, 0, common.GetTimezone()) }
	})

	It("wraps provider failures in ErrDataUnavailable", func() {
		provider.err = data.ErrSymbolNotFound
		_, err := manager.LoadSeries(ctx, "nope", nyDay(1), nyDay(10))
		Expect(errors.Is(err, data.ErrDataUnavailable)).To(BeTrue())
		Expect(errors.Is(err, data.ErrSymbolNotFound)).To(BeTrue())
	})

	It("fails when the provider returns no rows", func() {
		provider.obs = nil
		_, err := manager.LoadSeries(ctx, "AAPL", nyDay(1), nyDay(10))
		Expect(errors.Is(err, data.ErrDataUnavailable)).To(BeTrue())
	})

	It("rejects an inverted range and an empty symbol", func() {
		_, err := manager.LoadSeries(ctx, "AAPL", nyDay(10), nyDay(1))
		Expect(errors.Is(err, data.ErrDataUnavailable)).To(BeTrue())

		_, err = manager.LoadSeries(ctx, "  ", nyDay(1), nyDay(10))
		Expect(errors.Is(err, data.ErrDataUnavailable)).To(BeTrue())
		Expect(provider.calls.Load()).To(BeNumerically("==", 0))
	})

	It("upper-cases the symbol", func() {
		series, err := manager.LoadSeries(ctx, "aapl", nyDay(1), nyDay(10))
		Expect(err).To(BeNil())
		Expect(series.Symbol).To(Equal("AAPL"))
		Expect(series.Len()).To(Equal(2))
	})

	It("coalesces concurrent identical requests", func() {
		provider.delay = 200 * time.Millisecond

		var wg sync.WaitGroup
		for ii := 0; ii < 5; ii++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := manager.LoadSeries(ctx, "AAPL", nyDay(1), nyDay(10))
				Expect(err).To(BeNil())
			}()
		}
		wg.Wait()

		Expect(provider.calls.Load()).To(BeNumerically("<", 5))
	})

	It("loads many symbols in order", func() {
		series, err := manager.LoadMany(ctx, []string{"MSFT", "AAPL"}, nyDay(1), nyDay(10))
		Expect(err).To(BeNil())
		Expect(series).To(HaveLen(2))
		Expect(series[0].Symbol).To(Equal("MSFT"))
		Expect(series[1].Symbol).To(Equal("AAPL"))
	})

	Context("with the cache enabled", func() {
		BeforeEach(func() {
			viper.Set("cache.enabled", true)
			viper.Set("cache.redis", false)
			viper.Set("cache.local_size", 16)
			Expect(common.SetupCache()).To(Succeed())
		})

		AfterEach(func() {
			viper.Set("cache.enabled", false)
			Expect(common.SetupCache()).To(Succeed())
		})

		It("serves repeated requests from the cache", func() {
			first, err := manager.LoadSeries(ctx, "AAPL", nyDay(1), nyDay(10))
			Expect(err).To(BeNil())

			second, err := manager.LoadSeries(ctx, "AAPL", nyDay(1), nyDay(10))
			Expect(err).To(BeNil())

			Expect(provider.calls.Load()).To(BeNumerically("==", 1))
			Expect(second.Dates).To(Equal(first.Dates))
			Expect(second.Close).To(Equal(first.Close))
		})
	})

	Context("risk free rate", func() {
		BeforeEach(func() {
			httpmock.Activate()
		})

		AfterEach(func() {
			httpmock.DeactivateAndReset()
		})

		It("uses the latest DTB3 observation as a fraction", func() {
			httpmock.RegisterResponder("GET", `=~^https://fred\.stlouisfed\.org/graph/fredgraph\.csv`,
				httpmock.NewStringResponder(200, fixture("fred_dtb3.csv")))

			rate, err := manager.RiskFreeRate(ctx)
			Expect(err).To(BeNil())
			Expect(rate).To(BeNumerically("~", 0.0524, 1e-12))

			// served from memory afterwards
			rate, err = manager.RiskFreeRate(ctx)
			Expect(err).To(BeNil())
			Expect(rate).To(BeNumerically("~", 0.0524, 1e-12))
			Expect(httpmock.GetTotalCallCount()).To(Equal(1))
		})

		It("fails when FRED is unavailable", func() {
			httpmock.RegisterResponder("GET", `=~^https://fred\.stlouisfed\.org/graph/fredgraph\.csv`,
				httpmock.NewStringResponder(503, ""))

			_, err := manager.RiskFreeRate(ctx)
			Expect(errors.Is(err, data.ErrDataUnavailable)).To(BeTrue())
		})
	})
})
