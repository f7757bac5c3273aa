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
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/penny-vault/pv-forecast/common"
	"github.com/penny-vault/pv-forecast/observability/metrics"
)

// Manager loads price series and rates through a provider, coalescing
// identical concurrent requests and caching raw provider responses
type Manager struct {
	prices Provider
	rates  Provider
	group  singleflight.Group

	// Now is the clock used for lookback ranges
	Now func() time.Time

	riskFreeLock sync.RWMutex
	riskFree     float64
	riskFreeAsOf time.Time
}

// NewManager creates a data manager; rates may be nil when no risk free rate is needed
func NewManager(prices Provider, rates Provider) *Manager {
	return &Manager{
		prices: prices,
		rates:  rates,
		Now:    time.Now,
	}
}

// NewManagerFromConfig creates a manager using the data.provider viper key
// for prices and FRED for rates
func NewManagerFromConfig() (*Manager, error) {
	prices, err := NewProvider(viper.GetString("data.provider"))
	if err != nil {
		return nil, err
	}
	return NewManager(prices, NewFred()), nil
}

// ProviderName returns the name of the price provider
func (m *Manager) ProviderName() string {
	return m.prices.Name()
}

// LoadSeries fetches daily closes for symbol over [begin, end] and normalizes
// them into a PriceSeries. Every failure wraps ErrDataUnavailable.
func (m *Manager) LoadSeries(ctx context.Context, symbol string, begin, end time.Time) (*PriceSeries, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, ErrSymbolNotFound)
	}

	if end.Before(begin) {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, ErrInvalidTimeRange)
	}

	obs, err := m.fetch(ctx, m.prices, symbol, begin, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	series, err := NewPriceSeries(symbol, obs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	log.Debug().Str("Symbol", symbol).Int("NumObservations", series.Len()).Time("First", series.Dates[0]).Time("Last", series.LastDate()).Msg("loaded price series")
	return series, nil
}

// LoadLookback loads the last `years` calendar years ending today
func (m *Manager) LoadLookback(ctx context.Context, symbol string, years int) (*PriceSeries, error) {
	begin, end := common.LookbackRange(m.Now(), years)
	return m.LoadSeries(ctx, symbol, begin, end)
}

// LoadMany loads several symbols concurrently. The result is in the same
// order as symbols; the first failure is returned.
func (m *Manager) LoadMany(ctx context.Context, symbols []string, begin, end time.Time) ([]*PriceSeries, error) {
	res := make([]*PriceSeries, len(symbols))
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(10)

	for idx, symbol := range symbols {
		grp.Go(func() error {
			series, err := m.LoadSeries(ctx, symbol, begin, end)
			if err != nil {
				log.Warn().Err(err).Str("Ticker", symbol).Msg("cannot download ticker data")
				return err
			}
			res[idx] = series
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// RiskFreeRate returns the most recent 3-month T-bill rate as a fraction
// (e.g. 0.05 for 5%). The value is cached until RefreshRiskFreeRate is called.
func (m *Manager) RiskFreeRate(ctx context.Context) (float64, error) {
	m.riskFreeLock.RLock()
	rate, asOf := m.riskFree, m.riskFreeAsOf
	m.riskFreeLock.RUnlock()

	if !asOf.IsZero() {
		return rate, nil
	}
	return m.RefreshRiskFreeRate(ctx)
}

// RefreshRiskFreeRate downloads the last month of DTB3 observations and
// stores the latest one
func (m *Manager) RefreshRiskFreeRate(ctx context.Context) (float64, error) {
	if m.rates == nil {
		return 0, fmt.Errorf("%w: %w", ErrDataUnavailable, ErrUnknownProvider)
	}

	end := common.Midnight(m.Now())
	begin := end.AddDate(0, -1, 0)

	obs, err := m.fetch(ctx, m.rates, RiskFreeSeries, begin, end)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	var latest *Observation
	for idx := range obs {
		if latest == nil || !obs[idx].Date.Before(latest.Date) {
			latest = &obs[idx]
		}
	}

	if latest == nil {
		return 0, fmt.Errorf("%w: %w", ErrDataUnavailable, ErrNoData)
	}

	rate := latest.Value / 100

	m.riskFreeLock.Lock()
	m.riskFree = rate
	m.riskFreeAsOf = latest.Date
	m.riskFreeLock.Unlock()

	log.Info().Float64("RiskFreeRate", rate).Time("AsOf", latest.Date).Msg("refreshed risk free rate")
	return rate, nil
}

// fetch serves a provider request from the cache when possible and
// coalesces identical in-flight requests
func (m *Manager) fetch(ctx context.Context, provider Provider, symbol string, begin, end time.Time) ([]Observation, error) {
	key := common.CacheKey(provider.Name(), symbol, begin.Format("2006-01-02"), end.Format("2006-01-02"))
	recorder := metrics.Default()

	if cached, err := common.CacheGet(ctx, key); err == nil {
		obs := []Observation{}
		if err := json.Unmarshal(cached, &obs); err == nil {
			recorder.RecordCache(true)
			return obs, nil
		}
		log.Warn().Str("Key", key).Msg("could not decode cached observations")
	} else if !errors.Is(err, common.ErrCacheDisabled) {
		recorder.RecordCache(false)
	}

	val, err, shared := m.group.Do(key, func() (interface{}, error) {
		obs, err := provider.FetchDaily(ctx, symbol, begin, end)
		recorder.RecordFetch(provider.Name(), err)
		if err != nil {
			return nil, err
		}

		if encoded, err := json.Marshal(obs); err == nil {
			if err := common.CacheSet(ctx, key, encoded); err != nil && !errors.Is(err, common.ErrCacheDisabled) {
				log.Warn().Err(err).Str("Key", key).Msg("could not cache observations")
			}
		}
		return obs, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		log.Debug().Str("Symbol", symbol).Str("Provider", provider.Name()).Msg("coalesced duplicate fetch")
	}

	return val.([]Observation), nil
}
