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
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sartorproj/goarima/arima"
	"github.com/sartorproj/goarima/sarima"
	"github.com/sartorproj/goarima/timeseries"
)

// ARIMA is the classical autoregressive integrated moving average model
type ARIMA struct {
	cfg ARIMAConfig
}

func NewARIMA(cfg ARIMAConfig) *ARIMA {
	return &ARIMA{cfg: cfg}
}

func (m *ARIMA) Name() string {
	return "ARIMA"
}

// Forecast fits once on in.Train and predicts in.Horizon steps ahead
func (m *ARIMA) Forecast(ctx context.Context, in Input) ([]float64, error) {
	// arima.Fit rejects anything shorter
	if len(in.Train) < m.cfg.P+m.cfg.Q+m.cfg.D+10 {
		return nil, fmt.Errorf("%w: ARIMA(%d,%d,%d) on %d observations", ErrInsufficientData, m.cfg.P, m.cfg.D, m.cfg.Q, len(in.Train))
	}

	model := arima.New(m.cfg.P, m.cfg.D, m.cfg.Q)
	if err := model.Fit(&timeseries.Series{Values: in.Train}); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Debug().Int("P", m.cfg.P).Int("D", m.cfg.D).Int("Q", m.cfg.Q).Float64("AIC", model.AIC).Msg("arima fitted")
	return model.Predict(in.Horizon)
}

// SARIMA adds a seasonal (P, D, Q) component with period m
type SARIMA struct {
	cfg SARIMAConfig
}

func NewSARIMA(cfg SARIMAConfig) *SARIMA {
	return &SARIMA{cfg: cfg}
}

func (m *SARIMA) Name() string {
	return "SARIMA"
}

// minObservations is the shortest series sarima.Fit accepts for this order
func (c SARIMAConfig) minObservations() int {
	return c.P + c.D + c.Q + (c.SeasonP+c.SeasonD+c.SeasonQ)*c.Period + 20
}

// reduced lists the configured order followed by the fallbacks tried on
// short series: seasonal AR and MA terms dropped, then the seasonal part
// dropped entirely
func (c SARIMAConfig) reduced() []SARIMAConfig {
	orders := []SARIMAConfig{c}

	noSeasonalARMA := c
	noSeasonalARMA.SeasonP, noSeasonalARMA.SeasonQ = 0, 0
	if noSeasonalARMA != c {
		orders = append(orders, noSeasonalARMA)
	}

	nonSeasonal := noSeasonalARMA
	nonSeasonal.SeasonD = 0
	if nonSeasonal != noSeasonalARMA {
		orders = append(orders, nonSeasonal)
	}

	return orders
}

// Order picks the highest order in the fallback ladder that n observations
// can fit
func (c SARIMAConfig) Order(n int) (SARIMAConfig, bool) {
	for _, order := range c.reduced() {
		if n >= order.minObservations() {
			return order, true
		}
	}
	return c, false
}

// Forecast fits once on in.Train and predicts in.Horizon steps ahead. A
// training prefix too short for the configured order is fitted with a
// reduced seasonal order instead.
func (m *SARIMA) Forecast(ctx context.Context, in Input) ([]float64, error) {
	c, ok := m.cfg.Order(len(in.Train))
	if !ok {
		return nil, fmt.Errorf("%w: SARIMA(%d,%d,%d)(%d,%d,%d)[%d] on %d observations",
			ErrInsufficientData, c.P, c.D, c.Q, c.SeasonP, c.SeasonD, c.SeasonQ, c.Period, len(in.Train))
	}
	if c != m.cfg {
		log.Info().Int("NumObservations", len(in.Train)).Int("SeasonP", c.SeasonP).Int("SeasonD", c.SeasonD).Int("SeasonQ", c.SeasonQ).Msg("series too short for configured seasonal order; fitting reduced order")
	}

	model := sarima.New(c.P, c.D, c.Q, c.SeasonP, c.SeasonD, c.SeasonQ, c.Period)
	if err := model.Fit(&timeseries.Series{Values: in.Train}); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Debug().Int("Period", c.Period).Float64("AIC", model.AIC).Msg("sarima fitted")
	return model.Predict(in.Horizon)
}
