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
	"errors"
	"fmt"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	dfforecast "github.com/rocketlaunchr/dataframe-go/forecast"
	"github.com/rocketlaunchr/dataframe-go/forecast/algs/hw"
)

// HoltWinters decomposes the series into additive level, trend and seasonal
// components and extrapolates them
type HoltWinters struct {
	cfg HoltWintersConfig
}

func NewHoltWinters(cfg HoltWintersConfig) *HoltWinters {
	return &HoltWinters{cfg: cfg}
}

func (m *HoltWinters) Name() string {
	return "Holt-Winters"
}

// Forecast fits on in.Train and returns the next in.Horizon values. With
// FullSeries the fit also covers in.Context and the forecast starts after it.
func (m *HoltWinters) Forecast(ctx context.Context, in Input) ([]float64, error) {
	vals := in.Train
	if m.cfg.FullSeries {
		vals = in.Full()
	}

	alg := hw.NewHoltWinters()
	err := alg.Configure(hw.HoltWintersConfig{
		Alpha:          m.cfg.Alpha,
		Beta:           m.cfg.Beta,
		Gamma:          m.cfg.Gamma,
		Period:         m.cfg.Period,
		SeasonalMethod: hw.Additive,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	sf := dataframe.NewSeriesFloat64("close", nil, vals)
	if err := alg.Load(ctx, sf, nil); err != nil {
		if errors.Is(err, dfforecast.ErrInsufficientDataPoints) {
			return nil, fmt.Errorf("%w: %d observations for period %d", ErrInsufficientData, len(vals), m.cfg.Period)
		}
		return nil, err
	}

	pred, _, err := alg.Predict(ctx, uint(in.Horizon))
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(pred.Values))
	copy(out, pred.Values)
	return out, nil
}
