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
	"fmt"
	"math"
	"time"

	"github.com/penny-vault/pv-forecast/data"
)

// Split is a chronological partition of a series into a training prefix and
// a test suffix. Train followed by Test reproduces the original series.
type Split struct {
	Train   *data.PriceSeries
	Test    *data.PriceSeries
	Horizon int
}

// SplitSeries partitions series at floor(ratio * n). The horizon is the test
// length clipped to maxHorizon, so it never exceeds the number of actuals.
func SplitSeries(series *data.PriceSeries, ratio float64, maxHorizon int) (*Split, error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, fmt.Errorf("%w: train ratio %g must be inside (0, 1)", ErrInvalidConfig, ratio)
	}
	if maxHorizon < 0 {
		return nil, fmt.Errorf("%w: max horizon %d is negative", ErrInvalidConfig, maxHorizon)
	}

	n := 0
	if series != nil {
		n = series.Len()
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: %d observations, need at least 2", ErrInsufficientData, n)
	}

	idx := int(math.Floor(ratio * float64(n)))
	test := series.Slice(idx, n)

	return &Split{
		Train:   series.Slice(0, idx),
		Test:    test,
		Horizon: min(maxHorizon, test.Len()),
	}, nil
}

// Actuals returns the first Horizon test closes
func (s *Split) Actuals() []float64 {
	out := make([]float64, s.Horizon)
	copy(out, s.Test.Close[:s.Horizon])
	return out
}

// Dates returns the dates of the first Horizon test observations
func (s *Split) Dates() []time.Time {
	out := make([]time.Time, s.Horizon)
	copy(out, s.Test.Dates[:s.Horizon])
	return out
}

// Input builds the read-only adapter input for this split
func (s *Split) Input() Input {
	return Input{
		Train:   s.Train.Values(),
		Context: s.Test.Values(),
		Horizon: s.Horizon,
	}
}
