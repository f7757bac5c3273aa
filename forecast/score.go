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
	"math"

	"gonum.org/v1/gonum/floats"
)

// ScoreRecord is the accuracy of one model; RMSE is NaN when the model has
// no complete forecast
type ScoreRecord struct {
	Model string
	RMSE  float64
}

// Missing reports whether the score could not be computed
func (s ScoreRecord) Missing() bool {
	return math.IsNaN(s.RMSE)
}

// RMSE returns the root mean squared error over the first h pairs. It is NaN
// when h is zero, either side is shorter than h or any value is missing.
func RMSE(actual, forecast []float64, h int) float64 {
	if h <= 0 || len(actual) < h || len(forecast) < h {
		return math.NaN()
	}

	a, f := actual[:h], forecast[:h]
	if floats.HasNaN(a) || floats.HasNaN(f) {
		return math.NaN()
	}
	return floats.Distance(a, f, 2) / math.Sqrt(float64(h))
}

// Score computes one record per result, in the order of results
func Score(results []Result, actuals []float64) []ScoreRecord {
	records := make([]ScoreRecord, 0, len(results))
	for _, r := range results {
		rmse := math.NaN()
		if r.OK() {
			rmse = RMSE(actuals, r.Values, len(actuals))
		}
		records = append(records, ScoreRecord{Model: r.Model, RMSE: rmse})
	}
	return records
}
