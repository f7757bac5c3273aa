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
	"errors"
	"math"
	"time"
)

// Outcome labels used in logs and metrics
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeTimeout = "timeout"
)

// Result is the outcome of running one adapter. It is either a success
// carrying exactly h forecast values or a failure carrying the cause; a
// failure still exposes h NaN values so every model renders the same way.
type Result struct {
	Model   string
	Values  []float64
	Err     error
	Elapsed time.Duration
}

// Success wraps the forecast of a model that completed
func Success(model string, values []float64) Result {
	return Result{Model: model, Values: values}
}

// Failure records err and fills the forecast with h missing values
func Failure(model string, h int, err error) Result {
	vals := make([]float64, h)
	for i := range vals {
		vals[i] = math.NaN()
	}
	return Result{Model: model, Values: vals, Err: err}
}

// OK reports whether the adapter produced a forecast
func (r Result) OK() bool {
	return r.Err == nil
}

// Outcome classifies the result for metrics
func (r Result) Outcome() string {
	switch {
	case r.Err == nil:
		return OutcomeOK
	case errors.Is(r.Err, ErrTimeout):
		return OutcomeTimeout
	default:
		return OutcomeFailed
	}
}

// Horizon is the number of forecast values, present or missing
func (r Result) Horizon() int {
	return len(r.Values)
}
