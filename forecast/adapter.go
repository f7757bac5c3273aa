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
	"math"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
)

// Input is what every adapter receives. Train is the history the model may
// fit on. Context holds the observations that follow Train (the test split
// during a comparison, nil when predicting); only adapters configured to use
// them may read it. Horizon is the number of values to produce.
type Input struct {
	Train   []float64
	Context []float64
	Horizon int
}

// Full returns Train followed by Context as a new slice
func (in Input) Full() []float64 {
	out := make([]float64, 0, len(in.Train)+len(in.Context))
	out = append(out, in.Train...)
	return append(out, in.Context...)
}

func (in Input) clone() Input {
	out := Input{Horizon: in.Horizon, Train: make([]float64, len(in.Train))}
	copy(out.Train, in.Train)
	if in.Context != nil {
		out.Context = make([]float64, len(in.Context))
		copy(out.Context, in.Context)
	}
	return out
}

// Adapter wraps one forecasting model behind a uniform interface
type Adapter interface {
	// Name is the display name used in charts and tables
	Name() string

	// Forecast returns exactly in.Horizon values or an error
	Forecast(ctx context.Context, in Input) ([]float64, error)
}

type adapterOutput struct {
	values []float64
	err    error
}

// RunAdapter executes adapter against its own copy of in and folds every
// failure mode (error, panic, timeout, malformed output) into a Result. A
// zero timeout disables the deadline.
func RunAdapter(ctx context.Context, adapter Adapter, in Input, timeout time.Duration) Result {
	name := adapter.Name()
	start := time.Now()
	h := in.Horizon

	finish := func(r Result) Result {
		r.Elapsed = time.Since(start)
		if r.Err != nil {
			log.Warn().Err(r.Err).Str("Model", name).Dur("Elapsed", r.Elapsed).Msg("model failed")
		} else {
			log.Debug().Str("Model", name).Dur("Elapsed", r.Elapsed).Msg("model finished")
		}
		return r
	}

	if h == 0 {
		return finish(Success(name, []float64{}))
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// buffered so the worker never blocks after a timeout. ARIMA, SARIMA and
	// Holt-Winters never look at ctx, so a timed out fit keeps its goroutine
	// and CPU until the library returns. forecast.parallelism bounds the
	// RunAdapter calls in flight, not those abandoned workers.
	done := make(chan adapterOutput, 1)
	go func(in Input) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("Model", name).Interface("Panic", r).Bytes("Stack", debug.Stack()).Msg("model panicked")
				done <- adapterOutput{err: fmt.Errorf("%w: panic: %v", ErrModelFit, r)}
			}
		}()
		vals, err := adapter.Forecast(ctx, in)
		done <- adapterOutput{values: vals, err: err}
	}(in.clone())

	select {
	case out := <-done:
		if out.err != nil {
			return finish(Failure(name, h, classify(out.err)))
		}
		if err := checkForecast(out.values, h); err != nil {
			return finish(Failure(name, h, err))
		}
		return finish(Success(name, out.values))
	case <-ctx.Done():
		return finish(Failure(name, h, classify(ctx.Err())))
	}
}

// classify maps an adapter error onto the pipeline's error kinds
func classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, ErrInsufficientData),
		errors.Is(err, ErrModelFit),
		errors.Is(err, ErrTimeout),
		errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrModelFit, err)
	}
}

func checkForecast(vals []float64, h int) error {
	if len(vals) != h {
		return fmt.Errorf("%w: produced %d values, want %d", ErrModelFit, len(vals), h)
	}
	for idx, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value at step %d", ErrModelFit, idx)
		}
	}
	return nil
}
