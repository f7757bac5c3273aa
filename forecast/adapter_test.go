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

package forecast_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-forecast/forecast"
)

// stubAdapter runs fn as its forecast
type stubAdapter struct {
	name string
	fn   func(ctx context.Context, in forecast.Input) ([]float64, error)
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Forecast(ctx context.Context, in forecast.Input) ([]float64, error) {
	return s.fn(ctx, in)
}

func constant(name string, v float64) *stubAdapter {
	return &stubAdapter{name: name, fn: func(_ context.Context, in forecast.Input) ([]float64, error) {
		out := make([]float64, in.Horizon)
		for i := range out {
			out[i] = v
		}
		return out, nil
	}}
}

func allNaN(vals []float64) bool {
	for _, v := range vals {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

var _ = Describe("RunAdapter", func() {
	in := forecast.Input{Train: []float64{1, 2, 3}, Context: []float64{4, 5}, Horizon: 2}

	It("returns the forecast of a healthy model", func() {
		res := forecast.RunAdapter(context.Background(), constant("flat", 3), in, time.Second)
		Expect(res.OK()).To(BeTrue())
		Expect(res.Outcome()).To(Equal(forecast.OutcomeOK))
		Expect(res.Model).To(Equal("flat"))
		Expect(res.Values).To(Equal([]float64{3, 3}))
	})

	It("turns errors into a model fit failure", func() {
		res := forecast.RunAdapter(context.Background(), &stubAdapter{name: "bad", fn: func(context.Context, forecast.Input) ([]float64, error) {
			return nil, errors.New("singular matrix")
		}}, in, time.Second)
		Expect(res.OK()).To(BeFalse())
		Expect(res.Err).To(MatchError(forecast.ErrModelFit))
		Expect(res.Values).To(HaveLen(2))
		Expect(allNaN(res.Values)).To(BeTrue())
	})

	It("keeps insufficient data errors distinct", func() {
		res := forecast.RunAdapter(context.Background(), &stubAdapter{name: "short", fn: func(context.Context, forecast.Input) ([]float64, error) {
			return nil, forecast.ErrInsufficientData
		}}, in, time.Second)
		Expect(res.Err).To(MatchError(forecast.ErrInsufficientData))
		Expect(res.Outcome()).To(Equal(forecast.OutcomeFailed))
	})

	It("recovers from a panic", func() {
		res := forecast.RunAdapter(context.Background(), &stubAdapter{name: "panics", fn: func(context.Context, forecast.Input) ([]float64, error) {
			panic("index out of range")
		}}, in, time.Second)
		Expect(res.Err).To(MatchError(forecast.ErrModelFit))
		Expect(allNaN(res.Values)).To(BeTrue())
	})

	It("fails a model that exceeds its timeout", func() {
		release := make(chan struct{})
		defer close(release)

		res := forecast.RunAdapter(context.Background(), &stubAdapter{name: "slow", fn: func(context.Context, forecast.Input) ([]float64, error) {
			<-release
			return []float64{1, 1}, nil
		}}, in, 20*time.Millisecond)
		Expect(res.Err).To(MatchError(forecast.ErrTimeout))
		Expect(res.Outcome()).To(Equal(forecast.OutcomeTimeout))
		Expect(res.Values).To(HaveLen(2))
	})

	It("lets a model that ignores cancellation finish after its timeout", func() {
		release := make(chan struct{})
		finished := make(chan struct{})

		res := forecast.RunAdapter(context.Background(), &stubAdapter{name: "stubborn", fn: func(context.Context, forecast.Input) ([]float64, error) {
			defer close(finished)
			<-release
			return []float64{1, 1}, nil
		}}, in, 20*time.Millisecond)
		Expect(res.Outcome()).To(Equal(forecast.OutcomeTimeout))
		Consistently(finished, 50*time.Millisecond).ShouldNot(BeClosed())

		close(release)
		Eventually(finished).Should(BeClosed())
	})

	It("rejects output of the wrong length", func() {
		res := forecast.RunAdapter(context.Background(), &stubAdapter{name: "short", fn: func(context.Context, forecast.Input) ([]float64, error) {
			return []float64{1}, nil
		}}, in, time.Second)
		Expect(res.Err).To(MatchError(forecast.ErrModelFit))
	})

	It("rejects non-finite output", func() {
		res := forecast.RunAdapter(context.Background(), &stubAdapter{name: "inf", fn: func(context.Context, forecast.Input) ([]float64, error) {
			return []float64{1, math.Inf(1)}, nil
		}}, in, time.Second)
		Expect(res.Err).To(MatchError(forecast.ErrModelFit))
	})

	It("does not run the model for a zero horizon", func() {
		var calls int32
		res := forecast.RunAdapter(context.Background(), &stubAdapter{name: "never", fn: func(context.Context, forecast.Input) ([]float64, error) {
			atomic.AddInt32(&calls, 1)
			return nil, nil
		}}, forecast.Input{Train: []float64{1}}, time.Second)
		Expect(res.OK()).To(BeTrue())
		Expect(res.Values).To(BeEmpty())
		Expect(atomic.LoadInt32(&calls)).To(BeZero())
	})

	It("gives every model its own copy of the input", func() {
		mutate := &stubAdapter{name: "mutate", fn: func(_ context.Context, in forecast.Input) ([]float64, error) {
			in.Train[0] = -1
			return []float64{0, 0}, nil
		}}
		shared := forecast.Input{Train: []float64{1, 2, 3}, Horizon: 2}
		forecast.RunAdapter(context.Background(), mutate, shared, time.Second)
		Expect(shared.Train[0]).To(Equal(1.0))
	})
})
