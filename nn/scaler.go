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

package nn

import "math"

// MinMaxScaler maps values linearly onto [0, 1] using the range observed by Fit.
// A constant input has a zero range; it is treated as a range of one so
// transform and inverse stay finite.
type MinMaxScaler struct {
	Min   float64
	Max   float64
	ready bool
}

// Fit records the minimum and maximum of vals
func (s *MinMaxScaler) Fit(vals []float64) {
	s.Min = math.Inf(1)
	s.Max = math.Inf(-1)
	for _, v := range vals {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.ready = len(vals) > 0
}

// Fitted reports whether Fit has seen at least one value
func (s *MinMaxScaler) Fitted() bool {
	return s.ready
}

func (s *MinMaxScaler) scale() float64 {
	r := s.Max - s.Min
	if r == 0 {
		return 1
	}
	return r
}

// Transform returns a scaled copy of vals. Values outside the fitted range map
// outside [0, 1].
func (s *MinMaxScaler) Transform(vals []float64) ([]float64, error) {
	if !s.Fitted() {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(vals))
	r := s.scale()
	for i, v := range vals {
		out[i] = (v - s.Min) / r
	}
	return out, nil
}

// InverseTransform maps scaled values back onto the original range
func (s *MinMaxScaler) InverseTransform(vals []float64) ([]float64, error) {
	if !s.Fitted() {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(vals))
	r := s.scale()
	for i, v := range vals {
		out[i] = v*r + s.Min
	}
	return out, nil
}

// Windows builds supervised pairs from vals: every input is the `window`
// values preceding its target. Nothing is returned when len(vals) <= window.
func Windows(vals []float64, window int) ([][]float64, []float64) {
	if window <= 0 || len(vals) <= window {
		return nil, nil
	}

	n := len(vals) - window
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := window; i < len(vals); i++ {
		row := make([]float64, window)
		copy(row, vals[i-window:i])
		X[i-window] = row
		y[i-window] = vals[i]
	}
	return X, y
}
