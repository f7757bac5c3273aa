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
	"math/rand"

	"github.com/penny-vault/pv-forecast/nn"
	"github.com/rs/zerolog/log"
)

// LSTM forecasts with a two layer recurrent network trained on min-max
// scaled windows of closing prices
type LSTM struct {
	cfg LSTMConfig
}

func NewLSTM(cfg LSTMConfig) *LSTM {
	return &LSTM{cfg: cfg}
}

func (m *LSTM) Name() string {
	return "LSTM"
}

// Forecast trains a fresh network and produces in.Horizon values.
//
// In windowed mode every forecast step reads the true values preceding its
// target, which means steps after the first see test observations. In
// recursive mode the network only sees the training history and its own
// previous outputs.
func (m *LSTM) Forecast(ctx context.Context, in Input) ([]float64, error) {
	cfg := m.cfg
	full := in.Full()
	if len(full) <= cfg.Window {
		return nil, fmt.Errorf("%w: %d observations, need more than %d", ErrInsufficientData, len(full), cfg.Window)
	}

	fitRange := in.Train
	if cfg.FullSeries {
		fitRange = full
	}

	var scaler nn.MinMaxScaler
	scaler.Fit(fitRange)

	scaledFit, err := scaler.Transform(fitRange)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInsufficientData, err)
	}

	X, y := nn.Windows(scaledFit, cfg.Window)
	if len(X) == 0 {
		return nil, fmt.Errorf("%w: no training window of %d in %d observations", ErrInsufficientData, cfg.Window, len(fitRange))
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	net, err := nn.NewNetwork(cfg.Window, cfg.Hidden, cfg.LearningRate, rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	losses, err := net.Fit(ctx, X, y, cfg.Epochs, cfg.BatchSize, rng)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("Samples", len(X)).Floats64("Loss", losses).Str("Mode", cfg.Mode).Msg("lstm trained")

	var scaled []float64
	switch cfg.Mode {
	case ModeRecursive:
		var history []float64
		if history, err = scaler.Transform(in.Train); err == nil {
			scaled, err = m.recursive(ctx, net, history, in.Horizon)
		}
	default:
		var series []float64
		if series, err = scaler.Transform(full); err == nil {
			scaled, err = m.windowed(net, series, len(in.Train), in.Horizon)
		}
	}
	if err != nil {
		return nil, err
	}

	return scaler.InverseTransform(scaled)
}

// windowed predicts the h values following split, each from the window of
// true values that precedes it. With FullSeries the windows are the last h
// of the whole series instead.
func (m *LSTM) windowed(net *nn.Network, scaled []float64, split, h int) ([]float64, error) {
	w := m.cfg.Window
	first := split
	if m.cfg.FullSeries {
		first = len(scaled) - h
	}
	if first < w || first+h > len(scaled) {
		return nil, fmt.Errorf("%w: cannot build %d windows of %d from %d observations", ErrInsufficientData, h, w, len(scaled))
	}

	inputs := make([][]float64, h)
	for k := 0; k < h; k++ {
		inputs[k] = scaled[first+k-w : first+k]
	}
	return net.Predict(inputs)
}

// recursive appends every prediction to the history and slides the window
// over it
func (m *LSTM) recursive(ctx context.Context, net *nn.Network, history []float64, h int) ([]float64, error) {
	w := m.cfg.Window
	if len(history) < w {
		return nil, fmt.Errorf("%w: %d observations, need %d", ErrInsufficientData, len(history), w)
	}

	buf := make([]float64, len(history), len(history)+h)
	copy(buf, history)
	out := make([]float64, 0, h)
	for k := 0; k < h; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pred, err := net.Predict([][]float64{buf[len(buf)-w:]})
		if err != nil {
			return nil, err
		}
		buf = append(buf, pred[0])
		out = append(out, pred[0])
	}
	return out, nil
}
