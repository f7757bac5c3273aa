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
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// LSTM forecast modes
const (
	ModeWindowed  = "windowed"
	ModeRecursive = "recursive"
)

// Config controls the comparison pipeline (viper key "forecast")
type Config struct {
	TrainRatio  float64       `mapstructure:"train_ratio" default:"0.8" validate:"gt=0,lt=1"`
	MaxHorizon  int           `mapstructure:"max_horizon" default:"30" validate:"gte=0"`
	Parallelism int           `mapstructure:"parallelism" default:"4" validate:"gte=1"`
	Timeout     time.Duration `mapstructure:"timeout" default:"5m" validate:"gt=0"`

	// Models restricts the pipeline to the listed shortcodes; empty runs every
	// registered model
	Models []string `mapstructure:"models"`
}

// ARIMAConfig is the (p, d, q) order of the non-seasonal model
type ARIMAConfig struct {
	P int `mapstructure:"p" default:"5" validate:"gte=0"`
	D int `mapstructure:"d" default:"1" validate:"gte=0,lte=2"`
	Q int `mapstructure:"q" default:"0" validate:"gte=0"`
}

// SARIMAConfig is the (p, d, q)(P, D, Q, m) order of the seasonal model
type SARIMAConfig struct {
	P       int `mapstructure:"p" default:"1" validate:"gte=0"`
	D       int `mapstructure:"d" default:"1" validate:"gte=0,lte=2"`
	Q       int `mapstructure:"q" default:"1" validate:"gte=0"`
	SeasonP int `mapstructure:"seasonal_p" default:"1" validate:"gte=0"`
	SeasonD int `mapstructure:"seasonal_d" default:"1" validate:"gte=0,lte=1"`
	SeasonQ int `mapstructure:"seasonal_q" default:"0" validate:"gte=0"`
	Period  int `mapstructure:"period" default:"12" validate:"gte=2"`
}

// HoltWintersConfig configures the additive decomposition forecaster
type HoltWintersConfig struct {
	Period uint    `mapstructure:"period" default:"5" validate:"gte=3"`
	Alpha  float64 `mapstructure:"alpha" default:"0.5" validate:"gte=0,lte=1"`
	Beta   float64 `mapstructure:"beta" default:"0.1" validate:"gte=0,lte=1"`
	Gamma  float64 `mapstructure:"gamma" default:"0.1" validate:"gte=0,lte=1"`

	// FullSeries fits on train and test and keeps the last h values of the
	// extended forecast
	FullSeries bool `mapstructure:"full_series"`
}

// LSTMConfig configures the recurrent network and how it forecasts
type LSTMConfig struct {
	Window       int     `mapstructure:"window" default:"60" validate:"gte=1"`
	Hidden       int     `mapstructure:"hidden" default:"50" validate:"gte=1"`
	Epochs       int     `mapstructure:"epochs" default:"5" validate:"gte=1"`
	BatchSize    int     `mapstructure:"batch_size" default:"32" validate:"gte=1"`
	LearningRate float64 `mapstructure:"learning_rate" default:"0.001" validate:"gt=0"`
	Seed         int64   `mapstructure:"seed" default:"42"`
	Mode         string  `mapstructure:"mode" default:"windowed" validate:"oneof=windowed recursive"`

	// FullSeries fits the scaler and the training pairs on the whole series
	FullSeries bool `mapstructure:"full_series"`
}

// Settings bundles the configuration of the pipeline and every model
type Settings struct {
	Forecast    Config
	ARIMA       ARIMAConfig
	SARIMA      SARIMAConfig
	HoltWinters HoltWintersConfig
	LSTM        LSTMConfig
}

var validate = validator.New()

// DefaultSettings returns settings populated from the struct defaults only
func DefaultSettings() *Settings {
	s := &Settings{}
	if err := defaults.Set(s); err != nil {
		// default tags are static; failing here is a programming error
		panic(err)
	}
	return s
}

// LoadSettings reads the forecast, arima, sarima, holtwinters and lstm
// sections from viper over the defaults and validates the result
func LoadSettings() (*Settings, error) {
	s := DefaultSettings()

	sections := []struct {
		key string
		dst any
	}{
		{"forecast", &s.Forecast},
		{"arima", &s.ARIMA},
		{"sarima", &s.SARIMA},
		{"holtwinters", &s.HoltWinters},
		{"lstm", &s.LSTM},
	}

	for _, sec := range sections {
		if err := viper.UnmarshalKey(sec.key, sec.dst); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, sec.key, err)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every section against its validate tags
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ForPrediction returns a copy tuned for out-of-sample prediction: the LSTM
// feeds its own outputs back and nothing is fitted beyond the given history
func (s *Settings) ForPrediction() *Settings {
	out := *s
	out.LSTM.Mode = ModeRecursive
	out.LSTM.FullSeries = false
	out.HoltWinters.FullSeries = false
	return &out
}
