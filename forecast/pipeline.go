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
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/penny-vault/pv-forecast/data"
	"github.com/penny-vault/pv-forecast/observability/metrics"
	"github.com/penny-vault/pv-forecast/observability/opentelemetry"
	"github.com/penny-vault/pv-forecast/tradecron"
)

// Comparison is everything a report needs about one pipeline run
type Comparison struct {
	ID          uuid.UUID
	Symbol      string
	Series      *data.PriceSeries
	Split       *Split
	Results     []Result
	Scores      []ScoreRecord
	GeneratedAt time.Time
}

// Dates returns the dates the forecasts are aligned with
func (c *Comparison) Dates() []time.Time {
	return c.Split.Dates()
}

// Actuals returns the observed closes the forecasts are scored against
func (c *Comparison) Actuals() []float64 {
	return c.Split.Actuals()
}

// Prediction is an out-of-sample forecast of the trading days after a series
type Prediction struct {
	Symbol    string
	Model     string
	LastDate  time.Time
	LastClose float64
	Dates     []time.Time
	Values    []float64
	Elapsed   time.Duration
}

// Pipeline runs a set of adapters over a series
type Pipeline struct {
	Settings *Settings
	Adapters []Adapter
}

// NewPipeline builds the adapters listed in settings (all registered models
// when the list is empty)
func NewPipeline(settings *Settings) (*Pipeline, error) {
	adapters, err := Adapters(settings, settings.Forecast.Models...)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Settings: settings,
		Adapters: adapters,
	}, nil
}

// Compare splits series, runs every adapter concurrently on the split and
// scores the results once all of them have finished. Only a series too short
// to split is an error; adapter failures are reported in the results.
func (p *Pipeline) Compare(ctx context.Context, series *data.PriceSeries) (*Comparison, error) {
	cfg := p.Settings.Forecast
	ctx, span := opentelemetry.Tracer().Start(ctx, "forecast.Compare")
	defer span.End()

	split, err := SplitSeries(series, cfg.TrainRatio, cfg.MaxHorizon)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "split failed")
		return nil, err
	}

	subLog := log.With().Str("Symbol", series.Symbol).Int("Train", split.Train.Len()).Int("Horizon", split.Horizon).Logger()
	subLog.Info().Int("Models", len(p.Adapters)).Msg("running model comparison")

	in := split.Input()
	results := make([]Result, len(p.Adapters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Parallelism, 1))
	for idx, adapter := range p.Adapters {
		g.Go(func() error {
			actx, aspan := opentelemetry.Tracer().Start(gctx, "forecast.Adapter")
			defer aspan.End()
			aspan.SetAttributes(attribute.String("model", adapter.Name()), attribute.Int("horizon", in.Horizon))

			res := RunAdapter(actx, adapter, in, cfg.Timeout)
			if !res.OK() {
				aspan.RecordError(res.Err)
				aspan.SetStatus(codes.Error, res.Outcome())
			}

			metrics.Default().RecordAdapter(res.Model, res.Outcome(), res.Elapsed)
			results[idx] = res
			return nil
		})
	}

	// workers never return errors; failures live in the results
	if err := g.Wait(); err != nil {
		return nil, err
	}

	comparison := &Comparison{
		ID:          uuid.New(),
		Symbol:      series.Symbol,
		Series:      series,
		Split:       split,
		Results:     results,
		Scores:      Score(results, split.Actuals()),
		GeneratedAt: time.Now(),
	}

	for _, s := range comparison.Scores {
		subLog.Debug().Str("Model", s.Model).Float64("RMSE", s.RMSE).Msg("model scored")
	}
	metrics.Default().RecordComparison()
	span.SetAttributes(attribute.String("comparison.id", comparison.ID.String()))

	return comparison, nil
}

// Predict fits the model named by shortcode on the whole series and forecasts
// the next `days` trading days
func (p *Pipeline) Predict(ctx context.Context, series *data.PriceSeries, shortcode string, days int, ms *tradecron.MarketStatus) (*Prediction, error) {
	ctx, span := opentelemetry.Tracer().Start(ctx, "forecast.Predict")
	defer span.End()

	if days < 1 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", ErrInvalidConfig, days)
	}
	if series == nil || series.Len() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 observations", ErrInsufficientData)
	}

	info, err := Lookup(shortcode)
	if err != nil {
		return nil, err
	}
	adapter := info.Factory(p.Settings.ForPrediction())
	span.SetAttributes(attribute.String("model", adapter.Name()), attribute.Int("days", days))

	res := RunAdapter(ctx, adapter, Input{Train: series.Values(), Horizon: days}, p.Settings.Forecast.Timeout)
	metrics.Default().RecordAdapter(res.Model, res.Outcome(), res.Elapsed)
	if !res.OK() {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Outcome())
		return nil, res.Err
	}

	last := series.Len() - 1
	return &Prediction{
		Symbol:    series.Symbol,
		Model:     adapter.Name(),
		LastDate:  series.Dates[last],
		LastClose: series.Close[last],
		Dates:     ms.TradingDaysAfter(series.LastDate(), days),
		Values:    res.Values,
		Elapsed:   res.Elapsed,
	}, nil
}
