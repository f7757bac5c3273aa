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

package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-forecast/forecast"
)

// CompareQuery selects the lookback of a model comparison
type CompareQuery struct {
	Years int `query:"years" default:"2" validate:"min=1,max=5"`
}

// PredictQuery selects the model, horizon and lookback of a prediction
type PredictQuery struct {
	Model string `query:"model" default:"arima" validate:"required,max=32"`
	Days  int    `query:"days" default:"30" validate:"min=1,max=365"`
	Years int    `query:"years" default:"2" validate:"min=1,max=5"`
}

// Compare runs every configured model over the ticker's history and scores
// them against the held-out tail
func (h *Handler) Compare(c *fiber.Ctx) error {
	var q CompareQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}

	ticker := c.Params("ticker")
	ctx := c.UserContext()

	series, err := h.Manager.LoadLookback(ctx, ticker, q.Years)
	if err != nil {
		return err
	}

	pipeline, err := forecast.NewPipeline(h.Settings)
	if err != nil {
		return err
	}

	comparison, err := pipeline.Compare(ctx, series)
	if err != nil {
		return err
	}

	log.Debug().Str("Ticker", series.Symbol).Str("ComparisonID", comparison.ID.String()).Msg("comparison finished")
	return c.JSON(forecast.NewComparisonJSON(comparison))
}

// Predict forecasts the trading days after the last available close
func (h *Handler) Predict(c *fiber.Ctx) error {
	var q PredictQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}

	ctx := c.UserContext()

	// fail fast on unknown models before downloading anything
	if _, err := forecast.Lookup(q.Model); err != nil {
		return err
	}

	series, err := h.Manager.LoadLookback(ctx, c.Params("ticker"), q.Years)
	if err != nil {
		return err
	}

	pipeline := &forecast.Pipeline{Settings: h.Settings}
	prediction, err := pipeline.Predict(ctx, series, q.Model, q.Days, h.Market)
	if err != nil {
		return err
	}

	return c.JSON(forecast.NewPredictionJSON(prediction))
}
