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
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-forecast/capm"
	"github.com/penny-vault/pv-forecast/data"
	"github.com/penny-vault/pv-forecast/forecast"
	"github.com/penny-vault/pv-forecast/portfolio"
	"github.com/penny-vault/pv-forecast/tradecron"
)

// Handler serves the JSON API. Every request shares the data manager so
// concurrent requests for the same prices are fetched once.
type Handler struct {
	Manager  *data.Manager
	Settings *forecast.Settings
	Market   *tradecron.MarketStatus
}

// New creates a handler; a nil market status uses regular NYSE hours
func New(manager *data.Manager, settings *forecast.Settings, market *tradecron.MarketStatus) *Handler {
	if market == nil {
		market = tradecron.NewMarketStatus(&tradecron.RegularHours)
	}
	return &Handler{
		Manager:  manager,
		Settings: settings,
		Market:   market,
	}
}

// ErrorHandler converts errors returned by handlers into an ErrorResponse
// with a status code derived from the error
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, resp := classify(err)
	return c.Status(status).JSON(resp)
}

func classify(err error) (int, *ErrorResponse) {
	resp := &ErrorResponse{
		Status:  "error",
		Message: err.Error(),
	}

	var reqErr *requestError
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &reqErr):
		resp.Errors = reqErr.Errors
		return fiber.StatusBadRequest, resp
	case errors.As(err, &fiberErr):
		return fiberErr.Code, resp
	case errors.Is(err, data.ErrDataUnavailable):
		return fiber.StatusNotFound, resp
	case errors.Is(err, forecast.ErrUnknownModel):
		return fiber.StatusNotFound, resp
	case errors.Is(err, forecast.ErrInsufficientData),
		errors.Is(err, capm.ErrNoOverlap),
		errors.Is(err, capm.ErrFlatBenchmark),
		errors.Is(err, portfolio.ErrNoCommonHistory):
		return fiber.StatusUnprocessableEntity, resp
	case errors.Is(err, forecast.ErrInvalidConfig),
		errors.Is(err, capm.ErrInvalidLookback),
		errors.Is(err, portfolio.ErrNoTickers),
		errors.Is(err, portfolio.ErrInvalidRange):
		return fiber.StatusBadRequest, resp
	case errors.Is(err, forecast.ErrTimeout), errors.Is(err, forecast.ErrModelFit):
		return fiber.StatusUnprocessableEntity, resp
	default:
		log.Error().Err(err).Msg("unhandled API error")
		resp.Message = "internal server error"
		return fiber.StatusInternalServerError, resp
	}
}
