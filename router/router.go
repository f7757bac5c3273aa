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

package router

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/penny-vault/pv-forecast/common"
	"github.com/penny-vault/pv-forecast/handler"
	"github.com/penny-vault/pv-forecast/middleware"
)

// New creates the fiber app with JSON encoding, error mapping, CORS and
// request logging configured and every route registered. An empty
// allowOrigins disables CORS headers.
func New(h *handler.Handler, allowOrigins string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               common.ProgramName,
		DisableStartupMessage: true,
		ErrorHandler:          handler.ErrorHandler,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	if allowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: allowOrigins,
			AllowHeaders: "*",
			AllowMethods: "GET,HEAD",
		}))
	}

	app.Use(middleware.NewLogger())
	SetupRoutes(app, h)

	return app
}

// SetupRoutes registers the /v1 API and the prometheus endpoint
func SetupRoutes(app *fiber.App, h *handler.Handler) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/v1")
	api.Get("/", h.Ping)
	api.Get("/ping", h.Ping)

	// Models
	models := api.Group("/models")
	models.Get("/", h.ListModels)
	models.Get("/:shortcode", h.GetModel)

	// Forecasting
	api.Get("/compare/:ticker", h.Compare)
	api.Get("/predict/:ticker", h.Predict)

	// Analysis
	api.Get("/capm/:ticker", h.CAPM)
	api.Get("/portfolio", h.Portfolio)
}
