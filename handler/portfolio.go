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
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/penny-vault/pv-forecast/common"
	"github.com/penny-vault/pv-forecast/portfolio"
)

type PortfolioQuery struct {
	Tickers string `query:"tickers" default:"AAPL,MSFT" validate:"max=256"`
	Start   string `query:"start" default:"2020-01-01" validate:"datetime=2006-01-02"`
	End     string `query:"end" validate:"omitempty,datetime=2006-01-02"`
}

// Portfolio analyses the daily returns of several tickers over a date range
func (h *Handler) Portfolio(c *fiber.Ctx) error {
	var q PortfolioQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}

	tz := common.GetTimezone()

	// validated above
	start, _ := time.ParseInLocation("2006-01-02", q.Start, tz)
	end := common.Midnight(h.Manager.Now())
	if q.End != "" {
		end, _ = time.ParseInLocation("2006-01-02", q.End, tz)
	}

	analysis, err := portfolio.Load(c.UserContext(), h.Manager, strings.Split(q.Tickers, ","), start, end)
	if err != nil {
		return err
	}

	return c.JSON(analysis.JSON())
}
