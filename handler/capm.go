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

	"github.com/penny-vault/pv-forecast/capm"
)

type CAPMQuery struct {
	Years     int    `query:"years" default:"2" validate:"min=1,max=5"`
	Benchmark string `query:"benchmark" default:"^GSPC" validate:"max=16"`
}

// CAPMResponse reports rates as annual decimals
type CAPMResponse struct {
	Symbol         string  `json:"symbol"`
	Benchmark      string  `json:"benchmark"`
	Beta           float64 `json:"beta"`
	RiskFree       float64 `json:"riskFree"`
	MarketReturn   float64 `json:"marketReturn"`
	ExpectedReturn float64 `json:"expectedReturn"`
	Observations   int     `json:"observations"`
	Start          string  `json:"start"`
	End            string  `json:"end"`
}

// CAPM estimates the ticker's beta against a benchmark and its expected return
func (h *Handler) CAPM(c *fiber.Ctx) error {
	var q CAPMQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}

	res, err := capm.Analyze(c.UserContext(), h.Manager, c.Params("ticker"), q.Benchmark, q.Years)
	if err != nil {
		return err
	}

	return c.JSON(CAPMResponse{
		Symbol:         res.Symbol,
		Benchmark:      res.Benchmark,
		Beta:           res.Beta,
		RiskFree:       res.RiskFree,
		MarketReturn:   res.MarketReturn,
		ExpectedReturn: res.ExpectedReturn,
		Observations:   res.Observations,
		Start:          res.Start.Format("2006-01-02"),
		End:            res.End.Format("2006-01-02"),
	})
}
