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

package data

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/pv-forecast/observability/opentelemetry"
)

var yahooAPI = "https://query1.finance.yahoo.com"

type yahoo struct {
	client *http.Client
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// NewYahoo creates a provider for the public Yahoo Finance chart API
func NewYahoo() *yahoo {
	return &yahoo{
		client: httpClient,
	}
}

func (y *yahoo) Name() string {
	return ProviderYahoo
}

// FetchDaily returns daily closes, preferring the split and dividend adjusted
// close when Yahoo provides it. Null bars (holidays, halts) are skipped.
func (y *yahoo) FetchDaily(ctx context.Context, symbol string, begin, end time.Time) ([]Observation, error) {
	ctx, span := opentelemetry.Tracer().Start(ctx, "yahoo.FetchDaily")
	defer span.End()

	subLog := log.With().Str("Symbol", symbol).Time("Begin", begin).Time("End", end).Logger()

	// period2 is exclusive
	u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=history&includeAdjustedClose=true",
		yahooAPI, url.PathEscape(symbol), begin.Unix(), end.AddDate(0, 0, 1).Unix())
	span.SetAttributes(
		attribute.String("Url", u),
		attribute.String("Symbol", symbol),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		span.RecordError(err)
		msg := "yahoo http request failed"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Msg(msg)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		subLog.Error().Err(err).Msg("could not read yahoo body")
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		span.SetStatus(codes.Error, "symbol not found")
		subLog.Warn().Int("HTTPResponseStatusCode", resp.StatusCode).Msg("yahoo does not know symbol")
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	if resp.StatusCode >= 400 {
		span.SetAttributes(attribute.Int("StatusCode", resp.StatusCode))
		msg := "yahoo returned invalid response code"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Int("HTTPResponseStatusCode", resp.StatusCode).Msg(msg)
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatusCode, resp.StatusCode)
	}

	var chart yahooChartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		span.RecordError(err)
		msg := "could not unmarshal json"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Bytes("Body", body).Msg(msg)
		return nil, err
	}

	if chart.Chart.Error != nil {
		subLog.Warn().Str("Code", chart.Chart.Error.Code).Str("Description", chart.Chart.Error.Description).Msg("yahoo api error")
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, chart.Chart.Error.Description)
	}

	if len(chart.Chart.Result) == 0 {
		return nil, ErrNoData
	}

	result := chart.Chart.Result[0]
	closes := []*float64{}
	if len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) == len(result.Timestamp) {
		closes = result.Indicators.AdjClose[0].AdjClose
	} else if len(result.Indicators.Quote) > 0 && len(result.Indicators.Quote[0].Close) == len(result.Timestamp) {
		closes = result.Indicators.Quote[0].Close
	}

	obs := make([]Observation, 0, len(closes))
	for idx, val := range closes {
		if val == nil {
			continue
		}
		obs = append(obs, Observation{
			Date:  time.Unix(result.Timestamp[idx], 0),
			Value: *val,
		})
	}

	subLog.Debug().Int("NumObservations", len(obs)).Msg("loaded yahoo chart")
	return obs, nil
}
