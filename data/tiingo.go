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
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/pv-forecast/common"
	"github.com/penny-vault/pv-forecast/observability/opentelemetry"
)

type tiingo struct {
	apikey string
	client *http.Client
}

type tiingoJSONResponse struct {
	Date     string  `json:"date"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adjClose"`
}

var tiingoAPI = "https://api.tiingo.com"

// NewTiingo Create a new Tiingo data provider
func NewTiingo(key string) *tiingo {
	return &tiingo{
		apikey: key,
		client: httpClient,
	}
}

func (t *tiingo) Name() string {
	return ProviderTiingo
}

func (t *tiingo) FetchDaily(ctx context.Context, symbol string, begin, end time.Time) ([]Observation, error) {
	ctx, span := opentelemetry.Tracer().Start(ctx, "tiingo.FetchDaily")
	defer span.End()

	subLog := log.With().Str("Symbol", symbol).Time("Begin", begin).Time("End", end).Logger()

	// tiingo uses '-' where yahoo uses '.' for share classes
	ticker := strings.ReplaceAll(symbol, ".", "-")
	path := fmt.Sprintf("%s/tiingo/daily/%s/prices?startDate=%s&endDate=%s&resampleFreq=daily", tiingoAPI, ticker, begin.Format("2006-01-02"), end.Format("2006-01-02"))
	span.SetAttributes(
		attribute.String("Url", path),
		attribute.String("Symbol", symbol),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path+"&token="+t.apikey, nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		span.RecordError(err)
		msg := "tiingo http request failed"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Msg(msg)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		span.SetStatus(codes.Error, "symbol not found")
		subLog.Warn().Msg("tiingo does not know symbol")
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	if resp.StatusCode >= 400 {
		span.SetAttributes(attribute.Int("StatusCode", resp.StatusCode))
		msg := "tiingo returned invalid response code"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Int("HTTPResponseStatusCode", resp.StatusCode).Msg(msg)
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatusCode, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		subLog.Error().Err(err).Msg("could not read tiingo body")
		return nil, err
	}

	jsonResp := []tiingoJSONResponse{}
	if err := json.Unmarshal(body, &jsonResp); err != nil {
		span.RecordError(err)
		msg := "could not unmarshal json"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Bytes("Body", body).Msg(msg)
		return nil, err
	}

	tz := common.GetTimezone()
	obs := make([]Observation, 0, len(jsonResp))
	for _, row := range jsonResp {
		dtParts := strings.Split(row.Date, "T")
		dt, err := time.ParseInLocation("2006-01-02", dtParts[0], tz)
		if err != nil {
			subLog.Warn().Err(err).Str("DateStr", row.Date).Msg("cannot parse date string")
			continue
		}

		val := row.AdjClose
		if val == 0 {
			val = row.Close
		}
		obs = append(obs, Observation{Date: dt, Value: val})
	}

	return obs, nil
}
