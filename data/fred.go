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
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	imports "github.com/rocketlaunchr/dataframe-go/imports"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/pv-forecast/common"
	"github.com/penny-vault/pv-forecast/observability/opentelemetry"
)

var fredURL = "https://fred.stlouisfed.org"

// FRED has used both header names for the date column
var fredDateColumns = []string{"observation_date", common.DateIdx}

type fred struct {
	client *http.Client
}

// NewFred Create a new Fred data provider
func NewFred() *fred {
	return &fred{
		client: httpClient,
	}
}

func (f *fred) Name() string {
	return ProviderFred
}

// FetchDaily downloads a FRED series as CSV. Missing values (".") are skipped.
func (f *fred) FetchDaily(ctx context.Context, symbol string, begin, end time.Time) ([]Observation, error) {
	ctx, span := opentelemetry.Tracer().Start(ctx, "fred.FetchDaily")
	defer span.End()

	subLog := log.With().Str("Series", symbol).Time("Begin", begin).Time("End", end).Logger()

	url := fmt.Sprintf("%s/graph/fredgraph.csv?mode=fred&id=%s&cosd=%s&coed=%s&fq=Daily&fam=avg", fredURL, symbol, begin.Format("2006-01-02"), end.Format("2006-01-02"))
	span.SetAttributes(attribute.String("Url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fred http request failed")
		subLog.Error().Err(err).Msg("fred http request failed")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, "fred returned invalid response code")
		subLog.Error().Int("HTTPResponseStatusCode", resp.StatusCode).Msg("fred returned invalid response code")
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatusCode, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	tz := common.GetTimezone()
	dateConverter := imports.Converter{
		ConcreteType: time.Time{},
		ConverterFunc: func(in interface{}) (interface{}, error) {
			return time.ParseInLocation("2006-01-02", in.(string), tz)
		},
	}

	dictate := map[string]interface{}{
		symbol: imports.Converter{
			ConcreteType: float64(0),
			ConverterFunc: func(in interface{}) (interface{}, error) {
				v, err := strconv.ParseFloat(in.(string), 64)
				if err != nil {
					return math.NaN(), nil
				}
				return v, nil
			},
		},
	}
	for _, col := range fredDateColumns {
		dictate[col] = dateConverter
	}

	df, err := imports.LoadFromCSV(ctx, bytes.NewReader(body), imports.CSVLoadOptions{
		DictateDataType: dictate,
	})
	if err != nil {
		span.RecordError(err)
		subLog.Error().Err(err).Msg("could not parse fred csv")
		return nil, err
	}

	return fredObservations(df, symbol)
}

func fredObservations(df *dataframe.DataFrame, symbol string) ([]Observation, error) {
	if df == nil {
		return nil, ErrNoData
	}

	dateIdx := -1
	for _, col := range fredDateColumns {
		if idx, err := df.NameToColumn(col); err == nil {
			dateIdx = idx
			break
		}
	}

	valIdx, err := df.NameToColumn(symbol)
	if dateIdx == -1 || err != nil {
		return nil, fmt.Errorf("%w: unexpected fred columns %v", ErrNoData, df.Names())
	}

	nrows := df.NRows()
	obs := make([]Observation, 0, nrows)
	for row := 0; row < nrows; row++ {
		dt, ok := df.Series[dateIdx].Value(row).(time.Time)
		if !ok {
			continue
		}

		var val float64
		switch v := df.Series[valIdx].Value(row).(type) {
		case float64:
			val = v
		case *float64:
			if v == nil {
				continue
			}
			val = *v
		default:
			continue
		}

		if math.IsNaN(val) {
			continue
		}

		obs = append(obs, Observation{Date: dt, Value: val})
	}

	return obs, nil
}
