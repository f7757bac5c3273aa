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
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderYahoo  = "yahoo"
	ProviderTiingo = "tiingo"
	ProviderFred   = "fred"
)

// RiskFreeSeries is the FRED 3-month treasury bill secondary market rate
const RiskFreeSeries = "DTB3"

// Provider fetches daily observations for a symbol over [begin, end]
type Provider interface {
	Name() string
	FetchDaily(ctx context.Context, symbol string, begin, end time.Time) ([]Observation, error)
}

// httpClient is shared by all providers. It leaves Transport unset so the
// default transport (and anything that replaces it in tests) is used.
var httpClient = &http.Client{
	Timeout: 30 * time.Second,
}

// NewProvider builds the named price provider, reading credentials from viper
func NewProvider(name string) (Provider, error) {
	switch strings.ToLower(name) {
	case "", ProviderYahoo:
		return NewYahoo(), nil
	case ProviderTiingo:
		token := viper.GetString("tiingo.token")
		if token == "" {
			return nil, ErrMissingToken
		}
		return NewTiingo(token), nil
	case ProviderFred:
		return NewFred(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
}
