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
	"embed"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

//go:embed models/*/*.md models/*/*.toml
var resources embed.FS

// Factory creates an adapter from the current settings
type Factory func(s *Settings) Adapter

// Argument documents one tunable model parameter
type Argument struct {
	Name        string   `json:"name" toml:"name"`
	Description string   `json:"description" toml:"description"`
	Typecode    string   `json:"typecode" toml:"typecode"`
	Default     string   `json:"default" toml:"default"`
	Advanced    bool     `json:"advanced" toml:"advanced"`
	Options     []string `json:"options,omitempty" toml:"options"`
}

// ModelInfo describes a registered model
type ModelInfo struct {
	Name            string              `json:"name" toml:"name"`
	Shortcode       string              `json:"shortcode" toml:"shortcode"`
	Family          string              `json:"family" toml:"family"`
	Description     string              `json:"description" toml:"description"`
	LongDescription string              `json:"longDescription" toml:"-"`
	Source          string              `json:"source" toml:"source"`
	Arguments       map[string]Argument `json:"arguments" toml:"arguments"`

	Factory Factory `json:"-" toml:"-"`
}

var (
	registryOnce sync.Once

	// ModelList holds every registered model in display order
	ModelList = []*ModelInfo{}

	// ModelMap indexes ModelList by shortcode
	ModelMap = make(map[string]*ModelInfo)
)

// InitializeModelMap registers the built-in models. It is safe to call more
// than once.
func InitializeModelMap() {
	registryOnce.Do(func() {
		Register("arima", func(s *Settings) Adapter { return NewARIMA(s.ARIMA) })
		Register("sarima", func(s *Settings) Adapter { return NewSARIMA(s.SARIMA) })
		Register("holtwinters", func(s *Settings) Adapter { return NewHoltWinters(s.HoltWinters) })
		Register("lstm", func(s *Settings) Adapter { return NewLSTM(s.LSTM) })
	})
}

func readResource(fn string) ([]byte, error) {
	file, err := resources.Open(fn)
	if err != nil {
		log.Error().Err(err).Str("File", fn).Msg("failed to open file")
		return nil, err
	}
	defer file.Close()

	doc, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Str("File", fn).Msg("failed to read file")
		return nil, err
	}
	return doc, nil
}

// Register loads the description and metadata embedded under models/<pkg>
// and adds the model to the registry
func Register(pkg string, factory Factory) {
	doc, err := readResource(fmt.Sprintf("models/%s/description.md", pkg))
	if err != nil {
		return
	}
	longDescription := string(doc)

	doc, err = readResource(fmt.Sprintf("models/%s/model.toml", pkg))
	if err != nil {
		return
	}

	var info ModelInfo
	if err := toml.Unmarshal(doc, &info); err != nil {
		log.Error().Err(err).Str("Model", pkg).Msg("failed to parse model metadata")
		return
	}

	info.LongDescription = longDescription
	info.Factory = factory

	ModelList = append(ModelList, &info)
	ModelMap[info.Shortcode] = &info
}

// Lookup returns the registered model for a shortcode (case insensitive)
func Lookup(shortcode string) (*ModelInfo, error) {
	InitializeModelMap()
	info, ok := ModelMap[strings.ToLower(strings.TrimSpace(shortcode))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, shortcode)
	}
	return info, nil
}

// Adapters builds adapters for the given shortcodes in order, or for every
// registered model when none are given
func Adapters(s *Settings, shortcodes ...string) ([]Adapter, error) {
	InitializeModelMap()

	if len(shortcodes) == 0 {
		out := make([]Adapter, 0, len(ModelList))
		for _, info := range ModelList {
			out = append(out, info.Factory(s))
		}
		return out, nil
	}

	out := make([]Adapter, 0, len(shortcodes))
	for _, code := range shortcodes {
		info, err := Lookup(code)
		if err != nil {
			return nil, err
		}
		out = append(out, info.Factory(s))
	}
	return out, nil
}
