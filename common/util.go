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

package common

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/spf13/viper"
)

const (
	DateIdx = "DATE"
)

var (
	nycOnce sync.Once
	nyc     *time.Location
)

// NormalizeSymbols upper-cases and trims every symbol, dropping empty entries
func NormalizeSymbols(arr []string) []string {
	res := make([]string, 0, len(arr))
	for _, s := range arr {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			res = append(res, s)
		}
	}
	return res
}

// SetupLogging configures the global zerolog logger from the log.* viper keys
func SetupLogging() {
	level := strings.ToLower(viper.GetString("log.level"))

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	var out io.Writer
	output := viper.GetString("log.output")
	switch output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		// the file handle lives for the rest of the process
		fh, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			log.Panic().Err(err).Str("Output", output).Msg("could not open log file")
		}
		out = fh
	}

	if viper.GetBool("log.pretty") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	log.Logger = log.Output(out)
	if viper.GetBool("log.report_caller") {
		log.Logger = log.With().Caller().Logger()
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	log.Debug().Str("Level", zerolog.GlobalLevel().String()).Msg("logging configured")
}

// GetTimezone returns the America/New_York location all market dates are expressed in
func GetTimezone() *time.Location {
	nycOnce.Do(func() {
		var err error
		nyc, err = time.LoadLocation("America/New_York") // New York is the reference time
		if err != nil {
			log.Panic().Err(err).Msg("could not load timezone")
		}
	})
	return nyc
}

// Midnight truncates t to midnight of the same calendar day in New York
func Midnight(t time.Time) time.Time {
	tz := GetTimezone()
	t = t.In(tz)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, tz)
}

// LookbackRange returns the [begin, end] range covering `years` calendar years
// ending today; begin falls on the same month and day `years` earlier
func LookbackRange(now time.Time, years int) (time.Time, time.Time) {
	end := Midnight(now)
	begin := time.Date(end.Year()-years, end.Month(), end.Day(), 0, 0, 0, 0, end.Location())
	return begin, end
}
