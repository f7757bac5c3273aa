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

package tradecron

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	AtOpen  = "@open"
	AtClose = "@close"
)

// maxIterations bounds the search for the next market-aware trigger
const maxIterations = 5000

type MarketHours struct {
	Open  int
	Close int
}

var (
	RegularHours = MarketHours{
		Open:  930,
		Close: 1600,
	}
	ExtendedHours = MarketHours{
		Open:  700,
		Close: 2000,
	}
)

type TradeCron struct {
	Schedule       cron.Schedule
	ScheduleString string
	TimeSpec       string
	TimeFlag       string
	marketStatus   *MarketStatus
}

// New parses a market-aware cron spec. The standard five CRON fields are
// supported and only fire while the market is open; the @open and @close
// modifiers replace the minute and hour fields with offsets from the market
// open and close.
//
// Examples:
//   - every 5 minutes: */5 * * * *
//   - 30 minutes after the close: @close 30
//   - market open on tuesdays: @open * * * * 2
func New(cronSpec string, hours MarketHours) (*TradeCron, error) {
	specParser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	tokens := strings.Fields(expandBriefFormat(strings.TrimSpace(cronSpec)))

	timeSpecTokens := make([]string, 0, 5)
	var timeFlag string
	for _, token := range tokens {
		if !strings.HasPrefix(token, "@") {
			timeSpecTokens = append(timeSpecTokens, token)
			continue
		}

		if token != AtOpen && token != AtClose {
			return nil, ErrUnknownModifier
		}
		if timeFlag != "" {
			return nil, ErrConflictingModifiers
		}
		timeFlag = token
	}

	var (
		timeSpec string
		err      error
	)

	switch timeFlag {
	case AtOpen:
		timeSpec, err = parseTimeRelativeTo(timeSpecTokens, hours.Open/100, hours.Open%100)
	case AtClose:
		timeSpec, err = parseTimeRelativeTo(timeSpecTokens, hours.Close/100, hours.Close%100)
	default:
		timeSpec = strings.Join(timeSpecTokens, " ")
	}
	if err != nil {
		return nil, err
	}

	schedule, err := specParser.Parse(timeSpec)
	if err != nil {
		log.Error().Err(err).Str("TimeSpec", timeSpec).Str("TradeCronSpec", cronSpec).Msg("robfig/cron could not parse timespec")
		return nil, err
	}

	return &TradeCron{
		Schedule:       schedule,
		ScheduleString: cronSpec,
		TimeSpec:       timeSpec,
		TimeFlag:       timeFlag,
		marketStatus:   NewMarketStatus(&hours),
	}, nil
}

// IsTradeDay reports whether the schedule fires on the calendar day of forDate
func (tc *TradeCron) IsTradeDay(forDate time.Time) bool {
	forDate = forDate.In(tc.marketStatus.tz)
	dayStart := time.Date(forDate.Year(), forDate.Month(), forDate.Day(), 0, 0, 0, 0, tc.marketStatus.tz)
	next := tc.Next(dayStart.Add(-time.Nanosecond))
	return next.Year() == dayStart.Year() && next.YearDay() == dayStart.YearDay()
}

// Next returns the next time after forDate the schedule fires while the market is open
func (tc *TradeCron) Next(forDate time.Time) time.Time {
	checkDate := forDate.In(tc.marketStatus.tz)
	for ii := 0; ii < maxIterations; ii++ {
		checkDate = tc.Schedule.Next(checkDate)
		if tc.isActive(checkDate) {
			return checkDate
		}
	}

	log.Panic().Str("TimeSpec", tc.TimeSpec).Msg("tradecron schedule never fires while the market is open")
	return time.Time{}
}

// isActive lets @close schedules fire on any market day, including after the bell
func (tc *TradeCron) isActive(t time.Time) bool {
	if tc.TimeFlag == AtClose {
		return tc.marketStatus.IsMarketDay(t)
	}
	return tc.marketStatus.IsMarketOpen(t)
}

// MarketStatus exposes the calendar the schedule is evaluated against
func (tc *TradeCron) MarketStatus() *MarketStatus {
	return tc.marketStatus
}
