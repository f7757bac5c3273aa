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
	"time"

	"github.com/penny-vault/pv-forecast/common"
)

type MarketStatus struct {
	marketHours *MarketHours
	tz          *time.Location
}

func NewMarketStatus(hours *MarketHours) *MarketStatus {
	return &MarketStatus{
		marketHours: hours,
		tz:          common.GetTimezone(),
	}
}

// EarlyClose returns close time of an early close market day, e.g. 1300; 0 if
// the market closes at the regular time
func (ms *MarketStatus) EarlyClose(t time.Time) int {
	closeTime, ok := holidayEntry(t.In(ms.tz))
	if !ok {
		return 0
	}
	return closeTime
}

// IsMarketHoliday returns true if the exchange is closed all day on t
func (ms *MarketStatus) IsMarketHoliday(t time.Time) bool {
	closeTime, ok := holidayEntry(t.In(ms.tz))
	return ok && closeTime == closed
}

// IsMarketDay returns true if the specified date is a valid trading day
// (i.e. not a market holiday or weekend)
func (ms *MarketStatus) IsMarketDay(t time.Time) bool {
	t = t.In(ms.tz)
	if !isWeekday(t) {
		return false
	}
	return !ms.IsMarketHoliday(t)
}

// IsMarketOpen returns true if the specified time is during market hours
func (ms *MarketStatus) IsMarketOpen(t time.Time) bool {
	t = t.In(ms.tz)
	if !ms.IsMarketDay(t) {
		return false
	}

	closeTime := ms.marketHours.Close
	if earlyClose := ms.EarlyClose(t); earlyClose != 0 {
		closeTime = earlyClose
	}

	timeOfDay := t.Hour()*100 + t.Minute()
	return timeOfDay >= ms.marketHours.Open && timeOfDay <= closeTime
}

// NextTradingDay returns midnight of the first trading day strictly after t
func (ms *MarketStatus) NextTradingDay(t time.Time) time.Time {
	t = t.In(ms.tz)
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, ms.tz).AddDate(0, 0, 1)
	for !ms.IsMarketDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// TradingDaysAfter returns the n trading days that follow t
func (ms *MarketStatus) TradingDaysAfter(t time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)
	for len(days) < n {
		t = ms.NextTradingDay(t)
		days = append(days, t)
	}
	return days
}

// LastTradingDayOfMonth returns the last trading day of the month containing t
func (ms *MarketStatus) LastTradingDayOfMonth(t time.Time) time.Time {
	t = t.In(ms.tz)
	d := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, ms.tz)
	for !ms.IsMarketDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
