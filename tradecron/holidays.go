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
	"sync"
	"time"

	"github.com/penny-vault/pv-forecast/common"
)

// closed marks a full-day holiday in the holiday table; any other value is an
// early close time formatted as HHMM
const closed = 0

const earlyCloseTime = 1300

var (
	// holidays maps midnight unix timestamps to closed or an early close time
	holidays      = make(map[int64]int)
	holidayYears  = make(map[int]bool)
	holidayLocker sync.RWMutex
)

// holidayEntry returns the holiday table entry for t, computing the year on first use
func holidayEntry(t time.Time) (int, bool) {
	tz := common.GetTimezone()
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, tz)

	holidayLocker.RLock()
	loaded := holidayYears[d.Year()]
	if loaded {
		v, ok := holidays[d.Unix()]
		holidayLocker.RUnlock()
		return v, ok
	}
	holidayLocker.RUnlock()

	holidayLocker.Lock()
	defer holidayLocker.Unlock()
	if !holidayYears[d.Year()] {
		for day, closeTime := range nyseCalendar(d.Year(), tz) {
			holidays[day.Unix()] = closeTime
		}
		holidayYears[d.Year()] = true
	}

	v, ok := holidays[d.Unix()]
	return v, ok
}

// nyseCalendar computes the NYSE full holidays and early closes for a year
func nyseCalendar(year int, tz *time.Location) map[time.Time]int {
	cal := make(map[time.Time]int, 13)
	date := func(m time.Month, d int) time.Time {
		return time.Date(year, m, d, 0, 0, 0, 0, tz)
	}

	// New Year's Day falling on a Saturday is not observed on the prior Friday
	newYear := date(time.January, 1)
	switch newYear.Weekday() {
	case time.Sunday:
		cal[newYear.AddDate(0, 0, 1)] = closed
	case time.Saturday:
	default:
		cal[newYear] = closed
	}

	if year >= 1998 {
		cal[nthWeekday(year, time.January, time.Monday, 3, tz)] = closed
	}
	cal[nthWeekday(year, time.February, time.Monday, 3, tz)] = closed
	cal[easter(year, tz).AddDate(0, 0, -2)] = closed
	cal[lastWeekday(year, time.May, time.Monday, tz)] = closed
	if year >= 2022 {
		cal[observed(date(time.June, 19))] = closed
	}

	independence := date(time.July, 4)
	cal[observed(independence)] = closed
	if eve := date(time.July, 3); isWeekday(eve) && independence.Weekday() != time.Saturday {
		cal[eve] = earlyCloseTime
	}

	cal[nthWeekday(year, time.September, time.Monday, 1, tz)] = closed

	thanksgiving := nthWeekday(year, time.November, time.Thursday, 4, tz)
	cal[thanksgiving] = closed
	cal[thanksgiving.AddDate(0, 0, 1)] = earlyCloseTime

	christmas := date(time.December, 25)
	cal[observed(christmas)] = closed
	if eve := date(time.December, 24); isWeekday(eve) {
		if _, ok := cal[eve]; !ok {
			cal[eve] = earlyCloseTime
		}
	}

	return cal
}

func isWeekday(t time.Time) bool {
	return t.Weekday() != time.Saturday && t.Weekday() != time.Sunday
}

// observed shifts a Saturday holiday to Friday and a Sunday holiday to Monday
func observed(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	default:
		return t
	}
}

func nthWeekday(year int, month time.Month, wd time.Weekday, n int, tz *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, tz)
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7*(n-1))
}

func lastWeekday(year int, month time.Month, wd time.Weekday, tz *time.Location) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, tz)
	offset := (int(last.Weekday()) - int(wd) + 7) % 7
	return last.AddDate(0, 0, -offset)
}

// easter returns Easter Sunday using the anonymous Gregorian algorithm
func easter(year int, tz *time.Location) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, tz)
}
