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

package dataframe

import (
	"math"
	"sort"
	"time"
)

// Map holds one dataframe per key, e.g. one price column per ticker
type Map map[string]*DataFrame

// DataFrame merges the dataframes of the requested keys into a single frame
// in the given order. Keys missing from the map are skipped.
func (dfMap Map) DataFrame(keys ...string) *DataFrame {
	dfs := make([]*DataFrame, 0, len(keys))
	for _, k := range keys {
		if df, ok := dfMap[k]; ok {
			dfs = append(dfs, df)
		}
	}
	return Merge(dfs...)
}

// Merge outer joins the dataframes on their dates. Columns keep the order of
// the arguments and rows missing from a frame are filled with NaN.
func Merge(dfs ...*DataFrame) *DataFrame {
	seen := make(map[int64]time.Time)
	for _, df := range dfs {
		for _, dt := range df.Dates {
			seen[dt.UnixNano()] = dt
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for _, dt := range seen {
		dates = append(dates, dt)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rowIdx := make(map[int64]int, len(dates))
	for idx, dt := range dates {
		rowIdx[dt.UnixNano()] = idx
	}

	merged := &DataFrame{
		Dates:    dates,
		ColNames: []string{},
		Vals:     [][]float64{},
	}

	for _, df := range dfs {
		for colIdx, colName := range df.ColNames {
			col := make([]float64, len(dates))
			for ii := range col {
				col[ii] = math.NaN()
			}
			for ii, dt := range df.Dates {
				col[rowIdx[dt.UnixNano()]] = df.Vals[colIdx][ii]
			}
			merged.ColNames = append(merged.ColNames, colName)
			merged.Vals = append(merged.Vals, col)
		}
	}

	return merged
}
