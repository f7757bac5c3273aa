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

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AddScalar adds the scalar value to all columns in dataframe df and returns a new dataframe
func (df *DataFrame) AddScalar(scalar float64) *DataFrame {
	df = df.Copy()

	for colIdx := range df.ColNames {
		floats.AddConst(scalar, df.Vals[colIdx])
	}
	return df
}

// MulScalar multiplies all columns in dataframe df by the scalar and returns a new dataframe
func (df *DataFrame) MulScalar(scalar float64) *DataFrame {
	df = df.Copy()

	for colIdx := range df.ColNames {
		floats.Scale(scalar, df.Vals[colIdx])
	}
	return df
}

// PctChange computes the percent change from the previous row of every
// column and returns a new dataframe; the first row is NaN
func (df *DataFrame) PctChange() *DataFrame {
	df2 := df.Copy()

	for colIdx, col := range df.Vals {
		for rowIdx := range col {
			if rowIdx == 0 {
				df2.Vals[colIdx][rowIdx] = math.NaN()
				continue
			}
			df2.Vals[colIdx][rowIdx] = col[rowIdx]/col[rowIdx-1] - 1
		}
	}

	return df2
}

// CumProd computes the cumulative product of every column and returns a new dataframe
func (df *DataFrame) CumProd() *DataFrame {
	df2 := df.Copy()

	for colIdx := range df2.Vals {
		if len(df2.Vals[colIdx]) > 0 {
			floats.CumProd(df2.Vals[colIdx], df.Vals[colIdx])
		}
	}

	return df2
}

// Mean returns the mean of each column
func (df *DataFrame) Mean() []float64 {
	res := make([]float64, len(df.ColNames))
	for colIdx, col := range df.Vals {
		if len(col) == 0 {
			res[colIdx] = math.NaN()
			continue
		}
		res[colIdx] = stat.Mean(col, nil)
	}
	return res
}

// Corr returns the pairwise pearson correlation matrix of the columns;
// corr[i][j] is the correlation of column i with column j
func (df *DataFrame) Corr() ([][]float64, error) {
	if df.Len() < 2 {
		return nil, ErrTooFewRows
	}

	n := len(df.ColNames)
	corr := make([][]float64, n)
	for ii := range corr {
		corr[ii] = make([]float64, n)
	}

	for ii := 0; ii < n; ii++ {
		corr[ii][ii] = 1
		for jj := ii + 1; jj < n; jj++ {
			c := stat.Correlation(df.Vals[ii], df.Vals[jj], nil)
			corr[ii][jj] = c
			corr[jj][ii] = c
		}
	}

	return corr, nil
}

// Covariance returns the sample covariance of two columns
func (df *DataFrame) Covariance(a, b string) (float64, error) {
	x, err := df.Column(a)
	if err != nil {
		return math.NaN(), err
	}
	y, err := df.Column(b)
	if err != nil {
		return math.NaN(), err
	}
	if df.Len() < 2 {
		return math.NaN(), ErrTooFewRows
	}
	return stat.Covariance(x, y, nil), nil
}
