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

package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// glorotUniform draws a rows x cols matrix from U(-limit, limit) with
// limit = sqrt(6 / (rows + cols))
func glorotUniform(rows, cols int, rng *rand.Rand) *mat.Dense {
	limit := math.Sqrt(6 / float64(rows+cols))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
	return mat.NewDense(rows, cols, data)
}

// orthogonal returns a rows x cols matrix whose rows are orthonormal
// (rows <= cols), computed from the QR factorization of a gaussian matrix
func orthogonal(rows, cols int, rng *rand.Rand) *mat.Dense {
	data := make([]float64, cols*rows)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	a := mat.NewDense(cols, rows, data)

	var qr mat.QR
	qr.Factorize(a)

	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)

	out := mat.NewDense(rows, cols, nil)
	for j := 0; j < rows; j++ {
		sign := 1.0
		if r.At(j, j) < 0 {
			sign = -1
		}
		for i := 0; i < cols; i++ {
			out.Set(j, i, q.At(i, j)*sign)
		}
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
