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
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Dense is a fully connected linear layer y = xW + b
type Dense struct {
	In  int
	Out int

	W *mat.Dense // In x Out
	B *mat.Dense // 1 x Out

	dW *mat.Dense
	dB *mat.Dense
	x  *mat.Dense
}

func NewDense(in, out int, rng *rand.Rand) *Dense {
	return &Dense{
		In:  in,
		Out: out,
		W:   glorotUniform(in, out, rng),
		B:   mat.NewDense(1, out, nil),
		dW:  mat.NewDense(in, out, nil),
		dB:  mat.NewDense(1, out, nil),
	}
}

// Forward computes the layer output for a batch x (batch x In)
func (d *Dense) Forward(x *mat.Dense) *mat.Dense {
	d.x = x
	batch, _ := x.Dims()
	y := mat.NewDense(batch, d.Out, nil)
	y.Mul(x, d.W)

	bias := d.B.RawMatrix().Data
	raw := y.RawMatrix().Data
	for r := 0; r < batch; r++ {
		for c := 0; c < d.Out; c++ {
			raw[r*d.Out+c] += bias[c]
		}
	}
	return y
}

// Backward accumulates parameter gradients for dy and returns dL/dx
func (d *Dense) Backward(dy *mat.Dense) *mat.Dense {
	var gw mat.Dense
	gw.Mul(d.x.T(), dy)
	d.dW.Add(d.dW, &gw)

	batch, _ := dy.Dims()
	grad := dy.RawMatrix().Data
	db := d.dB.RawMatrix().Data
	for r := 0; r < batch; r++ {
		for c := 0; c < d.Out; c++ {
			db[c] += grad[r*d.Out+c]
		}
	}

	dx := mat.NewDense(batch, d.In, nil)
	dx.Mul(dy, d.W.T())
	return dx
}

func (d *Dense) params() []Param {
	return []Param{
		{Value: d.W.RawMatrix().Data, Grad: d.dW.RawMatrix().Data},
		{Value: d.B.RawMatrix().Data, Grad: d.dB.RawMatrix().Data},
	}
}

func (d *Dense) zeroGrad() {
	d.dW.Zero()
	d.dB.Zero()
}
