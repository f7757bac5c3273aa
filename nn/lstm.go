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

// LSTM is a single recurrent layer. Gate pre-activations are laid out in the
// column blocks [input | forget | candidate | output], each Hidden wide.
type LSTM struct {
	InputSize       int
	Hidden          int
	ReturnSequences bool

	Wx *mat.Dense // InputSize x 4*Hidden
	Wh *mat.Dense // Hidden x 4*Hidden
	B  *mat.Dense // 1 x 4*Hidden

	dWx *mat.Dense
	dWh *mat.Dense
	dB  *mat.Dense

	steps []lstmStep
}

// lstmStep caches the activations of one time step for back propagation
type lstmStep struct {
	x     *mat.Dense
	hPrev *mat.Dense
	cPrev []float64

	i, f, g, o []float64
	tanhC      []float64
}

// NewLSTM creates a layer with glorot input weights, orthogonal recurrent
// weights and the forget gate bias set to one
func NewLSTM(inputSize, hidden int, returnSequences bool, rng *rand.Rand) *LSTM {
	bias := make([]float64, 4*hidden)
	for k := hidden; k < 2*hidden; k++ {
		bias[k] = 1
	}

	return &LSTM{
		InputSize:       inputSize,
		Hidden:          hidden,
		ReturnSequences: returnSequences,
		Wx:              glorotUniform(inputSize, 4*hidden, rng),
		Wh:              orthogonal(hidden, 4*hidden, rng),
		B:               mat.NewDense(1, 4*hidden, bias),
		dWx:             mat.NewDense(inputSize, 4*hidden, nil),
		dWh:             mat.NewDense(hidden, 4*hidden, nil),
		dB:              mat.NewDense(1, 4*hidden, nil),
	}
}

// Forward runs the layer over xs, one batch x InputSize matrix per time step.
// It returns the hidden state of every step, or only the last one when
// ReturnSequences is false.
func (l *LSTM) Forward(xs []*mat.Dense) []*mat.Dense {
	batch, _ := xs[0].Dims()
	H := l.Hidden

	h := mat.NewDense(batch, H, nil)
	c := make([]float64, batch*H)
	z := mat.NewDense(batch, 4*H, nil)
	zh := mat.NewDense(batch, 4*H, nil)
	bias := l.B.RawMatrix().Data

	l.steps = l.steps[:0]
	out := make([]*mat.Dense, 0, len(xs))

	for _, x := range xs {
		z.Mul(x, l.Wx)
		zh.Mul(h, l.Wh)
		z.Add(z, zh)
		zraw := z.RawMatrix().Data

		st := lstmStep{
			x:     x,
			hPrev: h,
			cPrev: c,
			i:     make([]float64, batch*H),
			f:     make([]float64, batch*H),
			g:     make([]float64, batch*H),
			o:     make([]float64, batch*H),
			tanhC: make([]float64, batch*H),
		}

		hNext := mat.NewDense(batch, H, nil)
		hraw := hNext.RawMatrix().Data
		cNext := make([]float64, batch*H)

		for r := 0; r < batch; r++ {
			row := zraw[r*4*H : (r+1)*4*H]
			for k := 0; k < H; k++ {
				idx := r*H + k
				ig := sigmoid(row[k] + bias[k])
				fg := sigmoid(row[H+k] + bias[H+k])
				gg := math.Tanh(row[2*H+k] + bias[2*H+k])
				og := sigmoid(row[3*H+k] + bias[3*H+k])

				cv := fg*c[idx] + ig*gg
				tc := math.Tanh(cv)

				st.i[idx], st.f[idx], st.g[idx], st.o[idx] = ig, fg, gg, og
				st.tanhC[idx] = tc
				cNext[idx] = cv
				hraw[idx] = og * tc
			}
		}

		l.steps = append(l.steps, st)
		h, c = hNext, cNext
		out = append(out, h)
	}

	if !l.ReturnSequences {
		return out[len(out)-1:]
	}
	return out
}

// Backward propagates the gradient through time. douts must be aligned with
// the value returned by Forward. Parameter gradients are accumulated and the
// gradient for every input step is returned.
func (l *LSTM) Backward(douts []*mat.Dense) []*mat.Dense {
	T := len(l.steps)
	batch, _ := l.steps[0].x.Dims()
	H := l.Hidden

	dhNext := make([]float64, batch*H)
	dcNext := make([]float64, batch*H)
	dxs := make([]*mat.Dense, T)

	dz := mat.NewDense(batch, 4*H, nil)
	dzraw := dz.RawMatrix().Data
	gx := mat.NewDense(l.InputSize, 4*H, nil)
	gh := mat.NewDense(H, 4*H, nil)
	dh := mat.NewDense(batch, H, nil)
	db := l.dB.RawMatrix().Data

	for t := T - 1; t >= 0; t-- {
		st := l.steps[t]

		var upstream []float64
		switch {
		case l.ReturnSequences:
			upstream = douts[t].RawMatrix().Data
		case t == T-1:
			upstream = douts[0].RawMatrix().Data
		}

		for idx := 0; idx < batch*H; idx++ {
			r, k := idx/H, idx%H

			dhv := dhNext[idx]
			if upstream != nil {
				dhv += upstream[idx]
			}

			tc := st.tanhC[idx]
			do := dhv * tc
			dc := dcNext[idx] + dhv*st.o[idx]*(1-tc*tc)
			di := dc * st.g[idx]
			dg := dc * st.i[idx]
			df := dc * st.cPrev[idx]
			dcNext[idx] = dc * st.f[idx]

			base := r * 4 * H
			dzraw[base+k] = di * st.i[idx] * (1 - st.i[idx])
			dzraw[base+H+k] = df * st.f[idx] * (1 - st.f[idx])
			dzraw[base+2*H+k] = dg * (1 - st.g[idx]*st.g[idx])
			dzraw[base+3*H+k] = do * st.o[idx] * (1 - st.o[idx])
		}

		gx.Mul(st.x.T(), dz)
		l.dWx.Add(l.dWx, gx)
		gh.Mul(st.hPrev.T(), dz)
		l.dWh.Add(l.dWh, gh)
		for r := 0; r < batch; r++ {
			for j := 0; j < 4*H; j++ {
				db[j] += dzraw[r*4*H+j]
			}
		}

		dx := mat.NewDense(batch, l.InputSize, nil)
		dx.Mul(dz, l.Wx.T())
		dxs[t] = dx

		dh.Mul(dz, l.Wh.T())
		copy(dhNext, dh.RawMatrix().Data)
	}

	return dxs
}

func (l *LSTM) params() []Param {
	return []Param{
		{Value: l.Wx.RawMatrix().Data, Grad: l.dWx.RawMatrix().Data},
		{Value: l.Wh.RawMatrix().Data, Grad: l.dWh.RawMatrix().Data},
		{Value: l.B.RawMatrix().Data, Grad: l.dB.RawMatrix().Data},
	}
}

func (l *LSTM) zeroGrad() {
	l.dWx.Zero()
	l.dWh.Zero()
	l.dB.Zero()
}
