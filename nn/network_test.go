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
	"context"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"
)

func sine(n int) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = 0.5 + 0.4*math.Sin(float64(i)/4)
	}
	return vals
}

var _ = Describe("Network", func() {
	It("has orthonormal recurrent rows", func() {
		w := orthogonal(4, 16, rand.New(rand.NewSource(3)))
		var prod mat.Dense
		prod.Mul(w, w.T())
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				want := 0.0
				if i == j {
					want = 1
				}
				Expect(prod.At(i, j)).To(BeNumerically("~", want, 1e-9))
			}
		}
	})

	It("computes gradients that agree with finite differences", func() {
		rng := rand.New(rand.NewSource(1))
		net, err := NewNetwork(3, 2, 0.001, rng)
		Expect(err).NotTo(HaveOccurred())

		X := [][]float64{{0.1, 0.4, 0.3}, {0.9, 0.2, 0.5}}
		y := []float64{0.7, 0.1}

		pred, err := net.forward(X)
		Expect(err).NotTo(HaveOccurred())
		_, dpred := meanSquaredError(pred, y)
		net.zeroGrad()
		net.backward(dpred)

		const eps = 1e-6
		for _, p := range net.params() {
			analytic := make([]float64, len(p.Grad))
			copy(analytic, p.Grad)

			for j := range p.Value {
				orig := p.Value[j]
				p.Value[j] = orig + eps
				plus, err := net.Loss(X, y)
				Expect(err).NotTo(HaveOccurred())
				p.Value[j] = orig - eps
				minus, err := net.Loss(X, y)
				Expect(err).NotTo(HaveOccurred())
				p.Value[j] = orig

				numeric := (plus - minus) / (2 * eps)
				Expect(analytic[j]).To(BeNumerically("~", numeric, 1e-6+1e-4*math.Abs(numeric)))
			}
		}
	})

	It("reduces the training loss", func() {
		X, y := Windows(sine(120), 10)
		rng := rand.New(rand.NewSource(42))
		net, err := NewNetwork(10, 8, 0.01, rng)
		Expect(err).NotTo(HaveOccurred())

		losses, err := net.Fit(context.Background(), X, y, 30, 16, rng)
		Expect(err).NotTo(HaveOccurred())
		Expect(losses).To(HaveLen(30))
		Expect(losses[29]).To(BeNumerically("<", losses[0]))
	})

	It("is deterministic for a fixed seed", func() {
		X, y := Windows(sine(60), 8)

		run := func() []float64 {
			rng := rand.New(rand.NewSource(42))
			net, err := NewNetwork(8, 4, 0.001, rng)
			Expect(err).NotTo(HaveOccurred())
			_, err = net.Fit(context.Background(), X, y, 2, 8, rng)
			Expect(err).NotTo(HaveOccurred())
			out, err := net.Predict(X[:3])
			Expect(err).NotTo(HaveOccurred())
			return out
		}

		Expect(run()).To(Equal(run()))
	})

	It("stops training when the context is cancelled", func() {
		X, y := Windows(sine(60), 8)
		rng := rand.New(rand.NewSource(42))
		net, err := NewNetwork(8, 4, 0.001, rng)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = net.Fit(ctx, X, y, 5, 8, rng)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("rejects windows of the wrong length", func() {
		net, err := NewNetwork(4, 2, 0.001, rand.New(rand.NewSource(1)))
		Expect(err).NotTo(HaveOccurred())
		_, err = net.Predict([][]float64{{1, 2, 3}})
		Expect(err).To(MatchError(ErrSequenceLength))
	})

	It("rejects empty training sets", func() {
		net, err := NewNetwork(4, 2, 0.001, rand.New(rand.NewSource(1)))
		Expect(err).NotTo(HaveOccurred())
		_, err = net.Fit(context.Background(), nil, nil, 1, 1, rand.New(rand.NewSource(1)))
		Expect(err).To(MatchError(ErrEmptyBatch))
	})
})
