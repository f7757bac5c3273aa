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
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// Network is the sequence regressor used for price forecasting: two stacked
// LSTM layers followed by a single output unit
type Network struct {
	Window int

	first  *LSTM
	second *LSTM
	out    *Dense
	opt    *Adam
}

// NewNetwork builds a network that reads `window` scalar steps. Weights are
// initialized from rng, so equal seeds give equal networks.
func NewNetwork(window, hidden int, learningRate float64, rng *rand.Rand) (*Network, error) {
	if window <= 0 || hidden <= 0 || learningRate <= 0 {
		return nil, fmt.Errorf("%w: window=%d hidden=%d learning rate=%g", ErrInvalidHyperParam, window, hidden, learningRate)
	}

	return &Network{
		Window: window,
		first:  NewLSTM(1, hidden, true, rng),
		second: NewLSTM(hidden, hidden, false, rng),
		out:    NewDense(hidden, 1, rng),
		opt:    NewAdam(learningRate),
	}, nil
}

func (n *Network) params() []Param {
	params := n.first.params()
	params = append(params, n.second.params()...)
	return append(params, n.out.params()...)
}

func (n *Network) zeroGrad() {
	n.first.zeroGrad()
	n.second.zeroGrad()
	n.out.zeroGrad()
}

// sequence transposes a batch of windows into one batch x 1 matrix per step
func (n *Network) sequence(batch [][]float64) ([]*mat.Dense, error) {
	xs := make([]*mat.Dense, n.Window)
	for t := 0; t < n.Window; t++ {
		col := make([]float64, len(batch))
		for b, row := range batch {
			if len(row) != n.Window {
				return nil, fmt.Errorf("%w: got %d values, want %d", ErrSequenceLength, len(row), n.Window)
			}
			col[b] = row[t]
		}
		xs[t] = mat.NewDense(len(batch), 1, col)
	}
	return xs, nil
}

func (n *Network) forward(batch [][]float64) (*mat.Dense, error) {
	xs, err := n.sequence(batch)
	if err != nil {
		return nil, err
	}
	h := n.first.Forward(xs)
	h = n.second.Forward(h)
	return n.out.Forward(h[0]), nil
}

func (n *Network) backward(dpred *mat.Dense) {
	dh := n.out.Backward(dpred)
	dxs := n.second.Backward([]*mat.Dense{dh})
	n.first.Backward(dxs)
}

// meanSquaredError returns the batch loss and its gradient with respect to pred
func meanSquaredError(pred *mat.Dense, target []float64) (float64, *mat.Dense) {
	raw := pred.RawMatrix().Data
	grad := make([]float64, len(raw))
	scale := 1 / float64(len(raw))

	var loss float64
	for i, p := range raw {
		diff := p - target[i]
		loss += diff * diff
		grad[i] = 2 * diff * scale
	}
	return loss * scale, mat.NewDense(len(raw), 1, grad)
}

// Fit trains the network with mini-batch Adam. The sample order is shuffled
// with rng at the start of every epoch. Cancellation is checked between
// mini-batches. The mean loss of every epoch is returned.
func (n *Network) Fit(ctx context.Context, X [][]float64, y []float64, epochs, batchSize int, rng *rand.Rand) ([]float64, error) {
	if len(X) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("%w: %d inputs, %d targets", ErrShapeMismatch, len(X), len(y))
	}
	if epochs <= 0 || batchSize <= 0 {
		return nil, fmt.Errorf("%w: epochs=%d batch size=%d", ErrInvalidHyperParam, epochs, batchSize)
	}

	order := make([]int, len(X))
	for i := range order {
		order[i] = i
	}

	losses := make([]float64, 0, epochs)
	params := n.params()

	for epoch := 0; epoch < epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		var total float64
		var batches int
		for start := 0; start < len(order); start += batchSize {
			if err := ctx.Err(); err != nil {
				return losses, err
			}

			end := min(start+batchSize, len(order))
			bx := make([][]float64, 0, end-start)
			by := make([]float64, 0, end-start)
			for _, idx := range order[start:end] {
				bx = append(bx, X[idx])
				by = append(by, y[idx])
			}

			pred, err := n.forward(bx)
			if err != nil {
				return losses, err
			}

			loss, dpred := meanSquaredError(pred, by)
			n.zeroGrad()
			n.backward(dpred)
			n.opt.Step(params)

			total += loss
			batches++
		}

		losses = append(losses, total/float64(batches))
		log.Debug().Int("Epoch", epoch+1).Float64("Loss", losses[epoch]).Msg("lstm epoch complete")
	}

	return losses, nil
}

// Predict returns one output per window in X
func (n *Network) Predict(X [][]float64) ([]float64, error) {
	if len(X) == 0 {
		return []float64{}, nil
	}
	pred, err := n.forward(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	copy(out, pred.RawMatrix().Data)
	return out, nil
}

// Loss evaluates the mean squared error over X without updating weights
func (n *Network) Loss(X [][]float64, y []float64) (float64, error) {
	if len(X) != len(y) {
		return 0, fmt.Errorf("%w: %d inputs, %d targets", ErrShapeMismatch, len(X), len(y))
	}
	if len(X) == 0 {
		return 0, ErrEmptyBatch
	}
	pred, err := n.forward(X)
	if err != nil {
		return 0, err
	}
	loss, _ := meanSquaredError(pred, y)
	return loss, nil
}
