package nneval

import (
	"context"

	"github.com/Bonan14/lc0-sycl-bb2/mcts"
	"github.com/Bonan14/lc0-sycl-bb2/move"
)

// StubPredictor is a fixed-policy Predictor for tests and demos that have
// no ONNX model to load: every move gets a uniform prior, and Q/D/M are
// configurable constants.
type StubPredictor struct {
	Q float32
	D float32
	M float32
}

// Predict returns a uniform-prior NNEval over moves, ignoring features.
func (s StubPredictor) Predict(_ context.Context, _ []float32, moves []move.Move) (mcts.NNEval, error) {
	edges := make([]mcts.Edge, len(moves))
	var prior float32
	if len(moves) > 0 {
		prior = 1.0 / float32(len(moves))
	}
	for i, mv := range moves {
		edges[i] = mcts.NewEdge(mv, mcts.EncodeP(prior))
	}
	return mcts.NNEval{
		Edges:    edges,
		Q:        s.Q,
		D:        s.D,
		M:        s.M,
		NumEdges: uint8(len(edges)),
	}, nil
}
