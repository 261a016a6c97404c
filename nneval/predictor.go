// Package nneval provides the neural-network evaluation collaborator the
// search tree core consumes: a Predictor that turns a position's raw
// feature tensor and candidate moves into an mcts.NNEval (per-edge priors
// plus the position's own value/draw/moves-left estimate).
package nneval

import (
	"context"

	"github.com/Bonan14/lc0-sycl-bb2/mcts"
	"github.com/Bonan14/lc0-sycl-bb2/move"
)

// Predictor is the collaborator NodeTree/search-worker callers use to
// evaluate a freshly-expanded position. Implementations own their own
// batching and backend; Predict may block the caller until a batch fills
// or a timeout fires.
type Predictor interface {
	// Predict returns an NNEval for a position given its raw feature
	// tensor and the candidate moves legal there, in the order the
	// resulting NNEval.Edges should be indexed.
	Predict(ctx context.Context, features []float32, moves []move.Move) (mcts.NNEval, error)
}
