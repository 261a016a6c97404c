package nneval

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Bonan14/lc0-sycl-bb2/mcts"
	"github.com/Bonan14/lc0-sycl-bb2/move"
)

// OnnxPool fans out Predict calls across several OnnxPredictor instances,
// each with its own batching loop and ORT session, allowing parallel
// inference across concurrent search workers.
type OnnxPool struct {
	predictors []*OnnxPredictor
	rr         atomic.Uint64
}

// NewOnnxPool loads sessions independent OnnxPredictor instances from the
// same model file.
func NewOnnxPool(modelPath string, sessions int, cfg OnnxConfig) (*OnnxPool, error) {
	if sessions <= 0 {
		sessions = 1
	}
	predictors := make([]*OnnxPredictor, 0, sessions)
	for i := 0; i < sessions; i++ {
		p, err := NewOnnxPredictor(modelPath, cfg)
		if err != nil {
			for _, created := range predictors {
				_ = created.Close()
			}
			return nil, fmt.Errorf("nneval: create predictor %d/%d: %w", i+1, sessions, err)
		}
		predictors = append(predictors, p)
	}
	return &OnnxPool{predictors: predictors}, nil
}

// Close releases every predictor's session.
func (p *OnnxPool) Close() error {
	var firstErr error
	for _, c := range p.predictors {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Predict routes to the next predictor round-robin.
func (p *OnnxPool) Predict(ctx context.Context, features []float32, moves []move.Move) (mcts.NNEval, error) {
	if len(p.predictors) == 0 {
		return mcts.NNEval{}, fmt.Errorf("nneval: pool has no predictors")
	}
	idx := int(p.rr.Add(1)-1) % len(p.predictors)
	return p.predictors[idx].Predict(ctx, features, moves)
}
