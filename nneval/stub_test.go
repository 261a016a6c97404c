package nneval

import (
	"context"
	"testing"

	"github.com/Bonan14/lc0-sycl-bb2/move"
)

func TestStubPredictor_UniformPriors(t *testing.T) {
	stub := StubPredictor{Q: 0.1, D: 0.2, M: 30}
	moves := []move.Move{move.New(0, 1, 0), move.New(1, 2, 0), move.New(2, 3, 0)}

	eval, err := stub.Predict(context.Background(), nil, moves)
	if err != nil {
		t.Fatalf("Predict returned error: %v", err)
	}
	if len(eval.Edges) != 3 {
		t.Fatalf("len(edges) = %d, want 3", len(eval.Edges))
	}
	for _, e := range eval.Edges {
		if got, want := e.GetP(), float32(1.0/3.0); got < want-1e-3 || got > want+1e-3 {
			t.Errorf("prior = %v, want ~%v", got, want)
		}
	}
	if eval.Q != 0.1 || eval.D != 0.2 || eval.M != 30 {
		t.Errorf("eval = %+v, want Q=0.1 D=0.2 M=30", eval)
	}
}

func TestStubPredictor_NoMoves(t *testing.T) {
	stub := StubPredictor{}
	eval, err := stub.Predict(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Predict returned error: %v", err)
	}
	if len(eval.Edges) != 0 {
		t.Errorf("len(edges) = %d, want 0", len(eval.Edges))
	}
}
