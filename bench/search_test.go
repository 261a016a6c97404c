package bench

import (
	"context"
	"testing"

	"github.com/Bonan14/lc0-sycl-bb2/mcts"
	"github.com/Bonan14/lc0-sycl-bb2/nneval"
	"github.com/Bonan14/lc0-sycl-bb2/ttable"
)

func stubConfig(sims int) Config {
	return Config{
		RunID:       "test",
		Simulations: sims,
		Predictor:   nneval.StubPredictor{Q: 0, D: 0.1, M: 20},
		Table:       ttable.New(1 << 8),
		Reclaimer:   mcts.NewReclaimer(),
	}
}

func TestRunRejectsNonPositiveSimulations(t *testing.T) {
	if _, err := Run(context.Background(), stubConfig(0)); err == nil {
		t.Fatalf("Run with 0 simulations: want error, got nil")
	}
	if _, err := Run(context.Background(), stubConfig(-1)); err == nil {
		t.Fatalf("Run with -1 simulations: want error, got nil")
	}
}

func TestRunProducesOneRowPerSimulation(t *testing.T) {
	const sims = 50
	result, err := Run(context.Background(), stubConfig(sims))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Rows) != sims {
		t.Fatalf("len(Rows) = %d, want %d", len(result.Rows), sims)
	}
	for i, row := range result.Rows {
		if row.RunID != "test" {
			t.Errorf("row %d: RunID = %q, want %q", i, row.RunID, "test")
		}
		if int(row.Iteration) != i {
			t.Errorf("row %d: Iteration = %d, want %d", i, row.Iteration, i)
		}
	}
	last := result.Rows[sims-1]
	if last.RootN != int64(sims) {
		t.Errorf("final RootN = %d, want %d (one root visit per simulation)", last.RootN, sims)
	}
}

func TestRunGrowsTheTree(t *testing.T) {
	result, err := Run(context.Background(), stubConfig(100))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	first := result.Rows[0]
	last := result.Rows[len(result.Rows)-1]
	if last.TreeNodes <= first.TreeNodes {
		t.Errorf("TreeNodes did not grow: first=%d last=%d", first.TreeNodes, last.TreeNodes)
	}
}

func TestRunRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := Run(ctx, stubConfig(1000))
	if err == nil {
		t.Fatalf("Run with an already-cancelled context: want error, got nil")
	}
	if len(result.Rows) != 0 {
		t.Errorf("len(Rows) = %d, want 0 (no iteration should have started)", len(result.Rows))
	}
}

func TestRunCallsOnRowForEveryIteration(t *testing.T) {
	cfg := stubConfig(20)
	var seen []Row
	cfg.OnRow = func(r Row, tree *mcts.NodeTree) {
		if tree == nil {
			t.Fatalf("OnRow called with a nil tree")
		}
		seen = append(seen, r)
	}
	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 20 {
		t.Fatalf("OnRow called %d times, want 20", len(seen))
	}
}

func TestRunPopulatesTransportTableHitsOverRepeatedSimulations(t *testing.T) {
	result, err := Run(context.Background(), stubConfig(200))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	last := result.Rows[len(result.Rows)-1]
	if last.TTHits+last.TTMisses == 0 {
		t.Errorf("expected some transposition table lookups to have been recorded")
	}
}

func TestSyntheticMovesIsDeterministicAndBounded(t *testing.T) {
	a := syntheticMoves(5)
	b := syntheticMoves(5)
	if len(a) != BranchingFactor {
		t.Fatalf("len(syntheticMoves(5)) = %d, want %d", len(a), BranchingFactor)
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Errorf("syntheticMoves(5) not deterministic at index %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestPositionKeyIsStableForTheSameNode(t *testing.T) {
	tree := mcts.NewNodeTree(mcts.NewReclaimer())
	root := tree.CurrentHead()
	if positionKey(root) != positionKey(root) {
		t.Errorf("positionKey is not stable across calls on the same node")
	}
}
