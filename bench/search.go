package bench

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/Bonan14/lc0-sycl-bb2/mcts"
	"github.com/Bonan14/lc0-sycl-bb2/move"
	"github.com/Bonan14/lc0-sycl-bb2/nneval"
	"github.com/Bonan14/lc0-sycl-bb2/ttable"
)

// Cpuct is the exploration constant in the PUCT selection formula, matching
// the constant name used by the search loop this is grounded on.
const Cpuct = float32(1.5)

// BranchingFactor bounds how many synthetic moves a position offers. There
// is no rules engine behind this demo; it only needs enough shape to drive
// the node graph's selection/expansion/backup cycle end to end.
const BranchingFactor = 8

// MaxDepth caps descent so a single simulation always terminates even
// though the synthetic move generator never produces a real terminal
// position.
const MaxDepth = 40

// Config controls one Run invocation.
type Config struct {
	RunID       string
	Simulations int
	Predictor   nneval.Predictor
	Table       *ttable.Table
	Reclaimer   *mcts.Reclaimer

	// OnRow, if set, is called synchronously with each Row and the tree it
	// was measured from, letting a live view (cmd/dashboard, cmd/server)
	// follow the run without waiting for it to finish.
	OnRow func(Row, *mcts.NodeTree)
}

// Result summarizes one Run.
type Result struct {
	Rows      []Row
	FinalTree *mcts.NodeTree
}

// Run drives Config.Simulations PUCT iterations from a fresh game-begin
// position, recording one Row per iteration, and returns the final tree so
// callers (cmd/bench, cmd/dashboard) can keep inspecting it.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.Simulations <= 0 {
		return Result{}, fmt.Errorf("bench: simulations must be positive, got %d", cfg.Simulations)
	}
	reclaimer := cfg.Reclaimer
	if reclaimer == nil {
		reclaimer = mcts.DefaultReclaimer
	}

	tree := mcts.NewNodeTree(reclaimer)

	rows := make([]Row, 0, cfg.Simulations)
	start := time.Now()

	for i := 0; i < cfg.Simulations; i++ {
		select {
		case <-ctx.Done():
			return Result{Rows: rows, FinalTree: tree}, ctx.Err()
		default:
		}

		iterStart := time.Now()
		if err := simulateOne(ctx, tree, cfg); err != nil {
			return Result{Rows: rows, FinalTree: tree}, fmt.Errorf("bench: iteration %d: %w", i, err)
		}
		elapsed := time.Since(iterStart)

		sims := 1.0
		if elapsed > 0 {
			sims = 1.0 / elapsed.Seconds()
		}

		var ttHits, ttMisses uint64
		if cfg.Table != nil {
			st := cfg.Table.Stats()
			ttHits, ttMisses = st.Hits, st.Misses
		}

		root := tree.CurrentHead()
		row := Row{
			RunID:         cfg.RunID,
			Iteration:     int32(i),
			SimsPerSec:    sims,
			TreeNodes:     int64(countTree(root)),
			ReclaimQueue:  int32(reclaimer.QueueLen()),
			TTHits:        int64(ttHits),
			TTMisses:      int64(ttMisses),
			RootN:         int64(root.N()),
			RootWL:        root.WL(),
			ElapsedMillis: time.Since(start).Milliseconds(),
		}
		rows = append(rows, row)
		if cfg.OnRow != nil {
			cfg.OnRow(row, tree)
		}
	}

	return Result{Rows: rows, FinalTree: tree}, nil
}

// simulateOne runs a single select/expand/evaluate/backup cycle starting at
// the tree's current head: descend by argmax PUCT score until an
// unevaluated leaf is reached, attach the LowNode the transposition table
// holds for it or else evaluate that leaf with the predictor, then back the
// result up along the visited path with the sign flip each ply.
func simulateOne(ctx context.Context, tree *mcts.NodeTree, cfg Config) error {
	root := tree.CurrentHead()
	depth := 0
	if root.LowNode() == nil {
		if err := expand(ctx, root, depth, cfg); err != nil {
			return err
		}
	}

	path := []*mcts.Node{root}
	cur := root
	cur.IncrementNInFlight(1)

	for depth < MaxDepth {
		low := cur.LowNode()
		if low == nil || !low.HasEdges() {
			break
		}
		child, ok := selectChild(cur, low)
		if !ok {
			break
		}
		child.IncrementNInFlight(1)
		path = append(path, child)
		cur = child
		depth++
	}

	leaf := cur
	if leaf.LowNode() == nil {
		var shared *mcts.LowNode
		if cfg.Table != nil {
			shared = cfg.Table.Lookup(positionKey(leaf))
		}
		if shared != nil {
			leaf.SetLowNode(shared)
		} else {
			if err := expand(ctx, leaf, depth, cfg); err != nil {
				for _, n := range path {
					n.CancelScoreUpdate(1)
				}
				return err
			}
			if cfg.Table != nil {
				cfg.Table.Insert(positionKey(leaf), leaf.LowNode())
			}
		}
	}

	low := leaf.LowNode()
	value, draw, movesLeft := low.WL(), low.D(), low.M()

	for j := len(path) - 1; j >= 0; j-- {
		path[j].FinalizeScoreUpdate(value, draw, movesLeft, 1)
		value = -value
	}
	return nil
}

// selectChild runs the PUCT formula over low's materialized edge/child
// pairs and spawns/retrieves the winning child.
func selectChild(parent *mcts.Node, low *mcts.LowNode) (*mcts.Node, bool) {
	if low.NumEdges() == 0 {
		return nil, false
	}
	sqrtN := float32(math.Sqrt(float64(parent.GetNStarted())))

	bestIdx := -1
	bestScore := float32(math.Inf(-1))

	it := mcts.NewEdgeIterator(low)
	idx := 0
	for it.Valid() {
		var q, n float32
		if child := it.Node(); child != nil {
			n = float32(child.GetNStarted())
			if n > 0 {
				q = float32(child.WL())
			}
		}
		u := q + Cpuct*it.Edge().GetP()*sqrtN/(1+n)
		if u > bestScore {
			bestScore = u
			bestIdx = idx
		}
		it.Next()
		idx++
	}
	if bestIdx < 0 {
		return nil, false
	}

	it2 := mcts.NewEdgeIterator(low)
	for i := 0; i < bestIdx; i++ {
		it2.Next()
	}
	return it2.GetOrSpawnNode(), true
}

// expand fills an unevaluated leaf's LowNode with a synthetic edge set and
// folds the predictor's Q/D/M in as the LowNode's first visit.
func expand(ctx context.Context, n *mcts.Node, depth int, cfg Config) error {
	moves := syntheticMoves(depth)
	eval, err := cfg.Predictor.Predict(ctx, nil, moves)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	low := mcts.NewLowNode()
	low.SetNNEval(eval)
	n.SetLowNode(low)
	return nil
}

// syntheticMoves fabricates a deterministic, bounded move set keyed by
// depth so the demo search has something to branch on without a rules
// engine.
func syntheticMoves(depth int) []move.Move {
	moves := make([]move.Move, BranchingFactor)
	from := uint8(depth % 64)
	for i := 0; i < BranchingFactor; i++ {
		moves[i] = move.New(from, uint8(i), 0)
	}
	return moves
}

// positionKey derives a cheap transposition-table fingerprint from a leaf
// Node's address. A real engine would hash board state; this demo has no
// board, so identity stands in.
func positionKey(n *mcts.Node) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%p", n)
	return h.Sum64()
}

func countTree(root *mcts.Node) int {
	count := 0
	var walk func(n *mcts.Node)
	walk = func(n *mcts.Node) {
		if n == nil {
			return
		}
		count++
		low := n.LowNode()
		if low == nil {
			return
		}
		it := mcts.NewEdgeIterator(low)
		for it.Valid() {
			if child := it.Node(); child != nil {
				walk(child)
			}
			it.Next()
		}
	}
	walk(root)
	return count
}
