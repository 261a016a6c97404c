package mcts

import (
	"sort"

	"github.com/Bonan14/lc0-sycl-bb2/move"
)

// Edge is one potential move out of a LowNode: a move token plus a prior
// compressed through PolicyCodec. Order within a LowNode's edge array is
// the canonical child index. Once populated, edges are immutable except by
// the one-time SortEdges and terminal-induced prior zeroing.
type Edge struct {
	mv move.Move
	p  uint16
}

// NewEdge builds an Edge from a move and an already-compressed prior.
func NewEdge(mv move.Move, p uint16) Edge {
	return Edge{mv: mv, p: p}
}

// GetMove returns the stored move, mirrored for the opponent's perspective
// when asOpponent is true.
func (e Edge) GetMove(asOpponent bool) move.Move {
	if asOpponent {
		return e.mv.Mirror()
	}
	return e.mv
}

// GetP returns the decoded prior.
func (e Edge) GetP() float32 {
	return DecodeP(e.p)
}

// SetP re-encodes and stores a new prior, used for terminal-induced
// prior zeroing.
func (e *Edge) SetP(p float32) {
	e.p = EncodeP(p)
}

func (e Edge) String() string {
	return e.mv.String()
}

// SortEdges stable-sorts edges in place, descending by raw compressed
// prior. Must only be called on a LowNode that has edges but no
// materialized children; see LowNode.SortEdges for the enforced
// precondition.
func SortEdges(edges []Edge) {
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].p > edges[j].p })
}
