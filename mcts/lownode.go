package mcts

import (
	"fmt"
	"sync"
)

// LowNode is a shared per-position record: the game position reached by at
// least one path through the tree. Multiple Nodes may hold the same
// LowNode when a transposition is detected.
//
// mu guards everything here except the numeric quad, which lives in st and
// has its own lock: edges (written once by SetNNEval, then read-only except
// for terminal-induced prior zeroing), the child list head, numParents,
// isTransposition, and the terminal/bounds fields.
type LowNode struct {
	mu sync.Mutex

	edges []Edge
	child *Node // head of the sibling list, sorted by ascending index

	numParents      uint8
	isTransposition bool

	terminalType         TerminalType
	lowerBound, upperBound GameResult

	st stats
}

// NewLowNode returns an unevaluated LowNode with the widest possible
// bounds.
func NewLowNode() *LowNode {
	return &LowNode{lowerBound: BlackWon, upperBound: WhiteWon}
}

// HasEdges reports whether this LowNode has been evaluated (I1).
func (l *LowNode) HasEdges() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.edges) > 0
}

// NumEdges returns the number of edges, or 0 if unevaluated.
func (l *LowNode) NumEdges() uint8 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint8(len(l.edges))
}

// Edges returns the live edge slice. Safe to read concurrently once
// populated; the only permitted mutations after population are the
// one-time SortEdges and terminal-induced prior zeroing, both internal to
// this package.
func (l *LowNode) Edges() []Edge {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.edges
}

// NumParents returns the number of Nodes currently holding this LowNode.
func (l *LowNode) NumParents() uint8 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.numParents
}

// IsTransposition reports whether this LowNode has ever had more than one
// parent. Sticky: once true, never cleared.
func (l *LowNode) IsTransposition() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isTransposition
}

// TerminalType returns the LowNode's own terminal classification.
func (l *LowNode) TerminalType() TerminalType {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.terminalType
}

// Bounds returns the LowNode's (lower, upper) game-result bounds.
func (l *LowNode) Bounds() (lower, upper GameResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lowerBound, l.upperBound
}

// N, D, M, WL, NInFlight forward to the numeric quad.
func (l *LowNode) N() uint32         { return l.st.N() }
func (l *LowNode) NInFlight() uint32 { return l.st.NInFlight() }
func (l *LowNode) WL() float64       { return l.st.WL() }
func (l *LowNode) D() float32        { return l.st.D() }
func (l *LowNode) M() float32        { return l.st.M() }

// SetNNEval populates this LowNode's edges from a neural-network
// evaluation and folds the position's own (Q, D, M) in as the LowNode's
// first visit, consistent with I3 ("n >= sum of child.n + 1 if
// evaluated"). Precondition: edges not already set.
func (l *LowNode) SetNNEval(eval NNEval) {
	l.mu.Lock()
	if len(l.edges) != 0 {
		l.mu.Unlock()
		panic("mcts: SetNNEval: LowNode already evaluated")
	}
	l.edges = eval.Edges
	l.mu.Unlock()
	l.FinalizeScoreUpdate(float64(eval.Q), eval.D, eval.M, 1)
}

// SortEdges stable-sorts the edge array descending by raw compressed
// prior. Precondition: no children have been materialized yet.
func (l *LowNode) SortEdges() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.child != nil {
		panic("mcts: SortEdges: children already materialized")
	}
	SortEdges(l.edges)
}

// zeroEdgePrior sets the prior of edges[idx] to decoded zero, used by
// Node.MakeTerminal's loss-prior-zeroing rule.
func (l *LowNode) zeroEdgePrior(idx uint16) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.edges[idx].SetP(0)
}

// GetOrSpawnNode returns the materialized Node at edge index idx, creating
// and splicing it into the sorted sibling list if absent. Concurrent calls
// on distinct LowNodes are independent; concurrent calls on the same
// LowNode are serialized by mu, satisfying the "orchestrator must serialize
// spawns" requirement internally rather than trusting the caller.
func (l *LowNode) GetOrSpawnNode(idx uint16) *Node {
	l.mu.Lock()
	defer l.mu.Unlock()
	if int(idx) >= len(l.edges) {
		panic("mcts: GetOrSpawnNode: edge index out of range")
	}
	var prev *Node
	cur := l.child
	for cur != nil && cur.index < idx {
		prev = cur
		cur = cur.sibling
	}
	if cur != nil && cur.index == idx {
		return cur
	}
	nd := &Node{parent: l, index: idx, sibling: cur, lowerBound: BlackWon, upperBound: WhiteWon}
	if prev == nil {
		l.child = nd
	} else {
		prev.sibling = nd
	}
	return nd
}

// ReleaseChildren detaches the entire materialized child list and hands it
// to r, leaving this LowNode childless.
func (l *LowNode) ReleaseChildren(r *Reclaimer) {
	l.mu.Lock()
	head := l.child
	l.child = nil
	l.mu.Unlock()
	r.Enqueue(head)
}

// ReleaseChildrenExceptOne detaches every materialized child except keep,
// handing each detached subtree to r. keep, if non-nil, becomes the sole
// entry of the child list.
func (l *LowNode) ReleaseChildrenExceptOne(keep *Node, r *Reclaimer) {
	l.mu.Lock()
	cur := l.child
	l.child = nil
	var detached []*Node
	for cur != nil {
		next := cur.sibling
		cur.sibling = nil
		if cur == keep {
			l.child = cur
		} else {
			detached = append(detached, cur)
		}
		cur = next
	}
	l.mu.Unlock()
	for _, d := range detached {
		r.Enqueue(d)
	}
}

// AddParent registers a new Node holding this LowNode, seeding the
// LowNode's nInFlight with the amount the new parent already had in
// flight (a visit may be mid-descent before the LowNode is known).
func (l *LowNode) AddParent(nInFlight uint32) {
	l.mu.Lock()
	l.numParents++
	if l.numParents > 1 {
		l.isTransposition = true
	}
	l.mu.Unlock()
	l.st.incrementNInFlight(nInFlight)
}

// RemoveParent decrements the parent count and returns the new count. The
// LowNode is eligible for reclamation once this reaches zero (I4).
func (l *LowNode) RemoveParent() uint8 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.numParents == 0 {
		panic("mcts: RemoveParent: already zero parents")
	}
	l.numParents--
	return l.numParents
}

// FinalizeScoreUpdate folds k visits of (v, d, m) into this LowNode's
// running means. Unlike Node's version, it does not touch nInFlight (per
// the contract: nInFlight decrements on Node only).
func (l *LowNode) FinalizeScoreUpdate(v float64, d, m float32, k uint32) {
	l.st.finalizeUpdate(v, d, m, k)
}

// AdjustForTerminal adjusts wl/d/m without changing n. Precondition: n > 0.
func (l *LowNode) AdjustForTerminal(v float64, d, m float32, k uint32) {
	l.st.adjustForTerminal(v, d, m, k)
}

// CancelScoreUpdate decrements nInFlight by k.
func (l *LowNode) CancelScoreUpdate(k uint32) {
	l.st.cancelScoreUpdate(k)
}

// MakeTerminal marks this LowNode terminal with result/plies/typ, setting
// wl/d from result and m from plies. No prior zeroing: that only applies
// to a specific Node's own edge, per spec.
func (l *LowNode) MakeTerminal(result GameResult, plies float32, typ TerminalType) {
	l.mu.Lock()
	l.terminalType = typ
	if typ != TwoFold {
		l.lowerBound, l.upperBound = result, result
	}
	l.mu.Unlock()

	l.st.mu.Lock()
	l.st.m = plies
	switch result {
	case Draw:
		l.st.wl, l.st.d = 0, 1
	case WhiteWon:
		l.st.wl, l.st.d = 1, 0
	case BlackWon:
		l.st.wl, l.st.d = -1, 0
	}
	l.st.mu.Unlock()
}

// MakeNotTerminal resets this LowNode to non-terminal with the widest
// bounds, then re-aggregates n/wl/d/m over its own materialized children
// that have at least one visit. If no child has been visited, the numeric
// state is left at zero. Precondition: edges present.
//
// The reference implementation threads the owning Node through this call
// purely to obtain an edge/child iterator; this LowNode already stores its
// own child-list head, so that plumbing is unnecessary here.
func (l *LowNode) MakeNotTerminal() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.terminalType == NonTerminal {
		return
	}
	if len(l.edges) == 0 {
		panic("mcts: MakeNotTerminal: requires edges")
	}
	l.terminalType = NonTerminal
	l.lowerBound, l.upperBound = BlackWon, WhiteWon

	var n uint32
	var wl float64
	var d, m float32
	for c := l.child; c != nil; c = c.sibling {
		c.st.mu.Lock()
		cn := c.st.n
		if cn > 0 {
			n += cn
			wl += c.st.wl * float64(cn)
			d += c.st.d * float32(cn)
			m += c.st.m * float32(cn)
		}
		c.st.mu.Unlock()
	}

	l.st.mu.Lock()
	if n > 0 {
		l.st.n = n
		l.st.wl = wl / float64(n)
		l.st.d = d / float32(n)
		l.st.m = m / float32(n)
	} else {
		l.st.n, l.st.wl, l.st.d, l.st.m = 0, 0, 0, 0
	}
	l.st.mu.Unlock()
}

// GetChildrenVisits sums the completed-visit counts of materialized
// children.
func (l *LowNode) GetChildrenVisits() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total uint32
	for c := l.child; c != nil; c = c.sibling {
		total += c.st.N()
	}
	return total
}

// GetTotalVisits implements I3's right-hand side: sum of children's n plus
// one if this LowNode has been evaluated.
func (l *LowNode) GetTotalVisits() uint32 {
	l.mu.Lock()
	evaluated := len(l.edges) > 0
	var total uint32
	for c := l.child; c != nil; c = c.sibling {
		total += c.st.N()
	}
	l.mu.Unlock()
	if evaluated {
		total++
	}
	return total
}

// DebugString renders a single-line field dump, used in test failures and
// the dot graph dump.
func (l *LowNode) DebugString() string {
	l.mu.Lock()
	ne := len(l.edges)
	np := l.numParents
	isT := l.isTransposition
	term := l.terminalType
	lb, ub := l.lowerBound, l.upperBound
	l.mu.Unlock()
	wl, d, m, n, nif := l.st.snapshot()
	return fmt.Sprintf("LowNode{edges=%d n=%d nInFlight=%d wl=%.4f d=%.3f m=%.2f parents=%d transposition=%v terminal=%s bounds=[%s,%s]}",
		ne, n, nif, wl, d, m, np, isT, term, lb, ub)
}
