package mcts

import (
	"fmt"

	"github.com/Bonan14/lc0-sycl-bb2/move"
)

// Node is a per-arrival record: one occurrence of a position in the tree,
// unique to its tree location even when multiple Nodes share a LowNode
// through transposition.
type Node struct {
	lowNode *LowNode
	parent  *LowNode // the LowNode owning the edge array this Node fills; nil at game-begin
	index   uint16   // this Node's position in parent.edges
	sibling *Node    // next materialized child of the same parent, ascending index

	terminalType           TerminalType
	lowerBound, upperBound GameResult

	st stats
}

// NewGameBeginNode returns the root Node of a fresh tree: no parent, no
// LowNode yet.
func NewGameBeginNode() *Node {
	return &Node{lowerBound: BlackWon, upperBound: WhiteWon}
}

// IsRoot reports whether this Node has no incoming edge (the game-begin
// node).
func (n *Node) IsRoot() bool {
	return n.parent == nil
}

// Index returns this Node's position in its parent LowNode's edge array.
func (n *Node) Index() uint16 { return n.index }

// LowNode returns the attached LowNode, or nil if unevaluated.
func (n *Node) LowNode() *LowNode { return n.lowNode }

// ParentLowNode returns the LowNode that owns the edge this Node fills, or
// nil for the game-begin node.
func (n *Node) ParentLowNode() *LowNode { return n.parent }

// Sibling returns the next materialized sibling, or nil.
func (n *Node) Sibling() *Node { return n.sibling }

// N, NInFlight, WL, D, M forward to the numeric quad.
func (n *Node) N() uint32         { return n.st.N() }
func (n *Node) NInFlight() uint32 { return n.st.NInFlight() }
func (n *Node) WL() float64       { return n.st.WL() }
func (n *Node) D() float32        { return n.st.D() }
func (n *Node) M() float32        { return n.st.M() }

// GetNStarted returns visits that have started, whether finalized or still
// in flight.
func (n *Node) GetNStarted() uint32 {
	wl, _, _, nn, nif := n.st.snapshot()
	_ = wl
	return nn + nif
}

// TerminalType returns this Node's own terminal classification, which may
// differ from its LowNode's (e.g. TwoFold is Node-only).
func (n *Node) TerminalType() TerminalType { return n.terminalType }

// Bounds returns this Node's own (lower, upper) bounds.
func (n *Node) Bounds() (lower, upper GameResult) { return n.lowerBound, n.upperBound }

// OwnEdge returns the edge in the parent LowNode this Node fills, or the
// zero Edge if this is the game-begin node.
func (n *Node) OwnEdge() Edge {
	if n.parent == nil {
		return Edge{}
	}
	return n.parent.Edges()[n.index]
}

// SetLowNode attaches low to this Node, registering the Node as a parent.
// Precondition: not already attached.
func (n *Node) SetLowNode(low *LowNode) {
	if n.lowNode != nil {
		panic("mcts: SetLowNode: already attached")
	}
	n.lowNode = low
	low.AddParent(n.st.NInFlight())
}

// UnsetLowNode detaches the LowNode, decrementing its parent count. A
// no-op if nothing is attached.
func (n *Node) UnsetLowNode() {
	if n.lowNode == nil {
		return
	}
	n.lowNode.RemoveParent()
	n.lowNode = nil
}

// TryStartScoreUpdate is the gate that prevents a second thread from
// attempting first-expansion of the same Node: returns false if this Node
// has zero completed visits and already has virtual loss outstanding.
func (n *Node) TryStartScoreUpdate() bool {
	n.st.mu.Lock()
	defer n.st.mu.Unlock()
	if n.st.n == 0 && n.st.nInFlight > 0 {
		return false
	}
	n.st.nInFlight++
	return true
}

// CancelScoreUpdate decrements nInFlight by k.
func (n *Node) CancelScoreUpdate(k uint32) {
	n.st.cancelScoreUpdate(k)
}

// IncrementNInFlight increments this Node's own nInFlight and, if a
// LowNode is attached, its LowNode's too.
func (n *Node) IncrementNInFlight(k uint32) {
	n.st.incrementNInFlight(k)
	if n.lowNode != nil {
		n.lowNode.st.incrementNInFlight(k)
	}
}

// FinalizeScoreUpdate folds k visits of (v, d, m) into this Node's running
// means, advances n by k, and decrements nInFlight by k. All three moves
// happen under a single lock so the update is observable as one atomic
// step, per the concurrency contract.
func (n *Node) FinalizeScoreUpdate(v float64, d, m float32, k uint32) {
	n.st.mu.Lock()
	defer n.st.mu.Unlock()
	if n.st.nInFlight < k {
		panic("mcts: FinalizeScoreUpdate: n_in_flight underflow")
	}
	n.st.finalizeUpdateLocked(v, d, m, k)
	n.st.nInFlight -= k
}

// AdjustForTerminal adjusts wl/d/m without changing n. Precondition: n > 0.
func (n *Node) AdjustForTerminal(v float64, d, m float32, k uint32) {
	n.st.adjustForTerminal(v, d, m, k)
}

// RevertTerminalVisits undoes k visits of (v, d, m) previously folded in by
// FinalizeScoreUpdate. If that would take n to zero or below, the state is
// reset to the canonical zero-visit state instead of going negative.
func (n *Node) RevertTerminalVisits(v float64, d, m float32, k uint32) {
	n.st.mu.Lock()
	defer n.st.mu.Unlock()
	if n.st.n <= k {
		n.st.wl, n.st.d, n.st.m, n.st.n = 0, 1, 0, 0
		return
	}
	nNew := n.st.n - k
	n.st.wl -= float64(k) * (v - n.st.wl) / float64(nNew)
	n.st.d -= float32(k) * (d - n.st.d) / float32(nNew)
	n.st.m -= float32(k) * (m - n.st.m) / float32(nNew)
	n.st.n = nNew
}

// MakeTerminal marks this Node terminal. Unlike LowNode.MakeTerminal, a
// BLACK_WON result on a non-root Node also zeroes this Node's own edge
// prior, so the forced-loss edge stops receiving exploration bonus.
func (n *Node) MakeTerminal(result GameResult, plies float32, typ TerminalType) {
	n.terminalType = typ
	if typ != TwoFold {
		n.lowerBound, n.upperBound = result, result
	}

	n.st.mu.Lock()
	n.st.m = plies
	switch result {
	case Draw:
		n.st.wl, n.st.d = 0, 1
	case WhiteWon:
		n.st.wl, n.st.d = 1, 0
	case BlackWon:
		n.st.wl, n.st.d = -1, 0
	}
	n.st.mu.Unlock()

	if result == BlackWon && n.parent != nil {
		n.parent.zeroEdgePrior(n.index)
	}
}

// MakeNotTerminal resets this Node to non-terminal. If already
// non-terminal and either alsoLowNode is false or the LowNode is already
// non-terminal, this is a no-op. Otherwise, if a LowNode is attached, its
// stats are copied in with the perspective flip (wl negated, m+1); if
// alsoLowNode is set the LowNode is made non-terminal first. With no
// LowNode attached, this Node's wl, d, m and n are all set to zero and its
// bounds widened.
func (n *Node) MakeNotTerminal(alsoLowNode bool) {
	lowAlreadyNonTerminal := n.lowNode == nil || n.lowNode.TerminalType() == NonTerminal
	if n.terminalType == NonTerminal && (!alsoLowNode || lowAlreadyNonTerminal) {
		return
	}
	n.terminalType = NonTerminal

	if n.lowNode == nil {
		n.st.mu.Lock()
		n.st.wl, n.st.d, n.st.m, n.st.n = 0, 0, 0, 0
		n.st.mu.Unlock()
		n.lowerBound, n.upperBound = BlackWon, WhiteWon
		return
	}

	if alsoLowNode {
		n.lowNode.MakeNotTerminal()
	}
	low := n.lowNode
	lowLower, lowUpper := low.Bounds()
	wl, d, m, nn, _ := low.st.snapshot()

	n.lowerBound = lowUpper.Negate()
	n.upperBound = lowLower.Negate()
	n.st.mu.Lock()
	n.st.n = nn
	n.st.wl = -wl
	n.st.d = d
	n.st.m = m + 1
	n.st.mu.Unlock()
}

// GetVisitedPolicy sums the priors of edges that have at least one visit,
// a signal search orchestrators use to decide whether policy mass is
// concentrated on a few moves.
func (n *Node) GetVisitedPolicy() float32 {
	if n.lowNode == nil {
		return 0
	}
	low := n.lowNode
	low.mu.Lock()
	defer low.mu.Unlock()
	var sum float32
	for c := low.child; c != nil; c = c.sibling {
		if c.st.N() > 0 {
			sum += low.edges[c.index].GetP()
		}
	}
	return sum
}

// ZeroNInFlight recursively checks that this Node's subtree has no
// outstanding virtual loss, used to assert clean reclaim boundaries.
func (n *Node) ZeroNInFlight() bool {
	if n.st.NInFlight() != 0 {
		return false
	}
	if n.lowNode == nil {
		return true
	}
	n.lowNode.mu.Lock()
	child := n.lowNode.child
	n.lowNode.mu.Unlock()
	for c := child; c != nil; c = c.sibling {
		if !c.ZeroNInFlight() {
			return false
		}
	}
	return true
}

// CreateSingleChildNode extends the tree by one move when parent has not
// yet been evaluated (no LowNode attached), by synthesizing a one-edge
// LowNode containing exactly the move played and spawning its single
// child. Used by NodeTree.MakeMove for a move taken from a head that has
// not been evaluated.
func CreateSingleChildNode(parent *Node, mv move.Move) *Node {
	if parent.lowNode == nil {
		low := NewLowNode()
		low.edges = []Edge{NewEdge(mv, 0)}
		parent.SetLowNode(low)
	}
	return parent.lowNode.GetOrSpawnNode(0)
}

// DebugString renders a single-line field dump.
func (n *Node) DebugString() string {
	wl, d, m, nn, nif := n.st.snapshot()
	return fmt.Sprintf("Node{idx=%d n=%d nInFlight=%d wl=%.4f d=%.3f m=%.2f terminal=%s bounds=[%s,%s]}",
		n.index, nn, nif, wl, d, m, n.terminalType, n.lowerBound, n.upperBound)
}
