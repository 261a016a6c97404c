package mcts

import "github.com/Bonan14/lc0-sycl-bb2/move"

// NodeTree owns the game-begin Node, the current search root, and the move
// history that connects them, and implements the re-rooting protocol that
// keeps search reuse O(1) on the hot path.
type NodeTree struct {
	gamebegin   *Node
	currentHead *Node
	history     *move.History
	moves       []move.Move
	startingPos string

	reclaimer *Reclaimer
}

// NewNodeTree returns a fresh tree backed by r for subtree destruction.
func NewNodeTree(r *Reclaimer) *NodeTree {
	root := NewGameBeginNode()
	return &NodeTree{gamebegin: root, currentHead: root, history: move.NewHistory(), reclaimer: r}
}

// GamebeginNode returns the tree's root Node.
func (t *NodeTree) GamebeginNode() *Node { return t.gamebegin }

// CurrentHead returns the current search root.
func (t *NodeTree) CurrentHead() *Node { return t.currentHead }

// Moves returns the move log from game-begin to the current head.
func (t *NodeTree) Moves() []move.Move { return t.moves }

// MakeMove advances current_head to the child reached by mv, detaching
// every other materialized sibling (and the previous head's other
// children) to the Reclaimer. If the chosen child was terminal (e.g. a
// tablebase hit or two-fold draw), it is made non-terminal so search can
// continue past it.
//
// Edges are stored from the perspective of the side to move at that
// position, mirrored for Black, matching the convention the mirrored
// MoveToken comparison below assumes.
func (t *NodeTree) MakeMove(mv move.Move) *Node {
	asBlack := t.history.IsBlackToMove()
	head := t.currentHead

	var child *Node
	if head.lowNode != nil && head.lowNode.HasEdges() {
		edges := head.lowNode.Edges()
		idx := -1
		for i, e := range edges {
			if e.GetMove(asBlack).Equal(mv) {
				idx = i
				break
			}
		}
		if idx < 0 {
			panic("mcts: MakeMove: move not among current head's edges")
		}
		child = head.lowNode.GetOrSpawnNode(uint16(idx))
	} else {
		stored := mv
		if asBlack {
			stored = mv.Mirror()
		}
		child = CreateSingleChildNode(head, stored)
	}

	if child.terminalType != NonTerminal {
		child.MakeNotTerminal(true)
	}

	if head.lowNode != nil {
		head.lowNode.ReleaseChildrenExceptOne(child, t.reclaimer)
	}

	t.currentHead = child
	t.moves = append(t.moves, mv)
	t.history.Append(mv)
	return child
}

// TrimTreeAtHead scrubs the current head: every materialized child is
// queued for reclamation and the head's own stats reset to zero, while its
// parent/index linkage (and its place in its own sibling chain) is
// preserved.
func (t *NodeTree) TrimTreeAtHead() {
	head := t.currentHead
	if head.lowNode != nil {
		head.lowNode.ReleaseChildren(t.reclaimer)
	}
	head.st.mu.Lock()
	head.st.wl, head.st.d, head.st.m, head.st.n, head.st.nInFlight = 0, 0, 0, 0, 0
	head.st.mu.Unlock()
	head.terminalType = NonTerminal
	head.lowerBound, head.upperBound = BlackWon, WhiteWon
}

// DeallocateTree hands the entire tree to the Reclaimer and starts a fresh
// one.
func (t *NodeTree) DeallocateTree() {
	old := t.gamebegin
	t.gamebegin = NewGameBeginNode()
	t.currentHead = t.gamebegin
	t.moves = nil
	t.history = move.NewHistory()
	t.reclaimer.Enqueue(old)
}

// ResetToPosition rebuilds the tree for startingPos and replays moves,
// reusing the existing tree when possible. If startingPos differs from
// what the tree was built for, the whole tree is deallocated first. If the
// previous current_head is not encountered while replaying moves, the new
// head is scrubbed via TrimTreeAtHead to discard stale stats. Returns
// whether the previous head's subtree was reused.
func (t *NodeTree) ResetToPosition(startingPos string, moves []move.Move) bool {
	prevHead := t.currentHead
	if t.startingPos != "" && t.startingPos != startingPos {
		t.DeallocateTree()
	}
	t.startingPos = startingPos

	t.currentHead = t.gamebegin
	t.moves = nil
	t.history = move.NewHistory()

	reused := t.currentHead == prevHead
	for _, mv := range moves {
		child := t.MakeMove(mv)
		if child == prevHead {
			reused = true
		}
	}
	if !reused {
		t.TrimTreeAtHead()
	}
	return reused
}
