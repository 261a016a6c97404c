package mcts

import (
	"testing"

	"github.com/Bonan14/lc0-sycl-bb2/move"
)

// S2: first-visit gate.
func TestTryStartScoreUpdate_FirstVisitGate(t *testing.T) {
	n := &Node{}

	if ok := n.TryStartScoreUpdate(); !ok {
		t.Fatalf("thread A: TryStartScoreUpdate() = false, want true")
	}
	if ok := n.TryStartScoreUpdate(); ok {
		t.Fatalf("thread B: TryStartScoreUpdate() = true, want false while n=0 and n_in_flight>0")
	}

	n.FinalizeScoreUpdate(0.3, 0.1, 20, 1)

	if ok := n.TryStartScoreUpdate(); !ok {
		t.Fatalf("thread B retry: TryStartScoreUpdate() = false, want true")
	}

	if got := n.N(); got != 1 {
		t.Errorf("n = %d, want 1", got)
	}
	if got := n.NInFlight(); got != 1 {
		t.Errorf("n_in_flight = %d, want 1", got)
	}
	if got := n.WL(); got != 0.3 {
		t.Errorf("wl = %v, want 0.3", got)
	}
}

// S5: revert to zero.
func TestRevertTerminalVisits_ResetsToZero(t *testing.T) {
	n := &Node{}
	n.st.n = 2
	n.st.wl = -0.5

	n.RevertTerminalVisits(-0.5, 0, 0, 2)

	if got := n.N(); got != 0 {
		t.Errorf("n = %d, want 0", got)
	}
	if got := n.WL(); got != 0 {
		t.Errorf("wl = %v, want 0", got)
	}
	if got := n.D(); got != 1 {
		t.Errorf("d = %v, want 1", got)
	}
	if got := n.M(); got != 0 {
		t.Errorf("m = %v, want 0", got)
	}
}

// S6: loss-prior zeroing.
func TestMakeTerminal_ZeroesOwnEdgePriorOnLoss(t *testing.T) {
	low := NewLowNode()
	low.edges = []Edge{NewEdge(move.New(0, 1, 0), EncodeP(0.37))}
	nd := low.GetOrSpawnNode(0)

	nd.MakeTerminal(BlackWon, 3, EndOfGame)

	if got := low.edges[0].GetP(); got != 0 {
		t.Errorf("edge prior after loss = %v, want 0", got)
	}
	if got := nd.WL(); got != -1 {
		t.Errorf("wl = %v, want -1", got)
	}
	if got := nd.D(); got != 0 {
		t.Errorf("d = %v, want 0", got)
	}
	lower, upper := nd.Bounds()
	if lower != BlackWon || upper != BlackWon {
		t.Errorf("bounds = (%s,%s), want (BLACK_WON,BLACK_WON)", lower, upper)
	}
}

// A root Node's edge prior must NOT be zeroed on a lossy terminal.
func TestMakeTerminal_RootDoesNotZeroPrior(t *testing.T) {
	root := NewGameBeginNode()
	root.MakeTerminal(BlackWon, 1, EndOfGame)
	if got := root.WL(); got != -1 {
		t.Errorf("wl = %v, want -1", got)
	}
}

// S3: terminal backup / re-aggregation.
func TestLowNode_MakeTerminalThenMakeNotTerminal(t *testing.T) {
	low := NewLowNode()
	low.edges = []Edge{
		NewEdge(move.New(0, 1, 0), EncodeP(0.5)),
		NewEdge(move.New(1, 2, 0), EncodeP(0.5)),
	}
	a := low.GetOrSpawnNode(0)
	a.st.n, a.st.wl, a.st.d, a.st.m = 3, 0.4, 0.2, 10

	b := low.GetOrSpawnNode(1)
	b.st.n, b.st.wl, b.st.d, b.st.m = 1, -0.1, 0.5, 12

	low.MakeTerminal(Draw, 5, EndOfGame)
	low.MakeNotTerminal()

	if got := low.N(); got != 4 {
		t.Errorf("n = %d, want 4", got)
	}
	if got := low.WL(); !almostEqual(got, 0.275, 1e-9) {
		t.Errorf("wl = %v, want 0.275", got)
	}
	if got := low.D(); !almostEqualF32(got, 0.275, 1e-6) {
		t.Errorf("d = %v, want 0.275", got)
	}
	if got := low.M(); !almostEqualF32(got, 10.5, 1e-6) {
		t.Errorf("m = %v, want 10.5", got)
	}
	if got := low.TerminalType(); got != NonTerminal {
		t.Errorf("terminal_type = %s, want NonTerminal", got)
	}
	lower, upper := low.Bounds()
	if lower != BlackWon || upper != WhiteWon {
		t.Errorf("bounds = (%s,%s), want (BLACK_WON,WHITE_WON)", lower, upper)
	}
}

// LowNode.MakeNotTerminal must be a no-op on an already-non-terminal
// LowNode: calling it unconditionally (as Node.MakeNotTerminal(true) does
// for a TwoFold child whose LowNode was never made terminal) must not
// re-aggregate over children and discard the NN first-visit contribution.
func TestLowNode_MakeNotTerminal_NoopWhenAlreadyNonTerminal(t *testing.T) {
	low := NewLowNode()
	low.edges = []Edge{NewEdge(move.New(0, 1, 0), EncodeP(0.5))}
	low.st.n, low.st.wl, low.st.d, low.st.m = 1, 0.5, 0.1, 20

	low.MakeNotTerminal()

	if got := low.N(); got != 1 {
		t.Errorf("n = %d, want 1 (unchanged)", got)
	}
	if got := low.WL(); !almostEqual(got, 0.5, 1e-9) {
		t.Errorf("wl = %v, want 0.5 (unchanged)", got)
	}
}

// Property 4: perspective negation.
func TestNode_MakeNotTerminal_PerspectiveNegation(t *testing.T) {
	low := NewLowNode()
	low.edges = []Edge{NewEdge(move.New(0, 1, 0), EncodeP(0.5))}
	low.st.n, low.st.wl, low.st.d, low.st.m = 5, 0.2, 0.3, 7

	nd := low.GetOrSpawnNode(0)
	nd.terminalType = Tablebase
	nd.SetLowNode(low)

	nd.MakeNotTerminal(false)

	if got := nd.WL(); got != -0.2 {
		t.Errorf("node.wl = %v, want -0.2 (= -low.wl)", got)
	}
	if got := nd.M(); got != 8 {
		t.Errorf("node.m = %v, want 8 (= low.m + 1)", got)
	}
}

// Property 6: MakeNotTerminal idempotence.
func TestNode_MakeNotTerminal_Idempotent(t *testing.T) {
	nd := &Node{lowerBound: BlackWon, upperBound: WhiteWon}
	nd.MakeTerminal(Draw, 1, EndOfGame)
	nd.MakeNotTerminal(false)
	first := nd.DebugString()
	nd.MakeNotTerminal(false)
	if got := nd.DebugString(); got != first {
		t.Errorf("second MakeNotTerminal changed state: %q vs %q", got, first)
	}
}

func TestNode_MakeNotTerminal_NoLowNodeResetsToZero(t *testing.T) {
	nd := &Node{}
	nd.st.n, nd.st.wl = 4, 0.9
	nd.terminalType = EndOfGame

	nd.MakeNotTerminal(false)

	if got := nd.N(); got != 0 {
		t.Errorf("n = %d, want 0", got)
	}
	if got := nd.D(); got != 0 {
		t.Errorf("d = %v, want 0", got)
	}
}

func almostEqual(a, b, tol float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

func almostEqualF32(a, b, tol float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}
