package mcts

import (
	"testing"

	"github.com/Bonan14/lc0-sycl-bb2/move"
)

func newTestLowNode(n int) *LowNode {
	low := NewLowNode()
	edges := make([]Edge, n)
	for i := 0; i < n; i++ {
		edges[i] = NewEdge(move.New(uint8(i), uint8(i+1), 0), EncodeP(float32(n-i)/float32(n)))
	}
	low.edges = edges
	return low
}

func TestEdgeIterator_PairsEdgesWithNodes(t *testing.T) {
	low := newTestLowNode(3)
	spawned := low.GetOrSpawnNode(1)

	it := NewEdgeIterator(low)
	var got []*Node
	for it.Valid() {
		got = append(got, it.Node())
		it.Next()
	}
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
	if got[0] != nil || got[2] != nil {
		t.Errorf("expected only index 1 materialized, got %v %v", got[0], got[2])
	}
	if got[1] != spawned {
		t.Errorf("got[1] = %v, want spawned node %v", got[1], spawned)
	}
}

func TestGetOrSpawnNode_PreservesSortOrder(t *testing.T) {
	low := newTestLowNode(5)
	low.GetOrSpawnNode(3)
	low.GetOrSpawnNode(0)
	low.GetOrSpawnNode(4)
	low.GetOrSpawnNode(1)

	var indices []uint16
	for c := low.child; c != nil; c = c.sibling {
		indices = append(indices, c.index)
	}
	want := []uint16{0, 1, 3, 4}
	if len(indices) != len(want) {
		t.Fatalf("indices = %v, want %v", indices, want)
	}
	for i := range want {
		if indices[i] != want[i] {
			t.Errorf("indices[%d] = %d, want %d", i, indices[i], want[i])
		}
	}
}

func TestGetOrSpawnNode_ReturnsSameNodeOnRepeat(t *testing.T) {
	low := newTestLowNode(2)
	a := low.GetOrSpawnNode(0)
	b := low.GetOrSpawnNode(0)
	if a != b {
		t.Errorf("GetOrSpawnNode(0) twice returned distinct nodes")
	}
}

func TestVisitedIterator_SkipsUnvisitedAndStopsEarly(t *testing.T) {
	low := newTestLowNode(4)
	n0 := low.GetOrSpawnNode(0)
	n0.st.n = 5
	n1 := low.GetOrSpawnNode(1)
	n1.st.n = 2
	low.GetOrSpawnNode(2) // n=0, n_in_flight=0: should end iteration
	n3 := low.GetOrSpawnNode(3)
	n3.st.n = 9 // must not be reached: iterator stops at index 2

	it := NewVisitedIterator(low)
	var visited []*Node
	for {
		nd, ok := it.Next()
		if !ok {
			break
		}
		visited = append(visited, nd)
	}
	if len(visited) != 2 {
		t.Fatalf("visited = %d nodes, want 2", len(visited))
	}
	if visited[0] != n0 || visited[1] != n1 {
		t.Errorf("visited = %v, want [n0, n1]", visited)
	}
}

func TestVisitedIterator_SkipsInFlightFirstVisit(t *testing.T) {
	low := newTestLowNode(3)
	n0 := low.GetOrSpawnNode(0)
	n0.st.n = 1
	n1 := low.GetOrSpawnNode(1)
	n1.st.nInFlight = 1 // mid first-visit: skip, don't stop
	n2 := low.GetOrSpawnNode(2)
	n2.st.n = 1

	it := NewVisitedIterator(low)
	var visited []*Node
	for {
		nd, ok := it.Next()
		if !ok {
			break
		}
		visited = append(visited, nd)
	}
	if len(visited) != 2 {
		t.Fatalf("visited = %d, want 2 (n0 and n2, n1 skipped)", len(visited))
	}
	if visited[0] != n0 || visited[1] != n2 {
		t.Errorf("visited = %v, want [n0, n2]", visited)
	}
}
