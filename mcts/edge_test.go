package mcts

import (
	"testing"

	"github.com/Bonan14/lc0-sycl-bb2/move"
)

func TestSortEdges_DescendingByRawCode(t *testing.T) {
	edges := []Edge{
		NewEdge(move.New(0, 1, 0), EncodeP(0.1)),
		NewEdge(move.New(1, 2, 0), EncodeP(0.9)),
		NewEdge(move.New(2, 3, 0), EncodeP(0.5)),
	}
	SortEdges(edges)
	for i := 1; i < len(edges); i++ {
		if edges[i-1].p < edges[i].p {
			t.Fatalf("edges not sorted descending: %v", edges)
		}
	}
}

func TestSortEdges_Idempotent(t *testing.T) {
	edges := []Edge{
		NewEdge(move.New(0, 1, 0), EncodeP(0.3)),
		NewEdge(move.New(1, 2, 0), EncodeP(0.7)),
	}
	SortEdges(edges)
	first := append([]Edge(nil), edges...)
	SortEdges(edges)
	for i := range edges {
		if edges[i] != first[i] {
			t.Fatalf("SortEdges not idempotent at %d: %v vs %v", i, edges[i], first[i])
		}
	}
}

func TestEdge_GetMoveMirrors(t *testing.T) {
	e := NewEdge(move.New(8, 16, 0), EncodeP(0.5))
	if !e.GetMove(false).Equal(move.New(8, 16, 0)) {
		t.Fatalf("GetMove(false) should not mirror")
	}
	mirrored := e.GetMove(true)
	if !mirrored.Equal(move.New(8^56, 16^56, 0)) {
		t.Fatalf("GetMove(true) = %v, want mirrored", mirrored)
	}
}
