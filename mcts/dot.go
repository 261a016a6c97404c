package mcts

import (
	"fmt"
	"strings"
)

// DotGraphString renders the subtree rooted at n as a Graphviz "dot"
// digraph: square nodes for evaluated positions, point nodes for
// unevaluated leaves, and edge labels carrying the move, prior, N, W, D, M
// and bounds. This is observational only — nothing in this repo parses it
// back.
func (n *Node) DotGraphString() string {
	var b strings.Builder
	b.WriteString("digraph tree {\n")
	writeDotNode(&b, n, "root")
	writeDotChildren(&b, n, "root")
	b.WriteString("}\n")
	return b.String()
}

func writeDotNode(b *strings.Builder, n *Node, id string) {
	shape := "point"
	if n.lowNode != nil && n.lowNode.HasEdges() {
		shape = "square"
	}
	fmt.Fprintf(b, "  %s [shape=%s, label=\"%s\"];\n", id, shape, escapeDotLabel(n.DebugString()))
}

func writeDotChildren(b *strings.Builder, n *Node, id string) {
	if n.lowNode == nil {
		return
	}
	n.lowNode.mu.Lock()
	edges := n.lowNode.edges
	child := n.lowNode.child
	n.lowNode.mu.Unlock()

	for c := child; c != nil; c = c.sibling {
		cid := fmt.Sprintf("%s_%d", id, c.index)
		writeDotNode(b, c, cid)
		e := edges[c.index]
		lower, upper := c.Bounds()
		label := fmt.Sprintf("%s p=%.4f n=%d w=%.4f d=%.3f m=%.2f bounds=[%s,%s]",
			e.String(), e.GetP(), c.N(), c.WL(), c.D(), c.M(), lower, upper)
		fmt.Fprintf(b, "  %s -> %s [label=\"%s\"];\n", id, cid, escapeDotLabel(label))
		writeDotChildren(b, c, cid)
	}
}

func escapeDotLabel(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
