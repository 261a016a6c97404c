package mcts

// NNEval is the neural-network evaluation handed to a freshly-expanded
// LowNode: per-edge priors plus the position's own value/draw/moves-left
// estimate, from the perspective of the side to move at that position.
type NNEval struct {
	Edges    []Edge
	Q        float32
	D        float32
	M        float32
	NumEdges uint8
}
