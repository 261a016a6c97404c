// Package mcts implements the search-tree core of a neural-network-guided
// Monte Carlo Tree Search engine: the two-tier LowNode/Node graph, its
// numeric update algebra (visits, virtual loss, terminal backup and
// reversal), the 16-bit policy-prior codec, re-rooting, and the background
// Reclaimer that makes pruning O(1) on the search thread.
//
// Move generation, board rules, the selection formula (PUCT/cpuct), neural
// network inference, and search-worker orchestration all live outside this
// package; mcts only stores and updates the graph they drive.
package mcts
