// Package move defines the minimal move-token and position-history
// collaborator types the search tree core needs from a game implementation.
//
// This is intentionally not a chess engine: no legality checking, no SAN,
// no perft. It exists only to give NodeTree/Node/LowNode something concrete
// to exercise end to end.
package move

import "fmt"

// Move is a compact move token: a from-square and to-square on a 0..63
// board plus an optional promotion piece, the same shape lc0 uses for its
// Move type.
type Move struct {
	From  uint8
	To    uint8
	Promo byte
}

// New builds a Move from square indices and an optional promotion piece
// ('q', 'r', 'b', 'n', or 0 for none).
func New(from, to uint8, promo byte) Move {
	return Move{From: from, To: to, Promo: promo}
}

// Mirror flips the move to the opponent's perspective by flipping the rank
// of both squares, matching lc0's Move::Mirror.
func (m Move) Mirror() Move {
	return Move{From: m.From ^ 56, To: m.To ^ 56, Promo: m.Promo}
}

// Equal reports whether m and o name the same move.
func (m Move) Equal(o Move) bool {
	return m.From == o.From && m.To == o.To && m.Promo == o.Promo
}

// IsZero reports whether m is the zero-value move (used as a sentinel by
// Edge slots that have not been assigned a real move).
func (m Move) IsZero() bool {
	return m == Move{}
}

func (m Move) String() string {
	if m.Promo == 0 {
		return fmt.Sprintf("%s%s", squareName(m.From), squareName(m.To))
	}
	return fmt.Sprintf("%s%s%c", squareName(m.From), squareName(m.To), m.Promo)
}

func squareName(sq uint8) string {
	file := sq & 7
	rank := sq >> 3
	return string([]byte{'a' + file, '1' + rank})
}
