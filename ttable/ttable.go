// Package ttable implements the transposition table collaborator the
// search tree core's contract requires: a bounded, keyed cache from a
// 64-bit position fingerprint to a weak handle on a shared LowNode.
//
// The cache never hands out a strong reference, so it can never keep a
// dead subtree alive on its own; a lookup simply misses once the LowNode's
// last real parent has released it. Indexing follows the power-of-2,
// array-slot replacement approach of a classic chess transposition table.
package ttable

import (
	"sync"
	"weak"

	"github.com/Bonan14/lc0-sycl-bb2/mcts"
)

// Table is a bounded keyed cache from a position fingerprint to a weak
// handle on a LowNode. Slot count must be a power of two.
type Table struct {
	mu      sync.Mutex
	entries []entry
	mask    uint64

	hits   uint64
	misses uint64
}

type entry struct {
	key   uint64
	valid bool
	ptr   weak.Pointer[mcts.LowNode]
}

// New returns a Table with at least minSlots slots, rounded up to the next
// power of two.
func New(minSlots int) *Table {
	n := 1
	for n < minSlots {
		n <<= 1
	}
	return &Table{entries: make([]entry, n), mask: uint64(n - 1)}
}

func (t *Table) index(key uint64) uint64 {
	return key & t.mask
}

// Lookup returns the cached LowNode for key, or nil if there is no entry
// or its weak handle no longer upgrades (the LowNode it pointed to has
// since been destroyed). A miss here is always tolerated by the core: an
// earlier Insert gives no permanent guarantee.
func (t *Table) Lookup(key uint64) *mcts.LowNode {
	t.mu.Lock()
	e := t.entries[t.index(key)]
	t.mu.Unlock()

	if !e.valid || e.key != key {
		t.recordMiss()
		return nil
	}
	low := e.ptr.Value()
	if low == nil {
		t.recordMiss()
		return nil
	}
	t.recordHit()
	return low
}

// Insert records a weak handle to low under key, replacing whatever
// occupied that slot.
func (t *Table) Insert(key uint64, low *mcts.LowNode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[t.index(key)] = entry{key: key, valid: true, ptr: weak.Make(low)}
}

// EvictCold scans every slot and drops entries whose weak handle no longer
// upgrades, reclaiming the slot for reuse without waiting for a collision.
// Returns the number of slots cleared.
func (t *Table) EvictCold() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cleared := 0
	for i := range t.entries {
		e := &t.entries[i]
		if e.valid && e.ptr.Value() == nil {
			*e = entry{}
			cleared++
		}
	}
	return cleared
}

func (t *Table) recordHit() {
	t.mu.Lock()
	t.hits++
	t.mu.Unlock()
}

func (t *Table) recordMiss() {
	t.mu.Lock()
	t.misses++
	t.mu.Unlock()
}

// Stats reports cumulative lookup hit/miss counts, used by cmd/dashboard's
// transposition-hit-rate readout.
type Stats struct {
	Hits   uint64
	Misses uint64
}

func (t *Table) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{Hits: t.hits, Misses: t.misses}
}

// Len returns the number of slots, not the number of occupied entries.
func (t *Table) Len() int {
	return len(t.entries)
}
