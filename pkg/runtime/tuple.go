package runtime

import (
	"fmt"
	"strings"
	"sync/atomic"
)

var (
	tupleAllocCount atomic.Int64
	tupleFreeCount  atomic.Int64
)

// Tuple is a fixed-length array of 64-bit slots, written once during
// construction. Slots are raw bits; when a slot carries a handle the
// constructor-side code accounts for its reference.
type Tuple struct {
	hdr    Header
	handle Slot
	elems  []Slot
	dead   bool
}

// TupleNew allocates a tuple of length n with zeroed slots.
func TupleNew(n int64) *Tuple {
	if n < 0 {
		n = 0
	}
	tupleAllocCount.Add(1)
	t := &Tuple{hdr: newHeader(TagTuple), elems: make([]Slot, n)}
	t.handle = registerHandle(t)
	return t
}

// TupleRetain increments the strong count. Null-safe.
func TupleRetain(t *Tuple) *Tuple {
	if t != nil {
		t.hdr.retain()
	}
	return t
}

// TupleRelease decrements the strong count, destroying the payload on the
// 1->0 transition. Null-safe.
func TupleRelease(t *Tuple) {
	if t == nil {
		return
	}
	if t.hdr.release() {
		t.elems = nil
		t.dead = true
		tupleFreeCount.Add(1)
		if t.hdr.weakRelease() {
			dropHandle(t.handle)
		}
	}
}

// TupleClone copies the slots into a fresh tuple with strong=1.
func TupleClone(t *Tuple) *Tuple {
	if t == nil || t.dead {
		return nil
	}
	out := TupleNew(int64(len(t.elems)))
	copy(out.elems, t.elems)
	return out
}

// Handle returns the slot value naming this object.
func (t *Tuple) Handle() Slot { return t.handle }

// TupleLen returns the slot count.
func TupleLen(t *Tuple) int64 {
	if t == nil || t.dead {
		return 0
	}
	return int64(len(t.elems))
}

// TupleGet returns the slot at i, or 0 out of range.
func TupleGet(t *Tuple, i int64) Slot {
	if t == nil || t.dead || i < 0 || i >= int64(len(t.elems)) {
		return 0
	}
	return t.elems[i]
}

// TupleSet writes the slot at i. Intended for construction only; tuples
// are immutable once built.
func TupleSet(t *Tuple, i int64, v Slot) {
	if t == nil || t.dead || i < 0 || i >= int64(len(t.elems)) {
		return
	}
	t.elems[i] = v
}

func (t *Tuple) String() string {
	if t == nil || t.dead {
		return "<nil tuple>"
	}
	var sb strings.Builder
	sb.WriteByte('(')
	for i, e := range t.elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		if lookupHandle(e) != nil {
			sb.WriteString(reprSlot(e))
		} else {
			fmt.Fprintf(&sb, "%d", int64(e))
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

// TupleDebugStats returns (allocations, frees) since process start or the
// last reset.
func TupleDebugStats() (allocs, frees int64) {
	return tupleAllocCount.Load(), tupleFreeCount.Load()
}

// TupleResetStats zeroes the allocation counters.
func TupleResetStats() {
	tupleAllocCount.Store(0)
	tupleFreeCount.Store(0)
}
