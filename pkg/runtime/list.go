package runtime

import (
	"fmt"
	"strings"
)

// List is a growable sequence of 64-bit slots. A list is created either
// as a scalar list (slots are raw bits) or a reference list (slots are
// handles to heap objects of one runtime type); element writes on a
// reference list retain the incoming object and release the one they
// overwrite, and destroying the list releases every element.
type List struct {
	hdr    Header
	handle Slot
	refs   bool
	elems  []Slot
	dead   bool
}

func newList(capacity int64, refs bool) *List {
	if capacity < 0 {
		capacity = 0
	}
	l := &List{hdr: newHeader(TagList), refs: refs, elems: make([]Slot, 0, capacity)}
	l.handle = registerHandle(l)
	return l
}

// ListNew creates a scalar list with the given capacity hint.
func ListNew(capacity int64) *List { return newList(capacity, false) }

// ListNewRefs creates a reference list with the given capacity hint.
func ListNewRefs(capacity int64) *List { return newList(capacity, true) }

// ListRetain increments the strong count. Null-safe.
func ListRetain(l *List) *List {
	if l != nil {
		l.hdr.retain()
	}
	return l
}

// ListRelease decrements the strong count; destroying a reference list
// releases every element. Null-safe.
func ListRelease(l *List) {
	if l == nil {
		return
	}
	if l.hdr.release() {
		if l.refs {
			for _, e := range l.elems {
				ReleaseSlot(e)
			}
		}
		l.elems = nil
		l.dead = true
		if l.hdr.weakRelease() {
			dropHandle(l.handle)
		}
	}
}

// ListClone deep-copies: a reference list retains each element once for
// the copy.
func ListClone(l *List) *List {
	if l == nil || l.dead {
		return nil
	}
	out := newList(int64(len(l.elems)), l.refs)
	out.elems = append(out.elems, l.elems...)
	if l.refs {
		for _, e := range out.elems {
			RetainSlot(e)
		}
	}
	return out
}

// Handle returns the slot value naming this object.
func (l *List) Handle() Slot { return l.handle }

// ListLen returns the element count.
func ListLen(l *List) int64 {
	if l == nil || l.dead {
		return 0
	}
	return int64(len(l.elems))
}

// ListGet returns the slot at i, or 0 out of range. No retain is taken;
// the caller borrows.
func ListGet(l *List, i int64) Slot {
	if l == nil || l.dead || i < 0 || i >= int64(len(l.elems)) {
		return 0
	}
	return l.elems[i]
}

// ListSet overwrites the slot at i. On a reference list the new element is
// retained and the old one released. Out-of-range writes are dropped.
func ListSet(l *List, i int64, v Slot) {
	if l == nil || l.dead || i < 0 || i >= int64(len(l.elems)) {
		return
	}
	if l.refs {
		RetainSlot(v)
		ReleaseSlot(l.elems[i])
	}
	l.elems[i] = v
}

// ListAppend pushes a slot, retaining it on a reference list.
func ListAppend(l *List, v Slot) {
	if l == nil || l.dead {
		return
	}
	if l.refs {
		RetainSlot(v)
	}
	l.elems = append(l.elems, v)
}

func (l *List) String() string {
	if l == nil || l.dead {
		return "<nil list>"
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range l.elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		if l.refs {
			sb.WriteString(reprSlot(e))
		} else {
			fmt.Fprintf(&sb, "%d", int64(e))
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

func reprSlot(h Slot) string {
	switch obj := lookupHandle(h).(type) {
	case *BigInt:
		return obj.String()
	case *Decimal:
		return obj.String()
	case *String:
		return obj.String()
	case *List:
		return obj.String()
	case *Tuple:
		return obj.String()
	case *Dynamic:
		return DynamicRepr(obj)
	case *Object:
		return obj.String()
	}
	return "<dead ref>"
}
