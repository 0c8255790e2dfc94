// Package runtime implements the Bolide object model and the primitives
// generated code links against: refcounted heap objects, channels and
// select, the worker pool, and printing.
//
// Every heap object starts with a 16-byte Header carrying a strong count,
// a weak count, a type tag, and flags. Objects are created with strong=1
// and weak=1; the extra weak reference is the self anchor, dropped when the
// strong count reaches zero. Payloads are destroyed at strong 0, backing
// storage (here: the slot-handle table entry) is released at weak 0.
//
// Leaf value types (BigInt, Decimal, String, List, Tuple, Dynamic) use
// plain counters and belong to one thread at a time. User-class Objects
// use atomic counters because they are expected to cross threads through
// channels. The two flavours are never mixed on a single object.
package runtime

import "sync"

// TypeTag identifies the payload type of a heap object.
type TypeTag uint8

const (
	TagBigInt TypeTag = iota + 1
	TagDecimal
	TagString
	TagList
	TagTuple
	TagDynamic
	TagObject
)

func (t TypeTag) String() string {
	switch t {
	case TagBigInt:
		return "bigint"
	case TagDecimal:
		return "decimal"
	case TagString:
		return "string"
	case TagList:
		return "list"
	case TagTuple:
		return "tuple"
	case TagDynamic:
		return "dynamic"
	case TagObject:
		return "object"
	default:
		return "unknown"
	}
}

// FlagMoved marks a slot whose ownership has been transferred out.
// Reads through a moved slot are undefined; the slot must be cleared.
const FlagMoved uint8 = 1 << 0

// Header is the universal object header. 16 bytes, 8-aligned.
type Header struct {
	strong uint32
	weak   uint32
	tag    TypeTag
	flags  uint8
	_      [6]byte
}

func newHeader(tag TypeTag) Header {
	return Header{strong: 1, weak: 1, tag: tag}
}

// Tag returns the object's type tag.
func (h *Header) Tag() TypeTag { return h.tag }

// RefCount returns the current strong count.
func (h *Header) RefCount() uint32 { return h.strong }

// WeakCount returns the current weak count (including the self anchor
// while the object is alive).
func (h *Header) WeakCount() uint32 { return h.weak }

// IsMoved reports whether the moved flag is set.
func (h *Header) IsMoved() bool { return h.flags&FlagMoved != 0 }

// MarkMoved sets the moved flag.
func (h *Header) MarkMoved() { h.flags |= FlagMoved }

func (h *Header) retain() { h.strong++ }

// release decrements the strong count and reports whether this was the
// last strong reference (payload must be destroyed by the caller).
func (h *Header) release() bool {
	h.strong--
	return h.strong == 0
}

func (h *Header) weakRetain() { h.weak++ }

// weakRelease decrements the weak count and reports whether the backing
// storage must be freed.
func (h *Header) weakRelease() bool {
	h.weak--
	return h.weak == 0
}

// Slot is the uniform 64-bit value moved through lists, tuples, channels
// and dynamic boxes. A slot either holds raw scalar bits or a handle
// naming a heap object.
type Slot = uint64

// The handle table is the backing storage of record for slot-visible
// objects: while an object's weak count is positive its handle stays
// mapped, so a 64-bit slot value can always be turned back into the
// object. Weak release to zero unmaps the handle.
var handleTable = struct {
	mu   sync.Mutex
	next Slot
	objs map[Slot]any
}{next: 1, objs: make(map[Slot]any)}

func registerHandle(obj any) Slot {
	handleTable.mu.Lock()
	h := handleTable.next
	handleTable.next++
	handleTable.objs[h] = obj
	handleTable.mu.Unlock()
	return h
}

func lookupHandle(h Slot) any {
	handleTable.mu.Lock()
	obj := handleTable.objs[h]
	handleTable.mu.Unlock()
	return obj
}

func dropHandle(h Slot) {
	handleTable.mu.Lock()
	delete(handleTable.objs, h)
	handleTable.mu.Unlock()
}

// RetainSlot retains the object named by a slot handle. Slots holding raw
// scalar bits resolve to no object and are left untouched.
func RetainSlot(h Slot) {
	switch obj := lookupHandle(h).(type) {
	case *BigInt:
		BigIntRetain(obj)
	case *Decimal:
		DecimalRetain(obj)
	case *String:
		StringRetain(obj)
	case *List:
		ListRetain(obj)
	case *Tuple:
		TupleRetain(obj)
	case *Dynamic:
		DynamicRetain(obj)
	case *Object:
		ObjectRetain(obj)
	}
}

// ReleaseSlot releases the object named by a slot handle.
func ReleaseSlot(h Slot) {
	switch obj := lookupHandle(h).(type) {
	case *BigInt:
		BigIntRelease(obj)
	case *Decimal:
		DecimalRelease(obj)
	case *String:
		StringRelease(obj)
	case *List:
		ListRelease(obj)
	case *Tuple:
		TupleRelease(obj)
	case *Dynamic:
		DynamicRelease(obj)
	case *Object:
		ObjectRelease(obj)
	}
}

// SlotRefCount returns the strong count of the object named by a slot
// handle, or 0 when the slot holds no live object.
func SlotRefCount(h Slot) uint32 {
	switch obj := lookupHandle(h).(type) {
	case *BigInt:
		return BigIntRefCount(obj)
	case *Decimal:
		return DecimalRefCount(obj)
	case *String:
		return StringRefCount(obj)
	case *List:
		return obj.hdr.RefCount()
	case *Tuple:
		return obj.hdr.RefCount()
	case *Dynamic:
		return obj.hdr.RefCount()
	case *Object:
		return ObjectRefCount(obj)
	}
	return 0
}
