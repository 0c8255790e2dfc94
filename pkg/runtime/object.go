package runtime

import (
	"fmt"
	"sync/atomic"
)

// Object is a user-class instance: an atomic header plus a flat block of
// 8-byte field slots at known offsets. Objects are the one type expected
// to cross threads through channels, so their counts are atomic.
//
// refMask marks which field slots hold heap references; those fields are
// retained on store, released on overwrite, and released again when the
// object is destroyed. Classes with more than 64 fields keep their
// reference fields in the first 64 slots.
type Object struct {
	strong  atomic.Uint32
	weak    atomic.Uint32
	handle  Slot
	refMask uint64
	fields  []Slot
	dead    atomic.Bool
}

// ObjectAlloc allocates an instance with nFields zeroed field slots,
// strong=1 and weak=1. Panics on a negative field count: that is a
// contract violation by generated code, not a runtime condition.
func ObjectAlloc(nFields int64, refMask uint64) *Object {
	if nFields < 0 {
		panic(fmt.Sprintf("runtime: object alloc with negative field count %d", nFields))
	}
	o := &Object{refMask: refMask, fields: make([]Slot, nFields)}
	o.strong.Store(1)
	o.weak.Store(1)
	o.handle = registerHandle(o)
	return o
}

// ObjectRetain increments the strong count. Null-safe.
func ObjectRetain(o *Object) *Object {
	if o != nil {
		o.strong.Add(1)
	}
	return o
}

// ObjectRelease decrements the strong count. The 1->0 transition destroys
// the field block, releasing reference fields, and drops the self anchor.
// Null-safe.
func ObjectRelease(o *Object) {
	if o == nil {
		return
	}
	if o.strong.Add(^uint32(0)) == 0 {
		o.destroy()
		ObjectWeakRelease(o)
	}
}

func (o *Object) destroy() {
	if o.dead.Swap(true) {
		return
	}
	for i, v := range o.fields {
		if i < 64 && o.refMask&(1<<uint(i)) != 0 {
			ReleaseSlot(v)
		}
	}
	o.fields = nil
}

// ObjectClone returns the same instance with one more strong reference.
// Class instances have identity; cloning shares it.
func ObjectClone(o *Object) *Object { return ObjectRetain(o) }

// ObjectRefCount returns the strong count, 0 for nil.
func ObjectRefCount(o *Object) uint32 {
	if o == nil {
		return 0
	}
	return o.strong.Load()
}

// Handle returns the slot value naming this object.
func (o *Object) Handle() Slot { return o.handle }

// ObjectFieldGet reads the field slot at idx, or 0 out of range. The
// caller borrows any referenced object.
func ObjectFieldGet(o *Object, idx int64) Slot {
	if o == nil || o.dead.Load() || idx < 0 || idx >= int64(len(o.fields)) {
		return 0
	}
	return o.fields[idx]
}

// ObjectFieldSet writes a scalar field slot.
func ObjectFieldSet(o *Object, idx int64, v Slot) {
	if o == nil || o.dead.Load() || idx < 0 || idx >= int64(len(o.fields)) {
		return
	}
	o.fields[idx] = v
}

// ObjectFieldSetRef writes a reference field slot: the incoming object is
// retained and the overwritten one released.
func ObjectFieldSetRef(o *Object, idx int64, v Slot) {
	if o == nil || o.dead.Load() || idx < 0 || idx >= int64(len(o.fields)) {
		return
	}
	RetainSlot(v)
	ReleaseSlot(o.fields[idx])
	o.fields[idx] = v
}

// ObjectWeakRetain adds a weak reference. Null-safe.
func ObjectWeakRetain(o *Object) {
	if o != nil {
		o.weak.Add(1)
	}
}

// ObjectWeakRelease drops a weak reference; the 1->0 transition releases
// the backing storage (the handle mapping). Null-safe.
func ObjectWeakRelease(o *Object) {
	if o == nil {
		return
	}
	if o.weak.Add(^uint32(0)) == 0 {
		dropHandle(o.handle)
	}
}

// ObjectWeakUpgrade attempts to recover a strong reference from a weak
// one: a lock-free increment that succeeds only while the strong count is
// positive. Returns nil when the target is dead.
func ObjectWeakUpgrade(o *Object) *Object {
	if o == nil {
		return nil
	}
	for {
		cur := o.strong.Load()
		if cur == 0 {
			return nil
		}
		if o.strong.CompareAndSwap(cur, cur+1) {
			return o
		}
	}
}

// ObjectWeakCount returns the weak count, 0 for nil.
func ObjectWeakCount(o *Object) uint32 {
	if o == nil {
		return 0
	}
	return o.weak.Load()
}

func (o *Object) String() string {
	if o == nil || o.dead.Load() {
		return "<nil object>"
	}
	return fmt.Sprintf("#<object fields=%d>", len(o.fields))
}
