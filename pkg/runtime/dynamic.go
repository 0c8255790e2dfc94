package runtime

import (
	"fmt"
	"math"
)

// DynKind tags the value currently boxed in a Dynamic.
type DynKind uint8

const (
	DynNone DynKind = iota
	DynI64
	DynF64
	DynBool
	DynRef // heap object, named by a slot handle
)

// Dynamic boxes any runtime value: a raw scalar or a handle to a heap
// object together with that object's type tag. Boxing a heap object takes
// a retain on it; releasing the box forwards the release to the referent.
type Dynamic struct {
	hdr    Header
	handle Slot
	kind   DynKind
	refTag TypeTag // valid when kind == DynRef
	word   Slot
	dead   bool
}

func newDynamic(kind DynKind, refTag TypeTag, word Slot) *Dynamic {
	d := &Dynamic{hdr: newHeader(TagDynamic), kind: kind, refTag: refTag, word: word}
	d.handle = registerHandle(d)
	return d
}

// DynamicFromI64 boxes an integer.
func DynamicFromI64(v int64) *Dynamic { return newDynamic(DynI64, 0, Slot(v)) }

// DynamicFromF64 boxes a float.
func DynamicFromF64(v float64) *Dynamic { return newDynamic(DynF64, 0, math.Float64bits(v)) }

// DynamicFromBool boxes a bool.
func DynamicFromBool(v bool) *Dynamic {
	var w Slot
	if v {
		w = 1
	}
	return newDynamic(DynBool, 0, w)
}

// DynamicFromRef boxes a heap object by handle, retaining it. The tag must
// name the referent's type. Returns nil when the handle is dead.
func DynamicFromRef(h Slot, tag TypeTag) *Dynamic {
	if lookupHandle(h) == nil {
		return nil
	}
	RetainSlot(h)
	return newDynamic(DynRef, tag, h)
}

// DynamicRetain increments the strong count. Null-safe.
func DynamicRetain(d *Dynamic) *Dynamic {
	if d != nil {
		d.hdr.retain()
	}
	return d
}

// DynamicRelease decrements the strong count; destroying the box forwards
// one release to a boxed heap referent. Null-safe.
func DynamicRelease(d *Dynamic) {
	if d == nil {
		return
	}
	if d.hdr.release() {
		if d.kind == DynRef {
			ReleaseSlot(d.word)
		}
		d.kind = DynNone
		d.word = 0
		d.dead = true
		if d.hdr.weakRelease() {
			dropHandle(d.handle)
		}
	}
}

// DynamicClone copies the box; a boxed referent gains one retain.
func DynamicClone(d *Dynamic) *Dynamic {
	if d == nil || d.dead {
		return nil
	}
	if d.kind == DynRef {
		RetainSlot(d.word)
	}
	return newDynamic(d.kind, d.refTag, d.word)
}

// Handle returns the slot value naming this object.
func (d *Dynamic) Handle() Slot { return d.handle }

// DynamicKind returns the tag of the boxed value.
func DynamicKind(d *Dynamic) DynKind {
	if d == nil || d.dead {
		return DynNone
	}
	return d.kind
}

// DynamicToI64 unboxes an integer; non-integer boxes yield 0.
func DynamicToI64(d *Dynamic) int64 {
	if d == nil || d.dead || d.kind != DynI64 {
		return 0
	}
	return int64(d.word)
}

// DynamicToF64 unboxes a float; non-float boxes yield 0.
func DynamicToF64(d *Dynamic) float64 {
	if d == nil || d.dead || d.kind != DynF64 {
		return 0
	}
	return math.Float64frombits(d.word)
}

// DynamicToBool unboxes a bool; non-bool boxes yield false.
func DynamicToBool(d *Dynamic) bool {
	return d != nil && !d.dead && d.kind == DynBool && d.word != 0
}

// DynamicToRef unboxes a heap handle and its type tag; scalar boxes yield
// (0, 0). The caller receives no extra retain.
func DynamicToRef(d *Dynamic) (Slot, TypeTag) {
	if d == nil || d.dead || d.kind != DynRef {
		return 0, 0
	}
	return d.word, d.refTag
}

// DynamicRepr renders the boxed value for printing.
func DynamicRepr(d *Dynamic) string {
	if d == nil || d.dead {
		return "none"
	}
	switch d.kind {
	case DynI64:
		return fmt.Sprintf("%d", int64(d.word))
	case DynF64:
		return fmt.Sprintf("%g", math.Float64frombits(d.word))
	case DynBool:
		if d.word != 0 {
			return "true"
		}
		return "false"
	case DynRef:
		switch obj := lookupHandle(d.word).(type) {
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
		case *Object:
			return obj.String()
		}
		return "<dead ref>"
	default:
		return "none"
	}
}
