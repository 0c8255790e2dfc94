package runtime

import "strings"

// String is an immutable UTF-8 string object. Concatenation yields a new
// object; the payload is never mutated in place.
type String struct {
	hdr    Header
	handle Slot
	data   string
	dead   bool
}

func newString(s string) *String {
	obj := &String{hdr: newHeader(TagString), data: s}
	obj.handle = registerHandle(obj)
	return obj
}

// StringNew creates a string object from a Go string.
func StringNew(s string) *String { return newString(s) }

// StringFromBytes creates a string object from a byte buffer.
func StringFromBytes(b []byte) *String { return newString(string(b)) }

// StringRetain increments the strong count. Null-safe.
func StringRetain(s *String) *String {
	if s != nil {
		s.hdr.retain()
	}
	return s
}

// StringRelease decrements the strong count, destroying the payload on
// the 1->0 transition. Null-safe.
func StringRelease(s *String) {
	if s == nil {
		return
	}
	if s.hdr.release() {
		s.data = ""
		s.dead = true
		if s.hdr.weakRelease() {
			dropHandle(s.handle)
		}
	}
}

// StringClone deep-copies, yielding a distinct object with strong=1.
func StringClone(s *String) *String {
	if s == nil || s.dead {
		return nil
	}
	return newString(s.data)
}

// StringRefCount returns the strong count, 0 for nil.
func StringRefCount(s *String) uint32 {
	if s == nil {
		return 0
	}
	return s.hdr.RefCount()
}

// Handle returns the slot value naming this object.
func (s *String) Handle() Slot { return s.handle }

// StringLen returns the byte length.
func StringLen(s *String) int64 {
	if s == nil || s.dead {
		return 0
	}
	return int64(len(s.data))
}

// StringConcat returns a+b as a new object, or nil on a nil operand.
func StringConcat(a, b *String) *String {
	if a == nil || b == nil || a.dead || b.dead {
		return nil
	}
	return newString(a.data + b.data)
}

// StringEq returns 1 when the contents are equal, else 0.
func StringEq(a, b *String) int64 {
	if a == nil || b == nil || a.dead || b.dead {
		return 0
	}
	if a.data == b.data {
		return 1
	}
	return 0
}

// StringCompare orders lexicographically: -1, 0, or 1.
func StringCompare(a, b *String) int64 {
	if a == nil || b == nil || a.dead || b.dead {
		return 0
	}
	return int64(strings.Compare(a.data, b.data))
}

func (s *String) String() string {
	if s == nil || s.dead {
		return ""
	}
	return s.data
}
