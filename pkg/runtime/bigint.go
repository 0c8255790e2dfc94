package runtime

import (
	"math/big"
	"sync/atomic"
)

// Allocation tracking for leak tests. A correct program ends with
// alloc == free.
var (
	bigIntAllocCount atomic.Int64
	bigIntFreeCount  atomic.Int64
)

// BigInt is an immutable arbitrary-precision integer. Arithmetic always
// produces a fresh object with strong=1.
type BigInt struct {
	hdr    Header
	handle Slot
	inner  *big.Int
}

func newBigInt(v *big.Int) *BigInt {
	bigIntAllocCount.Add(1)
	b := &BigInt{hdr: newHeader(TagBigInt), inner: v}
	b.handle = registerHandle(b)
	return b
}

// BigIntFromI64 creates a BigInt from a 64-bit integer.
func BigIntFromI64(v int64) *BigInt {
	return newBigInt(big.NewInt(v))
}

// BigIntFromString parses a base-10 BigInt. Returns nil on malformed input.
func BigIntFromString(s string) *BigInt {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return newBigInt(v)
}

// BigIntRetain increments the strong count. Null-safe.
func BigIntRetain(b *BigInt) *BigInt {
	if b != nil {
		b.hdr.retain()
	}
	return b
}

// BigIntRelease decrements the strong count. On the 1->0 transition the
// payload is destroyed and the self anchor dropped; when the weak count
// reaches zero the handle is unmapped. Null-safe.
func BigIntRelease(b *BigInt) {
	if b == nil {
		return
	}
	if b.hdr.release() {
		b.inner = nil
		bigIntFreeCount.Add(1)
		if b.hdr.weakRelease() {
			dropHandle(b.handle)
		}
	}
}

// BigIntClone deep-copies, yielding a distinct object with strong=1.
func BigIntClone(b *BigInt) *BigInt {
	if b == nil || b.inner == nil {
		return nil
	}
	return newBigInt(new(big.Int).Set(b.inner))
}

// BigIntRefCount returns the strong count, 0 for nil.
func BigIntRefCount(b *BigInt) uint32 {
	if b == nil {
		return 0
	}
	return b.hdr.RefCount()
}

// Handle returns the slot value naming this object.
func (b *BigInt) Handle() Slot { return b.handle }

// BigIntToI64 returns the value as an int64. Returns 0 for nil or
// destroyed payloads and for values outside the int64 range.
func BigIntToI64(b *BigInt) int64 {
	if b == nil || b.inner == nil {
		return 0
	}
	if !b.inner.IsInt64() {
		return 0
	}
	return b.inner.Int64()
}

// BigIntToF64 converts to float64, with the usual precision loss.
func BigIntToF64(b *BigInt) float64 {
	if b == nil || b.inner == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(b.inner).Float64()
	return f
}

// BigIntIsZero reports whether the value is zero.
func BigIntIsZero(b *BigInt) bool {
	return b != nil && b.inner != nil && b.inner.Sign() == 0
}

func (b *BigInt) String() string {
	if b == nil || b.inner == nil {
		return "<nil bigint>"
	}
	return b.inner.String()
}

func bigIntBinOp(a, b *BigInt, op func(z, x, y *big.Int) *big.Int) *BigInt {
	if a == nil || b == nil || a.inner == nil || b.inner == nil {
		return nil
	}
	return newBigInt(op(new(big.Int), a.inner, b.inner))
}

// BigIntAdd returns a+b as a new object, or nil on a nil operand.
func BigIntAdd(a, b *BigInt) *BigInt { return bigIntBinOp(a, b, (*big.Int).Add) }

// BigIntSub returns a-b.
func BigIntSub(a, b *BigInt) *BigInt { return bigIntBinOp(a, b, (*big.Int).Sub) }

// BigIntMul returns a*b.
func BigIntMul(a, b *BigInt) *BigInt { return bigIntBinOp(a, b, (*big.Int).Mul) }

// BigIntDiv returns a/b truncated toward zero, or nil when b is zero.
func BigIntDiv(a, b *BigInt) *BigInt {
	if b == nil || b.inner == nil || b.inner.Sign() == 0 {
		return nil
	}
	return bigIntBinOp(a, b, (*big.Int).Quo)
}

// BigIntRem returns a%b with the sign of a, or nil when b is zero.
func BigIntRem(a, b *BigInt) *BigInt {
	if b == nil || b.inner == nil || b.inner.Sign() == 0 {
		return nil
	}
	return bigIntBinOp(a, b, (*big.Int).Rem)
}

// BigIntNeg returns -a.
func BigIntNeg(a *BigInt) *BigInt {
	if a == nil || a.inner == nil {
		return nil
	}
	return newBigInt(new(big.Int).Neg(a.inner))
}

// bigIntCmp compares two live BigInts; ok is false on a nil operand, and
// every comparison then answers 0.
func bigIntCmp(a, b *BigInt) (int, bool) {
	if a == nil || b == nil || a.inner == nil || b.inner == nil {
		return 0, false
	}
	return a.inner.Cmp(b.inner), true
}

func boolToI64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func BigIntEq(a, b *BigInt) int64 {
	c, ok := bigIntCmp(a, b)
	return boolToI64(ok && c == 0)
}

func BigIntNe(a, b *BigInt) int64 {
	c, ok := bigIntCmp(a, b)
	return boolToI64(ok && c != 0)
}

func BigIntLt(a, b *BigInt) int64 {
	c, ok := bigIntCmp(a, b)
	return boolToI64(ok && c < 0)
}

func BigIntLe(a, b *BigInt) int64 {
	c, ok := bigIntCmp(a, b)
	return boolToI64(ok && c <= 0)
}

func BigIntGt(a, b *BigInt) int64 {
	c, ok := bigIntCmp(a, b)
	return boolToI64(ok && c > 0)
}

func BigIntGe(a, b *BigInt) int64 {
	c, ok := bigIntCmp(a, b)
	return boolToI64(ok && c >= 0)
}

// BigIntDebugStats returns (allocations, frees) since process start or the
// last reset.
func BigIntDebugStats() (allocs, frees int64) {
	return bigIntAllocCount.Load(), bigIntFreeCount.Load()
}

// BigIntResetStats zeroes the allocation counters.
func BigIntResetStats() {
	bigIntAllocCount.Store(0)
	bigIntFreeCount.Store(0)
}
