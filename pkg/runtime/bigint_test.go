package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBigIntRoundTrip(t *testing.T) {
	tests := []int64{0, 1, -1, 42, -9223372036854775808, 9223372036854775807}
	for _, v := range tests {
		b := BigIntFromI64(v)
		assert.Equal(t, v, BigIntToI64(b))
		BigIntRelease(b)
	}
}

func TestBigIntFromString(t *testing.T) {
	b := BigIntFromString("123456789012345678901234567890")
	require.NotNil(t, b)
	assert.Equal(t, "123456789012345678901234567890", b.String())

	back := BigIntFromString(b.String())
	require.NotNil(t, back)
	assert.Equal(t, int64(1), BigIntEq(b, back))

	BigIntRelease(b)
	BigIntRelease(back)

	assert.Nil(t, BigIntFromString("not a number"))
	assert.Nil(t, BigIntFromString(""))
}

func TestBigIntRefCountLifecycle(t *testing.T) {
	BigIntResetStats()

	b := BigIntFromI64(100)
	require.Equal(t, uint32(1), BigIntRefCount(b))

	BigIntRetain(b)
	assert.Equal(t, uint32(2), BigIntRefCount(b))

	BigIntRelease(b)
	assert.Equal(t, uint32(1), BigIntRefCount(b))

	BigIntRelease(b)

	allocs, frees := BigIntDebugStats()
	assert.Equal(t, allocs, frees, "every allocation must be freed")
}

func TestBigIntRetainReleaseIsNoOp(t *testing.T) {
	b := BigIntFromI64(7)
	before := BigIntRefCount(b)
	BigIntRetain(b)
	BigIntRelease(b)
	assert.Equal(t, before, BigIntRefCount(b))
	BigIntRelease(b)
}

func TestBigIntNullSafety(t *testing.T) {
	assert.Nil(t, BigIntRetain(nil))
	BigIntRelease(nil) // must not panic
	assert.Nil(t, BigIntClone(nil))
	assert.Equal(t, uint32(0), BigIntRefCount(nil))
	assert.Equal(t, int64(0), BigIntToI64(nil))
	assert.Nil(t, BigIntAdd(nil, nil))
	assert.Equal(t, int64(0), BigIntEq(nil, nil))
}

func TestBigIntArithmetic(t *testing.T) {
	tests := []struct {
		op       func(a, b *BigInt) *BigInt
		a, b     int64
		expected int64
	}{
		{BigIntAdd, 2, 3, 5},
		{BigIntSub, 10, 4, 6},
		{BigIntMul, 6, 7, 42},
		{BigIntDiv, 20, 4, 5},
		{BigIntDiv, -7, 2, -3},
		{BigIntRem, 17, 5, 2},
		{BigIntRem, -17, 5, -2},
	}
	for _, tt := range tests {
		a := BigIntFromI64(tt.a)
		b := BigIntFromI64(tt.b)
		c := tt.op(a, b)
		require.NotNil(t, c)
		assert.Equal(t, tt.expected, BigIntToI64(c))
		assert.Equal(t, uint32(1), BigIntRefCount(c), "arithmetic results start with one reference")
		BigIntRelease(a)
		BigIntRelease(b)
		BigIntRelease(c)
	}
}

func TestBigIntDivideByZero(t *testing.T) {
	a := BigIntFromI64(1)
	zero := BigIntFromI64(0)
	assert.Nil(t, BigIntDiv(a, zero))
	assert.Nil(t, BigIntRem(a, zero))
	BigIntRelease(a)
	BigIntRelease(zero)
}

func TestBigIntComparisons(t *testing.T) {
	a := BigIntFromI64(3)
	b := BigIntFromI64(5)
	assert.Equal(t, int64(0), BigIntEq(a, b))
	assert.Equal(t, int64(1), BigIntNe(a, b))
	assert.Equal(t, int64(1), BigIntLt(a, b))
	assert.Equal(t, int64(1), BigIntLe(a, b))
	assert.Equal(t, int64(0), BigIntGt(a, b))
	assert.Equal(t, int64(0), BigIntGe(a, b))
	BigIntRelease(a)
	BigIntRelease(b)
}

func TestBigIntClone(t *testing.T) {
	a := BigIntFromI64(99)
	BigIntRetain(a)

	c := BigIntClone(a)
	require.NotNil(t, c)
	assert.NotSame(t, a, c)
	assert.Equal(t, int64(1), BigIntEq(a, c))
	assert.Equal(t, uint32(1), BigIntRefCount(c), "clone has an independent refcount")
	assert.Equal(t, uint32(2), BigIntRefCount(a))

	BigIntRelease(a)
	BigIntRelease(a)
	BigIntRelease(c)
}

func TestBigIntNegAndZero(t *testing.T) {
	a := BigIntFromI64(5)
	n := BigIntNeg(a)
	assert.Equal(t, int64(-5), BigIntToI64(n))
	assert.False(t, BigIntIsZero(n))

	z := BigIntFromI64(0)
	assert.True(t, BigIntIsZero(z))

	BigIntRelease(a)
	BigIntRelease(n)
	BigIntRelease(z)
}

func TestBigIntLeakCounterBalanced(t *testing.T) {
	BigIntResetStats()

	a := BigIntFromI64(10)
	b := BigIntFromI64(20)
	sum := BigIntAdd(a, b)
	prod := BigIntMul(a, b)
	BigIntRelease(a)
	BigIntRelease(b)
	BigIntRelease(sum)
	BigIntRelease(prod)

	allocs, frees := BigIntDebugStats()
	assert.Equal(t, int64(4), allocs)
	assert.Equal(t, allocs, frees)
}
