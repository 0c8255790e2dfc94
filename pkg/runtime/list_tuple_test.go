package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListScalarOps(t *testing.T) {
	l := ListNew(4)
	assert.Equal(t, int64(0), ListLen(l))

	ListAppend(l, 10)
	ListAppend(l, 20)
	assert.Equal(t, int64(2), ListLen(l))
	assert.Equal(t, Slot(10), ListGet(l, 0))
	assert.Equal(t, Slot(20), ListGet(l, 1))

	ListSet(l, 0, 99)
	assert.Equal(t, Slot(99), ListGet(l, 0))

	// Out-of-range reads are safe defaults, writes are dropped.
	assert.Equal(t, Slot(0), ListGet(l, 5))
	ListSet(l, 5, 1)
	assert.Equal(t, int64(2), ListLen(l))

	ListRelease(l)
}

func TestListRefElementCounting(t *testing.T) {
	a := BigIntFromI64(1)
	b := BigIntFromI64(2)

	l := ListNewRefs(2)
	ListAppend(l, a.Handle())
	assert.Equal(t, uint32(2), BigIntRefCount(a), "append retains")

	ListSet(l, 0, b.Handle())
	assert.Equal(t, uint32(1), BigIntRefCount(a), "overwrite releases the old element")
	assert.Equal(t, uint32(2), BigIntRefCount(b))

	ListRelease(l)
	assert.Equal(t, uint32(1), BigIntRefCount(b), "list destruction releases elements")

	BigIntRelease(a)
	BigIntRelease(b)
}

func TestListClone(t *testing.T) {
	a := BigIntFromI64(5)
	l := ListNewRefs(1)
	ListAppend(l, a.Handle())

	c := ListClone(l)
	require.NotNil(t, c)
	assert.Equal(t, uint32(3), BigIntRefCount(a), "clone retains shared elements")
	assert.Equal(t, ListGet(l, 0), ListGet(c, 0))

	ListRelease(l)
	ListRelease(c)
	assert.Equal(t, uint32(1), BigIntRefCount(a))
	BigIntRelease(a)
}

func TestListNullSafety(t *testing.T) {
	assert.Nil(t, ListRetain(nil))
	ListRelease(nil)
	assert.Equal(t, int64(0), ListLen(nil))
	assert.Equal(t, Slot(0), ListGet(nil, 0))
	ListAppend(nil, 1)
}

func TestTupleConstruction(t *testing.T) {
	tp := TupleNew(3)
	assert.Equal(t, int64(3), TupleLen(tp))
	TupleSet(tp, 0, 1)
	TupleSet(tp, 1, 2)
	TupleSet(tp, 2, 3)
	assert.Equal(t, Slot(2), TupleGet(tp, 1))
	assert.Equal(t, Slot(0), TupleGet(tp, 9))
	TupleRelease(tp)
}

func TestTupleDebugStats(t *testing.T) {
	TupleResetStats()

	a := TupleNew(1)
	b := TupleNew(2)
	c := TupleClone(a)
	TupleRelease(a)
	TupleRelease(b)
	TupleRelease(c)

	allocs, frees := TupleDebugStats()
	assert.Equal(t, int64(3), allocs)
	assert.Equal(t, allocs, frees, "a correct run frees every tuple")
}

func TestTupleRefCount(t *testing.T) {
	tp := TupleNew(1)
	TupleRetain(tp)
	assert.Equal(t, uint32(2), tp.hdr.RefCount())
	TupleRelease(tp)
	TupleRelease(tp)

	assert.Nil(t, TupleClone(nil))
	assert.Equal(t, int64(0), TupleLen(nil))
}

func TestStringOps(t *testing.T) {
	a := StringNew("hello, ")
	b := StringNew("world")

	c := StringConcat(a, b)
	require.NotNil(t, c)
	assert.Equal(t, "hello, world", c.String())
	assert.Equal(t, int64(12), StringLen(c))
	assert.Equal(t, uint32(1), StringRefCount(c))

	assert.Equal(t, int64(0), StringEq(a, b))
	d := StringNew("hello, ")
	assert.Equal(t, int64(1), StringEq(a, d))
	assert.Equal(t, int64(-1), StringCompare(a, b))

	clone := StringClone(a)
	assert.NotSame(t, a, clone)
	assert.Equal(t, int64(1), StringEq(a, clone))

	for _, s := range []*String{a, b, c, d, clone} {
		StringRelease(s)
	}
	assert.Nil(t, StringConcat(nil, nil))
}

func TestDynamicBoxing(t *testing.T) {
	i := DynamicFromI64(-5)
	assert.Equal(t, DynI64, DynamicKind(i))
	assert.Equal(t, int64(-5), DynamicToI64(i))
	assert.Equal(t, "-5", DynamicRepr(i))

	f := DynamicFromF64(2.5)
	assert.Equal(t, 2.5, DynamicToF64(f))
	assert.Equal(t, "2.5", DynamicRepr(f))

	bt := DynamicFromBool(true)
	assert.True(t, DynamicToBool(bt))
	assert.Equal(t, "true", DynamicRepr(bt))

	// Mismatched unboxing yields safe defaults.
	assert.Equal(t, int64(0), DynamicToI64(f))
	assert.False(t, DynamicToBool(i))

	DynamicRelease(i)
	DynamicRelease(f)
	DynamicRelease(bt)
}

func TestDynamicRefBoxing(t *testing.T) {
	b := BigIntFromI64(77)

	d := DynamicFromRef(b.Handle(), TagBigInt)
	require.NotNil(t, d)
	assert.Equal(t, uint32(2), BigIntRefCount(b), "boxing retains the referent")
	assert.Equal(t, "77", DynamicRepr(d))

	h, tag := DynamicToRef(d)
	assert.Equal(t, b.Handle(), h)
	assert.Equal(t, TagBigInt, tag)

	c := DynamicClone(d)
	assert.Equal(t, uint32(3), BigIntRefCount(b), "cloning the box retains again")

	DynamicRelease(d)
	assert.Equal(t, uint32(2), BigIntRefCount(b), "releasing the box releases the referent")
	DynamicRelease(c)
	assert.Equal(t, uint32(1), BigIntRefCount(b))

	BigIntRelease(b)
}

func TestAllocFree(t *testing.T) {
	h := Alloc(16)
	require.NotEqual(t, Slot(0), h)

	BlockStoreI64(h, 0, 42)
	BlockStoreI64(h, 8, -1)
	assert.Equal(t, int64(42), BlockLoadI64(h, 0))
	assert.Equal(t, int64(-1), BlockLoadI64(h, 8))
	assert.Equal(t, int64(0), BlockLoadI64(h, 16), "reads past the block are zero")

	Free(h, 16)
	assert.Equal(t, int64(0), BlockLoadI64(h, 0))

	assert.Equal(t, Slot(0), Alloc(0))
	assert.Panics(t, func() { Alloc(-1) })
	Free(0, 8) // null block, no-op
}
