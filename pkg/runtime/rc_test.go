package runtime

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderLayout(t *testing.T) {
	assert.Equal(t, uintptr(16), unsafe.Sizeof(Header{}), "header is exactly 16 bytes")
	assert.Zero(t, unsafe.Sizeof(Header{})%8, "header packs on 8-byte boundaries")
}

func TestHeaderMoveFlag(t *testing.T) {
	h := newHeader(TagBigInt)
	assert.False(t, h.IsMoved())
	h.MarkMoved()
	assert.True(t, h.IsMoved())
	assert.Equal(t, TagBigInt, h.Tag())
}

func TestHeaderCounts(t *testing.T) {
	h := newHeader(TagString)
	assert.Equal(t, uint32(1), h.RefCount())
	assert.Equal(t, uint32(1), h.WeakCount(), "creation carries the self anchor")

	h.retain()
	assert.Equal(t, uint32(2), h.RefCount())
	assert.False(t, h.release())
	assert.True(t, h.release(), "last release reports the destroy transition")

	h.weakRetain()
	assert.False(t, h.weakRelease())
	assert.True(t, h.weakRelease(), "weak zero reports the free transition")
}

func TestTypeTagNames(t *testing.T) {
	assert.Equal(t, "bigint", TagBigInt.String())
	assert.Equal(t, "object", TagObject.String())
	assert.Equal(t, "unknown", TypeTag(0).String())
}

func TestSlotDispatch(t *testing.T) {
	b := BigIntFromI64(9)
	h := b.Handle()
	require.NotEqual(t, Slot(0), h)

	assert.Equal(t, uint32(1), SlotRefCount(h))
	RetainSlot(h)
	assert.Equal(t, uint32(2), SlotRefCount(h))
	ReleaseSlot(h)
	assert.Equal(t, uint32(1), SlotRefCount(h))

	ReleaseSlot(h)
	assert.Equal(t, uint32(0), SlotRefCount(h), "dead handles resolve to no object")

	// Raw scalar bits resolve to no object and are ignored.
	RetainSlot(12345)
	ReleaseSlot(12345)
	assert.Equal(t, uint32(0), SlotRefCount(12345))
}

func TestHandleUnmappedAtWeakZero(t *testing.T) {
	s := StringNew("transient")
	h := s.Handle()
	require.NotNil(t, lookupHandle(h))

	StringRelease(s)
	assert.Nil(t, lookupHandle(h), "backing storage goes away with the last weak reference")
}
