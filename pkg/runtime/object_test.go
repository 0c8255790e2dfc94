package runtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectLifecycle(t *testing.T) {
	o := ObjectAlloc(3, 0)
	require.NotNil(t, o)
	assert.Equal(t, uint32(1), ObjectRefCount(o))
	assert.Equal(t, uint32(1), ObjectWeakCount(o))

	ObjectRetain(o)
	assert.Equal(t, uint32(2), ObjectRefCount(o))
	ObjectRelease(o)
	assert.Equal(t, uint32(1), ObjectRefCount(o))
	ObjectRelease(o)
	assert.Equal(t, uint32(0), ObjectRefCount(o))
}

func TestObjectAllocNegativePanics(t *testing.T) {
	assert.Panics(t, func() { ObjectAlloc(-1, 0) })
}

func TestObjectScalarFields(t *testing.T) {
	o := ObjectAlloc(2, 0)
	ObjectFieldSet(o, 0, 11)
	ObjectFieldSet(o, 1, 22)
	assert.Equal(t, Slot(11), ObjectFieldGet(o, 0))
	assert.Equal(t, Slot(22), ObjectFieldGet(o, 1))

	// Out-of-range accesses are dropped, not panics.
	ObjectFieldSet(o, 5, 1)
	assert.Equal(t, Slot(0), ObjectFieldGet(o, 5))
	assert.Equal(t, Slot(0), ObjectFieldGet(o, -1))

	ObjectRelease(o)
}

func TestObjectRefFieldStoreAndOverwrite(t *testing.T) {
	a := BigIntFromI64(1)
	b := BigIntFromI64(2)

	o := ObjectAlloc(1, 1) // field 0 is a reference field
	ObjectFieldSetRef(o, 0, a.Handle())
	assert.Equal(t, uint32(2), BigIntRefCount(a), "store retains")

	ObjectFieldSetRef(o, 0, b.Handle())
	assert.Equal(t, uint32(1), BigIntRefCount(a), "overwrite releases the old value")
	assert.Equal(t, uint32(2), BigIntRefCount(b))

	ObjectRelease(o)
	assert.Equal(t, uint32(1), BigIntRefCount(b), "destroy releases reference fields")

	BigIntRelease(a)
	BigIntRelease(b)
}

func TestObjectCloneSharesIdentity(t *testing.T) {
	o := ObjectAlloc(1, 0)
	ObjectFieldSet(o, 0, 7)

	c := ObjectClone(o)
	assert.Same(t, o, c)
	assert.Equal(t, uint32(2), ObjectRefCount(o))

	ObjectFieldSet(c, 0, 9)
	assert.Equal(t, Slot(9), ObjectFieldGet(o, 0))

	ObjectRelease(o)
	ObjectRelease(c)
}

func TestObjectWeakUpgrade(t *testing.T) {
	o := ObjectAlloc(1, 0)
	ObjectWeakRetain(o)
	assert.Equal(t, uint32(2), ObjectWeakCount(o))

	up := ObjectWeakUpgrade(o)
	require.NotNil(t, up)
	assert.Equal(t, uint32(2), ObjectRefCount(o))
	ObjectRelease(up)

	ObjectRelease(o) // strong hits zero, payload destroyed
	assert.Nil(t, ObjectWeakUpgrade(o), "upgrade after death must fail")

	ObjectWeakRelease(o) // drops the last weak reference
}

func TestObjectAtomicRetainRelease(t *testing.T) {
	o := ObjectAlloc(1, 0)

	const goroutines = 8
	const rounds = 1000
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				ObjectRetain(o)
				ObjectRelease(o)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint32(1), ObjectRefCount(o))
	ObjectRelease(o)
}

func TestObjectNullSafety(t *testing.T) {
	assert.Nil(t, ObjectRetain(nil))
	ObjectRelease(nil)
	ObjectWeakRetain(nil)
	ObjectWeakRelease(nil)
	assert.Nil(t, ObjectWeakUpgrade(nil))
	assert.Equal(t, uint32(0), ObjectRefCount(nil))
	assert.Equal(t, Slot(0), ObjectFieldGet(nil, 0))
}

func TestObjectCrossesChannel(t *testing.T) {
	o := ObjectAlloc(1, 0)
	ObjectFieldSet(o, 0, 123)

	ch := NewChannel()
	// Sender's reference travels with the handle; no count traffic in
	// the channel itself.
	go ch.Send(o.Handle())

	h, ok := ch.Recv()
	require.True(t, ok)
	got, ok := lookupHandle(h).(*Object)
	require.True(t, ok)
	assert.Equal(t, Slot(123), ObjectFieldGet(got, 0))
	assert.Equal(t, uint32(1), ObjectRefCount(got))

	ObjectRelease(got)
	ch.Close()
}
