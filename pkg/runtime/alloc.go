package runtime

import (
	"fmt"
	"sync"
)

// Raw memory blocks back spawn environment frames: the compiler copies
// call arguments into a block, hands its handle to the pool task, and
// frees it when the task completes. Blocks are zeroed, exactly the
// requested size, accessed as 64-bit words at byte offsets, and addressed
// by slot handle like every other runtime value.
var rawBlocks = struct {
	mu     sync.Mutex
	next   Slot
	blocks map[Slot][]byte
}{next: 1, blocks: make(map[Slot][]byte)}

// Alloc allocates a zeroed block of size bytes and returns its handle.
// Size zero yields 0. A negative size is a contract violation by
// generated code and panics.
func Alloc(size int64) Slot {
	if size < 0 {
		panic(fmt.Sprintf("runtime: alloc with negative size %d", size))
	}
	if size == 0 {
		return 0
	}
	rawBlocks.mu.Lock()
	h := rawBlocks.next
	rawBlocks.next++
	rawBlocks.blocks[h] = make([]byte, size)
	rawBlocks.mu.Unlock()
	return h
}

// Free releases a block. Unknown handles and size mismatches are ignored;
// a handle of 0 is the null block.
func Free(h Slot, size int64) {
	if h == 0 {
		return
	}
	rawBlocks.mu.Lock()
	if b, ok := rawBlocks.blocks[h]; ok && int64(len(b)) == size {
		delete(rawBlocks.blocks, h)
	}
	rawBlocks.mu.Unlock()
}

// BlockStoreI64 writes an int64 at a byte offset inside a block. Writes
// past the block end are dropped.
func BlockStoreI64(h Slot, off int64, v int64) {
	rawBlocks.mu.Lock()
	defer rawBlocks.mu.Unlock()
	b, ok := rawBlocks.blocks[h]
	if !ok || off < 0 || off+8 > int64(len(b)) {
		return
	}
	for i := 0; i < 8; i++ {
		b[off+int64(i)] = byte(v >> (8 * uint(i)))
	}
}

// BlockLoadI64 reads an int64 at a byte offset inside a block, 0 when out
// of range.
func BlockLoadI64(h Slot, off int64) int64 {
	rawBlocks.mu.Lock()
	defer rawBlocks.mu.Unlock()
	b, ok := rawBlocks.blocks[h]
	if !ok || off < 0 || off+8 > int64(len(b)) {
		return 0
	}
	var v int64
	for i := 0; i < 8; i++ {
		v |= int64(b[off+int64(i)]) << (8 * uint(i))
	}
	return v
}
