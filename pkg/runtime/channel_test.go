package runtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnbufferedSendRecv(t *testing.T) {
	ch := NewChannel()

	done := make(chan Slot)
	go func() {
		v, ok := ch.Recv()
		require.True(t, ok)
		done <- v
	}()

	require.True(t, ch.Send(42))
	assert.Equal(t, Slot(42), <-done)

	ch.Close()
	_, ok := ch.Recv()
	assert.False(t, ok, "recv on closed empty channel must report no value")
}

func TestSendAfterCloseFails(t *testing.T) {
	ch := NewChannel()
	ch.Close()
	assert.False(t, ch.Send(1))
	assert.True(t, ch.IsClosed())
}

func TestCloseIsIdempotent(t *testing.T) {
	ch := NewChannel()
	ch.Close()
	ch.Close()
	assert.True(t, ch.IsClosed())
}

func TestQueuedValuesDrainAfterClose(t *testing.T) {
	ch := NewChannel()
	for i := 1; i <= 3; i++ {
		require.True(t, ch.Send(Slot(i)))
	}
	ch.Close()

	for i := 1; i <= 3; i++ {
		v, ok := ch.Recv()
		require.True(t, ok)
		assert.Equal(t, Slot(i), v)
	}
	for i := 0; i < 2; i++ {
		_, ok := ch.Recv()
		assert.False(t, ok, "drained closed channel must stay empty")
	}
}

func TestBoundedBackpressure(t *testing.T) {
	ch := NewChannelBuffered(2)

	require.True(t, ch.Send(1))
	require.True(t, ch.Send(2))

	third := make(chan bool)
	go func() {
		third <- ch.Send(3) // blocks until a recv frees a slot
	}()

	select {
	case <-third:
		t.Fatal("send on a full bounded channel must block")
	case <-time.After(50 * time.Millisecond):
	}

	v, ok := ch.Recv()
	require.True(t, ok)
	assert.Equal(t, Slot(1), v)

	select {
	case ok := <-third:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("blocked send did not resume after recv")
	}

	v, _ = ch.Recv()
	assert.Equal(t, Slot(2), v)
	v, _ = ch.Recv()
	assert.Equal(t, Slot(3), v)

	ch.Close()
	_, ok = ch.Recv()
	assert.False(t, ok)
}

func TestCloseWakesBlockedSender(t *testing.T) {
	ch := NewChannelBuffered(1)
	require.True(t, ch.Send(1))

	result := make(chan bool)
	go func() {
		result <- ch.Send(2)
	}()
	time.Sleep(20 * time.Millisecond)
	ch.Close()

	select {
	case ok := <-result:
		assert.False(t, ok, "send must fail when the channel closes during the wait")
	case <-time.After(time.Second):
		t.Fatal("blocked send did not observe close")
	}
}

func TestTryRecvNeverBlocks(t *testing.T) {
	ch := NewChannel()
	_, ok := ch.TryRecv()
	assert.False(t, ok)

	ch.Send(7)
	v, ok := ch.TryRecv()
	require.True(t, ok)
	assert.Equal(t, Slot(7), v)
}

func TestChannelFIFOPerSender(t *testing.T) {
	ch := NewChannelBuffered(8)
	const n = 100

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			require.True(t, ch.Send(Slot(i)))
		}
	}()

	for i := 0; i < n; i++ {
		v, ok := ch.Recv()
		require.True(t, ok)
		assert.Equal(t, Slot(i), v, "single-sender stream must arrive in order")
	}
	wg.Wait()
}

func TestSelectTimeout(t *testing.T) {
	c1 := NewChannel()
	c2 := NewChannel()

	var out Slot = 999
	start := time.Now()
	idx := Select([]*Channel{c1, c2}, 50, &out)
	elapsed := time.Since(start)

	assert.Equal(t, SelectNone, idx)
	assert.Equal(t, Slot(999), out, "timeout must leave the out value untouched")
	assert.GreaterOrEqual(t, elapsed, 45*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestSelectDefault(t *testing.T) {
	c1 := NewChannel()
	var out Slot
	start := time.Now()
	idx := Select([]*Channel{c1}, NoWait, &out)
	assert.Equal(t, SelectDefault, idx)
	assert.Less(t, time.Since(start), 50*time.Millisecond, "default select must not block")
}

func TestSelectLowestIndexWins(t *testing.T) {
	c1 := NewChannel()
	c2 := NewChannel()
	c1.Send(10)
	c2.Send(20)

	var out Slot
	idx := Select([]*Channel{c1, c2}, WaitForever, &out)
	assert.Equal(t, int64(0), idx)
	assert.Equal(t, Slot(10), out)

	idx = Select([]*Channel{c1, c2}, WaitForever, &out)
	assert.Equal(t, int64(1), idx)
	assert.Equal(t, Slot(20), out)
}

func TestSelectWakesOnSend(t *testing.T) {
	c1 := NewChannel()
	go func() {
		time.Sleep(30 * time.Millisecond)
		c1.Send(5)
	}()

	var out Slot
	idx := Select([]*Channel{c1}, WaitForever, &out)
	assert.Equal(t, int64(0), idx)
	assert.Equal(t, Slot(5), out)
}

func TestSelectAllClosed(t *testing.T) {
	c1 := NewChannel()
	c2 := NewChannel()
	c1.Close()
	c2.Close()

	var out Slot
	idx := Select([]*Channel{c1, c2}, WaitForever, &out)
	assert.Equal(t, SelectNone, idx)
}

func TestSelectDrainsClosedChannel(t *testing.T) {
	c1 := NewChannel()
	c1.Send(1)
	c1.Close()

	var out Slot
	idx := Select([]*Channel{c1}, WaitForever, &out)
	assert.Equal(t, int64(0), idx)
	assert.Equal(t, Slot(1), out)

	idx = Select([]*Channel{c1}, 20, &out)
	assert.Equal(t, SelectNone, idx)
}

func TestSelectEmptySet(t *testing.T) {
	var out Slot
	assert.Equal(t, SelectNone, Select(nil, WaitForever, &out))
	assert.Equal(t, SelectNone, Select([]*Channel{nil, nil}, WaitForever, &out))
}

func TestSelectSkipsNilChannels(t *testing.T) {
	c := NewChannel()
	c.Send(3)
	var out Slot
	idx := Select([]*Channel{nil, c}, WaitForever, &out)
	assert.Equal(t, int64(1), idx)
	assert.Equal(t, Slot(3), out)
}

func TestSelectSlots(t *testing.T) {
	c := NewChannel()
	c.Send(11)
	var out Slot
	idx := SelectSlots([]Slot{c.Handle()}, WaitForever, &out)
	assert.Equal(t, int64(0), idx)
	assert.Equal(t, Slot(11), out)
}
