package ws

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testConn(chatID, userID int64, buffer int) *Conn {
	return NewConn(nil, chatID, userID, "tester", buffer, func() {})
}

func TestRegistryNetEffect(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(testLogger())

	a := testConn(1, 10, 8)
	b := testConn(1, 11, 8)
	c := testConn(1, 12, 8)

	// Interleaved joins and leaves; the live set must equal the net effect
	reg.Join(1, a)
	reg.Join(1, b)
	reg.Leave(1, a)
	reg.Join(1, c)
	reg.Join(1, a)
	reg.Leave(1, b)

	snap := reg.Snapshot(1)
	req.ElementsMatch([]*Conn{a, c}, snap)
	req.Equal(2, reg.Count(1))
}

func TestRegistryEmptyRoomIsDeleted(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(testLogger())

	c := testConn(7, 10, 8)
	reg.Join(7, c)
	req.True(reg.Active(7))

	reg.Leave(7, c)
	req.False(reg.Active(7), "room with zero live connections must have no entry")
	req.Nil(reg.Snapshot(7))
}

func TestRegistryLeaveIsIdempotent(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(testLogger())

	c := testConn(7, 10, 8)
	reg.Join(7, c)
	reg.Leave(7, c)
	reg.Leave(7, c) // double teardown
	reg.Leave(9, c) // room never existed
	req.False(reg.Active(7))
}

func TestBroadcastDeliversToAllExactlyOnce(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(testLogger())

	conns := make([]*Conn, 5)
	for i := range conns {
		conns[i] = testConn(3, int64(20+i), 8)
		reg.Join(3, conns[i])
	}

	reg.Broadcast(3, messageEnvelope("alice", "hi", time.Now()))

	for _, c := range conns {
		req.Len(c.out, 1, "each member gets the frame exactly once")
	}
}

func TestBroadcastEmptyRoomIsNoOp(t *testing.T) {
	reg := NewRegistry(testLogger())
	// Must not panic or create a room entry
	reg.Broadcast(42, messageEnvelope("alice", "hi", time.Now()))
	require.False(t, reg.Active(42))
}

func TestBroadcastSkipsExcepted(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(testLogger())

	a := testConn(3, 20, 8)
	b := testConn(3, 21, 8)
	reg.Join(3, a)
	reg.Join(3, b)

	reg.BroadcastExcept(3, joinedEnvelope("bob", time.Now()), b)

	req.Len(a.out, 1)
	req.Len(b.out, 0)
}

func TestBroadcastSlowPeerDoesNotBlockOthers(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(testLogger())

	dropped := make(chan struct{}, 1)
	slow := NewConn(nil, 3, 20, "slow", 1, func() { dropped <- struct{}{} })
	fast := testConn(3, 21, 8)
	reg.Join(3, slow)
	reg.Join(3, fast)

	// Fill the slow peer's buffer, then broadcast twice more
	req.True(slow.enqueue([]byte("x")))
	reg.Broadcast(3, messageEnvelope("a", "1", time.Now()))
	reg.Broadcast(3, messageEnvelope("a", "2", time.Now()))

	req.Len(fast.out, 2, "healthy peer receives every frame")
	select {
	case <-dropped:
	default:
		t.Fatal("slow peer was not signalled for teardown")
	}
}

func TestBroadcastPreservesSenderOrder(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(testLogger())

	c := testConn(3, 20, 8)
	reg.Join(3, c)

	reg.Broadcast(3, messageEnvelope("a", "first", time.Now()))
	reg.Broadcast(3, messageEnvelope("a", "second", time.Now()))

	req.Contains(string(<-c.out), "first")
	req.Contains(string(<-c.out), "second")
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry(testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			room := n % 4
			c := testConn(room, 100+n, 64)
			for j := 0; j < 100; j++ {
				reg.Join(room, c)
				reg.Broadcast(room, messageEnvelope("x", "y", time.Now()))
				reg.Snapshot(room)
				reg.Leave(room, c)
			}
		}(int64(i))
	}
	wg.Wait()

	for room := int64(0); room < 4; room++ {
		require.False(t, reg.Active(room), "all rooms must be empty after the storm")
	}
}
