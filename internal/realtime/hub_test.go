package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeClient records everything sent to it; used across the realtime tests.
type fakeClient struct {
	mu         sync.Mutex
	sent       [][]byte
	alive      bool
	pings      int
	terminated bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{alive: true}
}

func (f *fakeClient) Send(message []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.terminated {
		return false
	}
	f.sent = append(f.sent, message)
	return true
}

func (f *fakeClient) Ping() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return !f.terminated
}

func (f *fakeClient) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive
}

func (f *fakeClient) SetAlive(alive bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive = alive
}

func (f *fakeClient) Terminate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = true
}

func (f *fakeClient) messages() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

func TestHub_RegisterAndConnectionsFor(t *testing.T) {
	hub := NewHub()
	c1 := newFakeClient()
	c2 := newFakeClient()

	hub.Register("u-1", c1)
	hub.Register("u-1", c2)

	require.Len(t, hub.ConnectionsFor("u-1"), 2)
	require.Empty(t, hub.ConnectionsFor("u-2"))
	require.Equal(t, "u-1", hub.UserOf(c1))
}

func TestHub_RegisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	c := newFakeClient()

	hub.Register("u-1", c)
	hub.Register("u-1", c)

	require.Len(t, hub.ConnectionsFor("u-1"), 1)
}

func TestHub_RebindMovesClientBetweenUsers(t *testing.T) {
	hub := NewHub()
	c := newFakeClient()

	hub.Register("u-1", c)
	hub.Register("u-2", c)

	// A client belongs to at most one user's set
	require.Empty(t, hub.ConnectionsFor("u-1"))
	require.Len(t, hub.ConnectionsFor("u-2"), 1)
	require.Equal(t, "u-2", hub.UserOf(c))
}

func TestHub_UnregisterRemovesEmptyUserEntry(t *testing.T) {
	hub := NewHub()
	c := newFakeClient()

	hub.Register("u-1", c)
	hub.Unregister(c)

	require.Empty(t, hub.ConnectionsFor("u-1"))
	require.Empty(t, hub.AllConnections())
	require.Equal(t, "", hub.UserOf(c))
}

func TestHub_UnregisterUnboundClientIsNoop(t *testing.T) {
	hub := NewHub()
	c := newFakeClient()

	hub.Track(c)
	hub.Unregister(c)

	require.Empty(t, hub.AllConnections())
	require.Len(t, hub.Sessions(), 1)
}

func TestHub_TrackedButUnauthenticatedIsNotRegistered(t *testing.T) {
	hub := NewHub()
	c := newFakeClient()

	hub.Track(c)

	require.Empty(t, hub.AllConnections())
	require.Empty(t, hub.ConnectionsFor("u-1"))
	require.Len(t, hub.Sessions(), 1)
}

func TestHub_AllConnectionsSpansUsers(t *testing.T) {
	hub := NewHub()
	c1 := newFakeClient()
	c2 := newFakeClient()
	c3 := newFakeClient()

	hub.Register("u-1", c1)
	hub.Register("u-1", c2)
	hub.Register("u-2", c3)

	require.Len(t, hub.AllConnections(), 3)
}

func TestHub_UntrackRemovesFromRegistry(t *testing.T) {
	hub := NewHub()
	c := newFakeClient()

	hub.Track(c)
	hub.Register("u-1", c)
	hub.Untrack(c)

	require.Empty(t, hub.Sessions())
	require.Empty(t, hub.ConnectionsFor("u-1"))
	require.Empty(t, hub.AllConnections())
}

func TestHub_SnapshotIsIsolatedFromMutation(t *testing.T) {
	hub := NewHub()
	c1 := newFakeClient()
	c2 := newFakeClient()

	hub.Register("u-1", c1)
	snapshot := hub.AllConnections()
	hub.Register("u-2", c2)
	hub.Unregister(c1)

	// The snapshot reflects registration state at call time only
	require.Len(t, snapshot, 1)
	require.Len(t, hub.AllConnections(), 1)
}

func TestHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	clients := make([]*fakeClient, 50)
	for i := range clients {
		clients[i] = newFakeClient()
	}
	for _, c := range clients {
		wg.Add(1)
		go func(c *fakeClient) {
			defer wg.Done()
			hub.Track(c)
			hub.Register("u-1", c)
			hub.ConnectionsFor("u-1")
			hub.AllConnections()
			hub.Untrack(c)
		}(c)
	}
	wg.Wait()

	require.Empty(t, hub.Sessions())
	require.Empty(t, hub.ConnectionsFor("u-1"))
}
