package session

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newSession(addr string, port uint16) ClientSession {
	return ClientSession{
		ID:            ID(addr, port),
		RemoteAddress: addr,
		RemotePort:    port,
		ConnectedAt:   time.Now(),
		State:         Open,
	}
}

func TestRegistry_AddListInsertionOrder(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	req.NoError(r.Add(newSession("10.0.0.3", 5001)))
	req.NoError(r.Add(newSession("10.0.0.1", 5002)))
	req.NoError(r.Add(newSession("10.0.0.2", 5003)))

	list := r.List()
	req.Len(list, 3)
	req.Equal("10.0.0.3:5001", list[0].ID)
	req.Equal("10.0.0.1:5002", list[1].ID)
	req.Equal("10.0.0.2:5003", list[2].ID)
}

func TestRegistry_AddDuplicate(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	req.NoError(r.Add(newSession("10.0.0.1", 5000)))
	err := r.Add(newSession("10.0.0.1", 5000))

	req.ErrorIs(err, ErrDuplicateSession)
	req.Equal(1, r.Len())
}

func TestRegistry_AddClosedRejected(t *testing.T) {
	r := NewRegistry()
	s := newSession("10.0.0.1", 5000)
	s.State = Closed

	require.Error(t, r.Add(s))
	require.Zero(t, r.Len())
}

func TestRegistry_RemoveIdempotent(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	s := newSession("10.0.0.1", 5000)

	req.NoError(r.Add(s))
	r.Remove(s.ID)
	r.Remove(s.ID)
	r.Remove("never-added")

	req.Empty(r.List())

	// Given the id is free again, it can be reused
	req.NoError(r.Add(s))
	req.Len(r.List(), 1)
}

func TestRegistry_SetStateClosedRemoves(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	s := newSession("10.0.0.1", 5000)
	req.NoError(r.Add(s))

	req.True(r.SetState(s.ID, Errored))
	got, ok := r.Get(s.ID)
	req.True(ok)
	req.Equal(Errored, got.State)

	req.True(r.SetState(s.ID, Closed))
	_, ok = r.Get(s.ID)
	req.False(ok)
	req.False(r.SetState(s.ID, Open))
}

func TestRegistry_ListReturnsCopies(t *testing.T) {
	r := NewRegistry()
	s := newSession("10.0.0.1", 5000)
	require.NoError(t, r.Add(s))

	list := r.List()
	list[0].State = Errored

	got, _ := r.Get(s.ID)
	require.Equal(t, Open, got.State)
}

func TestRegistry_ConcurrentAddRemove(t *testing.T) {
	r := NewRegistry()
	const n = 64

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := newSession("10.0.0.1", uint16(6000+i))
			if err := r.Add(s); err != nil {
				t.Errorf("Add failed: %v", err)
				return
			}
			_ = r.List()
			if i%2 == 0 {
				r.SetState(s.ID, Closed)
			}
		}(i)
	}
	wg.Wait()

	list := r.List()
	require.Len(t, list, n/2)
	for _, s := range list {
		require.NotEqual(t, Closed, s.State)
	}
}

func TestNewFromAddr(t *testing.T) {
	now := time.Now()
	addr := &net.TCPAddr{IP: net.ParseIP("192.168.1.20"), Port: 41234}

	s, err := New(addr, now)
	require.NoError(t, err)
	require.Equal(t, "192.168.1.20:41234", s.ID)
	require.Equal(t, "192.168.1.20", s.RemoteAddress)
	require.Equal(t, uint16(41234), s.RemotePort)
	require.Equal(t, Connecting, s.State)
	require.Equal(t, now, s.ConnectedAt)
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		Connecting: "connecting",
		Open:       "open",
		Errored:    "errored",
		Closed:     "closed",
		State(42):  "unknown",
	} {
		require.Equal(t, want, state.String(), fmt.Sprintf("state %d", state))
	}
}

func TestStateText(t *testing.T) {
	req := require.New(t)

	text, err := Errored.MarshalText()
	req.NoError(err)
	req.Equal("errored", string(text))

	var st State
	req.NoError(st.UnmarshalText(text))
	req.Equal(Errored, st)
	req.Error(st.UnmarshalText([]byte("half-open")))
}
