package session

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPipeSession builds a session over net.Pipe. Pipe addresses are not
// unique, so each test session gets an explicit ID.
func newPipeSession(t *testing.T, id string) (*Session, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	sess := New(server)
	sess.ID = id
	return sess, client
}

func TestWriteLineReachesPeer(t *testing.T) {
	sess, peer := newPipeSession(t, "10.0.0.1:4001")

	done := make(chan string, 1)
	go func() {
		reader := bufio.NewReader(peer)
		line, err := reader.ReadString('\n')
		if err != nil {
			done <- ""
			return
		}
		done <- line
	}()

	require.NoError(t, sess.WriteLine("PUZZLE|1|2|3|4|5\n"))

	select {
	case line := <-done:
		assert.Equal(t, "PUZZLE|1|2|3|4|5\n", line)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for line")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	sess, _ := newPipeSession(t, "10.0.0.1:4002")

	require.NoError(t, sess.Close())
	assert.False(t, sess.Connected())
	assert.NoError(t, sess.Close())

	err := sess.WriteLine("anything\n")
	assert.Error(t, err)
}

func TestTouchRefreshesActivity(t *testing.T) {
	sess, _ := newPipeSession(t, "10.0.0.1:4003")

	before := sess.LastActivity()
	time.Sleep(10 * time.Millisecond)
	sess.Touch()
	assert.True(t, sess.LastActivity().After(before))
}

func TestRegistryActiveFiltering(t *testing.T) {
	reg := NewRegistry()

	a, _ := newPipeSession(t, "10.0.0.1:4004")
	b, _ := newPipeSession(t, "10.0.0.2:4005")
	reg.Put(a)
	reg.Put(b)

	assert.Equal(t, 2, reg.ActiveCount())

	require.NoError(t, b.Close())
	assert.Equal(t, 1, reg.ActiveCount())

	var seen []string
	reg.ForEachActive(func(s *Session) {
		seen = append(seen, s.ID)
	})
	assert.Equal(t, []string{a.ID}, seen)
}

func TestRegistryRemoveReportsFirstCaller(t *testing.T) {
	reg := NewRegistry()
	s, _ := newPipeSession(t, "10.0.0.1:4006")
	reg.Put(s)

	_, first := reg.Remove(s.ID)
	_, second := reg.Remove(s.ID)

	assert.True(t, first)
	assert.False(t, second)
}

func TestRegistryIdleSessions(t *testing.T) {
	reg := NewRegistry()

	idle, _ := newPipeSession(t, "10.0.0.1:4007")
	fresh, _ := newPipeSession(t, "10.0.0.2:4008")
	reg.Put(idle)
	reg.Put(fresh)

	time.Sleep(20 * time.Millisecond)
	fresh.Touch()

	stale := reg.IdleSessions(10 * time.Millisecond)
	require.Len(t, stale, 1)
	assert.Equal(t, idle.ID, stale[0].ID)
}

func TestFloodGuardEventuallyDenies(t *testing.T) {
	sess, _ := newPipeSession(t, "10.0.0.1:4009")

	denied := false
	for i := 0; i < 50; i++ {
		if !sess.Allow() {
			denied = true
			break
		}
	}
	assert.True(t, denied, "burst should exhaust the limiter")
}
