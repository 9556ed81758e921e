package protocol

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"krypto-game/internal/session"
	"krypto-game/pkg/logger"
)

func testLogger() *logger.Logger {
	l := logger.New("protocol-test")
	l.SetOutput(io.Discard)
	return l
}

func testSession(t *testing.T) (*session.Session, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	sess := session.New(server)
	sess.ID = "10.0.0.1:50000"
	return sess, client
}

func TestEncodeParseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		args []string
	}{
		{"no args", CmdListRooms, nil},
		{"one arg", CmdLogin, []string{"alice"}},
		{"two args", CmdSubmitSolution, []string{"4+3*2-1", "alice"}},
		{"expression with spaces", CmdSubmitSolution, []string{"4 + 3 * 2 - 1", "bob"}},
		{"many args", CmdPuzzle, []string{"3", "5", "2", "7", "6"}},
		{"empty trailing arg", CmdLoginFail, []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := NewMessage(tt.cmd, tt.args...).Encode()
			assert.True(t, strings.HasSuffix(wire, "\n"))
			assert.False(t, strings.HasSuffix(wire, "\n\n"), "exactly one newline")

			msg, ok := Parse(wire)
			require.True(t, ok)
			assert.Equal(t, tt.cmd, msg.Command)
			if len(tt.args) == 0 {
				assert.Empty(t, msg.Args)
			} else {
				assert.Equal(t, tt.args, msg.Args)
			}
		})
	}
}

func TestParseIgnoresNoise(t *testing.T) {
	for _, line := range []string{"", "\n", "   ", "\t", "\r\n"} {
		_, ok := Parse(line)
		assert.False(t, ok, "line %q should be noise", line)
	}
}

func TestParseStripsCarriageReturn(t *testing.T) {
	msg, ok := Parse("LOGIN|alice\r\n")
	require.True(t, ok)
	assert.Equal(t, CmdLogin, msg.Command)
	assert.Equal(t, []string{"alice"}, msg.Args)
}

func TestArgToleratesMissing(t *testing.T) {
	msg, ok := Parse("SURRENDER\n")
	require.True(t, ok)
	assert.Equal(t, "", msg.Arg(0))
	assert.Equal(t, "", msg.Arg(5))

	msg, ok = Parse("SUBMIT_SOLUTION|1+2*3-4|carol|extra|junk\n")
	require.True(t, ok)
	assert.Equal(t, "1+2*3-4", msg.Arg(0))
	assert.Equal(t, "carol", msg.Arg(1))
}

func TestDispatchRoutesToHandler(t *testing.T) {
	mux := NewMux(testLogger())
	sess, _ := testSession(t)

	var gotArgs []string
	mux.Handle(CmdSubmitSolution, func(s *session.Session, args []string) {
		gotArgs = args
	})

	handled := mux.Dispatch("SUBMIT_SOLUTION|4+3*2-1|alice", sess)
	assert.True(t, handled)
	assert.Equal(t, []string{"4+3*2-1", "alice"}, gotArgs)
}

func TestDispatchUnknownCommandKeepsConnection(t *testing.T) {
	mux := NewMux(testLogger())
	sess, _ := testSession(t)

	called := false
	mux.Handle(CmdLogin, func(s *session.Session, args []string) {
		called = true
	})

	handled := mux.Dispatch("MAKE_COFFEE|now", sess)
	assert.False(t, handled)
	assert.False(t, called)
	assert.True(t, sess.Connected())
}

func TestDispatchConsumesEmptyLinesSilently(t *testing.T) {
	mux := NewMux(testLogger())
	sess, _ := testSession(t)

	called := false
	mux.Handle(CmdLogin, func(s *session.Session, args []string) {
		called = true
	})

	assert.True(t, mux.Dispatch("", sess))
	assert.True(t, mux.Dispatch("   ", sess))
	assert.False(t, called)
}

func TestDispatchTouchesSession(t *testing.T) {
	mux := NewMux(testLogger())
	sess, _ := testSession(t)
	mux.Handle(CmdGetPuzzle, func(s *session.Session, args []string) {})

	before := sess.LastActivity()
	time.Sleep(10 * time.Millisecond)
	mux.Dispatch("GET_PUZZLE", sess)
	assert.True(t, sess.LastActivity().After(before))
}

func TestDispatchContainsHandlerPanic(t *testing.T) {
	mux := NewMux(testLogger())
	sess, peer := testSession(t)

	mux.Handle(CmdSubmitSolution, func(s *session.Session, args []string) {
		panic("exploded while scoring")
	})

	lines := make(chan string, 1)
	go func() {
		line, err := bufio.NewReader(peer).ReadString('\n')
		if err != nil {
			return
		}
		lines <- line
	}()

	assert.NotPanics(t, func() {
		mux.Dispatch("SUBMIT_SOLUTION|boom", sess)
	})
	assert.True(t, sess.Connected())

	select {
	case line := <-lines:
		msg, ok := Parse(line)
		require.True(t, ok)
		assert.Equal(t, CmdError, msg.Command)
	case <-time.After(time.Second):
		t.Fatal("no error reply after handler panic")
	}
}

func TestSendAppendsSingleNewline(t *testing.T) {
	sess, peer := testSession(t)

	lines := make(chan string, 1)
	go func() {
		line, err := bufio.NewReader(peer).ReadString('\n')
		if err != nil {
			return
		}
		lines <- line
	}()

	require.NoError(t, Send(sess, CmdGameStatus, "2", "1", "0"))

	select {
	case line := <-lines:
		assert.Equal(t, "GAME_STATUS|2|1|0\n", line)
	case <-time.After(time.Second):
		t.Fatal("no line received")
	}
}
