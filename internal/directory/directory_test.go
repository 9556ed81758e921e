package directory

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"krypto-game/internal/protocol"
	"krypto-game/internal/supervisor"
	"krypto-game/pkg/logger"
)

func testLogger() *logger.Logger {
	l := logger.New("directory-test")
	l.SetOutput(io.Discard)
	return l
}

// fakeProc is one fabricated room process: the directory holds the pipe
// ends a real child would expose, the test holds the child's own ends.
type fakeProc struct {
	proc         *supervisor.RoomProcess
	controlWrite *io.PipeWriter
	supplyFrames chan string
}

// sendControl emits one control frame as the room process would.
func (f *fakeProc) sendControl(t *testing.T, format string, args ...interface{}) {
	t.Helper()
	_, err := fmt.Fprintf(f.controlWrite, format+"\n", args...)
	require.NoError(t, err)
}

// nextSupplyFrame returns the next line the directory pushed to stdin.
func (f *fakeProc) nextSupplyFrame(t *testing.T) string {
	t.Helper()
	select {
	case line, ok := <-f.supplyFrames:
		require.True(t, ok, "supply pipe closed")
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a supply frame")
		return ""
	}
}

func (f *fakeProc) assertNoSupplyFrame(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case line, ok := <-f.supplyFrames:
		if ok {
			t.Fatalf("unexpected supply frame %q", line)
		}
	case <-time.After(d):
	}
}

// assertSupplyClosed requires the directory to have closed the supply end,
// which Terminate does.
func (f *fakeProc) assertSupplyClosed(t *testing.T) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-f.supplyFrames:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("supply pipe still open")
			return
		}
	}
}

type fakeLauncher struct {
	mu       sync.Mutex
	calls    int
	failWith error
	procs    []*fakeProc
	nextPID  int
}

func (f *fakeLauncher) CreateRoom(name, mode string, maxPlayers int) (*supervisor.RoomProcess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.failWith != nil {
		return nil, f.failWith
	}

	supplyRead, supplyWrite := io.Pipe()
	controlRead, controlWrite := io.Pipe()
	f.nextPID++

	fp := &fakeProc{
		proc: &supervisor.RoomProcess{
			PID:     f.nextPID,
			Port:    6000 + f.nextPID,
			Supply:  supplyWrite,
			Control: controlRead,
		},
		controlWrite: controlWrite,
		supplyFrames: make(chan string, 32),
	}
	go func() {
		sc := bufio.NewScanner(supplyRead)
		for sc.Scan() {
			fp.supplyFrames <- sc.Text()
		}
		close(fp.supplyFrames)
	}()

	f.procs = append(f.procs, fp)
	return fp.proc, nil
}

func (f *fakeLauncher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLauncher) lastProc() *fakeProc {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.procs[len(f.procs)-1]
}

func startDirectory(t *testing.T, cfg Config, launcher RoomLauncher) *Directory {
	t.Helper()
	cfg.Host = "127.0.0.1"

	d := New(cfg, launcher, testLogger())
	require.NoError(t, d.Start())
	t.Cleanup(d.Stop)
	return d
}

type testClient struct {
	t      *testing.T
	conn   net.Conn
	frames chan protocol.Message
}

func dialDirectory(t *testing.T, d *Directory) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", d.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &testClient{t: t, conn: conn, frames: make(chan protocol.Message, 64)}
	go func() {
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			if msg, ok := protocol.Parse(sc.Text()); ok {
				c.frames <- msg
			}
		}
		close(c.frames)
	}()
	return c
}

func (c *testClient) send(cmd protocol.Command, args ...string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(protocol.NewMessage(cmd, args...).Encode()))
	require.NoError(c.t, err)
}

func (c *testClient) next() protocol.Message {
	c.t.Helper()
	select {
	case msg, ok := <-c.frames:
		require.True(c.t, ok, "connection closed while waiting for a frame")
		return msg
	case <-time.After(2 * time.Second):
		c.t.Fatal("timed out waiting for a frame")
		return protocol.Message{}
	}
}

// login runs a successful LOGIN exchange.
func login(t *testing.T, c *testClient, username string) {
	t.Helper()
	c.send(protocol.CmdLogin, username)
	msg := c.next()
	require.Equal(t, protocol.CmdLoginSuccess, msg.Command)
}

// createRoom runs a successful CREATE_ROOM exchange and returns the id.
func createRoom(t *testing.T, c *testClient, name, mode string) string {
	t.Helper()
	c.send(protocol.CmdCreateRoom, name, mode)
	msg := c.next()
	require.Equal(t, protocol.CmdCreateSuccess, msg.Command)
	require.Len(t, msg.Arg(0), 4)
	return msg.Arg(0)
}

func TestLoginValidation(t *testing.T) {
	d := startDirectory(t, Config{}, &fakeLauncher{})
	c := dialDirectory(t, d)

	tests := []struct {
		name     string
		username string
		want     protocol.Command
	}{
		{"accepted", "alice", protocol.CmdLoginSuccess},
		{"too short", "al", protocol.CmdLoginFail},
		{"empty", "", protocol.CmdLoginFail},
		{"too long", strings.Repeat("a", 21), protocol.CmdLoginFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.send(protocol.CmdLogin, tt.username)
			assert.Equal(t, tt.want, c.next().Command)
		})
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	d := startDirectory(t, Config{}, &fakeLauncher{})
	alice := dialDirectory(t, d)
	login(t, alice, "alice")

	other := dialDirectory(t, d)
	other.send(protocol.CmdLogin, "alice")
	msg := other.next()
	assert.Equal(t, protocol.CmdLoginFail, msg.Command)
	assert.Equal(t, "Username already taken", msg.Arg(0))
}

func TestLogoutFreesUsername(t *testing.T) {
	d := startDirectory(t, Config{}, &fakeLauncher{})

	first := dialDirectory(t, d)
	login(t, first, "alice")
	first.send(protocol.CmdLogout)

	require.Eventually(t, func() bool {
		return d.players.Count() == 0
	}, time.Second, 10*time.Millisecond)

	second := dialDirectory(t, d)
	login(t, second, "alice")
}

func TestDisconnectWithoutLogoutFreesUsername(t *testing.T) {
	d := startDirectory(t, Config{}, &fakeLauncher{})

	first := dialDirectory(t, d)
	login(t, first, "bob")
	first.conn.Close()

	require.Eventually(t, func() bool {
		return d.players.Count() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestListRoomsEmptyAndPopulated(t *testing.T) {
	launcher := &fakeLauncher{}
	d := startDirectory(t, Config{}, launcher)
	c := dialDirectory(t, d)
	login(t, c, "alice")

	c.send(protocol.CmdListRooms)
	msg := c.next()
	require.Equal(t, protocol.CmdRoomList, msg.Command)
	assert.Equal(t, []string{"No rooms available"}, msg.Args)

	id := createRoom(t, c, "alpha", "classic")

	c.send(protocol.CmdListRooms)
	msg = c.next()
	require.Equal(t, protocol.CmdRoomList, msg.Command)
	require.Len(t, msg.Args, 1)
	entry := msg.Arg(0)
	assert.Contains(t, entry, "ID: "+id)
	assert.Contains(t, entry, "Name: alpha")
	assert.Contains(t, entry, "Mode: classic")
	assert.Contains(t, entry, "Players: 0/4")
}

func TestCreateRoomValidation(t *testing.T) {
	launcher := &fakeLauncher{}
	d := startDirectory(t, Config{}, launcher)
	c := dialDirectory(t, d)

	tests := []struct {
		name   string
		args   []string
		reason string
	}{
		{"short name", []string{"ab", "classic"}, "Invalid room name (minimum 3 characters)"},
		{"bad mode", []string{"alpha", "speedrun"}, "Invalid game mode (must be 'classic' or 'competitive')"},
		{"zero players", []string{"alpha", "classic", "0"}, "Invalid max players (1-8)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.send(protocol.CmdCreateRoom, tt.args...)
			msg := c.next()
			assert.Equal(t, protocol.CmdCreateFail, msg.Command)
			assert.Equal(t, tt.reason, msg.Arg(0))
		})
	}
	assert.Equal(t, 0, launcher.callCount())
}

func TestCreateRoomPrefillsSupply(t *testing.T) {
	launcher := &fakeLauncher{}
	d := startDirectory(t, Config{}, launcher)
	c := dialDirectory(t, d)
	login(t, c, "alice")

	createRoom(t, c, "alpha", "classic")
	proc := launcher.lastProc()

	for i := 0; i < classicPrefill; i++ {
		frame := proc.nextSupplyFrame(t)
		assert.True(t, strings.HasPrefix(frame, "PUZZLE|"), "got %q", frame)
	}
	proc.assertNoSupplyFrame(t, 100*time.Millisecond)
}

func TestCompetitiveRoomGetsBiggerPrefill(t *testing.T) {
	launcher := &fakeLauncher{}
	d := startDirectory(t, Config{}, launcher)
	c := dialDirectory(t, d)
	login(t, c, "alice")

	createRoom(t, c, "arena", "competitive")
	proc := launcher.lastProc()

	for i := 0; i < competitivePrefill; i++ {
		frame := proc.nextSupplyFrame(t)
		assert.True(t, strings.HasPrefix(frame, "PUZZLE|"), "got %q", frame)
	}
	proc.assertNoSupplyFrame(t, 100*time.Millisecond)
}

func TestRoomCapRejectsWithoutSpawning(t *testing.T) {
	launcher := &fakeLauncher{}
	d := startDirectory(t, Config{MaxRooms: 1}, launcher)
	c := dialDirectory(t, d)
	login(t, c, "alice")

	createRoom(t, c, "alpha", "classic")
	spawnsBefore := launcher.callCount()

	c.send(protocol.CmdCreateRoom, "beta", "classic")
	msg := c.next()
	assert.Equal(t, protocol.CmdCreateFail, msg.Command)
	assert.Equal(t, "Maximum number of rooms reached", msg.Arg(0))
	assert.Equal(t, spawnsBefore, launcher.callCount())
	assert.Equal(t, 1, d.rooms.Len())
}

func TestSpawnFailureReportedToClient(t *testing.T) {
	launcher := &fakeLauncher{failWith: errors.New("no free port found")}
	d := startDirectory(t, Config{}, launcher)
	c := dialDirectory(t, d)
	login(t, c, "alice")

	c.send(protocol.CmdCreateRoom, "alpha", "classic")
	msg := c.next()
	assert.Equal(t, protocol.CmdCreateFail, msg.Command)
	assert.Equal(t, "Error starting room process", msg.Arg(0))
	assert.Equal(t, 0, d.rooms.Len())
}

func TestChooseRoomRepliesWithEndpoint(t *testing.T) {
	launcher := &fakeLauncher{}
	d := startDirectory(t, Config{}, launcher)
	c := dialDirectory(t, d)
	login(t, c, "alice")

	id := createRoom(t, c, "alpha", "classic")
	rec, ok := d.rooms.Get(id)
	require.True(t, ok)

	c.send(protocol.CmdChooseRoom, id)
	msg := c.next()
	require.Equal(t, protocol.CmdJoinSuccess, msg.Command)
	assert.Equal(t, "alpha", msg.Arg(0))
	assert.Equal(t, "127.0.0.1", msg.Arg(1))
	assert.Equal(t, fmt.Sprintf("%d", rec.Port), msg.Arg(2))
	assert.Equal(t, "classic", msg.Arg(3))
}

func TestChooseRoomNotFound(t *testing.T) {
	d := startDirectory(t, Config{}, &fakeLauncher{})
	c := dialDirectory(t, d)

	c.send(protocol.CmdChooseRoom, "zzzz")
	msg := c.next()
	assert.Equal(t, protocol.CmdJoinFail, msg.Command)
	assert.Equal(t, "Room not found or no longer available", msg.Arg(0))
}

func TestChooseRoomFullSnapshot(t *testing.T) {
	launcher := &fakeLauncher{}
	d := startDirectory(t, Config{}, launcher)
	c := dialDirectory(t, d)
	login(t, c, "alice")

	id := createRoom(t, c, "alpha", "classic")
	proc := launcher.lastProc()

	// Fill the room via join signals.
	for i := 0; i < 4; i++ {
		proc.sendControl(t, "PLAYER_JOIN|%d", proc.proc.PID)
	}
	require.Eventually(t, func() bool {
		rec, ok := d.rooms.Get(id)
		return ok && rec.PlayerCount == 4
	}, time.Second, 10*time.Millisecond)

	c.send(protocol.CmdChooseRoom, id)
	msg := c.next()
	assert.Equal(t, protocol.CmdJoinFail, msg.Command)
	assert.Equal(t, "Room is full", msg.Arg(0))
}

func TestPlayerCountStaysClamped(t *testing.T) {
	launcher := &fakeLauncher{}
	d := startDirectory(t, Config{}, launcher)
	c := dialDirectory(t, d)
	login(t, c, "alice")

	id := createRoom(t, c, "alpha", "classic")
	proc := launcher.lastProc()
	pid := proc.proc.PID

	// More exits than joins, then more joins than capacity.
	for i := 0; i < 3; i++ {
		proc.sendControl(t, "PLAYER_EXIT|%d", pid)
	}
	for i := 0; i < 9; i++ {
		proc.sendControl(t, "PLAYER_JOIN|%d", pid)
	}

	require.Eventually(t, func() bool {
		rec, ok := d.rooms.Get(id)
		return ok && rec.PlayerCount == 4
	}, time.Second, 10*time.Millisecond)

	proc.sendControl(t, "PLAYER_EXIT|%d", pid)
	require.Eventually(t, func() bool {
		rec, ok := d.rooms.Get(id)
		return ok && rec.PlayerCount == 3
	}, time.Second, 10*time.Millisecond)
}

func TestOKSignalPushesOnePuzzle(t *testing.T) {
	launcher := &fakeLauncher{}
	d := startDirectory(t, Config{}, launcher)
	c := dialDirectory(t, d)
	login(t, c, "alice")

	createRoom(t, c, "alpha", "classic")
	proc := launcher.lastProc()
	for i := 0; i < classicPrefill; i++ {
		proc.nextSupplyFrame(t)
	}

	proc.sendControl(t, "OK|%d", proc.proc.PID)

	frame := proc.nextSupplyFrame(t)
	assert.True(t, strings.HasPrefix(frame, "PUZZLE|"), "got %q", frame)
	proc.assertNoSupplyFrame(t, 100*time.Millisecond)
}

func TestKillSignalPurgesRoom(t *testing.T) {
	launcher := &fakeLauncher{}
	d := startDirectory(t, Config{}, launcher)
	c := dialDirectory(t, d)
	login(t, c, "alice")

	id := createRoom(t, c, "alpha", "classic")
	proc := launcher.lastProc()

	proc.sendControl(t, "KILL_SERVER|%d", proc.proc.PID)

	require.Eventually(t, func() bool {
		_, ok := d.rooms.Get(id)
		return !ok
	}, time.Second, 10*time.Millisecond)
	proc.assertSupplyClosed(t)

	c.send(protocol.CmdChooseRoom, id)
	msg := c.next()
	assert.Equal(t, protocol.CmdJoinFail, msg.Command)
}

func TestErrorSignalAlwaysPurges(t *testing.T) {
	launcher := &fakeLauncher{}
	d := startDirectory(t, Config{}, launcher)
	c := dialDirectory(t, d)
	login(t, c, "alice")

	id := createRoom(t, c, "alpha", "classic")
	proc := launcher.lastProc()

	// A mundane reason must purge just like a fatal one.
	proc.sendControl(t, "ERROR|%d|listener bind lost", proc.proc.PID)

	require.Eventually(t, func() bool {
		_, ok := d.rooms.Get(id)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestStopTerminatesRooms(t *testing.T) {
	launcher := &fakeLauncher{}
	d := startDirectory(t, Config{}, launcher)
	c := dialDirectory(t, d)
	login(t, c, "alice")

	createRoom(t, c, "alpha", "classic")
	proc := launcher.lastProc()

	d.Stop()
	proc.assertSupplyClosed(t)
	assert.Equal(t, 0, d.rooms.Len())
}
