package supervisor

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"krypto-game/pkg/logger"
)

// RoomSpec describes one room process to launch.
type RoomSpec struct {
	Name       string
	Mode       string
	Port       int
	MaxPlayers int
}

// RoomProcess is a launched room server. Supply is the child's stdin and
// Control its stdout; the directory pushes puzzles into the one and reads
// pid-stamped signals from the other. The child's stderr goes to the
// directory's own stderr so room logs stay visible.
type RoomProcess struct {
	PID     int
	Port    int
	Supply  io.WriteCloser
	Control io.ReadCloser

	cmd *exec.Cmd
}

// Terminate kills the process and reaps it. Safe on an already-dead room
// and on processes the supervisor did not start itself.
func (p *RoomProcess) Terminate() {
	if p.Supply != nil {
		p.Supply.Close()
	}
	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	p.cmd.Process.Kill()
	p.cmd.Wait()
}

// Spawner launches room processes. The directory owns one; tests swap in
// a fake that fabricates RoomProcess values around in-memory pipes.
type Spawner interface {
	Spawn(spec RoomSpec) (*RoomProcess, error)
}

// ExecSpawner runs the room binary as a child process. It returns as soon
// as the process has started; readiness arrives later as an OK signal on
// the control pipe.
type ExecSpawner struct {
	binary   string
	host     string
	logLevel string
	log      *logger.Logger
}

// NewExecSpawner spawns rooms from the given binary. An empty path falls
// back to a "room" binary sitting next to the running executable. The log
// level is handed down to each child so room stderr matches the
// directory's verbosity.
func NewExecSpawner(binary, host, logLevel string, log *logger.Logger) *ExecSpawner {
	if binary == "" {
		binary = siblingBinary("room")
	}
	return &ExecSpawner{binary: binary, host: host, logLevel: logLevel, log: log}
}

func (s *ExecSpawner) Spawn(spec RoomSpec) (*RoomProcess, error) {
	cmd := exec.Command(s.binary,
		"-name", spec.Name,
		"-mode", spec.Mode,
		"-host", s.host,
		"-port", strconv.Itoa(spec.Port),
		"-max-players", strconv.Itoa(spec.MaxPlayers),
		"-log-level", s.logLevel,
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe for room %q: %w", spec.Name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe for room %q: %w", spec.Name, err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start room %q: %w", spec.Name, err)
	}

	s.log.Info("Spawned room %q (%s) pid %d on port %d",
		spec.Name, spec.Mode, cmd.Process.Pid, spec.Port)

	return &RoomProcess{
		PID:     cmd.Process.Pid,
		Port:    spec.Port,
		Supply:  stdin,
		Control: stdout,
		cmd:     cmd,
	}, nil
}

// siblingBinary resolves a binary expected to live in the same directory
// as the current executable.
func siblingBinary(name string) string {
	self, err := os.Executable()
	if err != nil {
		return name
	}
	return filepath.Join(filepath.Dir(self), name)
}
