// Package protocol implements the pipe-delimited, newline-terminated text
// protocol shared by every server role. A frame on the wire is
// "COMMAND|arg1|arg2\n"; the same framing carries the player-facing
// vocabularies, the control plane, and the puzzle supply.
package protocol

import "strings"

// Command identifies a message type on the wire.
type Command string

const (
	// Directory requests
	CmdLogin      Command = "LOGIN"
	CmdListRooms  Command = "LIST_ROOMS"
	CmdCreateRoom Command = "CREATE_ROOM"
	CmdChooseRoom Command = "CHOOSE_ROOM"
	CmdLogout     Command = "LOGOUT"

	// Directory replies
	CmdLoginSuccess  Command = "LOGIN_SUCCESS"
	CmdLoginFail     Command = "LOGIN_FAIL"
	CmdRoomList      Command = "ROOM_LIST"
	CmdJoinSuccess   Command = "JOIN_SUCCESS"
	CmdJoinFail      Command = "JOIN_FAIL"
	CmdCreateSuccess Command = "CREATE_SUCCESS"
	CmdCreateFail    Command = "CREATE_FAIL"

	// Room requests
	CmdGetPuzzle      Command = "GET_PUZZLE"
	CmdSubmitSolution Command = "SUBMIT_SOLUTION"
	CmdSurrender      Command = "SURRENDER"
	CmdExit           Command = "EXIT"

	// Room replies and broadcasts
	CmdGreeting          Command = "GREETING"
	CmdPuzzle            Command = "PUZZLE"
	CmdNewPuzzle         Command = "NEW_PUZZLE"
	CmdSolutionCorrect   Command = "SOLUTION_CORRECT"
	CmdSolutionIncorrect Command = "SOLUTION_INCORRECT"
	CmdSurrenderStatus   Command = "SURRENDER_STATUS"
	CmdGameStatus        Command = "GAME_STATUS"
	CmdScoreUpdate       Command = "SCORE_UPDATE"
	CmdServerFull        Command = "SERVER_FULL"

	// Shared error reply; also the fatal signal on the control plane
	CmdError Command = "ERROR"

	// Control plane (room process to directory, over the room's stdout)
	CtlOK         Command = "OK"
	CtlKillServer Command = "KILL_SERVER"
	CtlPlayerJoin Command = "PLAYER_JOIN"
	CtlPlayerExit Command = "PLAYER_EXIT"
)

// Message is one decoded frame: a command plus positional string arguments.
// The protocol layer performs no type coercion; handlers parse their own
// arguments and must tolerate missing or extra trailing ones.
type Message struct {
	Command Command
	Args    []string
}

// NewMessage builds a message from a command and its arguments.
func NewMessage(cmd Command, args ...string) Message {
	return Message{Command: cmd, Args: args}
}

// Encode renders the wire form with exactly one trailing newline. Callers
// must not pre-terminate arguments.
func (m Message) Encode() string {
	var b strings.Builder
	b.WriteString(string(m.Command))
	for _, arg := range m.Args {
		b.WriteByte('|')
		b.WriteString(arg)
	}
	b.WriteByte('\n')
	return b.String()
}

// Arg returns the i-th argument or "" when the sender omitted it.
func (m Message) Arg(i int) string {
	if i < 0 || i >= len(m.Args) {
		return ""
	}
	return m.Args[i]
}

// Parse decodes one line (without its terminating newline) into a Message.
// It reports ok=false for empty or whitespace-only lines, which the
// protocol treats as keepalive noise. A trailing carriage return from raw
// telnet-style clients is stripped.
func Parse(line string) (Message, bool) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" {
		return Message{}, false
	}

	parts := strings.Split(line, "|")
	msg := Message{
		Command: Command(strings.TrimSpace(parts[0])),
	}
	if len(parts) > 1 {
		msg.Args = parts[1:]
	}
	return msg, true
}
