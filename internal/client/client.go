package client

import (
	"bufio"
	"fmt"
	"net"
	"strconv"

	"krypto-game/internal/protocol"
	"krypto-game/pkg/logger"
)

// Client drives one player's terminal session. It talks to the directory
// during the lobby phase; joining a room hands the terminal to a
// roomSession until the player leaves that room.
type Client struct {
	conn          net.Conn
	display       *Display
	input         *InputHandler
	logger        *logger.Logger
	writer        *bufio.Writer
	reader        *bufio.Scanner
	directoryAddr string
	username      string
	isConnected   bool
}

// NewClient creates a client that will dial the directory at addr.
func NewClient(addr string, log *logger.Logger) *Client {
	display := NewDisplay()
	return &Client{
		display:       display,
		input:         NewInputHandler(display),
		logger:        log,
		directoryAddr: addr,
	}
}

// Start initializes and starts the client
func (c *Client) Start() error {
	c.display.PrintBanner()
	c.logger.Info("Client starting...")

	if err := c.connectToDirectory(); err != nil {
		c.display.PrintError(fmt.Sprintf("Failed to connect to the directory: %v", err))
		return err
	}

	if err := c.login(); err != nil {
		c.display.PrintError(fmt.Sprintf("Login failed: %v", err))
		return err
	}

	return c.runMainMenu()
}

// connectToDirectory establishes the lobby TCP connection
func (c *Client) connectToDirectory() error {
	c.display.PrintInfo("Connecting to the directory...")

	conn, err := net.Dial("tcp", c.directoryAddr)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.writer = bufio.NewWriter(conn)
	c.reader = bufio.NewScanner(conn)
	c.isConnected = true

	c.display.PrintServerStatus("Connected")
	c.logger.Info("Connected to directory at %s", c.directoryAddr)
	return nil
}

// request sends one frame to the directory and waits for its reply. The
// directory protocol is strictly request/reply, so the lobby phase needs
// no reader goroutine.
func (c *Client) request(cmd protocol.Command, args ...string) (protocol.Message, error) {
	if _, err := c.writer.WriteString(protocol.NewMessage(cmd, args...).Encode()); err != nil {
		return protocol.Message{}, fmt.Errorf("failed to send %s: %w", cmd, err)
	}
	if err := c.writer.Flush(); err != nil {
		return protocol.Message{}, fmt.Errorf("failed to send %s: %w", cmd, err)
	}

	for c.reader.Scan() {
		msg, ok := protocol.Parse(c.reader.Text())
		if !ok {
			continue
		}
		return msg, nil
	}

	c.isConnected = false
	if err := c.reader.Err(); err != nil {
		return protocol.Message{}, fmt.Errorf("directory connection failed: %w", err)
	}
	return protocol.Message{}, fmt.Errorf("directory closed the connection")
}

// login loops until the directory accepts a username
func (c *Client) login() error {
	for {
		username := c.input.GetUsername()

		reply, err := c.request(protocol.CmdLogin, username)
		if err != nil {
			return err
		}

		switch reply.Command {
		case protocol.CmdLoginSuccess:
			c.username = username
			c.display.PrintConnection(username)
			c.logger.Info("Logged in as %s", username)
			return nil
		case protocol.CmdLoginFail:
			c.display.PrintError(reasonOr(reply, "Login rejected"))
		default:
			c.display.PrintWarning(fmt.Sprintf("Unexpected reply: %s", reply.Command))
		}
	}
}

// runMainMenu handles the lobby menu
func (c *Client) runMainMenu() error {
	for {
		c.display.PrintSeparator()
		c.display.PrintInfo("KRYPTO LOBBY")
		c.display.PrintInfo(fmt.Sprintf("Logged in as %s", c.username))
		c.display.PrintInfo("")
		c.display.PrintInfo("1. List rooms")
		c.display.PrintInfo("2. Join a room")
		c.display.PrintInfo("3. Create a room")
		c.display.PrintInfo("4. Quit")

		choice := c.input.GetMenuChoice(1, 4)

		var err error
		switch choice {
		case 1:
			err = c.listRooms()
		case 2:
			err = c.joinRoom()
		case 3:
			err = c.createRoom()
		case 4:
			c.logout()
			c.display.PrintInfo("Thanks for playing!")
			return nil
		}

		if err != nil {
			if !c.isConnected {
				return err
			}
			c.display.PrintError(err.Error())
		}
	}
}

// listRooms fetches and displays the room listing
func (c *Client) listRooms() error {
	reply, err := c.request(protocol.CmdListRooms)
	if err != nil {
		return err
	}
	if reply.Command != protocol.CmdRoomList {
		return fmt.Errorf("unexpected reply: %s", reply.Command)
	}

	c.display.PrintRoomList(reply.Args)
	c.input.WaitForEnter("Press Enter to return to menu...")
	return nil
}

// joinRoom asks for a room ID and enters it
func (c *Client) joinRoom() error {
	id := c.input.GetStringInput("Enter room ID: ", 1, 16)
	return c.enterRoom(id)
}

// enterRoom resolves a room ID through the directory and, on success,
// hands the terminal to a room session until the player comes back.
func (c *Client) enterRoom(id string) error {
	reply, err := c.request(protocol.CmdChooseRoom, id)
	if err != nil {
		return err
	}

	switch reply.Command {
	case protocol.CmdJoinSuccess:
		name := reply.Arg(0)
		addr := net.JoinHostPort(reply.Arg(1), reply.Arg(2))
		mode := reply.Arg(3)

		c.display.PrintInfo(fmt.Sprintf("Joining room %s at %s...", name, addr))
		c.playRoom(name, addr, mode)
		return nil
	case protocol.CmdJoinFail:
		c.display.PrintError(reasonOr(reply, "Could not join the room"))
		return nil
	default:
		return fmt.Errorf("unexpected reply: %s", reply.Command)
	}
}

// createRoom collects room settings and asks the directory to spawn one
func (c *Client) createRoom() error {
	name := c.input.GetStringInput("Enter room name (3-30 characters): ", 3, 30)
	mode := c.input.GetGameMode()
	maxPlayers := c.input.GetIntegerInput("Max players", 1, 8)

	reply, err := c.request(protocol.CmdCreateRoom, name, mode, strconv.Itoa(maxPlayers))
	if err != nil {
		return err
	}

	switch reply.Command {
	case protocol.CmdCreateSuccess:
		id := reply.Arg(0)
		c.display.PrintInfo(fmt.Sprintf("Room created with ID %s", id))
		if c.input.GetConfirmation("Join it now?") {
			return c.enterRoom(id)
		}
		return nil
	case protocol.CmdCreateFail:
		c.display.PrintError(reasonOr(reply, "Could not create the room"))
		return nil
	default:
		return fmt.Errorf("unexpected reply: %s", reply.Command)
	}
}

// playRoom runs one stay inside a room. Directory traffic pauses while the
// room session owns the terminal.
func (c *Client) playRoom(name, addr, mode string) {
	rs := newRoomSession(c.display, c.input, c.logger, c.username, name, mode)
	if err := rs.dial(addr); err != nil {
		c.display.PrintError(fmt.Sprintf("Could not reach room %s: %v", name, err))
		return
	}
	rs.run()
}

// logout tells the directory to release the username. The directory sends
// no reply and closes the connection.
func (c *Client) logout() {
	if !c.isConnected {
		return
	}

	if _, err := c.writer.WriteString(protocol.NewMessage(protocol.CmdLogout).Encode()); err == nil {
		c.writer.Flush()
	}
	c.logger.Info("Logged out")
}

// Close closes the directory connection
func (c *Client) Close() error {
	c.isConnected = false

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}

// reasonOr returns the frame's first argument, or fallback when the sender
// omitted it.
func reasonOr(msg protocol.Message, fallback string) string {
	if msg.Arg(0) != "" {
		return msg.Arg(0)
	}
	return fallback
}
