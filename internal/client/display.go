// Package client implements the terminal player: the lobby phase against
// the directory and the play phase against a room process.
package client

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"krypto-game/internal/puzzle"
)

type Display struct {
	serverColor    *color.Color
	connectColor   *color.Color
	puzzleColor    *color.Color
	correctColor   *color.Color
	incorrectColor *color.Color
	scoreColor     *color.Color
	warningColor   *color.Color
	infoColor      *color.Color
	playerColor    *color.Color
	rivalColor     *color.Color
	errorColor     *color.Color
}

// NewDisplay creates a new display instance with configured colors
func NewDisplay() *Display {
	return &Display{
		serverColor:    color.New(color.FgCyan, color.Bold),
		connectColor:   color.New(color.FgGreen, color.Bold),
		puzzleColor:    color.New(color.FgYellow, color.Bold),
		correctColor:   color.New(color.FgGreen, color.Bold),
		incorrectColor: color.New(color.FgRed),
		scoreColor:     color.New(color.FgGreen),
		warningColor:   color.New(color.FgYellow),
		infoColor:      color.New(color.FgWhite),
		playerColor:    color.New(color.FgCyan),
		rivalColor:     color.New(color.FgMagenta),
		errorColor:     color.New(color.FgRed, color.Bold),
	}
}

// PrintBanner displays the game banner
func (d *Display) PrintBanner() {
	banner := `
╔═══════════════════════════════════════╗
║             KRYPTO CLIENT             ║
║        Four cards, one target         ║
╚═══════════════════════════════════════╝
`
	d.puzzleColor.Println(banner)
}

// PrintServerStatus displays directory connection status
func (d *Display) PrintServerStatus(message string) {
	timestamp := time.Now().Format("15:04:05")
	d.serverColor.Printf("[%s] [DIRECTORY] %s\n", timestamp, message)
}

// PrintConnection displays a successful login
func (d *Display) PrintConnection(username string) {
	timestamp := time.Now().Format("15:04:05")
	d.connectColor.Printf("[%s] [CONNECTED] Logged in as %s\n", timestamp, username)
}

// PrintRoomList displays the directory's room listing, one entry per line
func (d *Display) PrintRoomList(entries []string) {
	d.infoColor.Println("\n=== Rooms ===")
	for _, entry := range entries {
		d.infoColor.Println(entry)
	}
}

// PrintRoomJoined displays the room greeting
func (d *Display) PrintRoomJoined(name, mode string) {
	timestamp := time.Now().Format("15:04:05")
	d.connectColor.Printf("[%s] [JOINED] Room %s (%s mode)\n", timestamp, name, mode)
}

// PrintPuzzle displays the cards and target of the current round
func (d *Display) PrintPuzzle(label string, p puzzle.Puzzle) {
	timestamp := time.Now().Format("15:04:05")
	ops := p.Operands()
	d.puzzleColor.Printf("[%s] [%s] Cards: %d %d %d %d | Target: %d\n",
		timestamp, label, ops[0], ops[1], ops[2], ops[3], p.Target())
}

// PrintRoundPuzzle displays a competitive deal with its round counter and
// scoring window
func (d *Display) PrintRoundPuzzle(label string, p puzzle.Puzzle, round, seconds string) {
	timestamp := time.Now().Format("15:04:05")
	ops := p.Operands()
	d.puzzleColor.Printf("[%s] [%s] Round %s | Cards: %d %d %d %d | Target: %d | %ss to score\n",
		timestamp, label, round, ops[0], ops[1], ops[2], ops[3], p.Target(), seconds)
}

// PrintSolutionCorrect displays a correct verdict. Competitive rooms attach
// the points earned and the running total; classic rooms send neither.
func (d *Display) PrintSolutionCorrect(points, total string) {
	timestamp := time.Now().Format("15:04:05")
	if points == "" {
		d.correctColor.Printf("[%s] [CORRECT] Your solution was correct!\n", timestamp)
		return
	}
	d.correctColor.Printf("[%s] [CORRECT] +%s points (total: %s)\n", timestamp, points, total)
}

// PrintSolutionIncorrect displays a wrong verdict. Competitive rooms attach
// the score after the penalty.
func (d *Display) PrintSolutionIncorrect(total string) {
	timestamp := time.Now().Format("15:04:05")
	if total == "" {
		d.incorrectColor.Printf("[%s] [INCORRECT] Wrong solution. Try again.\n", timestamp)
		return
	}
	d.incorrectColor.Printf("[%s] [INCORRECT] Wrong solution, your score is now %s. Try again.\n",
		timestamp, total)
}

// PrintScoreUpdate displays a score change broadcast
func (d *Display) PrintScoreUpdate(name string, score int, isSelf bool) {
	timestamp := time.Now().Format("15:04:05")
	if isSelf {
		d.playerColor.Printf("[%s] [SCORE] Your score: %d\n", timestamp, score)
		return
	}
	d.rivalColor.Printf("[%s] [SCORE] %s: %d\n", timestamp, name, score)
}

// PrintStandings displays the score table between rounds
func (d *Display) PrintStandings(lines []string) {
	d.scoreColor.Println("\n=== Standings ===")
	for _, line := range lines {
		d.scoreColor.Println(line)
	}
}

// PrintGameStatus displays the room headcount broadcast
func (d *Display) PrintGameStatus(active, correct, surrendered string) {
	timestamp := time.Now().Format("15:04:05")
	d.infoColor.Printf("[%s] [ROOM] %s playing | %s solved | %s surrendered\n",
		timestamp, active, correct, surrendered)
}

// PrintError displays error messages
func (d *Display) PrintError(message string) {
	d.errorColor.Printf("[ERROR] %s\n", message)
}

// PrintWarning displays warning messages
func (d *Display) PrintWarning(message string) {
	d.warningColor.Printf("[WARNING] %s\n", message)
}

// PrintInfo displays informational messages
func (d *Display) PrintInfo(message string) {
	d.infoColor.Printf("[INFO] %s\n", message)
}

// Clear clears the screen (basic implementation)
func (d *Display) Clear() {
	fmt.Print("\033[2J\033[H")
}

// PrintSeparator prints a visual separator
func (d *Display) PrintSeparator() {
	d.infoColor.Println("═══════════════════════════════════════════════════════════════")
}
