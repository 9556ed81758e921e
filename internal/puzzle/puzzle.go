// Package puzzle implements Krypto puzzle generation and solution
// verification. A puzzle is four card values from a Spanish deck plus a
// target; players combine all four operands with arithmetic operators to
// reach the target.
package puzzle

import (
	"fmt"
	"strconv"
	"strings"
)

// Deck bounds: Spanish deck card values, four suits each.
const (
	MinCard = 1
	MaxCard = 12
	suits   = 4
)

// Puzzle is four operands plus the target as its last element. Immutable
// once drawn; a room owns it for the duration of one round.
type Puzzle [5]int

// Operands returns the four card values.
func (p Puzzle) Operands() [4]int {
	return [4]int{p[0], p[1], p[2], p[3]}
}

// Target returns the value the operands must combine to.
func (p Puzzle) Target() int {
	return p[4]
}

// Fields renders the puzzle as wire arguments, one integer per field.
func (p Puzzle) Fields() []string {
	fields := make([]string, len(p))
	for i, v := range p {
		fields[i] = strconv.Itoa(v)
	}
	return fields
}

// String formats the puzzle for logs and terminal display.
func (p Puzzle) String() string {
	return fmt.Sprintf("%d %d %d %d -> %d", p[0], p[1], p[2], p[3], p[4])
}

// Parse reads a puzzle from wire arguments. Extra trailing arguments are
// ignored so frames with mode suffixes still parse.
func Parse(args []string) (Puzzle, error) {
	var p Puzzle
	if len(args) < len(p) {
		return p, fmt.Errorf("puzzle needs %d fields, got %d", len(p), len(args))
	}
	for i := range p {
		v, err := strconv.Atoi(strings.TrimSpace(args[i]))
		if err != nil {
			return p, fmt.Errorf("puzzle field %d is not a number: %q", i, args[i])
		}
		p[i] = v
	}
	return p, nil
}
