package puzzle

import (
	"math/rand"
	"strconv"
	"unicode"
)

// The four Krypto operations. Subtraction is absolute difference and
// division is defined only when one operand divides the other evenly, in
// either direction, so every intermediate value stays a non-negative
// integer.

func add(a, b int) (int, bool) {
	return a + b, true
}

func subtract(a, b int) (int, bool) {
	if a > b {
		return a - b, true
	}
	return b - a, true
}

func multiply(a, b int) (int, bool) {
	return a * b, true
}

func divide(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	if a%b == 0 {
		return a / b, true
	}
	if b%a == 0 {
		return b / a, true
	}
	return 0, false
}

var operations = []func(int, int) (int, bool){add, subtract, multiply, divide}

// applyOperator evaluates one operator token. Multiplication and division
// accept the aliases players commonly type.
func applyOperator(a int, op string, b int) (int, bool) {
	switch op {
	case "+":
		return add(a, b)
	case "-":
		return subtract(a, b)
	case "*", ".", "x", "X":
		return multiply(a, b)
	case "/", "÷", ":":
		return divide(a, b)
	default:
		return 0, false
	}
}

// Generate deals four cards from a Spanish deck and picks a target in
// [MinCard, MaxCard] that makes the hand solvable. Hands with no valid
// target are redealt.
func Generate() Puzzle {
	for {
		deck := make([]int, 0, (MaxCard-MinCard+1)*suits)
		for v := MinCard; v <= MaxCard; v++ {
			for s := 0; s < suits; s++ {
				deck = append(deck, v)
			}
		}
		rand.Shuffle(len(deck), func(i, j int) {
			deck[i], deck[j] = deck[j], deck[i]
		})
		hand := [4]int{deck[0], deck[1], deck[2], deck[3]}

		for _, offset := range rand.Perm(MaxCard - MinCard + 1) {
			target := MinCard + offset
			if Solvable(hand, target) {
				return Puzzle{hand[0], hand[1], hand[2], hand[3], target}
			}
		}
	}
}

// Solvable reports whether the hand can reach target using all four cards.
// Expressions take one of two shapes: (x op y) op (z op w), or
// ((x op y) op z) op w. Every operation is symmetric in its operands, so
// the unordered arrangements below cover all orderings.
func Solvable(hand [4]int, target int) bool {
	a, b, c, d := hand[0], hand[1], hand[2], hand[3]

	// (x op y) op (z op w) over the three ways to split into two pairs
	splits := [][4]int{
		{a, b, c, d},
		{a, c, b, d},
		{a, d, b, c},
	}
	for _, s := range splits {
		var alphas, betas []int
		for _, op := range operations {
			if v, ok := op(s[0], s[1]); ok {
				alphas = append(alphas, v)
			}
			if v, ok := op(s[2], s[3]); ok {
				betas = append(betas, v)
			}
		}
		for _, x := range alphas {
			for _, y := range betas {
				for _, op := range operations {
					if v, ok := op(x, y); ok && v == target {
						return true
					}
				}
			}
		}
	}

	// ((x op y) op z) op w over the six first pairs and both tail orders
	firstPairs := [][4]int{
		{a, b, c, d},
		{a, c, b, d},
		{a, d, b, c},
		{b, c, a, d},
		{b, d, a, c},
		{c, d, a, b},
	}
	for _, p := range firstPairs {
		var alphas []int
		for _, op := range operations {
			if v, ok := op(p[0], p[1]); ok {
				alphas = append(alphas, v)
			}
		}
		for _, tail := range [][2]int{{p[2], p[3]}, {p[3], p[2]}} {
			for _, x := range alphas {
				for _, op := range operations {
					v, ok := op(x, tail[0])
					if !ok {
						continue
					}
					for _, last := range operations {
						if r, ok := last(v, tail[1]); ok && r == target {
							return true
						}
					}
				}
			}
		}
	}

	return false
}

// VerifySolution checks a player's expression against the target. The
// expression must use exactly four operands and three operators, e.g.
// "4+3*2-1" or "4 + 3 * 2 - 1". Evaluation tries the two expression
// shapes in the order the tokens appear. Malformed input is simply
// incorrect, never an error.
func VerifySolution(expression string, target int) bool {
	tokens := tokenize(expression)
	if len(tokens) != 7 {
		return false
	}

	operands := make([]int, 4)
	for i, pos := range []int{0, 2, 4, 6} {
		v, err := strconv.Atoi(tokens[pos])
		if err != nil {
			return false
		}
		operands[i] = v
	}
	ops := []string{tokens[1], tokens[3], tokens[5]}
	x, y, z, w := operands[0], operands[1], operands[2], operands[3]

	// (X op1 Y) op2 (Z op3 W)
	if xy, ok := applyOperator(x, ops[0], y); ok {
		if zw, ok := applyOperator(z, ops[2], w); ok {
			if v, ok := applyOperator(xy, ops[1], zw); ok && v == target {
				return true
			}
		}
	}

	// ((X op1 Y) op2 Z) op3 W
	if xy, ok := applyOperator(x, ops[0], y); ok {
		if xyz, ok := applyOperator(xy, ops[1], z); ok {
			if v, ok := applyOperator(xyz, ops[2], w); ok && v == target {
				return true
			}
		}
	}

	return false
}

// tokenize splits an expression into number and operator tokens. Spaces
// are ignored, consecutive digits merge into one number, and any other
// rune stands alone as an operator token.
func tokenize(expression string) []string {
	var tokens []string
	var number []rune

	flush := func() {
		if len(number) > 0 {
			tokens = append(tokens, string(number))
			number = number[:0]
		}
	}

	for _, r := range expression {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsDigit(r):
			number = append(number, r)
		default:
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()
	return tokens
}
