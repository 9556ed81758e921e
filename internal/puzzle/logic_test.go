package puzzle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySolution(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		target int
		want   bool
	}{
		{"pair shape", "4+3*2-1", 7, true},          // (4+3)*(2-1)
		{"chain shape", "4+3*2-1", 13, true},        // ((4+3)*2)-1
		{"spaced input", "4 + 3 * 2 - 1", 7, true},
		{"chain only", "2+3*4-1", 19, true},         // ((2+3)*4)-1, pair shape gives 15
		{"pair only", "2*3-4/2", 4, true},           // (2*3)-(4/2), chain gives 1
		{"wrong target", "4+3*2-1", 9, false},
		{"absolute subtraction", "1-5+2+3", 9, true},   // |1-5|=4
		{"division reversed", "2/8+1+3", 8, true},      // 2/8 evaluates 8/2
		{"division not even", "3/7+1+1", 99, false},    // 3/7 undefined
		{"multiplication alias x", "2x3+1+5", 12, true},
		{"multiplication alias dot", "2.3+1+5", 12, true},
		{"division alias colon", "8:2+1+1", 6, true},
		{"division alias obelus", "8÷2+1+1", 6, true},
		{"two digit operands", "11-12+3+4", 8, true},
		{"unknown operator", "4%3*2-1", 7, false},
		{"too few operands", "4+3*2", 13, false},
		{"trailing operator", "4+3*2-", 13, false},
		{"too many operands", "1+2+3+4+5", 15, false},
		{"letters", "abc", 1, false},
		{"empty", "", 0, false},
		{"double operator", "4++3*2-1", 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySolution(tt.expr, tt.target),
				"expr %q target %d", tt.expr, tt.target)
		})
	}
}

func TestSolvable(t *testing.T) {
	tests := []struct {
		name   string
		hand   [4]int
		target int
		want   bool
	}{
		{"all ones reach four", [4]int{1, 1, 1, 1}, 4, true},
		{"all ones reach one", [4]int{1, 1, 1, 1}, 1, true},
		{"all ones cannot reach five", [4]int{1, 1, 1, 1}, 5, false},
		{"pair split", [4]int{2, 4, 6, 8}, 12, true}, // (2+4)*(8-6)
		{"needs division", [4]int{12, 6, 3, 1}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Solvable(tt.hand, tt.target))
		})
	}
}

func TestGenerateProducesSolvablePuzzles(t *testing.T) {
	for i := 0; i < 200; i++ {
		p := Generate()

		counts := make(map[int]int)
		for _, v := range p.Operands() {
			assert.GreaterOrEqual(t, v, MinCard)
			assert.LessOrEqual(t, v, MaxCard)
			counts[v]++
		}
		for v, n := range counts {
			assert.LessOrEqual(t, n, suits, "card %d dealt more times than the deck holds", v)
		}

		assert.GreaterOrEqual(t, p.Target(), MinCard)
		assert.LessOrEqual(t, p.Target(), MaxCard)
		assert.True(t, Solvable(p.Operands(), p.Target()), "generated puzzle %s is not solvable", p)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"4+3*2-1", []string{"4", "+", "3", "*", "2", "-", "1"}},
		{"12 - 11 + 10 + 9", []string{"12", "-", "11", "+", "10", "+", "9"}},
		{"8÷2", []string{"8", "÷", "2"}},
		{"  ", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tokenize(tt.expr), "expr %q", tt.expr)
	}
}
