package diceroller

import (
	"math/rand"
	"regexp"
	"strconv"
	"testing"

	"github.com/louisbranch/gmconsole/internal/dice"
)

var grammar = regexp.MustCompile(`^((\d*d\d+|\d+)([+-](\d*d\d+|\d+))*[+-]?)?$`)

func TestCollapseStacksSameFaces(t *testing.T) {
	t.Parallel()

	var e Expression
	e.AddDie(6)
	e.AddDie(6)
	if got := e.String(); got != "2d6" {
		t.Fatalf("after two d6 = %q, want 2d6", got)
	}
	e.AddDie(6)
	if got := e.String(); got != "3d6" || e.Len() != 1 {
		t.Fatalf("after three d6 = %q (%d tokens), want 3d6", got, e.Len())
	}
	if e.AddDie(8) {
		t.Fatalf("die of other faces after a die should be rejected")
	}

	for e.AddDie(6) {
	}
	if got, want := e.String(), strconv.Itoa(dice.MaxDiceCount)+"d6"; got != want {
		t.Fatalf("stacked to the cap = %q, want %q", got, want)
	}
	if _, err := dice.Parse(e.String()); err != nil {
		t.Fatalf("dice.Parse(%q) error = %v", e.String(), err)
	}
}

func TestOperatorRules(t *testing.T) {
	t.Parallel()

	var e Expression
	if e.AddOperator("+") {
		t.Fatalf("operator may not start the expression")
	}
	e.AddDigit(1)
	e.AddDigit(2)
	if e.AddDie(6) {
		t.Fatalf("die may not follow an integer")
	}
	e.AddOperator("-")
	if e.AddOperator("+") {
		t.Fatalf("operator may not follow an operator")
	}
	e.AddDie(4)
	if got := e.Display(); got != "12 - d4" {
		t.Fatalf("Display() = %q", got)
	}
}

func TestBackspace(t *testing.T) {
	t.Parallel()

	var e Expression
	for i := 0; i < 3; i++ {
		e.AddDie(10)
	}
	e.AddOperator("+")
	e.AddDigit(4)
	e.AddDigit(2)

	steps := []string{"3d10+4", "3d10+", "3d10", "2d10", "d10", ""}
	for _, want := range steps {
		e.Backspace()
		if got := e.String(); got != want {
			t.Fatalf("after backspace = %q, want %q", got, want)
		}
	}
	e.Backspace()
	if e.Len() != 0 {
		t.Fatalf("backspace on empty changed expression")
	}
}

func TestCapAtMaxTokens(t *testing.T) {
	t.Parallel()

	var e Expression
	for e.Len() < MaxTokens-1 {
		e.AddDigit(1)
		if e.Len() < MaxTokens-1 {
			e.AddOperator("+")
		}
	}
	if !e.AddOperator("-") || e.Len() != MaxTokens {
		t.Fatalf("expected operator to fill the last slot, len = %d", e.Len())
	}
	if e.AddDie(6) {
		t.Fatalf("token beyond cap accepted")
	}
	e.Backspace()
	if !e.AddDigit(5) || e.Len() != MaxTokens-1 {
		t.Fatalf("extending the trailing integer should not add a token")
	}
}

func TestRandomSequencesKeepGrammar(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	faces := []int{4, 6, 8, 10, 12, 20, 100}
	for run := 0; run < 500; run++ {
		var e Expression
		for step := 0; step < 40; step++ {
			switch rng.Intn(5) {
			case 0:
				e.AddDie(faces[rng.Intn(len(faces))])
			case 1:
				e.AddDigit(rng.Intn(10))
			case 2:
				e.AddOperator([]string{"+", "-"}[rng.Intn(2)])
			case 3:
				e.Backspace()
			default:
				if rng.Intn(10) == 0 {
					e.Clear()
				}
			}
			if !grammar.MatchString(e.String()) {
				t.Fatalf("run %d step %d: %q breaks grammar", run, step, e.String())
			}
			if e.Len() > MaxTokens {
				t.Fatalf("run %d: %d tokens exceeds cap", run, e.Len())
			}
		}
	}
}
