package dice

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxDiceCount bounds the number of dice in one term.
const MaxDiceCount = 100

// MaxFaces bounds the number of faces of one die.
const MaxFaces = 1000

// ErrInvalidExpression reports an expression outside term(('+'|'-') term)*.
var ErrInvalidExpression = errors.New("invalid expression")

var (
	expressionPattern = regexp.MustCompile(`^(\d*d\d+|\d+)([+-](\d*d\d+|\d+))*$`)
	termPattern       = regexp.MustCompile(`[+-]?(\d*d\d+|\d+)`)
)

// Term is one signed term of an expression. Constants have Faces == 0.
type Term struct {
	Text     string
	Negative bool
	Count    int
	Faces    int
	Rolls    []int
	// Total is the unsigned term value: the sum of Rolls, or the constant.
	Total int
}

// Signed returns the term value with its sign applied.
func (t Term) Signed() int {
	if t.Negative {
		return -t.Total
	}
	return t.Total
}

// IsDice reports whether the term rolls dice.
func (t Term) IsDice() bool {
	return t.Faces > 0
}

// Evaluation is the outcome of rolling an expression.
type Evaluation struct {
	Expression string
	Terms      []Term
	Total      int
}

// Details renders per-term results, e.g. "2d6[3,5] + 3".
func (e Evaluation) Details() string {
	var b strings.Builder
	for i, term := range e.Terms {
		if i > 0 {
			if term.Negative {
				b.WriteString(" - ")
			} else {
				b.WriteString(" + ")
			}
		}
		b.WriteString(term.Text)
		if term.IsDice() {
			values := make([]string, len(term.Rolls))
			for j, roll := range term.Rolls {
				values[j] = strconv.Itoa(roll)
			}
			b.WriteString("[" + strings.Join(values, ",") + "]")
		}
	}
	return b.String()
}

// Normalize strips whitespace from an expression.
func Normalize(expr string) string {
	return strings.Join(strings.Fields(expr), "")
}

// Parse validates an expression and splits it into unrolled terms.
func Parse(expr string) ([]Term, error) {
	expr = Normalize(expr)
	if !expressionPattern.MatchString(expr) {
		return nil, ErrInvalidExpression
	}
	matches := termPattern.FindAllString(expr, -1)
	terms := make([]Term, 0, len(matches))
	for _, match := range matches {
		term := Term{}
		switch match[0] {
		case '-':
			term.Negative = true
			match = match[1:]
		case '+':
			match = match[1:]
		}
		term.Text = match

		countText, facesText, isDice := strings.Cut(match, "d")
		if !isDice {
			value, err := strconv.Atoi(match)
			if err != nil {
				return nil, ErrInvalidExpression
			}
			term.Total = value
			terms = append(terms, term)
			continue
		}
		count := 1
		if countText != "" {
			parsed, err := strconv.Atoi(countText)
			if err != nil {
				return nil, ErrInvalidExpression
			}
			count = parsed
		}
		faces, err := strconv.Atoi(facesText)
		if err != nil {
			return nil, ErrInvalidExpression
		}
		if count < 1 || count > MaxDiceCount || faces < 1 || faces > MaxFaces {
			return nil, ErrInvalidExpression
		}
		term.Count = count
		term.Faces = faces
		terms = append(terms, term)
	}
	return terms, nil
}

// Evaluate parses expr and rolls every dice term with one seeded request.
func Evaluate(expr string, seed int64) (Evaluation, error) {
	terms, err := Parse(expr)
	if err != nil {
		return Evaluation{}, err
	}

	var specs []DiceSpec
	for _, term := range terms {
		if term.IsDice() {
			specs = append(specs, DiceSpec{Sides: term.Faces, Count: term.Count})
		}
	}
	if len(specs) > 0 {
		result, err := RollDice(RollRequest{Dice: specs, Seed: seed})
		if err != nil {
			return Evaluation{}, fmt.Errorf("roll expression: %w", err)
		}
		next := 0
		for i := range terms {
			if !terms[i].IsDice() {
				continue
			}
			roll := result.Rolls[next]
			next++
			terms[i].Rolls = roll.Results
			terms[i].Total = roll.Total
		}
	}

	total := 0
	for _, term := range terms {
		total += term.Signed()
	}
	return Evaluation{
		Expression: Normalize(expr),
		Terms:      terms,
		Total:      total,
	}, nil
}
