package diceroller

import (
	"strconv"
	"strings"

	"github.com/louisbranch/gmconsole/internal/dice"
)

// MaxTokens caps the expression length.
const MaxTokens = 20

// TokenKind classifies expression tokens.
type TokenKind int

const (
	TokenDie TokenKind = iota
	TokenInt
	TokenOp
)

// Token is one element of a dice expression. A die with Count > 1 is a
// stacked die "KdN".
type Token struct {
	Kind   TokenKind
	Count  int
	Faces  int
	Digits string
	Op     string
}

func (t Token) String() string {
	switch t.Kind {
	case TokenDie:
		if t.Count > 1 {
			return strconv.Itoa(t.Count) + "d" + strconv.Itoa(t.Faces)
		}
		return "d" + strconv.Itoa(t.Faces)
	case TokenInt:
		return t.Digits
	default:
		return t.Op
	}
}

// Expression is the token sequence built from the dice pad.
type Expression struct {
	tokens []Token
}

func (e *Expression) last() (Token, bool) {
	if len(e.tokens) == 0 {
		return Token{}, false
	}
	return e.tokens[len(e.tokens)-1], true
}

// AddDie appends dN, stacking onto a trailing die of the same faces up to
// dice.MaxDiceCount.
func (e *Expression) AddDie(faces int) bool {
	if faces < 1 {
		return false
	}
	last, ok := e.last()
	if ok && last.Kind == TokenDie && last.Faces == faces {
		if last.Count >= dice.MaxDiceCount {
			return false
		}
		e.tokens[len(e.tokens)-1].Count++
		return true
	}
	if ok && last.Kind != TokenOp {
		return false
	}
	return e.push(Token{Kind: TokenDie, Count: 1, Faces: faces})
}

// AddDigit appends a digit, extending a trailing integer.
func (e *Expression) AddDigit(digit int) bool {
	if digit < 0 || digit > 9 {
		return false
	}
	last, ok := e.last()
	if ok && last.Kind == TokenInt {
		e.tokens[len(e.tokens)-1].Digits += strconv.Itoa(digit)
		return true
	}
	if ok && last.Kind != TokenOp {
		return false
	}
	return e.push(Token{Kind: TokenInt, Digits: strconv.Itoa(digit)})
}

// AddOperator appends + or - after a term.
func (e *Expression) AddOperator(op string) bool {
	if op != "+" && op != "-" {
		return false
	}
	last, ok := e.last()
	if !ok || last.Kind == TokenOp {
		return false
	}
	return e.push(Token{Kind: TokenOp, Op: op})
}

func (e *Expression) push(t Token) bool {
	if len(e.tokens) >= MaxTokens {
		return false
	}
	e.tokens = append(e.tokens, t)
	return true
}

// Backspace undoes one step: unstacks a die, drops a digit, or pops a token.
func (e *Expression) Backspace() {
	last, ok := e.last()
	if !ok {
		return
	}
	i := len(e.tokens) - 1
	switch {
	case last.Kind == TokenDie && last.Count > 1:
		e.tokens[i].Count--
	case last.Kind == TokenInt && len(last.Digits) > 1:
		e.tokens[i].Digits = last.Digits[:len(last.Digits)-1]
	default:
		e.tokens = e.tokens[:i]
	}
}

// Clear empties the expression.
func (e *Expression) Clear() {
	e.tokens = nil
}

// Tokens returns a copy of the sequence.
func (e *Expression) Tokens() []Token {
	return append([]Token(nil), e.tokens...)
}

// Len returns the token count.
func (e *Expression) Len() int {
	return len(e.tokens)
}

// Display joins tokens with spaces, e.g. "2d6 + 3".
func (e *Expression) Display() string {
	return e.join(" ")
}

// String joins tokens without spaces, e.g. "2d6+3".
func (e *Expression) String() string {
	return e.join("")
}

func (e *Expression) join(sep string) string {
	parts := make([]string, len(e.tokens))
	for i, t := range e.tokens {
		parts[i] = t.String()
	}
	return strings.Join(parts, sep)
}
