// Package diceroller drives the dice pad and submits rolls to gameplay.
package diceroller

import (
	"context"
	"fmt"
	"strconv"

	"github.com/louisbranch/gmconsole/internal/dice"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
)

// DOM ids and actions.
const (
	DisplayID   = "dice-display"
	BackspaceID = "dice-backspace"
	ClearID     = "dice-clear"
	RollID      = "dice-roll"

	ActionDie   = "dice-die"
	ActionDigit = "dice-digit"
	ActionOp    = "dice-op"
)

// InvalidDetails is the details text of an unparsable expression.
const InvalidDetails = "Invalid expression"

// Submitter sends a gameplay command.
type Submitter interface {
	Submit(ctx context.Context, command string)
}

// Status shows translated messages.
type Status interface {
	SetText(key string, isError bool, replacements map[string]string)
}

// SeedFunc supplies a seed per roll.
type SeedFunc func() (int64, error)

// Result is the outcome of one roll. Total is nil when the expression is
// invalid.
type Result struct {
	Total   *int
	Details string
	Command string
}

// Roller owns the dice pad.
type Roller struct {
	doc    *dom.Document
	submit Submitter
	status Status
	seed   SeedFunc
	expr   Expression
}

// New returns a roller; a nil seed uses crypto-random seeds.
func New(doc *dom.Document, submit Submitter, status Status, seed SeedFunc) *Roller {
	if seed == nil {
		seed = dice.NewSeed
	}
	return &Roller{doc: doc, submit: submit, status: status, seed: seed}
}

// Bind attaches the pad handlers.
func (r *Roller) Bind() {
	r.doc.OnAction(ActionDie, dom.EventClick, func(_ context.Context, ev dom.Event) {
		if faces, err := strconv.Atoi(ev.Datum("faces")); err == nil {
			r.expr.AddDie(faces)
			r.render()
		}
	})
	r.doc.OnAction(ActionDigit, dom.EventClick, func(_ context.Context, ev dom.Event) {
		if digit, err := strconv.Atoi(ev.Datum("digit")); err == nil {
			r.expr.AddDigit(digit)
			r.render()
		}
	})
	r.doc.OnAction(ActionOp, dom.EventClick, func(_ context.Context, ev dom.Event) {
		r.expr.AddOperator(ev.Datum("op"))
		r.render()
	})
	r.doc.On(BackspaceID, dom.EventClick, func(context.Context, dom.Event) {
		r.expr.Backspace()
		r.render()
	})
	r.doc.On(ClearID, dom.EventClick, func(context.Context, dom.Event) {
		r.Clear()
	})
	r.doc.On(RollID, dom.EventClick, func(ctx context.Context, _ dom.Event) {
		r.Roll(ctx)
	})
}

// Expression exposes the current token sequence.
func (r *Roller) Expression() *Expression {
	return &r.expr
}

// Clear empties the expression and display.
func (r *Roller) Clear() {
	r.expr.Clear()
	r.render()
}

// Roll evaluates the expression and, when valid, submits
// "roll <expr> (Result: <total>) [<details>]" and clears the pad.
func (r *Roller) Roll(ctx context.Context) Result {
	seed, err := r.seed()
	if err != nil {
		r.status.SetText("dice_invalid", true, nil)
		return Result{Details: InvalidDetails}
	}
	result := Evaluate(r.expr.String(), seed)
	if result.Total == nil {
		r.status.SetText("dice_invalid", true, nil)
		return result
	}
	if r.submit != nil {
		r.submit.Submit(ctx, result.Command)
	}
	r.Clear()
	return result
}

// Evaluate rolls expr with seed.
func Evaluate(expr string, seed int64) Result {
	evaluation, err := dice.Evaluate(expr, seed)
	if err != nil {
		return Result{Details: InvalidDetails}
	}
	total := evaluation.Total
	details := evaluation.Details()
	return Result{
		Total:   &total,
		Details: details,
		Command: fmt.Sprintf("roll %s (Result: %d) [%s]", evaluation.Expression, total, details),
	}
}

func (r *Roller) render() {
	if el := r.doc.ByID(DisplayID); el != nil && el.Text() != r.expr.Display() {
		el.SetText(r.expr.Display())
	}
}
