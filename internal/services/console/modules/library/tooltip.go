package library

import (
	"encoding/json"
	"fmt"
)

// Tooltip box estimate and cursor offset, in CSS pixels.
const (
	TooltipWidth  = 320
	TooltipHeight = 200
	TooltipOffset = 12
)

// Placement is where the tooltip goes relative to the viewport.
type Placement struct {
	Left  int
	Top   int
	FlipX bool
	FlipY bool
}

// Place puts the tooltip below and right of the cursor, flipping to the
// other side on an axis where it would overflow the viewport.
func Place(x int, y int, viewportW int, viewportH int) Placement {
	p := Placement{Left: x + TooltipOffset, Top: y + TooltipOffset}
	if viewportW > 0 && p.Left+TooltipWidth > viewportW {
		p.Left = x - TooltipOffset - TooltipWidth
		p.FlipX = true
	}
	if viewportH > 0 && p.Top+TooltipHeight > viewportH {
		p.Top = y - TooltipOffset - TooltipHeight
		p.FlipY = true
	}
	if p.Left < 0 {
		p.Left = 0
	}
	if p.Top < 0 {
		p.Top = 0
	}
	return p
}

// Style returns the inline position.
func (p Placement) Style() string {
	return fmt.Sprintf("left:%dpx;top:%dpx", p.Left, p.Top)
}

// TooltipText formats a tooltip payload of kind. ok is false when the payload
// cannot be parsed.
func TooltipText(kind string, payload string) (string, bool) {
	raw := json.RawMessage(payload)
	switch kind {
	case TooltipLinks:
		return FormatLinks(raw)
	case TooltipStats:
		return FormatStats(raw)
	default:
		return "", false
	}
}
