package dom

import "context"

// Event types forwarded by the browser shim.
const (
	EventClick     = "click"
	EventChange    = "change"
	EventInput     = "input"
	EventKeyDown   = "keydown"
	EventMouseOver = "mouseover"
	EventMouseOut  = "mouseout"
	EventDrop      = "drop"
)

// File is one file attached to a change or drop event.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Event is one user interaction. Target is the id of the closest element
// carrying an id; Action and Data come from the closest [data-action] element.
// Seen is the last patch sequence the browser applied before sending it.
type Event struct {
	Type      string            `json:"type"`
	Target    string            `json:"target"`
	Seen      uint64            `json:"seen,omitempty"`
	Action    string            `json:"action,omitempty"`
	Value     *string           `json:"value,omitempty"`
	Checked   *bool             `json:"checked,omitempty"`
	Key       string            `json:"key,omitempty"`
	Shift     bool              `json:"shift,omitempty"`
	X         int               `json:"x,omitempty"`
	Y         int               `json:"y,omitempty"`
	ViewportW int               `json:"viewport_w,omitempty"`
	ViewportH int               `json:"viewport_h,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Files     []File            `json:"-"`
}

// Datum returns one data-* value of the action element.
func (e Event) Datum(name string) string {
	if e.Data == nil {
		return ""
	}
	return e.Data[name]
}

// Handler reacts to one event.
type Handler func(ctx context.Context, ev Event)

type handlerKey struct {
	name string
	typ  string
}

// On binds a handler to events of typ reaching the element with id, either as
// target or while bubbling through its ancestors.
func (d *Document) On(id string, typ string, h Handler) {
	if d == nil || h == nil {
		return
	}
	key := handlerKey{name: id, typ: typ}
	d.handlers[key] = append(d.handlers[key], h)
}

// OnAction binds a handler to events of typ whose target carries data-action.
func (d *Document) OnAction(action string, typ string, h Handler) {
	if d == nil || h == nil {
		return
	}
	key := handlerKey{name: action, typ: typ}
	d.actions[key] = append(d.actions[key], h)
}

// Dispatch delivers ev to action handlers and then bubbles it from the target
// element to the root. Values reported by the browser are stored without
// emitting patches since the browser already shows them.
func (d *Document) Dispatch(ctx context.Context, ev Event) {
	if d == nil {
		return
	}
	el := d.ByID(ev.Target)
	if el != nil {
		if ev.Value != nil {
			el.setValue(*ev.Value, false)
		}
		if ev.Checked != nil {
			el.setChecked(*ev.Checked, false)
		}
	}
	if ev.Action != "" {
		for _, h := range d.actions[handlerKey{name: ev.Action, typ: ev.Type}] {
			h(ctx, ev)
		}
	}
	if el == nil {
		return
	}
	for n := el.node; n != nil; n = n.Parent {
		id := attrOf(n, "id")
		if id == "" {
			continue
		}
		for _, h := range d.handlers[handlerKey{name: id, typ: ev.Type}] {
			h(ctx, ev)
		}
	}
}
