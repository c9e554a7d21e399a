package dom

// Patch operations understood by the browser shim.
const (
	OpText        = "text"
	OpHTML        = "html"
	OpAppend      = "append"
	OpAttr        = "attr"
	OpRemoveAttr  = "rmattr"
	OpAddClass    = "addclass"
	OpRemoveClass = "rmclass"
	OpValue       = "value"
	OpChecked     = "checked"
	OpScroll      = "scroll"
)

// Targets for elements addressed by role instead of id.
const (
	TargetBody = "@body"
	TargetRoot = "@html"
)

// Patch is one recorded document mutation. Target is an element id or one of
// the @-prefixed role targets.
type Patch struct {
	Op     string `json:"op"`
	Target string `json:"target"`
	Name   string `json:"name,omitempty"`
	Value  string `json:"value,omitempty"`
}
