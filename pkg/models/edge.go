package models

// Edge handle labels used by edges leaving a condition node.
const (
	EdgeHandleTrue  = "true"
	EdgeHandleFalse = "false"
)

// Edge is a directed connection between two nodes. SourceHandle is only
// meaningful on edges leaving a condition node, where it selects the branch
// matching the evaluated result; edges without a handle are unconditional.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
}

// Follows reports whether this edge should be taken given the condition
// result of its source node. conditionResult is nil for nodes that do not
// produce one; handled edges are never followed in that case.
func (e *Edge) Follows(conditionResult *bool) bool {
	switch e.SourceHandle {
	case "":
		return true
	case EdgeHandleTrue:
		return conditionResult != nil && *conditionResult
	case EdgeHandleFalse:
		return conditionResult != nil && !*conditionResult
	default:
		return false
	}
}
