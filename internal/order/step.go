package order

import (
	"encoding/json"
	"fmt"
)

// Step is a position in the order composition flow.
type Step int

const (
	StepOverview Step = iota
	StepShipping
	StepCustomFields
	StepAdded
)

func (s Step) String() string {
	switch s {
	case StepOverview:
		return "overview"
	case StepShipping:
		return "shipping"
	case StepCustomFields:
		return "custom_fields"
	case StepAdded:
		return "added"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// MarshalJSON encodes the step by name.
func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// prev is the step Back returns to. ok is false where Back is not allowed.
func (s Step) prev() (Step, bool) {
	switch s {
	case StepShipping:
		return StepOverview, true
	case StepCustomFields:
		return StepShipping, true
	case StepOverview, StepAdded:
	}
	return s, false
}
