package ums

import "strings"

// ComponentType discriminates module components.
type ComponentType string

const (
	ComponentInstruction ComponentType = "instruction"
	ComponentKnowledge   ComponentType = "knowledge"
	ComponentData        ComponentType = "data"
)

// Content is the body of a module. It is a closed union: the only
// implementations are Instruction, Knowledge, Data and MultiComponent.
type Content interface {
	isContent()
}

// Component is a single typed block inside a MultiComponent body.
// Instruction, Knowledge and Data are components.
type Component interface {
	Content
	Type() ComponentType
}

// Instruction tells the reader what to do.
type Instruction struct {
	Goal        string
	Principles  []string
	Constraints []string
	Process     []string
	Criteria    []string
}

// Knowledge explains concepts and carries worked examples.
type Knowledge struct {
	Explanation string
	Principles  []string
	Examples    []Example
}

// Example is a titled snippet with a rationale.
type Example struct {
	Title     string
	Rationale string
	Snippet   string
	Language  string
}

// Data is a literal payload tagged with an IANA media type.
type Data struct {
	MediaType   string
	Description string
	Value       string
}

// MultiComponent is an ordered list of components.
type MultiComponent struct {
	Components []Component
}

func (Instruction) isContent()    {}
func (Knowledge) isContent()      {}
func (Data) isContent()           {}
func (MultiComponent) isContent() {}

func (Instruction) Type() ComponentType { return ComponentInstruction }
func (Knowledge) Type() ComponentType   { return ComponentKnowledge }
func (Data) Type() ComponentType        { return ComponentData }

// Components returns the content as an ordered component list.
func Components(c Content) []Component {
	switch v := c.(type) {
	case Instruction:
		return []Component{v}
	case Knowledge:
		return []Component{v}
	case Data:
		return []Component{v}
	case MultiComponent:
		return v.Components
	default:
		return nil
	}
}

// Directives is the flattened, render-ready view of a module body.
type Directives struct {
	Goal        string
	Principles  []string
	Constraints []string
	Process     []string
	Criteria    []string
	Data        []Data
	Examples    []Example
}

// Flatten merges every component of c into one Directives value.
// List directives are concatenated in component order. Knowledge explanations
// stand in for the goal only when no instruction declares one.
func Flatten(c Content) Directives {
	var d Directives
	var goals, explanations []string
	for _, comp := range Components(c) {
		switch v := comp.(type) {
		case Instruction:
			if g := strings.TrimSpace(v.Goal); g != "" {
				goals = append(goals, g)
			}
			d.Principles = append(d.Principles, v.Principles...)
			d.Constraints = append(d.Constraints, v.Constraints...)
			d.Process = append(d.Process, v.Process...)
			d.Criteria = append(d.Criteria, v.Criteria...)
		case Knowledge:
			if e := strings.TrimSpace(v.Explanation); e != "" {
				explanations = append(explanations, e)
			}
			d.Principles = append(d.Principles, v.Principles...)
			d.Examples = append(d.Examples, v.Examples...)
		case Data:
			d.Data = append(d.Data, v)
		}
	}
	if len(goals) == 0 {
		goals = explanations
	}
	d.Goal = strings.Join(goals, "\n\n")
	return d
}
