package wizard

import "fmt"

// Step is one screen of the wizard.
type Step int

const (
	StepHome Step = iota
	StepDescribe
	StepChooseDrawing
	StepChooseOutline
	StepPrintSettings
	StepPreview
)

var routes = [...]string{
	StepHome:          "home",
	StepDescribe:      "describe",
	StepChooseDrawing: "choose-drawing",
	StepChooseOutline: "choose-outline",
	StepPrintSettings: "print-settings",
	StepPreview:       "preview",
}

var titles = [...]string{
	StepHome:          "Home",
	StepDescribe:      "Describe",
	StepChooseDrawing: "Choose drawing",
	StepChooseOutline: "Choose outline",
	StepPrintSettings: "Print settings",
	StepPreview:       "Preview",
}

// Steps lists the steps in wizard order.
func Steps() []Step {
	return []Step{StepHome, StepDescribe, StepChooseDrawing, StepChooseOutline, StepPrintSettings, StepPreview}
}

// String returns the route name.
func (s Step) String() string {
	if s < 0 || int(s) >= len(routes) {
		return fmt.Sprintf("step(%d)", int(s))
	}

	return routes[s]
}

// Title is the human label of the step.
func (s Step) Title() string {
	if s < 0 || int(s) >= len(titles) {
		return s.String()
	}

	return titles[s]
}

// Next returns the following step; the last step returns itself.
func (s Step) Next() Step {
	if s >= StepPreview {
		return StepPreview
	}

	return s + 1
}

// Prev returns the preceding step; the first step returns itself.
func (s Step) Prev() Step {
	if s <= StepHome {
		return StepHome
	}

	return s - 1
}

// ParseStep resolves a route name.
func ParseStep(route string) (Step, error) {
	for i, r := range routes {
		if r == route {
			return Step(i), nil
		}
	}

	return StepHome, fmt.Errorf("wizard: unknown step %q", route)
}
