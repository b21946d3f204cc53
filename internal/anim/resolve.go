// Package anim binds animation clips of the current model to playable
// actions and keeps at most one of them running.
package anim

import "slices"

// State is the binder state for one loaded model.
type State int

const (
	Idle    State = iota // no clips, or no clip selected
	Bound                // a clip is selected but not advancing
	Playing              // the selected clip is advancing
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Bound:
		return "bound"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// Input is the slice of viewer state the binder observes.
type Input struct {
	Names       []string
	Selected    string
	HasSelected bool
	Playing     bool
}

// Directive is the outcome of resolving an Input.
type Directive struct {
	State State
	// Clip is the selected clip, empty in Idle.
	Clip string
	// Run reports whether Clip should be advancing.
	Run bool
}

// Resolve maps viewer state to the single clip that should be bound and
// whether it runs. A selection that is not in Names resolves to Idle.
func Resolve(in Input) Directive {
	if !in.HasSelected || !slices.Contains(in.Names, in.Selected) {
		return Directive{State: Idle}
	}
	if in.Playing {
		return Directive{State: Playing, Clip: in.Selected, Run: true}
	}
	return Directive{State: Bound, Clip: in.Selected}
}
