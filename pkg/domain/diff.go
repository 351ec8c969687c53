package domain

import "slices"

// ProgressDelta represents the changes between two progress values.
// It is designed to be serialized to JSON for partial updates on the client.
type ProgressDelta struct {
	// CurrentStep is set when the step moved.
	CurrentStep *string `json:"currentStep,omitempty"`

	// Completed lists steps newly added to the completed set.
	Completed []string `json:"completed,omitempty"`

	// Reopened lists steps removed from the completed set (manual corrections).
	Reopened []string `json:"reopened,omitempty"`

	// RemainingTasks carries the full task list when it changed.
	RemainingTasks []string `json:"remainingTasks,omitempty"`
}

// Empty reports whether the delta carries no change.
func (d *ProgressDelta) Empty() bool {
	return d == nil || (d.CurrentStep == nil && len(d.Completed) == 0 && len(d.Reopened) == 0 && d.RemainingTasks == nil)
}

// DiffProgress calculates the difference between oldP and newP.
// If oldP is nil, the delta represents the entire newP.
func DiffProgress(oldP *Progress, newP Progress) *ProgressDelta {
	delta := &ProgressDelta{}

	if oldP == nil {
		delta.CurrentStep = &newP.CurrentStep
		delta.Completed = cloneStrings(newP.CompletedSteps)
		delta.RemainingTasks = cloneStrings(newP.RemainingTasks)
		return delta
	}

	if oldP.CurrentStep != newP.CurrentStep {
		step := newP.CurrentStep
		delta.CurrentStep = &step
	}
	for _, s := range newP.CompletedSteps {
		if !oldP.HasCompleted(s) {
			delta.Completed = append(delta.Completed, s)
		}
	}
	for _, s := range oldP.CompletedSteps {
		if !newP.HasCompleted(s) {
			delta.Reopened = append(delta.Reopened, s)
		}
	}
	if !slices.Equal(oldP.RemainingTasks, newP.RemainingTasks) {
		delta.RemainingTasks = cloneStrings(newP.RemainingTasks)
	}

	if delta.Empty() {
		return nil
	}
	return delta
}
