package domain

// Step sentinels that are valid values of Progress.CurrentStep without being
// knowledge base steps.
const (
	// StepInitial is the state of a session that has not entered the step chain yet.
	StepInitial = "initial"
	// StepCompleted is the terminal marker reached after the last step is committed.
	StepCompleted = "completed"
)

// TotalSteps is the number of canonical stages of the certification process.
const TotalSteps = 7
