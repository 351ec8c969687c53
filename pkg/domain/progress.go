package domain

import (
	"slices"
	"time"
)

// TaskStatus is the lifecycle state of a user task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// Task is a user-defined preparation item.
type Task struct {
	ID          string     `json:"id" mapstructure:"id"`
	Name        string     `json:"name" mapstructure:"name"`
	Description string     `json:"description" mapstructure:"description"`
	Status      TaskStatus `json:"status" mapstructure:"status"`
	DueDate     *time.Time `json:"dueDate" mapstructure:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt" mapstructure:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty" mapstructure:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty" mapstructure:"completedAt"`
}

// UserProgress is the certification progress tracked per user, independent of
// any chat session.
type UserProgress struct {
	UserID         string     `json:"userId"`
	CurrentStep    string     `json:"currentStep"`
	CompletedSteps []string   `json:"completedSteps"`
	TotalSteps     int        `json:"totalSteps"`
	StartDate      *time.Time `json:"startDate"`
	LastUpdated    *time.Time `json:"lastUpdated"`
	Tasks          []Task     `json:"tasks"`
}

// NewUserProgress returns the record reported for a user with no history.
func NewUserProgress(userID string) *UserProgress {
	return &UserProgress{
		UserID:         userID,
		CurrentStep:    StepInitial,
		CompletedSteps: []string{},
		TotalSteps:     TotalSteps,
		Tasks:          []Task{},
	}
}

// Clone returns a deep copy of p.
func (p *UserProgress) Clone() *UserProgress {
	if p == nil {
		return nil
	}
	c := *p
	c.CompletedSteps = cloneStrings(p.CompletedSteps)
	c.StartDate = cloneTime(p.StartDate)
	c.LastUpdated = cloneTime(p.LastUpdated)
	c.Tasks = make([]Task, len(p.Tasks))
	for i, t := range p.Tasks {
		c.Tasks[i] = t.clone()
	}
	return &c
}

// TaskIndex returns the position of the task with the given ID, or -1.
func (p *UserProgress) TaskIndex(id string) int {
	return slices.IndexFunc(p.Tasks, func(t Task) bool { return t.ID == id })
}

func (t Task) clone() Task {
	t.DueDate = cloneTime(t.DueDate)
	t.UpdatedAt = cloneTime(t.UpdatedAt)
	t.CompletedAt = cloneTime(t.CompletedAt)
	return t
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
