package domain

import "time"

// StepStatus is the lifecycle state of a thought step
type StepStatus string

const (
	StepThinking   StepStatus = "thinking"
	StepInProgress StepStatus = "in_progress"
	StepComplete   StepStatus = "complete"
	StepError      StepStatus = "error"
)

// IsTerminal reports whether the status is complete or error
func (s StepStatus) IsTerminal() bool {
	return s == StepComplete || s == StepError
}

// ThoughtStep is the canonical, persisted form of one execution trace step.
// Duration is in milliseconds and only set once the step is terminal.
type ThoughtStep struct {
	ID        string     `json:"id"`
	Action    string     `json:"action"`
	Reasoning string     `json:"reasoning"`
	Result    string     `json:"result,omitempty"`
	Status    StepStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Duration  *int64     `json:"duration,omitempty"`
}
