package model

import "encoding/json"

// RunFailure is the boundary rendering of a failed run.
type RunFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Step    string `json:"failed_step,omitempty"`
}

// NewRunFailure builds a failure payload with Success=false.
func NewRunFailure(step, message string) RunFailure {
	return RunFailure{Error: message, Step: step}
}

// ToJSON serializes RunFailure to a JSON string.
func (f RunFailure) ToJSON() string {
	b, _ := json.Marshal(f)
	return string(b)
}
