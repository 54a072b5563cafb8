package types

import "time"

// ExecRequest is the request body for running a command.
type ExecRequest struct {
	Command        string `json:"command"`
	WorkingDir     string `json:"workingDir,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"` // default 60, max 300
	Background     bool   `json:"background,omitempty"`
}

// ExecResult is the result of a command execution. For background
// commands only Handle is set; everything else arrives via Collect.
type ExecResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
	Success  bool   `json:"success"`
	TimedOut bool   `json:"timedOut,omitempty"`
	// Warning is set when the command matched a warn-tier policy pattern
	// but was allowed to run.
	Warning string `json:"warning,omitempty"`
	Handle  string `json:"handle,omitempty"`
}

// ProcessState describes the lifecycle of a background process.
type ProcessState string

const (
	StateRunning   ProcessState = "running"
	StateCompleted ProcessState = "completed"
	StateFailed    ProcessState = "failed"
	StateKilled    ProcessState = "killed"
)

// ProcessSnapshot is a point-in-time view of a background process.
type ProcessSnapshot struct {
	Handle    string       `json:"handle"`
	PID       int          `json:"pid"`
	State     ProcessState `json:"state"`
	StartedAt time.Time    `json:"startedAt"`
	Stdout    string       `json:"stdout"`
	Stderr    string       `json:"stderr"`
	// ExitCode is nil until the process has exited.
	ExitCode *int `json:"exitCode,omitempty"`
}
