package agentcmd

import "time"

// ExecutionResult is the uniform result shape returned for every provider.
// Callers check Success rather than relying on errors: all subprocess
// failures (non-zero exit, decode errors, timeouts) are captured here, and
// Messages holds everything parsed before any failure.
type ExecutionResult struct {
	// Success is true when the process exited zero with no fatal decode error.
	Success bool `json:"success"`

	// ExitCode is the subprocess exit status; -1 when killed by signal.
	ExitCode int `json:"exit_code"`

	// SessionID is the session's final identifier. A provider that mints
	// its own id supersedes the caller-supplied one here.
	SessionID string `json:"session_id,omitempty"`

	// Duration is the wall-clock execution time.
	Duration time.Duration `json:"duration"`

	// Messages is the ordered normalized message sequence.
	Messages []UnifiedMessage `json:"messages"`

	// Data is the convenience payload: the trailing assistant text, or the
	// extracted structured value when DataJSON was requested and parsing
	// succeeded.
	Data any `json:"data,omitempty"`

	// Stderr is the subprocess standard error output.
	Stderr string `json:"stderr,omitempty"`

	// ErrorKind classifies the failure; empty on success.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`

	// Error is a human-readable failure description; empty on success.
	Error string `json:"error,omitempty"`
}

// LastAssistantText returns the trailing top-level text of the last
// assistant message, or "" when none exists.
func (r *ExecutionResult) LastAssistantText() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role != RoleAssistant {
			continue
		}
		if text := r.Messages[i].Text(); text != "" {
			return text
		}
	}
	return ""
}
