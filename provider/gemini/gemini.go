// Package gemini provides the Gemini CLI driver.
//
// Gemini runs in batch mode: stdout is one JSON document emitted after the
// run finishes, not an event stream. Sessions cannot be resumed through the
// CLI and the minted session id never appears on stdout; transcripts land
// under ~/.gemini/tmp keyed by a hash of the project directory.
package gemini

import (
	"time"

	"github.com/jnarowski/agentcmd"
)

// Driver implements agentcmd.Driver, agentcmd.DocumentParser, and
// agentcmd.SessionReader.
type Driver struct {
	now func() time.Time
}

var (
	_ agentcmd.Driver         = (*Driver)(nil)
	_ agentcmd.DocumentParser = (*Driver)(nil)
	_ agentcmd.SessionReader  = (*Driver)(nil)
)

// Option configures a Driver at construction time.
type Option func(*Driver)

// WithClock overrides the timestamp source for parsed documents.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

// New creates a Gemini driver.
func New(opts ...Option) *Driver {
	d := &Driver{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the provider tag.
func (d *Driver) Name() agentcmd.Provider { return agentcmd.ProviderGemini }

// Capabilities returns the static matrix entry for gemini.
func (d *Driver) Capabilities() agentcmd.Capabilities {
	caps, _ := agentcmd.CapabilitiesFor(agentcmd.ProviderGemini)
	return caps
}

// BinaryCandidates returns the executable lookup order.
func (d *Driver) BinaryCandidates() []string {
	return []string{"gemini"}
}

// CommandArgs builds the argument vector. Resume, continue and session ids
// have no CLI surface; the engine strips those request fields before the
// driver sees them.
func (d *Driver) CommandArgs(req agentcmd.ExecutionRequest, _ string) []string {
	args := []string{"--output-format", "json"}

	if req.Model != "" {
		args = append(args, "-m", req.Model)
	}
	if mode := approvalMode(req.PermissionMode); mode != "" {
		args = append(args, "--approval-mode", mode)
	}

	return append(args, req.Prompt)
}

// approvalMode maps canonical permission modes onto gemini's approval
// vocabulary. Plan mode has no gemini equivalent and maps to the default.
func approvalMode(mode agentcmd.PermissionMode) string {
	switch mode {
	case agentcmd.PermissionAcceptEdits:
		return "auto_edit"
	case agentcmd.PermissionBypass:
		return "yolo"
	default:
		return ""
	}
}
