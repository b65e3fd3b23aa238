// Package codex provides the Codex CLI driver.
//
// codex exec emits incremental newline-delimited JSON events. Codex mints
// its own thread id (reported in the thread.started event), which
// supersedes any caller-supplied session id, and persists transcripts as
// time-bucketed rollout files under ~/.codex/sessions.
package codex

import (
	"time"

	"github.com/jnarowski/agentcmd"
)

// Driver implements agentcmd.Driver, agentcmd.LineParser, and
// agentcmd.SessionReader.
type Driver struct {
	now func() time.Time
}

var (
	_ agentcmd.Driver        = (*Driver)(nil)
	_ agentcmd.LineParser    = (*Driver)(nil)
	_ agentcmd.SessionReader = (*Driver)(nil)
)

// Option configures a Driver at construction time.
type Option func(*Driver)

// WithClock overrides the timestamp source for events that carry none.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

// New creates a Codex driver.
func New(opts ...Option) *Driver {
	d := &Driver{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the provider tag.
func (d *Driver) Name() agentcmd.Provider { return agentcmd.ProviderCodex }

// Capabilities returns the static matrix entry for codex.
func (d *Driver) Capabilities() agentcmd.Capabilities {
	caps, _ := agentcmd.CapabilitiesFor(agentcmd.ProviderCodex)
	return caps
}

// BinaryCandidates returns the executable lookup order.
func (d *Driver) BinaryCandidates() []string {
	return []string{"codex", "~/.codex/bin/codex"}
}

// CommandArgs builds the argument vector. Resume uses the exec resume
// subcommand with the thread id; Continue resumes the most recent thread.
// The engine-settled sessionID is unused: codex mints its own thread id.
func (d *Driver) CommandArgs(req agentcmd.ExecutionRequest, _ string) []string {
	args := []string{"exec"}

	switch {
	case req.Resume && req.SessionID != "":
		args = append(args, "resume", req.SessionID)
	case req.Continue:
		args = append(args, "resume", "--last")
	}

	args = append(args, "--json")
	if req.Model != "" {
		args = append(args, "-m", req.Model)
	}

	return append(args, req.Prompt)
}
