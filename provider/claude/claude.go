// Package claude provides the Claude Code CLI driver.
//
// Claude Code emits incremental newline-delimited JSON ("stream-json"): one
// protocol event per stdout line. It accepts a caller-supplied session id,
// supports resume/continue and permission modes, and is the one provider
// that takes inline image attachments (delivered over stdin).
package claude

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jnarowski/agentcmd"
)

// Driver implements agentcmd.Driver, agentcmd.LineParser,
// agentcmd.StdinPayloader, and agentcmd.SessionReader.
type Driver struct {
	now func() time.Time
}

var (
	_ agentcmd.Driver         = (*Driver)(nil)
	_ agentcmd.LineParser     = (*Driver)(nil)
	_ agentcmd.StdinPayloader = (*Driver)(nil)
	_ agentcmd.SessionReader  = (*Driver)(nil)
)

// Option configures a Driver at construction time.
type Option func(*Driver)

// WithClock overrides the timestamp source for stream events that carry
// none of their own. Tests use this to keep parsing deterministic.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

// New creates a Claude Code driver.
func New(opts ...Option) *Driver {
	d := &Driver{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the provider tag.
func (d *Driver) Name() agentcmd.Provider { return agentcmd.ProviderClaude }

// Capabilities returns the static matrix entry for claude.
func (d *Driver) Capabilities() agentcmd.Capabilities {
	caps, _ := agentcmd.CapabilitiesFor(agentcmd.ProviderClaude)
	return caps
}

// BinaryCandidates returns the executable lookup order: PATH name first,
// then the local install location used by the npm installer.
func (d *Driver) BinaryCandidates() []string {
	return []string{"claude", "~/.claude/local/claude"}
}

// CommandArgs builds the argument vector for one execution. sessionID is
// the engine-generated id for new sessions; resume/continue take precedence
// over it. When images are attached the prompt moves to stdin (see
// StdinPayload) and the positional prompt is omitted.
func (d *Driver) CommandArgs(req agentcmd.ExecutionRequest, sessionID string) []string {
	args := []string{"-p", "--verbose", "--output-format", "stream-json"}

	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	if req.PermissionMode != "" && req.PermissionMode != agentcmd.PermissionDefault {
		args = append(args, "--permission-mode", string(req.PermissionMode))
	}

	switch {
	case req.Continue:
		args = append(args, "--continue")
	case req.Resume && req.SessionID != "":
		args = append(args, "--resume", req.SessionID)
	case sessionID != "":
		args = append(args, "--session-id", sessionID)
	}

	if len(req.Images) > 0 {
		args = append(args, "--input-format", "stream-json")
		return args
	}

	return append(args, req.Prompt)
}

// StdinPayload encodes the prompt plus image attachments as a stream-json
// user message. Returns nil when the request has no images — the prompt
// rides on argv then.
func (d *Driver) StdinPayload(req agentcmd.ExecutionRequest) ([]byte, error) {
	if len(req.Images) == 0 {
		return nil, nil
	}

	content := []map[string]any{
		{"type": "text", "text": req.Prompt},
	}
	for _, img := range req.Images {
		content = append(content, map[string]any{
			"type": "image",
			"source": map[string]any{
				"type":       "base64",
				"media_type": img.MediaType,
				"data":       base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}

	msg := map[string]any{
		"type": "user",
		"message": map[string]any{
			"role":    "user",
			"content": content,
		},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("claude: marshal stdin payload: %w", err)
	}
	return append(data, '\n'), nil
}
