package agentcmd

import (
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// PermissionMode controls how much autonomy the agent gets over tool use.
// Values follow Claude Code's vocabulary; other drivers translate to their
// nearest native flag (Gemini's approval modes) or reject via capabilities.
type PermissionMode string

const (
	PermissionDefault     PermissionMode = "default"
	PermissionAcceptEdits PermissionMode = "acceptEdits"
	PermissionBypass      PermissionMode = "bypassPermissions"
	PermissionPlan        PermissionMode = "plan"
)

// DataFormat selects how ExecutionResult.Data is derived from the final
// assistant output.
type DataFormat string

const (
	// DataText returns the trailing assistant text verbatim.
	DataText DataFormat = "text"

	// DataJSON additionally searches the trailing text (fenced code blocks
	// included) for a JSON object or array and substitutes the parsed value,
	// silently falling back to raw text when nothing parses.
	DataJSON DataFormat = "json"
)

// ImageAttachment is an inline image passed to providers that support it.
type ImageAttachment struct {
	// MediaType is the MIME type, e.g. "image/png".
	MediaType string

	// Data is the raw (not base64) image bytes.
	Data []byte
}

// ExecutionRequest describes one agent invocation.
type ExecutionRequest struct {
	// Provider selects the backend.
	Provider Provider

	// Prompt is the opaque prompt string, passed through unchanged.
	Prompt string

	// WorkingDir is the subprocess working directory (absolute).
	WorkingDir string

	// Timeout bounds the execution. Zero means no timeout beyond the
	// caller's context deadline.
	Timeout time.Duration

	// SessionID is the session to resume or continue. For providers that
	// accept a caller-supplied id it also names a new session; leave empty
	// to have one generated.
	SessionID string

	// Resume resumes the session named by SessionID. Silently ignored
	// (a fresh session starts) when the provider's capability matrix
	// marks resume unsupported — detectable by comparing the returned
	// session id to the requested one.
	Resume bool

	// Continue resumes the provider's most recent session.
	Continue bool

	// PermissionMode is applied when the provider supports permission
	// modes; otherwise dropped.
	PermissionMode PermissionMode

	// Model overrides the provider's default model.
	Model string

	// Images are inline attachments for providers that support them.
	Images []ImageAttachment

	// DataFormat selects text or structured-JSON result extraction.
	DataFormat DataFormat

	// DataSchema, when set with DataJSON, validates the extracted value;
	// validation failure falls back to raw text, never an error.
	DataSchema *jsonschema.Schema

	// OnMessage, when set, observes each message synchronously in
	// subprocess emission order as it is parsed.
	OnMessage func(UnifiedMessage)
}
