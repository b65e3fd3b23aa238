package agentcmd

// Canonical tool vocabulary. Provider parsers translate native tool names
// into these through fixed per-provider tables; unrecognized names pass
// through unchanged, keeping the mapping open to extension.
const (
	ToolRead      = "Read"
	ToolWrite     = "Write"
	ToolEdit      = "Edit"
	ToolGlob      = "Glob"
	ToolGrep      = "Grep"
	ToolBash      = "Bash"
	ToolWebSearch = "WebSearch"
	ToolWebFetch  = "WebFetch"
)

// ToolKeyFilePath is the canonical key for path-bearing tool arguments.
// Provider-native read/write tools that name their path argument differently
// (e.g. Gemini's absolute_path) are renamed onto this key.
const ToolKeyFilePath = "file_path"
