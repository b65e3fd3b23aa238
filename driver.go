package agentcmd

// Driver is the per-provider backend contract. Drivers are pure protocol
// translators: they build argument vectors and map provider-native records
// to UnifiedMessage values, but never touch processes or the filesystem
// (session reading excepted, via SessionReader).
//
// Drivers additionally implement exactly one of [LineParser] (streaming
// NDJSON protocols) or [DocumentParser] (one JSON document per run), and
// optionally [StdinPayloader] and [SessionReader]. The engine resolves these
// capabilities once by type assertion.
type Driver interface {
	// Name returns the provider tag.
	Name() Provider

	// Capabilities returns the provider's feature table.
	Capabilities() Capabilities

	// BinaryCandidates returns executable names and paths tried in order
	// during pre-flight resolution: PATH lookup for bare names, stat for
	// absolute paths. First match wins.
	BinaryCandidates() []string

	// CommandArgs builds the argument vector for one execution.
	// sessionID is the id the engine settled on before spawn; empty for
	// providers that mint their own.
	CommandArgs(req ExecutionRequest, sessionID string) []string
}

// LineParser is implemented by streaming drivers. ParseLine maps one
// complete protocol line to a Record. It must be pure and deterministic for
// a fixed clock; blank and no-op lines return ErrSkipRecord.
type LineParser interface {
	ParseLine(line []byte) (Record, error)
}

// DocumentParser is implemented by batch drivers. ParseDocument maps the
// entire buffered output, parsed once at process close, to ordered Records.
type DocumentParser interface {
	ParseDocument(doc []byte) ([]Record, error)
}

// StdinPayloader is implemented by drivers that deliver the prompt (and
// attachments) over stdin instead of argv.
type StdinPayloader interface {
	// StdinPayload returns the bytes to write to the subprocess stdin,
	// or nil when this request uses argv delivery.
	StdinPayload(req ExecutionRequest) ([]byte, error)
}

// SessionReader is implemented by drivers whose session store can be read
// back from disk.
type SessionReader interface {
	// SessionFilePath resolves the provider-specific transcript location.
	// root is the provider's storage root (e.g. ~/.claude); projectDir is
	// the absolute project working directory. The returned path may not
	// exist yet — the store is owned by the running external process.
	SessionFilePath(root, projectDir, sessionID string) (string, error)

	// ReadSessionFile loads and normalizes a transcript. Well-formed
	// records are returned even when the file ends in a truncated
	// fragment (process killed mid-write).
	ReadSessionFile(path string) ([]UnifiedMessage, error)
}
