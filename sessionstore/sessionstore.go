// Package sessionstore reads provider session transcripts back from disk.
//
// Every provider persists the full conversation in its own on-disk store,
// owned by the external CLI. This package is a read-only view over those
// stores: it locates the transcript for a session and normalizes it to
// UnifiedMessage, including the tool activity and reasoning that batch
// providers never print to stdout.
package sessionstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jnarowski/agentcmd"
	"github.com/jnarowski/agentcmd/provider/claude"
	"github.com/jnarowski/agentcmd/provider/codex"
	"github.com/jnarowski/agentcmd/provider/gemini"
)

// Reader loads session transcripts from the providers' storage roots.
type Reader struct {
	roots   map[agentcmd.Provider]string
	readers map[agentcmd.Provider]agentcmd.SessionReader
}

// Option configures a Reader.
type Option func(*Reader)

// WithRoot overrides a provider's storage root (default ~/.claude, ~/.codex,
// ~/.gemini). Tests point this at fixtures.
func WithRoot(p agentcmd.Provider, root string) Option {
	return func(r *Reader) {
		r.roots[p] = root
	}
}

// NewReader creates a Reader over the built-in providers' stores.
func NewReader(opts ...Option) (*Reader, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("sessionstore: resolve home directory: %w", err)
	}

	r := &Reader{
		roots: map[agentcmd.Provider]string{
			agentcmd.ProviderClaude: filepath.Join(home, ".claude"),
			agentcmd.ProviderCodex:  filepath.Join(home, ".codex"),
			agentcmd.ProviderGemini: filepath.Join(home, ".gemini"),
		},
		readers: map[agentcmd.Provider]agentcmd.SessionReader{
			agentcmd.ProviderClaude: claude.New(),
			agentcmd.ProviderCodex:  codex.New(),
			agentcmd.ProviderGemini: gemini.New(),
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Load returns the normalized transcript for a session. projectDir is the
// absolute project working directory; providers that key storage by project
// (claude, gemini) need it, codex ignores it. A session with no transcript
// on disk yet yields an empty slice, not an error.
func (r *Reader) Load(p agentcmd.Provider, sessionID, projectDir string) ([]agentcmd.UnifiedMessage, error) {
	reader, ok := r.readers[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", agentcmd.ErrUnknownProvider, p)
	}

	path, err := reader.SessionFilePath(r.roots[p], projectDir, sessionID)
	if err != nil {
		return nil, err
	}
	return reader.ReadSessionFile(path)
}

// Path returns the on-disk transcript location for a session without
// reading it. The file may not exist yet.
func (r *Reader) Path(p agentcmd.Provider, sessionID, projectDir string) (string, error) {
	reader, ok := r.readers[p]
	if !ok {
		return "", fmt.Errorf("%w: %q", agentcmd.ErrUnknownProvider, p)
	}
	return reader.SessionFilePath(r.roots[p], projectDir, sessionID)
}
