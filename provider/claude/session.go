package claude

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jnarowski/agentcmd"
)

// sessionEntry is one line of a ~/.claude/projects session transcript.
// Top-level fields beside message/timestamp are session metadata (branch,
// cwd, version, parent id) and stay out of message content.
type sessionEntry struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
}

// SessionFilePath resolves the transcript location:
// <root>/projects/<path-encoded project dir>/<session id>.jsonl.
func (d *Driver) SessionFilePath(root, projectDir, sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("claude: session id is required")
	}
	return filepath.Join(root, "projects", encodeProjectDir(projectDir), sessionID+".jsonl"), nil
}

// encodeProjectDir applies Claude Code's directory naming: every '/' and
// '.' in the absolute project path becomes '-'.
func encodeProjectDir(dir string) string {
	return strings.NewReplacer("/", "-", ".", "-").Replace(dir)
}

// ReadSessionFile loads a transcript, tolerating a file that does not exist
// yet (race against a still-running process → empty slice) and a truncated
// trailing record (process killed mid-write → fragment dropped).
func (d *Driver) ReadSessionFile(path string) ([]agentcmd.UnifiedMessage, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("claude: open session file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var messages []agentcmd.UnifiedMessage

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry sessionEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			// Truncated or malformed record; the store is append-only
			// and owned by the external process, so drop it silently.
			continue
		}
		if entry.Type != "user" && entry.Type != "assistant" {
			// summary and other metadata entries.
			continue
		}

		ts, ok := parseTimestamp(entry.Timestamp)
		if !ok {
			ts = d.now().UnixMilli()
		}
		msg, err := d.convertMessage(entry.Message, line, ts)
		if err != nil {
			continue
		}
		messages = append(messages, *msg)
	}
	if err := scanner.Err(); err != nil {
		return messages, fmt.Errorf("claude: scan session file: %w", err)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})
	return messages, nil
}
