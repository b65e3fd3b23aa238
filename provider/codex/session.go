package codex

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

// rolloutRecord is one line of a ~/.codex/sessions rollout transcript.
type rolloutRecord struct {
	Timestamp string          `json:"timestamp"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// responseItem covers the response_item payload variants.
type responseItem struct {
	Type      string          `json:"type"`
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Summary   json.RawMessage `json:"summary"`
	Name      string          `json:"name"`
	Arguments string          `json:"arguments"`
	CallID    string          `json:"call_id"`
	Output    json.RawMessage `json:"output"`
}

type responseBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// toolNames maps codex function-call names onto the canonical vocabulary.
var toolNames = map[string]string{
	"shell":       agentcmd.ToolBash,
	"local_shell": agentcmd.ToolBash,
	"apply_patch": agentcmd.ToolEdit,
	"web_search":  agentcmd.ToolWebSearch,
	"view_image":  agentcmd.ToolRead,
}

// SessionFilePath locates the rollout transcript for a thread id. Rollout
// files are bucketed by date (<root>/sessions/YYYY/MM/DD/rollout-<ts>-<id>.jsonl)
// so resolution walks the tree matching on the id suffix. projectDir plays
// no part in the layout.
func (d *Driver) SessionFilePath(root, _ string, sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("codex: session id is required")
	}

	sessionsDir := filepath.Join(root, "sessions")
	suffix := "-" + sessionID + ".jsonl"

	var found string
	err := filepath.WalkDir(sessionsDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		name := entry.Name()
		if strings.HasPrefix(name, "rollout-") && strings.HasSuffix(name, suffix) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("codex: locate session file: %w", err)
	}
	if found == "" {
		// A path that cannot exist yet; ReadSessionFile treats it as empty.
		return filepath.Join(sessionsDir, "rollout-"+sessionID+".jsonl"), nil
	}
	return found, nil
}

// ReadSessionFile loads a rollout transcript. Only response_item records
// become messages; event_msg duplicates and turn_context metadata are
// skipped, as are malformed or truncated trailing lines.
func (d *Driver) ReadSessionFile(path string) ([]agentcmd.UnifiedMessage, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("codex: open session file: %w", err)
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

		var rec rolloutRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.Type != "response_item" {
			continue
		}

		ts, ok := parseTimestamp(rec.Timestamp)
		if !ok {
			ts = d.now().UnixMilli()
		}
		msg := d.convertResponseItem(rec.Payload, line, ts)
		if msg == nil {
			continue
		}
		messages = append(messages, *msg)
	}
	if err := scanner.Err(); err != nil {
		return messages, fmt.Errorf("codex: scan session file: %w", err)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})
	return messages, nil
}

// convertResponseItem maps one response_item payload to a UnifiedMessage.
// Returns nil for item types that carry no conversational content.
func (d *Driver) convertResponseItem(payload, raw []byte, tsMillis int64) *agentcmd.UnifiedMessage {
	var item responseItem
	if err := json.Unmarshal(payload, &item); err != nil {
		return nil
	}

	msg := &agentcmd.UnifiedMessage{
		Timestamp: tsMillis,
		Provider:  agentcmd.ProviderCodex,
		Raw:       append(json.RawMessage(nil), raw...),
	}

	switch item.Type {
	case "message":
		msg.Role = agentcmd.RoleUser
		if item.Role == "assistant" {
			msg.Role = agentcmd.RoleAssistant
		}
		for _, b := range decodeBlocks(item.Content) {
			if b.Text != "" {
				msg.Content = append(msg.Content, agentcmd.TextBlock(b.Text))
			}
		}

	case "reasoning":
		msg.Role = agentcmd.RoleAssistant
		blocks := decodeBlocks(item.Summary)
		if len(blocks) == 0 {
			blocks = decodeBlocks(item.Content)
		}
		for _, b := range blocks {
			if b.Text != "" {
				msg.Content = append(msg.Content, agentcmd.ThinkingBlock(b.Text))
			}
		}

	case "function_call", "custom_tool_call":
		msg.Role = agentcmd.RoleTool
		msg.Content = []agentcmd.ContentBlock{
			agentcmd.ToolUseBlock(item.CallID, normalizeToolName(item.Name), decodeArguments(item.Arguments)),
		}

	case "function_call_output", "custom_tool_call_output":
		msg.Role = agentcmd.RoleTool
		msg.Content = []agentcmd.ContentBlock{
			agentcmd.ToolResultBlock(item.CallID, flattenOutput(item.Output), false),
		}

	default:
		return nil
	}

	if len(msg.Content) == 0 {
		return nil
	}
	return msg
}

func decodeBlocks(raw json.RawMessage) []responseBlock {
	if len(raw) == 0 {
		return nil
	}
	var blocks []responseBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil
	}
	return blocks
}

// decodeArguments parses the arguments field, which codex stores as a JSON
// string nested inside the record. Unparseable arguments are preserved
// verbatim under a raw key.
func decodeArguments(arguments string) map[string]any {
	if arguments == "" {
		return nil
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(arguments), &input); err != nil {
		return map[string]any{"raw": arguments}
	}
	return input
}

// flattenOutput renders function_call_output content, which may be a plain
// string or a structured object with an output field.
func flattenOutput(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var structured struct {
		Output string `json:"output"`
	}
	if err := json.Unmarshal(raw, &structured); err == nil && structured.Output != "" {
		return structured.Output
	}

	return string(raw)
}

func normalizeToolName(name string) string {
	if canonical, ok := toolNames[name]; ok {
		return canonical
	}
	return name
}
