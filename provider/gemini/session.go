package gemini

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jnarowski/agentcmd"
)

// chatDocument is a ~/.gemini/tmp chat transcript: one JSON document
// holding the whole session. Messages stay raw here so each element's
// original bytes can be preserved verbatim on the normalized message.
type chatDocument struct {
	SessionID string            `json:"sessionId"`
	Messages  []json.RawMessage `json:"messages"`
}

type chatMessage struct {
	ID        string     `json:"id"`
	Timestamp string     `json:"timestamp"`
	Type      string     `json:"type"`
	Content   string     `json:"content"`
	Thoughts  []thought  `json:"thoughts"`
	Model     string     `json:"model"`
	Tokens    *tokenInfo `json:"tokens"`
	ToolCalls []toolCall `json:"toolCalls"`
}

type thought struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

type tokenInfo struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Cached int `json:"cached"`
}

type toolCall struct {
	Name   string          `json:"name"`
	Args   map[string]any  `json:"args"`
	Result json.RawMessage `json:"result"`
	Status string          `json:"status"`
}

// toolNames maps gemini-native tool names onto the canonical vocabulary.
var toolNames = map[string]string{
	"read_file":           agentcmd.ToolRead,
	"read_many_files":     agentcmd.ToolRead,
	"write_file":          agentcmd.ToolWrite,
	"replace":             agentcmd.ToolEdit,
	"list_directory":      agentcmd.ToolGlob,
	"glob":                agentcmd.ToolGlob,
	"search_file_content": agentcmd.ToolGrep,
	"run_shell_command":   agentcmd.ToolBash,
	"google_web_search":   agentcmd.ToolWebSearch,
	"web_fetch":           agentcmd.ToolWebFetch,
}

// SessionFilePath resolves the transcript location:
// <root>/tmp/<sha256 hex of project dir>/chats/<session id>.json.
func (d *Driver) SessionFilePath(root, projectDir, sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("gemini: session id is required")
	}
	return filepath.Join(root, "tmp", hashProjectDir(projectDir), "chats", sessionID+".json"), nil
}

// hashProjectDir applies gemini's project keying: the lowercase hex SHA-256
// of the absolute project path.
func hashProjectDir(dir string) string {
	sum := sha256.Sum256([]byte(dir))
	return hex.EncodeToString(sum[:])
}

// ReadSessionFile loads a chat transcript. A missing file means the session
// does not exist yet and yields an empty slice. Gemini rewrites the whole
// document on every turn, so a reader can catch it mid-write: an
// undecodable document (or element) is tolerated, not an error.
func (d *Driver) ReadSessionFile(path string) ([]agentcmd.UnifiedMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("gemini: open session file: %w", err)
	}

	var doc chatDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil
	}

	messages := make([]agentcmd.UnifiedMessage, 0, len(doc.Messages))
	for _, raw := range doc.Messages {
		var cm chatMessage
		if err := json.Unmarshal(raw, &cm); err != nil {
			continue
		}
		messages = append(messages, d.convertChatMessage(cm, append(json.RawMessage(nil), raw...)))
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})
	return messages, nil
}

// convertChatMessage maps one chat entry to a UnifiedMessage. Gemini embeds
// tool results inside the assistant message, so a message with N tool calls
// yields N tool_use blocks and at most N tool_result blocks, ordered
// thinking, tool pairs, text.
func (d *Driver) convertChatMessage(cm chatMessage, raw []byte) agentcmd.UnifiedMessage {
	msg := agentcmd.UnifiedMessage{
		ID:       cm.ID,
		Role:     agentcmd.RoleUser,
		Provider: agentcmd.ProviderGemini,
		Model:    cm.Model,
		Raw:      raw,
	}
	if cm.Type == "gemini" {
		msg.Role = agentcmd.RoleAssistant
	}

	if ts, ok := parseTimestamp(cm.Timestamp); ok {
		msg.Timestamp = ts
	} else {
		msg.Timestamp = d.now().UnixMilli()
	}

	if cm.Tokens != nil && (cm.Tokens.Input != 0 || cm.Tokens.Output != 0) {
		msg.Usage = &agentcmd.TokenUsage{
			InputTokens:     cm.Tokens.Input,
			OutputTokens:    cm.Tokens.Output,
			CacheReadTokens: cm.Tokens.Cached,
		}
	}

	for _, th := range cm.Thoughts {
		msg.Content = append(msg.Content, agentcmd.ThinkingBlock(renderThought(th)))
	}

	for i, tc := range cm.ToolCalls {
		// No native tool_use id; synthesize one stable within the message.
		id := fmt.Sprintf("%s-tool-%d", cm.ID, i)
		msg.Content = append(msg.Content, agentcmd.ToolUseBlock(id, normalizeToolName(tc.Name), normalizeArgs(tc.Args)))
		if result := flattenResult(tc.Result); result != "" || tc.Status == "error" {
			msg.Content = append(msg.Content, agentcmd.ToolResultBlock(id, result, tc.Status == "error"))
		}
	}

	if cm.Content != "" {
		msg.Content = append(msg.Content, agentcmd.TextBlock(cm.Content))
	}
	return msg
}

// renderThought joins a thought's subject and description.
func renderThought(th thought) string {
	switch {
	case th.Subject != "" && th.Description != "":
		return th.Subject + ": " + th.Description
	case th.Subject != "":
		return th.Subject
	default:
		return th.Description
	}
}

// normalizeArgs maps gemini argument names onto the canonical keys and
// drops the instruction field (model-internal narration, not an input).
func normalizeArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	out := make(map[string]any, len(args))
	for k, v := range args {
		switch k {
		case "absolute_path", "file_path", "path":
			out[agentcmd.ToolKeyFilePath] = v
		case "instruction":
			// dropped
		default:
			out[k] = v
		}
	}
	return out
}

// flattenResult renders a tool call result, which may be a string, an
// object with output/error fields, or arbitrary JSON.
func flattenResult(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var structured struct {
		Output string `json:"output"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(raw, &structured); err == nil {
		if structured.Error != "" {
			return structured.Error
		}
		if structured.Output != "" {
			return structured.Output
		}
	}

	return string(raw)
}

func normalizeToolName(name string) string {
	if canonical, ok := toolNames[name]; ok {
		return canonical
	}
	return name
}

// parseTimestamp accepts the RFC3339 timestamps found in chat files.
func parseTimestamp(value string) (int64, bool) {
	if value == "" {
		return 0, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts.UnixMilli(), true
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UnixMilli(), true
	}
	return 0, false
}
