package claude

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jnarowski/agentcmd"
)

// streamEvent is the top-level shape of one stream-json line.
type streamEvent struct {
	Type      string          `json:"type"`
	Subtype   string          `json:"subtype"`
	SessionID string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

// messagePayload is the Anthropic message object nested in assistant and
// user events, and in session-file entries.
type messagePayload struct {
	ID      string          `json:"id"`
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   *usagePayload   `json:"usage"`
}

type usagePayload struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	CacheReadTokens int `json:"cache_read_input_tokens"`
}

// nativeBlock covers every content-block variant Claude emits.
type nativeBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     map[string]any  `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

// toolNames maps Claude-native tool names onto the canonical vocabulary.
// Claude's names already are the canonical ones, so the table only covers
// the stragglers; unknown names pass through unchanged.
var toolNames = map[string]string{
	"LS":   agentcmd.ToolGlob,
	"View": agentcmd.ToolRead,
}

// ParseLine maps one stream-json line to a Record.
// Blank lines and unknown event types return agentcmd.ErrSkipRecord.
func (d *Driver) ParseLine(line []byte) (agentcmd.Record, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return agentcmd.Record{}, agentcmd.ErrSkipRecord
	}

	var ev streamEvent
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return agentcmd.Record{}, fmt.Errorf("claude: invalid JSON: %w", err)
	}

	switch ev.Type {
	case "system":
		// init handshake and status events: session metadata, no message.
		return agentcmd.Record{SessionID: ev.SessionID}, nil

	case "assistant", "user":
		msg, err := d.convertMessage(ev.Message, trimmed, d.now().UnixMilli())
		if err != nil {
			return agentcmd.Record{}, err
		}
		return agentcmd.Record{Message: msg, SessionID: ev.SessionID}, nil

	case "result":
		// Turn completion: duration/result text are derived by the
		// aggregator from exit state and assistant messages.
		return agentcmd.Record{SessionID: ev.SessionID}, nil

	default:
		// stream_event deltas and future event types carry no complete
		// message; session files are the source of truth for those.
		return agentcmd.Record{}, agentcmd.ErrSkipRecord
	}
}

// convertMessage maps an Anthropic message payload to a UnifiedMessage.
// raw is the full provider record, preserved verbatim; tsMillis is the
// timestamp to use (stream events carry none of their own).
func (d *Driver) convertMessage(payload, raw []byte, tsMillis int64) (*agentcmd.UnifiedMessage, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("claude: event has no message payload")
	}

	var mp messagePayload
	if err := json.Unmarshal(payload, &mp); err != nil {
		return nil, fmt.Errorf("claude: invalid message payload: %w", err)
	}

	blocks, sawToolResult := convertContent(mp.Content)

	msg := &agentcmd.UnifiedMessage{
		ID:        mp.ID,
		Role:      normalizeRole(mp.Role, sawToolResult),
		Content:   blocks,
		Timestamp: tsMillis,
		Provider:  agentcmd.ProviderClaude,
		Model:     mp.Model,
		Raw:       append(json.RawMessage(nil), raw...),
	}
	if mp.Usage != nil && (mp.Usage.InputTokens != 0 || mp.Usage.OutputTokens != 0) {
		msg.Usage = &agentcmd.TokenUsage{
			InputTokens:     mp.Usage.InputTokens,
			OutputTokens:    mp.Usage.OutputTokens,
			CacheReadTokens: mp.Usage.CacheReadTokens,
		}
	}
	return msg, nil
}

// convertContent maps the native content (string or block array) onto
// canonical blocks, preserving emission order. Claude already emits
// thinking, then tool activity, then text, so no reordering happens here.
func convertContent(raw json.RawMessage) (blocks []agentcmd.ContentBlock, sawToolResult bool) {
	if len(raw) == 0 {
		return nil, false
	}

	// Trivial messages carry a plain string.
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return []agentcmd.ContentBlock{agentcmd.TextBlock(asString)}, false
	}

	var native []nativeBlock
	if err := json.Unmarshal(raw, &native); err != nil {
		return []agentcmd.ContentBlock{agentcmd.TextBlock(string(raw))}, false
	}

	for _, nb := range native {
		switch nb.Type {
		case "text":
			blocks = append(blocks, agentcmd.TextBlock(nb.Text))
		case "thinking":
			blocks = append(blocks, agentcmd.ThinkingBlock(nb.Thinking))
		case "tool_use":
			blocks = append(blocks, agentcmd.ToolUseBlock(nb.ID, normalizeToolName(nb.Name), nb.Input))
		case "tool_result":
			sawToolResult = true
			blocks = append(blocks, agentcmd.ToolResultBlock(nb.ToolUseID, flattenResultContent(nb.Content), nb.IsError))
		case "image":
			blocks = append(blocks, agentcmd.ContentBlock{Type: agentcmd.BlockImage})
		}
	}
	return blocks, sawToolResult
}

// flattenResultContent renders tool_result content, which may be a plain
// string or an array of text blocks, as one string.
func flattenResultContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var nested []nativeBlock
	if err := json.Unmarshal(raw, &nested); err == nil {
		var buf bytes.Buffer
		for _, nb := range nested {
			if nb.Text == "" {
				continue
			}
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(nb.Text)
		}
		return buf.String()
	}

	return string(raw)
}

// normalizeRole maps the provider role, reclassifying user-role messages
// that carry only tool results (how Claude reports tool completions) as
// tool messages.
func normalizeRole(role string, sawToolResult bool) agentcmd.Role {
	if role == "user" && sawToolResult {
		return agentcmd.RoleTool
	}
	switch role {
	case "assistant":
		return agentcmd.RoleAssistant
	case "user":
		return agentcmd.RoleUser
	default:
		return agentcmd.Role(role)
	}
}

func normalizeToolName(name string) string {
	if canonical, ok := toolNames[name]; ok {
		return canonical
	}
	return name
}

// parseTimestamp accepts the RFC3339 timestamps found in session files.
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
