package codex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jnarowski/agentcmd"
)

// streamEvent is the top-level shape of one codex exec --json line.
type streamEvent struct {
	Type     string          `json:"type"`
	ThreadID string          `json:"thread_id"`
	Item     json.RawMessage `json:"item"`
	Usage    *usagePayload   `json:"usage"`
}

type usagePayload struct {
	InputTokens       int `json:"input_tokens"`
	OutputTokens      int `json:"output_tokens"`
	CachedInputTokens int `json:"cached_input_tokens"`
}

// streamItem covers every item.completed variant.
type streamItem struct {
	ID               string          `json:"id"`
	Type             string          `json:"type"`
	Text             string          `json:"text"`
	Command          string          `json:"command"`
	AggregatedOutput string          `json:"aggregated_output"`
	ExitCode         *int            `json:"exit_code"`
	Status           string          `json:"status"`
	Changes          json.RawMessage `json:"changes"`
	Query            string          `json:"query"`
	Server           string          `json:"server"`
	Tool             string          `json:"tool"`
}

// ParseLine maps one codex exec event to a Record.
//
// thread.started carries the minted thread id; item.completed carries the
// finished content; turn.started, item.started and turn.completed are
// skipped (codex re-emits the full item on completion, and turn totals are
// derived by the caller from exit state).
func (d *Driver) ParseLine(line []byte) (agentcmd.Record, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return agentcmd.Record{}, agentcmd.ErrSkipRecord
	}

	var ev streamEvent
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return agentcmd.Record{}, fmt.Errorf("codex: invalid JSON: %w", err)
	}

	switch ev.Type {
	case "thread.started":
		return agentcmd.Record{SessionID: ev.ThreadID}, nil

	case "item.completed":
		msg, err := d.convertItem(ev.Item, trimmed, ev.Usage)
		if err != nil {
			return agentcmd.Record{}, err
		}
		if msg == nil {
			return agentcmd.Record{}, agentcmd.ErrSkipRecord
		}
		return agentcmd.Record{Message: msg}, nil

	case "turn.started", "item.started", "item.updated",
		"turn.completed", "turn.failed", "error":
		// Incremental and lifecycle events. Failures surface through the
		// process exit code, not through message content.
		return agentcmd.Record{}, agentcmd.ErrSkipRecord

	default:
		return agentcmd.Record{}, agentcmd.ErrSkipRecord
	}
}

// convertItem maps one completed item to a UnifiedMessage. Returns nil for
// item types that carry no conversational content.
func (d *Driver) convertItem(raw, full []byte, usage *usagePayload) (*agentcmd.UnifiedMessage, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("codex: item.completed has no item")
	}

	var item streamItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("codex: invalid item: %w", err)
	}

	msg := &agentcmd.UnifiedMessage{
		ID:        item.ID,
		Role:      agentcmd.RoleAssistant,
		Timestamp: d.now().UnixMilli(),
		Provider:  agentcmd.ProviderCodex,
		Raw:       append(json.RawMessage(nil), full...),
	}
	if usage != nil {
		msg.Usage = &agentcmd.TokenUsage{
			InputTokens:     usage.InputTokens,
			OutputTokens:    usage.OutputTokens,
			CacheReadTokens: usage.CachedInputTokens,
		}
	}

	switch item.Type {
	case "agent_message":
		msg.Content = []agentcmd.ContentBlock{agentcmd.TextBlock(item.Text)}

	case "reasoning":
		msg.Content = []agentcmd.ContentBlock{agentcmd.ThinkingBlock(item.Text)}

	case "command_execution":
		// Codex reports command and output in one item; split into the
		// canonical use/result pair sharing the item id.
		isError := item.ExitCode != nil && *item.ExitCode != 0
		msg.Role = agentcmd.RoleTool
		msg.Content = []agentcmd.ContentBlock{
			agentcmd.ToolUseBlock(item.ID, agentcmd.ToolBash, map[string]any{"command": item.Command}),
			agentcmd.ToolResultBlock(item.ID, item.AggregatedOutput, isError),
		}

	case "file_change", "file_changes":
		input := map[string]any{}
		if len(item.Changes) > 0 {
			var changes any
			if err := json.Unmarshal(item.Changes, &changes); err == nil {
				input["changes"] = changes
			}
		}
		msg.Role = agentcmd.RoleTool
		msg.Content = []agentcmd.ContentBlock{
			agentcmd.ToolUseBlock(item.ID, agentcmd.ToolEdit, input),
			agentcmd.ToolResultBlock(item.ID, item.Status, item.Status == "failed"),
		}

	case "web_search":
		msg.Role = agentcmd.RoleTool
		msg.Content = []agentcmd.ContentBlock{
			agentcmd.ToolUseBlock(item.ID, agentcmd.ToolWebSearch, map[string]any{"query": item.Query}),
		}

	case "mcp_tool_call":
		name := item.Tool
		if item.Server != "" {
			name = item.Server + "." + item.Tool
		}
		msg.Role = agentcmd.RoleTool
		msg.Content = []agentcmd.ContentBlock{
			agentcmd.ToolUseBlock(item.ID, name, nil),
			agentcmd.ToolResultBlock(item.ID, item.Status, item.Status == "failed"),
		}

	case "error":
		msg.Content = []agentcmd.ContentBlock{agentcmd.TextBlock(item.Text)}

	default:
		return nil, nil
	}

	return msg, nil
}

// parseTimestamp accepts the RFC3339 timestamps found in rollout files.
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
