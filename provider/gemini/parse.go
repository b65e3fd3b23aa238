package gemini

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jnarowski/agentcmd"
)

// resultDocument is the single JSON document gemini prints after the run.
type resultDocument struct {
	Response string          `json:"response"`
	Stats    json.RawMessage `json:"stats"`
	Error    *documentError  `json:"error"`
}

type documentError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    any    `json:"code"`
}

// modelStats is the per-model token accounting inside stats.models.
type modelStats struct {
	Tokens struct {
		Prompt     int `json:"prompt"`
		Candidates int `json:"candidates"`
		Cached     int `json:"cached"`
	} `json:"tokens"`
}

// ParseDocument maps the batch output document to records. A successful run
// yields exactly one assistant message carrying the response text; tool
// activity and reasoning never reach stdout and come from the session file.
// An error document yields no message, the exit code reports the failure.
func (d *Driver) ParseDocument(doc []byte) ([]agentcmd.Record, error) {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var rd resultDocument
	if err := json.Unmarshal(trimmed, &rd); err != nil {
		return nil, fmt.Errorf("gemini: invalid result document: %w", err)
	}

	if rd.Response == "" {
		return nil, nil
	}

	msg := agentcmd.UnifiedMessage{
		Role:      agentcmd.RoleAssistant,
		Content:   []agentcmd.ContentBlock{agentcmd.TextBlock(rd.Response)},
		Timestamp: d.now().UnixMilli(),
		Provider:  agentcmd.ProviderGemini,
		Raw:       append(json.RawMessage(nil), trimmed...),
		Usage:     parseStats(rd.Stats),
	}
	return []agentcmd.Record{{Message: &msg}}, nil
}

// parseStats sums token accounting across the models section of the stats
// block. Returns nil when nothing was counted.
func parseStats(raw json.RawMessage) *agentcmd.TokenUsage {
	if len(raw) == 0 {
		return nil
	}

	var stats struct {
		Models map[string]modelStats `json:"models"`
	}
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil
	}

	var usage agentcmd.TokenUsage
	for _, m := range stats.Models {
		usage.InputTokens += m.Tokens.Prompt
		usage.OutputTokens += m.Tokens.Candidates
		usage.CacheReadTokens += m.Tokens.Cached
	}
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		return nil
	}
	return &usage
}
