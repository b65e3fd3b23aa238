package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/jnarowski/agentcmd"
)

func assistantText(text string) agentcmd.Record {
	return agentcmd.Record{Message: &agentcmd.UnifiedMessage{
		Role:      agentcmd.RoleAssistant,
		Content:   []agentcmd.ContentBlock{agentcmd.TextBlock(text)},
		Timestamp: 1700000000000,
		Provider:  agentcmd.ProviderClaude,
	}}
}

func TestAggregatorSessionIDSupersedes(t *testing.T) {
	agg := &aggregator{provider: agentcmd.ProviderCodex, sessionID: ""}

	agg.record(agentcmd.Record{SessionID: "minted-1"})
	agg.record(assistantText("hi"))

	result := agg.finalize(agentcmd.ExecutionRequest{}, 0, time.Second, "", "", "")
	if result.SessionID != "minted-1" {
		t.Errorf("session id = %q, want minted-1", result.SessionID)
	}
	if len(result.Messages) != 1 {
		t.Errorf("messages = %d", len(result.Messages))
	}
}

func TestAggregatorObserverOrder(t *testing.T) {
	var seen []string
	agg := &aggregator{
		provider:  agentcmd.ProviderClaude,
		onMessage: func(m agentcmd.UnifiedMessage) { seen = append(seen, m.Text()) },
	}

	agg.record(assistantText("first"))
	agg.record(agentcmd.Record{}) // metadata-only, no callback
	agg.record(assistantText("second"))

	if !reflect.DeepEqual(seen, []string{"first", "second"}) {
		t.Errorf("seen = %v", seen)
	}
}

func TestFinalizeFailurePreservesMessages(t *testing.T) {
	agg := &aggregator{provider: agentcmd.ProviderClaude}
	agg.record(assistantText("partial work"))

	result := agg.finalize(agentcmd.ExecutionRequest{}, -1, time.Second, "killed", agentcmd.ErrorTimeout, "execution timed out")
	if result.Success {
		t.Error("success should be false")
	}
	if result.ErrorKind != agentcmd.ErrorTimeout {
		t.Errorf("kind = %q", result.ErrorKind)
	}
	if len(result.Messages) != 1 {
		t.Error("messages before the failure must be preserved")
	}
	if result.Data != "partial work" {
		t.Errorf("data = %v", result.Data)
	}
}

func TestExtractData(t *testing.T) {
	tests := []struct {
		name   string
		format agentcmd.DataFormat
		text   string
		want   any
	}{
		{
			name:   "text format passes through",
			format: agentcmd.DataText,
			text:   `{"looks":"like json"}`,
			want:   `{"looks":"like json"}`,
		},
		{
			name:   "json from fenced block in prose",
			format: agentcmd.DataJSON,
			text:   "Here you go:\n```json\n{\"a\": 1}\n```\nDone.",
			want:   map[string]any{"a": float64(1)},
		},
		{
			name:   "json array",
			format: agentcmd.DataJSON,
			text:   `[1, 2, 3]`,
			want:   []any{float64(1), float64(2), float64(3)},
		},
		{
			name:   "no json falls back to text",
			format: agentcmd.DataJSON,
			text:   "nothing structured here",
			want:   "nothing structured here",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractData(agentcmd.ExecutionRequest{DataFormat: tt.format}, tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractData = %#v, want %#v", got, tt.want)
			}
		})
	}

	if got := extractData(agentcmd.ExecutionRequest{DataFormat: agentcmd.DataJSON}, ""); got != nil {
		t.Errorf("empty text should yield nil data, got %v", got)
	}
}

func TestExtractDataSchemaValidation(t *testing.T) {
	schema := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"status"},
		Properties: map[string]*jsonschema.Schema{
			"status": {Type: "string"},
		},
	}

	req := agentcmd.ExecutionRequest{DataFormat: agentcmd.DataJSON, DataSchema: schema}

	got := extractData(req, `{"status":"ok"}`)
	if obj, ok := got.(map[string]any); !ok || obj["status"] != "ok" {
		t.Errorf("valid payload = %#v, want parsed object", got)
	}

	// Missing required field: fall back to raw text, never error.
	raw := `{"other":"field"}`
	if got := extractData(req, raw); got != raw {
		t.Errorf("invalid payload = %#v, want raw text fallback", got)
	}
}
