package claude

import (
	"errors"
	"testing"
	"time"

	"github.com/jnarowski/agentcmd"
)

func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return func() time.Time { return at }
}

func TestParseLineSystemInit(t *testing.T) {
	d := New(WithClock(fixedClock()))

	line := `{"type":"system","subtype":"init","session_id":"sess-123","model":"claude-sonnet"}`
	rec, err := d.ParseLine([]byte(line))
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if rec.Message != nil {
		t.Error("system event should carry no message")
	}
	if rec.SessionID != "sess-123" {
		t.Errorf("session id = %q, want sess-123", rec.SessionID)
	}
}

func TestParseLineAssistantText(t *testing.T) {
	d := New(WithClock(fixedClock()))

	line := `{"type":"assistant","session_id":"sess-123","message":{"id":"msg_01","role":"assistant","model":"claude-sonnet","content":[{"type":"text","text":"hello"}],"usage":{"input_tokens":10,"output_tokens":5}}}`
	rec, err := d.ParseLine([]byte(line))
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	msg := rec.Message
	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.ID != "msg_01" {
		t.Errorf("id = %q, want msg_01", msg.ID)
	}
	if msg.Role != agentcmd.RoleAssistant {
		t.Errorf("role = %q, want assistant", msg.Role)
	}
	if msg.Model != "claude-sonnet" {
		t.Errorf("model = %q", msg.Model)
	}
	if got := msg.Text(); got != "hello" {
		t.Errorf("text = %q, want hello", got)
	}
	if msg.Timestamp <= 0 {
		t.Errorf("timestamp = %d, want positive epoch millis", msg.Timestamp)
	}
	if msg.Usage == nil || msg.Usage.InputTokens != 10 || msg.Usage.OutputTokens != 5 {
		t.Errorf("usage = %+v", msg.Usage)
	}
	if string(msg.Raw) != line {
		t.Error("raw should preserve the provider record verbatim")
	}
}

func TestParseLineToolUseAndResult(t *testing.T) {
	d := New(WithClock(fixedClock()))

	useLine := `{"type":"assistant","session_id":"s","message":{"id":"msg_02","role":"assistant","content":[{"type":"tool_use","id":"toolu_01","name":"Read","input":{"file_path":"/tmp/main.go"}}]}}`
	rec, err := d.ParseLine([]byte(useLine))
	if err != nil {
		t.Fatalf("ParseLine tool_use: %v", err)
	}
	uses := rec.Message.ToolUses()
	if len(uses) != 1 {
		t.Fatalf("tool uses = %d, want 1", len(uses))
	}
	if uses[0].Name != agentcmd.ToolRead {
		t.Errorf("tool name = %q, want Read", uses[0].Name)
	}
	if uses[0].Input[agentcmd.ToolKeyFilePath] != "/tmp/main.go" {
		t.Errorf("file_path = %v", uses[0].Input[agentcmd.ToolKeyFilePath])
	}

	resultLine := `{"type":"user","session_id":"s","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"toolu_01","content":"package main"}]}}`
	rec, err = d.ParseLine([]byte(resultLine))
	if err != nil {
		t.Fatalf("ParseLine tool_result: %v", err)
	}
	msg := rec.Message
	if msg.Role != agentcmd.RoleTool {
		t.Errorf("role = %q, want tool (user message carrying only tool results)", msg.Role)
	}
	blk := msg.Content[0]
	if blk.Type != agentcmd.BlockToolResult {
		t.Fatalf("block type = %q", blk.Type)
	}
	if blk.ToolUseID != "toolu_01" {
		t.Errorf("tool_use_id = %q, want toolu_01", blk.ToolUseID)
	}
	if blk.Content != "package main" {
		t.Errorf("content = %q", blk.Content)
	}
}

func TestParseLineBlockOrderPreserved(t *testing.T) {
	d := New(WithClock(fixedClock()))

	line := `{"type":"assistant","session_id":"s","message":{"id":"m","role":"assistant","content":[` +
		`{"type":"thinking","thinking":"planning"},` +
		`{"type":"tool_use","id":"t1","name":"Bash","input":{"command":"ls"}},` +
		`{"type":"text","text":"done"}]}}`
	rec, err := d.ParseLine([]byte(line))
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}

	want := []agentcmd.BlockType{agentcmd.BlockThinking, agentcmd.BlockToolUse, agentcmd.BlockText}
	if len(rec.Message.Content) != len(want) {
		t.Fatalf("blocks = %d, want %d", len(rec.Message.Content), len(want))
	}
	for i, bt := range want {
		if rec.Message.Content[i].Type != bt {
			t.Errorf("block %d = %q, want %q", i, rec.Message.Content[i].Type, bt)
		}
	}
}

func TestParseLinePlainStringContent(t *testing.T) {
	d := New(WithClock(fixedClock()))

	line := `{"type":"user","session_id":"s","message":{"role":"user","content":"just text"}}`
	rec, err := d.ParseLine([]byte(line))
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	msg := rec.Message
	if len(msg.Content) != 1 || msg.Content[0].Type != agentcmd.BlockText {
		t.Fatalf("content = %+v, want single text block", msg.Content)
	}
	if msg.Text() != "just text" {
		t.Errorf("text = %q", msg.Text())
	}
	if msg.Role != agentcmd.RoleUser {
		t.Errorf("role = %q, want user", msg.Role)
	}
}

func TestParseLineSkips(t *testing.T) {
	d := New(WithClock(fixedClock()))

	tests := []struct {
		name string
		line string
	}{
		{"blank", ""},
		{"whitespace", "   "},
		{"unknown type", `{"type":"stream_event","event":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.ParseLine([]byte(tt.line))
			if !errors.Is(err, agentcmd.ErrSkipRecord) {
				t.Errorf("err = %v, want ErrSkipRecord", err)
			}
		})
	}
}

func TestParseLineInvalidJSON(t *testing.T) {
	d := New(WithClock(fixedClock()))

	if _, err := d.ParseLine([]byte(`{"type":"assistant","message":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestParseLineIdempotent(t *testing.T) {
	d := New(WithClock(fixedClock()))

	line := []byte(`{"type":"assistant","session_id":"s","message":{"id":"m","role":"assistant","content":[{"type":"text","text":"hi"}]}}`)
	first, err := d.ParseLine(line)
	if err != nil {
		t.Fatal(err)
	}
	second, err := d.ParseLine(line)
	if err != nil {
		t.Fatal(err)
	}
	if first.Message.Timestamp != second.Message.Timestamp {
		t.Error("parsing the same line twice should yield identical timestamps under a fixed clock")
	}
	if first.Message.Text() != second.Message.Text() {
		t.Error("parsing the same line twice should yield identical content")
	}
}

func TestFlattenResultContent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `"plain output"`, "plain output"},
		{"blocks", `[{"type":"text","text":"line 1"},{"type":"text","text":"line 2"}]`, "line 1\nline 2"},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flattenResultContent([]byte(tt.raw)); got != tt.want {
				t.Errorf("flattenResultContent = %q, want %q", got, tt.want)
			}
		})
	}
}
