package codex

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/jnarowski/agentcmd"
)

func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return func() time.Time { return at }
}

func TestCommandArgs(t *testing.T) {
	d := New()

	tests := []struct {
		name     string
		req      agentcmd.ExecutionRequest
		contains []string
	}{
		{
			name:     "new thread",
			req:      agentcmd.ExecutionRequest{Prompt: "hello"},
			contains: []string{"exec", "--json", "hello"},
		},
		{
			name:     "resume",
			req:      agentcmd.ExecutionRequest{Prompt: "go on", Resume: true, SessionID: "thread-1"},
			contains: []string{"exec", "resume", "thread-1", "--json"},
		},
		{
			name:     "continue most recent",
			req:      agentcmd.ExecutionRequest{Prompt: "more", Continue: true},
			contains: []string{"resume", "--last"},
		},
		{
			name:     "model",
			req:      agentcmd.ExecutionRequest{Prompt: "x", Model: "gpt-5"},
			contains: []string{"-m", "gpt-5"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := d.CommandArgs(tt.req, "ignored")
			for _, want := range tt.contains {
				if !slices.Contains(args, want) {
					t.Errorf("args %v missing %q", args, want)
				}
			}
			if args[len(args)-1] != tt.req.Prompt {
				t.Errorf("prompt should be the final positional arg, got %v", args)
			}
		})
	}
}

func TestParseLineThreadStarted(t *testing.T) {
	d := New(WithClock(fixedClock()))

	rec, err := d.ParseLine([]byte(`{"type":"thread.started","thread_id":"th-42"}`))
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if rec.SessionID != "th-42" {
		t.Errorf("session id = %q, want th-42", rec.SessionID)
	}
	if rec.Message != nil {
		t.Error("thread.started should carry no message")
	}
}

func TestParseLineAgentMessage(t *testing.T) {
	d := New(WithClock(fixedClock()))

	line := `{"type":"item.completed","item":{"id":"item_1","type":"agent_message","text":"all done"}}`
	rec, err := d.ParseLine([]byte(line))
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	msg := rec.Message
	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Role != agentcmd.RoleAssistant {
		t.Errorf("role = %q", msg.Role)
	}
	if msg.Text() != "all done" {
		t.Errorf("text = %q", msg.Text())
	}
	if msg.Provider != agentcmd.ProviderCodex {
		t.Errorf("provider = %q", msg.Provider)
	}
	if string(msg.Raw) != line {
		t.Error("raw should preserve the provider record verbatim")
	}
}

func TestParseLineReasoning(t *testing.T) {
	d := New(WithClock(fixedClock()))

	rec, err := d.ParseLine([]byte(`{"type":"item.completed","item":{"id":"item_2","type":"reasoning","text":"considering options"}}`))
	if err != nil {
		t.Fatal(err)
	}
	blocks := rec.Message.Content
	if len(blocks) != 1 || blocks[0].Type != agentcmd.BlockThinking {
		t.Fatalf("content = %+v, want one thinking block", blocks)
	}
	if blocks[0].Text != "considering options" {
		t.Errorf("text = %q", blocks[0].Text)
	}
}

func TestParseLineCommandExecution(t *testing.T) {
	d := New(WithClock(fixedClock()))

	line := `{"type":"item.completed","item":{"id":"item_3","type":"command_execution","command":"go test ./...","aggregated_output":"ok","exit_code":0,"status":"completed"}}`
	rec, err := d.ParseLine([]byte(line))
	if err != nil {
		t.Fatal(err)
	}
	msg := rec.Message
	if msg.Role != agentcmd.RoleTool {
		t.Errorf("role = %q, want tool", msg.Role)
	}
	if len(msg.Content) != 2 {
		t.Fatalf("blocks = %d, want tool_use + tool_result", len(msg.Content))
	}

	use, result := msg.Content[0], msg.Content[1]
	if use.Type != agentcmd.BlockToolUse || use.Name != agentcmd.ToolBash {
		t.Errorf("use = %+v", use)
	}
	if use.Input["command"] != "go test ./..." {
		t.Errorf("command = %v", use.Input["command"])
	}
	if result.Type != agentcmd.BlockToolResult || result.ToolUseID != use.ID {
		t.Errorf("result should reference the use id, got %+v", result)
	}
	if result.IsError {
		t.Error("exit 0 should not be an error result")
	}
}

func TestParseLineCommandExecutionFailure(t *testing.T) {
	d := New(WithClock(fixedClock()))

	line := `{"type":"item.completed","item":{"id":"item_4","type":"command_execution","command":"false","aggregated_output":"","exit_code":1,"status":"failed"}}`
	rec, err := d.ParseLine([]byte(line))
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Message.Content[1].IsError {
		t.Error("non-zero exit should mark the result as error")
	}
}

func TestParseLineSkips(t *testing.T) {
	d := New(WithClock(fixedClock()))

	tests := []struct {
		name string
		line string
	}{
		{"blank", ""},
		{"turn started", `{"type":"turn.started"}`},
		{"item started", `{"type":"item.started","item":{"id":"i","type":"agent_message"}}`},
		{"turn completed", `{"type":"turn.completed","usage":{"input_tokens":100}}`},
		{"unknown", `{"type":"something.new"}`},
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
	if _, err := d.ParseLine([]byte(`{"type":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}
