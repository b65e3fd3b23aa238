package agentcmd

import (
	"errors"
	"testing"
)

func TestMessageText(t *testing.T) {
	msg := UnifiedMessage{Content: []ContentBlock{
		ThinkingBlock("pondering"),
		ToolUseBlock("t1", ToolBash, map[string]any{"command": "ls"}),
		TextBlock("first"),
		TextBlock("second"),
	}}
	if got := msg.Text(); got != "first\nsecond" {
		t.Errorf("Text = %q", got)
	}

	empty := UnifiedMessage{}
	if empty.Text() != "" {
		t.Error("empty message should yield empty text")
	}
}

func TestMessageToolUses(t *testing.T) {
	msg := UnifiedMessage{Content: []ContentBlock{
		TextBlock("hi"),
		ToolUseBlock("t1", ToolRead, nil),
		ToolResultBlock("t1", "data", false),
		ToolUseBlock("t2", ToolGrep, nil),
	}}
	uses := msg.ToolUses()
	if len(uses) != 2 || uses[0].ID != "t1" || uses[1].ID != "t2" {
		t.Errorf("uses = %+v", uses)
	}
}

func TestCLINotFoundErrorMatching(t *testing.T) {
	var err error = &CLINotFoundError{Provider: ProviderCodex, Tried: []string{"codex"}}
	if !errors.Is(err, ErrCLINotFound) {
		t.Error("CLINotFoundError should match ErrCLINotFound")
	}

	var notFound *CLINotFoundError
	if !errors.As(err, &notFound) || notFound.Provider != ProviderCodex {
		t.Errorf("As = %+v", notFound)
	}
}

func TestCapabilitiesFor(t *testing.T) {
	tests := []struct {
		provider Provider
		resume   bool
		mints    bool
		storage  StorageShape
	}{
		{ProviderClaude, true, false, StorageStreaming},
		{ProviderCodex, true, true, StorageStreaming},
		{ProviderGemini, false, true, StorageBatch},
	}
	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			caps, ok := CapabilitiesFor(tt.provider)
			if !ok {
				t.Fatal("expected a matrix entry")
			}
			if caps.Resume != tt.resume || caps.MintsSessionID != tt.mints || caps.SessionStorage != tt.storage {
				t.Errorf("caps = %+v", caps)
			}
		})
	}

	if _, ok := CapabilitiesFor("cursor"); ok {
		t.Error("unknown provider should have no entry")
	}
}
