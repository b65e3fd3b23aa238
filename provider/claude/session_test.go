package claude

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jnarowski/agentcmd"
)

func TestSessionFilePathEncoding(t *testing.T) {
	d := New()

	tests := []struct {
		projectDir string
		wantDir    string
	}{
		{"/Users/sarah/projects/api", "-Users-sarah-projects-api"},
		{"/home/dev/my.app", "-home-dev-my-app"},
	}
	for _, tt := range tests {
		t.Run(tt.projectDir, func(t *testing.T) {
			path, err := d.SessionFilePath("/root/.claude", tt.projectDir, "sess-1")
			if err != nil {
				t.Fatal(err)
			}
			want := filepath.Join("/root/.claude", "projects", tt.wantDir, "sess-1.jsonl")
			if path != want {
				t.Errorf("path = %q, want %q", path, want)
			}
		})
	}
}

func TestSessionFilePathRequiresID(t *testing.T) {
	d := New()
	if _, err := d.SessionFilePath("/root/.claude", "/proj", ""); err == nil {
		t.Error("expected error for empty session id")
	}
}

func TestReadSessionFile(t *testing.T) {
	d := New(WithClock(fixedClock()))
	path := filepath.Join(t.TempDir(), "sess.jsonl")

	lines := []string{
		`{"type":"user","timestamp":"2026-03-14T09:00:00Z","message":{"role":"user","content":"fix the bug"}}`,
		`{"type":"assistant","timestamp":"2026-03-14T09:00:05Z","message":{"id":"m1","role":"assistant","content":[{"type":"text","text":"on it"}]}}`,
		`{"type":"summary","summary":"Bug fixing session"}`,
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	messages, err := d.ReadSessionFile(path)
	if err != nil {
		t.Fatalf("ReadSessionFile: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2 (summary entries excluded)", len(messages))
	}
	if messages[0].Role != agentcmd.RoleUser || messages[1].Role != agentcmd.RoleAssistant {
		t.Errorf("roles = %q, %q", messages[0].Role, messages[1].Role)
	}
	if messages[0].Timestamp >= messages[1].Timestamp {
		t.Error("messages should be ordered by timestamp ascending")
	}
}

func TestReadSessionFileTruncatedTrailingRecord(t *testing.T) {
	d := New(WithClock(fixedClock()))
	path := filepath.Join(t.TempDir(), "sess.jsonl")

	// Process killed mid-write: the last line is an incomplete fragment.
	content := `{"type":"user","timestamp":"2026-03-14T09:00:00Z","message":{"role":"user","content":"hello"}}
{"type":"assistant","timestamp":"2026-03-14T09:00:02Z","message":{"id":"m1","role":"assistant","content":[{"type":"text","text":"hi"}]}}
{"type":"assistant","timestamp":"2026-03-14T09:00:0`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	messages, err := d.ReadSessionFile(path)
	if err != nil {
		t.Fatalf("ReadSessionFile: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2 well-formed records", len(messages))
	}
}

func TestReadSessionFileMissing(t *testing.T) {
	d := New()
	messages, err := d.ReadSessionFile(filepath.Join(t.TempDir(), "nope.jsonl"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("messages = %d, want 0", len(messages))
	}
}
