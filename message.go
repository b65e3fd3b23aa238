package agentcmd

import (
	"encoding/json"
	"strings"
)

// Provider identifies one of the supported AI CLI backends.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderCodex  Provider = "codex"
	ProviderGemini Provider = "gemini"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// BlockType discriminates the ContentBlock variants.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	BlockThinking   BlockType = "thinking"
	BlockImage      BlockType = "image"
)

// ContentBlock is one typed unit within a message. The Type field selects
// the variant; only the fields belonging to that variant are populated.
//
// Within a message, blocks keep the order providers emit them:
// thinking blocks first, then (tool_use, tool_result?) pairs, then text.
// Parsers must never reorder blocks.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// Text carries the payload for text and thinking blocks.
	Text string `json:"text,omitempty"`

	// Tool use fields.
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// Tool result fields.
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`

	// Image fields (base64 payload).
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
}

// TextBlock returns a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ThinkingBlock returns a thinking (reasoning) content block.
func ThinkingBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockThinking, Text: text}
}

// ToolUseBlock returns a tool invocation block.
func ToolUseBlock(id, name string, input map[string]any) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

// ToolResultBlock returns a tool result block referencing a tool_use id.
func ToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: toolUseID, Content: content, IsError: isError}
}

// TokenUsage carries token accounting reported by the provider's model.
type TokenUsage struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	CacheReadTokens int `json:"cache_read_tokens,omitempty"`
}

// UnifiedMessage is the canonical, provider-agnostic conversation record.
type UnifiedMessage struct {
	// ID is the provider's message identifier, or a deterministic
	// synthesized one when the provider has none.
	ID string `json:"id"`

	// Role is user, assistant, or tool.
	Role Role `json:"role"`

	// Content is the ordered block sequence. A trivial plain-string
	// message is a single text block; use Text to recover the string view.
	Content []ContentBlock `json:"content"`

	// Timestamp is epoch milliseconds, always positive.
	Timestamp int64 `json:"timestamp"`

	// Provider tags the backend that produced this message.
	Provider Provider `json:"provider"`

	// Model is the model identifier when the provider reports one.
	Model string `json:"model,omitempty"`

	// Usage is token accounting when the provider reports it.
	Usage *TokenUsage `json:"usage,omitempty"`

	// Raw is the original provider record, verbatim. Parsing never loses
	// source information; anything not represented in Content survives here.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Text concatenates the message's top-level text blocks.
func (m *UnifiedMessage) Text() string {
	var b strings.Builder
	for _, blk := range m.Content {
		if blk.Type != BlockText {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(blk.Text)
	}
	return b.String()
}

// ToolUses returns the message's tool_use blocks in order.
func (m *UnifiedMessage) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, blk := range m.Content {
		if blk.Type == BlockToolUse {
			uses = append(uses, blk)
		}
	}
	return uses
}

// Record is the output of parsing one provider-native record. A record may
// carry a message, session metadata, or both; metadata-only records (init
// handshakes, turn bookkeeping) have a nil Message.
type Record struct {
	// Message is the normalized message, nil for metadata-only records.
	Message *UnifiedMessage

	// SessionID is set when the record carries the provider's session
	// (or thread) identifier.
	SessionID string
}
