package source

import (
	"encoding/json"
	"time"
)

// FileMetadata describes one candidate log file found during a scan.
type FileMetadata struct {
	Path       string
	CreatedAt  time.Time
	ModifiedAt time.Time
	Size       int64
}

// count is a token counter that tolerates malformed JSON values. Anything
// other than a non-negative integer leaves it unset instead of failing the
// surrounding document.
type count struct {
	n  uint64
	ok bool
}

func (c *count) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var n uint64
	if err := json.Unmarshal(b, &n); err == nil {
		c.n, c.ok = n, true
	}
	return nil
}

// text is a string field that ignores non-string JSON values.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = text(s)
	}
	return nil
}

// Claude Code: one event per line.

type claudeLine struct {
	SessionID      text            `json:"sessionId"`
	SessionIDSnake text            `json:"session_id"`
	Usage          json.RawMessage `json:"usage"`
	Message        json.RawMessage `json:"message"`
}

type claudeMessage struct {
	Content json.RawMessage `json:"content"`
	Usage   json.RawMessage `json:"usage"`
}

type claudeUsage struct {
	InputTokens              count `json:"input_tokens"`
	OutputTokens             count `json:"output_tokens"`
	CacheReadInputTokens     count `json:"cache_read_input_tokens"`
	CacheCreationInputTokens count `json:"cache_creation_input_tokens"`
}

type contentItem struct {
	Type text `json:"type"`
	Name text `json:"name"`
}

// Codex CLI: typed envelopes, one per line.

type codexLine struct {
	Type    text            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type codexPayload struct {
	Type      text            `json:"type"`
	ID        text            `json:"id"`
	SessionID text            `json:"session_id"`
	Name      text            `json:"name"`
	Info      json.RawMessage `json:"info"`
}

type codexTokenInfo struct {
	TotalTokenUsage json.RawMessage `json:"total_token_usage"`
}

type codexUsage struct {
	InputTokens           count `json:"input_tokens"`
	CachedInputTokens     count `json:"cached_input_tokens"`
	OutputTokens          count `json:"output_tokens"`
	ReasoningOutputTokens count `json:"reasoning_output_tokens"`
	TotalTokens           count `json:"total_tokens"`
}

// Gemini CLI: a single chat document per file.

type geminiChat struct {
	SessionID      text            `json:"sessionId"`
	SessionIDSnake text            `json:"session_id"`
	Messages       json.RawMessage `json:"messages"`
}

type geminiMessage struct {
	Tokens    json.RawMessage `json:"tokens"`
	ToolCalls json.RawMessage `json:"toolCalls"`
}

type geminiTokens struct {
	Input    count `json:"input"`
	Output   count `json:"output"`
	Cached   count `json:"cached"`
	Thoughts count `json:"thoughts"`
	Tool     count `json:"tool"`
}

type geminiToolCall struct {
	Name text `json:"name"`
}
