package source

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/theirongolddev/agentinsights/internal/model"
)

// parseGemini reads a Gemini CLI chat document. Unlike the line-oriented
// formats, a document that is not valid JSON rejects the whole file. Valid
// JSON of another shape still yields a record with no session or usage.
func parseGemini(meta FileMetadata) ParseResult {
	data, err := os.ReadFile(meta.Path)
	if err != nil {
		return ParseResult{Err: fmt.Errorf("reading %s: %w", meta.Path, err)}
	}

	var doc json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return ParseResult{Err: &ParseError{Path: meta.Path, Err: err}}
	}
	var chat geminiChat
	_ = json.Unmarshal(doc, &chat)

	rec := newRecord(model.AgentGemini, meta)
	rec.SessionID = firstText(chat.SessionID, chat.SessionIDSnake)

	var (
		input, output, cached, thoughts, tool uint64
		messages                              []json.RawMessage
	)
	if len(chat.Messages) > 0 {
		_ = json.Unmarshal(chat.Messages, &messages)
	}
	for _, raw := range messages {
		var msg geminiMessage
		if json.Unmarshal(raw, &msg) != nil {
			continue
		}
		if len(msg.Tokens) > 0 {
			var t geminiTokens
			if json.Unmarshal(msg.Tokens, &t) == nil {
				input = model.SatAdd(input, t.Input.n)
				output = model.SatAdd(output, t.Output.n)
				cached = model.SatAdd(cached, t.Cached.n)
				thoughts = model.SatAdd(thoughts, t.Thoughts.n)
				tool = model.SatAdd(tool, t.Tool.n)
			}
		}
		if len(msg.ToolCalls) > 0 {
			var calls []json.RawMessage
			if json.Unmarshal(msg.ToolCalls, &calls) != nil {
				continue
			}
			for _, c := range calls {
				var call geminiToolCall
				if json.Unmarshal(c, &call) == nil && call.Name != "" {
					rec.ToolCalls = append(rec.ToolCalls, string(call.Name))
				}
			}
		}
	}

	// Usage presence is judged on raw input and output only.
	if input == 0 && output == 0 {
		return ParseResult{Record: rec}
	}
	// Thinking and tool-use tokens are billed as output.
	aggOutput := model.SatAdd(model.SatAdd(output, thoughts), tool)
	rec.Tokens = &model.TokenUsage{
		Input:  input,
		Output: aggOutput,
		Cached: cached,
		Total:  model.SatAdd(model.SatAdd(input, aggOutput), cached),
	}
	return ParseResult{Record: rec}
}
