package source

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/theirongolddev/agentinsights/internal/model"
)

// parseClaude reads a Claude Code session transcript. Usage is summed across
// every assistant turn; the first session id seen wins.
func parseClaude(meta FileMetadata) ParseResult {
	f, err := os.Open(meta.Path)
	if err != nil {
		return ParseResult{Err: fmt.Errorf("opening %s: %w", meta.Path, err)}
	}
	defer func() { _ = f.Close() }()

	rec := newRecord(model.AgentClaude, meta)
	var usage model.TokenUsage

	skipped, err := forEachLine(f, func(line []byte) bool {
		var ev claudeLine
		if err := json.Unmarshal(line, &ev); err != nil {
			return false
		}
		if rec.SessionID == "" {
			rec.SessionID = firstText(ev.SessionID, ev.SessionIDSnake)
		}

		var msg claudeMessage
		hasMsg := len(ev.Message) > 0 && json.Unmarshal(ev.Message, &msg) == nil

		// A top-level usage key shadows the one nested in the message.
		raw := ev.Usage
		if raw == nil && hasMsg {
			raw = msg.Usage
		}
		if raw != nil {
			var u claudeUsage
			if json.Unmarshal(raw, &u) == nil {
				usage = usage.Add(model.TokenUsage{
					Input:         u.InputTokens.n,
					Output:        u.OutputTokens.n,
					Cached:        u.CacheReadInputTokens.n,
					CacheCreation: u.CacheCreationInputTokens.n,
				})
			}
		}

		if hasMsg {
			rec.ToolCalls = appendToolUses(rec.ToolCalls, msg.Content)
		}
		return true
	})
	if err != nil {
		return ParseResult{SkippedLines: skipped, Err: fmt.Errorf("reading %s: %w", meta.Path, err)}
	}

	usage.Total = model.SatAdd(
		model.SatAdd(usage.Input, usage.Output),
		model.SatAdd(usage.Cached, usage.CacheCreation),
	)
	rec.Tokens = tokensOrNil(usage)
	return ParseResult{Record: rec, SkippedLines: skipped}
}

// appendToolUses collects tool names from "tool_use" content blocks. Plain
// string content and malformed blocks are ignored.
func appendToolUses(tools []string, content json.RawMessage) []string {
	if len(content) == 0 {
		return tools
	}
	var items []json.RawMessage
	if json.Unmarshal(content, &items) != nil {
		return tools
	}
	for _, raw := range items {
		var item contentItem
		if json.Unmarshal(raw, &item) != nil {
			continue
		}
		if item.Type == "tool_use" && item.Name != "" {
			tools = append(tools, string(item.Name))
		}
	}
	return tools
}
