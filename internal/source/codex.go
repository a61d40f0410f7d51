package source

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/theirongolddev/agentinsights/internal/model"
)

// codexSnapshot tracks the most recent cumulative token_count values. Each
// field is replaced independently when a snapshot reports it.
type codexSnapshot struct {
	input, cached, output, reasoning, total uint64
}

func (s *codexSnapshot) apply(u codexUsage) {
	set := func(dst *uint64, c count) {
		if c.ok {
			*dst = c.n
		}
	}
	set(&s.input, u.InputTokens)
	set(&s.cached, u.CachedInputTokens)
	set(&s.output, u.OutputTokens)
	set(&s.reasoning, u.ReasoningOutputTokens)
	set(&s.total, u.TotalTokens)
}

// parseCodex reads a Codex CLI rollout file. Token counts are cumulative
// snapshots, so the last one wins rather than being summed.
func parseCodex(meta FileMetadata) ParseResult {
	f, err := os.Open(meta.Path)
	if err != nil {
		return ParseResult{Err: fmt.Errorf("opening %s: %w", meta.Path, err)}
	}
	defer func() { _ = f.Close() }()

	rec := newRecord(model.AgentCodex, meta)
	var snap codexSnapshot

	skipped, err := forEachLine(f, func(line []byte) bool {
		var ev codexLine
		if err := json.Unmarshal(line, &ev); err != nil {
			return false
		}
		if len(ev.Payload) == 0 {
			return true
		}
		var payload codexPayload
		if json.Unmarshal(ev.Payload, &payload) != nil {
			return true
		}

		switch ev.Type {
		case "session_meta":
			if rec.SessionID == "" {
				rec.SessionID = firstText(payload.ID, payload.SessionID)
			}
		case "event_msg":
			if payload.Type != "token_count" || len(payload.Info) == 0 {
				return true
			}
			var info codexTokenInfo
			if json.Unmarshal(payload.Info, &info) != nil || len(info.TotalTokenUsage) == 0 {
				return true
			}
			var u codexUsage
			if json.Unmarshal(info.TotalTokenUsage, &u) == nil {
				snap.apply(u)
			}
		case "response_item":
			switch payload.Type {
			case "custom_tool_call", "function_call":
				if payload.Name != "" {
					rec.ToolCalls = append(rec.ToolCalls, string(payload.Name))
				}
			}
		}
		return true
	})
	if err != nil {
		return ParseResult{SkippedLines: skipped, Err: fmt.Errorf("reading %s: %w", meta.Path, err)}
	}

	rec.Tokens = tokensOrNil(model.TokenUsage{
		Input:     snap.input,
		Output:    snap.output,
		Cached:    snap.cached,
		Reasoning: snap.reasoning,
		Total:     snap.total,
	})
	return ParseResult{Record: rec, SkippedLines: skipped}
}
