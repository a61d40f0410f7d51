// Package model defines domain types shared by the ingestion pipeline.
package model

import (
	"fmt"
	"math"
	"math/bits"
	"strings"
	"time"
)

// AgentKind identifies which coding assistant produced a log file.
type AgentKind int

// Supported agents. The set is closed: accounting rules are dispatched on it.
const (
	AgentUnknown AgentKind = iota
	AgentClaude
	AgentCodex
	AgentGemini
)

// Agents lists every known agent in display order.
var Agents = []AgentKind{AgentClaude, AgentCodex, AgentGemini}

// String returns the lowercase agent label used in APIs and the cache.
func (k AgentKind) String() string {
	switch k {
	case AgentClaude:
		return "claude"
	case AgentCodex:
		return "codex"
	case AgentGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// DisplayName returns a human-readable agent name.
func (k AgentKind) DisplayName() string {
	switch k {
	case AgentClaude:
		return "Claude Code"
	case AgentCodex:
		return "Codex"
	case AgentGemini:
		return "Gemini CLI"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k AgentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unrecognized labels
// decode to AgentUnknown.
func (k *AgentKind) UnmarshalText(b []byte) error {
	*k, _ = ParseAgentKind(string(b))
	return nil
}

// ParseAgentKind maps a label (case-insensitive) to an AgentKind.
func ParseAgentKind(s string) (AgentKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "claude":
		return AgentClaude, nil
	case "codex":
		return AgentCodex, nil
	case "gemini":
		return AgentGemini, nil
	}
	return AgentUnknown, fmt.Errorf("unknown agent %q", s)
}

// TokenUsage holds token counters for one file. Accumulation saturates at
// math.MaxUint64 instead of wrapping.
type TokenUsage struct {
	Input         uint64 `json:"input"`
	Output        uint64 `json:"output"`
	Cached        uint64 `json:"cached"`
	CacheCreation uint64 `json:"cache_creation"`
	Reasoning     uint64 `json:"reasoning"`
	Total         uint64 `json:"total"`
}

// Add returns the field-wise saturating sum of u and o.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		Input:         SatAdd(u.Input, o.Input),
		Output:        SatAdd(u.Output, o.Output),
		Cached:        SatAdd(u.Cached, o.Cached),
		CacheCreation: SatAdd(u.CacheCreation, o.CacheCreation),
		Reasoning:     SatAdd(u.Reasoning, o.Reasoning),
		Total:         SatAdd(u.Total, o.Total),
	}
}

// SatAdd adds two counters, clamping at math.MaxUint64.
func SatAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

// NormalizedRecord is the common per-file representation produced by every
// normalizer. It is never mutated after construction.
type NormalizedRecord struct {
	Agent      AgentKind   `json:"agent"`
	FilePath   string      `json:"file_path"`
	CreatedAt  time.Time   `json:"created_at"`
	ModifiedAt time.Time   `json:"modified_at"`
	FileSize   int64       `json:"file_size"`
	SessionID  string      `json:"session_id,omitempty"`
	Tokens     *TokenUsage `json:"tokens,omitempty"`
	ToolCalls  []string    `json:"tool_calls"`
}

// HasSession reports whether a session id was found in the file.
func (r NormalizedRecord) HasSession() bool {
	return r.SessionID != ""
}
