package model

import (
	"sort"
	"time"
)

// DateLayout is the calendar-day key format used by DayBucket.
const DateLayout = "2006-01-02"

// DayBucket holds the file count and byte total for one calendar day.
type DayBucket struct {
	Date      string `json:"date"`
	Count     int    `json:"count"`
	SizeBytes int64  `json:"size"`
}

// Day parses the bucket date in the given location.
func (d DayBucket) Day(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t, _ := time.ParseInLocation(DateLayout, d.Date, loc)
	return t
}

// ToolCallCount is one row of the tool-call histogram.
type ToolCallCount struct {
	ToolName string `json:"tool_name"`
	Count    int    `json:"count"`
}

// TokenStats is the aggregated token summary for one agent. Reasoning is nil
// when no reasoning tokens were reported at all.
type TokenStats struct {
	InputTokens         uint64  `json:"input_tokens"`
	OutputTokens        uint64  `json:"output_tokens"`
	CacheCreationTokens uint64  `json:"cache_creation_tokens"`
	CacheReadTokens     uint64  `json:"cache_read_tokens"`
	ReasoningTokens     *uint64 `json:"reasoning_tokens,omitempty"`
	TotalTokens         uint64  `json:"total_tokens"`
}

// HeatmapResult is the per-agent daily activity summary.
type HeatmapResult struct {
	AgentLabel string          `json:"agent"`
	Days       []DayBucket     `json:"data"`
	MaxCount   int             `json:"max_count"`
	TotalFiles int             `json:"total_files"`
	TotalSize  int64           `json:"total_size"`
	ToolCalls  []ToolCallCount `json:"tool_calls"`
	TokenStats TokenStats      `json:"token_stats"`
}

// NewHeatmapResult builds a HeatmapResult from unordered day buckets.
// MaxCount, TotalFiles and TotalSize are derived from the buckets.
func NewHeatmapResult(label string, days []DayBucket, tools []ToolCallCount, tokens TokenStats) HeatmapResult {
	sorted := make([]DayBucket, len(days))
	copy(sorted, days)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	res := HeatmapResult{
		AgentLabel: label,
		Days:       sorted,
		ToolCalls:  tools,
		TokenStats: tokens,
	}
	if res.ToolCalls == nil {
		res.ToolCalls = []ToolCallCount{}
	}
	for _, d := range sorted {
		if d.Count > res.MaxCount {
			res.MaxCount = d.Count
		}
		res.TotalFiles += d.Count
		res.TotalSize += d.SizeBytes
	}
	return res
}

// ActiveDays returns the number of days with at least one file.
func (h HeatmapResult) ActiveDays() int {
	n := 0
	for _, d := range h.Days {
		if d.Count > 0 {
			n++
		}
	}
	return n
}

// TopTool returns the most frequently called tool, if any.
func (h HeatmapResult) TopTool() (ToolCallCount, bool) {
	if len(h.ToolCalls) == 0 {
		return ToolCallCount{}, false
	}
	return h.ToolCalls[0], true
}
