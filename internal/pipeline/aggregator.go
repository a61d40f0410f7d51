package pipeline

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/theirongolddev/agentinsights/internal/model"
)

// AggregateAgent builds the heatmap for a set of records belonging to one
// agent. Days are calendar dates of CreatedAt in loc (UTC when nil). An empty
// set yields an empty result labelled "unknown".
func AggregateAgent(records []model.NormalizedRecord, loc *time.Location) model.HeatmapResult {
	if loc == nil {
		loc = time.UTC
	}
	label := model.AgentUnknown.String()
	if len(records) > 0 {
		label = records[0].Agent.String()
	}

	buckets := make(map[string]*model.DayBucket)
	for _, r := range records {
		date := r.CreatedAt.In(loc).Format(model.DateLayout)
		b, ok := buckets[date]
		if !ok {
			b = &model.DayBucket{Date: date}
			buckets[date] = b
		}
		b.Count++
		b.SizeBytes += r.FileSize
	}
	days := make([]model.DayBucket, 0, len(buckets))
	for _, b := range buckets {
		days = append(days, *b)
	}

	return model.NewHeatmapResult(label, days, toolHistogram(records), tokenStats(records))
}

// AggregateByAgent partitions records by agent and aggregates each partition.
func AggregateByAgent(records []model.NormalizedRecord, loc *time.Location) map[model.AgentKind]model.HeatmapResult {
	groups := lo.GroupBy(records, func(r model.NormalizedRecord) model.AgentKind { return r.Agent })
	return lo.MapValues(groups, func(rs []model.NormalizedRecord, _ model.AgentKind) model.HeatmapResult {
		return AggregateAgent(rs, loc)
	})
}

// FilterAgent returns the records produced by one agent.
func FilterAgent(records []model.NormalizedRecord, kind model.AgentKind) []model.NormalizedRecord {
	return lo.Filter(records, func(r model.NormalizedRecord, _ int) bool { return r.Agent == kind })
}

// FilterSince returns records created at or after since. A zero since keeps
// everything.
func FilterSince(records []model.NormalizedRecord, since time.Time) []model.NormalizedRecord {
	if since.IsZero() {
		return records
	}
	return lo.Filter(records, func(r model.NormalizedRecord, _ int) bool { return !r.CreatedAt.Before(since) })
}

// toolHistogram counts tool names, most used first. Ties keep first-seen order.
func toolHistogram(records []model.NormalizedRecord) []model.ToolCallCount {
	index := make(map[string]int)
	var hist []model.ToolCallCount
	for _, r := range records {
		for _, name := range r.ToolCalls {
			i, ok := index[name]
			if !ok {
				i = len(hist)
				index[name] = i
				hist = append(hist, model.ToolCallCount{ToolName: name})
			}
			hist[i].Count++
		}
	}
	sort.SliceStable(hist, func(i, j int) bool {
		return hist[i].Count > hist[j].Count
	})
	return hist
}

// tokenStats sums token usage. Codex and Gemini files carry a trusted grand
// total per file, so their totals are summed as reported; other agents derive
// the total from the four subtotals.
func tokenStats(records []model.NormalizedRecord) model.TokenStats {
	var (
		st        model.TokenStats
		reasoning uint64
	)
	for _, r := range records {
		t := r.Tokens
		if t == nil {
			continue
		}
		st.InputTokens = model.SatAdd(st.InputTokens, t.Input)
		st.OutputTokens = model.SatAdd(st.OutputTokens, t.Output)
		st.CacheCreationTokens = model.SatAdd(st.CacheCreationTokens, t.CacheCreation)
		st.CacheReadTokens = model.SatAdd(st.CacheReadTokens, t.Cached)

		switch r.Agent {
		case model.AgentCodex, model.AgentGemini:
			st.TotalTokens = model.SatAdd(st.TotalTokens, t.Total)
			reasoning = model.SatAdd(reasoning, t.Reasoning)
		default:
			derived := model.SatAdd(
				model.SatAdd(t.Input, t.Output),
				model.SatAdd(t.CacheCreation, t.Cached),
			)
			st.TotalTokens = model.SatAdd(st.TotalTokens, derived)
		}
	}
	if reasoning > 0 {
		st.ReasoningTokens = &reasoning
	}
	return st
}

// FillDays returns one bucket per calendar day from since through until in
// loc, filling days without activity with zero counts.
func FillDays(h model.HeatmapResult, since, until time.Time, loc *time.Location) []model.DayBucket {
	if loc == nil {
		loc = time.UTC
	}
	byDate := lo.KeyBy(h.Days, func(d model.DayBucket) string { return d.Date })

	start := truncateDay(since.In(loc))
	end := truncateDay(until.In(loc))
	var out []model.DayBucket
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(model.DateLayout)
		if b, ok := byDate[key]; ok {
			out = append(out, b)
		} else {
			out = append(out, model.DayBucket{Date: key})
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
