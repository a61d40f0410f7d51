package source

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/agentinsights/internal/model"
)

func TestParseClaude_SumsUsageAndSkipsMalformed(t *testing.T) {
	meta := writeLog(t, "session.jsonl",
		`{"type":"assistant","sessionId":"s-1","message":{"usage":{"input_tokens":10,"output_tokens":5}}}`,
		`{"type":"assistant","sessionId":"s-1","message":{"usage":{"input_tokens":20,"output_tokens":0}}}`,
		`{"type":"assistant", this is not json`,
		`{"type":"assistant","sessionId":"s-1","message":{"usage":{"input_tokens":5,"output_tokens":5}}}`,
	)

	res := ParseFile(model.AgentClaude, meta)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.SkippedLines)

	rec := res.Record
	assert.Equal(t, "s-1", rec.SessionID)
	require.NotNil(t, rec.Tokens)
	assert.Equal(t, uint64(35), rec.Tokens.Input)
	assert.Equal(t, uint64(10), rec.Tokens.Output)
	assert.Equal(t, uint64(45), rec.Tokens.Total)
}

func TestParseClaude_CacheCountersAndTotal(t *testing.T) {
	meta := writeLog(t, "session.jsonl",
		`{"message":{"usage":{"input_tokens":3,"output_tokens":4,"cache_read_input_tokens":100,"cache_creation_input_tokens":20}}}`,
		`{"usage":{"input_tokens":1,"output_tokens":1,"cache_read_input_tokens":10}}`,
	)

	res := ParseFile(model.AgentClaude, meta)
	require.NoError(t, res.Err)
	assert.Equal(t, &model.TokenUsage{
		Input:         4,
		Output:        5,
		Cached:        110,
		CacheCreation: 20,
		Total:         139,
	}, res.Record.Tokens)
}

func TestParseClaude_TopLevelUsageWins(t *testing.T) {
	meta := writeLog(t, "session.jsonl",
		`{"usage":{"input_tokens":7,"output_tokens":1},"message":{"usage":{"input_tokens":1000,"output_tokens":1000}}}`,
	)

	res := ParseFile(model.AgentClaude, meta)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Record.Tokens)
	assert.Equal(t, uint64(7), res.Record.Tokens.Input)
	assert.Equal(t, uint64(1), res.Record.Tokens.Output)
}

func TestParseClaude_ToolUses(t *testing.T) {
	meta := writeLog(t, "session.jsonl",
		`{"message":{"content":[{"type":"text","text":"hi"},{"type":"tool_use","name":"Read"},{"type":"tool_use","name":"Bash"}]}}`,
		`{"message":{"content":"plain string content"}}`,
		`{"message":{"content":[{"type":"tool_use"},{"type":"tool_use","name":42},"junk",{"type":"tool_use","name":"Read"}]}}`,
	)

	res := ParseFile(model.AgentClaude, meta)
	require.NoError(t, res.Err)
	assert.Equal(t, 0, res.SkippedLines)
	assert.Equal(t, []string{"Read", "Bash", "Read"}, res.Record.ToolCalls)
	assert.Nil(t, res.Record.Tokens)
}

func TestParseClaude_SessionIDFirstWins(t *testing.T) {
	meta := writeLog(t, "session.jsonl",
		`{"type":"summary"}`,
		`{"session_id":"snake"}`,
		`{"sessionId":"camel"}`,
	)

	res := ParseFile(model.AgentClaude, meta)
	require.NoError(t, res.Err)
	assert.Equal(t, "snake", res.Record.SessionID)
}

func TestParseClaude_LenientNumbers(t *testing.T) {
	meta := writeLog(t, "session.jsonl",
		`{"message":{"usage":{"input_tokens":-5,"output_tokens":"12","cache_read_input_tokens":1.5}}}`,
		`{"message":{"usage":{"input_tokens":2,"output_tokens":3}}}`,
	)

	res := ParseFile(model.AgentClaude, meta)
	require.NoError(t, res.Err)
	assert.Equal(t, 0, res.SkippedLines)
	assert.Equal(t, &model.TokenUsage{Input: 2, Output: 3, Total: 5}, res.Record.Tokens)
}

func TestParseClaude_NonObjectLinesSkipped(t *testing.T) {
	meta := writeLog(t, "session.jsonl",
		`[1,2,3]`,
		`"just a string"`,
		`{"message":{"usage":{"input_tokens":1,"output_tokens":1}}}`,
	)

	res := ParseFile(model.AgentClaude, meta)
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.SkippedLines)
	require.NotNil(t, res.Record.Tokens)
	assert.Equal(t, uint64(2), res.Record.Tokens.Total)
}

func TestParseClaude_Saturates(t *testing.T) {
	meta := writeLog(t, "session.jsonl",
		`{"message":{"usage":{"input_tokens":18446744073709551615,"output_tokens":1}}}`,
		`{"message":{"usage":{"input_tokens":18446744073709551615,"output_tokens":1}}}`,
	)

	res := ParseFile(model.AgentClaude, meta)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Record.Tokens)
	assert.Equal(t, uint64(math.MaxUint64), res.Record.Tokens.Input)
	assert.Equal(t, uint64(2), res.Record.Tokens.Output)
	assert.Equal(t, uint64(math.MaxUint64), res.Record.Tokens.Total)
}

func TestParseClaude_EmptyFile(t *testing.T) {
	meta := writeLog(t, "session.jsonl")
	res := ParseFile(model.AgentClaude, meta)
	require.NoError(t, res.Err)
	assert.Nil(t, res.Record.Tokens)
	assert.Empty(t, res.Record.SessionID)
}
