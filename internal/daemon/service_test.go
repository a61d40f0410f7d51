package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/agentinsights/internal/model"
	"github.com/theirongolddev/agentinsights/internal/pipeline"
	"github.com/theirongolddev/agentinsights/internal/source"
	"github.com/theirongolddev/agentinsights/internal/store"
	"github.com/theirongolddev/agentinsights/internal/watch"
)

func seedHome(t *testing.T) string {
	t.Helper()
	home := source.ResolveRoot(t.TempDir())
	write := func(rel, content string) {
		path := filepath.Join(home, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	write(".claude/projects/p/a.jsonl",
		`{"sessionId":"a","message":{"usage":{"input_tokens":10,"output_tokens":5},"content":[{"type":"tool_use","name":"Bash"}]}}`+"\n")
	write(".claude/projects/p/b.jsonl",
		`{"sessionId":"b","message":{"usage":{"input_tokens":1,"output_tokens":1}}}`+"\n")
	write(".codex/sessions/2025/r.jsonl",
		`{"type":"event_msg","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":3,"output_tokens":4,"total_tokens":70}}}}`+"\n")
	return home
}

func newTestService(t *testing.T, home string) *Service {
	t.Helper()
	return New(Config{Location: time.UTC}, pipeline.NewCollector(), source.DefaultSources(home), nil, nil)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestWarmRecordsStartupScan(t *testing.T) {
	home := seedHome(t)
	cache, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	col := pipeline.NewCollector(pipeline.WithCache(cache))
	s := New(Config{Location: time.UTC}, col, source.DefaultSources(home), nil, nil)

	results := s.Warm()
	require.Len(t, results, 3)

	st := s.snapshotStatus()
	assert.Equal(t, int64(1), st.ScanCount)
	assert.Equal(t, 2, st.LastScan["claude"].Reparsed)
	assert.Equal(t, 1, st.LastScan["codex"].Reparsed)

	stats, err := cache.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByAgent[model.AgentClaude])

	// The first request after warm-up is served from the cache.
	rec := get(t, s.Handler(), "/api/heatmaps")
	require.Equal(t, http.StatusOK, rec.Code)
	st = s.snapshotStatus()
	assert.Equal(t, 2, st.LastScan["claude"].CacheHits)
	assert.Equal(t, 0, st.LastScan["claude"].Reparsed)
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestService(t, t.TempDir()).Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestHeatmapsGroupedByAgent(t *testing.T) {
	s := newTestService(t, seedHome(t))
	rec := get(t, s.Handler(), "/api/heatmaps")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]model.HeatmapResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)

	claude := body["claude"]
	assert.Equal(t, "claude", claude.AgentLabel)
	assert.Equal(t, 2, claude.TotalFiles)
	assert.Equal(t, uint64(17), claude.TokenStats.TotalTokens)
	assert.Equal(t, []model.ToolCallCount{{ToolName: "Bash", Count: 1}}, claude.ToolCalls)

	codex := body["codex"]
	assert.Equal(t, uint64(70), codex.TokenStats.TotalTokens)

	st := s.snapshotStatus()
	assert.Equal(t, int64(1), st.ScanCount)
	assert.Equal(t, 2, st.LastScan["claude"].Files)
	assert.Equal(t, 0, st.LastScan["gemini"].Files)
}

func TestAgentHeatmap(t *testing.T) {
	s := newTestService(t, seedHome(t))

	rec := get(t, s.Handler(), "/api/heatmap/Claude")
	require.Equal(t, http.StatusOK, rec.Code)
	var h model.HeatmapResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "claude", h.AgentLabel)
	assert.Equal(t, 2, h.TotalFiles)

	raw := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Contains(t, raw, "data")
	tokenStats := raw["token_stats"].(map[string]any)
	assert.NotContains(t, tokenStats, "reasoning_tokens")

	rec = get(t, s.Handler(), "/api/heatmap/gemini")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "unknown", h.AgentLabel)
	assert.Zero(t, h.TotalFiles)
}

func TestAgentHeatmapUnknownAgent(t *testing.T) {
	s := newTestService(t, t.TempDir())
	for _, agent := range []string{"cursor", "unknown"} {
		rec := get(t, s.Handler(), "/api/heatmap/"+agent)
		assert.Equal(t, http.StatusNotFound, rec.Code, agent)
		assert.Contains(t, rec.Body.String(), "unknown agent")
	}
}

func TestHeatmapsDaysParam(t *testing.T) {
	s := newTestService(t, seedHome(t))

	rec := get(t, s.Handler(), "/api/heatmaps?days=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, s.Handler(), "/api/heatmaps?days=0")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]model.HeatmapResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body["claude"].TotalFiles)

	rec = get(t, s.Handler(), "/api/heatmaps?days=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body["claude"].TotalFiles, "files created today are inside a one-day window")
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{EventsBuffer: 2}, nil, nil, nil, nil)

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	rec := get(t, s.Handler(), "/v1/events")
	require.Equal(t, http.StatusOK, rec.Code)

	var events []Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].ID)
	assert.Equal(t, int64(3), events[1].ID)
}

func TestPublishFileAddedAssignsIDs(t *testing.T) {
	s := New(Config{}, nil, nil, nil, nil)
	s.publishFileAdded(watch.Event{Agent: model.AgentGemini, Path: "/g/chats/a.json", At: time.Now()})
	s.publishFileAdded(watch.Event{Agent: model.AgentCodex, Path: "/c/r.jsonl", At: time.Now()})

	s.mu.RLock()
	defer s.mu.RUnlock()
	require.Len(t, s.events, 2)
	assert.Equal(t, Event{
		ID: 1, Type: "file_added", Timestamp: s.events[0].Timestamp, Agent: "gemini", FilePath: "/g/chats/a.json",
	}, s.events[0])
	assert.Equal(t, int64(2), s.events[1].ID)
}

func TestStatus(t *testing.T) {
	s := New(Config{Addr: "127.0.0.1:9999", Days: 7}, nil, nil, nil, nil)
	rec := get(t, s.Handler(), "/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "127.0.0.1:9999", st.Addr)
	assert.Equal(t, 7, st.Days)
	assert.Zero(t, st.EventCount)
}

func TestStreamDeliversEvents(t *testing.T) {
	s := New(Config{}, nil, nil, nil, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "":
				return name, data
			}
		}
	}

	name, _ := readEvent()
	require.Equal(t, "ready", name)

	// The subscriber is registered before "ready" is written.
	s.publishFileAdded(watch.Event{Agent: model.AgentClaude, Path: "/x/s.jsonl", At: time.Now()})

	name, data := readEvent()
	assert.Equal(t, "file_added", name)
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, "claude", ev.Agent)
	assert.Equal(t, "/x/s.jsonl", ev.FilePath)
}
