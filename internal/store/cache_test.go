package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/agentinsights/internal/model"
)

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "sub", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sampleRecord(path string, mtime time.Time) model.NormalizedRecord {
	return model.NormalizedRecord{
		Agent:      model.AgentCodex,
		FilePath:   path,
		CreatedAt:  mtime.Add(-time.Hour).UTC(),
		ModifiedAt: mtime.UTC(),
		FileSize:   4096,
		SessionID:  "sess-1",
		Tokens: &model.TokenUsage{
			Input: 150, Output: 80, Cached: 40, Reasoning: 20, Total: 250,
		},
		ToolCalls: []string{"shell", "apply_patch", "shell"},
	}
}

func TestCache_StoreLookupRoundTrip(t *testing.T) {
	c := openTemp(t)
	mtime := time.Date(2025, 3, 4, 5, 6, 7, 891011121, time.UTC)
	rec := sampleRecord("/logs/a.jsonl", mtime)

	require.NoError(t, c.Store(rec))

	got, ok, err := c.Lookup(rec.FilePath, mtime)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestCache_LookupMissOnMtimeChange(t *testing.T) {
	c := openTemp(t)
	mtime := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, c.Store(sampleRecord("/logs/a.jsonl", mtime)))

	_, ok, err := c.Lookup("/logs/a.jsonl", mtime.Add(time.Nanosecond))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Lookup("/logs/other.jsonl", mtime)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_StoreReplaces(t *testing.T) {
	c := openTemp(t)
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	require.NoError(t, c.Store(sampleRecord("/logs/a.jsonl", t1)))
	updated := sampleRecord("/logs/a.jsonl", t2)
	updated.Tokens.Total = 999
	require.NoError(t, c.Store(updated))

	_, ok, err := c.Lookup("/logs/a.jsonl", t1)
	require.NoError(t, err)
	assert.False(t, ok, "stale mtime must miss after replace")

	got, ok, err := c.Lookup("/logs/a.jsonl", t2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(999), got.Tokens.Total)

	st, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, st.Total)
}

func TestCache_NilTokensAndEmptyTools(t *testing.T) {
	c := openTemp(t)
	mtime := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := model.NormalizedRecord{
		Agent:      model.AgentClaude,
		FilePath:   "/logs/empty.jsonl",
		CreatedAt:  mtime,
		ModifiedAt: mtime,
		ToolCalls:  nil,
	}
	require.NoError(t, c.Store(rec))

	got, ok, err := c.Lookup(rec.FilePath, mtime)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, got.Tokens)
	assert.Equal(t, []string{}, got.ToolCalls)
	assert.Empty(t, got.SessionID)
}

func TestCache_LargeCountersSurvive(t *testing.T) {
	c := openTemp(t)
	mtime := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := sampleRecord("/logs/big.jsonl", mtime)
	rec.Tokens.Input = math.MaxUint64
	rec.Tokens.Total = math.MaxInt64 + 7
	require.NoError(t, c.Store(rec))

	got, ok, err := c.Lookup(rec.FilePath, mtime)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(math.MaxUint64), got.Tokens.Input)
	assert.Equal(t, uint64(math.MaxInt64+7), got.Tokens.Total)
}

func TestCache_StatsAndClear(t *testing.T) {
	c := openTemp(t)
	mtime := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	kinds := []model.AgentKind{model.AgentClaude, model.AgentClaude, model.AgentCodex, model.AgentGemini}
	for i, k := range kinds {
		rec := sampleRecord(fmt.Sprintf("/logs/%d", i), mtime)
		rec.Agent = k
		require.NoError(t, c.Store(rec))
	}

	st, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, map[model.AgentKind]int{
		model.AgentClaude: 2,
		model.AgentCodex:  1,
		model.AgentGemini: 1,
	}, st.ByAgent)

	require.NoError(t, c.Clear())
	st, err = c.Stats()
	require.NoError(t, err)
	assert.Zero(t, st.Total)
	assert.Empty(t, st.ByAgent)
}

func TestCache_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	mtime := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := sampleRecord("/logs/a.jsonl", mtime)

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.Store(rec))
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	got, ok, err := c.Lookup(rec.FilePath, mtime)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)
	assert.Equal(t, path, c.Path())
}

func TestCache_MigratesOlderSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	// A database written before token and tool columns existed.
	old, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	_, err = old.Exec(`CREATE TABLE file_cache (
		file_path TEXT PRIMARY KEY,
		modified_at_ns INTEGER NOT NULL,
		agent TEXT,
		file_size INTEGER
	)`)
	require.NoError(t, err)
	mtime := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	_, err = old.Exec(`INSERT INTO file_cache (file_path, modified_at_ns, agent, file_size) VALUES (?, ?, ?, ?)`,
		"/logs/old.jsonl", mtime.UnixNano(), "claude", 123)
	require.NoError(t, err)
	require.NoError(t, old.Close())

	c, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	got, ok, err := c.Lookup("/logs/old.jsonl", mtime)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.AgentClaude, got.Agent)
	assert.Equal(t, int64(123), got.FileSize)
	assert.Nil(t, got.Tokens)
	assert.Equal(t, []string{}, got.ToolCalls)
	assert.Empty(t, got.SessionID)
	assert.True(t, got.CreatedAt.Equal(mtime))

	// New writes use the added columns.
	rec := sampleRecord("/logs/new.jsonl", mtime)
	require.NoError(t, c.Store(rec))
	got, ok, err = c.Lookup(rec.FilePath, mtime)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestCache_ConcurrentUse(t *testing.T) {
	c := openTemp(t)
	mtime := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := sampleRecord(fmt.Sprintf("/logs/%d.jsonl", i), mtime)
			assert.NoError(t, c.Store(rec))
			_, ok, err := c.Lookup(rec.FilePath, mtime)
			assert.NoError(t, err)
			assert.True(t, ok)
		}(i)
	}
	wg.Wait()

	st, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 16, st.Total)
}

func TestCache_ErrorsAfterClose(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, _, err = c.Lookup("/x", time.Now())
	require.Error(t, err)

	var ce *CacheError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "lookup", ce.Op)
	assert.NotErrorIs(t, err, sql.ErrNoRows)
}
