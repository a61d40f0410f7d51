// Package store provides a SQLite-backed cache of normalized records keyed by
// file path and modification time.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/theirongolddev/agentinsights/internal/model"
)

// CacheError wraps a failed cache operation.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string { return fmt.Sprintf("cache %s: %v", e.Op, e.Err) }

func (e *CacheError) Unwrap() error { return e.Err }

// Cache is a durable record cache. A record is valid only while the file's
// modification time matches the stored one exactly. All methods are safe for
// concurrent use; calls are serialized.
type Cache struct {
	mu   sync.Mutex
	db   *sqlx.DB
	path string
	log  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for migration and maintenance messages.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// Open opens or creates the cache database at dbPath and brings its schema
// up to date.
func Open(dbPath string, opts ...Option) (*Cache, error) {
	c := &Cache{path: dbPath, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, &CacheError{Op: "open", Err: fmt.Errorf("creating cache dir: %w", err)}
	}

	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &CacheError{Op: "open", Err: err}
	}
	c.db = db

	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, &CacheError{Op: "migrate", Err: err}
	}
	return c, nil
}

func (c *Cache) migrate() error {
	if _, err := c.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	var cols []struct {
		CID     int            `db:"cid"`
		Name    string         `db:"name"`
		Type    string         `db:"type"`
		NotNull int            `db:"notnull"`
		Default sql.NullString `db:"dflt_value"`
		PK      int            `db:"pk"`
	}
	if err := c.db.Select(&cols, "PRAGMA table_info(file_cache)"); err != nil {
		return fmt.Errorf("reading table info: %w", err)
	}
	have := make(map[string]bool, len(cols))
	for _, col := range cols {
		have[col.Name] = true
	}

	for _, m := range migrations {
		if have[m.name] {
			continue
		}
		if _, err := c.db.Exec(fmt.Sprintf("ALTER TABLE file_cache ADD COLUMN %s %s", m.name, m.def)); err != nil {
			return fmt.Errorf("adding column %s: %w", m.name, err)
		}
		c.log.Debug("cache column added", "column", m.name)
	}

	if _, err := c.db.Exec(indexSQL); err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	return nil
}

// Path returns the database file location.
func (c *Cache) Path() string { return c.path }

// Close closes the underlying database.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}

// row mirrors file_cache. Every column added by a migration is nullable so
// rows written before it existed still scan.
type row struct {
	FilePath            string         `db:"file_path"`
	Agent               sql.NullString `db:"agent"`
	CreatedAtNs         sql.NullInt64  `db:"created_at_ns"`
	ModifiedAtNs        int64          `db:"modified_at_ns"`
	FileSize            sql.NullInt64  `db:"file_size"`
	SessionID           sql.NullString `db:"session_id"`
	TokensInput         sql.NullInt64  `db:"tokens_input"`
	TokensOutput        sql.NullInt64  `db:"tokens_output"`
	TokensCached        sql.NullInt64  `db:"tokens_cached"`
	TokensCacheCreation sql.NullInt64  `db:"tokens_cache_creation"`
	TokensReasoning     sql.NullInt64  `db:"tokens_reasoning"`
	TokensTotal         sql.NullInt64  `db:"tokens_total"`
	ToolCalls           sql.NullString `db:"tool_calls"`
	CachedAt            sql.NullInt64  `db:"cached_at"`
}

const selectColumns = `file_path, agent, created_at_ns, modified_at_ns, file_size, session_id,
	tokens_input, tokens_output, tokens_cached, tokens_cache_creation, tokens_reasoning, tokens_total,
	tool_calls, cached_at`

// Lookup returns the cached record for path if it was stored with exactly
// the given modification time.
func (c *Cache) Lookup(path string, modifiedAt time.Time) (model.NormalizedRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var r row
	err := c.db.Get(&r, "SELECT "+selectColumns+" FROM file_cache WHERE file_path = ? AND modified_at_ns = ?",
		path, modifiedAt.UnixNano())
	if errors.Is(err, sql.ErrNoRows) {
		return model.NormalizedRecord{}, false, nil
	}
	if err != nil {
		return model.NormalizedRecord{}, false, &CacheError{Op: "lookup", Err: err}
	}

	rec, err := r.record()
	if err != nil {
		return model.NormalizedRecord{}, false, &CacheError{Op: "lookup", Err: err}
	}
	return rec, true, nil
}

// Store inserts or replaces the entry for rec.FilePath.
func (c *Cache) Store(rec model.NormalizedRecord) error {
	r, err := newRow(rec)
	if err != nil {
		return &CacheError{Op: "store", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.NamedExec(`INSERT OR REPLACE INTO file_cache (`+selectColumns+`)
		VALUES (:file_path, :agent, :created_at_ns, :modified_at_ns, :file_size, :session_id,
		:tokens_input, :tokens_output, :tokens_cached, :tokens_cache_creation, :tokens_reasoning, :tokens_total,
		:tool_calls, :cached_at)`, r)
	if err != nil {
		return &CacheError{Op: "store", Err: err}
	}
	return nil
}

// Stats summarizes the cache contents.
type Stats struct {
	Total   int
	ByAgent map[model.AgentKind]int
}

// Stats returns the number of cached entries in total and per agent.
func (c *Cache) Stats() (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var counts []struct {
		Agent string `db:"agent"`
		N     int    `db:"n"`
	}
	err := c.db.Select(&counts, "SELECT COALESCE(agent, '') AS agent, COUNT(*) AS n FROM file_cache GROUP BY agent")
	if err != nil {
		return Stats{}, &CacheError{Op: "stats", Err: err}
	}

	st := Stats{ByAgent: make(map[model.AgentKind]int)}
	for _, ct := range counts {
		var kind model.AgentKind
		_ = kind.UnmarshalText([]byte(ct.Agent))
		st.ByAgent[kind] += ct.N
		st.Total += ct.N
	}
	return st, nil
}

// Clear removes every entry. The next scan reparses everything.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec("DELETE FROM file_cache"); err != nil {
		return &CacheError{Op: "clear", Err: err}
	}
	return nil
}

func newRow(rec model.NormalizedRecord) (row, error) {
	tools := rec.ToolCalls
	if tools == nil {
		tools = []string{}
	}
	toolsJSON, err := json.Marshal(tools)
	if err != nil {
		return row{}, fmt.Errorf("encoding tool calls: %w", err)
	}

	r := row{
		FilePath:     rec.FilePath,
		Agent:        sql.NullString{String: rec.Agent.String(), Valid: true},
		CreatedAtNs:  sql.NullInt64{Int64: rec.CreatedAt.UnixNano(), Valid: true},
		ModifiedAtNs: rec.ModifiedAt.UnixNano(),
		FileSize:     sql.NullInt64{Int64: rec.FileSize, Valid: true},
		SessionID:    sql.NullString{String: rec.SessionID, Valid: rec.SessionID != ""},
		ToolCalls:    sql.NullString{String: string(toolsJSON), Valid: true},
		CachedAt:     sql.NullInt64{Int64: time.Now().UnixNano(), Valid: true},
	}
	if t := rec.Tokens; t != nil {
		r.TokensInput = toColumn(t.Input)
		r.TokensOutput = toColumn(t.Output)
		r.TokensCached = toColumn(t.Cached)
		r.TokensCacheCreation = toColumn(t.CacheCreation)
		r.TokensReasoning = toColumn(t.Reasoning)
		r.TokensTotal = toColumn(t.Total)
	}
	return r, nil
}

func (r row) record() (model.NormalizedRecord, error) {
	var kind model.AgentKind
	_ = kind.UnmarshalText([]byte(r.Agent.String))

	rec := model.NormalizedRecord{
		Agent:      kind,
		FilePath:   r.FilePath,
		CreatedAt:  time.Unix(0, r.CreatedAtNs.Int64).UTC(),
		ModifiedAt: time.Unix(0, r.ModifiedAtNs).UTC(),
		FileSize:   r.FileSize.Int64,
		SessionID:  r.SessionID.String,
		ToolCalls:  []string{},
	}
	if !r.CreatedAtNs.Valid {
		rec.CreatedAt = rec.ModifiedAt
	}
	if r.ToolCalls.Valid && r.ToolCalls.String != "" {
		if err := json.Unmarshal([]byte(r.ToolCalls.String), &rec.ToolCalls); err != nil {
			return model.NormalizedRecord{}, fmt.Errorf("decoding tool calls for %s: %w", r.FilePath, err)
		}
		if rec.ToolCalls == nil {
			rec.ToolCalls = []string{}
		}
	}
	if r.TokensInput.Valid {
		rec.Tokens = &model.TokenUsage{
			Input:         fromColumn(r.TokensInput),
			Output:        fromColumn(r.TokensOutput),
			Cached:        fromColumn(r.TokensCached),
			CacheCreation: fromColumn(r.TokensCacheCreation),
			Reasoning:     fromColumn(r.TokensReasoning),
			Total:         fromColumn(r.TokensTotal),
		}
	}
	return rec, nil
}

// SQLite integers are signed; counters are stored by bit pattern so values
// above math.MaxInt64 survive the round trip.
func toColumn(v uint64) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: true} //nolint:gosec // bit-preserving
}

func fromColumn(v sql.NullInt64) uint64 {
	return uint64(v.Int64) //nolint:gosec // bit-preserving
}
