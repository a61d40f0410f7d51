package store

// schemaSQL creates the base table. Columns added later are listed in
// migrations so existing databases pick them up on open.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS file_cache (
    file_path      TEXT PRIMARY KEY,
    modified_at_ns INTEGER NOT NULL
);
`

type column struct {
	name string
	def  string
}

// migrations are applied in order with ALTER TABLE ADD COLUMN when the
// column is missing. They must stay additive and nullable.
var migrations = []column{
	{"agent", "TEXT"},
	{"created_at_ns", "INTEGER"},
	{"file_size", "INTEGER"},
	{"session_id", "TEXT"},
	{"tokens_input", "INTEGER"},
	{"tokens_output", "INTEGER"},
	{"tokens_cached", "INTEGER"},
	{"tokens_cache_creation", "INTEGER"},
	{"tokens_reasoning", "INTEGER"},
	{"tokens_total", "INTEGER"},
	{"tool_calls", "TEXT"},
	{"cached_at", "INTEGER"},
}

const indexSQL = `CREATE INDEX IF NOT EXISTS idx_file_cache_agent ON file_cache(agent);`
