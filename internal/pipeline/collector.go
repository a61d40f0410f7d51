// Package pipeline turns agent log roots into normalized records, consulting
// the record cache, and aggregates records into per-day heatmaps.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theirongolddev/agentinsights/internal/model"
	"github.com/theirongolddev/agentinsights/internal/source"
)

// RecordCache is the cache contract the collector relies on. Failures are
// treated as misses and never fail a scan.
type RecordCache interface {
	Lookup(path string, modifiedAt time.Time) (model.NormalizedRecord, bool, error)
	Store(rec model.NormalizedRecord) error
}

// ParseFunc normalizes one file. source.ParseFile is the default.
type ParseFunc func(kind model.AgentKind, meta source.FileMetadata) source.ParseResult

// ProgressFunc is called as files are processed.
// current is the number of files done so far for agent, total the agent's file count.
type ProgressFunc func(agent model.AgentKind, current, total int)

// CollectResult holds the outcome of scanning one agent's root.
type CollectResult struct {
	Agent        model.AgentKind
	Records      []model.NormalizedRecord
	TotalFiles   int
	CacheHits    int
	Reparsed     int
	FileErrors   int
	SkippedLines int

	// Err is set only when the root exists but could not be walked.
	Err error
}

// Collector scans sources and produces records, using the cache to skip
// files whose modification time has not changed.
type Collector struct {
	cache    RecordCache
	parse    ParseFunc
	workers  int
	progress ProgressFunc
	log      *slog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithCache enables incremental collection. Without it every file is parsed.
func WithCache(c RecordCache) Option {
	return func(col *Collector) { col.cache = c }
}

// WithParser replaces the normalizer.
func WithParser(fn ParseFunc) Option {
	return func(col *Collector) {
		if fn != nil {
			col.parse = fn
		}
	}
}

// WithWorkers bounds the parse pool per agent. Values below 1 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(col *Collector) { col.workers = n }
}

// WithProgress registers a progress callback. It may be called concurrently.
func WithProgress(fn ProgressFunc) Option {
	return func(col *Collector) { col.progress = fn }
}

// WithLogger sets the logger for per-file diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(col *Collector) {
		if l != nil {
			col.log = l
		}
	}
}

// NewCollector returns a Collector configured by opts.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		parse: source.ParseFile,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CollectAll scans every source concurrently. Results are returned in the
// order of srcs; one failed agent does not affect the others.
func (c *Collector) CollectAll(srcs []source.Source) []CollectResult {
	results := make([]CollectResult, len(srcs))
	var wg sync.WaitGroup
	wg.Add(len(srcs))
	for i, src := range srcs {
		go func() {
			defer wg.Done()
			results[i] = c.CollectAgent(src)
		}()
	}
	wg.Wait()
	return results
}

type fileOutcome struct {
	rec     model.NormalizedRecord
	ok      bool
	hit     bool
	skipped int
}

// CollectAgent scans one source and normalizes every accepted file, serving
// unchanged files from the cache. Records are returned in scan order.
func (c *Collector) CollectAgent(src source.Source) CollectResult {
	result := CollectResult{Agent: src.Kind}
	log := c.log.With("agent", src.Kind.String())

	files, err := src.Scan()
	if err != nil {
		log.Warn("scan failed", "root", src.Root, "error", err)
		result.Err = fmt.Errorf("scanning %s: %w", src.Root, err)
		return result
	}
	result.TotalFiles = len(files)
	if len(files) == 0 {
		return result
	}

	numWorkers := c.workers
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	for i := range files {
		work <- i
	}
	close(work)

	outcomes := make([]fileOutcome, len(files))
	var (
		wg        sync.WaitGroup
		processed atomic.Int64
	)
	wg.Add(numWorkers)
	for range numWorkers {
		go func() {
			defer wg.Done()
			for idx := range work {
				outcomes[idx] = c.collectFile(log, src.Kind, files[idx])
				n := processed.Add(1)
				if c.progress != nil {
					c.progress(src.Kind, int(n), len(files))
				}
			}
		}()
	}
	wg.Wait()

	for _, o := range outcomes {
		result.SkippedLines += o.skipped
		switch {
		case !o.ok:
			result.FileErrors++
		case o.hit:
			result.CacheHits++
			result.Records = append(result.Records, o.rec)
		default:
			result.Reparsed++
			result.Records = append(result.Records, o.rec)
		}
	}

	log.Debug("collected",
		"files", result.TotalFiles,
		"cache_hits", result.CacheHits,
		"reparsed", result.Reparsed,
		"file_errors", result.FileErrors,
		"skipped_lines", result.SkippedLines,
	)
	return result
}

func (c *Collector) collectFile(log *slog.Logger, kind model.AgentKind, meta source.FileMetadata) fileOutcome {
	if c.cache != nil {
		rec, ok, err := c.cache.Lookup(meta.Path, meta.ModifiedAt)
		switch {
		case err != nil:
			log.Debug("cache lookup failed", "path", meta.Path, "error", err)
		case ok:
			return fileOutcome{rec: rec, ok: true, hit: true}
		}
	}

	pr := c.parse(kind, meta)
	if pr.Err != nil {
		level := slog.LevelWarn
		if errors.Is(pr.Err, source.ErrParse) {
			level = slog.LevelDebug
		}
		log.Log(context.Background(), level, "skipping file", "path", meta.Path, "error", pr.Err)
		return fileOutcome{skipped: pr.SkippedLines}
	}

	if c.cache != nil {
		if err := c.cache.Store(pr.Record); err != nil {
			log.Debug("cache store failed", "path", meta.Path, "error", err)
		}
	}
	return fileOutcome{rec: pr.Record, ok: true, skipped: pr.SkippedLines}
}

// Records flattens the records of several results.
func Records(results []CollectResult) []model.NormalizedRecord {
	var n int
	for _, r := range results {
		n += len(r.Records)
	}
	out := make([]model.NormalizedRecord, 0, n)
	for _, r := range results {
		out = append(out, r.Records...)
	}
	return out
}
