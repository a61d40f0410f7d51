// Package daemon provides the long-running heatmap service and its HTTP API.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/theirongolddev/agentinsights/internal/model"
	"github.com/theirongolddev/agentinsights/internal/pipeline"
	"github.com/theirongolddev/agentinsights/internal/source"
	"github.com/theirongolddev/agentinsights/internal/watch"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	EventsBuffer int

	// Days limits heatmaps to recent activity. Zero means all history.
	Days     int
	Location *time.Location
}

// Event is emitted whenever a watched log file changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent,omitempty"`
	FilePath  string    `json:"file_path,omitempty"`
}

// AgentScan summarizes the most recent collection for one agent.
type AgentScan struct {
	Files      int    `json:"files"`
	CacheHits  int    `json:"cache_hits"`
	Reparsed   int    `json:"reparsed"`
	FileErrors int    `json:"file_errors"`
	Error      string `json:"error,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time            `json:"started_at"`
	Addr            string               `json:"addr"`
	Days            int                  `json:"days"`
	Watched         map[string]string    `json:"watched"`
	LastScanAt      time.Time            `json:"last_scan_at,omitzero"`
	LastScan        map[string]AgentScan `json:"last_scan,omitempty"`
	ScanCount       int64                `json:"scan_count"`
	EventCount      int                  `json:"event_count"`
	SubscriberCount int                  `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg       Config
	collector *pipeline.Collector
	sources   []source.Source
	notifier  *watch.Notifier
	log       *slog.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	lastScanAt  time.Time
	lastScan    map[string]AgentScan
	scanCount   int64
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service. notifier may be nil, in which case no
// change events are produced.
func New(cfg Config, collector *pipeline.Collector, sources []source.Source, notifier *watch.Notifier, log *slog.Logger) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if log == nil {
		log = slog.Default()
	}
	if collector == nil {
		collector = pipeline.NewCollector(pipeline.WithLogger(log))
	}

	return &Service{
		cfg:       cfg,
		collector: collector,
		sources:   sources,
		notifier:  notifier,
		log:       log,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP routes.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/heatmaps", s.handleHeatmaps)
	r.Get("/api/heatmap/{agent}", s.handleAgentHeatmap)
	r.Get("/v1/status", s.handleStatus)
	r.Get("/v1/events", s.handleEvents)
	r.Get("/v1/stream", s.handleStream)
	return r
}

// Warm runs one full collection so the cache is current before the first
// request, and records it as the latest scan.
func (s *Service) Warm() []pipeline.CollectResult {
	results := s.collector.CollectAll(s.sources)
	s.recordScan(results)
	for _, res := range results {
		if res.Err != nil {
			s.log.Warn("startup scan failed", "agent", res.Agent.String(), "error", res.Err)
			continue
		}
		s.log.Info("startup scan",
			"agent", res.Agent.String(),
			"files", res.TotalFiles,
			"cache_hits", res.CacheHits,
			"reparsed", res.Reparsed,
		)
	}
	return results
}

// Run serves HTTP and relays change notifications until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("daemon http server: %w", err)
		}
	}()

	var changes <-chan watch.Event
	if s.notifier != nil {
		ch, cancel := s.notifier.Subscribe()
		defer cancel()
		changes = ch
		go func() {
			if err := s.notifier.Run(ctx); err != nil {
				errCh <- fmt.Errorf("watching log roots: %w", err)
			}
		}()
	}
	s.log.Info("daemon listening", "addr", s.cfg.Addr)

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case ev, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			s.log.Debug("file changed", "agent", ev.Agent.String(), "path", ev.Path)
			s.publishFileAdded(ev)
		case err := <-errCh:
			return err
		}
	}
}

func (s *Service) publishFileAdded(ev watch.Event) {
	s.mu.Lock()
	s.nextEventID++
	out := Event{
		ID:        s.nextEventID,
		Type:      "file_added",
		Timestamp: ev.At,
		Agent:     ev.Agent.String(),
		FilePath:  ev.Path,
	}
	s.mu.Unlock()
	s.publishEvent(out)
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

// since returns the lower bound for records in a request, honoring ?days=.
func (s *Service) since(r *http.Request) (time.Time, error) {
	days := s.cfg.Days
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("invalid days %q", v)
		}
		days = n
	}
	if days == 0 {
		return time.Time{}, nil
	}
	now := time.Now().In(s.cfg.Location)
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.cfg.Location).AddDate(0, 0, -(days - 1)), nil
}

func (s *Service) recordScan(results []pipeline.CollectResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastScan == nil {
		s.lastScan = make(map[string]AgentScan)
	}
	for _, res := range results {
		scan := AgentScan{
			Files:      res.TotalFiles,
			CacheHits:  res.CacheHits,
			Reparsed:   res.Reparsed,
			FileErrors: res.FileErrors,
		}
		if res.Err != nil {
			scan.Error = res.Err.Error()
		}
		s.lastScan[res.Agent.String()] = scan
	}
	s.lastScanAt = time.Now()
	s.scanCount++
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleHeatmaps(w http.ResponseWriter, r *http.Request) {
	since, err := s.since(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	results := s.collector.CollectAll(s.sources)
	s.recordScan(results)

	records := pipeline.FilterSince(pipeline.Records(results), since)
	writeJSON(w, http.StatusOK, pipeline.AggregateByAgent(records, s.cfg.Location))
}

func (s *Service) handleAgentHeatmap(w http.ResponseWriter, r *http.Request) {
	kind, err := model.ParseAgentKind(chi.URLParam(r, "agent"))
	if err != nil || kind == model.AgentUnknown {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown agent %q", chi.URLParam(r, "agent")))
		return
	}
	since, err := s.since(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var records []model.NormalizedRecord
	for _, src := range s.sources {
		if src.Kind != kind {
			continue
		}
		res := s.collector.CollectAgent(src)
		s.recordScan([]pipeline.CollectResult{res})
		records = append(records, res.Records...)
	}

	records = pipeline.FilterSince(records, since)
	writeJSON(w, http.StatusOK, pipeline.AggregateAgent(records, s.cfg.Location))
}

func (s *Service) snapshotStatus() Status {
	watched := map[string]string{}
	if s.notifier != nil {
		for kind, root := range s.notifier.Watched() {
			watched[kind.String()] = root
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var lastScan map[string]AgentScan
	if len(s.lastScan) > 0 {
		lastScan = make(map[string]AgentScan, len(s.lastScan))
		for k, v := range s.lastScan {
			lastScan[k] = v
		}
	}

	return Status{
		StartedAt:       s.startedAt,
		Addr:            s.cfg.Addr,
		Days:            s.cfg.Days,
		Watched:         watched,
		LastScanAt:      s.lastScanAt,
		LastScan:        lastScan,
		ScanCount:       s.scanCount,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	writeSSE(w, Event{Type: "ready", Timestamp: time.Now()})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
