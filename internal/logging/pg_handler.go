package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/subsmanager/backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultBatchSize     = 50
	defaultFlushInterval = 5 * time.Second
)

type PGOptions struct {
	BatchSize     int
	FlushInterval time.Duration
}

// pgSink owns the buffer shared by a PGHandler and every handler derived
// from it with WithAttrs.
type pgSink struct {
	db        *gorm.DB
	batchSize int
	mu        sync.Mutex
	stopped   bool
	buffer    []models.SystemLog
	ticker    *time.Ticker
	done      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	// fallback reports flush failures without re-entering the handler.
	fallback *slog.Logger
}

// PGHandler is an slog.Handler that batches ERROR+ logs into system_logs.
type PGHandler struct {
	sink  *pgSink
	attrs []slog.Attr
}

func NewPGHandler(db *gorm.DB, opts PGOptions) *PGHandler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	s := &pgSink{
		db:        db,
		batchSize: opts.BatchSize,
		buffer:    make([]models.SystemLog, 0, opts.BatchSize),
		ticker:    time.NewTicker(opts.FlushInterval),
		done:      make(chan struct{}),
		fallback:  slog.New(slog.NewJSONHandler(os.Stderr, nil)),
	}
	s.wg.Add(1)
	go s.flushLoop()
	return &PGHandler{sink: s}
}

func (s *pgSink) flushLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.flush()
		case <-s.done:
			s.flush()
			return
		}
	}
}

func (s *pgSink) flush() {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.buffer
	s.buffer = make([]models.SystemLog, 0, s.batchSize)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.db.WithContext(ctx).CreateInBatches(batch, s.batchSize).Error; err != nil {
		s.fallback.Error("failed to flush system logs to DB", "error", err, "count", len(batch))
	}
}

// Stop flushes what is buffered and ends the background loop. Safe to call twice.
func (h *PGHandler) Stop() {
	h.sink.stopOnce.Do(func() {
		h.sink.mu.Lock()
		h.sink.stopped = true
		h.sink.mu.Unlock()
		h.sink.ticker.Stop()
		close(h.sink.done)
	})
	h.sink.wg.Wait()
}

// Enabled only handles ERROR and above.
func (h *PGHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *PGHandler) Handle(_ context.Context, record slog.Record) error {
	entry := toSystemLog(record, h.attrs)

	s := h.sink
	s.mu.Lock()
	if s.stopped {
		// The database may already be closed.
		s.mu.Unlock()
		return nil
	}
	s.buffer = append(s.buffer, entry)
	needFlush := len(s.buffer) >= s.batchSize
	s.mu.Unlock()

	if needFlush {
		go s.flush()
	}
	return nil
}

func (h *PGHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &PGHandler{sink: h.sink, attrs: merged}
}

// Groups are flattened; system_logs has no nesting.
func (h *PGHandler) WithGroup(string) slog.Handler {
	return h
}

// toSystemLog lifts the well-known keys into columns and keeps the rest as JSON.
func toSystemLog(record slog.Record, preset []slog.Attr) models.SystemLog {
	entry := models.SystemLog{
		ID:        uuid.New(),
		Timestamp: record.Time.UTC(),
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]interface{})
	apply := func(a slog.Attr) bool {
		v := a.Value.Resolve()
		switch a.Key {
		case "trace_id", "request_id":
			entry.TraceID = v.String()
		case "user_id":
			s := v.String()
			entry.UserID = &s
		case "action":
			entry.Action = v.String()
		case "error":
			entry.Error = v.String()
		case "latency_ms":
			switch v.Kind() {
			case slog.KindFloat64:
				entry.LatencyMs = int(math.Round(v.Float64()))
			case slog.KindInt64:
				entry.LatencyMs = int(v.Int64())
			}
		default:
			extra[a.Key] = v.Any()
		}
		return true
	}
	for _, a := range preset {
		apply(a)
	}
	record.Attrs(apply)

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}
	return entry
}
