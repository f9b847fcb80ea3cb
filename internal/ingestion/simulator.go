package ingestion

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docs-backend/internal/queue"
	"docs-backend/internal/shared/metrics"
	"docs-backend/internal/shared/telemetry"
)

const (
	DefaultMinDelay    = 2 * time.Second
	DefaultMaxDelay    = 5 * time.Second
	DefaultSuccessRate = 0.9
	DefaultDimensions  = 384
	DefaultSearchLimit = 5

	MessageCompleted = "Document processed successfully"
	MessageFailed    = "Failed to process document"

	notifyTimeout = 5 * time.Second
)

// Options tunes the simulator. Zero values fall back to the defaults above.
// SuccessRate outside (0, 1] is replaced by DefaultSuccessRate.
type Options struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	SuccessRate float64
	Dimensions  int

	Scheduler Scheduler
	Source    Source
	// Notifier receives one message per terminal transition. Optional.
	Notifier queue.Client
	NewID    func() string
	Now      func() time.Time
}

// Simulator stands in for an embedding pipeline: each submission settles
// once, after a random delay, as either completed with a random vector or
// failed.
type Simulator struct {
	store *Store
	opts  Options

	// guards opts.Source, which is not safe for concurrent use
	rngMu sync.Mutex
}

// NewSimulator wires a simulator around store. A nil store gets a fresh one.
func NewSimulator(store *Store, opts Options) *Simulator {
	if store == nil {
		store = NewStore()
	}
	if opts.MinDelay <= 0 {
		opts.MinDelay = DefaultMinDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	if opts.SuccessRate <= 0 || opts.SuccessRate > 1 {
		opts.SuccessRate = DefaultSuccessRate
	}
	if opts.Dimensions <= 0 {
		opts.Dimensions = DefaultDimensions
	}
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler{}
	}
	if opts.Source == nil {
		opts.Source = NewRandomSource()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Simulator{store: store, opts: opts}
}

// Store exposes the backing store.
func (s *Simulator) Store() *Store {
	return s.store
}

// Submit registers a new ingestion in the processing state and schedules its
// single outcome trial. It never blocks on the outcome.
func (s *Simulator) Submit(ctx context.Context, file FileInfo, metadata map[string]any) (Record, error) {
	if strings.TrimSpace(file.Name) == "" {
		return Record{}, ErrInvalidInput
	}
	rec, err := s.store.Insert(s.opts.NewID())
	if err != nil {
		return Record{}, err
	}
	meta := mergeMetadata(file, metadata)
	delay := s.delay()
	startedAt := s.opts.Now()
	bg := detached(ctx)

	metrics.IncIngestionSubmitted()
	telemetry.Info("ingestion.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"ingestion_id":      rec.ID,
		"status":            StatusProcessing,
		"status_transition": "->processing",
		"delay_ms":          delay.Milliseconds(),
	})

	id := rec.ID
	s.opts.Scheduler.AfterFunc(delay, func() {
		s.settle(bg, id, meta, startedAt)
	})
	return rec, nil
}

// Status returns the current record for id.
func (s *Simulator) Status(_ context.Context, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrInvalidInput
	}
	return s.store.Get(id)
}

// Search returns up to limit completed embeddings in random order. The query
// is accepted for interface parity and ignored. A limit of zero or less
// yields no results.
func (s *Simulator) Search(_ context.Context, _ string, limit int) []Embedding {
	limit = max(limit, 0)
	all := s.store.Completed()
	s.rngMu.Lock()
	s.opts.Source.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	s.rngMu.Unlock()
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

func (s *Simulator) settle(ctx context.Context, id string, meta map[string]any, startedAt time.Time) {
	s.rngMu.Lock()
	success := s.opts.Source.Float64() < s.opts.SuccessRate
	var vector []float32
	if success {
		vector = s.vectorLocked()
	}
	s.rngMu.Unlock()

	var (
		rec Record
		err error
	)
	if success {
		rec, err = s.store.Complete(id, MessageCompleted, Embedding{ID: id, Vector: vector, Metadata: meta})
	} else {
		rec, err = s.store.Fail(id, MessageFailed)
	}
	if err != nil {
		telemetry.Warn("ingestion.transition_rejected", map[string]any{
			"request_id":     requestIDFromContext(ctx),
			"ingestion_id":   id,
			"current_status": rec.Status,
			"error":          err,
		})
		return
	}

	elapsed := float64(s.opts.Now().Sub(startedAt).Microseconds()) / 1000.0
	if rec.Status == StatusCompleted {
		metrics.IncIngestionCompleted()
	} else {
		metrics.IncIngestionFailed()
	}
	metrics.ObserveIngestionDurationMs(elapsed)
	telemetry.Info("ingestion.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"ingestion_id":      id,
		"status":            rec.Status,
		"status_transition": "processing->" + string(rec.Status),
		"duration_ms":       elapsed,
	})
	s.notify(ctx, rec)
}

func (s *Simulator) notify(ctx context.Context, rec Record) {
	if s.opts.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	msg := queue.Message{
		IngestionID: rec.ID,
		Status:      string(rec.Status),
		RequestID:   requestIDFromContext(ctx),
		EnqueuedAt:  s.opts.Now().UTC().Format(time.RFC3339Nano),
		Version:     queue.MessageVersion,
	}
	if err := s.opts.Notifier.Send(ctx, msg); err != nil {
		telemetry.Warn("ingestion.notify_failed", map[string]any{
			"request_id":   msg.RequestID,
			"ingestion_id": rec.ID,
			"error":        err,
		})
	}
}

// delay draws from [MinDelay, MaxDelay).
func (s *Simulator) delay() time.Duration {
	span := int64(s.opts.MaxDelay - s.opts.MinDelay)
	if span <= 0 {
		return s.opts.MinDelay
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.opts.MinDelay + time.Duration(s.opts.Source.Int64N(span))
}

// vectorLocked fills a vector with values in [-1, 1). Caller holds rngMu.
func (s *Simulator) vectorLocked() []float32 {
	v := make([]float32, s.opts.Dimensions)
	for i := range v {
		v[i] = float32(s.opts.Source.Float64()*2 - 1)
	}
	return v
}

// mergeMetadata lays caller fields over the file-derived ones.
func mergeMetadata(file FileInfo, extra map[string]any) map[string]any {
	meta := map[string]any{
		"filename": file.Name,
		"mimeType": file.MimeType,
		"size":     file.Size,
	}
	for k, v := range extra {
		meta[k] = v
	}
	return meta
}
