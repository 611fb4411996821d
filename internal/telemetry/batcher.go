package telemetry

import (
	"sync"
	"time"

	"github.com/control-theory/venue/internal/model"
)

// Clock supplies record timestamps. Tests substitute a fake.
type Clock func() time.Time

// SummaryMessage is the message on the record that folds play/pause counters
// into the batch at flush time.
const SummaryMessage = "[UI] Play/Pause summary"

// BatcherConfig holds tunable parameters for the batcher.
type BatcherConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	Clock         Clock
	Retry         RetryConfig
}

// Batcher collects telemetry records and flushes them to a sink as a single
// batch, bounding both memory (size threshold) and latency (flush interval).
// Play and pause events are counted, not recorded, and folded into one
// summary record per flush.
type Batcher struct {
	queue   *retryQueue
	metrics *Metrics
	clock   Clock

	batchSize     int
	flushInterval time.Duration

	mu         sync.Mutex
	batch      []model.LogRecord
	playCount  int
	pauseCount int
	timer      *time.Timer // pending scheduled flush; nil when none
	stopped    bool

	flushMu sync.Mutex // serializes whole flushes (size and timer triggers)

	// stats snapshot counters, guarded by mu
	recorded       int64
	flushedBatches int64
}

// NewBatcher creates a batcher delivering to sink. Delivery runs through a
// bounded retry queue; a failed batch is retried with backoff and eventually
// dropped, never replayed from the batcher side.
func NewBatcher(sink Sink, metrics *Metrics, conf ...BatcherConfig) *Batcher {
	batchSize := model.DefaultLogBatchSize
	flushInterval := model.DefaultFlushInterval
	clock := time.Now
	var retry RetryConfig
	if len(conf) > 0 {
		if conf[0].BatchSize > 0 {
			batchSize = conf[0].BatchSize
		}
		if conf[0].FlushInterval > 0 {
			flushInterval = conf[0].FlushInterval
		}
		if conf[0].Clock != nil {
			clock = conf[0].Clock
		}
		retry = conf[0].Retry
	}

	return &Batcher{
		queue:         newRetryQueue(sink, metrics, retry),
		metrics:       metrics,
		clock:         clock,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		batch:         make([]model.LogRecord, 0, batchSize),
	}
}

// Record appends one telemetry record. Reaching the size threshold triggers an
// immediate flush and cancels any pending scheduled flush; otherwise a flush
// is scheduled after the flush interval if none is outstanding.
func (b *Batcher) Record(level model.Level, message string, details any) {
	rec := model.NewLogRecord(b.clock(), level, message, details)

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.batch = append(b.batch, rec)
	b.recorded++
	full := len(b.batch) >= b.batchSize
	if full {
		b.cancelTimerLocked()
	} else {
		b.scheduleFlushLocked()
	}
	b.mu.Unlock()

	b.metrics.IncRecords()

	if full {
		b.Flush()
	}
}

// CountPlay increments the play counter. No per-event record is made; the
// counters surface as one summary record at the next flush.
func (b *Batcher) CountPlay() {
	b.mu.Lock()
	if !b.stopped {
		b.playCount++
	}
	b.mu.Unlock()
}

// CountPause increments the pause counter.
func (b *Batcher) CountPause() {
	b.mu.Lock()
	if !b.stopped {
		b.pauseCount++
	}
	b.mu.Unlock()
}

// Flush emits the current batch. A no-op when the batch is empty and both
// counters are zero. The snapshot-and-clear under the mutex guarantees that
// records appended concurrently land in the next batch, never lost or
// duplicated; the flush mutex keeps the size and timer triggers from
// interleaving on the same batch.
func (b *Batcher) Flush() {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	b.cancelTimerLocked()
	if b.stopped || (len(b.batch) == 0 && b.playCount == 0 && b.pauseCount == 0) {
		b.mu.Unlock()
		return
	}
	if b.playCount > 0 || b.pauseCount > 0 {
		b.batch = append(b.batch, model.NewLogRecord(b.clock(), model.LevelInfo, SummaryMessage, map[string]int{
			"playCount":  b.playCount,
			"pauseCount": b.pauseCount,
		}))
		b.playCount = 0
		b.pauseCount = 0
	}
	snapshot := b.batch
	b.batch = make([]model.LogRecord, 0, b.batchSize)
	b.flushedBatches++
	b.mu.Unlock()

	b.queue.enqueue(snapshot)
}

// Stop flushes whatever is pending and shuts the delivery queue down.
func (b *Batcher) Stop() {
	b.Flush()
	b.mu.Lock()
	b.stopped = true
	b.cancelTimerLocked()
	b.mu.Unlock()
	b.queue.stop()
}

// Stats is a point-in-time snapshot of batcher activity.
type Stats struct {
	Recorded       int64 `json:"recorded"`
	FlushedBatches int64 `json:"flushed_batches"`
	Pending        int   `json:"pending"`
	PlayCount      int   `json:"play_count"`
	PauseCount     int   `json:"pause_count"`
}

// Snapshot returns current batcher stats for read surfaces.
func (b *Batcher) Snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Recorded:       b.recorded,
		FlushedBatches: b.flushedBatches,
		Pending:        len(b.batch),
		PlayCount:      b.playCount,
		PauseCount:     b.pauseCount,
	}
}

// scheduleFlushLocked arms the flush timer if none is outstanding. Idempotent:
// at most one timer exists at a time.
func (b *Batcher) scheduleFlushLocked() {
	if b.timer != nil {
		return
	}
	b.timer = time.AfterFunc(b.flushInterval, func() {
		b.mu.Lock()
		b.timer = nil
		stopped := b.stopped
		b.mu.Unlock()
		if !stopped {
			b.Flush()
		}
	})
}

func (b *Batcher) cancelTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
