package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sirupsen/logrus"

	"github.com/control-theory/venue/internal/model"
)

// Retry defaults. A batch is attempted MaxAttempts times with exponential
// backoff before being dropped; the queue itself is bounded and drops the
// oldest queued batch on overflow.
const (
	DefaultMaxAttempts    = 3
	DefaultRetryBackoff   = 500 * time.Millisecond
	DefaultRetryMaxDelay  = 5 * time.Second
	DefaultRetryQueueSize = 8
)

// RetryConfig holds tunable parameters for the delivery queue.
type RetryConfig struct {
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
	QueueSize   int
}

// retryQueue serializes batch delivery through a single worker with a
// bounded queue and an explicit drop policy. It replaces a blind
// flush-again-on-failure approach with something testable and bounded.
// Per-attempt retry and backoff are delegated to a failsafe executor.
type retryQueue struct {
	sink     Sink
	metrics  *Metrics
	executor failsafe.Executor[any]

	ch       chan []model.LogRecord
	enqMu    sync.Mutex // serializes the drop-oldest dance on overflow
	stopOnce sync.Once
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

func newRetryQueue(sink Sink, metrics *Metrics, conf RetryConfig) *retryQueue {
	maxAttempts := DefaultMaxAttempts
	backoff := DefaultRetryBackoff
	maxBackoff := DefaultRetryMaxDelay
	queueSize := DefaultRetryQueueSize
	if conf.MaxAttempts > 0 {
		maxAttempts = conf.MaxAttempts
	}
	if conf.Backoff > 0 {
		backoff = conf.Backoff
	}
	if conf.MaxBackoff > 0 {
		maxBackoff = conf.MaxBackoff
	}
	if maxBackoff < backoff {
		maxBackoff = backoff
	}
	if conf.QueueSize > 0 {
		queueSize = conf.QueueSize
	}

	retry := retrypolicy.NewBuilder[any]().
		WithBackoff(backoff, maxBackoff).
		WithMaxRetries(maxAttempts - 1).
		Build()

	ctx, cancel := context.WithCancel(context.Background())
	q := &retryQueue{
		sink:     sink,
		metrics:  metrics,
		executor: failsafe.With(retry),
		ch:       make(chan []model.LogRecord, queueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	q.wg.Add(1)
	go q.worker()
	return q
}

// enqueue hands a batch to the delivery worker. When the queue is full the
// oldest queued batch is dropped to make room; the new batch always lands.
func (q *retryQueue) enqueue(batch []model.LogRecord) {
	if len(batch) == 0 {
		return
	}
	q.enqMu.Lock()
	defer q.enqMu.Unlock()
	for {
		select {
		case q.ch <- batch:
			return
		default:
		}
		select {
		case dropped := <-q.ch:
			q.metrics.IncBatchesDropped()
			logrus.WithField("records", len(dropped)).Warn("telemetry queue full, dropping oldest batch")
		default:
		}
	}
}

// stop drains the queue and waits for in-flight delivery to finish.
func (q *retryQueue) stop() {
	q.stopOnce.Do(func() {
		close(q.ch)
		q.wg.Wait()
		q.cancel()
	})
}

func (q *retryQueue) worker() {
	defer q.wg.Done()
	for batch := range q.ch {
		q.deliver(batch)
	}
}

// deliver runs one batch through the retry executor, then drops it on final
// failure. Records are never replayed beyond this policy.
func (q *retryQueue) deliver(batch []model.LogRecord) {
	attempt := 0
	err := q.executor.WithContext(q.ctx).Run(func() error {
		attempt++
		if err := q.sink.Send(q.ctx, batch); err != nil {
			q.metrics.IncSendFailures()
			logrus.WithError(err).WithFields(logrus.Fields{
				"sink":    q.sink.Name(),
				"records": len(batch),
				"attempt": attempt,
			}).Warn("telemetry batch delivery failed")
			return err
		}
		return nil
	})
	if err != nil {
		q.metrics.IncBatchesDropped()
		logrus.WithField("records", len(batch)).Warn("telemetry batch dropped after final attempt")
		return
	}
	q.metrics.IncBatchesFlushed()
}
