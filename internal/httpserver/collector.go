package httpserver

import (
	"sync"

	"github.com/control-theory/venue/internal/model"
)

// DefaultCollectorCapacity bounds the in-memory record ring.
const DefaultCollectorCapacity = 1000

// Collector is a bounded in-memory sink for telemetry batches, the local
// stand-in for the hosted log endpoint. When full, the oldest records give
// way to new ones.
type Collector struct {
	mu       sync.Mutex
	records  []model.LogRecord
	capacity int
	batches  uint64
	dropped  uint64
}

// NewCollector creates a collector holding at most capacity records.
func NewCollector(capacity int) *Collector {
	if capacity <= 0 {
		capacity = DefaultCollectorCapacity
	}
	return &Collector{capacity: capacity}
}

// Accept appends one batch, evicting the oldest records on overflow.
func (c *Collector) Accept(batch []model.LogRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.batches++
	c.records = append(c.records, batch...)
	if over := len(c.records) - c.capacity; over > 0 {
		c.dropped += uint64(over)
		c.records = append([]model.LogRecord(nil), c.records[over:]...)
	}
}

// Recent returns up to n of the newest records, oldest first.
func (c *Collector) Recent(n int) []model.LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n <= 0 || n > len(c.records) {
		n = len(c.records)
	}
	out := make([]model.LogRecord, n)
	copy(out, c.records[len(c.records)-n:])
	return out
}

// Stats returns the batch count and the number of evicted records.
func (c *Collector) Stats() (batches, dropped uint64, held int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches, c.dropped, len(c.records)
}
