package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/control-theory/venue/internal/model"
)

// DefaultSendTimeout bounds one delivery attempt to the ingestion endpoint.
const DefaultSendTimeout = 10 * time.Second

// Sink delivers a flushed batch to its destination. The batch is sent as a
// single unit; partial delivery is the sink's concern, not the batcher's.
type Sink interface {
	Send(ctx context.Context, records []model.LogRecord) error
	Name() string
}

// HTTPSink POSTs batches as a JSON array to a log ingestion endpoint.
type HTTPSink struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSink creates a sink for the given endpoint URL
// (e.g. "http://localhost:3000/api/log-event").
func NewHTTPSink(endpoint string, client ...*http.Client) *HTTPSink {
	c := &http.Client{Timeout: DefaultSendTimeout}
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	}
	return &HTTPSink{endpoint: endpoint, client: c}
}

func (s *HTTPSink) Name() string { return "http" }

// Send POSTs the batch. Any non-2xx response is a delivery failure.
func (s *HTTPSink) Send(ctx context.Context, records []model.LogRecord) error {
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("log endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
