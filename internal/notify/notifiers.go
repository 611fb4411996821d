package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// TerminalNotifier prints notifications to a terminal with a bell, the local
// fallback when no webhook is configured.
type TerminalNotifier struct {
	Out io.Writer
}

// NewTerminalNotifier writes to stderr.
func NewTerminalNotifier() *TerminalNotifier {
	return &TerminalNotifier{Out: os.Stderr}
}

func (n *TerminalNotifier) Notify(title, body string) error {
	_, err := fmt.Fprintf(n.Out, "\a[%s] %s\n", title, body)
	return err
}

// DefaultWebhookTimeout bounds one webhook delivery.
const DefaultWebhookTimeout = 5 * time.Second

// WebhookNotifier POSTs notifications as JSON to a configured URL, for desk
// integrations (Slack-compatible relays, ntfy, similar).
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier for url.
func NewWebhookNotifier(url string, client ...*http.Client) *WebhookNotifier {
	c := &http.Client{Timeout: DefaultWebhookTimeout}
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	}
	return &WebhookNotifier{url: url, client: c}
}

func (n *WebhookNotifier) Notify(title, body string) error {
	payload, err := json.Marshal(map[string]string{
		"title": title,
		"body":  body,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultWebhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification webhook returned %s", resp.Status)
	}
	return nil
}

// Send delivers through the notifier when the gate allows it. Delivery
// failures are logged and swallowed; a missed notification never disturbs
// the countdown.
func Send(gate *Gate, notifier Notifier, title, body string) {
	if gate != nil && !gate.Allowed() {
		return
	}
	if notifier == nil {
		return
	}
	if err := notifier.Notify(title, body); err != nil {
		log.WithFields(log.Fields{
			"title": title,
			"error": err,
		}).Warn("notification delivery failed")
	}
}
