// Package profile pushes the signed-in viewer's claims to the profile
// endpoint. The sync is fire-and-forget: it runs once per session and a
// failure is logged, never surfaced to the viewer.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/control-theory/venue/internal/identity"
)

// DefaultSyncTimeout bounds one profile sync request.
const DefaultSyncTimeout = 10 * time.Second

// Syncer sends user profiles to a remote profile manager.
type Syncer struct {
	endpoint string
	client   *http.Client
	once     sync.Once
}

// NewSyncer creates a syncer for endpoint. An empty endpoint disables the
// sync entirely.
func NewSyncer(endpoint string, client ...*http.Client) *Syncer {
	c := &http.Client{Timeout: DefaultSyncTimeout}
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	}
	return &Syncer{endpoint: endpoint, client: c}
}

// Sync pushes the user's claims in the background, at most once per syncer.
func (s *Syncer) Sync(ctx context.Context, user identity.User) {
	if s.endpoint == "" {
		return
	}
	s.once.Do(func() {
		go func() {
			if err := s.send(ctx, user); err != nil {
				log.WithFields(log.Fields{
					"endpoint": s.endpoint,
					"error":    err,
				}).Warn("profile sync failed")
				return
			}
			log.WithField("email", user.Email).Debug("profile synced")
		}()
	})
}

func (s *Syncer) send(ctx context.Context, user identity.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultSyncTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send profile: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("profile endpoint returned %s", resp.Status)
	}
	return nil
}
