package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/control-theory/venue/internal/identity"
)

func TestSyncPostsClaimsOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	var got map[string]string
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		close(done)
	}))
	defer srv.Close()

	s := NewSyncer(srv.URL)
	user := identity.User{Sub: "sub-1", Email: "viewer@example.com", Username: "viewer"}
	s.Sync(context.Background(), user)
	s.Sync(context.Background(), user)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for profile sync")
	}
	// Give a duplicate request time to show up if the once guard is broken.
	time.Sleep(50 * time.Millisecond)

	if n := calls.Load(); n != 1 {
		t.Fatalf("expected 1 sync request, got %d", n)
	}
	if got["sub"] != "sub-1" || got["email"] != "viewer@example.com" || got["cognitoUsername"] != "viewer" {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestSyncWithoutEndpointIsNoop(t *testing.T) {
	t.Parallel()

	s := NewSyncer("")
	s.Sync(context.Background(), identity.User{Sub: "x"})
}
