// Package notify wraps a host notification surface behind an explicit
// permission model. The permission is resolved at most once per gate; callers
// check the gate before sending so denied environments stay silent.
package notify

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Permission is the host's notification permission state.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// Prompter resolves an undecided permission, e.g. by asking the user.
type Prompter func() Permission

// Notifier delivers one notification to wherever the host surface points.
type Notifier interface {
	Notify(title, body string) error
}

// GateConfig holds optional gate dependencies.
type GateConfig struct {
	Prompter Prompter
}

// Gate holds the resolved permission. Request is idempotent: the prompter
// runs at most once, on the first Request against an undecided permission.
type Gate struct {
	mu        sync.Mutex
	perm      Permission
	prompter  Prompter
	requested bool
}

// NewGate creates a gate with an initial permission state.
func NewGate(initial Permission, conf ...GateConfig) *Gate {
	var prompter Prompter
	if len(conf) > 0 {
		prompter = conf[0].Prompter
	}
	if initial == "" {
		initial = PermissionDefault
	}
	return &Gate{perm: initial, prompter: prompter}
}

// Request resolves the permission and returns whether notifications are
// allowed. An undecided permission is prompted once; without a prompter it
// stays undecided and notifications are not allowed.
func (g *Gate) Request() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.perm == PermissionDefault && !g.requested && g.prompter != nil {
		g.requested = true
		g.perm = g.prompter()
		log.WithField("permission", g.perm).Debug("notification permission resolved")
	}
	return g.perm == PermissionGranted
}

// Allowed reports the current permission without prompting.
func (g *Gate) Allowed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.perm == PermissionGranted
}
