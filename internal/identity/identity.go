// Package identity models the viewer's authentication state and the guard
// that keeps unauthenticated viewers away from the event surface. State
// changes are pushed by the authenticator; nothing here polls or retries.
package identity

import (
	"context"
	"strings"
)

// User is the authenticated viewer's profile claims.
type User struct {
	Sub      string `json:"sub"`
	Email    string `json:"email"`
	Username string `json:"cognitoUsername"`
}

// State is one snapshot of the authentication lifecycle.
type State struct {
	Loading       bool
	Authenticated bool
	User          *User
	Err           error
}

// Authenticator is the identity-provider capability.
type Authenticator interface {
	// SignIn starts the sign-in flow.
	SignIn(ctx context.Context) error
	// SignOut drops the current session.
	SignOut(ctx context.Context) error
	// Current returns the latest state snapshot.
	Current() State
	// Updates delivers state snapshots as they change. The channel closes
	// when the authenticator shuts down.
	Updates() <-chan State
}

// ProviderConfig is the fixed identity-provider wiring.
type ProviderConfig struct {
	Authority    string
	ClientID     string
	RedirectURI  string
	ResponseType string
	Scopes       []string
}

// DefaultProviderConfig fills the flow constants every deployment shares.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		ResponseType: "code",
		Scopes:       []string{"phone", "openid", "email"},
	}
}

// ScopeString renders the scopes as the space-separated request parameter.
func (c ProviderConfig) ScopeString() string {
	return strings.Join(c.Scopes, " ")
}

// Branch is the render decision the access gate produces.
type Branch int

const (
	BranchLoading Branch = iota
	BranchError
	BranchSignIn
	BranchContent
)

func (b Branch) String() string {
	switch b {
	case BranchLoading:
		return "loading"
	case BranchError:
		return "error"
	case BranchSignIn:
		return "signin"
	case BranchContent:
		return "content"
	}
	return "unknown"
}

// Gate maps an authentication state to the branch to render. Loading wins
// over everything, then error, then the authenticated content.
func Gate(s State) Branch {
	switch {
	case s.Loading:
		return BranchLoading
	case s.Err != nil:
		return BranchError
	case s.Authenticated:
		return BranchContent
	default:
		return BranchSignIn
	}
}
