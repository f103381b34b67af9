package core

import (
	"strings"
	"time"
)

// CredentialTokenState captures the lifecycle flags token resolution
// bases its refresh decision on.
type CredentialTokenState struct {
	ExpiresAt       *time.Time
	HasAccessToken  bool
	HasRefreshToken bool
	CanAutoRefresh  bool
	IsExpired       bool
}

// IsExpired reports whether the credential's access token is past (or
// within buffer of) its expiry. Credentials without an expiry never
// expire.
func (c Credential) IsExpired(now time.Time, buffer time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if buffer < 0 {
		buffer = 0
	}
	return !now.Before(c.ExpiresAt.UTC().Add(-buffer))
}

// ResolveCredentialTokenState evaluates expiry and refreshability.
func ResolveCredentialTokenState(now time.Time, credential Credential, buffer time.Duration) CredentialTokenState {
	state := CredentialTokenState{
		HasAccessToken:  strings.TrimSpace(credential.AccessToken) != "",
		HasRefreshToken: strings.TrimSpace(credential.RefreshToken) != "",
	}
	state.CanAutoRefresh = credential.IsOAuth() && state.HasRefreshToken
	if credential.ExpiresAt != nil {
		expiresAt := credential.ExpiresAt.UTC()
		state.ExpiresAt = &expiresAt
	}
	state.IsExpired = credential.IsExpired(now, buffer)
	return state
}

// ShouldRefreshCredential returns true when a refresh should be
// attempted before CRM operations: the credential can refresh itself
// and is either missing its access token or inside the expiry buffer.
func ShouldRefreshCredential(state CredentialTokenState) bool {
	if !state.CanAutoRefresh {
		return false
	}
	if !state.HasAccessToken {
		return true
	}
	return state.IsExpired
}
