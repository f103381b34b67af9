package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Refresher exchanges an OAuth credential's refresh token for a new
// grant and merges the result forward. It has no side effects; the
// caller persists the merged credential.
type Refresher struct {
	exchanger TokenExchanger
	oauth     OAuthConfig
	logger    Logger
	now       func() time.Time
}

func NewRefresher(exchanger TokenExchanger, oauth OAuthConfig, logger Logger) *Refresher {
	return &Refresher{
		exchanger: exchanger,
		oauth:     oauth,
		logger:    glog.Ensure(logger),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Refresh validates preconditions, performs the refresh-token grant and
// returns the merged credential. HTTP and validation failures propagate
// unwrapped; the caller decides whether to fail open.
func (r *Refresher) Refresh(ctx context.Context, credential Credential) (Credential, error) {
	if r == nil || r.exchanger == nil {
		return Credential{}, fmt.Errorf("core: token exchanger is not configured")
	}
	if !credential.IsOAuth() {
		return Credential{}, fmt.Errorf("core: credential is not an oauth grant")
	}
	refreshToken := strings.TrimSpace(credential.RefreshToken)
	if refreshToken == "" {
		return Credential{}, fmt.Errorf("core: credential has no refresh token")
	}
	if !r.oauth.Enabled() {
		return Credential{}, fmt.Errorf("core: oauth refresh is not configured (token url, client id and client secret are required)")
	}

	grant, err := r.exchanger.ExchangeRefreshToken(ctx, refreshToken)
	if err != nil {
		return Credential{}, err
	}
	return MergeRefreshedCredential(credential, grant, r.currentTime()), nil
}

func (r *Refresher) currentTime() time.Time {
	if r != nil && r.now != nil {
		return r.now().UTC()
	}
	return time.Now().UTC()
}

// MergeRefreshedCredential builds the next credential from a token
// grant, retaining prior values the new grant omits: refresh token,
// scopes, provider account/location ids, token type and installation
// time all carry forward; metadata merges with new keys winning.
func MergeRefreshedCredential(prior Credential, grant TokenGrant, now time.Time) Credential {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}

	next := prior
	next.Kind = CredentialKindOAuth
	next.AccessToken = strings.TrimSpace(grant.AccessToken)
	next.Raw = ""
	next.Token = ""

	if tokenType := strings.TrimSpace(grant.TokenType); tokenType != "" {
		next.TokenType = strings.ToLower(tokenType)
	}
	if refreshToken := strings.TrimSpace(grant.RefreshToken); refreshToken != "" {
		next.RefreshToken = refreshToken
	}
	if len(grant.Scope) > 0 {
		next.Scope = cloneStrings(grant.Scope)
	}
	if accountID := strings.TrimSpace(grant.ProviderAccountID); accountID != "" {
		next.ProviderAccountID = accountID
	}
	if locationID := strings.TrimSpace(grant.ProviderLocationID); locationID != "" {
		next.ProviderLocationID = locationID
	}

	if grant.ExpiresIn > 0 {
		expiresAt := now.Add(time.Duration(grant.ExpiresIn) * time.Second)
		next.ExpiresAt = &expiresAt
	} else {
		next.ExpiresAt = nil
	}

	merged := copyAnyMap(prior.Metadata)
	for key, value := range grant.Metadata {
		merged[key] = value
	}
	next.Metadata = merged
	next.InstalledAt = cloneTimePointer(prior.InstalledAt)
	return next
}
