package core

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type stubExchanger struct {
	grant TokenGrant
	err   error
	calls int
	last  string
}

func (s *stubExchanger) ExchangeRefreshToken(_ context.Context, refreshToken string) (TokenGrant, error) {
	s.calls++
	s.last = refreshToken
	if s.err != nil {
		return TokenGrant{}, s.err
	}
	return s.grant, nil
}

func TestMergeRefreshedCredentialRetainsOmittedFields(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	installedAt := now.Add(-30 * 24 * time.Hour)
	prior := Credential{
		Kind:               CredentialKindOAuth,
		AccessToken:        "at-old",
		RefreshToken:       "rt-old",
		Scope:              []string{"locations.readonly"},
		TokenType:          "bearer",
		ProviderAccountID:  "comp_1",
		ProviderLocationID: "loc_1",
		InstalledAt:        &installedAt,
		Metadata:           map[string]any{"region": "us", "plan": "agency"},
	}

	grant := TokenGrant{
		AccessToken: "at-new",
		ExpiresIn:   3600,
		Metadata:    map[string]any{"plan": "pro"},
	}

	next := MergeRefreshedCredential(prior, grant, now)
	if next.AccessToken != "at-new" {
		t.Fatalf("expected new access token, got %q", next.AccessToken)
	}
	if next.RefreshToken != "rt-old" {
		t.Fatalf("expected prior refresh token retained, got %q", next.RefreshToken)
	}
	if len(next.Scope) != 1 || next.Scope[0] != "locations.readonly" {
		t.Fatalf("expected prior scope retained, got %v", next.Scope)
	}
	if next.ProviderAccountID != "comp_1" || next.ProviderLocationID != "loc_1" {
		t.Fatalf("expected provider ids retained, got %q / %q", next.ProviderAccountID, next.ProviderLocationID)
	}
	if next.ExpiresAt == nil || !next.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected expiry now+3600s, got %v", next.ExpiresAt)
	}
	if next.InstalledAt == nil || !next.InstalledAt.Equal(installedAt) {
		t.Fatalf("expected installation time retained, got %v", next.InstalledAt)
	}
	if next.Raw != "" || next.Token != "" {
		t.Fatalf("expected legacy token fields cleared, got raw=%q token=%q", next.Raw, next.Token)
	}
	if next.Metadata["region"] != "us" {
		t.Fatalf("expected prior metadata retained, got %v", next.Metadata)
	}
	if next.Metadata["plan"] != "pro" {
		t.Fatalf("expected grant metadata to win on conflict, got %v", next.Metadata)
	}
}

func TestMergeRefreshedCredentialReplacesProvidedFields(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	prior := Credential{
		Kind:         CredentialKindOAuth,
		AccessToken:  "at-old",
		RefreshToken: "rt-old",
		Scope:        []string{"locations.readonly"},
	}

	grant := TokenGrant{
		AccessToken:  "at-new",
		RefreshToken: "rt-new",
		Scope:        []string{"locations.write", "links.write"},
		TokenType:    "Bearer",
	}

	next := MergeRefreshedCredential(prior, grant, now)
	if next.RefreshToken != "rt-new" {
		t.Fatalf("expected rotated refresh token, got %q", next.RefreshToken)
	}
	if len(next.Scope) != 2 {
		t.Fatalf("expected replaced scope, got %v", next.Scope)
	}
	if next.TokenType != "bearer" {
		t.Fatalf("expected normalized token type, got %q", next.TokenType)
	}
	if next.ExpiresAt != nil {
		t.Fatalf("expected nil expiry when grant omits expires_in, got %v", next.ExpiresAt)
	}
}

func TestRefresherRequiresOAuthCredential(t *testing.T) {
	refresher := NewRefresher(&stubExchanger{}, OAuthConfig{
		TokenURL:     "https://auth.example.com/token",
		ClientID:     "client",
		ClientSecret: "secret",
	}, nil)

	_, err := refresher.Refresh(context.Background(), Credential{Kind: CredentialKindPrivateToken, Raw: "pit"})
	if err == nil {
		t.Fatal("expected error for private token credential")
	}

	_, err = refresher.Refresh(context.Background(), Credential{Kind: CredentialKindOAuth, AccessToken: "at"})
	if err == nil {
		t.Fatal("expected error for oauth credential without refresh token")
	}
}

func TestRefresherRequiresConfiguration(t *testing.T) {
	refresher := NewRefresher(&stubExchanger{}, OAuthConfig{}, nil)
	_, err := refresher.Refresh(context.Background(), Credential{
		Kind:         CredentialKindOAuth,
		RefreshToken: "rt",
	})
	if err == nil {
		t.Fatal("expected error when oauth refresh is not configured")
	}
}

func TestRefresherMergesGrant(t *testing.T) {
	exchanger := &stubExchanger{grant: TokenGrant{AccessToken: "at-new", ExpiresIn: 600}}
	refresher := NewRefresher(exchanger, OAuthConfig{
		TokenURL:     "https://auth.example.com/token",
		ClientID:     "client",
		ClientSecret: "secret",
	}, nil)

	merged, err := refresher.Refresh(context.Background(), Credential{
		Kind:         CredentialKindOAuth,
		AccessToken:  "at-old",
		RefreshToken: "rt-old",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exchanger.calls != 1 || exchanger.last != "rt-old" {
		t.Fatalf("expected one exchange with rt-old, got %d calls with %q", exchanger.calls, exchanger.last)
	}
	if merged.AccessToken != "at-new" || merged.RefreshToken != "rt-old" {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
}

func TestRefresherPropagatesExchangeError(t *testing.T) {
	exchanger := &stubExchanger{err: fmt.Errorf("token endpoint unavailable")}
	refresher := NewRefresher(exchanger, OAuthConfig{
		TokenURL:     "https://auth.example.com/token",
		ClientID:     "client",
		ClientSecret: "secret",
	}, nil)

	_, err := refresher.Refresh(context.Background(), Credential{
		Kind:         CredentialKindOAuth,
		RefreshToken: "rt",
	})
	if err == nil {
		t.Fatal("expected exchange error to propagate")
	}
}
