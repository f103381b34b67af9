package core

import (
	"encoding/json"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type credentialPayload struct {
	Kind                  string         `json:"kind,omitempty"`
	AccessToken           string         `json:"access_token,omitempty"`
	Token                 string         `json:"token,omitempty"`
	ScopeLevel            string         `json:"scope_level,omitempty"`
	Metadata              map[string]any `json:"metadata,omitempty"`
	RefreshToken          string         `json:"refresh_token,omitempty"`
	ExpiresAt             any            `json:"expires_at,omitempty"`
	RefreshTokenExpiresAt any            `json:"refresh_token_expires_at,omitempty"`
	Scope                 []string       `json:"scope,omitempty"`
	TokenType             string         `json:"token_type,omitempty"`
	ProviderAccountID     string         `json:"provider_account_id,omitempty"`
	ProviderLocationID    string         `json:"provider_location_id,omitempty"`
	InstalledAt           any            `json:"installed_at,omitempty"`
}

// CredentialCodec decodes and encodes the opaque token column of a
// saved connection. Decoding never fails: malformed payloads degrade to
// a bare private token so an operator typo cannot strand a connection.
type CredentialCodec struct {
	logger Logger
}

func NewCredentialCodec(logger Logger) CredentialCodec {
	return CredentialCodec{logger: glog.Ensure(logger)}
}

// Decode turns a stored token column into a typed credential. Empty
// input yields an empty private-token credential; a JSON object is
// parsed and normalized (oauth inferred from refresh/scope/expiry
// fields even without an explicit kind tag); anything else is treated
// as a legacy bare private token.
func (c CredentialCodec) Decode(raw string) Credential {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Credential{Kind: CredentialKindPrivateToken}
	}
	if !strings.HasPrefix(trimmed, "{") {
		return Credential{
			Kind: CredentialKindPrivateToken,
			Raw:  trimmed,
		}
	}

	payload := credentialPayload{}
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		c.log().Warn("credential payload is not valid JSON, treating as private token", "error", err)
		return Credential{
			Kind: CredentialKindPrivateToken,
			Raw:  trimmed,
		}
	}

	credential := Credential{
		Kind:                  normalizeCredentialKind(payload),
		AccessToken:           strings.TrimSpace(payload.AccessToken),
		Token:                 strings.TrimSpace(payload.Token),
		ScopeLevel:            normalizeScopeLevel(payload.ScopeLevel),
		Metadata:              copyAnyMap(payload.Metadata),
		RefreshToken:          strings.TrimSpace(payload.RefreshToken),
		ExpiresAt:             parseTimeValue(payload.ExpiresAt),
		RefreshTokenExpiresAt: parseTimeValue(payload.RefreshTokenExpiresAt),
		Scope:                 cloneStrings(payload.Scope),
		TokenType:             strings.TrimSpace(payload.TokenType),
		ProviderAccountID:     strings.TrimSpace(payload.ProviderAccountID),
		ProviderLocationID:    strings.TrimSpace(payload.ProviderLocationID),
		InstalledAt:           parseTimeValue(payload.InstalledAt),
	}
	return credential
}

// Encode serializes a credential for the token column. Serialization
// failure yields an empty string rather than an error; the caller's
// stored value is left untouched in that case.
func (c CredentialCodec) Encode(credential Credential) string {
	if credential.Kind == "" {
		credential.Kind = CredentialKindPrivateToken
	}
	payload := credentialPayload{
		Kind:               string(credential.Kind),
		AccessToken:        strings.TrimSpace(credential.AccessToken),
		Token:              strings.TrimSpace(credential.Token),
		ScopeLevel:         string(credential.ScopeLevel),
		Metadata:           credential.Metadata,
		RefreshToken:       strings.TrimSpace(credential.RefreshToken),
		Scope:              credential.Scope,
		TokenType:          strings.TrimSpace(credential.TokenType),
		ProviderAccountID:  strings.TrimSpace(credential.ProviderAccountID),
		ProviderLocationID: strings.TrimSpace(credential.ProviderLocationID),
	}
	if credential.ExpiresAt != nil {
		payload.ExpiresAt = credential.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	if credential.RefreshTokenExpiresAt != nil {
		payload.RefreshTokenExpiresAt = credential.RefreshTokenExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	if credential.InstalledAt != nil {
		payload.InstalledAt = credential.InstalledAt.UTC().Format(time.RFC3339Nano)
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		c.log().Warn("credential payload failed to serialize", "error", err)
		return ""
	}
	return string(encoded)
}

func (c CredentialCodec) log() Logger {
	return glog.Ensure(c.logger)
}

func normalizeCredentialKind(payload credentialPayload) CredentialKind {
	switch strings.ToLower(strings.TrimSpace(payload.Kind)) {
	case string(CredentialKindOAuth):
		return CredentialKindOAuth
	case string(CredentialKindPrivateToken):
		return CredentialKindPrivateToken
	}
	if strings.TrimSpace(payload.RefreshToken) != "" ||
		len(payload.Scope) > 0 ||
		payload.ExpiresAt != nil {
		return CredentialKindOAuth
	}
	return CredentialKindPrivateToken
}

func normalizeScopeLevel(value string) ScopeLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(ScopeLevelLocation):
		return ScopeLevelLocation
	case string(ScopeLevelAgency):
		return ScopeLevelAgency
	default:
		return ""
	}
}

// parseTimeValue accepts RFC3339 strings plus the legacy epoch-millis
// numbers older connection rows carry.
func parseTimeValue(value any) *time.Time {
	switch typed := value.(type) {
	case nil:
		return nil
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
			utc := parsed.UTC()
			return &utc
		}
		if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
			utc := parsed.UTC()
			return &utc
		}
		return nil
	case float64:
		if typed <= 0 {
			return nil
		}
		parsed := time.UnixMilli(int64(typed)).UTC()
		return &parsed
	case int64:
		if typed <= 0 {
			return nil
		}
		parsed := time.UnixMilli(typed).UTC()
		return &parsed
	case json.Number:
		millis, err := typed.Int64()
		if err != nil || millis <= 0 {
			return nil
		}
		parsed := time.UnixMilli(millis).UTC()
		return &parsed
	default:
		return nil
	}
}
