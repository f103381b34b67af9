package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/core"
)

const defaultTokenRequestTimeout = 30 * time.Second
const maxTokenResponseBodyBytes int64 = 1 << 20 // 1 MiB

// TokenClient performs the refresh-token grant against the CRM's token
// endpoint. Client credentials go in the form body, which is what the
// CRM's marketplace token endpoint expects.
type TokenClient struct {
	cfg        core.OAuthConfig
	httpClient HTTPDoer
	timeout    time.Duration
}

type tokenEndpointPayload struct {
	AccessToken        string
	TokenType          string
	RefreshToken       string
	Scope              string
	ExpiresIn          int64
	ProviderAccountID  string
	ProviderLocationID string
	ErrorCode          string
	ErrorDescription   string
}

func NewTokenClient(cfg core.OAuthConfig, client HTTPDoer) (*TokenClient, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("crm: token url, client id and client secret are required")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTokenRequestTimeout}
	}
	return &TokenClient{
		cfg:        cfg,
		httpClient: client,
		timeout:    defaultTokenRequestTimeout,
	}, nil
}

func (t *TokenClient) ExchangeRefreshToken(ctx context.Context, refreshToken string) (core.TokenGrant, error) {
	if t == nil || t.httpClient == nil {
		return core.TokenGrant{}, fmt.Errorf("crm: token client is not configured")
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return core.TokenGrant{}, fmt.Errorf("crm: refresh token is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", strings.TrimSpace(t.cfg.ClientID))
	form.Set("client_secret", strings.TrimSpace(t.cfg.ClientSecret))

	requestCtx := ctx
	cancel := func() {}
	if t.timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, t.timeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		strings.TrimSpace(t.cfg.TokenURL),
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return core.TokenGrant{}, fmt.Errorf("crm: create token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	response, err := t.httpClient.Do(httpReq)
	if err != nil {
		return core.TokenGrant{}, fmt.Errorf("crm: token request failed: %w", err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxTokenResponseBodyBytes+1))
	if readErr != nil {
		return core.TokenGrant{}, fmt.Errorf("crm: read token response: %w", readErr)
	}
	if int64(len(body)) > maxTokenResponseBodyBytes {
		return core.TokenGrant{}, fmt.Errorf("crm: token response exceeds %d bytes", maxTokenResponseBodyBytes)
	}

	payload, parseErr := parseTokenPayload(body, response.Header.Get("Content-Type"))
	if parseErr != nil {
		return core.TokenGrant{}, fmt.Errorf("crm: decode token response: %w", parseErr)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return core.TokenGrant{}, fmt.Errorf(
			"crm: token endpoint error (%d): %s",
			response.StatusCode,
			describeTokenError(payload),
		)
	}
	if payload.ErrorCode != "" {
		return core.TokenGrant{}, fmt.Errorf("crm: token endpoint error: %s", describeTokenError(payload))
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return core.TokenGrant{}, fmt.Errorf("crm: token endpoint response missing access token")
	}

	return core.TokenGrant{
		AccessToken:        strings.TrimSpace(payload.AccessToken),
		TokenType:          normalizeTokenType(payload.TokenType),
		RefreshToken:       strings.TrimSpace(payload.RefreshToken),
		Scope:              parseScopeList(payload.Scope),
		ExpiresIn:          payload.ExpiresIn,
		ProviderAccountID:  strings.TrimSpace(payload.ProviderAccountID),
		ProviderLocationID: strings.TrimSpace(payload.ProviderLocationID),
	}, nil
}

func describeTokenError(payload tokenEndpointPayload) string {
	if strings.TrimSpace(payload.ErrorDescription) != "" {
		return strings.TrimSpace(payload.ErrorDescription)
	}
	if strings.TrimSpace(payload.ErrorCode) != "" {
		return strings.TrimSpace(payload.ErrorCode)
	}
	return "unknown error"
}

// parseTokenPayload handles both JSON and form-encoded token endpoint
// responses, sniffing when the content type is unhelpful.
func parseTokenPayload(body []byte, contentType string) (tokenEndpointPayload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(contentType, "json") {
		return parseTokenPayloadJSON(body)
	}
	if strings.Contains(contentType, "x-www-form-urlencoded") || strings.Contains(contentType, "text/plain") {
		return parseTokenPayloadForm(body)
	}
	if payload, err := parseTokenPayloadJSON(body); err == nil {
		return payload, nil
	}
	return parseTokenPayloadForm(body)
}

func parseTokenPayloadJSON(body []byte) (tokenEndpointPayload, error) {
	if strings.TrimSpace(string(body)) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return tokenEndpointPayload{}, err
	}
	return tokenEndpointPayload{
		AccessToken:        readAnyString(decoded["access_token"]),
		TokenType:          readAnyString(decoded["token_type"]),
		RefreshToken:       readAnyString(decoded["refresh_token"]),
		Scope:              readAnyString(decoded["scope"]),
		ExpiresIn:          readAnyInt64(decoded["expires_in"]),
		ProviderAccountID:  readAnyString(decoded["companyId"]),
		ProviderLocationID: readAnyString(decoded["locationId"]),
		ErrorCode:          readAnyString(decoded["error"]),
		ErrorDescription:   readAnyString(decoded["error_description"]),
	}, nil
}

func parseTokenPayloadForm(body []byte) (tokenEndpointPayload, error) {
	if strings.TrimSpace(string(body)) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	expiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("expires_in")), 10, 64)
	return tokenEndpointPayload{
		AccessToken:        strings.TrimSpace(values.Get("access_token")),
		TokenType:          strings.TrimSpace(values.Get("token_type")),
		RefreshToken:       strings.TrimSpace(values.Get("refresh_token")),
		Scope:              strings.TrimSpace(values.Get("scope")),
		ExpiresIn:          expiresIn,
		ProviderAccountID:  strings.TrimSpace(values.Get("companyId")),
		ProviderLocationID: strings.TrimSpace(values.Get("locationId")),
		ErrorCode:          strings.TrimSpace(values.Get("error")),
		ErrorDescription:   strings.TrimSpace(values.Get("error_description")),
	}, nil
}

func normalizeTokenType(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "bearer"
	}
	return normalized
}

func parseScopeList(value string) []string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return []string{}
	}
	return strings.Fields(strings.ReplaceAll(trimmed, ",", " "))
}

func readAnyString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func readAnyInt64(value any) int64 {
	switch typed := value.(type) {
	case int:
		return int64(typed)
	case int64:
		return typed
	case float64:
		return int64(typed)
	case json.Number:
		if parsed, err := typed.Int64(); err == nil {
			return parsed
		}
		if floatParsed, err := typed.Float64(); err == nil {
			return int64(floatParsed)
		}
	case string:
		if parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}

var _ core.TokenExchanger = (*TokenClient)(nil)
