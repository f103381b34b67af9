package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-onboarding/core"
)

const defaultRequestTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config parameterizes one authenticated client. A client is bound to
// a single resolved credential; the factory builds a fresh one per run
// so a mid-run token refresh never leaks into an older client.
type Config struct {
	BaseURL              string
	APIVersion           string
	AccessToken          string
	HTTPClient           HTTPDoer
	MaxResponseBodyBytes int64
	Logger               core.Logger
}

// Client speaks the CRM's REST surface: custom fields, custom values,
// trigger links, tags and media uploads. Remote failures come back as
// goerrors envelopes carrying the HTTP status code.
type Client struct {
	baseURL     string
	apiVersion  string
	accessToken string
	httpClient  HTTPDoer
	maxBody     int64
	logger      core.Logger
}

func New(cfg Config) (*Client, error) {
	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, fmt.Errorf("crm: access token is required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = core.DefaultCRMBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = core.DefaultCRMAPIVersion
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	maxBody := cfg.MaxResponseBodyBytes
	if maxBody <= 0 {
		maxBody = defaultResponseBodyLimit
	}

	return &Client{
		baseURL:     baseURL,
		apiVersion:  apiVersion,
		accessToken: accessToken,
		httpClient:  httpClient,
		maxBody:     maxBody,
		logger:      glog.Ensure(cfg.Logger),
	}, nil
}

func (c *Client) CreateCustomField(ctx context.Context, locationID string, in core.CustomFieldInput) (map[string]any, error) {
	path := fmt.Sprintf("/locations/%s/customFields", url.PathEscape(strings.TrimSpace(locationID)))
	return c.doJSON(ctx, http.MethodPost, path, in)
}

func (c *Client) CreateCustomValue(ctx context.Context, locationID string, in core.CustomValueInput) (map[string]any, error) {
	path := fmt.Sprintf("/locations/%s/customValues", url.PathEscape(strings.TrimSpace(locationID)))
	return c.doJSON(ctx, http.MethodPost, path, in)
}

func (c *Client) UpdateCustomValue(ctx context.Context, locationID string, referenceID string, in core.CustomValueInput) (map[string]any, error) {
	path := fmt.Sprintf("/locations/%s/customValues/%s",
		url.PathEscape(strings.TrimSpace(locationID)),
		url.PathEscape(strings.TrimSpace(referenceID)))
	return c.doJSON(ctx, http.MethodPut, path, in)
}

func (c *Client) CreateTriggerLink(ctx context.Context, in core.TriggerLinkInput) (map[string]any, error) {
	return c.doJSON(ctx, http.MethodPost, "/links/", in)
}

func (c *Client) UpdateTriggerLink(ctx context.Context, referenceID string, in core.TriggerLinkInput) (map[string]any, error) {
	path := fmt.Sprintf("/links/%s", url.PathEscape(strings.TrimSpace(referenceID)))
	return c.doJSON(ctx, http.MethodPut, path, in)
}

func (c *Client) CreateTag(ctx context.Context, locationID string, name string) (map[string]any, error) {
	path := fmt.Sprintf("/locations/%s/tags", url.PathEscape(strings.TrimSpace(locationID)))
	return c.doJSON(ctx, http.MethodPost, path, map[string]any{"name": strings.TrimSpace(name)})
}

func (c *Client) UploadMedia(ctx context.Context, in core.MediaUploadInput) (map[string]any, error) {
	if c == nil || c.httpClient == nil {
		return nil, crmError(
			"crm: client requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}

	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)
	part, err := writer.CreateFormFile("file", strings.TrimSpace(in.FileName))
	if err != nil {
		return nil, fmt.Errorf("crm: build multipart form: %w", err)
	}
	if _, err := part.Write(in.Body); err != nil {
		return nil, fmt.Errorf("crm: write multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("crm: close multipart form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/medias/upload-file", &buffer)
	if err != nil {
		return nil, fmt.Errorf("crm: create upload request: %w", err)
	}
	c.setCommonHeaders(httpReq)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	return c.execute(httpReq)
}

func (c *Client) doJSON(ctx context.Context, method string, path string, body any) (map[string]any, error) {
	if c == nil || c.httpClient == nil {
		return nil, crmError(
			"crm: client requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("crm: encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, crmWrapError(
			err,
			goerrors.CategoryBadInput,
			"crm: create http request",
			http.StatusBadRequest,
			map[string]any{"method": method, "path": path},
		)
	}
	c.setCommonHeaders(httpReq)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	return c.execute(httpReq)
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Version", c.apiVersion)
	req.Header.Set("Accept", "application/json")
}

func (c *Client) execute(req *http.Request) (map[string]any, error) {
	httpRes, err := c.httpClient.Do(req)
	if err != nil {
		return nil, crmWrapError(
			err,
			goerrors.CategoryExternal,
			"crm: execute http request",
			http.StatusBadGateway,
			map[string]any{"method": req.Method, "url": req.URL.String()},
		)
	}
	defer httpRes.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpRes.Body, c.maxBody+1))
	if err != nil {
		return nil, crmWrapError(
			err,
			goerrors.CategoryExternal,
			"crm: read response body",
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode},
		)
	}
	if int64(len(body)) > c.maxBody {
		return nil, crmError(
			fmt.Sprintf("crm: response body exceeds limit of %d bytes", c.maxBody),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode, "response_limit_b": c.maxBody},
		)
	}

	if httpRes.StatusCode >= http.StatusBadRequest {
		category := categoryForStatus(httpRes.StatusCode)
		return nil, crmError(
			fmt.Sprintf("crm: %s %s returned %d: %s",
				req.Method, req.URL.Path, httpRes.StatusCode, summarizeBody(body)),
			category,
			httpRes.StatusCode,
			map[string]any{
				"method":      req.Method,
				"url":         req.URL.String(),
				"status_code": httpRes.StatusCode,
			},
		)
	}

	return decodeResponseBody(body), nil
}

// decodeResponseBody tolerates empty and non-object responses; the
// decoded map feeds the audit diff, not control flow.
func decodeResponseBody(body []byte) map[string]any {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return map[string]any{}
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return map[string]any{"raw": trimmed}
	}
	if decoded == nil {
		return map[string]any{}
	}
	return decoded
}

func summarizeBody(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 256 {
		trimmed = trimmed[:256]
	}
	if trimmed == "" {
		return "empty body"
	}
	return trimmed
}

// Factory builds per-credential clients for sync runs.
type Factory struct {
	BaseURL              string
	APIVersion           string
	HTTPClient           HTTPDoer
	MaxResponseBodyBytes int64
	Logger               core.Logger
}

func NewFactory(cfg core.CRMConfig, client HTTPDoer, logger core.Logger) Factory {
	return Factory{
		BaseURL:    cfg.BaseURL,
		APIVersion: cfg.APIVersion,
		HTTPClient: client,
		Logger:     logger,
	}
}

func (f Factory) Build(credential core.Credential) (core.CRMClient, error) {
	token := credential.BearerToken()
	if token == "" {
		return nil, fmt.Errorf("crm: credential has no usable access token")
	}
	return New(Config{
		BaseURL:              f.BaseURL,
		APIVersion:           f.APIVersion,
		AccessToken:          token,
		HTTPClient:           f.HTTPClient,
		MaxResponseBodyBytes: f.MaxResponseBodyBytes,
		Logger:               f.Logger,
	})
}

var _ core.CRMClient = (*Client)(nil)
var _ core.ClientFactory = (Factory{})
