package core

import (
	"strings"
	"time"
)

type CredentialKind string

const (
	CredentialKindPrivateToken CredentialKind = "private_token"
	CredentialKindOAuth        CredentialKind = "oauth"
)

type ScopeLevel string

const (
	ScopeLevelLocation ScopeLevel = "location"
	ScopeLevelAgency   ScopeLevel = "agency"
)

// Credential is the decoded form of a saved connection's token column.
// A private-token credential carries only an access token; an OAuth
// credential additionally carries the refresh grant state.
type Credential struct {
	Kind        CredentialKind
	AccessToken string
	Token       string
	Raw         string
	ScopeLevel  ScopeLevel
	Metadata    map[string]any

	RefreshToken          string
	ExpiresAt             *time.Time
	RefreshTokenExpiresAt *time.Time
	Scope                 []string
	TokenType             string
	ProviderAccountID     string
	ProviderLocationID    string
	InstalledAt           *time.Time
}

func (c Credential) IsOAuth() bool {
	return c.Kind == CredentialKindOAuth
}

// BearerToken resolves the value to place on the Authorization header.
// OAuth credentials always use the access token, stale or not; private
// tokens fall back through the legacy column shapes.
func (c Credential) BearerToken() string {
	if c.IsOAuth() {
		return strings.TrimSpace(c.AccessToken)
	}
	for _, candidate := range []string{c.AccessToken, c.Token, c.Raw} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

type BlockType string

const (
	BlockTypeCustomField BlockType = "custom_field"
	BlockTypeCustomValue BlockType = "custom_value"
	BlockTypeTriggerLink BlockType = "trigger_link"
	BlockTypeTag         BlockType = "tag"
	BlockTypeMedia       BlockType = "media"
	BlockTypeText        BlockType = "text"
)

type BlockMode string

const (
	BlockModeExisting BlockMode = "existing"
	BlockModeCreate   BlockMode = "create"
)

// BlockEntity holds the fields used to create a new CRM record when a
// block runs in create mode.
type BlockEntity struct {
	Name        string   `json:"name,omitempty"`
	DataType    string   `json:"data_type,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty"`
	RedirectTo  string   `json:"redirect_to,omitempty"`
}

type WizardBlock struct {
	ID          string      `json:"id"`
	Type        BlockType   `json:"type"`
	Mode        BlockMode   `json:"mode,omitempty"`
	ReferenceID string      `json:"reference_id,omitempty"`
	NewEntity   BlockEntity `json:"new_entity,omitempty"`
}

type WizardPage struct {
	ID     string        `json:"id"`
	Title  string        `json:"title,omitempty"`
	Blocks []WizardBlock `json:"blocks,omitempty"`
}

type WizardStatus string

const (
	WizardStatusDraft     WizardStatus = "draft"
	WizardStatusPublished WizardStatus = "published"
	WizardStatusSubmitted WizardStatus = "submitted"
	WizardStatusSynced    WizardStatus = "synced"
	WizardStatusError     WizardStatus = "error"
)

// Wizard is the template plus the customer's answers, as loaded for one
// synchronization run.
type Wizard struct {
	ID         string
	OwnerID    string
	LocationID string
	Status     WizardStatus
	Pages      []WizardPage
	Responses  map[string]PageResponse
}

// PageResponse holds the customer's answers for one page, keyed by
// block id. Answer keys without a matching template block are ignored.
type PageResponse struct {
	PageID  string                 `json:"page_id"`
	Answers map[string]BlockAnswer `json:"answers,omitempty"`
}

type BlockAnswer struct {
	Value   any            `json:"value,omitempty"`
	Uploads []UploadRef    `json:"uploads,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

type UploadRef struct {
	StorageKey  string `json:"storage_key"`
	FileName    string `json:"file_name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

type FieldConfig struct {
	Name        string   `json:"name"`
	DataType    string   `json:"data_type"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty"`
}

type FieldOp struct {
	BlockID     string
	Mode        BlockMode
	ReferenceID string
	Config      FieldConfig
	Value       string
}

type ValueOp struct {
	BlockID     string
	Mode        BlockMode
	ReferenceID string
	Name        string
	Value       string
}

type LinkOp struct {
	BlockID     string
	Mode        BlockMode
	ReferenceID string
	Name        string
	RedirectTo  string
}

type TagOp struct {
	BlockID string
	Names   []string
}

type MediaOp struct {
	BlockID     string
	StorageKey  string
	FileName    string
	ContentType string
}

// SyncPayload is the derived, ephemeral operation plan for one run.
type SyncPayload struct {
	CustomFields []FieldOp
	CustomValues []ValueOp
	TriggerLinks []LinkOp
	Tags         []TagOp
	Media        []MediaOp
}

func (p SyncPayload) IsEmpty() bool {
	return len(p.CustomFields) == 0 &&
		len(p.CustomValues) == 0 &&
		len(p.TriggerLinks) == 0 &&
		len(p.Tags) == 0 &&
		len(p.Media) == 0
}

type SyncRunStatus string

const (
	SyncRunStatusPending SyncRunStatus = "pending"
	SyncRunStatusSuccess SyncRunStatus = "success"
	SyncRunStatusFailed  SyncRunStatus = "failed"
)

// DiffEntry records the outcome of a single remote operation. Tag ops
// produce one entry per name; skipped entries carry a reason and no
// request/response.
type DiffEntry struct {
	BlockID  string         `json:"block_id"`
	Name     string         `json:"name,omitempty"`
	Request  map[string]any `json:"request,omitempty"`
	Response map[string]any `json:"response,omitempty"`
	Error    string         `json:"error,omitempty"`
	Fallback bool           `json:"fallback,omitempty"`
	Skipped  bool           `json:"skipped,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

type Diff struct {
	Fields       []DiffEntry `json:"fields"`
	Values       []DiffEntry `json:"values"`
	TriggerLinks []DiffEntry `json:"trigger_links"`
	Tags         []DiffEntry `json:"tags"`
	Media        []DiffEntry `json:"media"`
}

// SyncRun is the append-only audit record of one synchronization.
// Created pending at job start and finalized exactly once.
type SyncRun struct {
	ID         string
	WizardID   string
	Status     SyncRunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Diff       Diff
	Error      string
}

// Connection is the saved CRM connection owning the credential column.
type Connection struct {
	ID           string
	OwnerID      string
	LocationID   string
	TokenPayload string
	ScopeLevel   ScopeLevel
	LastUsedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TokenGrant is a successful token endpoint response, normalized.
type TokenGrant struct {
	AccessToken        string
	TokenType          string
	RefreshToken       string
	Scope              []string
	ExpiresIn          int64
	ProviderAccountID  string
	ProviderLocationID string
	Metadata           map[string]any
}

func copyAnyMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}

func cloneTimePointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := value.UTC()
	return &clone
}

func cloneStrings(values []string) []string {
	return append([]string(nil), values...)
}
