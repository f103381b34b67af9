package core

import (
	"context"
	"io"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

// ConnectionStore reads and writes the saved connection that owns the
// credential column for an (owner, location) pair.
type ConnectionStore interface {
	GetByOwnerLocation(ctx context.Context, ownerID string, locationID string) (Connection, error)
	UpdateToken(ctx context.Context, connectionID string, tokenPayload string, lastUsedAt time.Time) error
}

// WizardStore loads the template plus answers for a wizard and records
// its terminal synchronization status.
type WizardStore interface {
	Get(ctx context.Context, wizardID string) (Wizard, error)
	UpdateStatus(ctx context.Context, wizardID string, status WizardStatus) error
}

// SyncRunStore persists the audit trail. Create inserts a pending run;
// Finish finalizes it exactly once.
type SyncRunStore interface {
	Create(ctx context.Context, run SyncRun) (SyncRun, error)
	Finish(ctx context.Context, runID string, status SyncRunStatus, diff Diff, errMessage string) error
	Get(ctx context.Context, runID string) (SyncRun, error)
	LatestByWizard(ctx context.Context, wizardID string) (SyncRun, error)
}

// FileStore is the storage collaborator media sync downloads from.
type FileStore interface {
	Download(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

type CustomFieldInput struct {
	Name        string   `json:"name"`
	DataType    string   `json:"dataType"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty"`
}

type CustomValueInput struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type TriggerLinkInput struct {
	LocationID string `json:"locationId"`
	Name       string `json:"name"`
	RedirectTo string `json:"redirectTo"`
}

type MediaUploadInput struct {
	FileName    string
	ContentType string
	Body        []byte
}

// CRMClient is the authenticated wire-level surface the executor walks.
// Implementations return the decoded response body; HTTP failures come
// back as goerrors envelopes carrying the remote status code.
type CRMClient interface {
	CreateCustomField(ctx context.Context, locationID string, in CustomFieldInput) (map[string]any, error)
	CreateCustomValue(ctx context.Context, locationID string, in CustomValueInput) (map[string]any, error)
	UpdateCustomValue(ctx context.Context, locationID string, referenceID string, in CustomValueInput) (map[string]any, error)
	CreateTriggerLink(ctx context.Context, in TriggerLinkInput) (map[string]any, error)
	UpdateTriggerLink(ctx context.Context, referenceID string, in TriggerLinkInput) (map[string]any, error)
	CreateTag(ctx context.Context, locationID string, name string) (map[string]any, error)
	UploadMedia(ctx context.Context, in MediaUploadInput) (map[string]any, error)
}

// ClientFactory builds a CRM client bound to a resolved credential.
type ClientFactory interface {
	Build(credential Credential) (CRMClient, error)
}

// TokenExchanger performs the refresh-token grant against the CRM's
// token endpoint. The merge-forward policy lives in this package.
type TokenExchanger interface {
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (TokenGrant, error)
}
