package query

import (
	"context"

	"github.com/goliatone/go-onboarding/core"
)

// SyncRunReader is the read side of the audit trail. core.SyncRunStore
// satisfies it directly.
type SyncRunReader interface {
	Get(ctx context.Context, runID string) (core.SyncRun, error)
	LatestByWizard(ctx context.Context, wizardID string) (core.SyncRun, error)
}

// WizardReader loads wizard templates plus answers. core.WizardStore
// satisfies it directly.
type WizardReader interface {
	Get(ctx context.Context, wizardID string) (core.Wizard, error)
}

type GetSyncRunQuery struct {
	reader SyncRunReader
}

func NewGetSyncRunQuery(reader SyncRunReader) *GetSyncRunQuery {
	return &GetSyncRunQuery{reader: reader}
}

func (q *GetSyncRunQuery) Query(ctx context.Context, msg GetSyncRunMessage) (core.SyncRun, error) {
	if q == nil || q.reader == nil {
		return core.SyncRun{}, queryDependencyError("query: sync run reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.SyncRun{}, queryWrapValidation(err, "query: get sync run")
	}
	return q.reader.Get(ctx, msg.RunID)
}

type LatestSyncRunQuery struct {
	reader SyncRunReader
}

func NewLatestSyncRunQuery(reader SyncRunReader) *LatestSyncRunQuery {
	return &LatestSyncRunQuery{reader: reader}
}

func (q *LatestSyncRunQuery) Query(ctx context.Context, msg LatestSyncRunMessage) (core.SyncRun, error) {
	if q == nil || q.reader == nil {
		return core.SyncRun{}, queryDependencyError("query: sync run reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.SyncRun{}, queryWrapValidation(err, "query: latest sync run")
	}
	return q.reader.LatestByWizard(ctx, msg.WizardID)
}

type GetWizardQuery struct {
	reader WizardReader
}

func NewGetWizardQuery(reader WizardReader) *GetWizardQuery {
	return &GetWizardQuery{reader: reader}
}

func (q *GetWizardQuery) Query(ctx context.Context, msg GetWizardMessage) (core.Wizard, error) {
	if q == nil || q.reader == nil {
		return core.Wizard{}, queryDependencyError("query: wizard reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.Wizard{}, queryWrapValidation(err, "query: get wizard")
	}
	return q.reader.Get(ctx, msg.WizardID)
}
