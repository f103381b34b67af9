package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type SyncRunStore struct {
	db   *bun.DB
	repo repository.Repository[*syncRunRecord]
}

func (s *SyncRunStore) Create(ctx context.Context, run core.SyncRun) (core.SyncRun, error) {
	if s == nil || s.repo == nil {
		return core.SyncRun{}, fmt.Errorf("sqlstore: sync run store is not configured")
	}
	if strings.TrimSpace(run.WizardID) == "" {
		return core.SyncRun{}, fmt.Errorf("sqlstore: wizard id is required")
	}

	now := time.Now().UTC()
	startedAt := run.StartedAt.UTC()
	if run.StartedAt.IsZero() {
		startedAt = now
	}
	record := &syncRunRecord{
		ID:        strings.TrimSpace(run.ID),
		WizardID:  strings.TrimSpace(run.WizardID),
		Status:    string(run.Status),
		StartedAt: startedAt,
		Diff:      run.Diff,
		Error:     run.Error,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.SyncRun{}, err
	}
	return created.toDomain(), nil
}

func (s *SyncRunStore) Finish(ctx context.Context, runID string, status core.SyncRunStatus, diff core.Diff, errMessage string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: sync run store is not configured")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return fmt.Errorf("sqlstore: run id is required")
	}

	current, err := s.repo.GetByID(ctx, runID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	current.Status = string(status)
	current.Diff = diff
	current.Error = strings.TrimSpace(errMessage)
	current.FinishedAt = &now
	current.UpdatedAt = now

	_, err = s.repo.Update(ctx, current, repository.UpdateByID(runID))
	return err
}

func (s *SyncRunStore) Get(ctx context.Context, runID string) (core.SyncRun, error) {
	if s == nil || s.repo == nil {
		return core.SyncRun{}, fmt.Errorf("sqlstore: sync run store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(runID))
	if err != nil {
		return core.SyncRun{}, err
	}
	return record.toDomain(), nil
}

func (s *SyncRunStore) LatestByWizard(ctx context.Context, wizardID string) (core.SyncRun, error) {
	if s == nil || s.repo == nil {
		return core.SyncRun{}, fmt.Errorf("sqlstore: sync run store is not configured")
	}
	wizardID = strings.TrimSpace(wizardID)
	if wizardID == "" {
		return core.SyncRun{}, fmt.Errorf("sqlstore: wizard id is required")
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("wizard_id", "=", wizardID),
		repository.OrderBy("started_at DESC"),
	)
	if err != nil {
		return core.SyncRun{}, err
	}
	if len(records) == 0 {
		return core.SyncRun{}, fmt.Errorf("sqlstore: no sync runs found for wizard %q", wizardID)
	}
	return records[0].toDomain(), nil
}

var _ core.SyncRunStore = (*SyncRunStore)(nil)
