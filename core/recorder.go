package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// RunRecorder writes the audit trail around one synchronization: a
// pending row before any network activity, and exactly one terminal
// update afterwards, mirrored onto the wizard's status.
type RunRecorder struct {
	runs    SyncRunStore
	wizards WizardStore
	logger  Logger
	now     func() time.Time
}

func NewRunRecorder(runs SyncRunStore, wizards WizardStore, logger Logger) *RunRecorder {
	return &RunRecorder{
		runs:    runs,
		wizards: wizards,
		logger:  glog.Ensure(logger),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Start inserts the pending run row. Failure here is fatal: the sync
// aborts before any CRM call so a run can never happen unaudited.
func (r *RunRecorder) Start(ctx context.Context, wizardID string) (SyncRun, error) {
	if r == nil || r.runs == nil {
		return SyncRun{}, fmt.Errorf("core: sync run store is not configured")
	}
	wizardID = strings.TrimSpace(wizardID)
	if wizardID == "" {
		return SyncRun{}, fmt.Errorf("core: wizard id is required")
	}

	run := SyncRun{
		ID:        uuid.NewString(),
		WizardID:  wizardID,
		Status:    SyncRunStatusPending,
		StartedAt: r.currentTime(),
	}
	created, err := r.runs.Create(ctx, run)
	if err != nil {
		return SyncRun{}, fmt.Errorf("core: record run start: %w", err)
	}
	return created, nil
}

// Finish finalizes the run and the wizard's terminal status. When the
// executor failed, the failure is re-raised after recording so the
// queue's catch-and-log wrapper also sees it.
func (r *RunRecorder) Finish(ctx context.Context, run SyncRun, diff Diff, execErr error) error {
	if r == nil || r.runs == nil || r.wizards == nil {
		return fmt.Errorf("core: run recorder is not configured")
	}

	if execErr == nil {
		if err := r.runs.Finish(ctx, run.ID, SyncRunStatusSuccess, diff, ""); err != nil {
			return fmt.Errorf("core: record run success: %w", err)
		}
		if err := r.wizards.UpdateStatus(ctx, run.WizardID, WizardStatusSynced); err != nil {
			return fmt.Errorf("core: mark wizard synced: %w", err)
		}
		return nil
	}

	if err := r.runs.Finish(ctx, run.ID, SyncRunStatusFailed, diff, execErr.Error()); err != nil {
		r.logger.Error("record run failure", "run_id", run.ID, "error", err)
	}
	if err := r.wizards.UpdateStatus(ctx, run.WizardID, WizardStatusError); err != nil {
		r.logger.Error("mark wizard errored", "wizard_id", run.WizardID, "error", err)
	}
	return execErr
}

func (r *RunRecorder) currentTime() time.Time {
	if r != nil && r.now != nil {
		return r.now().UTC()
	}
	return time.Now().UTC()
}
