package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type memorySyncRunStore struct {
	mu        sync.Mutex
	runs      map[string]SyncRun
	order     []string
	createErr error
	finishErr error
}

func newMemorySyncRunStore() *memorySyncRunStore {
	return &memorySyncRunStore{runs: map[string]SyncRun{}}
}

func (s *memorySyncRunStore) Create(_ context.Context, run SyncRun) (SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return SyncRun{}, s.createErr
	}
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	return run, nil
}

func (s *memorySyncRunStore) Finish(_ context.Context, runID string, status SyncRunStatus, diff Diff, errMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finishErr != nil {
		return s.finishErr
	}
	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("sync run %q not found", runID)
	}
	now := time.Now().UTC()
	run.Status = status
	run.Diff = diff
	run.Error = errMessage
	run.FinishedAt = &now
	s.runs[runID] = run
	return nil
}

func (s *memorySyncRunStore) Get(_ context.Context, runID string) (SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return SyncRun{}, fmt.Errorf("sync run %q not found", runID)
	}
	return run, nil
}

func (s *memorySyncRunStore) LatestByWizard(_ context.Context, wizardID string) (SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		run := s.runs[s.order[i]]
		if run.WizardID == wizardID {
			return run, nil
		}
	}
	return SyncRun{}, fmt.Errorf("no sync runs found for wizard %q", wizardID)
}

type memoryWizardStore struct {
	mu      sync.Mutex
	wizards map[string]Wizard
}

func newMemoryWizardStore(wizards ...Wizard) *memoryWizardStore {
	store := &memoryWizardStore{wizards: map[string]Wizard{}}
	for _, wizard := range wizards {
		store.wizards[wizard.ID] = wizard
	}
	return store
}

func (s *memoryWizardStore) Get(_ context.Context, wizardID string) (Wizard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wizard, ok := s.wizards[wizardID]
	if !ok {
		return Wizard{}, fmt.Errorf("wizard %q not found", wizardID)
	}
	return wizard, nil
}

func (s *memoryWizardStore) UpdateStatus(_ context.Context, wizardID string, status WizardStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wizard, ok := s.wizards[wizardID]
	if !ok {
		return fmt.Errorf("wizard %q not found", wizardID)
	}
	wizard.Status = status
	s.wizards[wizardID] = wizard
	return nil
}

func (s *memoryWizardStore) status(t *testing.T, wizardID string) WizardStatus {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	wizard, ok := s.wizards[wizardID]
	if !ok {
		t.Fatalf("wizard %q not found", wizardID)
	}
	return wizard.Status
}

func TestRunRecorderStartCreatesPendingRun(t *testing.T) {
	runs := newMemorySyncRunStore()
	wizards := newMemoryWizardStore(Wizard{ID: "wiz-1", Status: WizardStatusSubmitted})
	recorder := NewRunRecorder(runs, wizards, nil)

	run, err := recorder.Start(context.Background(), "wiz-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected a generated run id")
	}
	if run.Status != SyncRunStatusPending {
		t.Fatalf("expected pending status, got %q", run.Status)
	}
	if run.StartedAt.IsZero() {
		t.Fatal("expected started_at to be set")
	}

	stored, err := runs.Get(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("expected run persisted: %v", err)
	}
	if stored.WizardID != "wiz-1" {
		t.Fatalf("unexpected wizard id: %q", stored.WizardID)
	}
}

func TestRunRecorderStartRequiresWizardID(t *testing.T) {
	recorder := NewRunRecorder(newMemorySyncRunStore(), newMemoryWizardStore(), nil)
	if _, err := recorder.Start(context.Background(), "   "); err == nil {
		t.Fatal("expected error for blank wizard id")
	}
}

func TestRunRecorderStartFailureIsFatal(t *testing.T) {
	runs := newMemorySyncRunStore()
	runs.createErr = fmt.Errorf("database unavailable")
	recorder := NewRunRecorder(runs, newMemoryWizardStore(), nil)

	if _, err := recorder.Start(context.Background(), "wiz-1"); err == nil {
		t.Fatal("expected start failure to propagate")
	}
}

func TestRunRecorderFinishSuccess(t *testing.T) {
	runs := newMemorySyncRunStore()
	wizards := newMemoryWizardStore(Wizard{ID: "wiz-1", Status: WizardStatusSubmitted})
	recorder := NewRunRecorder(runs, wizards, nil)

	run, err := recorder.Start(context.Background(), "wiz-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	diff := Diff{Tags: []DiffEntry{{BlockID: "tags-1", Name: "vip"}}}
	if err := recorder.Finish(context.Background(), run, diff, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := runs.Get(context.Background(), run.ID)
	if stored.Status != SyncRunStatusSuccess {
		t.Fatalf("expected success status, got %q", stored.Status)
	}
	if stored.FinishedAt == nil {
		t.Fatal("expected finished_at to be set")
	}
	if len(stored.Diff.Tags) != 1 {
		t.Fatalf("expected diff persisted, got %+v", stored.Diff)
	}
	if got := wizards.status(t, "wiz-1"); got != WizardStatusSynced {
		t.Fatalf("expected wizard synced, got %q", got)
	}
}

func TestRunRecorderFinishFailureReRaises(t *testing.T) {
	runs := newMemorySyncRunStore()
	wizards := newMemoryWizardStore(Wizard{ID: "wiz-1", Status: WizardStatusSubmitted})
	recorder := NewRunRecorder(runs, wizards, nil)

	run, err := recorder.Start(context.Background(), "wiz-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	execErr := fmt.Errorf("crm rejected the batch")
	err = recorder.Finish(context.Background(), run, Diff{}, execErr)
	if err != execErr {
		t.Fatalf("expected the executor error re-raised, got %v", err)
	}

	stored, _ := runs.Get(context.Background(), run.ID)
	if stored.Status != SyncRunStatusFailed {
		t.Fatalf("expected failed status, got %q", stored.Status)
	}
	if stored.Error != "crm rejected the batch" {
		t.Fatalf("expected error message persisted, got %q", stored.Error)
	}
	if got := wizards.status(t, "wiz-1"); got != WizardStatusError {
		t.Fatalf("expected wizard errored, got %q", got)
	}
}
