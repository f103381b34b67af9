package sqlstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-onboarding/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type stubWizardBaseStore struct {
	mu          sync.Mutex
	wizard      core.Wizard
	getCalls    int
	updateCalls int
	getErr      error
	updateErr   error
}

func (s *stubWizardBaseStore) Get(_ context.Context, wizardID string) (core.Wizard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return core.Wizard{}, s.getErr
	}
	if s.wizard.ID != wizardID {
		return core.Wizard{}, fmt.Errorf("sqlstore: wizard %q not found", wizardID)
	}
	return s.wizard, nil
}

func (s *stubWizardBaseStore) UpdateStatus(_ context.Context, wizardID string, status core.WizardStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.updateErr != nil {
		return s.updateErr
	}
	if s.wizard.ID != wizardID {
		return fmt.Errorf("sqlstore: wizard %q not found", wizardID)
	}
	s.wizard.Status = status
	return nil
}

func newTestWizardCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

func TestCachedWizardStore_Get_MissFetchThenHit(t *testing.T) {
	base := &stubWizardBaseStore{wizard: core.Wizard{ID: "wiz-1", Status: core.WizardStatusSubmitted}}
	store, err := NewCachedWizardStore(base, newTestWizardCacheService(t))
	if err != nil {
		t.Fatalf("new cached wizard store: %v", err)
	}

	if _, err := store.Get(context.Background(), "wiz-1"); err != nil {
		t.Fatalf("first get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected first get to fetch base store once, got %d", base.getCalls)
	}

	if _, err := store.Get(context.Background(), "wiz-1"); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected second get to be cache hit, base get calls=%d", base.getCalls)
	}
}

func TestCachedWizardStore_UpdateStatusInvalidatesCachedKey(t *testing.T) {
	base := &stubWizardBaseStore{wizard: core.Wizard{ID: "wiz-1", Status: core.WizardStatusSubmitted}}
	store, err := NewCachedWizardStore(base, newTestWizardCacheService(t))
	if err != nil {
		t.Fatalf("new cached wizard store: %v", err)
	}

	if _, err := store.Get(context.Background(), "wiz-1"); err != nil {
		t.Fatalf("prime cache with get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected one base read after cache prime, got %d", base.getCalls)
	}

	if err := store.UpdateStatus(context.Background(), "wiz-1", core.WizardStatusSynced); err != nil {
		t.Fatalf("update status through cached store: %v", err)
	}
	if base.updateCalls != 1 {
		t.Fatalf("expected base update call count=1, got %d", base.updateCalls)
	}

	wizard, err := store.Get(context.Background(), "wiz-1")
	if err != nil {
		t.Fatalf("get after invalidation: %v", err)
	}
	if base.getCalls != 2 {
		t.Fatalf("expected invalidated key to force second base read, got %d", base.getCalls)
	}
	if wizard.Status != core.WizardStatusSynced {
		t.Fatalf("expected refreshed status synced, got %q", wizard.Status)
	}
}

func TestCachedWizardStore_UpdateStatusErrorLeavesCacheWarm(t *testing.T) {
	base := &stubWizardBaseStore{
		wizard:    core.Wizard{ID: "wiz-1", Status: core.WizardStatusSubmitted},
		updateErr: fmt.Errorf("write failed"),
	}
	store, err := NewCachedWizardStore(base, newTestWizardCacheService(t))
	if err != nil {
		t.Fatalf("new cached wizard store: %v", err)
	}

	if _, err := store.Get(context.Background(), "wiz-1"); err != nil {
		t.Fatalf("prime cache with get: %v", err)
	}
	if err := store.UpdateStatus(context.Background(), "wiz-1", core.WizardStatusSynced); err == nil {
		t.Fatalf("expected update error to propagate")
	}
	if _, err := store.Get(context.Background(), "wiz-1"); err != nil {
		t.Fatalf("get after failed update: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected cache entry retained after failed write, base get calls=%d", base.getCalls)
	}
}

func TestWizardCacheKey_Contract(t *testing.T) {
	key, err := WizardCacheKey("wiz/alpha 1")
	if err != nil {
		t.Fatalf("build cache key: %v", err)
	}
	const expected = "go-onboarding::wizard::v1::wiz%2Falpha%201"
	if key != expected {
		t.Fatalf("unexpected cache key contract: got %q want %q", key, expected)
	}

	if _, err := WizardCacheKey("   "); err == nil {
		t.Fatalf("expected error for blank wizard id")
	}
}

func TestCachedWizardStore_PropagatesBaseErrors(t *testing.T) {
	base := &stubWizardBaseStore{getErr: fmt.Errorf("database unavailable")}
	store, err := NewCachedWizardStore(base, newTestWizardCacheService(t))
	if err != nil {
		t.Fatalf("new cached wizard store: %v", err)
	}

	if _, err := store.Get(context.Background(), "wiz-1"); err == nil {
		t.Fatalf("expected base error propagation")
	}
}
