package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-onboarding/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const wizardCacheKeyPrefix = "go-onboarding::wizard::v1"

// CachedWizardStore fronts a wizard store with a read-through cache.
// Status writes invalidate so a finished sync is visible on the next
// read.
type CachedWizardStore struct {
	base  core.WizardStore
	cache repositorycache.CacheService
}

func NewCachedWizardStore(base core.WizardStore, cacheService repositorycache.CacheService) (*CachedWizardStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base wizard store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: wizard cache service is required")
	}
	return &CachedWizardStore{base: base, cache: cacheService}, nil
}

// WizardCacheKey returns the deterministic cache key for wizard reads:
// go-onboarding::wizard::v1::<wizard_id> with the id URL-path escaped.
func WizardCacheKey(wizardID string) (string, error) {
	wizardID = strings.TrimSpace(wizardID)
	if wizardID == "" {
		return "", fmt.Errorf("sqlstore: wizard id is required")
	}
	return wizardCacheKeyPrefix + "::" + url.PathEscape(wizardID), nil
}

func (s *CachedWizardStore) Get(ctx context.Context, wizardID string) (core.Wizard, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Wizard{}, fmt.Errorf("sqlstore: cached wizard store is not configured")
	}
	cacheKey, err := WizardCacheKey(wizardID)
	if err != nil {
		return core.Wizard{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Wizard, error) {
		return s.base.Get(ctx, strings.TrimSpace(wizardID))
	})
}

func (s *CachedWizardStore) UpdateStatus(ctx context.Context, wizardID string, status core.WizardStatus) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached wizard store is not configured")
	}
	cacheKey, err := WizardCacheKey(wizardID)
	if err != nil {
		return err
	}
	if err := s.base.UpdateStatus(ctx, wizardID, status); err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ core.WizardStore = (*CachedWizardStore)(nil)
