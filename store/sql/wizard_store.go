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

type WizardStore struct {
	db        *bun.DB
	wizards   repository.Repository[*wizardRecord]
	responses repository.Repository[*wizardResponseRecord]
}

func (s *WizardStore) Get(ctx context.Context, wizardID string) (core.Wizard, error) {
	if s == nil || s.wizards == nil || s.responses == nil {
		return core.Wizard{}, fmt.Errorf("sqlstore: wizard store is not configured")
	}
	wizardID = strings.TrimSpace(wizardID)
	if wizardID == "" {
		return core.Wizard{}, fmt.Errorf("sqlstore: wizard id is required")
	}

	record, err := s.wizards.GetByID(ctx, wizardID)
	if err != nil {
		return core.Wizard{}, fmt.Errorf("sqlstore: wizard %q not found: %w", wizardID, err)
	}

	responses, _, err := s.responses.List(ctx,
		repository.SelectBy("wizard_id", "=", wizardID),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return core.Wizard{}, err
	}
	return assembleWizard(record, responses), nil
}

func (s *WizardStore) UpdateStatus(ctx context.Context, wizardID string, status core.WizardStatus) error {
	if s == nil || s.wizards == nil {
		return fmt.Errorf("sqlstore: wizard store is not configured")
	}
	wizardID = strings.TrimSpace(wizardID)
	if wizardID == "" {
		return fmt.Errorf("sqlstore: wizard id is required")
	}

	current, err := s.wizards.GetByID(ctx, wizardID)
	if err != nil {
		return fmt.Errorf("sqlstore: wizard %q not found: %w", wizardID, err)
	}
	current.Status = strings.TrimSpace(string(status))
	current.UpdatedAt = time.Now().UTC()

	_, err = s.wizards.Update(ctx, current, repository.UpdateByID(wizardID))
	return err
}

var _ core.WizardStore = (*WizardStore)(nil)
