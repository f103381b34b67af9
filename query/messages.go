package query

import (
	"fmt"
	"strings"
)

const (
	TypeGetSyncRun    = "onboarding.query.sync_run.get"
	TypeLatestSyncRun = "onboarding.query.sync_run.latest"
	TypeGetWizard     = "onboarding.query.wizard.get"
)

type GetSyncRunMessage struct {
	RunID string
}

func (GetSyncRunMessage) Type() string { return TypeGetSyncRun }

func (m GetSyncRunMessage) Validate() error {
	if strings.TrimSpace(m.RunID) == "" {
		return fmt.Errorf("query: run id is required")
	}
	return nil
}

type LatestSyncRunMessage struct {
	WizardID string
}

func (LatestSyncRunMessage) Type() string { return TypeLatestSyncRun }

func (m LatestSyncRunMessage) Validate() error {
	if strings.TrimSpace(m.WizardID) == "" {
		return fmt.Errorf("query: wizard id is required")
	}
	return nil
}

type GetWizardMessage struct {
	WizardID string
}

func (GetWizardMessage) Type() string { return TypeGetWizard }

func (m GetWizardMessage) Validate() error {
	if strings.TrimSpace(m.WizardID) == "" {
		return fmt.Errorf("query: wizard id is required")
	}
	return nil
}
