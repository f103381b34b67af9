package command

import (
	"fmt"
	"strings"
)

const (
	TypeEnqueueSync = "onboarding.command.sync.enqueue"
	TypeSyncWizard  = "onboarding.command.sync.run"
)

// EnqueueSyncMessage schedules a wizard on the background sync queue.
type EnqueueSyncMessage struct {
	WizardID string
}

func (EnqueueSyncMessage) Type() string { return TypeEnqueueSync }

func (m EnqueueSyncMessage) Validate() error {
	if strings.TrimSpace(m.WizardID) == "" {
		return fmt.Errorf("command: wizard id is required")
	}
	return nil
}

// SyncWizardMessage runs a wizard synchronization inline, bypassing the
// queue. Intended for CLI and maintenance paths where the caller wants
// the outcome before returning.
type SyncWizardMessage struct {
	WizardID string
}

func (SyncWizardMessage) Type() string { return TypeSyncWizard }

func (m SyncWizardMessage) Validate() error {
	if strings.TrimSpace(m.WizardID) == "" {
		return fmt.Errorf("command: wizard id is required")
	}
	return nil
}
