package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[EnqueueSyncMessage] = (*EnqueueSyncCommand)(nil)
	_ gocmd.Commander[SyncWizardMessage]  = (*SyncWizardCommand)(nil)
)
