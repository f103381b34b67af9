package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-onboarding/core"
)

var (
	_ gocmd.Querier[GetSyncRunMessage, core.SyncRun]    = (*GetSyncRunQuery)(nil)
	_ gocmd.Querier[LatestSyncRunMessage, core.SyncRun] = (*LatestSyncRunQuery)(nil)
	_ gocmd.Querier[GetWizardMessage, core.Wizard]      = (*GetWizardQuery)(nil)
)
