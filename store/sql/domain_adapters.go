package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/core"
)

func (r *connectionRecord) toDomain() core.Connection {
	if r == nil {
		return core.Connection{}
	}
	return core.Connection{
		ID:           strings.TrimSpace(r.ID),
		OwnerID:      strings.TrimSpace(r.OwnerID),
		LocationID:   strings.TrimSpace(r.LocationID),
		TokenPayload: r.TokenPayload,
		ScopeLevel:   core.ScopeLevel(strings.TrimSpace(r.ScopeLevel)),
		LastUsedAt:   cloneTimePointer(r.LastUsedAt),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func (r *syncRunRecord) toDomain() core.SyncRun {
	if r == nil {
		return core.SyncRun{}
	}
	return core.SyncRun{
		ID:         strings.TrimSpace(r.ID),
		WizardID:   strings.TrimSpace(r.WizardID),
		Status:     core.SyncRunStatus(strings.TrimSpace(r.Status)),
		StartedAt:  r.StartedAt.UTC(),
		FinishedAt: cloneTimePointer(r.FinishedAt),
		Diff:       r.Diff,
		Error:      r.Error,
	}
}

// assembleWizard joins the template row with its response rows. Answer
// pages the template no longer declares are carried through untouched;
// payload projection ignores them.
func assembleWizard(record *wizardRecord, responses []*wizardResponseRecord) core.Wizard {
	if record == nil {
		return core.Wizard{}
	}
	wizard := core.Wizard{
		ID:         strings.TrimSpace(record.ID),
		OwnerID:    strings.TrimSpace(record.OwnerID),
		LocationID: strings.TrimSpace(record.LocationID),
		Status:     core.WizardStatus(strings.TrimSpace(record.Status)),
		Pages:      record.Pages,
		Responses:  map[string]core.PageResponse{},
	}
	for _, response := range responses {
		if response == nil {
			continue
		}
		pageID := strings.TrimSpace(response.PageID)
		if pageID == "" {
			continue
		}
		wizard.Responses[pageID] = core.PageResponse{
			PageID:  pageID,
			Answers: response.Answers,
		}
	}
	return wizard
}

func cloneTimePointer(input *time.Time) *time.Time {
	if input == nil {
		return nil
	}
	value := input.UTC()
	return &value
}
