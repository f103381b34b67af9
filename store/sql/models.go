package sqlstore

import (
	"time"

	"github.com/goliatone/go-onboarding/core"
	"github.com/uptrace/bun"
)

type connectionRecord struct {
	bun.BaseModel `bun:"table:crm_connections,alias:cc"`

	ID           string     `bun:"id,pk"`
	OwnerID      string     `bun:"owner_id,notnull"`
	LocationID   string     `bun:"location_id,notnull"`
	TokenPayload string     `bun:"token_payload,notnull"`
	ScopeLevel   string     `bun:"scope_level,notnull"`
	LastUsedAt   *time.Time `bun:"last_used_at,nullzero"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt    *time.Time `bun:"deleted_at,soft_delete"`
}

type wizardRecord struct {
	bun.BaseModel `bun:"table:onboarding_wizards,alias:ow"`

	ID         string            `bun:"id,pk"`
	OwnerID    string            `bun:"owner_id,notnull"`
	LocationID string            `bun:"location_id,notnull"`
	Status     string            `bun:"status,notnull"`
	Pages      []core.WizardPage `bun:"pages,type:jsonb,notnull"`
	CreatedAt  time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type wizardResponseRecord struct {
	bun.BaseModel `bun:"table:onboarding_wizard_responses,alias:owr"`

	ID        string                      `bun:"id,pk"`
	WizardID  string                      `bun:"wizard_id,notnull"`
	PageID    string                      `bun:"page_id,notnull"`
	Answers   map[string]core.BlockAnswer `bun:"answers,type:jsonb,notnull"`
	CreatedAt time.Time                   `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time                   `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type syncRunRecord struct {
	bun.BaseModel `bun:"table:onboarding_sync_runs,alias:osr"`

	ID         string     `bun:"id,pk"`
	WizardID   string     `bun:"wizard_id,notnull"`
	Status     string     `bun:"status,notnull"`
	StartedAt  time.Time  `bun:"started_at,notnull"`
	FinishedAt *time.Time `bun:"finished_at,nullzero"`
	Diff       core.Diff  `bun:"diff,type:jsonb,notnull"`
	Error      string     `bun:"error,notnull,default:''"`
	CreatedAt  time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
