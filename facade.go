package onboarding

import (
	"fmt"

	onboardingcommand "github.com/goliatone/go-onboarding/command"
	"github.com/goliatone/go-onboarding/core"
	onboardingquery "github.com/goliatone/go-onboarding/query"
)

type Commands struct {
	EnqueueSync *onboardingcommand.EnqueueSyncCommand
	SyncWizard  *onboardingcommand.SyncWizardCommand
}

type Queries struct {
	GetSyncRun    *onboardingquery.GetSyncRunQuery
	LatestSyncRun *onboardingquery.LatestSyncRunQuery
	GetWizard     *onboardingquery.GetWizardQuery
}

// Facade bundles the command and query handlers over one service so
// callers can register them on a dispatcher in one pass.
type Facade struct {
	service  *core.Service
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	syncRunReader onboardingquery.SyncRunReader
	wizardReader  onboardingquery.WizardReader
}

func WithSyncRunReader(reader onboardingquery.SyncRunReader) FacadeOption {
	return func(options *facadeOptions) {
		options.syncRunReader = reader
	}
}

func WithWizardReader(reader onboardingquery.WizardReader) FacadeOption {
	return func(options *facadeOptions) {
		options.wizardReader = reader
	}
}

func NewFacade(service *core.Service, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("onboarding: service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	deps := service.Dependencies()
	syncRunReader := cfg.syncRunReader
	if syncRunReader == nil {
		syncRunReader = deps.SyncRunStore
	}
	wizardReader := cfg.wizardReader
	if wizardReader == nil {
		wizardReader = deps.WizardStore
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		EnqueueSync: onboardingcommand.NewEnqueueSyncCommand(service),
		SyncWizard:  onboardingcommand.NewSyncWizardCommand(service),
	}
	facade.queries = Queries{
		GetSyncRun:    onboardingquery.NewGetSyncRunQuery(syncRunReader),
		LatestSyncRun: onboardingquery.NewLatestSyncRunQuery(syncRunReader),
		GetWizard:     onboardingquery.NewGetWizardQuery(wizardReader),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() *core.Service {
	if f == nil {
		return nil
	}
	return f.service
}
