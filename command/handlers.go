package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
)

type MutatingService interface {
	EnqueueSync(wizardID string) bool
	SyncWizard(ctx context.Context, wizardID string) error
}

// EnqueueSyncResult reports whether the request actually queued a new
// run; false means it coalesced into one already pending or running.
type EnqueueSyncResult struct {
	WizardID string
	Queued   bool
}

type EnqueueSyncCommand struct {
	service MutatingService
}

func NewEnqueueSyncCommand(service MutatingService) *EnqueueSyncCommand {
	return &EnqueueSyncCommand{service: service}
}

func (c *EnqueueSyncCommand) Execute(ctx context.Context, msg EnqueueSyncMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sync service is required")
	}
	if err := msg.Validate(); err != nil {
		return commandWrapValidation(err, "command: enqueue sync")
	}
	queued := c.service.EnqueueSync(msg.WizardID)
	storeResult(ctx, EnqueueSyncResult{WizardID: msg.WizardID, Queued: queued})
	return nil
}

type SyncWizardCommand struct {
	service MutatingService
}

func NewSyncWizardCommand(service MutatingService) *SyncWizardCommand {
	return &SyncWizardCommand{service: service}
}

func (c *SyncWizardCommand) Execute(ctx context.Context, msg SyncWizardMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sync service is required")
	}
	if err := msg.Validate(); err != nil {
		return commandWrapValidation(err, "command: sync wizard")
	}
	return c.service.SyncWizard(ctx, msg.WizardID)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
