package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service orchestrates wizard synchronization: queueing, token
// resolution with opportunistic refresh, payload projection, retried
// execution against the CRM, and the persisted audit trail.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	connectionStore ConnectionStore
	wizardStore     WizardStore
	syncRunStore    SyncRunStore
	fileStore       FileStore
	clientFactory   ClientFactory
	codec           CredentialCodec
	refresher       *Refresher
	executor        *SyncExecutor
	recorder        *RunRecorder
	queue           *SyncQueue
	retry           RetryRunner
	now             func() time.Time
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	ErrorFactory    ErrorFactory
	ErrorMapper     ErrorMapper
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	ConnectionStore ConnectionStore
	WizardStore     WizardStore
	SyncRunStore    SyncRunStore
	FileStore       FileStore
	ClientFactory   ClientFactory
	TokenExchanger  TokenExchanger
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("onboarding", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("onboarding"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time {
			return time.Now().UTC()
		}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	service := &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		connectionStore: builder.connectionStore,
		wizardStore:     builder.wizardStore,
		syncRunStore:    builder.syncRunStore,
		fileStore:       builder.fileStore,
		clientFactory:   builder.clientFactory,
		codec:           NewCredentialCodec(logger),
		executor:        NewSyncExecutor(builder.fileStore, logger),
		retry:           RetryRunner{},
		now:             builder.now,
	}
	if builder.tokenExchanger != nil {
		service.refresher = NewRefresher(builder.tokenExchanger, finalConfig.OAuth, logger)
	}
	service.recorder = NewRunRecorder(builder.syncRunStore, builder.wizardStore, logger)
	service.queue = NewSyncQueue(service.SyncWizard, logger)
	return service, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	deps := ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		ErrorFactory:    s.errorFactory,
		ErrorMapper:     s.errorMapper,
		ConfigProvider:  s.configProvider,
		OptionsResolver: s.optionsResolver,
		ConnectionStore: s.connectionStore,
		WizardStore:     s.wizardStore,
		SyncRunStore:    s.syncRunStore,
		FileStore:       s.fileStore,
		ClientFactory:   s.clientFactory,
	}
	if s.refresher != nil {
		deps.TokenExchanger = s.refresher.exchanger
	}
	return deps
}

// EnqueueSync schedules a wizard synchronization on the single-worker
// queue. It reports whether a new run was queued; false means the
// request coalesced into one already pending or running.
func (s *Service) EnqueueSync(wizardID string) bool {
	if s == nil || s.queue == nil {
		return false
	}
	return s.queue.Enqueue(wizardID)
}

// WaitForQueue blocks until every queued synchronization has drained.
func (s *Service) WaitForQueue() {
	if s == nil || s.queue == nil {
		return
	}
	s.queue.Wait()
}

// TokenResolution is the outcome of resolving a connection's credential
// for one run. Refresh is opportunistic and fail-open: a failed refresh
// is reported here but the stale credential still flows to the CRM
// client, whose requests surface the real authorization error.
type TokenResolution struct {
	Connection       Connection
	Credential       Credential
	RefreshAttempted bool
	Refreshed        bool
	RefreshErr       error
}

// SyncWizard runs the full synchronization workflow for one wizard and
// records the result. It is the queue's runner; callers wanting
// serialization should go through EnqueueSync instead.
func (s *Service) SyncWizard(ctx context.Context, wizardID string) error {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	wizardID = strings.TrimSpace(wizardID)
	if wizardID == "" {
		return s.mapError(fmt.Errorf("core: wizard id is required"))
	}
	if s.wizardStore == nil || s.connectionStore == nil || s.clientFactory == nil {
		return s.mapError(fmt.Errorf("core: wizard store, connection store and client factory are required"))
	}

	run, err := s.recorder.Start(ctx, wizardID)
	if err != nil {
		return s.mapError(err)
	}

	diff, err := s.executeSync(ctx, wizardID)
	if finishErr := s.recorder.Finish(ctx, run, diff, err); finishErr != nil {
		return s.mapError(finishErr)
	}
	return nil
}

// executeSync is the body of one run: load, resolve, project, execute
// with retries. The returned diff reflects the final attempt even on
// failure so the audit row shows how far the batch got.
func (s *Service) executeSync(ctx context.Context, wizardID string) (Diff, error) {
	diff := emptyDiff()

	wizard, err := s.wizardStore.Get(ctx, wizardID)
	if err != nil {
		return diff, s.mapError(err)
	}

	resolution, err := s.resolveToken(ctx, wizard)
	if err != nil {
		return diff, err
	}
	if resolution.Credential.BearerToken() == "" {
		return diff, s.mapError(fmt.Errorf("core: connection %q has no usable access token", resolution.Connection.ID))
	}

	client, err := s.clientFactory.Build(resolution.Credential)
	if err != nil {
		return diff, s.mapError(err)
	}

	payload := BuildSyncPayload(wizard)
	if payload.IsEmpty() {
		s.logger.Info("wizard has no sync operations", "wizard_id", wizard.ID)
		return diff, nil
	}

	err = s.retry.Run(ctx, func(attempt int) error {
		if attempt > 0 {
			s.logger.Warn("retrying wizard sync",
				"wizard_id", wizard.ID,
				"attempt", attempt+1,
				"max_attempts", s.config.Sync.Attempts())
		}
		attemptDiff, execErr := s.executor.Execute(ctx, client, wizard.LocationID, payload)
		diff = attemptDiff
		return execErr
	}, s.config.Sync.Attempts(), s.config.Sync.BaseDelay())
	if err != nil {
		return diff, s.mapError(err)
	}
	return diff, nil
}

// resolveToken loads the wizard's connection, decodes its credential
// and refreshes opportunistically when the access token is missing or
// inside the expiry buffer. A successful refresh is persisted back to
// the connection before any CRM call; a failed refresh logs and fails
// open with the stale credential.
func (s *Service) resolveToken(ctx context.Context, wizard Wizard) (TokenResolution, error) {
	connection, err := s.connectionStore.GetByOwnerLocation(ctx, wizard.OwnerID, wizard.LocationID)
	if err != nil {
		return TokenResolution{}, s.mapError(err)
	}

	resolution := TokenResolution{
		Connection: connection,
		Credential: s.codec.Decode(connection.TokenPayload),
	}

	state := ResolveCredentialTokenState(s.currentTime(), resolution.Credential, s.config.OAuth.RefreshBuffer())
	if !ShouldRefreshCredential(state) {
		return resolution, nil
	}
	if s.refresher == nil {
		s.logger.Warn("credential needs refresh but no token exchanger is configured",
			"connection_id", connection.ID)
		return resolution, nil
	}

	resolution.RefreshAttempted = true
	refreshed, refreshErr := s.refresher.Refresh(ctx, resolution.Credential)
	if refreshErr != nil {
		resolution.RefreshErr = refreshErr
		s.logger.Warn("token refresh failed, continuing with stored credential",
			"connection_id", connection.ID, "error", refreshErr)
		return resolution, nil
	}

	resolution.Refreshed = true
	resolution.Credential = refreshed
	if encoded := s.codec.Encode(refreshed); encoded != "" {
		if updateErr := s.connectionStore.UpdateToken(ctx, connection.ID, encoded, s.currentTime()); updateErr != nil {
			s.logger.Warn("failed to persist refreshed credential",
				"connection_id", connection.ID, "error", updateErr)
		}
	}
	return resolution, nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) currentTime() time.Time {
	if s != nil && s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func emptyDiff() Diff {
	return Diff{
		Fields:       []DiffEntry{},
		Values:       []DiffEntry{},
		TriggerLinks: []DiffEntry{},
		Tags:         []DiffEntry{},
		Media:        []DiffEntry{},
	}
}
