package onboarding

import "github.com/goliatone/go-onboarding/core"

type Config = core.Config

type OAuthConfig = core.OAuthConfig
type SyncConfig = core.SyncConfig
type CRMConfig = core.CRMConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type Credential = core.Credential
type Wizard = core.Wizard
type SyncRun = core.SyncRun
type SyncPayload = core.SyncPayload
type Diff = core.Diff
type DiffEntry = core.DiffEntry
type Connection = core.Connection
type TokenGrant = core.TokenGrant
type TokenResolution = core.TokenResolution

type ConnectionStore = core.ConnectionStore
type WizardStore = core.WizardStore
type SyncRunStore = core.SyncRunStore
type FileStore = core.FileStore
type CRMClient = core.CRMClient
type ClientFactory = core.ClientFactory
type TokenExchanger = core.TokenExchanger

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithErrorFactory    = core.WithErrorFactory
	WithErrorMapper     = core.WithErrorMapper
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithConnectionStore = core.WithConnectionStore
	WithWizardStore     = core.WithWizardStore
	WithSyncRunStore    = core.WithSyncRunStore
	WithFileStore       = core.WithFileStore
	WithClientFactory   = core.WithClientFactory
	WithTokenExchanger  = core.WithTokenExchanger
	WithClock           = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
