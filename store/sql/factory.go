package sqlstore

import (
	"fmt"

	"github.com/goliatone/go-onboarding/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// StoreProvider exposes the built stores to service wiring.
type StoreProvider interface {
	ConnectionStore() core.ConnectionStore
	WizardStore() core.WizardStore
	SyncRunStore() core.SyncRunStore
}

type RepositoryFactory struct {
	db *bun.DB

	connectionStore *ConnectionStore
	wizardStore     *WizardStore
	syncRunStore    *SyncRunStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.connectionStore != nil && f.wizardStore != nil && f.syncRunStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) ConnectionStore() core.ConnectionStore {
	if f == nil {
		return nil
	}
	return f.connectionStore
}

func (f *RepositoryFactory) WizardStore() core.WizardStore {
	if f == nil {
		return nil
	}
	return f.wizardStore
}

func (f *RepositoryFactory) SyncRunStore() core.SyncRunStore {
	if f == nil {
		return nil
	}
	return f.syncRunStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	connectionRepo := repository.NewRepository[*connectionRecord](f.db, connectionHandlers())
	if validator, ok := connectionRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid connection repository wiring: %w", err)
		}
	}
	wizardRepo := repository.NewRepository[*wizardRecord](f.db, wizardHandlers())
	if validator, ok := wizardRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid wizard repository wiring: %w", err)
		}
	}
	responseRepo := repository.NewRepository[*wizardResponseRecord](f.db, wizardResponseHandlers())
	if validator, ok := responseRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid wizard response repository wiring: %w", err)
		}
	}
	syncRunRepo := repository.NewRepository[*syncRunRecord](f.db, syncRunHandlers())
	if validator, ok := syncRunRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid sync run repository wiring: %w", err)
		}
	}

	f.connectionStore = &ConnectionStore{db: f.db, repo: connectionRepo}
	f.wizardStore = &WizardStore{db: f.db, wizards: wizardRepo, responses: responseRepo}
	f.syncRunStore = &SyncRunStore{db: f.db, repo: syncRunRepo}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}

var _ StoreProvider = (*RepositoryFactory)(nil)
