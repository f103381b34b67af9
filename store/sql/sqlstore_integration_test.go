package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/goliatone/go-onboarding/core"
	onboardingmigrations "github.com/goliatone/go-onboarding/migrations"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-onboarding-tests"
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:onboarding-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = onboardingmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != onboardingmigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, onboardingmigrations.WithValidationTargets(onboardingmigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	for _, table := range []string{
		"crm_connections",
		"onboarding_wizards",
		"onboarding_wizard_responses",
		"onboarding_sync_runs",
	} {
		var tableName string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &tableName); err != nil {
			t.Fatalf("query sqlite master for %s: %v", table, err)
		}
		if tableName != table {
			t.Fatalf("expected %s table, got %q", table, tableName)
		}
	}
}

func seedConnection(t *testing.T, client *persistence.Client, ownerID string, locationID string, payload string) string {
	t.Helper()
	now := time.Now().UTC()
	record := &connectionRecord{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		LocationID:   locationID,
		TokenPayload: payload,
		ScopeLevel:   string(core.ScopeLevelLocation),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := client.DB().NewInsert().Model(record).Exec(context.Background()); err != nil {
		t.Fatalf("seed connection: %v", err)
	}
	return record.ID
}

func seedWizard(t *testing.T, client *persistence.Client, wizard core.Wizard) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	record := &wizardRecord{
		ID:         wizard.ID,
		OwnerID:    wizard.OwnerID,
		LocationID: wizard.LocationID,
		Status:     string(wizard.Status),
		Pages:      wizard.Pages,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := client.DB().NewInsert().Model(record).Exec(ctx); err != nil {
		t.Fatalf("seed wizard: %v", err)
	}

	offset := time.Duration(0)
	for _, page := range wizard.Pages {
		response, ok := wizard.Responses[page.ID]
		if !ok {
			continue
		}
		responseRecord := &wizardResponseRecord{
			ID:        uuid.NewString(),
			WizardID:  wizard.ID,
			PageID:    page.ID,
			Answers:   response.Answers,
			CreatedAt: now.Add(offset),
			UpdatedAt: now.Add(offset),
		}
		offset += time.Second
		if _, err := client.DB().NewInsert().Model(responseRecord).Exec(ctx); err != nil {
			t.Fatalf("seed wizard response: %v", err)
		}
	}
}

func TestConnectionStore_GetAndUpdateToken(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.ConnectionStore()
	if store == nil {
		t.Fatalf("expected connection store from factory")
	}

	connectionID := seedConnection(t, client, "agency-1", "loc-1", "pit-original")

	connection, err := store.GetByOwnerLocation(ctx, "agency-1", "loc-1")
	if err != nil {
		t.Fatalf("get connection: %v", err)
	}
	if connection.ID != connectionID {
		t.Fatalf("expected connection %q, got %q", connectionID, connection.ID)
	}
	if connection.TokenPayload != "pit-original" {
		t.Fatalf("unexpected token payload: %q", connection.TokenPayload)
	}
	if connection.LastUsedAt != nil {
		t.Fatalf("expected unused connection, got last_used_at %v", connection.LastUsedAt)
	}

	if _, err := store.GetByOwnerLocation(ctx, "agency-1", "loc-missing"); err == nil {
		t.Fatalf("expected not-found error for unknown location")
	}

	usedAt := time.Now().UTC()
	if err := store.UpdateToken(ctx, connectionID, `{"kind":"oauth","access_token":"at-new"}`, usedAt); err != nil {
		t.Fatalf("update token: %v", err)
	}

	updated, err := store.GetByOwnerLocation(ctx, "agency-1", "loc-1")
	if err != nil {
		t.Fatalf("reload connection: %v", err)
	}
	if updated.TokenPayload != `{"kind":"oauth","access_token":"at-new"}` {
		t.Fatalf("expected updated payload, got %q", updated.TokenPayload)
	}
	if updated.LastUsedAt == nil {
		t.Fatalf("expected last_used_at recorded")
	}
}

func TestWizardStore_AssemblesTemplateAndAnswers(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.WizardStore()

	wizardID := uuid.NewString()
	seedWizard(t, client, core.Wizard{
		ID:         wizardID,
		OwnerID:    "agency-1",
		LocationID: "loc-1",
		Status:     core.WizardStatusSubmitted,
		Pages: []core.WizardPage{
			{
				ID:    "page-1",
				Title: "Basics",
				Blocks: []core.WizardBlock{
					{ID: "tags-1", Type: core.BlockTypeTag},
				},
			},
			{
				ID:    "page-2",
				Title: "Links",
				Blocks: []core.WizardBlock{
					{ID: "link-1", Type: core.BlockTypeTriggerLink, Mode: core.BlockModeCreate, NewEntity: core.BlockEntity{Name: "Booking"}},
				},
			},
		},
		Responses: map[string]core.PageResponse{
			"page-1": {
				PageID:  "page-1",
				Answers: map[string]core.BlockAnswer{"tags-1": {Value: "vip, new client"}},
			},
			"page-2": {
				PageID:  "page-2",
				Answers: map[string]core.BlockAnswer{"link-1": {Value: "https://booking.example.com"}},
			},
		},
	})

	wizard, err := store.Get(ctx, wizardID)
	if err != nil {
		t.Fatalf("get wizard: %v", err)
	}
	if len(wizard.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(wizard.Pages))
	}
	if wizard.Status != core.WizardStatusSubmitted {
		t.Fatalf("unexpected status: %q", wizard.Status)
	}
	pageOne, ok := wizard.Responses["page-1"]
	if !ok {
		t.Fatalf("expected page-1 response, got %+v", wizard.Responses)
	}
	if pageOne.Answers["tags-1"].Value != "vip, new client" {
		t.Fatalf("unexpected answer: %+v", pageOne.Answers["tags-1"])
	}

	payload := core.BuildSyncPayload(wizard)
	if len(payload.Tags) != 1 || len(payload.TriggerLinks) != 1 {
		t.Fatalf("expected the loaded wizard to project, got %+v", payload)
	}

	if err := store.UpdateStatus(ctx, wizardID, core.WizardStatusSynced); err != nil {
		t.Fatalf("update status: %v", err)
	}
	updated, err := store.Get(ctx, wizardID)
	if err != nil {
		t.Fatalf("reload wizard: %v", err)
	}
	if updated.Status != core.WizardStatusSynced {
		t.Fatalf("expected synced status, got %q", updated.Status)
	}

	if _, err := store.Get(ctx, uuid.NewString()); err == nil {
		t.Fatalf("expected not-found error for unknown wizard")
	}
}

func TestSyncRunStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.SyncRunStore()

	wizardID := uuid.NewString()
	seedWizard(t, client, core.Wizard{
		ID:         wizardID,
		OwnerID:    "agency-1",
		LocationID: "loc-1",
		Status:     core.WizardStatusSubmitted,
		Pages:      []core.WizardPage{{ID: "page-1"}},
	})

	firstStart := time.Now().UTC().Add(-time.Minute)
	first, err := store.Create(ctx, core.SyncRun{
		ID:        uuid.NewString(),
		WizardID:  wizardID,
		Status:    core.SyncRunStatusPending,
		StartedAt: firstStart,
	})
	if err != nil {
		t.Fatalf("create first run: %v", err)
	}
	if first.Status != core.SyncRunStatusPending {
		t.Fatalf("expected pending run, got %q", first.Status)
	}
	if first.FinishedAt != nil {
		t.Fatalf("expected unfinished run, got %v", first.FinishedAt)
	}

	diff := core.Diff{
		Tags: []core.DiffEntry{{BlockID: "tags-1", Name: "vip", Response: map[string]any{"id": "tag-1"}}},
	}
	if err := store.Finish(ctx, first.ID, core.SyncRunStatusSuccess, diff, ""); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	finished, err := store.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get finished run: %v", err)
	}
	if finished.Status != core.SyncRunStatusSuccess {
		t.Fatalf("expected success run, got %q", finished.Status)
	}
	if finished.FinishedAt == nil {
		t.Fatalf("expected finished_at recorded")
	}
	if len(finished.Diff.Tags) != 1 || finished.Diff.Tags[0].Name != "vip" {
		t.Fatalf("expected persisted diff, got %+v", finished.Diff)
	}

	second, err := store.Create(ctx, core.SyncRun{
		ID:        uuid.NewString(),
		WizardID:  wizardID,
		Status:    core.SyncRunStatusPending,
		StartedAt: firstStart.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("create second run: %v", err)
	}
	if err := store.Finish(ctx, second.ID, core.SyncRunStatusFailed, core.Diff{}, "crm rejected the batch"); err != nil {
		t.Fatalf("finish second run: %v", err)
	}

	latest, err := store.LatestByWizard(ctx, wizardID)
	if err != nil {
		t.Fatalf("latest by wizard: %v", err)
	}
	if latest.ID != second.ID {
		t.Fatalf("expected newest run %q, got %q", second.ID, latest.ID)
	}
	if latest.Error != "crm rejected the batch" {
		t.Fatalf("expected persisted error message, got %q", latest.Error)
	}

	if _, err := store.LatestByWizard(ctx, uuid.NewString()); err == nil {
		t.Fatalf("expected error for wizard without runs")
	}
}
