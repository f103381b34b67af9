package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type ConnectionStore struct {
	db   *bun.DB
	repo repository.Repository[*connectionRecord]
}

func (s *ConnectionStore) GetByOwnerLocation(ctx context.Context, ownerID string, locationID string) (core.Connection, error) {
	if s == nil || s.repo == nil {
		return core.Connection{}, fmt.Errorf("sqlstore: connection store is not configured")
	}
	ownerID = strings.TrimSpace(ownerID)
	locationID = strings.TrimSpace(locationID)
	if ownerID == "" || locationID == "" {
		return core.Connection{}, fmt.Errorf("sqlstore: owner id and location id are required")
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("owner_id", "=", ownerID),
		repository.SelectBy("location_id", "=", locationID),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.deleted_at IS NULL")
		}),
		repository.OrderBy("created_at DESC"),
	)
	if err != nil {
		return core.Connection{}, err
	}
	if len(records) == 0 {
		return core.Connection{}, fmt.Errorf(
			"sqlstore: connection for owner %q location %q not found", ownerID, locationID)
	}
	return records[0].toDomain(), nil
}

func (s *ConnectionStore) UpdateToken(ctx context.Context, connectionID string, tokenPayload string, lastUsedAt time.Time) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: connection store is not configured")
	}
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return fmt.Errorf("sqlstore: connection id is required")
	}
	if strings.TrimSpace(tokenPayload) == "" {
		return fmt.Errorf("sqlstore: token payload is required")
	}

	current, err := s.repo.GetByID(ctx, connectionID)
	if err != nil {
		return err
	}
	current.TokenPayload = tokenPayload
	if !lastUsedAt.IsZero() {
		used := lastUsedAt.UTC()
		current.LastUsedAt = &used
	}
	current.UpdatedAt = time.Now().UTC()

	_, err = s.repo.Update(ctx, current, repository.UpdateByID(connectionID))
	return err
}

var _ core.ConnectionStore = (*ConnectionStore)(nil)
