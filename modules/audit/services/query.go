package services

import (
	"context"

	"github.com/privsys/ropa-registry/modules/audit/domain/ports"
	"github.com/privsys/ropa-registry/modules/audit/domain/types"
	"github.com/privsys/ropa-registry/pkg/httperr"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type QueryService struct {
	store ports.EventStore
}

func NewQueryService(store ports.EventStore) *QueryService {
	return &QueryService{store: store}
}

// List returns one page of events newest-first plus the total count.
// Limits outside 1..500 are clamped rather than rejected.
func (s *QueryService) List(ctx context.Context, limit int, offset int) ([]types.Event, int, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	events, total, err := s.store.ListEvents(ctx, limit, offset)
	if err != nil {
		return nil, 0, httperr.NewPersistence(errAuditStoreFailure, err)
	}
	return events, total, nil
}

func (s *QueryService) Recent(ctx context.Context, n int) ([]types.Event, error) {
	events, _, err := s.List(ctx, n, 0)
	return events, err
}
