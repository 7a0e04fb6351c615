package services

import (
	"context"
	"time"

	"github.com/privsys/ropa-registry/modules/fields/domain/ports"
	"github.com/privsys/ropa-registry/modules/fields/domain/types"
	"github.com/privsys/ropa-registry/pkg/httperr"
)

// FromProposal projects a proposal into its catalog row. Pure construction;
// the proposal is terminal by the time this runs, so the copy can never
// drift from its source.
func FromProposal(p types.FieldProposal, fieldID string, approvedAt time.Time) types.ApprovedField {
	options := make([]string, len(p.Options))
	copy(options, p.Options)
	if len(options) == 0 {
		options = nil
	}
	return types.ApprovedField{
		FieldID:    fieldID,
		ProposalID: p.ProposalID,
		FieldName:  p.FieldName,
		Category:   p.Category,
		Kind:       p.Kind,
		Options:    options,
		Required:   p.Required,
		ApprovedAt: approvedAt,
	}
}

type CatalogService struct {
	store ports.CatalogStore
}

func NewCatalogService(store ports.CatalogStore) *CatalogService {
	return &CatalogService{store: store}
}

// ListByCategory returns every category, including empty ones, so renderers
// get a stable set of groups. Within a category fields keep approval order.
func (s *CatalogService) ListByCategory(ctx context.Context) (map[types.Category][]types.ApprovedField, error) {
	fields, err := s.store.ListApprovedFields(ctx)
	if err != nil {
		return nil, httperr.NewPersistence(errStoreFailure, err)
	}

	out := make(map[types.Category][]types.ApprovedField, len(types.Categories()))
	for _, c := range types.Categories() {
		out[c] = []types.ApprovedField{}
	}
	for _, f := range fields {
		out[f.Category] = append(out[f.Category], f)
	}
	return out, nil
}

func (s *CatalogService) Get(ctx context.Context, fieldID string) (types.ApprovedField, error) {
	field, ok, err := s.store.GetApprovedField(ctx, fieldID)
	if err != nil {
		return types.ApprovedField{}, httperr.NewPersistence(errStoreFailure, err)
	}
	if !ok {
		return types.ApprovedField{}, httperr.NewNotFound(errFieldNotFound)
	}
	return field, nil
}
