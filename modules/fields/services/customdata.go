package services

import (
	"context"

	"github.com/privsys/ropa-registry/modules/fields/domain/ports"
	"github.com/privsys/ropa-registry/modules/fields/domain/types"
	"github.com/privsys/ropa-registry/pkg/httperr"
)

type CustomDataService struct {
	catalog ports.CatalogStore
	values  ports.ValueStore
}

func NewCustomDataService(catalog ports.CatalogStore, values ports.ValueStore) *CustomDataService {
	return &CustomDataService{catalog: catalog, values: values}
}

// GetForRecord returns every approved field grouped by category with the
// record's current value. A cell the backfill has not created yet reads as
// "" instead of erroring; the read path never depends on backfill timing.
func (s *CustomDataService) GetForRecord(ctx context.Context, recordID string) (map[types.Category]map[string]types.FieldData, error) {
	fields, err := s.catalog.ListApprovedFields(ctx)
	if err != nil {
		return nil, httperr.NewPersistence(errStoreFailure, err)
	}
	cells, err := s.values.ListValuesForRecord(ctx, recordID)
	if err != nil {
		return nil, httperr.NewPersistence(errStoreFailure, err)
	}

	out := make(map[types.Category]map[string]types.FieldData)
	for _, f := range fields {
		if out[f.Category] == nil {
			out[f.Category] = make(map[string]types.FieldData)
		}
		value := ""
		if cell, ok := cells[f.FieldID]; ok {
			value = cell.Value
		}
		out[f.Category][f.FieldName] = types.FieldData{
			FieldID:  f.FieldID,
			Value:    value,
			Kind:     f.Kind,
			Options:  f.Options,
			Required: f.Required,
		}
	}
	return out, nil
}

// UpdateForRecord upserts the given field values as one unit. Unknown field
// ids are rejected before anything is written; a store failure writes
// nothing (single transaction in the pg store).
func (s *CustomDataService) UpdateForRecord(ctx context.Context, recordID string, updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}

	for fieldID := range updates {
		_, ok, err := s.catalog.GetApprovedField(ctx, fieldID)
		if err != nil {
			return httperr.NewPersistence(errStoreFailure, err)
		}
		if !ok {
			return httperr.NewNotFound(errFieldNotFound)
		}
	}

	if err := s.values.UpsertValuesForRecord(ctx, recordID, updates); err != nil {
		return httperr.NewPersistence(errStoreFailure, err)
	}
	return nil
}
