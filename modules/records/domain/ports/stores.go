package ports

import (
	"context"

	"github.com/privsys/ropa-registry/modules/records/domain/types"
)

type RecordStore interface {
	// InsertRecord writes the record and seeds one empty custom-field cell
	// per given field id in the same transaction.
	InsertRecord(ctx context.Context, record types.Record, seedFieldIDs []string) error
	GetRecord(ctx context.Context, recordID string) (types.Record, bool, error)
	ListRecords(ctx context.Context, query types.ListQuery) ([]types.Record, error)
	UpdateRecord(ctx context.Context, record types.Record) error
	SetRecordStatus(ctx context.Context, record types.Record) error
	DeleteRecord(ctx context.Context, recordID string) error
}
