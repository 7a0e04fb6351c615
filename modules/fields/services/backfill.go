package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/privsys/ropa-registry/modules/fields/domain/ports"
	"github.com/privsys/ropa-registry/modules/fields/domain/types"
	"github.com/privsys/ropa-registry/pkg/httperr"
)

// BackfillEngine materializes the empty cell for a newly approved field
// across every existing record. Runs for the same field are serialized
// in-process; across processes the (record_id, field_id) unique constraint
// turns a duplicate insert into a skip.
type BackfillEngine struct {
	values ports.ValueStore
	audit  AuditEmitter
	locks  sync.Map
}

func NewBackfillEngine(values ports.ValueStore, audit AuditEmitter) *BackfillEngine {
	return &BackfillEngine{values: values, audit: audit}
}

func (e *BackfillEngine) Backfill(ctx context.Context, field types.ApprovedField) (types.BackfillReport, error) {
	mu := e.lockFor(field.FieldID)
	mu.Lock()
	defer mu.Unlock()

	recordIDs, err := e.values.ListRecordIDs(ctx)
	if err != nil {
		return types.BackfillReport{}, httperr.NewPersistence(errStoreFailure, err)
	}

	report := types.BackfillReport{FieldID: field.FieldID}
	for _, recordID := range recordIDs {
		created, err := e.values.EnsureValue(ctx, recordID, field.FieldID)
		if err != nil {
			report.Failures = append(report.Failures, types.BackfillFailure{
				RecordID: recordID,
				Reason:   err.Error(),
			})
			continue
		}
		if created {
			report.RecordsTouched++
		}
	}

	if err := e.audit.Emit(ctx, auditKindFieldBackfilled, auditActorSystem,
		fmt.Sprintf("Backfilled custom field %q into %d existing records", field.FieldName, report.RecordsTouched)); err != nil {
		return report, err
	}
	return report, nil
}

func (e *BackfillEngine) lockFor(fieldID string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(fieldID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
