package ports

import (
	"context"

	"github.com/privsys/ropa-registry/modules/fields/domain/types"
)

type ProposalStore interface {
	InsertProposal(ctx context.Context, p types.FieldProposal) error
	GetProposal(ctx context.Context, proposalID string) (types.FieldProposal, bool, error)
	ListPendingProposals(ctx context.Context) ([]types.FieldProposal, error)
	// SetProposalPending moves a proposal to Pending Review (from Draft or
	// Rejected); the status check happens in the service, the store only
	// persists.
	SetProposalPending(ctx context.Context, p types.FieldProposal) error
	// ApproveProposal persists the terminal Approved proposal and inserts
	// its ApprovedField in one transaction. Once it returns nil the
	// approval is committed regardless of what backfill does afterwards.
	ApproveProposal(ctx context.Context, p types.FieldProposal, field types.ApprovedField) error
	RejectProposal(ctx context.Context, p types.FieldProposal) error
}

type CatalogStore interface {
	// ListApprovedFields returns the whole catalog ordered by category,
	// then approval time (earliest first).
	ListApprovedFields(ctx context.Context) ([]types.ApprovedField, error)
	GetApprovedField(ctx context.Context, fieldID string) (types.ApprovedField, bool, error)
	HasApprovedFieldName(ctx context.Context, category types.Category, fieldName string) (bool, error)
}

type ValueStore interface {
	ListRecordIDs(ctx context.Context) ([]string, error)
	// EnsureValue creates the empty cell for (recordID, fieldID) unless one
	// already exists, and reports whether a row was created. Duplicate
	// inserts racing across processes resolve via the store's unique
	// constraint and report created=false.
	EnsureValue(ctx context.Context, recordID string, fieldID string) (created bool, err error)
	ListValuesForRecord(ctx context.Context, recordID string) (map[string]types.FieldValue, error)
	// UpsertValuesForRecord writes every entry in one transaction;
	// on error nothing is written.
	UpsertValuesForRecord(ctx context.Context, recordID string, values map[string]string) error
}
