package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	fieldports "github.com/privsys/ropa-registry/modules/fields/domain/ports"
	"github.com/privsys/ropa-registry/modules/records/domain/ports"
	"github.com/privsys/ropa-registry/modules/records/domain/types"
	"github.com/privsys/ropa-registry/pkg/authz"
	"github.com/privsys/ropa-registry/pkg/httperr"
)

const (
	errActivityNameRequired  = "ACTIVITY_NAME_REQUIRED"
	errCreatorRequired       = "CREATOR_REQUIRED"
	errRecordNotFound        = "RECORD_NOT_FOUND"
	errRecordAccessDenied    = "RECORD_ACCESS_DENIED"
	errStatusUnknown         = "RECORD_STATUS_UNKNOWN"
	errTransitionInvalid     = "RECORD_TRANSITION_INVALID"
	errRequiredFieldsMissing = "RECORD_REQUIRED_FIELDS_MISSING"
	errOfficerOnly           = "OFFICER_ONLY"
	errReviewCommentRequired = "REVIEW_COMMENT_REQUIRED"
	errStoreFailure          = "STORE_FAILURE"
)

const (
	auditKindRecordCreated       = "ROPA_CREATED"
	auditKindRecordUpdated       = "ROPA_UPDATED"
	auditKindRecordStatusChanged = "ROPA_STATUS_CHANGED"
	auditKindRecordDeleted       = "ROPA_DELETED"
)

var (
	newUUID = func() (string, error) {
		u, err := uuid.NewV7()
		if err != nil {
			return "", err
		}
		return u.String(), nil
	}
	timeNow = time.Now
)

type AuditEmitter interface {
	Emit(ctx context.Context, kind string, actor string, description string) error
}

// Caller identifies who is acting. Role comes from the upstream proxy;
// privacy officers see and manage everything, champions only their own
// records.
type Caller struct {
	Actor string
	Role  string
}

func (c Caller) officer() bool { return c.Role == authz.RolePrivacyOfficer }

type RecordService struct {
	store   ports.RecordStore
	catalog fieldports.CatalogStore
	audit   AuditEmitter
}

func NewRecordService(store ports.RecordStore, catalog fieldports.CatalogStore, audit AuditEmitter) *RecordService {
	return &RecordService{store: store, catalog: catalog, audit: audit}
}

// Create stores a new draft record and, in the same transaction, seeds one
// empty custom-field cell per currently approved field. Records created
// after a field's approval therefore never need a backfill pass.
func (s *RecordService) Create(ctx context.Context, record types.Record, caller Caller) (types.Record, error) {
	record.ActivityName = strings.TrimSpace(record.ActivityName)
	if record.ActivityName == "" {
		return types.Record{}, httperr.NewValidation(errActivityNameRequired)
	}
	if strings.TrimSpace(caller.Actor) == "" {
		return types.Record{}, httperr.NewValidation(errCreatorRequired)
	}

	fields, err := s.catalog.ListApprovedFields(ctx)
	if err != nil {
		return types.Record{}, httperr.NewPersistence(errStoreFailure, err)
	}
	seedFieldIDs := make([]string, 0, len(fields))
	for _, f := range fields {
		seedFieldIDs = append(seedFieldIDs, f.FieldID)
	}

	id, err := newUUID()
	if err != nil {
		return types.Record{}, err
	}
	now := timeNow().UTC()
	record.RecordID = id
	record.Status = types.RecordStatusDraft
	record.CreatedBy = caller.Actor
	record.CreatedAt = now
	record.UpdatedAt = now
	record.ReviewedBy = ""
	record.ReviewedAt = nil
	record.ReviewComments = ""

	if err := s.store.InsertRecord(ctx, record, seedFieldIDs); err != nil {
		return types.Record{}, httperr.NewPersistence(errStoreFailure, err)
	}
	if err := s.audit.Emit(ctx, auditKindRecordCreated, caller.Actor,
		fmt.Sprintf("Created processing record %q", record.ActivityName)); err != nil {
		return types.Record{}, err
	}
	return record, nil
}

func (s *RecordService) Get(ctx context.Context, recordID string, caller Caller) (types.Record, error) {
	record, err := s.load(ctx, recordID)
	if err != nil {
		return types.Record{}, err
	}
	if !caller.officer() && record.CreatedBy != caller.Actor {
		return types.Record{}, httperr.NewForbidden(errRecordAccessDenied)
	}
	return record, nil
}

// List applies the status filter and, for non-officers, restricts results
// to the caller's own records.
func (s *RecordService) List(ctx context.Context, status types.RecordStatus, caller Caller) ([]types.Record, error) {
	if status != "" && !status.Valid() {
		return nil, httperr.NewValidation(errStatusUnknown)
	}
	query := types.ListQuery{Status: status}
	if !caller.officer() {
		query.CreatedBy = caller.Actor
	}
	records, err := s.store.ListRecords(ctx, query)
	if err != nil {
		return nil, httperr.NewPersistence(errStoreFailure, err)
	}
	return records, nil
}

// Update replaces the record's descriptive columns. Lifecycle metadata
// (status, creator, review trail) is kept from the stored row.
func (s *RecordService) Update(ctx context.Context, recordID string, updated types.Record, caller Caller) (types.Record, error) {
	current, err := s.load(ctx, recordID)
	if err != nil {
		return types.Record{}, err
	}
	if !caller.officer() && current.CreatedBy != caller.Actor {
		return types.Record{}, httperr.NewForbidden(errRecordAccessDenied)
	}
	updated.ActivityName = strings.TrimSpace(updated.ActivityName)
	if updated.ActivityName == "" {
		return types.Record{}, httperr.NewValidation(errActivityNameRequired)
	}

	updated.RecordID = current.RecordID
	updated.Status = current.Status
	updated.CreatedBy = current.CreatedBy
	updated.CreatedAt = current.CreatedAt
	updated.ReviewedBy = current.ReviewedBy
	updated.ReviewedAt = current.ReviewedAt
	updated.ReviewComments = current.ReviewComments
	updated.UpdatedAt = timeNow().UTC()

	if err := s.store.UpdateRecord(ctx, updated); err != nil {
		return types.Record{}, httperr.NewPersistence(errStoreFailure, err)
	}
	if err := s.audit.Emit(ctx, auditKindRecordUpdated, caller.Actor,
		fmt.Sprintf("Updated processing record %q", updated.ActivityName)); err != nil {
		return types.Record{}, err
	}
	return updated, nil
}

// UpdateStatus moves a record along Draft -> Submitted -> Under Review ->
// Approved | Rejected. Submission requires the mandatory columns; review
// transitions are officer-only and record the reviewer, with a comment
// mandatory on rejection.
func (s *RecordService) UpdateStatus(ctx context.Context, recordID string, next types.RecordStatus, comment string, caller Caller) (types.Record, error) {
	if !next.Valid() {
		return types.Record{}, httperr.NewValidation(errStatusUnknown)
	}

	record, err := s.load(ctx, recordID)
	if err != nil {
		return types.Record{}, err
	}
	if !caller.officer() && record.CreatedBy != caller.Actor {
		return types.Record{}, httperr.NewForbidden(errRecordAccessDenied)
	}
	if !record.Status.CanTransitionTo(next) {
		return types.Record{}, httperr.NewInvalidState(errTransitionInvalid)
	}

	comment = strings.TrimSpace(comment)
	switch next {
	case types.RecordStatusSubmitted:
		if missing := missingRequiredColumns(record); len(missing) > 0 {
			return types.Record{}, httperr.NewValidation(errRequiredFieldsMissing)
		}
	case types.RecordStatusUnderReview, types.RecordStatusApproved, types.RecordStatusRejected:
		if !caller.officer() {
			return types.Record{}, httperr.NewForbidden(errOfficerOnly)
		}
	}

	now := timeNow().UTC()
	previous := record.Status
	record.Status = next
	record.UpdatedAt = now
	if next == types.RecordStatusApproved || next == types.RecordStatusRejected {
		if next == types.RecordStatusRejected && comment == "" {
			return types.Record{}, httperr.NewValidation(errReviewCommentRequired)
		}
		record.ReviewedBy = caller.Actor
		record.ReviewedAt = &now
		record.ReviewComments = comment
	}

	if err := s.store.SetRecordStatus(ctx, record); err != nil {
		return types.Record{}, httperr.NewPersistence(errStoreFailure, err)
	}
	if err := s.audit.Emit(ctx, auditKindRecordStatusChanged, caller.Actor,
		fmt.Sprintf("Changed record %q status from %q to %q", record.ActivityName, previous, next)); err != nil {
		return types.Record{}, err
	}
	return record, nil
}

func (s *RecordService) Delete(ctx context.Context, recordID string, caller Caller) error {
	if !caller.officer() {
		return httperr.NewForbidden(errOfficerOnly)
	}
	record, err := s.load(ctx, recordID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRecord(ctx, recordID); err != nil {
		return httperr.NewPersistence(errStoreFailure, err)
	}
	if err := s.audit.Emit(ctx, auditKindRecordDeleted, caller.Actor,
		fmt.Sprintf("Deleted processing record %q", record.ActivityName)); err != nil {
		return err
	}
	return nil
}

func (s *RecordService) load(ctx context.Context, recordID string) (types.Record, error) {
	record, ok, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		return types.Record{}, httperr.NewPersistence(errStoreFailure, err)
	}
	if !ok {
		return types.Record{}, httperr.NewNotFound(errRecordNotFound)
	}
	return record, nil
}

var requiredColumns = []string{
	"processing_activity_name",
	"controller_name",
	"processing_purpose",
	"legal_basis",
	"data_categories",
	"data_subjects",
	"retention_period",
}

func missingRequiredColumns(record types.Record) []string {
	m := recordColumns(record)
	missing := make([]string, 0)
	for _, col := range requiredColumns {
		if strings.TrimSpace(m[col]) == "" {
			missing = append(missing, col)
		}
	}
	return missing
}
