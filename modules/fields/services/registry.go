package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/privsys/ropa-registry/modules/fields/domain/ports"
	"github.com/privsys/ropa-registry/modules/fields/domain/types"
	"github.com/privsys/ropa-registry/pkg/httperr"
)

const (
	errCategoryUnknown       = "CATEGORY_UNKNOWN"
	errFieldNameRequired     = "FIELD_NAME_REQUIRED"
	errFieldKindUnknown      = "FIELD_KIND_UNKNOWN"
	errSelectOptionsRequired = "SELECT_OPTIONS_REQUIRED"
	errSelectOptionBlank     = "SELECT_OPTION_BLANK"
	errFieldNameTaken        = "FIELD_NAME_TAKEN"
	errProposerRequired      = "PROPOSER_REQUIRED"
	errProposalNotFound      = "PROPOSAL_NOT_FOUND"
	errProposerMismatch      = "PROPOSER_MISMATCH"
	errProposalApproved      = "PROPOSAL_ALREADY_APPROVED"
	errProposalNotPending    = "PROPOSAL_NOT_PENDING"
	errReviewCommentRequired = "REVIEW_COMMENT_REQUIRED"
	errFieldNotFound         = "FIELD_NOT_FOUND"
	errStoreFailure          = "STORE_FAILURE"
)

const (
	auditKindFieldProposed   = "FIELD_PROPOSED"
	auditKindFieldSubmitted  = "FIELD_SUBMITTED_FOR_REVIEW"
	auditKindFieldApproved   = "FIELD_APPROVED"
	auditKindFieldRejected   = "FIELD_REJECTED"
	auditKindFieldBackfilled = "FIELD_BACKFILLED"
	auditActorSystem         = "system"
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

// AuditEmitter is the registry's view of the audit trail. In best-effort
// mode implementations return nil on emit failure; in strict mode the
// error propagates and fails the triggering operation.
type AuditEmitter interface {
	Emit(ctx context.Context, kind string, actor string, description string) error
}

type SubmitFieldRequest struct {
	Category  types.Category
	FieldName string
	Kind      types.FieldKind
	Options   []string
	Required  bool
	Proposer  string
}

type DecideFieldRequest struct {
	ProposalID string
	Reviewer   string
	Approve    bool
	Comment    string
}

// DecisionResult carries the decided proposal plus, on approval, the new
// catalog field and the backfill outcome. A failed or partial backfill is
// reported here without retracting the approval itself.
type DecisionResult struct {
	Proposal      types.FieldProposal   `json:"proposal"`
	Field         *types.ApprovedField  `json:"field,omitempty"`
	Backfill      *types.BackfillReport `json:"backfill,omitempty"`
	BackfillError string                `json:"backfill_error,omitempty"`
}

type RegistryService struct {
	proposals ports.ProposalStore
	catalog   ports.CatalogStore
	backfill  *BackfillEngine
	audit     AuditEmitter
}

func NewRegistryService(proposals ports.ProposalStore, catalog ports.CatalogStore, backfill *BackfillEngine, audit AuditEmitter) *RegistryService {
	return &RegistryService{proposals: proposals, catalog: catalog, backfill: backfill, audit: audit}
}

func (s *RegistryService) Submit(ctx context.Context, req SubmitFieldRequest) (types.FieldProposal, error) {
	name := strings.TrimSpace(req.FieldName)
	proposer := strings.TrimSpace(req.Proposer)

	if !req.Category.Valid() {
		return types.FieldProposal{}, httperr.NewValidation(errCategoryUnknown)
	}
	if name == "" {
		return types.FieldProposal{}, httperr.NewValidation(errFieldNameRequired)
	}
	if !req.Kind.Valid() {
		return types.FieldProposal{}, httperr.NewValidation(errFieldKindUnknown)
	}
	if proposer == "" {
		return types.FieldProposal{}, httperr.NewValidation(errProposerRequired)
	}

	var options []string
	if req.Kind == types.FieldKindSingleSelect {
		if len(req.Options) == 0 {
			return types.FieldProposal{}, httperr.NewValidation(errSelectOptionsRequired)
		}
		options = make([]string, 0, len(req.Options))
		for _, opt := range req.Options {
			if strings.TrimSpace(opt) == "" {
				return types.FieldProposal{}, httperr.NewValidation(errSelectOptionBlank)
			}
			options = append(options, opt)
		}
	}

	taken, err := s.catalog.HasApprovedFieldName(ctx, req.Category, name)
	if err != nil {
		return types.FieldProposal{}, httperr.NewPersistence(errStoreFailure, err)
	}
	if taken {
		return types.FieldProposal{}, httperr.NewValidation(errFieldNameTaken)
	}

	id, err := newUUID()
	if err != nil {
		return types.FieldProposal{}, err
	}
	now := timeNow().UTC()
	proposal := types.FieldProposal{
		ProposalID: id,
		Category:   req.Category,
		FieldName:  name,
		Kind:       req.Kind,
		Options:    options,
		Required:   req.Required,
		Status:     types.ProposalStatusDraft,
		Proposer:   proposer,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.proposals.InsertProposal(ctx, proposal); err != nil {
		return types.FieldProposal{}, httperr.NewPersistence(errStoreFailure, err)
	}

	if err := s.audit.Emit(ctx, auditKindFieldProposed, proposer,
		fmt.Sprintf("Proposed custom field %q in category %q", name, req.Category)); err != nil {
		return types.FieldProposal{}, err
	}
	return proposal, nil
}

func (s *RegistryService) SubmitForReview(ctx context.Context, proposalID string, submitter string) (types.FieldProposal, error) {
	proposal, ok, err := s.proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return types.FieldProposal{}, httperr.NewPersistence(errStoreFailure, err)
	}
	if !ok {
		return types.FieldProposal{}, httperr.NewNotFound(errProposalNotFound)
	}
	if proposal.Proposer != strings.TrimSpace(submitter) {
		return types.FieldProposal{}, httperr.NewForbidden(errProposerMismatch)
	}

	switch proposal.Status {
	case types.ProposalStatusPendingReview:
		// Already queued; treat as success without a second audit entry.
		return proposal, nil
	case types.ProposalStatusApproved:
		return types.FieldProposal{}, httperr.NewInvalidState(errProposalApproved)
	}

	proposal.Status = types.ProposalStatusPendingReview
	proposal.UpdatedAt = timeNow().UTC()
	if err := s.proposals.SetProposalPending(ctx, proposal); err != nil {
		return types.FieldProposal{}, httperr.NewPersistence(errStoreFailure, err)
	}

	if err := s.audit.Emit(ctx, auditKindFieldSubmitted, submitter,
		fmt.Sprintf("Submitted custom field %q for review", proposal.FieldName)); err != nil {
		return types.FieldProposal{}, err
	}
	return proposal, nil
}

func (s *RegistryService) ListPending(ctx context.Context) ([]types.FieldProposal, error) {
	pending, err := s.proposals.ListPendingProposals(ctx)
	if err != nil {
		return nil, httperr.NewPersistence(errStoreFailure, err)
	}
	return pending, nil
}

func (s *RegistryService) Decide(ctx context.Context, req DecideFieldRequest) (DecisionResult, error) {
	proposal, ok, err := s.proposals.GetProposal(ctx, req.ProposalID)
	if err != nil {
		return DecisionResult{}, httperr.NewPersistence(errStoreFailure, err)
	}
	if !ok {
		return DecisionResult{}, httperr.NewNotFound(errProposalNotFound)
	}
	if proposal.Status != types.ProposalStatusPendingReview {
		return DecisionResult{}, httperr.NewInvalidState(errProposalNotPending)
	}

	now := timeNow().UTC()
	comment := strings.TrimSpace(req.Comment)

	if !req.Approve {
		if comment == "" {
			return DecisionResult{}, httperr.NewValidation(errReviewCommentRequired)
		}
		proposal.Status = types.ProposalStatusRejected
		proposal.Reviewer = req.Reviewer
		proposal.ReviewedAt = &now
		proposal.ReviewComment = comment
		proposal.UpdatedAt = now
		if err := s.proposals.RejectProposal(ctx, proposal); err != nil {
			return DecisionResult{}, httperr.NewPersistence(errStoreFailure, err)
		}
		if err := s.audit.Emit(ctx, auditKindFieldRejected, req.Reviewer,
			fmt.Sprintf("Rejected custom field %q in category %q - Reason: %s", proposal.FieldName, proposal.Category, comment)); err != nil {
			return DecisionResult{}, err
		}
		return DecisionResult{Proposal: proposal}, nil
	}

	fieldID, err := newUUID()
	if err != nil {
		return DecisionResult{}, err
	}
	proposal.Status = types.ProposalStatusApproved
	proposal.Reviewer = req.Reviewer
	proposal.ReviewedAt = &now
	proposal.ReviewComment = comment
	proposal.UpdatedAt = now
	field := FromProposal(proposal, fieldID, now)

	// One transaction: after this the approval is committed. Backfill
	// failures below never roll it back; the engine is re-runnable.
	if err := s.proposals.ApproveProposal(ctx, proposal, field); err != nil {
		return DecisionResult{}, httperr.NewPersistence(errStoreFailure, err)
	}
	if err := s.audit.Emit(ctx, auditKindFieldApproved, req.Reviewer,
		fmt.Sprintf("Approved custom field %q in category %q", proposal.FieldName, proposal.Category)); err != nil {
		return DecisionResult{}, err
	}

	result := DecisionResult{Proposal: proposal, Field: &field}
	report, err := s.backfill.Backfill(ctx, field)
	if err != nil {
		result.BackfillError = err.Error()
		return result, nil
	}
	result.Backfill = &report
	return result, nil
}
