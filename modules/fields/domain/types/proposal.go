package types

import "time"

type ProposalStatus string

const (
	ProposalStatusDraft         ProposalStatus = "Draft"
	ProposalStatusPendingReview ProposalStatus = "Pending Review"
	ProposalStatusApproved      ProposalStatus = "Approved"
	ProposalStatusRejected      ProposalStatus = "Rejected"
)

// Terminal reports whether the status is a lifecycle sink. Approved and
// Rejected proposals are never mutated again; Rejected may only be
// re-submitted for review, which is a status change, not an edit.
func (s ProposalStatus) Terminal() bool {
	return s == ProposalStatusApproved || s == ProposalStatusRejected
}

type FieldKind string

const (
	FieldKindShortText    FieldKind = "short-text"
	FieldKindLongText     FieldKind = "long-text"
	FieldKindSingleSelect FieldKind = "single-select"
	FieldKindCheckbox     FieldKind = "checkbox"
)

func (k FieldKind) Valid() bool {
	switch k {
	case FieldKindShortText, FieldKindLongText, FieldKindSingleSelect, FieldKindCheckbox:
		return true
	}
	return false
}

type FieldProposal struct {
	ProposalID    string         `json:"proposal_id"`
	Category      Category       `json:"category"`
	FieldName     string         `json:"field_name"`
	Kind          FieldKind      `json:"kind"`
	Options       []string       `json:"options,omitempty"`
	Required      bool           `json:"required"`
	Status        ProposalStatus `json:"status"`
	Proposer      string         `json:"proposer"`
	Reviewer      string         `json:"reviewer,omitempty"`
	ReviewedAt    *time.Time     `json:"reviewed_at,omitempty"`
	ReviewComment string         `json:"review_comment,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
