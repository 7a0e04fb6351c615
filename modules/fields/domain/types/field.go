package types

import "time"

// ApprovedField is the projection of a proposal at the moment of approval.
// It is immutable: later reads of custom data consult only this catalog row,
// never the originating proposal.
type ApprovedField struct {
	FieldID    string    `json:"field_id"`
	ProposalID string    `json:"proposal_id"`
	FieldName  string    `json:"field_name"`
	Category   Category  `json:"category"`
	Kind       FieldKind `json:"kind"`
	Options    []string  `json:"options,omitempty"`
	Required   bool      `json:"required"`
	ApprovedAt time.Time `json:"approved_at"`
}
