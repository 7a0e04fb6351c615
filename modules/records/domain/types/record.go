package types

import "time"

// RecordStatus is the review lifecycle of a processing record. Approved is
// terminal; a rejected record may be corrected and resubmitted.
type RecordStatus string

const (
	RecordStatusDraft       RecordStatus = "Draft"
	RecordStatusSubmitted   RecordStatus = "Submitted"
	RecordStatusUnderReview RecordStatus = "Under Review"
	RecordStatusApproved    RecordStatus = "Approved"
	RecordStatusRejected    RecordStatus = "Rejected"
)

func (s RecordStatus) Valid() bool {
	switch s {
	case RecordStatusDraft, RecordStatusSubmitted, RecordStatusUnderReview,
		RecordStatusApproved, RecordStatusRejected:
		return true
	}
	return false
}

var recordTransitions = map[RecordStatus][]RecordStatus{
	RecordStatusDraft:       {RecordStatusSubmitted},
	RecordStatusSubmitted:   {RecordStatusUnderReview},
	RecordStatusUnderReview: {RecordStatusApproved, RecordStatusRejected},
	RecordStatusRejected:    {RecordStatusSubmitted},
}

func (s RecordStatus) CanTransitionTo(next RecordStatus) bool {
	for _, allowed := range recordTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// Record is one Article 30 processing-activity entry. All descriptive
// columns are free text; "" means not filled in yet.
type Record struct {
	RecordID           string `json:"record_id"`
	ActivityName       string `json:"processing_activity_name"`
	Category           string `json:"category"`
	Description        string `json:"description"`
	DepartmentFunction string `json:"department_function"`

	ControllerName    string `json:"controller_name"`
	ControllerContact string `json:"controller_contact"`
	ControllerAddress string `json:"controller_address"`

	DPOName    string `json:"dpo_name"`
	DPOContact string `json:"dpo_contact"`
	DPOAddress string `json:"dpo_address"`

	ProcessorName    string `json:"processor_name"`
	ProcessorContact string `json:"processor_contact"`
	ProcessorAddress string `json:"processor_address"`

	RepresentativeName    string `json:"representative_name"`
	RepresentativeContact string `json:"representative_contact"`
	RepresentativeAddress string `json:"representative_address"`

	ProcessingPurpose     string `json:"processing_purpose"`
	LegalBasis            string `json:"legal_basis"`
	LegitimateInterests   string `json:"legitimate_interests"`
	DataCategories        string `json:"data_categories"`
	SpecialCategories     string `json:"special_categories"`
	DataSubjects          string `json:"data_subjects"`
	Recipients            string `json:"recipients"`
	ThirdCountryTransfers string `json:"third_country_transfers"`
	Safeguards            string `json:"safeguards"`
	RetentionPeriod       string `json:"retention_period"`
	DeletionProcedures    string `json:"deletion_procedures"`
	SecurityMeasures      string `json:"security_measures"`

	BreachLikelihood string `json:"breach_likelihood"`
	BreachImpact     string `json:"breach_impact"`
	RiskLevel        string `json:"risk_level"`
	DPIARequired     bool   `json:"dpia_required"`
	DPIAOutcome      string `json:"dpia_outcome"`

	Status         RecordStatus `json:"status"`
	CreatedBy      string       `json:"created_by"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	ReviewedBy     string       `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time   `json:"reviewed_at,omitempty"`
	ReviewComments string       `json:"review_comments,omitempty"`
}

// ListQuery narrows ListRecords. Zero values mean no filtering on that
// dimension.
type ListQuery struct {
	Status    RecordStatus
	CreatedBy string
}
