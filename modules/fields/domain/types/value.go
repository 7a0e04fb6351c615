package types

import "time"

// FieldValue is one (record, field) cell. Values are stored as text for
// every kind; single-select and checkbox are interpreted at read time.
type FieldValue struct {
	RecordID  string    `json:"record_id"`
	FieldID   string    `json:"field_id"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FieldData is the read-side view of one custom field for one record:
// catalog metadata plus the current value ("" when no cell exists yet).
type FieldData struct {
	FieldID  string    `json:"field_id"`
	Value    string    `json:"value"`
	Kind     FieldKind `json:"kind"`
	Options  []string  `json:"options,omitempty"`
	Required bool      `json:"required"`
}

type BackfillFailure struct {
	RecordID string `json:"record_id"`
	Reason   string `json:"reason"`
}

// BackfillReport summarizes one backfill pass: how many cells were created,
// and which records failed. Failures never abort the pass; the engine is
// idempotent and safe to re-run for the same field.
type BackfillReport struct {
	FieldID        string            `json:"field_id"`
	RecordsTouched int               `json:"records_touched"`
	Failures       []BackfillFailure `json:"failures,omitempty"`
}

func (r BackfillReport) Partial() bool { return len(r.Failures) > 0 }
