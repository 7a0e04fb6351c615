package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/privsys/ropa-registry/modules/records/domain/types"
)

type RecordPGStore struct {
	pool *pgxpool.Pool
}

func NewRecordPGStore(pool *pgxpool.Pool) *RecordPGStore {
	return &RecordPGStore{pool: pool}
}

const recordColumnList = `
  record_id::text, processing_activity_name, category, description, department_function,
  controller_name, controller_contact, controller_address,
  dpo_name, dpo_contact, dpo_address,
  processor_name, processor_contact, processor_address,
  representative_name, representative_contact, representative_address,
  processing_purpose, legal_basis, legitimate_interests, data_categories,
  special_categories, data_subjects, recipients, third_country_transfers,
  safeguards, retention_period, deletion_procedures, security_measures,
  breach_likelihood, breach_impact, risk_level, dpia_required, dpia_outcome,
  status, created_by, created_at, updated_at, COALESCE(reviewed_by, ''), reviewed_at, review_comments`

// InsertRecord writes the record and the empty custom-field cells in one
// transaction, so a new record is born with every approved field present.
func (s *RecordPGStore) InsertRecord(ctx context.Context, r types.Record, seedFieldIDs []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `
INSERT INTO ropa_records (
  record_id, processing_activity_name, category, description, department_function,
  controller_name, controller_contact, controller_address,
  dpo_name, dpo_contact, dpo_address,
  processor_name, processor_contact, processor_address,
  representative_name, representative_contact, representative_address,
  processing_purpose, legal_basis, legitimate_interests, data_categories,
  special_categories, data_subjects, recipients, third_country_transfers,
  safeguards, retention_period, deletion_procedures, security_measures,
  breach_likelihood, breach_impact, risk_level, dpia_required, dpia_outcome,
  status, created_by, created_at, updated_at, review_comments
) VALUES (
  $1::uuid, $2, $3, $4, $5,
  $6, $7, $8,
  $9, $10, $11,
  $12, $13, $14,
  $15, $16, $17,
  $18, $19, $20, $21,
  $22, $23, $24, $25,
  $26, $27, $28, $29,
  $30, $31, $32, $33, $34,
  $35, $36, $37, $38, ''
)
`, r.RecordID, r.ActivityName, r.Category, r.Description, r.DepartmentFunction,
		r.ControllerName, r.ControllerContact, r.ControllerAddress,
		r.DPOName, r.DPOContact, r.DPOAddress,
		r.ProcessorName, r.ProcessorContact, r.ProcessorAddress,
		r.RepresentativeName, r.RepresentativeContact, r.RepresentativeAddress,
		r.ProcessingPurpose, r.LegalBasis, r.LegitimateInterests, r.DataCategories,
		r.SpecialCategories, r.DataSubjects, r.Recipients, r.ThirdCountryTransfers,
		r.Safeguards, r.RetentionPeriod, r.DeletionProcedures, r.SecurityMeasures,
		r.BreachLikelihood, r.BreachImpact, r.RiskLevel, r.DPIARequired, r.DPIAOutcome,
		string(r.Status), r.CreatedBy, r.CreatedAt, r.UpdatedAt); err != nil {
		return err
	}

	for _, fieldID := range seedFieldIDs {
		if _, err := tx.Exec(ctx, `
INSERT INTO record_field_values (record_id, field_id, field_value, updated_at)
VALUES ($1::uuid, $2::uuid, '', $3)
ON CONFLICT ON CONSTRAINT record_field_values_record_field_unique DO NOTHING
`, r.RecordID, fieldID, time.Now().UTC()); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *RecordPGStore) GetRecord(ctx context.Context, recordID string) (types.Record, bool, error) {
	row := s.pool.QueryRow(ctx, `
SELECT`+recordColumnList+`
FROM ropa_records
WHERE record_id = $1::uuid
`, recordID)

	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Record{}, false, nil
		}
		return types.Record{}, false, err
	}
	return r, true, nil
}

func (s *RecordPGStore) ListRecords(ctx context.Context, query types.ListQuery) ([]types.Record, error) {
	sql := `SELECT` + recordColumnList + `
FROM ropa_records
WHERE 1=1`
	args := make([]any, 0, 2)
	if query.Status != "" {
		args = append(args, string(query.Status))
		sql += ` AND status = $1`
	}
	if query.CreatedBy != "" {
		args = append(args, query.CreatedBy)
		if len(args) == 1 {
			sql += ` AND created_by = $1`
		} else {
			sql += ` AND created_by = $2`
		}
	}
	sql += `
ORDER BY created_at DESC, record_id DESC`

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]types.Record, 0)
	for rows.Next() {
		r, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RecordPGStore) UpdateRecord(ctx context.Context, r types.Record) error {
	_, err := s.pool.Exec(ctx, `
UPDATE ropa_records SET
  processing_activity_name = $2, category = $3, description = $4, department_function = $5,
  controller_name = $6, controller_contact = $7, controller_address = $8,
  dpo_name = $9, dpo_contact = $10, dpo_address = $11,
  processor_name = $12, processor_contact = $13, processor_address = $14,
  representative_name = $15, representative_contact = $16, representative_address = $17,
  processing_purpose = $18, legal_basis = $19, legitimate_interests = $20, data_categories = $21,
  special_categories = $22, data_subjects = $23, recipients = $24, third_country_transfers = $25,
  safeguards = $26, retention_period = $27, deletion_procedures = $28, security_measures = $29,
  breach_likelihood = $30, breach_impact = $31, risk_level = $32, dpia_required = $33, dpia_outcome = $34,
  updated_at = $35
WHERE record_id = $1::uuid
`, r.RecordID, r.ActivityName, r.Category, r.Description, r.DepartmentFunction,
		r.ControllerName, r.ControllerContact, r.ControllerAddress,
		r.DPOName, r.DPOContact, r.DPOAddress,
		r.ProcessorName, r.ProcessorContact, r.ProcessorAddress,
		r.RepresentativeName, r.RepresentativeContact, r.RepresentativeAddress,
		r.ProcessingPurpose, r.LegalBasis, r.LegitimateInterests, r.DataCategories,
		r.SpecialCategories, r.DataSubjects, r.Recipients, r.ThirdCountryTransfers,
		r.Safeguards, r.RetentionPeriod, r.DeletionProcedures, r.SecurityMeasures,
		r.BreachLikelihood, r.BreachImpact, r.RiskLevel, r.DPIARequired, r.DPIAOutcome,
		r.UpdatedAt)
	return err
}

func (s *RecordPGStore) SetRecordStatus(ctx context.Context, r types.Record) error {
	var reviewedBy any
	if r.ReviewedBy != "" {
		reviewedBy = r.ReviewedBy
	}
	_, err := s.pool.Exec(ctx, `
UPDATE ropa_records
SET status = $2, reviewed_by = $3, reviewed_at = $4, review_comments = $5, updated_at = $6
WHERE record_id = $1::uuid
`, r.RecordID, string(r.Status), reviewedBy, r.ReviewedAt, r.ReviewComments, r.UpdatedAt)
	return err
}

// DeleteRecord removes the record and its custom-field cells together.
func (s *RecordPGStore) DeleteRecord(ctx context.Context, recordID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `DELETE FROM record_field_values WHERE record_id = $1::uuid`, recordID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM ropa_records WHERE record_id = $1::uuid`, recordID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (types.Record, error) {
	var r types.Record
	var status string
	var reviewedAt *time.Time
	if err := row.Scan(
		&r.RecordID, &r.ActivityName, &r.Category, &r.Description, &r.DepartmentFunction,
		&r.ControllerName, &r.ControllerContact, &r.ControllerAddress,
		&r.DPOName, &r.DPOContact, &r.DPOAddress,
		&r.ProcessorName, &r.ProcessorContact, &r.ProcessorAddress,
		&r.RepresentativeName, &r.RepresentativeContact, &r.RepresentativeAddress,
		&r.ProcessingPurpose, &r.LegalBasis, &r.LegitimateInterests, &r.DataCategories,
		&r.SpecialCategories, &r.DataSubjects, &r.Recipients, &r.ThirdCountryTransfers,
		&r.Safeguards, &r.RetentionPeriod, &r.DeletionProcedures, &r.SecurityMeasures,
		&r.BreachLikelihood, &r.BreachImpact, &r.RiskLevel, &r.DPIARequired, &r.DPIAOutcome,
		&status, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt, &r.ReviewedBy, &reviewedAt, &r.ReviewComments,
	); err != nil {
		return types.Record{}, err
	}
	r.Status = types.RecordStatus(status)
	r.ReviewedAt = reviewedAt
	return r, nil
}
