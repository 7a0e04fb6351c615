package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/privsys/ropa-registry/modules/fields/domain/types"
)

// FieldPGStore backs the proposal registry, the approved-field catalog and
// the per-record value cells. Values live in record_field_values keyed by
// (record_id, field_id) with a unique constraint, so duplicate backfill
// inserts collapse into no-ops at the database level.
type FieldPGStore struct {
	pool *pgxpool.Pool
}

func NewFieldPGStore(pool *pgxpool.Pool) *FieldPGStore {
	return &FieldPGStore{pool: pool}
}

func (s *FieldPGStore) InsertProposal(ctx context.Context, p types.FieldProposal) error {
	options, err := encodeOptions(p.Options)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO field_proposals (
  proposal_id, category, field_name, kind, options, required,
  status, proposer, review_comment, created_at, updated_at
) VALUES ($1::uuid, $2, $3, $4, $5::jsonb, $6, $7, $8, '', $9, $10)
`, p.ProposalID, string(p.Category), p.FieldName, string(p.Kind), options, p.Required,
		string(p.Status), p.Proposer, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *FieldPGStore) GetProposal(ctx context.Context, proposalID string) (types.FieldProposal, bool, error) {
	row := s.pool.QueryRow(ctx, `
SELECT
  proposal_id::text, category, field_name, kind, options, required,
  status, proposer, COALESCE(reviewer, ''), reviewed_at, review_comment,
  created_at, updated_at
FROM field_proposals
WHERE proposal_id = $1::uuid
`, proposalID)

	p, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.FieldProposal{}, false, nil
		}
		return types.FieldProposal{}, false, err
	}
	return p, true, nil
}

func (s *FieldPGStore) ListPendingProposals(ctx context.Context) ([]types.FieldProposal, error) {
	rows, err := s.pool.Query(ctx, `
SELECT
  proposal_id::text, category, field_name, kind, options, required,
  status, proposer, COALESCE(reviewer, ''), reviewed_at, review_comment,
  created_at, updated_at
FROM field_proposals
WHERE status = $1
ORDER BY updated_at ASC, proposal_id ASC
`, string(types.ProposalStatusPendingReview))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]types.FieldProposal, 0)
	for rows.Next() {
		p, scanErr := scanProposal(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FieldPGStore) SetProposalPending(ctx context.Context, p types.FieldProposal) error {
	_, err := s.pool.Exec(ctx, `
UPDATE field_proposals
SET status = $2, updated_at = $3
WHERE proposal_id = $1::uuid
`, p.ProposalID, string(p.Status), p.UpdatedAt)
	return err
}

func (s *FieldPGStore) ApproveProposal(ctx context.Context, p types.FieldProposal, field types.ApprovedField) error {
	options, err := encodeOptions(field.Options)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `
UPDATE field_proposals
SET status = $2, reviewer = $3, reviewed_at = $4, review_comment = $5, updated_at = $6
WHERE proposal_id = $1::uuid
`, p.ProposalID, string(p.Status), p.Reviewer, p.ReviewedAt, p.ReviewComment, p.UpdatedAt); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO approved_fields (
  field_id, proposal_id, field_name, category, kind, options, required, approved_at
) VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6::jsonb, $7, $8)
`, field.FieldID, field.ProposalID, field.FieldName, string(field.Category),
		string(field.Kind), options, field.Required, field.ApprovedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *FieldPGStore) RejectProposal(ctx context.Context, p types.FieldProposal) error {
	_, err := s.pool.Exec(ctx, `
UPDATE field_proposals
SET status = $2, reviewer = $3, reviewed_at = $4, review_comment = $5, updated_at = $6
WHERE proposal_id = $1::uuid
`, p.ProposalID, string(p.Status), p.Reviewer, p.ReviewedAt, p.ReviewComment, p.UpdatedAt)
	return err
}

func (s *FieldPGStore) ListApprovedFields(ctx context.Context) ([]types.ApprovedField, error) {
	rows, err := s.pool.Query(ctx, `
SELECT
  field_id::text, proposal_id::text, field_name, category, kind, options, required, approved_at
FROM approved_fields
ORDER BY category ASC, approved_at ASC, field_id ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]types.ApprovedField, 0)
	for rows.Next() {
		f, scanErr := scanApprovedField(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FieldPGStore) GetApprovedField(ctx context.Context, fieldID string) (types.ApprovedField, bool, error) {
	row := s.pool.QueryRow(ctx, `
SELECT
  field_id::text, proposal_id::text, field_name, category, kind, options, required, approved_at
FROM approved_fields
WHERE field_id = $1::uuid
`, fieldID)

	f, err := scanApprovedField(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.ApprovedField{}, false, nil
		}
		return types.ApprovedField{}, false, err
	}
	return f, true, nil
}

func (s *FieldPGStore) HasApprovedFieldName(ctx context.Context, category types.Category, fieldName string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
SELECT EXISTS (
  SELECT 1 FROM approved_fields
  WHERE category = $1 AND field_name = $2
)
`, string(category), fieldName).Scan(&exists)
	return exists, err
}

func (s *FieldPGStore) ListRecordIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
SELECT record_id::text
FROM ropa_records
ORDER BY created_at ASC, record_id ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FieldPGStore) EnsureValue(ctx context.Context, recordID string, fieldID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
INSERT INTO record_field_values (record_id, field_id, field_value, updated_at)
VALUES ($1::uuid, $2::uuid, '', $3)
ON CONFLICT ON CONSTRAINT record_field_values_record_field_unique DO NOTHING
`, recordID, fieldID, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *FieldPGStore) ListValuesForRecord(ctx context.Context, recordID string) (map[string]types.FieldValue, error) {
	rows, err := s.pool.Query(ctx, `
SELECT record_id::text, field_id::text, field_value, updated_at
FROM record_field_values
WHERE record_id = $1::uuid
`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]types.FieldValue)
	for rows.Next() {
		var v types.FieldValue
		if err := rows.Scan(&v.RecordID, &v.FieldID, &v.Value, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out[v.FieldID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FieldPGStore) UpsertValuesForRecord(ctx context.Context, recordID string, values map[string]string) error {
	fieldIDs := make([]string, 0, len(values))
	for fieldID := range values {
		fieldIDs = append(fieldIDs, fieldID)
	}
	sort.Strings(fieldIDs)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	now := time.Now().UTC()
	for _, fieldID := range fieldIDs {
		if _, err := tx.Exec(ctx, `
INSERT INTO record_field_values (record_id, field_id, field_value, updated_at)
VALUES ($1::uuid, $2::uuid, $3, $4)
ON CONFLICT ON CONSTRAINT record_field_values_record_field_unique
DO UPDATE SET field_value = EXCLUDED.field_value, updated_at = EXCLUDED.updated_at
`, recordID, fieldID, values[fieldID], now); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProposal(row rowScanner) (types.FieldProposal, error) {
	var p types.FieldProposal
	var category, kind, status string
	var rawOptions []byte
	var reviewedAt *time.Time
	if err := row.Scan(
		&p.ProposalID,
		&category,
		&p.FieldName,
		&kind,
		&rawOptions,
		&p.Required,
		&status,
		&p.Proposer,
		&p.Reviewer,
		&reviewedAt,
		&p.ReviewComment,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return types.FieldProposal{}, err
	}
	options, err := decodeOptions(rawOptions)
	if err != nil {
		return types.FieldProposal{}, err
	}
	p.Category = types.Category(category)
	p.Kind = types.FieldKind(kind)
	p.Status = types.ProposalStatus(status)
	p.Options = options
	p.ReviewedAt = reviewedAt
	return p, nil
}

func scanApprovedField(row rowScanner) (types.ApprovedField, error) {
	var f types.ApprovedField
	var category, kind string
	var rawOptions []byte
	if err := row.Scan(
		&f.FieldID,
		&f.ProposalID,
		&f.FieldName,
		&category,
		&kind,
		&rawOptions,
		&f.Required,
		&f.ApprovedAt,
	); err != nil {
		return types.ApprovedField{}, err
	}
	options, err := decodeOptions(rawOptions)
	if err != nil {
		return types.ApprovedField{}, err
	}
	f.Category = types.Category(category)
	f.Kind = types.FieldKind(kind)
	f.Options = options
	return f, nil
}

func encodeOptions(options []string) ([]byte, error) {
	if len(options) == 0 {
		return []byte(`[]`), nil
	}
	return json.Marshal(options)
}

func decodeOptions(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
