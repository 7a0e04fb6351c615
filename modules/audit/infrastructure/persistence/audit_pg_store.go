package persistence

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/privsys/ropa-registry/modules/audit/domain/types"
)

type AuditPGStore struct {
	pool *pgxpool.Pool
}

func NewAuditPGStore(pool *pgxpool.Pool) *AuditPGStore {
	return &AuditPGStore{pool: pool}
}

func (s *AuditPGStore) InsertEvent(ctx context.Context, event types.Event) error {
	extra, err := encodeExtra(event.Extra)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO audit_events (event_id, kind, actor, description, extra, created_at)
VALUES ($1::uuid, $2, $3, $4, $5::jsonb, $6)
`, event.EventID, event.Kind, event.Actor, event.Description, extra, event.CreatedAt)
	return err
}

func (s *AuditPGStore) ListEvents(ctx context.Context, limit int, offset int) ([]types.Event, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
SELECT event_id::text, kind, actor, description, extra, created_at
FROM audit_events
ORDER BY created_at DESC, event_id DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]types.Event, 0, limit)
	for rows.Next() {
		var e types.Event
		var rawExtra []byte
		if err := rows.Scan(&e.EventID, &e.Kind, &e.Actor, &e.Description, &rawExtra, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		extra, err := decodeExtra(rawExtra)
		if err != nil {
			return nil, 0, err
		}
		e.Extra = extra
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func encodeExtra(extra map[string]any) ([]byte, error) {
	if len(extra) == 0 {
		return []byte(`{}`), nil
	}
	return json.Marshal(extra)
}

func decodeExtra(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
