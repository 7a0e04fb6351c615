package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/privsys/ropa-registry/modules/audit/domain/types"
	"github.com/privsys/ropa-registry/pkg/httperr"
)

type memEventStore struct {
	mu        sync.Mutex
	events    []types.Event
	insertErr error
}

func (m *memEventStore) InsertEvent(_ context.Context, event types.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.events = append(m.events, event)
	return nil
}

func (m *memEventStore) ListEvents(_ context.Context, limit int, offset int) ([]types.Event, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, 0, m.insertErr
	}
	total := len(m.events)
	// Newest first, mirroring the pg store's ORDER BY created_at DESC.
	reversed := make([]types.Event, 0, total)
	for i := total - 1; i >= 0; i-- {
		reversed = append(reversed, m.events[i])
	}
	if offset >= total {
		return []types.Event{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return reversed[offset:end], total, nil
}

func captureLog(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := logf
	logf = func(format string, args ...any) {
		lines = append(lines, format)
	}
	t.Cleanup(func() { logf = orig })
	return &lines
}

func TestModeFromEnv(t *testing.T) {
	t.Setenv("AUDIT_MODE", "")
	if mode, err := ModeFromEnv(); err != nil || mode != ModeBestEffort {
		t.Fatalf("mode=%q err=%v", mode, err)
	}

	t.Setenv("AUDIT_MODE", "STRICT")
	if mode, err := ModeFromEnv(); err != nil || mode != ModeStrict {
		t.Fatalf("mode=%q err=%v", mode, err)
	}

	t.Setenv("AUDIT_MODE", "paranoid")
	if _, err := ModeFromEnv(); err == nil {
		t.Fatal("expected error")
	}
}

func TestEmitStoresEvent(t *testing.T) {
	store := &memEventStore{}
	emitter := NewEmitter(store, ModeBestEffort)

	err := emitter.EmitWithExtra(context.Background(), "FIELD_APPROVED", "officer@example.org",
		"Approved custom field", map[string]any{"field_id": "f1"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("events=%d", len(store.events))
	}
	e := store.events[0]
	if e.EventID == "" || e.Kind != "FIELD_APPROVED" || e.Extra["field_id"] != "f1" {
		t.Fatalf("event=%+v", e)
	}
	if e.CreatedAt.IsZero() || e.CreatedAt.Location() != time.UTC {
		t.Fatalf("created_at=%v", e.CreatedAt)
	}
}

func TestEmitBestEffortSwallowsStoreFailure(t *testing.T) {
	store := &memEventStore{insertErr: errors.New("connection refused")}
	logged := captureLog(t)
	emitter := NewEmitter(store, ModeBestEffort)

	if err := emitter.Emit(context.Background(), "FIELD_PROPOSED", "a", "d"); err != nil {
		t.Fatalf("best-effort must swallow, got %v", err)
	}
	if len(*logged) != 1 || !strings.Contains((*logged)[0], "dropped event") {
		t.Fatalf("log=%v", *logged)
	}
}

func TestEmitStrictPropagatesStoreFailure(t *testing.T) {
	store := &memEventStore{insertErr: errors.New("connection refused")}
	emitter := NewEmitter(store, ModeStrict)

	err := emitter.Emit(context.Background(), "FIELD_PROPOSED", "a", "d")
	if !httperr.IsPersistence(err) || err.Error() != errAuditStoreFailure {
		t.Fatalf("err=%v", err)
	}
}

func TestEmitMirrorsSecurityKindsToLog(t *testing.T) {
	store := &memEventStore{}
	logged := captureLog(t)
	emitter := NewEmitter(store, ModeBestEffort)

	if err := emitter.Emit(context.Background(), "ROPA_DELETED", "officer@example.org", "Deleted record r1"); err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(*logged) != 1 || !strings.Contains((*logged)[0], "security event") {
		t.Fatalf("log=%v", *logged)
	}
	if len(store.events) != 1 {
		t.Fatal("security events still go to the store")
	}

	*logged = (*logged)[:0]
	if err := emitter.Emit(context.Background(), "FIELD_PROPOSED", "a", "d"); err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(*logged) != 0 {
		t.Fatalf("non-security kind must not hit the log, got %v", *logged)
	}
}

func TestQueryListPaginatesNewestFirst(t *testing.T) {
	store := &memEventStore{}
	emitter := NewEmitter(store, ModeStrict)
	for _, kind := range []string{"A", "B", "C", "D"} {
		if err := emitter.Emit(context.Background(), kind, "actor", "d"); err != nil {
			t.Fatalf("err=%v", err)
		}
	}
	svc := NewQueryService(store)

	events, total, err := svc.List(context.Background(), 2, 0)
	if err != nil || total != 4 {
		t.Fatalf("total=%d err=%v", total, err)
	}
	if len(events) != 2 || events[0].Kind != "D" || events[1].Kind != "C" {
		t.Fatalf("events=%+v", events)
	}

	events, _, err = svc.List(context.Background(), 2, 2)
	if err != nil || len(events) != 2 || events[0].Kind != "B" {
		t.Fatalf("events=%+v err=%v", events, err)
	}

	// Limit 0 falls back to the default page size.
	events, _, err = svc.List(context.Background(), 0, 0)
	if err != nil || len(events) != 4 {
		t.Fatalf("events=%d err=%v", len(events), err)
	}
}

func TestQueryRecent(t *testing.T) {
	store := &memEventStore{}
	emitter := NewEmitter(store, ModeStrict)
	for _, kind := range []string{"A", "B", "C"} {
		if err := emitter.Emit(context.Background(), kind, "actor", "d"); err != nil {
			t.Fatalf("err=%v", err)
		}
	}
	svc := NewQueryService(store)

	events, err := svc.Recent(context.Background(), 2)
	if err != nil || len(events) != 2 || events[0].Kind != "C" {
		t.Fatalf("events=%+v err=%v", events, err)
	}
}

func TestQueryListStoreFailure(t *testing.T) {
	svc := NewQueryService(&memEventStore{insertErr: errors.New("down")})
	_, _, err := svc.List(context.Background(), 10, 0)
	if !httperr.IsPersistence(err) {
		t.Fatalf("err=%v", err)
	}
}
