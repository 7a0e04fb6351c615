package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	audittypes "github.com/privsys/ropa-registry/modules/audit/domain/types"
	fieldtypes "github.com/privsys/ropa-registry/modules/fields/domain/types"
	recordtypes "github.com/privsys/ropa-registry/modules/records/domain/types"
)

// memFieldStore backs the three fields ports in one in-memory struct.
type memFieldStore struct {
	mu        sync.Mutex
	proposals map[string]fieldtypes.FieldProposal
	fields    []fieldtypes.ApprovedField
	records   []string
	cells     map[string]fieldtypes.FieldValue
}

func newMemFieldStore() *memFieldStore {
	return &memFieldStore{
		proposals: make(map[string]fieldtypes.FieldProposal),
		cells:     make(map[string]fieldtypes.FieldValue),
	}
}

func (m *memFieldStore) InsertProposal(_ context.Context, p fieldtypes.FieldProposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals[p.ProposalID] = p
	return nil
}

func (m *memFieldStore) GetProposal(_ context.Context, proposalID string) (fieldtypes.FieldProposal, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[proposalID]
	return p, ok, nil
}

func (m *memFieldStore) ListPendingProposals(_ context.Context) ([]fieldtypes.FieldProposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]fieldtypes.FieldProposal, 0)
	for _, p := range m.proposals {
		if p.Status == fieldtypes.ProposalStatusPendingReview {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memFieldStore) SetProposalPending(_ context.Context, p fieldtypes.FieldProposal) error {
	return m.InsertProposal(context.Background(), p)
}

func (m *memFieldStore) ApproveProposal(_ context.Context, p fieldtypes.FieldProposal, field fieldtypes.ApprovedField) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals[p.ProposalID] = p
	m.fields = append(m.fields, field)
	return nil
}

func (m *memFieldStore) RejectProposal(_ context.Context, p fieldtypes.FieldProposal) error {
	return m.InsertProposal(context.Background(), p)
}

func (m *memFieldStore) ListApprovedFields(_ context.Context) ([]fieldtypes.ApprovedField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]fieldtypes.ApprovedField, len(m.fields))
	copy(out, m.fields)
	return out, nil
}

func (m *memFieldStore) GetApprovedField(_ context.Context, fieldID string) (fieldtypes.ApprovedField, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.fields {
		if f.FieldID == fieldID {
			return f, true, nil
		}
	}
	return fieldtypes.ApprovedField{}, false, nil
}

func (m *memFieldStore) HasApprovedFieldName(_ context.Context, category fieldtypes.Category, fieldName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.fields {
		if f.Category == category && f.FieldName == fieldName {
			return true, nil
		}
	}
	return false, nil
}

func (m *memFieldStore) ListRecordIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memFieldStore) EnsureValue(_ context.Context, recordID string, fieldID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordID + "|" + fieldID
	if _, ok := m.cells[key]; ok {
		return false, nil
	}
	m.cells[key] = fieldtypes.FieldValue{RecordID: recordID, FieldID: fieldID}
	return true, nil
}

func (m *memFieldStore) ListValuesForRecord(_ context.Context, recordID string) (map[string]fieldtypes.FieldValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]fieldtypes.FieldValue)
	for _, cell := range m.cells {
		if cell.RecordID == recordID {
			out[cell.FieldID] = cell
		}
	}
	return out, nil
}

func (m *memFieldStore) UpsertValuesForRecord(_ context.Context, recordID string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for fieldID, value := range values {
		m.cells[recordID+"|"+fieldID] = fieldtypes.FieldValue{RecordID: recordID, FieldID: fieldID, Value: value}
	}
	return nil
}

type memRecordStore struct {
	mu      sync.Mutex
	records map[string]recordtypes.Record
	fields  *memFieldStore
}

func newMemRecordStore(fields *memFieldStore) *memRecordStore {
	return &memRecordStore{records: make(map[string]recordtypes.Record), fields: fields}
}

func (m *memRecordStore) InsertRecord(ctx context.Context, record recordtypes.Record, seedFieldIDs []string) error {
	m.mu.Lock()
	m.records[record.RecordID] = record
	m.mu.Unlock()

	m.fields.mu.Lock()
	m.fields.records = append(m.fields.records, record.RecordID)
	m.fields.mu.Unlock()
	for _, fieldID := range seedFieldIDs {
		if _, err := m.fields.EnsureValue(ctx, record.RecordID, fieldID); err != nil {
			return err
		}
	}
	return nil
}

func (m *memRecordStore) GetRecord(_ context.Context, recordID string) (recordtypes.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recordID]
	return r, ok, nil
}

func (m *memRecordStore) ListRecords(_ context.Context, query recordtypes.ListQuery) ([]recordtypes.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordtypes.Record, 0)
	for _, r := range m.records {
		if query.Status != "" && r.Status != query.Status {
			continue
		}
		if query.CreatedBy != "" && r.CreatedBy != query.CreatedBy {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memRecordStore) UpdateRecord(_ context.Context, record recordtypes.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.RecordID] = record
	return nil
}

func (m *memRecordStore) SetRecordStatus(_ context.Context, record recordtypes.Record) error {
	return m.UpdateRecord(context.Background(), record)
}

func (m *memRecordStore) DeleteRecord(_ context.Context, recordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, recordID)
	return nil
}

type memEventStore struct {
	mu     sync.Mutex
	events []audittypes.Event
}

func (m *memEventStore) InsertEvent(_ context.Context, event audittypes.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memEventStore) ListEvents(_ context.Context, limit int, offset int) ([]audittypes.Event, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := len(m.events)
	reversed := make([]audittypes.Event, 0, total)
	for i := total - 1; i >= 0; i-- {
		reversed = append(reversed, m.events[i])
	}
	if offset >= total {
		return []audittypes.Event{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return reversed[offset:end], total, nil
}

type allowAllAuthz struct{}

func (allowAllAuthz) Authorize(string, string, string) (bool, bool, error) { return true, false, nil }

func writeTestAllowlist(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "allowlist.yaml")
	src, err := os.ReadFile(testdataAllowlistPath(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, src, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ALLOWLIST_PATH", path)
}

func testdataAllowlistPath(t *testing.T) string {
	t.Helper()
	path := "configs/allowlist.yaml"
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		path = filepath.Join("..", path)
	}
	t.Fatal("allowlist fixture not found")
	return ""
}

type testEnv struct {
	handler     http.Handler
	fieldStore  *memFieldStore
	recordStore *memRecordStore
	eventStore  *memEventStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	writeTestAllowlist(t)

	fieldStore := newMemFieldStore()
	recordStore := newMemRecordStore(fieldStore)
	eventStore := &memEventStore{}

	handler, err := NewHandlerWithOptions(HandlerOptions{
		ProposalStore: fieldStore,
		CatalogStore:  fieldStore,
		ValueStore:    fieldStore,
		RecordStore:   recordStore,
		EventStore:    eventStore,
		Authorizer:    allowAllAuthz{},
	})
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{handler: handler, fieldStore: fieldStore, recordStore: recordStore, eventStore: eventStore}
}

func (e *testEnv) do(t *testing.T, method string, path string, body any, actor string, role string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if actor != "" {
		req.Header.Set("X-Actor", actor)
	}
	if role != "" {
		req.Header.Set("X-Actor-Role", role)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}
