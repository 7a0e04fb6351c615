package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/privsys/ropa-registry/modules/fields/domain/types"
)

// memStore backs all three ports in-memory so the lifecycle, backfill and
// custom-data paths can be exercised end to end without a database.
type memStore struct {
	mu        sync.Mutex
	proposals map[string]types.FieldProposal
	fields    []types.ApprovedField
	records   []string
	cells     map[string]types.FieldValue

	listRecordsErr error
	ensureErrFor   map[string]error
	upsertErr      error
}

func newMemStore(recordIDs ...string) *memStore {
	return &memStore{
		proposals: make(map[string]types.FieldProposal),
		records:   recordIDs,
		cells:     make(map[string]types.FieldValue),
	}
}

func cellKey(recordID, fieldID string) string { return recordID + "|" + fieldID }

func (m *memStore) InsertProposal(_ context.Context, p types.FieldProposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals[p.ProposalID] = p
	return nil
}

func (m *memStore) GetProposal(_ context.Context, proposalID string) (types.FieldProposal, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[proposalID]
	return p, ok, nil
}

func (m *memStore) ListPendingProposals(_ context.Context) ([]types.FieldProposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.FieldProposal, 0)
	for _, p := range m.proposals {
		if p.Status == types.ProposalStatusPendingReview {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) SetProposalPending(_ context.Context, p types.FieldProposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals[p.ProposalID] = p
	return nil
}

func (m *memStore) ApproveProposal(_ context.Context, p types.FieldProposal, field types.ApprovedField) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals[p.ProposalID] = p
	m.fields = append(m.fields, field)
	return nil
}

func (m *memStore) RejectProposal(_ context.Context, p types.FieldProposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals[p.ProposalID] = p
	return nil
}

func (m *memStore) ListApprovedFields(_ context.Context) ([]types.ApprovedField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.ApprovedField, len(m.fields))
	copy(out, m.fields)
	return out, nil
}

func (m *memStore) GetApprovedField(_ context.Context, fieldID string) (types.ApprovedField, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.fields {
		if f.FieldID == fieldID {
			return f, true, nil
		}
	}
	return types.ApprovedField{}, false, nil
}

func (m *memStore) HasApprovedFieldName(_ context.Context, category types.Category, fieldName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.fields {
		if f.Category == category && f.FieldName == fieldName {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListRecordIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listRecordsErr != nil {
		return nil, m.listRecordsErr
	}
	out := make([]string, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memStore) EnsureValue(_ context.Context, recordID string, fieldID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureErrFor[recordID]; err != nil {
		return false, err
	}
	key := cellKey(recordID, fieldID)
	if _, ok := m.cells[key]; ok {
		return false, nil
	}
	m.cells[key] = types.FieldValue{RecordID: recordID, FieldID: fieldID, Value: ""}
	return true, nil
}

func (m *memStore) ListValuesForRecord(_ context.Context, recordID string) (map[string]types.FieldValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]types.FieldValue)
	for _, cell := range m.cells {
		if cell.RecordID == recordID {
			out[cell.FieldID] = cell
		}
	}
	return out, nil
}

func (m *memStore) UpsertValuesForRecord(_ context.Context, recordID string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for fieldID, value := range values {
		m.cells[cellKey(recordID, fieldID)] = types.FieldValue{RecordID: recordID, FieldID: fieldID, Value: value}
	}
	return nil
}

func (m *memStore) cellCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cells)
}

func (m *memStore) addRecord(recordID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, recordID)
}

type auditRecorder struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (a *auditRecorder) Emit(_ context.Context, kind string, actor string, description string) error {
	if a.err != nil {
		return a.err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, fmt.Sprintf("%s|%s|%s", kind, actor, description))
	return nil
}

func (a *auditRecorder) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

func (a *auditRecorder) last() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.events) == 0 {
		return ""
	}
	return a.events[len(a.events)-1]
}

func newTestRegistry(store *memStore) (*RegistryService, *auditRecorder) {
	audit := &auditRecorder{}
	engine := NewBackfillEngine(store, audit)
	return NewRegistryService(store, store, engine, audit), audit
}

func withNewUUID(t *testing.T, fn func() (string, error)) {
	t.Helper()
	orig := newUUID
	newUUID = fn
	t.Cleanup(func() { newUUID = orig })
}
