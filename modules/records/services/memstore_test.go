package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	fieldtypes "github.com/privsys/ropa-registry/modules/fields/domain/types"
	"github.com/privsys/ropa-registry/modules/records/domain/types"
)

type memRecordStore struct {
	mu      sync.Mutex
	records map[string]types.Record
	order   []string
	// seeded tracks which custom-field cells InsertRecord created, keyed by
	// record id.
	seeded map[string][]string

	insertErr error
	updateErr error
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{
		records: make(map[string]types.Record),
		seeded:  make(map[string][]string),
	}
}

func (m *memRecordStore) InsertRecord(_ context.Context, record types.Record, seedFieldIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.records[record.RecordID] = record
	m.order = append(m.order, record.RecordID)
	m.seeded[record.RecordID] = append([]string(nil), seedFieldIDs...)
	return nil
}

func (m *memRecordStore) GetRecord(_ context.Context, recordID string) (types.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recordID]
	return r, ok, nil
}

func (m *memRecordStore) ListRecords(_ context.Context, query types.ListQuery) ([]types.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Record, 0)
	for _, id := range m.order {
		r := m.records[id]
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

func (m *memRecordStore) UpdateRecord(_ context.Context, record types.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.records[record.RecordID] = record
	return nil
}

func (m *memRecordStore) SetRecordStatus(_ context.Context, record types.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.RecordID] = record
	return nil
}

func (m *memRecordStore) DeleteRecord(_ context.Context, recordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, recordID)
	delete(m.seeded, recordID)
	for i, id := range m.order {
		if id == recordID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

type stubCatalog struct {
	fields  []fieldtypes.ApprovedField
	listErr error
}

func (c *stubCatalog) ListApprovedFields(_ context.Context) ([]fieldtypes.ApprovedField, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.fields, nil
}

func (c *stubCatalog) GetApprovedField(_ context.Context, fieldID string) (fieldtypes.ApprovedField, bool, error) {
	for _, f := range c.fields {
		if f.FieldID == fieldID {
			return f, true, nil
		}
	}
	return fieldtypes.ApprovedField{}, false, nil
}

func (c *stubCatalog) HasApprovedFieldName(_ context.Context, category fieldtypes.Category, fieldName string) (bool, error) {
	for _, f := range c.fields {
		if f.Category == category && f.FieldName == fieldName {
			return true, nil
		}
	}
	return false, nil
}

type auditRecorder struct {
	mu     sync.Mutex
	events []string
}

func (a *auditRecorder) Emit(_ context.Context, kind string, actor string, description string) error {
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

func newTestRecordService(store *memRecordStore, catalog *stubCatalog) (*RecordService, *auditRecorder) {
	audit := &auditRecorder{}
	return NewRecordService(store, catalog, audit), audit
}

func withNewUUID(t *testing.T, fn func() (string, error)) {
	t.Helper()
	orig := newUUID
	newUUID = fn
	t.Cleanup(func() { newUUID = orig })
}
