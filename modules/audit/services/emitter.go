package services

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/privsys/ropa-registry/modules/audit/domain/ports"
	"github.com/privsys/ropa-registry/modules/audit/domain/types"
	"github.com/privsys/ropa-registry/pkg/httperr"
)

const errAuditStoreFailure = "AUDIT_STORE_FAILURE"

type Mode string

const (
	ModeBestEffort Mode = "best-effort"
	ModeStrict     Mode = "strict"
)

func ModeFromEnv() (Mode, error) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv("AUDIT_MODE")))
	if raw == "" {
		return ModeBestEffort, nil
	}
	switch Mode(raw) {
	case ModeBestEffort, ModeStrict:
		return Mode(raw), nil
	default:
		return "", errors.New("audit: invalid AUDIT_MODE (expected best-effort|strict)")
	}
}

var (
	newUUID = func() (string, error) {
		u, err := uuid.NewV7()
		if err != nil {
			return "", err
		}
		return u.String(), nil
	}
	timeNow = time.Now
	logf    = log.Printf
)

// securityKinds are mirrored to the process log in addition to the store,
// so a compromised or unavailable database never hides them entirely.
var securityKinds = map[string]bool{
	"ROPA_DELETED":      true,
	"PERMISSION_DENIED": true,
}

// Emitter writes audit events. In best-effort mode a store failure is
// logged and swallowed so the triggering operation still succeeds; in
// strict mode it propagates as a PersistenceError.
type Emitter struct {
	store ports.EventStore
	mode  Mode
}

func NewEmitter(store ports.EventStore, mode Mode) *Emitter {
	return &Emitter{store: store, mode: mode}
}

func (e *Emitter) Emit(ctx context.Context, kind string, actor string, description string) error {
	return e.EmitWithExtra(ctx, kind, actor, description, nil)
}

func (e *Emitter) EmitWithExtra(ctx context.Context, kind string, actor string, description string, extra map[string]any) error {
	id, err := newUUID()
	if err != nil {
		return e.handle(kind, err)
	}
	event := types.Event{
		EventID:     id,
		Kind:        kind,
		Actor:       actor,
		Description: description,
		Extra:       extra,
		CreatedAt:   timeNow().UTC(),
	}

	if securityKinds[kind] {
		logf("audit: security event kind=%s actor=%s description=%q", kind, actor, description)
	}

	if err := e.store.InsertEvent(ctx, event); err != nil {
		return e.handle(kind, err)
	}
	return nil
}

func (e *Emitter) handle(kind string, err error) error {
	if e.mode == ModeStrict {
		return httperr.NewPersistence(errAuditStoreFailure, err)
	}
	logf("audit: dropped event kind=%s: %v", kind, err)
	return nil
}
