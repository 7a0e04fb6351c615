package server

import (
	"context"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/privsys/ropa-registry/internal/routing"
	auditports "github.com/privsys/ropa-registry/modules/audit/domain/ports"
	auditpersistence "github.com/privsys/ropa-registry/modules/audit/infrastructure/persistence"
	auditservices "github.com/privsys/ropa-registry/modules/audit/services"
	fieldports "github.com/privsys/ropa-registry/modules/fields/domain/ports"
	fieldpersistence "github.com/privsys/ropa-registry/modules/fields/infrastructure/persistence"
	fieldservices "github.com/privsys/ropa-registry/modules/fields/services"
	recordports "github.com/privsys/ropa-registry/modules/records/domain/ports"
	recordpersistence "github.com/privsys/ropa-registry/modules/records/infrastructure/persistence"
	recordservices "github.com/privsys/ropa-registry/modules/records/services"
)

func NewHandler() (http.Handler, error) {
	return NewHandlerWithOptions(HandlerOptions{})
}

// HandlerOptions lets tests inject in-memory stores and a canned
// authorizer; production wiring fills everything from env + postgres.
type HandlerOptions struct {
	ProposalStore fieldports.ProposalStore
	CatalogStore  fieldports.CatalogStore
	ValueStore    fieldports.ValueStore
	RecordStore   recordports.RecordStore
	EventStore    auditports.EventStore
	Authorizer    authorizer
}

func NewHandlerWithOptions(opts HandlerOptions) (http.Handler, error) {
	allowlistPath := os.Getenv("ALLOWLIST_PATH")
	if allowlistPath == "" {
		p, err := defaultConfigPath("configs/allowlist.yaml", "allowlist")
		if err != nil {
			return nil, err
		}
		allowlistPath = p
	}

	a, err := routing.LoadAllowlist(allowlistPath)
	if err != nil {
		return nil, err
	}
	classifier, err := routing.NewClassifier(a, "server")
	if err != nil {
		return nil, err
	}

	proposalStore := opts.ProposalStore
	catalogStore := opts.CatalogStore
	valueStore := opts.ValueStore
	recordStore := opts.RecordStore
	eventStore := opts.EventStore

	var pgPool *pgxpool.Pool
	needsPool := proposalStore == nil || catalogStore == nil || valueStore == nil ||
		recordStore == nil || eventStore == nil
	if needsPool {
		pool, err := pgxpool.New(context.Background(), dbDSNFromEnv())
		if err != nil {
			return nil, err
		}
		pgPool = pool
	}

	if proposalStore == nil || catalogStore == nil || valueStore == nil {
		fieldStore := fieldpersistence.NewFieldPGStore(pgPool)
		if proposalStore == nil {
			proposalStore = fieldStore
		}
		if catalogStore == nil {
			catalogStore = fieldStore
		}
		if valueStore == nil {
			valueStore = fieldStore
		}
	}
	if recordStore == nil {
		recordStore = recordpersistence.NewRecordPGStore(pgPool)
	}
	if eventStore == nil {
		eventStore = auditpersistence.NewAuditPGStore(pgPool)
	}

	auditMode, err := auditservices.ModeFromEnv()
	if err != nil {
		return nil, err
	}
	emitter := auditservices.NewEmitter(eventStore, auditMode)
	auditQuery := auditservices.NewQueryService(eventStore)

	backfill := fieldservices.NewBackfillEngine(valueStore, emitter)
	registry := fieldservices.NewRegistryService(proposalStore, catalogStore, backfill, emitter)
	catalog := fieldservices.NewCatalogService(catalogStore)
	custom := fieldservices.NewCustomDataService(catalogStore, valueStore)
	records := recordservices.NewRecordService(recordStore, catalogStore, emitter)

	az := opts.Authorizer
	if az == nil {
		loaded, err := loadAuthorizer()
		if err != nil {
			return nil, err
		}
		az = loaded
	}

	router := routing.NewRouter(classifier)

	router.Handle(routing.RouteClassOps, http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))
	router.Handle(routing.RouteClassOps, http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))

	router.Handle(routing.RouteClassInternalAPI, http.MethodPost, "/api/fields/proposals", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleFieldProposalSubmit(w, r, registry)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodPost, "/api/fields/proposals/{id}/submit-review", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleFieldProposalSubmitReview(w, r, registry)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodGet, "/api/fields/proposals/pending", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleFieldProposalsPending(w, r, registry)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodPost, "/api/fields/proposals/{id}/decision", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleFieldProposalDecision(w, r, registry)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodGet, "/api/fields/catalog", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleFieldCatalog(w, r, catalog)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodPost, "/api/fields/{id}/backfill", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleFieldBackfill(w, r, catalog, backfill)
	}))

	router.Handle(routing.RouteClassInternalAPI, http.MethodGet, "/api/records", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleRecordList(w, r, records)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodPost, "/api/records", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleRecordCreate(w, r, records)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodGet, "/api/records/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleRecordGet(w, r, records)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodPut, "/api/records/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleRecordUpdate(w, r, records)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodDelete, "/api/records/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleRecordDelete(w, r, records)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodPost, "/api/records/{id}/status", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleRecordStatus(w, r, records)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodGet, "/api/records/{id}/custom-data", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleRecordCustomDataGet(w, r, records, custom)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodPut, "/api/records/{id}/custom-data", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleRecordCustomDataPut(w, r, records, custom)
	}))

	router.Handle(routing.RouteClassInternalAPI, http.MethodGet, "/api/audit/events", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleAuditEvents(w, r, auditQuery)
	}))

	return withActor(withAuthz(az, emitter, router)), nil
}
