package server

import (
	"encoding/json"
	"net/http"

	"github.com/privsys/ropa-registry/internal/routing"
	fieldtypes "github.com/privsys/ropa-registry/modules/fields/domain/types"
	fieldservices "github.com/privsys/ropa-registry/modules/fields/services"
)

type submitFieldPayload struct {
	Category  string   `json:"category"`
	FieldName string   `json:"field_name"`
	Kind      string   `json:"kind"`
	Options   []string `json:"options"`
	Required  bool     `json:"required"`
}

func handleFieldProposalSubmit(w http.ResponseWriter, r *http.Request, registry *fieldservices.RegistryService) {
	p, _ := currentPrincipal(r.Context())

	var payload submitFieldPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	proposal, err := registry.Submit(r.Context(), fieldservices.SubmitFieldRequest{
		Category:  fieldtypes.Category(payload.Category),
		FieldName: payload.FieldName,
		Kind:      fieldtypes.FieldKind(payload.Kind),
		Options:   payload.Options,
		Required:  payload.Required,
		Proposer:  p.Actor,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusCreated, proposal)
}

func handleFieldProposalSubmitReview(w http.ResponseWriter, r *http.Request, registry *fieldservices.RegistryService) {
	p, _ := currentPrincipal(r.Context())
	proposalID := routing.PathParam(r, "id")

	proposal, err := registry.SubmitForReview(r.Context(), proposalID, p.Actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, proposal)
}

func handleFieldProposalsPending(w http.ResponseWriter, r *http.Request, registry *fieldservices.RegistryService) {
	pending, err := registry.ListPending(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, map[string]any{"proposals": pending})
}

type decideFieldPayload struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment"`
}

func handleFieldProposalDecision(w http.ResponseWriter, r *http.Request, registry *fieldservices.RegistryService) {
	p, _ := currentPrincipal(r.Context())
	proposalID := routing.PathParam(r, "id")

	var payload decideFieldPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	result, err := registry.Decide(r.Context(), fieldservices.DecideFieldRequest{
		ProposalID: proposalID,
		Reviewer:   p.Actor,
		Approve:    payload.Approve,
		Comment:    payload.Comment,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, result)
}

func handleFieldCatalog(w http.ResponseWriter, r *http.Request, catalog *fieldservices.CatalogService) {
	grouped, err := catalog.ListByCategory(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, map[string]any{"catalog": grouped})
}

// handleFieldBackfill re-runs the backfill for one approved field, for
// operators picking up after a partial pass.
func handleFieldBackfill(w http.ResponseWriter, r *http.Request, catalog *fieldservices.CatalogService, engine *fieldservices.BackfillEngine) {
	fieldID := routing.PathParam(r, "id")

	field, err := catalog.Get(r.Context(), fieldID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	report, err := engine.Backfill(r.Context(), field)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, report)
}
