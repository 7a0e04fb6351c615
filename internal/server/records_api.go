package server

import (
	"encoding/json"
	"net/http"

	"github.com/privsys/ropa-registry/internal/routing"
	recordtypes "github.com/privsys/ropa-registry/modules/records/domain/types"
	recordservices "github.com/privsys/ropa-registry/modules/records/services"
)

func callerFromRequest(r *http.Request) recordservices.Caller {
	p, _ := currentPrincipal(r.Context())
	return recordservices.Caller{Actor: p.Actor, Role: p.Role}
}

type recordResponse struct {
	recordtypes.Record
	ComplianceScore float64 `json:"compliance_score"`
}

func toRecordResponse(w http.ResponseWriter, r *http.Request, record recordtypes.Record, status int) {
	score, err := recordservices.ComplianceScore(record)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, status, recordResponse{Record: record, ComplianceScore: score})
}

func handleRecordCreate(w http.ResponseWriter, r *http.Request, records *recordservices.RecordService) {
	var payload recordtypes.Record
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	record, err := records.Create(r.Context(), payload, callerFromRequest(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	toRecordResponse(w, r, record, http.StatusCreated)
}

func handleRecordList(w http.ResponseWriter, r *http.Request, records *recordservices.RecordService) {
	status := recordtypes.RecordStatus(r.URL.Query().Get("status"))
	list, err := records.List(r.Context(), status, callerFromRequest(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, map[string]any{"records": list})
}

func handleRecordGet(w http.ResponseWriter, r *http.Request, records *recordservices.RecordService) {
	record, err := records.Get(r.Context(), routing.PathParam(r, "id"), callerFromRequest(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	toRecordResponse(w, r, record, http.StatusOK)
}

func handleRecordUpdate(w http.ResponseWriter, r *http.Request, records *recordservices.RecordService) {
	var payload recordtypes.Record
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	record, err := records.Update(r.Context(), routing.PathParam(r, "id"), payload, callerFromRequest(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	toRecordResponse(w, r, record, http.StatusOK)
}

type recordStatusPayload struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

func handleRecordStatus(w http.ResponseWriter, r *http.Request, records *recordservices.RecordService) {
	var payload recordStatusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	record, err := records.UpdateStatus(r.Context(), routing.PathParam(r, "id"),
		recordtypes.RecordStatus(payload.Status), payload.Comment, callerFromRequest(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	toRecordResponse(w, r, record, http.StatusOK)
}

func handleRecordDelete(w http.ResponseWriter, r *http.Request, records *recordservices.RecordService) {
	if err := records.Delete(r.Context(), routing.PathParam(r, "id"), callerFromRequest(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
