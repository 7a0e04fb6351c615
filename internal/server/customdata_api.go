package server

import (
	"encoding/json"
	"net/http"

	"github.com/privsys/ropa-registry/internal/routing"
	fieldservices "github.com/privsys/ropa-registry/modules/fields/services"
	recordservices "github.com/privsys/ropa-registry/modules/records/services"
)

// Custom-data access rides on record access: the record service enforces
// ownership and existence before any cells are read or written.
func handleRecordCustomDataGet(w http.ResponseWriter, r *http.Request, records *recordservices.RecordService, custom *fieldservices.CustomDataService) {
	recordID := routing.PathParam(r, "id")
	if _, err := records.Get(r.Context(), recordID, callerFromRequest(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	data, err := custom.GetForRecord(r.Context(), recordID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, map[string]any{"custom_data": data})
}

type customDataPayload struct {
	Values map[string]string `json:"values"`
}

func handleRecordCustomDataPut(w http.ResponseWriter, r *http.Request, records *recordservices.RecordService, custom *fieldservices.CustomDataService) {
	recordID := routing.PathParam(r, "id")
	if _, err := records.Get(r.Context(), recordID, callerFromRequest(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	var payload customDataPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if err := custom.UpdateForRecord(r.Context(), recordID, payload.Values); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
