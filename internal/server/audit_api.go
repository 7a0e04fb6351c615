package server

import (
	"net/http"
	"strconv"

	"github.com/privsys/ropa-registry/internal/routing"
	auditservices "github.com/privsys/ropa-registry/modules/audit/services"
)

func handleAuditEvents(w http.ResponseWriter, r *http.Request, query *auditservices.QueryService) {
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	events, total, err := query.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"total":  total,
	})
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
