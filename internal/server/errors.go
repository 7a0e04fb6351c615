package server

import (
	"errors"
	"net/http"

	"github.com/privsys/ropa-registry/internal/routing"
	"github.com/privsys/ropa-registry/pkg/httperr"
)

// writeServiceError translates a service-layer error into the routing
// error envelope. Error messages are stable UPPER_SNAKE codes already.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	rc := routing.RouteClassInternalAPI
	switch {
	case httperr.IsValidation(err):
		routing.WriteError(w, r, rc, http.StatusBadRequest, "validation_failed", err.Error())
	case httperr.IsForbidden(err):
		routing.WriteError(w, r, rc, http.StatusForbidden, "forbidden", err.Error())
	case httperr.IsNotFound(err):
		routing.WriteError(w, r, rc, http.StatusNotFound, "not_found", err.Error())
	case httperr.IsInvalidState(err):
		routing.WriteError(w, r, rc, http.StatusConflict, "invalid_state", err.Error())
	case httperr.IsPersistence(err):
		writePersistenceError(w, r, rc, err)
	default:
		routing.WriteError(w, r, rc, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// writePersistenceError unwraps a store failure and checks it against the
// named-constraint mapping: a duplicate that slips past a service pre-check
// and trips a unique constraint surfaces under its stable code, not as a
// generic 500.
func writePersistenceError(w http.ResponseWriter, r *http.Request, rc routing.RouteClass, err error) {
	var pe *httperr.PersistenceError
	if ok := errors.As(err, &pe); ok && pe != nil {
		if cause := pe.Unwrap(); cause != nil {
			switch stablePgMessage(cause) {
			case "FIELD_NAME_TAKEN":
				routing.WriteError(w, r, rc, http.StatusBadRequest, "validation_failed", "FIELD_NAME_TAKEN")
				return
			case "FIELD_VALUE_DUPLICATE":
				routing.WriteError(w, r, rc, http.StatusConflict, "invalid_state", "FIELD_VALUE_DUPLICATE")
				return
			}
		}
	}
	routing.WriteError(w, r, rc, http.StatusInternalServerError, "internal_error", err.Error())
}
