package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/privsys/ropa-registry/internal/routing"
	auditservices "github.com/privsys/ropa-registry/modules/audit/services"
	"github.com/privsys/ropa-registry/pkg/authz"
)

func loadAuthorizer() (*authz.Authorizer, error) {
	modelPath := os.Getenv("AUTHZ_MODEL_PATH")
	if modelPath == "" {
		p, err := defaultConfigPath("configs/authz_model.conf", "authz model")
		if err != nil {
			return nil, err
		}
		modelPath = p
	}

	policyPath := os.Getenv("AUTHZ_POLICY_PATH")
	if policyPath == "" {
		p, err := defaultConfigPath("configs/authz_policy.csv", "authz policy")
		if err != nil {
			return nil, err
		}
		policyPath = p
	}

	mode, err := authz.ModeFromEnv()
	if err != nil {
		return nil, err
	}

	return authz.NewAuthorizer(modelPath, policyPath, mode)
}

func defaultConfigPath(path string, what string) (string, error) {
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: " + what + " not found")
}

type authorizer interface {
	Authorize(subject string, object string, action string) (allowed bool, enforced bool, err error)
}

const auditKindPermissionDenied = "PERMISSION_DENIED"

func withAuthz(a authorizer, audit *auditservices.Emitter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		switch path {
		case "/health", "/healthz":
			next.ServeHTTP(w, r)
			return
		}

		actor := ""
		role := authz.RoleAnonymous
		if p, ok := currentPrincipal(r.Context()); ok {
			actor = p.Actor
			role = p.Role
		}
		if actor == "" {
			actor = "anonymous"
		}
		subject := authz.SubjectFromRole(role)

		object, action, shouldCheck := authzRequirementForRoute(r.Method, path)
		if !shouldCheck {
			next.ServeHTTP(w, r)
			return
		}

		allowed, enforced, err := a.Authorize(subject, object, action)
		if err != nil {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusInternalServerError, "authz_error", "authz error")
			return
		}
		if enforced && !allowed {
			// The denial itself is the security event; never let a failed
			// trail write turn a 403 into a 500.
			_ = audit.EmitWithExtra(r.Context(), auditKindPermissionDenied, actor,
				r.Method+" "+path+" denied for "+subject,
				map[string]any{"object": object, "action": action})
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusForbidden, "forbidden", "forbidden")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func authzRequirementForRoute(method string, path string) (object string, action string, ok bool) {
	if pathMatchRouteTemplate(path, "/api/fields/proposals/{id}/submit-review") {
		if method == http.MethodPost {
			return authz.ObjectFieldProposals, authz.ActionWrite, true
		}
		return "", "", false
	}
	if pathMatchRouteTemplate(path, "/api/fields/proposals/{id}/decision") {
		if method == http.MethodPost {
			return authz.ObjectFieldProposals, authz.ActionDecide, true
		}
		return "", "", false
	}
	if pathMatchRouteTemplate(path, "/api/fields/{id}/backfill") {
		if method == http.MethodPost {
			return authz.ObjectFieldBackfill, authz.ActionWrite, true
		}
		return "", "", false
	}
	if pathMatchRouteTemplate(path, "/api/records/{id}/status") {
		if method == http.MethodPost {
			return authz.ObjectRecords, authz.ActionWrite, true
		}
		return "", "", false
	}
	if pathMatchRouteTemplate(path, "/api/records/{id}/custom-data") {
		switch method {
		case http.MethodGet:
			return authz.ObjectRecordCustomData, authz.ActionRead, true
		case http.MethodPut:
			return authz.ObjectRecordCustomData, authz.ActionWrite, true
		}
		return "", "", false
	}
	if pathMatchRouteTemplate(path, "/api/records/{id}") {
		switch method {
		case http.MethodGet:
			return authz.ObjectRecords, authz.ActionRead, true
		case http.MethodPut:
			return authz.ObjectRecords, authz.ActionWrite, true
		case http.MethodDelete:
			return authz.ObjectRecords, authz.ActionDecide, true
		}
		return "", "", false
	}

	switch path {
	case "/api/fields/proposals":
		if method == http.MethodPost {
			return authz.ObjectFieldProposals, authz.ActionWrite, true
		}
		return "", "", false
	case "/api/fields/proposals/pending":
		if method == http.MethodGet {
			return authz.ObjectFieldProposals, authz.ActionDecide, true
		}
		return "", "", false
	case "/api/fields/catalog":
		if method == http.MethodGet {
			return authz.ObjectFieldCatalog, authz.ActionRead, true
		}
		return "", "", false
	case "/api/records":
		switch method {
		case http.MethodGet:
			return authz.ObjectRecords, authz.ActionRead, true
		case http.MethodPost:
			return authz.ObjectRecords, authz.ActionWrite, true
		}
		return "", "", false
	case "/api/audit/events":
		if method == http.MethodGet {
			return authz.ObjectAuditEvents, authz.ActionRead, true
		}
		return "", "", false
	}
	return "", "", false
}

func pathMatchRouteTemplate(path string, template string) bool {
	p, ok := routing.ParsePathPattern(template)
	if !ok {
		return false
	}
	return p.Match(path)
}
