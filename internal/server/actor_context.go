package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/privsys/ropa-registry/pkg/authz"
)

// Principal is the caller identity asserted by the upstream auth proxy via
// the X-Actor and X-Actor-Role headers. The server trusts the proxy;
// authentication itself happens before requests reach us.
type Principal struct {
	Actor string
	Role  string
}

type principalContextKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

func currentPrincipal(ctx context.Context) (Principal, bool) {
	v := ctx.Value(principalContextKey{})
	if v == nil {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

func principalFromHeaders(r *http.Request) Principal {
	actor := strings.TrimSpace(r.Header.Get("X-Actor"))
	role := strings.TrimSpace(strings.ToLower(r.Header.Get("X-Actor-Role")))
	role = strings.ReplaceAll(role, " ", "-")
	switch role {
	case authz.RolePrivacyChampion, authz.RolePrivacyOfficer:
	default:
		role = authz.RoleAnonymous
	}
	return Principal{Actor: actor, Role: role}
}

func withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principalFromHeaders(r))))
	})
}
