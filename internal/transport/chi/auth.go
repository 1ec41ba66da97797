package chi

import (
	"net/http"
	"strings"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens.
// If apiKeys is empty, authentication is disabled (pass-through).
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			if _, ok := validKeys[auth[len(bearerPrefix):]]; !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Role is the caller role asserted by the upstream gateway.
type Role string

// Caller roles.
const (
	RoleSupplier     Role = "supplier"
	RoleOrganization Role = "organization"
	RoleAdmin        Role = "admin"
)

// DefaultRoleHeader carries the caller role when none is configured.
const DefaultRoleHeader = "X-Caller-Role"

// RequireRole rejects requests whose role header is not one of allowed.
// The header is trusted as-is; identity checks happen upstream.
func RequireRole(header string, allowed ...Role) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultRoleHeader
	}
	set := make(map[Role]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := Role(strings.ToLower(strings.TrimSpace(r.Header.Get(header))))
			if role == "" {
				writeError(w, http.StatusForbidden, CodeForbidden, "missing caller role")
				return
			}
			if _, ok := set[role]; !ok {
				writeError(w, http.StatusForbidden, CodeForbidden, "role "+string(role)+" may not call this endpoint")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
