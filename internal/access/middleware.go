package access

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/keystone-iam/keystone/internal/observability"
	"github.com/keystone-iam/keystone/internal/platform/httpx"
	"github.com/keystone-iam/keystone/internal/shared"
)

// Checker is the decision contract the gate depends on.
type Checker interface {
	Allowed(ctx context.Context, userID int64, module, action string) (bool, error)
}

// Middleware guards HTTP handlers with a required (module, action) pair.
type Middleware struct {
	Checker Checker
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Require permits the wrapped handler only when the session principal holds a
// grant for the module/action pair. The check is read-only: a denial, or a
// store failure, blocks the request entirely. Store failures surface as 500,
// never as an allow or a plain 403.
func (m Middleware) Require(module, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			userID, ok := sess.PrincipalID()
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "not authenticated")
				return
			}
			allowed, err := m.Checker.Allowed(r.Context(), userID, module, action)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("permission check failed",
						slog.String("module", module),
						slog.String("action", action),
						slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "permission check error")
				return
			}
			if !allowed {
				m.Metrics.CountDenial(module, action)
				httpx.Problem(w, http.StatusForbidden, "Forbidden",
					fmt.Sprintf("access denied: insufficient %s permissions", module))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthenticated permits any principal with a verified session, with no
// specific grant. Used by the simulation and self-permission endpoints.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if _, ok := sess.PrincipalID(); !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}
