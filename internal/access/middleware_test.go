package access

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keystone-iam/keystone/internal/shared"
)

type checkerFunc func(ctx context.Context, userID int64, module, action string) (bool, error)

func (f checkerFunc) Allowed(ctx context.Context, userID int64, module, action string) (bool, error) {
	return f(ctx, userID, module, action)
}

func requestWithPrincipal(t *testing.T, userID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	sess := &shared.Session{}
	if userID != "" {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAllowsGrantedPrincipal(t *testing.T) {
	mw := Middleware{
		Checker: checkerFunc(func(ctx context.Context, userID int64, module, action string) (bool, error) {
			require.EqualValues(t, 7, userID)
			require.Equal(t, shared.ModuleUsers, module)
			require.Equal(t, shared.ActionRead, action)
			return true, nil
		}),
		Logger: slog.Default(),
	}

	rec := httptest.NewRecorder()
	mw.Require(shared.ModuleUsers, shared.ActionRead)(okHandler()).
		ServeHTTP(rec, requestWithPrincipal(t, "7"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRejectsAnonymous(t *testing.T) {
	mw := Middleware{
		Checker: checkerFunc(func(ctx context.Context, userID int64, module, action string) (bool, error) {
			t.Fatal("checker must not run without a principal")
			return false, nil
		}),
		Logger: slog.Default(),
	}

	rec := httptest.NewRecorder()
	mw.Require(shared.ModuleUsers, shared.ActionRead)(okHandler()).
		ServeHTTP(rec, requestWithPrincipal(t, ""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireDeniesMissingGrant(t *testing.T) {
	mw := Middleware{
		Checker: checkerFunc(func(ctx context.Context, userID int64, module, action string) (bool, error) {
			return false, nil
		}),
		Logger: slog.Default(),
	}

	rec := httptest.NewRecorder()
	mw.Require(shared.ModuleGroups, shared.ActionDelete)(okHandler()).
		ServeHTTP(rec, requestWithPrincipal(t, "7"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), shared.ModuleGroups)
}

func TestRequireFailsClosedOnStoreError(t *testing.T) {
	mw := Middleware{
		Checker: checkerFunc(func(ctx context.Context, userID int64, module, action string) (bool, error) {
			return false, errors.New("store down")
		}),
		Logger: slog.Default(),
	}

	rec := httptest.NewRecorder()
	mw.Require(shared.ModuleUsers, shared.ActionRead)(okHandler()).
		ServeHTTP(rec, requestWithPrincipal(t, "7"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireAuthenticated(t *testing.T) {
	mw := Middleware{Logger: slog.Default()}

	rec := httptest.NewRecorder()
	mw.RequireAuthenticated(okHandler()).ServeHTTP(rec, requestWithPrincipal(t, "7"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mw.RequireAuthenticated(okHandler()).ServeHTTP(rec, requestWithPrincipal(t, ""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
