package reporting_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/procuredesk/procuredesk/internal/reporting"
	"github.com/procuredesk/procuredesk/internal/users"
)

func newRouter(t *testing.T, actor *users.User) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if actor != nil {
				req = req.WithContext(users.ContextWithUser(req.Context(), *actor))
			}
			next.ServeHTTP(w, req)
		})
	})
	svc := newService(t, &countingSource{rows: performanceRows()})
	reporting.NewHandler(nil, svc).MountRoutes(r)
	return r
}

func TestHandlerDashboard(t *testing.T) {
	actor := client
	rec := httptest.NewRecorder()
	newRouter(t, &actor).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats reporting.DashboardStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, 3, stats.Total)
}

func TestHandlerBuyersForbiddenForClient(t *testing.T) {
	actor := client
	rec := httptest.NewRecorder()
	newRouter(t, &actor).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/buyers", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerRefreshAdminOnly(t *testing.T) {
	actor := admin
	rec := httptest.NewRecorder()
	newRouter(t, &actor).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reports/buyers/refresh", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	newRouter(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reports/buyers/refresh", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
