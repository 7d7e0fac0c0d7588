package procurement_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/procuredesk/procuredesk/internal/procurement"
	"github.com/procuredesk/procuredesk/internal/users"
)

func newTestRouter(t *testing.T, h *harness, actor *users.User) http.Handler {
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
	procurement.NewHandler(nil, h.svc).MountRoutes(r)
	return r
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandlerRequiresActor(t *testing.T) {
	router := newTestRouter(t, newHarness(t), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/requests", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerListFiltersForClient(t *testing.T) {
	actor := client2
	router := newTestRouter(t, newHarness(t), &actor)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/requests", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Requests []procurement.Request `json:"requests"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Requests, 2)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/requests/req-1001", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerAcceptAndStage(t *testing.T) {
	actor := buyer1
	router := newTestRouter(t, newHarness(t), &actor)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/requests/req-1003/accept", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "synced", body["sync"])
	require.Equal(t, "u-buyer-1", body["request"].(map[string]any)["buyerId"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/requests/req-1003/stage", strings.NewReader(`{"stage":"Delivered"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "completed", decodeBody(t, rec)["request"].(map[string]any)["status"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/requests/req-1003/decline", nil))
	require.Equal(t, http.StatusConflict, rec.Code)
	problem := decodeBody(t, rec)
	require.Equal(t, "Invalid State", problem["title"])
	require.Equal(t, "error", problem["notification"].(map[string]any)["kind"])
}

func TestHandlerDeleteLastItemConflict(t *testing.T) {
	actor := admin
	router := newTestRouter(t, newHarness(t), &actor)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/requests/req-1003/items/req-1003-item-1", nil))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestHandlerRejectsUnknownFields(t *testing.T) {
	actor := admin
	router := newTestRouter(t, newHarness(t), &actor)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/requests/req-1003", strings.NewReader(`{"qtyPending":3}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerUploadMultipart(t *testing.T) {
	actor := admin
	h := newHarness(t)
	router := newTestRouter(t, h, &actor)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "packing-list.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("sku,qty\nHH-200,10\n"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("isPublic", "true"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/requests/req-1002/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	stored := h.get(t, "req-1002")
	require.Len(t, stored.Files, 1)
	require.Equal(t, "packing-list.csv", stored.Files[0].Name)
	require.True(t, stored.Files[0].IsPublic)
	require.Len(t, h.blob.keys, 1)
}
