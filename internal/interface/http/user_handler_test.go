package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-users-api/config"
	"github.com/oksasatya/go-users-api/internal/container"
	"github.com/oksasatya/go-users-api/internal/domain/repository"
	"github.com/oksasatya/go-users-api/internal/router"
	"github.com/oksasatya/go-users-api/internal/testutil"
	"github.com/oksasatya/go-users-api/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type user struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type errorBody struct {
	Detail    string            `json:"detail"`
	RequestID string            `json:"request_id"`
	Errors    map[string]string `json:"errors"`
}

func testConfig() *config.Config {
	return &config.Config{CORSAllowedOrigins: "http://localhost:5173", ESUsersIndex: "users"}
}

func newServer(t *testing.T, cfg *config.Config, store repository.Store) *gin.Engine {
	t.Helper()
	logger, _ := testutil.NullLogger()
	if store == nil {
		store = testutil.OpenInMemoryStore(t, t.Name())
	}
	return router.NewEngine(container.New(cfg, logger, store, nil, nil, nil))
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var janPayload = map[string]string{"name": "Jan Kowalski", "email": "jan.kowalski@example.com", "role": "admin"}

func TestRoot(t *testing.T) {
	h := newServer(t, testConfig(), nil)

	w := do(t, h, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]string](t, w)
	assert.NotEmpty(t, body["message"])
}

func TestUserLifecycle(t *testing.T) {
	h := newServer(t, testConfig(), nil)

	w := do(t, h, http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(t, h, http.MethodPost, "/users", janPayload)
	require.Equal(t, http.StatusOK, w.Code)
	created := decode[user](t, w)
	assert.Equal(t, user{ID: 1, Name: "Jan Kowalski", Email: "jan.kowalski@example.com", Role: "admin"}, created)

	w = do(t, h, http.MethodPost, "/users", janPayload)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already registered", decode[errorBody](t, w).Detail)

	w = do(t, h, http.MethodGet, "/users", nil)
	assert.Len(t, decode[[]user](t, w), 1)

	w = do(t, h, http.MethodGet, "/users/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created, decode[user](t, w))

	w = do(t, h, http.MethodPut, "/users/1", map[string]string{"role": "super_admin"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[user](t, w)
	assert.Equal(t, "super_admin", updated.Role)
	assert.Equal(t, created.Name, updated.Name)
	assert.Equal(t, created.Email, updated.Email)

	w = do(t, h, http.MethodDelete, "/users/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"User deleted successfully"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/users/1", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", decode[errorBody](t, w).Detail)
}

func TestMissingUser(t *testing.T) {
	h := newServer(t, testConfig(), nil)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		w := do(t, h, method, "/users/9999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code, method)
	}
	w := do(t, h, http.MethodPut, "/users/9999", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNonIntegerID(t *testing.T) {
	h := newServer(t, testConfig(), nil)

	w := do(t, h, http.MethodGet, "/users/abc", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, "must be an integer", body.Errors["id"])
	assert.NotEmpty(t, body.RequestID)
	assert.Equal(t, w.Header().Get("X-Request-ID"), body.RequestID)
}

func TestCreateUser_Validation(t *testing.T) {
	h := newServer(t, testConfig(), nil)
	long := string(bytes.Repeat([]byte("a"), 101))

	cases := []struct {
		name  string
		body  any
		field string
	}{
		{"missing email", map[string]string{"name": "Jan", "role": "admin"}, "email"},
		{"empty role", map[string]string{"name": "Jan", "email": "j@example.com", "role": ""}, "role"},
		{"name too long", map[string]string{"name": long, "email": "j@example.com", "role": "admin"}, "name"},
		{"broken json", `{"name":}`, "payload"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/users", tc.body)
			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Contains(t, decode[errorBody](t, w).Errors, tc.field)
		})
	}

	w := do(t, h, http.MethodGet, "/users", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestUpdateUser_NullAndEmpty(t *testing.T) {
	h := newServer(t, testConfig(), nil)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/users", janPayload).Code)

	w := do(t, h, http.MethodPut, "/users/1", `{"name":null,"role":"editor"}`)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[user](t, w)
	assert.Equal(t, "Jan Kowalski", got.Name)
	assert.Equal(t, "editor", got.Role)

	w = do(t, h, http.MethodPut, "/users/1", `{"name":""}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", decode[user](t, w).Name)

	w = do(t, h, http.MethodPut, "/users/1", `{"role":7}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUpdateUser_EmailConflict(t *testing.T) {
	h := newServer(t, testConfig(), nil)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/users", janPayload).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/users",
		map[string]string{"name": "Anna Nowak", "email": "anna.nowak@example.com", "role": "user"}).Code)

	w := do(t, h, http.MethodPut, "/users/2", map[string]string{"email": "jan.kowalski@example.com"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already registered", decode[errorBody](t, w).Detail)

	w = do(t, h, http.MethodGet, "/users/2", nil)
	assert.Equal(t, "anna.nowak@example.com", decode[user](t, w).Email)
}

func TestTrailingSlash_ServedWithCORS(t *testing.T) {
	h := newServer(t, testConfig(), nil)
	const origin = "http://localhost:5173"

	send := func(method string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, "/users/", &buf)
		req.Header.Set("Origin", origin)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	w := send(http.MethodPost, janPayload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))

	w = send(http.MethodGet, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
	assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
	require.Len(t, decode[[]user](t, w), 1)

	req := httptest.NewRequest(http.MethodOptions, "/users/", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	pre := httptest.NewRecorder()
	h.ServeHTTP(pre, req)
	assert.Equal(t, http.StatusNoContent, pre.Code)
	assert.Equal(t, origin, pre.Header().Get("Access-Control-Allow-Origin"))
}

func TestSearchUsers(t *testing.T) {
	h := newServer(t, testConfig(), nil)

	w := do(t, h, http.MethodGet, "/users/search", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, h, http.MethodGet, "/users/search?q=jan&size=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestAPIPrefix(t *testing.T) {
	cfg := testConfig()
	cfg.APIPrefix = "/api"
	h := newServer(t, cfg, nil)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/users", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/users", nil).Code)
}

func TestHealthAndDebug(t *testing.T) {
	cfg := testConfig()
	cfg.DebugMetricsEnabled = true
	h := newServer(t, cfg, nil)

	w := do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/debug/vars", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, newServer(t, testConfig(), brokenStore{}), http.MethodGet, "/debug/vars", nil).Code)
}

type brokenStore struct{}

func (brokenStore) WithinUnitOfWork(context.Context, func(repository.UserRepository) error) error {
	return errors.New("connection reset")
}

func (brokenStore) Ping(context.Context) error { return errors.New("connection reset") }

func TestStoreFailures(t *testing.T) {
	h := newServer(t, testConfig(), brokenStore{})

	w := do(t, h, http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decode[errorBody](t, w).Detail)

	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/healthz", nil).Code)
}
