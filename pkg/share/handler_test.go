package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/sharegate/pkg/auth"
	"github.com/parleychat/sharegate/pkg/observability"
	"github.com/parleychat/sharegate/pkg/storage"
)

var gatewaySecret = []byte("gateway-test-secret")

type fixture struct {
	router *mux.Router
	store  *storage.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewMemoryStore()
	handler := NewHandler(store, gatewaySecret, observability.NewMetrics())
	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return &fixture{router: router, store: store}
}

func mintToken(t *testing.T, subject string, claims map[string]string) string {
	t.Helper()
	token, err := auth.CreateToken(subject, claims, gatewaySecret)
	require.NoError(t, err)
	return token
}

func apiToken(t *testing.T, subject string) string {
	return mintToken(t, subject, map[string]string{auth.RoleClaim: auth.RoleAPI})
}

func idToken(t *testing.T, subject string) string {
	return mintToken(t, subject, map[string]string{"name": subject})
}

type requestOpt func(*http.Request)

func withCookies(access, id string) requestOpt {
	return func(r *http.Request) {
		if access != "" {
			r.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: access})
		}
		if id != "" {
			r.AddCookie(&http.Cookie{Name: auth.IDTokenCookie, Value: id})
		}
	}
}

func withContentType(ct string) requestOpt {
	return func(r *http.Request) {
		r.Header.Set("Content-Type", ct)
	}
}

func (f *fixture) do(method, path string, body []byte, opts ...requestOpt) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, bytes.NewReader(body))
	for _, opt := range opts {
		opt(r)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

// authedPut issues a fully-authorized JSON PUT for the subject.
func (f *fixture) authedPut(t *testing.T, subject, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(http.MethodPut, path, body,
		withCookies(apiToken(t, subject), idToken(t, subject)),
		withContentType("application/json"),
	)
}

func TestSaveStoresChatAndRefreshesCookies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Owner starts with 3 chats, 1 of them recent.
	old := time.Now().Add(-48 * time.Hour)
	f.store.SetClock(func() time.Time { return old })
	require.NoError(t, f.store.Put(ctx, "alice/old1", []byte("{}"), "application/json"))
	require.NoError(t, f.store.Put(ctx, "alice/old2", []byte("{}"), "application/json"))
	f.store.SetClock(time.Now)
	require.NoError(t, f.store.Put(ctx, "alice/fresh", []byte("{}"), "application/json"))

	body := []byte(`{"title":"shared"}`)
	w := f.authedPut(t, "alice", "/api/share/alice/123", body)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"message":"Shared chat saved"}`, w.Body.String())

	obj, err := f.store.Get(ctx, "alice/123")
	require.NoError(t, err)
	assert.Equal(t, body, obj.Body)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2, "both cookies are refreshed on success")
	names := []string{cookies[0].Name, cookies[1].Name}
	assert.ElementsMatch(t, []string{auth.AccessTokenCookie, auth.IDTokenCookie}, names)
}

func TestSaveMissingCookies(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPut, "/api/share/alice/123", []byte("{}"),
		withContentType("application/json"),
		withCookies("", idToken(t, "alice")),
	)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Missing Access Token")

	w = f.do(http.MethodPut, "/api/share/alice/123", []byte("{}"),
		withContentType("application/json"),
		withCookies(apiToken(t, "alice"), ""),
	)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Missing ID Token")

	assert.Equal(t, 0, f.store.Len(), "no mutation on failed auth")
}

func TestSaveRequiresJSONContentType(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPut, "/api/share/alice/123", []byte("{}"),
		withCookies(apiToken(t, "alice"), idToken(t, "alice")),
		withContentType("text/plain"),
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, f.store.Len())
}

func TestSaveRejectsUnverifiableTokens(t *testing.T) {
	f := newFixture(t)

	for name, access := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": mustSign(t, "alice"),
	} {
		t.Run(name, func(t *testing.T) {
			w := f.do(http.MethodPut, "/api/share/alice/123", []byte("{}"),
				withCookies(access, idToken(t, "alice")),
				withContentType("application/json"),
			)
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Contains(t, w.Body.String(), "Invalid Access Token")
		})
	}
	assert.Equal(t, 0, f.store.Len())
}

// mustSign mints a token under a different secret than the gateway's.
func mustSign(t *testing.T, subject string) string {
	t.Helper()
	token, err := auth.CreateToken(subject, map[string]string{auth.RoleClaim: auth.RoleAPI}, []byte("other-secret"))
	require.NoError(t, err)
	return token
}

func TestSaveOwnershipMismatch(t *testing.T) {
	f := newFixture(t)

	// A valid token for bob must never write under alice's prefix.
	w := f.do(http.MethodPut, "/api/share/alice/chat1", []byte("{}"),
		withCookies(apiToken(t, "bob"), idToken(t, "bob")),
		withContentType("application/json"),
	)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Access Token does not match username")
	assert.Equal(t, 0, f.store.Len())
}

func TestSaveMissingRole(t *testing.T) {
	f := newFixture(t)

	noRole := mintToken(t, "alice", map[string]string{"name": "Alice"})
	w := f.do(http.MethodPut, "/api/share/alice/123", []byte("{}"),
		withCookies(noRole, idToken(t, "alice")),
		withContentType("application/json"),
	)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Access Token missing role")
}

func TestSaveTotalQuotaExceeded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 500 existing objects, all old enough to stay clear of the rate window.
	f.store.SetClock(func() time.Time { return time.Now().Add(-72 * time.Hour) })
	for i := 0; i < MaxChatsPerOwner; i++ {
		require.NoError(t, f.store.Put(ctx, fmt.Sprintf("alice/chat%d", i), []byte("{}"), "application/json"))
	}
	f.store.SetClock(time.Now)

	w := f.authedPut(t, "alice", "/api/share/alice/next", []byte("{}"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Too many shared chats")
	assert.Equal(t, MaxChatsPerOwner, f.store.Len())
}

func TestSaveDailyQuotaExceeded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < MaxDailyChats; i++ {
		require.NoError(t, f.store.Put(ctx, fmt.Sprintf("alice/today%d", i), []byte("{}"), "application/json"))
	}

	w := f.authedPut(t, "alice", "/api/share/alice/next", []byte("{}"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Daily share limit reached")
}

func TestSaveJustUnderCeilings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < MaxDailyChats-1; i++ {
		require.NoError(t, f.store.Put(ctx, fmt.Sprintf("alice/today%d", i), []byte("{}"), "application/json"))
	}

	w := f.authedPut(t, "alice", "/api/share/alice/last", []byte("{}"))
	assert.Equal(t, http.StatusOK, w.Code, "the write reaching the ceiling is the last one permitted")
}

func TestSaveQuotaIsPerOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < MaxDailyChats; i++ {
		require.NoError(t, f.store.Put(ctx, fmt.Sprintf("bob/today%d", i), []byte("{}"), "application/json"))
	}

	// Bob's usage must not count against alice.
	w := f.authedPut(t, "alice", "/api/share/alice/chat1", []byte("{}"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadIsPublic(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"title":"shared"}`)

	w := f.authedPut(t, "alice", "/api/share/alice/123", body)
	require.Equal(t, http.StatusOK, w.Code)

	// No cookies, no auth.
	w = f.do(http.MethodGet, "/api/share/alice/123", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, w.Body.Bytes())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("ETag"))
	assert.Empty(t, w.Result().Cookies(), "public read never touches cookies")
}

func TestReadAbsent(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/share/alice/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteByOwner(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.authedPut(t, "alice", "/api/share/alice/123", []byte("{}")).Code)

	w := f.do(http.MethodDelete, "/api/share/alice/123", nil,
		withCookies(apiToken(t, "alice"), idToken(t, "alice")),
	)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Shared chat deleted"}`, w.Body.String())
	assert.Len(t, w.Result().Cookies(), 2)

	w = f.do(http.MethodGet, "/api/share/alice/123", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteOwnershipMismatch(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.authedPut(t, "alice", "/api/share/alice/123", []byte("{}")).Code)

	w := f.do(http.MethodDelete, "/api/share/alice/123", nil,
		withCookies(apiToken(t, "bob"), idToken(t, "bob")),
	)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Access Token does not match username")

	// Still present.
	w = f.do(http.MethodGet, "/api/share/alice/123", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteMissingCookies(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodDelete, "/api/share/alice/123", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Missing Access Token")
}

// Delete answers 400 for an unverifiable token where save answers 403. The
// difference looks unintended but is pinned here until the contract says
// otherwise.
func TestDeleteInvalidTokenIsBadRequest(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodDelete, "/api/share/alice/123", nil,
		withCookies("not-a-token", idToken(t, "alice")),
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "malformed")
}

func TestBadPathShapes(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{
		"/api/share",
		"/api/share/",
		"/api/share/alice",
		"/api/share/alice/123/extra",
	} {
		w := f.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "path %q", path)
	}
}

// failingStore errors on every operation.
type failingStore struct{}

var errStoreDown = errors.New("storage unreachable")

func (failingStore) Put(context.Context, string, []byte, string) error { return errStoreDown }
func (failingStore) Get(context.Context, string) (*storage.Object, error) {
	return nil, errStoreDown
}
func (failingStore) Delete(context.Context, string) error { return errStoreDown }
func (failingStore) List(context.Context, string) ([]storage.ObjectInfo, error) {
	return nil, errStoreDown
}
func (failingStore) HealthCheck(context.Context) error { return errStoreDown }

func TestStorageFailuresBecomeInternalErrors(t *testing.T) {
	handler := NewHandler(failingStore{}, gatewaySecret, observability.NewMetrics())
	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	f := &fixture{router: router}

	w := f.do(http.MethodPut, "/api/share/alice/123", []byte("{}"),
		withCookies(apiToken(t, "alice"), idToken(t, "alice")),
		withContentType("application/json"),
	)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Result().Cookies(), "no cookie refresh on storage failure")

	w = f.do(http.MethodGet, "/api/share/alice/123", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = f.do(http.MethodDelete, "/api/share/alice/123", nil,
		withCookies(apiToken(t, "alice"), idToken(t, "alice")),
	)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
