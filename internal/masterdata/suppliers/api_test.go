package suppliers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inventaris/inventaris/internal/platform/httpx"
	"github.com/inventaris/inventaris/internal/rbac"
	internalShared "github.com/inventaris/inventaris/internal/shared"
)

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = make(map[string]struct{})
	}
	if _, ok := m.keys[module+"/"+key]; ok {
		return internalShared.ErrIdempotencyConflict
	}
	m.keys[module+"/"+key] = struct{}{}
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, module+"/"+key)
	return nil
}

type apiFixture struct {
	repo   *mockRepository
	svc    *Service
	idem   *memoryIdempotency
	router http.Handler
}

func newAPIFixture(t *testing.T, userID int64) *apiFixture {
	t.Helper()
	repo := newMockRepository()
	svc := newTestService(repo, ServiceConfig{})
	idem := &memoryIdempotency{}
	handler := NewAPIHandler(nil, svc, idem, rbac.Middleware{Source: testPermissions})

	r := chi.NewRouter()
	r.Use(withSession(newSession(t, userID)))
	r.Route("/api/suppliers", handler.MountRoutes)
	return &apiFixture{repo: repo, svc: svc, idem: idem, router: r}
}

func (f *apiFixture) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var p httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestAPICreateAndGet(t *testing.T) {
	f := newAPIFixture(t, editorID)

	rec := f.do(http.MethodPost, "/api/suppliers", `{"supplierName":"Acme","contactInfo":"a@x.com"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Supplier
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Acme", created.SupplierName)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.Equal(t, "/api/suppliers/"+strconv.FormatInt(created.ID, 10), rec.Header().Get("Location"))

	got := f.do(http.MethodGet, rec.Header().Get("Location"), "", nil)
	require.Equal(t, http.StatusOK, got.Code)
	assert.Contains(t, got.Body.String(), `"contactInfo":"a@x.com"`)
}

func TestAPIListIsNeverNull(t *testing.T) {
	f := newAPIFixture(t, viewerID)

	rec := f.do(http.MethodGet, "/api/suppliers", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAPICreateDuplicateIsValidationProblem(t *testing.T) {
	f := newAPIFixture(t, editorID)
	mustCreate(t, f.svc, "Acme", "a@x.com")

	rec := f.do(http.MethodPost, "/api/suppliers", `{"supplierName":"","contactInfo":"A@X.COM"}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	p := decodeProblem(t, rec)
	assert.Equal(t, msgDuplicateContact, p.Errors["contactInfo"])
	assert.Equal(t, "Supplier name is required.", p.Errors["supplierName"])
}

func TestAPICreateRejectsMalformedBody(t *testing.T) {
	f := newAPIFixture(t, editorID)

	rec := f.do(http.MethodPost, "/api/suppliers", `{"supplierName":`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.repo.count())
}

func TestAPIGetMissingIsProblem(t *testing.T) {
	f := newAPIFixture(t, viewerID)

	rec := f.do(http.MethodGet, "/api/suppliers/404", "", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decodeProblem(t, rec).Status)
}

func TestAPIUpdate(t *testing.T) {
	f := newAPIFixture(t, editorID)
	created := mustCreate(t, f.svc, "Acme", "a@x.com")
	target := "/api/suppliers/" + strconv.FormatInt(created.ID, 10)

	rec := f.do(http.MethodPut, target, `{"supplierName":"Acme LLC","contactInfo":"a@x.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated Supplier
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Acme LLC", updated.SupplierName)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	mismatch := f.do(http.MethodPut, target, `{"id":999,"supplierName":"X","contactInfo":"x@x.com"}`, nil)
	assert.Equal(t, http.StatusNotFound, mismatch.Code)
}

func TestAPIUpdateConflict(t *testing.T) {
	f := newAPIFixture(t, editorID)
	created := mustCreate(t, f.svc, "Acme", "a@x.com")
	f.repo.beforeUpdate = func(m *mockRepository, id int64) {
		m.mu.Lock()
		defer m.mu.Unlock()
		s := m.suppliers[id]
		s.UpdatedAt = s.UpdatedAt.Add(1)
		m.suppliers[id] = s
	}

	rec := f.do(http.MethodPut, "/api/suppliers/"+strconv.FormatInt(created.ID, 10), `{"supplierName":"Acme LLC","contactInfo":"a@x.com"}`, nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Conflict", decodeProblem(t, rec).Title)
}

func TestAPIDeleteIsIdempotent(t *testing.T) {
	f := newAPIFixture(t, editorID)
	created := mustCreate(t, f.svc, "Acme", "a@x.com")
	target := "/api/suppliers/" + strconv.FormatInt(created.ID, 10)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, target, "", nil).Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, target, "", nil).Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/suppliers/99999", "", nil).Code)
	assert.Zero(t, f.repo.count())
}

func TestAPIIdempotencyKey(t *testing.T) {
	f := newAPIFixture(t, editorID)
	headers := map[string]string{"Idempotency-Key": "req-1"}

	first := f.do(http.MethodPost, "/api/suppliers", `{"supplierName":"Acme","contactInfo":"a@x.com"}`, headers)
	require.Equal(t, http.StatusCreated, first.Code)

	replay := f.do(http.MethodPost, "/api/suppliers", `{"supplierName":"Acme","contactInfo":"other@x.com"}`, headers)
	assert.Equal(t, http.StatusConflict, replay.Code)
	assert.Equal(t, 1, f.repo.count())
}

func TestAPIIdempotencyKeyReleasedOnFailure(t *testing.T) {
	f := newAPIFixture(t, editorID)
	headers := map[string]string{"Idempotency-Key": "req-2"}

	failed := f.do(http.MethodPost, "/api/suppliers", `{"supplierName":"","contactInfo":"a@x.com"}`, headers)
	require.Equal(t, http.StatusBadRequest, failed.Code)

	retry := f.do(http.MethodPost, "/api/suppliers", `{"supplierName":"Acme","contactInfo":"a@x.com"}`, headers)
	assert.Equal(t, http.StatusCreated, retry.Code)
}

func TestAPIAnonymousIsUnauthorized(t *testing.T) {
	f := newAPIFixture(t, 0)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/suppliers", "", nil).Code)
}

func TestAPIViewerCannotWrite(t *testing.T) {
	f := newAPIFixture(t, viewerID)

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/api/suppliers", `{"supplierName":"Acme","contactInfo":"a@x.com"}`, nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodDelete, "/api/suppliers/1", "", nil).Code)
}
