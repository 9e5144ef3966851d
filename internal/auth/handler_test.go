package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/inventaris/inventaris/internal/auth"
	"github.com/inventaris/inventaris/internal/shared"
	"github.com/inventaris/inventaris/internal/view"
	_ "github.com/inventaris/inventaris/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || !strings.EqualFold(s.user.Email, email) {
		return nil, auth.ErrUserNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	require.NoError(t, err)
	handler := auth.NewHandler(nil, auth.NewService(repo), templates, sessionManager, csrfManager)
	return handler, sessionManager
}

// serve runs fn with a session loaded from req and committed afterwards.
func serve(t *testing.T, sm *shared.SessionManager, fn http.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	fn(res, req)
	require.NoError(t, sm.Commit(ctx, res, req, sess))
	return res, sess
}

func postLogin(sm *shared.SessionManager, sessID, email, password, token string) *http.Request {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)
	form.Set("csrf_token", token)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sessID})
	return req
}

func activeUser(t *testing.T) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	require.NoError(t, err)
	return &auth.User{ID: 1, Email: "user@test.local", PasswordHash: string(hashed), IsActive: true}
}

func TestLoginPage(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})

	res, sess := serve(t, sessionManager, handler.ShowLoginForTest, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "<form")
	assert.NotEmpty(t, sess.Get(shared.CSRFSessionKey))
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{user: activeUser(t)})

	_, sess := serve(t, sessionManager, handler.ShowLoginForTest, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	token := sess.Get(shared.CSRFSessionKey)
	require.NotEmpty(t, token)

	res, loaded := serve(t, sessionManager, handler.HandleLoginForTest, postLogin(sessionManager, sess.ID, "user@test.local", "wrongpass", token))

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Invalid email or password.")
	_, signedIn := loaded.UserID()
	assert.False(t, signedIn)
}

func TestLoginValidationErrors(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{user: activeUser(t)})

	res, _ := serve(t, sessionManager, handler.HandleLoginForTest, postLogin(sessionManager, "", "not-an-email", "short", ""))

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Enter a valid email address.")
	assert.Contains(t, res.Body.String(), "Password must be at least 8 characters.")
}

func TestLoginSuccessRenewsSession(t *testing.T) {
	repo := &stubRepo{user: activeUser(t)}
	handler, sessionManager := newAuthHandler(t, repo)

	_, sess := serve(t, sessionManager, handler.ShowLoginForTest, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	oldID := sess.ID

	res, loaded := serve(t, sessionManager, handler.HandleLoginForTest, postLogin(sessionManager, oldID, "USER@test.local", "correctpass", sess.Get(shared.CSRFSessionKey)))

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/suppliers", res.Header().Get("Location"))
	assert.NotEqual(t, oldID, loaded.ID)
	userID, ok := loaded.UserID()
	assert.True(t, ok)
	assert.Equal(t, int64(1), userID)
	assert.Equal(t, int64(1), repo.sessions[loaded.ID])

	stale := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	stale.AddCookie(&http.Cookie{Name: sessionManager.CookieName(), Value: oldID})
	reloaded, err := sessionManager.Load(context.Background(), stale)
	require.NoError(t, err)
	assert.NotEqual(t, oldID, reloaded.ID)
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := &stubRepo{user: activeUser(t)}
	handler, sessionManager := newAuthHandler(t, repo)

	_, sess := serve(t, sessionManager, handler.ShowLoginForTest, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	_, loaded := serve(t, sessionManager, handler.HandleLoginForTest, postLogin(sessionManager, sess.ID, "user@test.local", "correctpass", sess.Get(shared.CSRFSessionKey)))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionManager.CookieName(), Value: loaded.ID})
	res, _ := serve(t, sessionManager, handler.HandleLogoutForTest, req)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth/login", res.Header().Get("Location"))
	assert.NotContains(t, repo.sessions, loaded.ID)
}

func TestCSRFTokenEndpoint(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})

	res, sess := serve(t, sessionManager, handler.CSRFTokenForTest, httptest.NewRequest(http.MethodGet, "/auth/csrf", nil))

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "no-store", res.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"token":"`+sess.Get(shared.CSRFSessionKey)+`"}`, res.Body.String())
}
