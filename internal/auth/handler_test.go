package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
	_ "github.com/tmc6backup-cloud/e-kendali-suma/testing"
)

type stubRepo struct {
	account  *Account
	sessions []string
	removed  []string
}

func (s *stubRepo) FindByName(ctx context.Context, fullName string) (*Account, error) {
	if s.account == nil || s.account.FullName != fullName {
		return nil, shared.ErrInvalidCredentials
	}
	return s.account, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID string, expiresAt time.Time, ip, ua string) error {
	s.sessions = append(s.sessions, id)
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	s.removed = append(s.removed, id)
	return nil
}

func hashedPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestHandler(t *testing.T, repo Repository) (*Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	return NewHandler(nil, NewService(repo), sessionManager, csrfManager), sessionManager
}

func withSession(t *testing.T, sm *shared.SessionManager, req *http.Request) (*http.Request, *shared.Session) {
	t.Helper()
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestLoginIssuesSessionAndCSRFToken(t *testing.T) {
	repo := &stubRepo{account: &Account{
		ID:           "user-1",
		FullName:     "Andi Mappasomba",
		Role:         shared.RolePengaju,
		Department:   "Bidang Pengendalian Pencemaran",
		PasswordHash: hashedPassword(t, "rahasia123"),
	}}
	handler, sm := newTestHandler(t, repo)

	body := `{"full_name":"Andi Mappasomba","password":"rahasia123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req, sess := withSession(t, sm, req)

	res := httptest.NewRecorder()
	handler.handleLogin(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var decoded loginResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &decoded))
	assert.Equal(t, "user-1", decoded.ID)
	assert.Equal(t, "pengaju", decoded.Role)
	assert.NotEmpty(t, decoded.CSRFToken)
	assert.Equal(t, "user-1", sess.User())
	assert.Equal(t, []string{sess.ID}, repo.sessions)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repo := &stubRepo{account: &Account{
		ID:           "user-1",
		FullName:     "Andi Mappasomba",
		PasswordHash: hashedPassword(t, "rahasia123"),
	}}
	handler, sm := newTestHandler(t, repo)

	body := `{"full_name":"Andi Mappasomba","password":"salah"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req, sess := withSession(t, sm, req)

	res := httptest.NewRecorder()
	handler.handleLogin(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Empty(t, sess.User())
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	handler, sm := newTestHandler(t, &stubRepo{})

	body := `{"full_name":"Siapa Saja","password":"rahasia"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req, _ = withSession(t, sm, req)

	res := httptest.NewRecorder()
	handler.handleLogin(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginValidatesPayload(t *testing.T) {
	handler, sm := newTestHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"full_name":""}`))
	req, _ = withSession(t, sm, req)

	res := httptest.NewRecorder()
	handler.handleLogin(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLogoutRemovesServerSession(t *testing.T) {
	repo := &stubRepo{}
	handler, sm := newTestHandler(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req, sess := withSession(t, sm, req)
	sess.SetUser("user-1")

	res := httptest.NewRecorder()
	handler.handleLogout(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, []string{sess.ID}, repo.removed)
}

func TestMeRequiresResolvedActor(t *testing.T) {
	handler, sm := newTestHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req, _ = withSession(t, sm, req)

	res := httptest.NewRecorder()
	handler.handleMe(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	actor := &shared.Actor{ID: "user-1", Name: "Andi", Role: shared.RoleAdmin, Department: "PUSDAL LH SUMA"}
	req = req.WithContext(shared.ContextWithActor(req.Context(), actor))
	res = httptest.NewRecorder()
	handler.handleMe(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var decoded loginResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &decoded))
	assert.Equal(t, "admin", decoded.Role)
}
