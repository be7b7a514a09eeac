package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
	_ "github.com/tmc6backup-cloud/e-kendali-suma/testing"
)

func newTestStack(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         logger,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
	}) {
		r.Use(mw)
	}
	r.Get("/token", func(w http.ResponseWriter, req *http.Request) {
		sess := shared.SessionFromContext(req.Context())
		token, err := csrfManager.EnsureToken(req.Context(), sess)
		require.NoError(t, err)
		_, _ = w.Write([]byte(token))
	})
	r.Post("/mutate", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func TestCSRFMiddlewareGuardsUnsafeMethods(t *testing.T) {
	srv := httptest.NewServer(newTestStack(t))
	defer srv.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	res, err := client.Get(srv.URL + "/token")
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	require.Equal(t, http.StatusOK, res.StatusCode)
	token := string(body)
	require.NotEmpty(t, token)

	// Unsafe method without a token is refused.
	res, err = client.Post(srv.URL+"/mutate", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	// Token in the request header passes.
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/mutate", strings.NewReader(`{}`))
	require.NoError(t, err)
	req.Header.Set(shared.CSRFHeader, token)
	res, err = client.Do(req)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	// Form-field fallback passes when the header is absent.
	res, err = client.PostForm(srv.URL+"/mutate", url.Values{shared.CSRFFormField: {token}})
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	// A forged token is refused even with a live session.
	req, err = http.NewRequest(http.MethodPost, srv.URL+"/mutate", strings.NewReader(`{}`))
	require.NoError(t, err)
	req.Header.Set(shared.CSRFHeader, "palsu")
	res, err = client.Do(req)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}
