package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/scissor/internal/cache"
	"github.com/mmeshcher/scissor/internal/middleware"
	"github.com/mmeshcher/scissor/internal/models"
	"github.com/mmeshcher/scissor/internal/qrcode"
	"github.com/mmeshcher/scissor/internal/repository"
	"github.com/mmeshcher/scissor/internal/service"
)

const testSecret = "test-secret-key"

type testServer struct {
	router   *chi.Mux
	links    *service.LinkService
	accounts *service.AccountService
	session  *middleware.Session
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()

	logger := zap.NewNop()
	repo, err := repository.NewMemoryRepository("", logger)
	require.NoError(t, err)

	links := service.NewLinkService(
		repo,
		cache.NewMemoryCache(cache.DefaultSize, 30*time.Second),
		qrcode.NewStore(filepath.Join(t.TempDir(), "qr-codes")),
		service.NopProber{},
		service.LinkConfig{BaseURL: "http://localhost:8080", CodeLength: 5},
		logger,
	)
	accounts := service.NewAccountService(repo, logger)
	session := middleware.NewSession(testSecret, time.Hour, logger)

	h := NewHandler(links, accounts, session, logger, rateLimit)
	return &testServer{
		router:   h.SetupRouter(),
		links:    links,
		accounts: accounts,
		session:  session,
	}
}

// signUp registers a user and returns a session cookie for it.
func (s *testServer) signUp(t *testing.T, name string) (*models.User, *http.Cookie) {
	t.Helper()

	user, err := s.accounts.Register(context.Background(), models.RegisterRequest{
		Username: name,
		Email:    name + "@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	token, err := s.session.Token(middleware.SessionUser{ID: user.ID, Username: user.Username})
	require.NoError(t, err)

	return user, &http.Cookie{Name: "session", Value: token}
}

func (s *testServer) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// flashFrom decodes the flash cookie set on a response.
func flashFrom(t *testing.T, w *httptest.ResponseRecorder) flash {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		if c.Name == flashCookie {
			req.AddCookie(c)
		}
	}

	f, ok := popFlash(httptest.NewRecorder(), req)
	require.True(t, ok, "response carries no flash message")
	return f
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
