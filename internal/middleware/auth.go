package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const sessionUserKey contextKey = "sessionUser"

const (
	sessionCookie = "session"
	issuer        = "scissor"
)

var ErrInvalidToken = errors.New("invalid session token")

type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionUser is the signed-in user attached to a request.
type SessionUser struct {
	ID       int64
	Username string
}

// Session issues and verifies the signed session cookie.
type Session struct {
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
}

func NewSession(secret string, ttl time.Duration, logger *zap.Logger) *Session {
	return &Session{
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
	}
}

func (s *Session) Token(user SessionUser) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Session) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// SignIn sets the session cookie for user.
func (s *Session) SignIn(w http.ResponseWriter, user SessionUser) error {
	token, err := s.Token(user)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Session) SignOut(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Load attaches the signed-in user to the request context. A bad cookie is
// cleared and the request continues anonymously.
func (s *Session) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := s.Parse(cookie.Value)
		if err != nil {
			s.logger.Debug("Dropping invalid session cookie", zap.Error(err))
			s.SignOut(w)
			next.ServeHTTP(w, r)
			return
		}

		ctx := WithUser(r.Context(), SessionUser{
			ID:       claims.UserID,
			Username: claims.Username,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser sends anonymous requests to the login page.
func (s *Session) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAnonymous sends signed-in users to the home page.
func (s *Session) RequireAnonymous(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); ok {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func UserFromContext(ctx context.Context) (SessionUser, bool) {
	user, ok := ctx.Value(sessionUserKey).(SessionUser)
	return user, ok
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user SessionUser) context.Context {
	return context.WithValue(ctx, sessionUserKey, user)
}
