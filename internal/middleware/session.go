// Package middleware contains the HTTP middleware of the reward-card service.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mateotillmann/elismeres-w3/internal/model"
)

type contextKey string

const actorKey contextKey = "actor"

const (
	sessionCookieName = "admin_session"
	sessionCookieTTL  = 12 * time.Hour

	adminRole = "admin"
)

// SessionManager resolves the acting caller of each request from a signed
// session cookie and verifies admin logins. Requests without a valid cookie
// are not rejected: they proceed as a standard actor and the core operations
// decide what that actor may do.
type SessionManager struct {
	secretKey []byte
	adminHash []byte
}

// NewSessionManager creates a session manager with the given signing secret
// and admin password. An empty password disables admin login entirely.
func NewSessionManager(secret, adminPassword string) *SessionManager {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	var adminHash []byte
	if adminPassword != "" {
		if hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost); err == nil {
			adminHash = hash
		}
	}

	return &SessionManager{
		secretKey: key,
		adminHash: adminHash,
	}
}

// Login verifies the admin password.
func (m *SessionManager) Login(password string) bool {
	if m.adminHash == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword(m.adminHash, []byte(password)) == nil
}

// Middleware resolves the request's actor and stores it in the context.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := model.Actor{}

		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			if role, ok := m.parseToken(cookie.Value); ok && role == adminRole {
				actor = model.AdminActor()
			}
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetAdminCookie establishes an admin session for the client.
func (m *SessionManager) SetAdminCookie(w http.ResponseWriter) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    m.signRole(adminRole),
		Path:     "/",
		Expires:  time.Now().Add(sessionCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

// ClearAdminCookie ends the client's admin session.
func (m *SessionManager) ClearAdminCookie(w http.ResponseWriter) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (m *SessionManager) signRole(role string) string {
	mac := hmac.New(sha256.New, m.secretKey)
	mac.Write([]byte(role))
	signature := mac.Sum(nil)
	return role + "." + hex.EncodeToString(signature)
}

func (m *SessionManager) parseToken(token string) (string, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return "", false
	}

	role := parts[0]
	signature := parts[1]

	mac := hmac.New(sha256.New, m.secretKey)
	mac.Write([]byte(role))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return "", false
	}

	return role, true
}

// ActorFromContext returns the actor resolved for the request. Requests that
// did not pass the middleware resolve to a standard actor.
func ActorFromContext(ctx context.Context) model.Actor {
	if actor, ok := ctx.Value(actorKey).(model.Actor); ok {
		return actor
	}
	return model.Actor{}
}
