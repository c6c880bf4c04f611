package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mateotillmann/elismeres-w3/internal/model"
)

func TestLogin(t *testing.T) {
	m := NewSessionManager("test-secret", "titok")

	if !m.Login("titok") {
		t.Fatalf("correct password rejected")
	}
	if m.Login("wrong") {
		t.Fatalf("wrong password accepted")
	}
	if m.Login("") {
		t.Fatalf("empty password accepted")
	}
}

func TestLogin_DisabledWithoutPassword(t *testing.T) {
	m := NewSessionManager("test-secret", "")

	if m.Login("") || m.Login("anything") {
		t.Fatalf("login must be disabled when no admin password is configured")
	}
}

func TestMiddleware_AdminCookie(t *testing.T) {
	m := NewSessionManager("test-secret", "titok")

	var actor model.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = ActorFromContext(r.Context())
	})

	w := httptest.NewRecorder()
	m.SetAdminCookie(w)

	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no cookies set by SetAdminCookie")
	}

	r := httptest.NewRequest(http.MethodGet, "/api/cards", nil)
	r.AddCookie(cookies[0])

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if !actor.Admin {
		t.Fatalf("valid admin cookie must resolve to an admin actor")
	}
}

func TestMiddleware_WithoutCookie(t *testing.T) {
	m := NewSessionManager("test-secret", "titok")

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		actor := ActorFromContext(r.Context())
		if actor.Admin {
			t.Fatalf("request without cookie must resolve to a standard actor")
		}
	})

	r := httptest.NewRequest(http.MethodGet, "/api/cards", nil)
	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if !called {
		t.Fatalf("requests without a session must still reach the handler")
	}
}

func TestMiddleware_TamperedCookie(t *testing.T) {
	m := NewSessionManager("test-secret", "titok")
	other := NewSessionManager("other-secret", "titok")

	var actor model.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = ActorFromContext(r.Context())
	})

	// Cookie signed with a different secret must not grant the admin role.
	w := httptest.NewRecorder()
	other.SetAdminCookie(w)

	r := httptest.NewRequest(http.MethodGet, "/api/cards", nil)
	r.AddCookie(w.Result().Cookies()[0])

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if actor.Admin {
		t.Fatalf("tampered cookie resolved to an admin actor")
	}
}

func TestActorFromContext_Default(t *testing.T) {
	actor := ActorFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	if actor.Admin || actor.HasPermission(model.PermissionManageEmployees) {
		t.Fatalf("default actor must carry no capabilities")
	}
}
