package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func newTestGateway(t *testing.T, verifier IdentityVerifier, agentKey string) (*Gateway, *SessionStore) {
	t.Helper()
	sessions := NewSessionStore(newTestDB(t), time.Hour)
	allowlist := NewAllowlist([]string{"ben@kernioncognitivelabs.com", "lumen@kernioncognitivelabs.com"})
	return NewGateway(allowlist, sessions, verifier, agentKey, "lumen_session"), sessions
}

func recordingHandler(admitted *bool, identity *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*admitted = true
		*identity = Identity(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestGatewayAdmitsAuthRoutesWithoutSession(t *testing.T) {
	gw, _ := newTestGateway(t, nil, "secret")

	var admitted bool
	var identity string
	handler := gw.Middleware(recordingHandler(&admitted, &identity))

	req := httptest.NewRequest(http.MethodGet, "/auth/error?error=AccessDenied", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if !admitted {
		t.Fatal("auth routes must stay reachable without a session")
	}
	if identity != "" {
		t.Fatalf("unexpected identity on auth route: %s", identity)
	}
}

func TestGatewayAdmitsAgentSecret(t *testing.T) {
	gw, _ := newTestGateway(t, nil, "topsecret")

	var admitted bool
	var identity string
	handler := gw.Middleware(recordingHandler(&admitted, &identity))

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("x-api-key", "topsecret")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if !admitted {
		t.Fatal("matching x-api-key must be admitted")
	}
	if identity != AgentPrincipal {
		t.Fatalf("unexpected identity: %s", identity)
	}
}

func TestGatewayEmptySecretFailsClosed(t *testing.T) {
	gw, _ := newTestGateway(t, nil, "")

	var admitted bool
	var identity string
	handler := gw.Middleware(recordingHandler(&admitted, &identity))

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("x-api-key", "")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if admitted {
		t.Fatal("empty configured secret must admit nobody through the header path")
	}
	if rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
}

func TestGatewayRedirectPreservesCallback(t *testing.T) {
	gw, _ := newTestGateway(t, nil, "secret")

	var admitted bool
	var identity string
	handler := gw.Middleware(recordingHandler(&admitted, &identity))

	req := httptest.NewRequest(http.MethodGet, "/tasks?status=pending", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if admitted {
		t.Fatal("request without session or secret must not be admitted")
	}
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	location, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse redirect location: %v", err)
	}
	if location.Path != "/auth/signin" {
		t.Fatalf("unexpected redirect path: %s", location.Path)
	}
	if got := location.Query().Get("callbackUrl"); got != "/tasks?status=pending" {
		t.Fatalf("callbackUrl must preserve the original URL, got %q", got)
	}
}

func TestGatewayAdmitsValidSession(t *testing.T) {
	gw, sessions := newTestGateway(t, nil, "secret")

	token, err := sessions.Create(context.Background(), "ben@kernioncognitivelabs.com")
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	var admitted bool
	var identity string
	handler := gw.Middleware(recordingHandler(&admitted, &identity))

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.AddCookie(&http.Cookie{Name: "lumen_session", Value: token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if !admitted {
		t.Fatal("valid session must be admitted")
	}
	if identity != "ben@kernioncognitivelabs.com" {
		t.Fatalf("unexpected identity: %s", identity)
	}
}

func TestSignInCreatesSessionAndRedirects(t *testing.T) {
	verifier := VerifierFunc(func(ctx context.Context, credential string) (string, error) {
		if credential != "good" {
			return "", errors.New("bad credential")
		}
		return "Ben@KernionCognitiveLabs.com", nil
	})
	gw, sessions := newTestGateway(t, verifier, "secret")

	form := url.Values{}
	form.Set("credential", "good")
	form.Set("callbackUrl", "/tasks")
	req := httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	gw.handleSignIn(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/tasks" {
		t.Fatalf("expected redirect to callback, got %q", got)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "lumen_session" {
		t.Fatalf("expected a session cookie, got %+v", cookies)
	}
	email, err := sessions.Resolve(context.Background(), cookies[0].Value)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if email != "ben@kernioncognitivelabs.com" {
		t.Fatalf("unexpected session email: %s", email)
	}
}

func TestSignInNotOnAllowlist(t *testing.T) {
	verifier := VerifierFunc(func(ctx context.Context, credential string) (string, error) {
		return "intruder@x.com", nil
	})
	gw, _ := newTestGateway(t, verifier, "secret")

	form := url.Values{}
	form.Set("credential", "whatever")
	req := httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	gw.handleSignIn(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/auth/error?error=AccessDenied" {
		t.Fatalf("allowlist rejection must route to the access-denied page, got %q", got)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatal("rejected sign-in must not set a cookie")
	}
}

func TestSignInVerifierFailure(t *testing.T) {
	verifier := VerifierFunc(func(ctx context.Context, credential string) (string, error) {
		return "", errors.New("provider unreachable")
	})
	gw, _ := newTestGateway(t, verifier, "secret")

	form := url.Values{}
	form.Set("credential", "x")
	req := httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	gw.handleSignIn(rr, req)

	if got := rr.Header().Get("Location"); got != "/auth/error?error=Verification" {
		t.Fatalf("verifier failure must route to the generic error page, got %q", got)
	}
}

func TestSignOutDeletesSession(t *testing.T) {
	gw, sessions := newTestGateway(t, nil, "secret")
	token, err := sessions.Create(context.Background(), "ben@kernioncognitivelabs.com")
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/signout", nil)
	req.AddCookie(&http.Cookie{Name: "lumen_session", Value: token})
	rr := httptest.NewRecorder()
	gw.handleSignOut(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	email, err := sessions.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if email != "" {
		t.Fatal("sign-out must invalidate the session")
	}
}

func TestStaticVerifier(t *testing.T) {
	v := NewStaticVerifier("shh", "ben@kernioncognitivelabs.com")
	email, err := v.Verify(context.Background(), "shh")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if email != "ben@kernioncognitivelabs.com" {
		t.Fatalf("unexpected email: %s", email)
	}
	if _, err := v.Verify(context.Background(), "nope"); err == nil {
		t.Fatal("wrong credential must be rejected")
	}
	empty := NewStaticVerifier("", "ben@kernioncognitivelabs.com")
	if _, err := empty.Verify(context.Background(), ""); err == nil {
		t.Fatal("unconfigured verifier must reject")
	}
}
