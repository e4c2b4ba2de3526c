package auth

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"lumen/app/pkg/logger"
)

// AgentPrincipal is the identity label attached to requests admitted
// through the pre-shared x-api-key header.
const AgentPrincipal = "agent"

type identityKey struct{}

// Identity returns the caller identity the gateway attached to the
// request context, or empty when the request was admitted through an
// unauthenticated route.
func Identity(ctx context.Context) string {
	id, _ := ctx.Value(identityKey{}).(string)
	return id
}

// IdentityVerifier is the external sign-in provider. It exchanges an
// opaque credential (an OAuth callback artifact) for a verified email.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (string, error)
}

// Gateway decides per request whether a caller may proceed. Two
// independent capabilities are composed with OR: the pre-shared agent
// secret and an interactive session. Misconfiguration fails closed; an
// empty secret admits nobody through the header path.
type Gateway struct {
	allowlist  *Allowlist
	sessions   *SessionStore
	verifier   IdentityVerifier
	agentKey   string
	cookieName string
}

func NewGateway(allowlist *Allowlist, sessions *SessionStore, verifier IdentityVerifier, agentKey string, cookieName string) *Gateway {
	if cookieName == "" {
		cookieName = "lumen_session"
	}
	return &Gateway{
		allowlist:  allowlist,
		sessions:   sessions,
		verifier:   verifier,
		agentKey:   agentKey,
		cookieName: cookieName,
	}
}

// Middleware enforces the admission policy in short-circuit order:
// auth-infrastructure routes, then the agent secret, then a session.
func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if strings.HasPrefix(path, "/auth/") || path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if key := r.Header.Get("x-api-key"); g.agentKey != "" && key == g.agentKey {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, AgentPrincipal)))
			return
		}

		if email := g.sessionEmail(r); email != "" {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, email)))
			return
		}

		signIn := "/auth/signin?callbackUrl=" + url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, signIn, http.StatusFound)
	})
}

func (g *Gateway) sessionEmail(r *http.Request) string {
	cookie, err := r.Cookie(g.cookieName)
	if err != nil {
		return ""
	}
	email, err := g.sessions.Resolve(r.Context(), cookie.Value)
	if err != nil {
		logger.Error("resolve session: %v", err)
		return ""
	}
	return email
}

// Routes registers the sign-in flow. These endpoints stay reachable for
// unauthenticated callers.
func (g *Gateway) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/auth/signin", g.handleSignIn)
	mux.HandleFunc("/auth/signout", g.handleSignOut)
	mux.HandleFunc("/auth/error", g.handleError)
}

func (g *Gateway) handleSignIn(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, signInPage, html.EscapeString(safeCallback(r.URL.Query().Get("callbackUrl"))))
	case http.MethodPost:
		g.completeSignIn(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (g *Gateway) completeSignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/auth/error?error=Verification", http.StatusFound)
		return
	}
	if g.verifier == nil {
		http.Redirect(w, r, "/auth/error?error=Verification", http.StatusFound)
		return
	}

	email, err := g.verifier.Verify(r.Context(), r.PostFormValue("credential"))
	if err != nil {
		logger.Error("sign-in verification failed: %v", err)
		http.Redirect(w, r, "/auth/error?error=Verification", http.StatusFound)
		return
	}
	if !g.allowlist.IsAllowedEmail(email) {
		logger.Info("sign-in rejected, not on allowlist: %s", email)
		http.Redirect(w, r, "/auth/error?error=AccessDenied", http.StatusFound)
		return
	}

	token, err := g.sessions.Create(r.Context(), strings.ToLower(email))
	if err != nil {
		logger.Error("create session: %v", err)
		http.Redirect(w, r, "/auth/error?error=Verification", http.StatusFound)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, safeCallback(r.PostFormValue("callbackUrl")), http.StatusFound)
}

func (g *Gateway) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(g.cookieName); err == nil {
		if err := g.sessions.Delete(r.Context(), cookie.Value); err != nil {
			logger.Error("delete session: %v", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/auth/signin", http.StatusFound)
}

func (g *Gateway) handleError(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.URL.Query().Get("error") == "AccessDenied" {
		fmt.Fprint(w, accessDeniedPage)
		return
	}
	fmt.Fprint(w, signInErrorPage)
}

// safeCallback keeps the post-sign-in redirect on this host.
func safeCallback(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/"
	}
	return raw
}

const signInPage = `<!doctype html>
<html><head><title>Sign in - Lumen Tasks</title></head>
<body>
<h1>Sign in to Lumen Tasks</h1>
<form method="post" action="/auth/signin">
<input type="hidden" name="callbackUrl" value="%s">
<input type="text" name="credential" placeholder="Sign-in credential">
<button type="submit">Sign in</button>
</form>
</body></html>
`

const accessDeniedPage = `<!doctype html>
<html><head><title>Access Denied - Lumen Tasks</title></head>
<body>
<h1>Access Denied</h1>
<p>Sorry, your account is not authorized to use Lumen Tasks. This app is only available to Ben and Lumen.</p>
<p><a href="/">Back to Home</a></p>
</body></html>
`

const signInErrorPage = `<!doctype html>
<html><head><title>Sign-in Error - Lumen Tasks</title></head>
<body>
<h1>Sign-in Error</h1>
<p>An error occurred during sign in. Please try again.</p>
<p><a href="/">Back to Home</a></p>
</body></html>
`
