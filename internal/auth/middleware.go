package auth

import (
	"net/http"

	authlib "github.com/skozubek/startsnap/internal/platform/auth"
)

// Middleware enforces bearer-token authentication on incoming requests.
type Middleware struct {
	inner authlib.Middleware
}

// NewMiddleware constructs Middleware with validation config. Health and metrics
// endpoints skip auth entirely; read-only requests may be anonymous.
func NewMiddleware(cfg Config, onError func(w http.ResponseWriter, r *http.Request, err error)) Middleware {
	skipper := func(r *http.Request) bool {
		return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
	}
	inner := authlib.NewMiddleware(cfg, skipper)
	inner.Optional = anonymousAllowed
	inner.OnError = onError
	return Middleware{inner: inner}
}

// Wrap attaches authentication handling to an http.Handler.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return m.inner.Wrap(next)
}

func anonymousAllowed(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
