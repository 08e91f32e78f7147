package httpx

import (
	"context"
	"net/http"
)

// Caller is the already-authorized identity the upstream auth layer asserts
// via headers. The engine never derives roles itself; it only reads this.
type Caller struct {
	UserID string
	Role   string
}

// Operator reports whether the caller may view all orders and change status.
func (c Caller) Operator() bool {
	return c.Role == "admin" || c.Role == "kitchen"
}

type callerKey struct{}

// WithCaller reads the trusted identity headers set by the auth proxy.
func WithCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := Caller{
			UserID: r.Header.Get("X-User-Id"),
			Role:   r.Header.Get("X-User-Role"),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

func CallerFrom(ctx context.Context) Caller {
	c, _ := ctx.Value(callerKey{}).(Caller)
	return c
}

// RequireOperator gates kitchen/admin-only routes. Checked once here at the
// boundary; handlers and services below assume an authorized caller.
func RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CallerFrom(r.Context()).Operator() {
			Error(w, http.StatusForbidden, "Operator role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
