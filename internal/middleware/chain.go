// Package middleware composes the request admission pipeline: route
// resolution, token verification, quota admission, then the handler. Every
// rejected request terminates here with exactly one audit event.
package middleware

import (
	"context"
	"net/http"

	"pokedex/internal/policy"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to a handler, outermost first.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

type contextKey string

const (
	identityContextKey contextKey = "identity"
	routeContextKey    contextKey = "route"
)

// Identity returns the authenticated identity attached to the request, or
// "" for anonymous requests.
func Identity(ctx context.Context) string {
	id, _ := ctx.Value(identityContextKey).(string)
	return id
}

// WithIdentity attaches an identity. Exposed for handler tests.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// RouteOf returns the resolved route policy for the request.
func RouteOf(ctx context.Context) policy.Route {
	r, _ := ctx.Value(routeContextKey).(policy.Route)
	return r
}

// ResolveRoute classifies the request against the route table and attaches
// the result, so the token and quota stages know what they are guarding.
func ResolveRoute(engine *policy.Engine) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := engine.Evaluate(r)
			ctx := context.WithValue(r.Context(), routeContextKey, route)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
