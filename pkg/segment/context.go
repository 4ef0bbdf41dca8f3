package segment

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/simpleab/pkg/simpleab"
)

type requestContextKey struct{}

// WithRequest stores req in ctx.
func WithRequest(ctx context.Context, req simpleab.SegmentRequest) context.Context {
	return context.WithValue(ctx, requestContextKey{}, req)
}

// FromContext returns the lookup request stored by Middleware or WithRequest.
func FromContext(ctx context.Context) simpleab.SegmentRequest {
	req, _ := ctx.Value(requestContextKey{}).(simpleab.SegmentRequest)
	return req
}

// Middleware stores FromRequest(r) in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithRequest(r.Context(), FromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
