// Package middleware provides HTTP middleware for the troski API.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// maxRequestIDLength bounds client-supplied request IDs.
const maxRequestIDLength = 128

// requestInfoKey is the context key for the per-request *requestInfo.
type requestInfoKey struct{}

// requestInfo is shared by every middleware of a request. Fields set by
// inner middleware, such as the authenticated client, stay visible to
// outer ones like the access log.
type requestInfo struct {
	id       string
	clientID string
}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo) //nolint:errcheck // absent means nil
	return info
}

// RequestID assigns a request ID and adds it to the request context and the
// X-Request-Id response header. A well-formed incoming X-Request-Id is kept.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if !validRequestID(requestID) {
			requestID = "req_" + uuid.New().String()[:22]
		}

		w.Header().Set("X-Request-Id", requestID)

		ctx := context.WithValue(r.Context(), requestInfoKey{}, &requestInfo{id: requestID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validRequestID accepts non-empty printable ASCII without spaces, so the
// ID is safe to echo in headers and log lines.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if info := requestInfoFrom(ctx); info != nil {
		return info.id
	}
	return ""
}
