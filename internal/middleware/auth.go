package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

// ClientKey holds the name of the authenticated API client.
const ClientKey contextKey = "client"

// probes and scrapes never need a key
var publicPaths = map[string]bool{
	"/health":  true,
	"/livez":   true,
	"/readyz":  true,
	"/metrics": true,
}

// APIKeyAuth accepts "Authorization: Bearer <key>", a bare key in Authorization, or X-API-Key.
// validKeys maps client name -> key; an empty map disables auth.
func APIKeyAuth(validKeys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := presentedKey(r)
			if apiKey == "" {
				writeDetail(w, http.StatusUnauthorized, "missing API key")
				return
			}
			client := matchClient(validKeys, apiKey)
			if client == "" {
				writeDetail(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClientKey, client)))
		})
	}
}

func presentedKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k
	}
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
}

// matchClient compares against every key so timing does not leak which one matched.
func matchClient(validKeys map[string]string, apiKey string) string {
	var client string
	for name, key := range validKeys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 && client == "" {
			client = name
		}
	}
	return client
}

// GetClientFromContext extracts the authenticated client name
func GetClientFromContext(ctx context.Context) string {
	if client, ok := ctx.Value(ClientKey).(string); ok {
		return client
	}
	return ""
}

// writeDetail uses the same {"detail": ...} body as the API handlers.
func writeDetail(w http.ResponseWriter, code int, msg string) {
	writeJSONStatus(w, code, map[string]string{"detail": msg})
}
