package chi

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/quizdex/internal/logger"
)

// exemptPaths bypass authentication so probes and scrapers need no key.
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

type apiKeyIDKey struct{}

type apiKey struct {
	digest [sha256.Size]byte
	id     string
}

// KeyID returns the loggable identifier of an API key: the first 8 hex
// characters of its SHA-256 digest.
func KeyID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:4])
}

// APIKeyIDFromContext returns the KeyID of the authenticated caller, or "".
func APIKeyIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(apiKeyIDKey{}).(string)
	return id
}

// BearerAuthMiddleware validates Bearer tokens against apiKeys. Empty apiKeys
// disables authentication. Accepted requests carry the key id in their context
// and request logger; raw keys are never logged.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := make([]apiKey, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, apiKey{digest: sha256.Sum256([]byte(k)), id: KeyID(k)})
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "missing authorization header")
				return
			}
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok {
				writeError(w, http.StatusUnauthorized,
					ErrorCodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			id, ok := matchKey(keys, token)
			if !ok {
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyIDKey{}, id)
			ctx = logpkg.With(ctx, zap.String("api_key_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// matchKey compares token against every key in constant time.
func matchKey(keys []apiKey, token string) (string, bool) {
	digest := sha256.Sum256([]byte(token))
	matched := ""
	for _, k := range keys {
		if subtle.ConstantTimeCompare(digest[:], k.digest[:]) == 1 {
			matched = k.id
		}
	}
	return matched, matched != ""
}
