package web

import (
	"net/http"

	"github.com/JonMunkholm/ledger/internal/core"
	"github.com/JonMunkholm/ledger/internal/web/middleware"
)

// withClientMetadata puts the client address and user agent on the request
// context for the service's audit lines. It runs after TrustedRealIP.
func withClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithClient(r.Context(), middleware.ClientIP(r), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
