package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/prairieworks/grainledger-backend/api/responses"
	pkgerrors "github.com/prairieworks/grainledger-backend/pkg/errors"
	"github.com/prairieworks/grainledger-backend/pkg/logger"
)

const apiKeyHeader = "X-API-Key"

// Auth gates every operator route behind the shared secret. The elevator
// office is a single-team deployment; there are no per-user accounts.
func Auth(sharedSecret string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sharedSecret == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shared secret not configured"))
				return
			}

			provided := strings.TrimSpace(r.Header.Get(apiKeyHeader))
			if provided == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing api key"))
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(sharedSecret)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
