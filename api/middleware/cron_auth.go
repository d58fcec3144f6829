package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/angelmondragon/jewelbid-backend/api/responses"
	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
)

const vercelCronHeader = "X-Vercel-Cron"

// CronAuth admits scheduler calls carrying either the shared cron secret as a
// bearer token or the platform cron header. With no secret configured only
// the header is accepted.
func CronAuth(secret string, logg *logger.Logger) func(http.Handler) http.Handler {
	secret = strings.TrimSpace(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(vercelCronHeader) == "1" {
				next.ServeHTTP(w, r)
				return
			}
			token := bearerToken(r)
			if secret != "" && token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "cron credentials required"))
		})
	}
}
