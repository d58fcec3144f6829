package controllers

import (
	"net/http"

	"github.com/angelmondragon/jewelbid-backend/api/middleware"
	"github.com/angelmondragon/jewelbid-backend/api/responses"
	"github.com/angelmondragon/jewelbid-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
)

// requireIdentity writes 401 and returns false when Auth did not run.
func requireIdentity(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (auth.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
		return auth.Identity{}, false
	}
	return identity, true
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}
