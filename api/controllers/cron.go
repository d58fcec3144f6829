package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/jewelbid-backend/api/responses"
	"github.com/angelmondragon/jewelbid-backend/internal/auctions"
	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
)

type closeSweep struct {
	Success bool `json:"success"`
	auctions.Result
}

// CronCloseAuctions runs one closing sweep on demand. When some items closed
// the summary is returned even if others failed.
func CronCloseAuctions(closer auctions.Closer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if closer == nil {
			serviceUnavailable(w, r, logg, "auction closer")
			return
		}
		result, err := closer.CloseExpiredAuctions(r.Context(), time.Now())
		if err != nil {
			if len(result.Outcomes) == 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close auctions"))
				return
			}
			if logg != nil {
				logg.Error(r.Context(), "auction close sweep finished with errors", err)
			}
		}
		responses.WriteSuccess(w, closeSweep{Success: err == nil, Result: result})
	}
}
