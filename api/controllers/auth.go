package controllers

import (
	"net/http"

	"github.com/angelmondragon/jewelbid-backend/api/responses"
	"github.com/angelmondragon/jewelbid-backend/api/validators"
	"github.com/angelmondragon/jewelbid-backend/internal/auth"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
)

// decodeBody fills dest from the request body. On failure it writes the
// error response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, logg *logger.Logger, dest any) bool {
	if err := validators.DecodeJSONBody(w, r, dest); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return false
	}
	return true
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "auth")
			return
		}
		var body auth.LoginRequest
		if !decodeBody(w, r, logg, &body) {
			return
		}
		session, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// AuthRegister opens a buyer account and answers with a session, so the
// client is signed in straight away.
func AuthRegister(reg auth.RegisterService, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil || svc == nil {
			serviceUnavailable(w, r, logg, "auth")
			return
		}
		var body auth.RegisterRequest
		if !decodeBody(w, r, logg, &body) {
			return
		}
		ctx := r.Context()
		if _, err := reg.Register(ctx, body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		session, err := svc.Login(ctx, auth.LoginRequest{Email: body.Email, Password: body.Password})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}
