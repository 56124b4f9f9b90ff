package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/pkg/gatewaysdk"
	"github.com/aussiebroadwan/tenantgate/pkg/httpx"
	"github.com/aussiebroadwan/tenantgate/pkg/slogx"
)

// forbiddenDescription is the same for every tenant or membership the caller
// cannot use, whether it exists or not.
const forbiddenDescription = "the tenant or membership is not available to this account"

func writeError(w http.ResponseWriter, status int, code, desc string) {
	httpx.WriteJSON(w, status, gatewaysdk.ErrorResponse{
		Error:            code,
		ErrorDescription: desc,
	})
}

func writeBadRequest(w http.ResponseWriter, desc string) {
	writeError(w, http.StatusBadRequest, gatewaysdk.ErrorCodeInvalidRequest, desc)
}

// writeServiceError maps a service error onto a status code. Anything that is
// not a domain error is logged and reported as a server error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	log := slogx.FromContext(r.Context())

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeBadRequest(w, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		writeError(w, http.StatusUnauthorized, gatewaysdk.ErrorCodeUnauthenticated, msg)
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, gatewaysdk.ErrorCodeForbidden, forbiddenDescription)
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, gatewaysdk.ErrorCodeConflict, msg)
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		log.Warn("upstream unavailable", "err", err)
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, gatewaysdk.ErrorCodeUpstreamUnavailable, "a dependency is unavailable, try again shortly")
	default:
		log.Error(msg, "err", err)
		writeError(w, http.StatusInternalServerError, gatewaysdk.ErrorCodeServerError, msg)
	}
}
