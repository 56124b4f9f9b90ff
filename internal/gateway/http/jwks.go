package http

import (
	"net/http"

	"github.com/aussiebroadwan/tenantgate/pkg/gatewaysdk"
	"github.com/aussiebroadwan/tenantgate/pkg/httpx"
	"github.com/aussiebroadwan/tenantgate/pkg/jwtx"
)

// JWKSHandler publishes the keys session tokens are signed with, including
// retired keys still inside their grace period.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set downstream services use to verify session tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	gatewaysdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, gatewaysdk.JWKSResponse(keys.PublicJWKS()))
	}
}
