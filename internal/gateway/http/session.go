package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/identity"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/service"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/transport"
	"github.com/aussiebroadwan/tenantgate/pkg/gatewaysdk"
	"github.com/aussiebroadwan/tenantgate/pkg/httpx"
	"github.com/aussiebroadwan/tenantgate/pkg/jwtx"
	"github.com/aussiebroadwan/tenantgate/pkg/slogx"
)

type SessionHandler struct {
	Identity       identity.Verifier
	Tokens         *service.TokenService
	SessionService *service.SessionService
	Transport      *transport.Transport
}

// HandleLogin godoc
//
//	@Summary		Login
//	@Description	Verifies an identity provider assertion and resolves the session's tenant.
//	@Description	An account with no memberships gets a tenant provisioned. An account with exactly one
//	@Description	active membership and no pending invites is scoped straight away. Anything else returns
//	@Description	selection_required with an unscoped session and the choices.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		gatewaysdk.LoginRequest		true	"id_token, or code and code_verifier"
//	@Success		200		{object}	gatewaysdk.SessionResponse	"scoped session or selection_required"
//	@Failure		400		{object}	gatewaysdk.ErrorResponse	"malformed request"
//	@Failure		401		{object}	gatewaysdk.ErrorResponse	"assertion could not be verified"
//	@Failure		429		{object}	gatewaysdk.ErrorResponse	"rate limited"
//	@Failure		503		{object}	gatewaysdk.ErrorResponse	"identity provider or database unavailable"
//	@Router			/v1/session/login [post].
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req gatewaysdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "request body must be a JSON login request")
		return
	}
	if req.IDToken == "" && req.Code == "" {
		writeBadRequest(w, "id_token or code is required")
		return
	}

	subj, err := h.Identity.Verify(ctx, identity.Assertion{
		IDToken:      req.IDToken,
		Code:         req.Code,
		CodeVerifier: req.CodeVerifier,
	})
	if err != nil {
		writeServiceError(w, r, err, "identity assertion could not be verified")
		return
	}

	outcome, err := h.SessionService.Resolve(ctx, subj)
	if err != nil {
		writeServiceError(w, r, err, "failed to resolve session")
		return
	}

	switch o := outcome.(type) {
	case domain.ScopedSession:
		log.Info("login scoped", "account_id", o.Token.AccountID, "tenant_id", o.Tenant.ID, "provisioned", o.Provisioned)
		issue(w, r, h.Transport, o.Token, http.StatusOK, scopedResponse(o))
	case domain.SelectionRequired:
		log.Info("login requires selection", "account_id", o.Token.AccountID, "active", len(o.Active), "invited", len(o.Invited))
		issue(w, r, h.Transport, o.Token, http.StatusOK, selectionResponse(o))
	default:
		writeServiceError(w, r, fmt.Errorf("unexpected outcome %T", outcome), "failed to resolve session")
	}
}

// HandleSelect godoc
//
//	@Summary		Select tenant
//	@Description	Scopes the session to one of the account's active tenants. The caller either holds a
//	@Description	session (cookie or bearer) or sends a fresh id_token. Unknown tenants and tenants the
//	@Description	account is not an active member of are answered identically with 403.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		gatewaysdk.SelectRequest	true	"tenant_id and optional id_token"
//	@Success		200		{object}	gatewaysdk.SessionResponse	"scoped session"
//	@Failure		400		{object}	gatewaysdk.ErrorResponse	"malformed request"
//	@Failure		401		{object}	gatewaysdk.ErrorResponse	"no session and no valid id_token"
//	@Failure		403		{object}	gatewaysdk.ErrorResponse	"tenant not available"
//	@Failure		503		{object}	gatewaysdk.ErrorResponse	"dependency unavailable"
//	@Router			/v1/session/select [post].
func (h *SessionHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req gatewaysdk.SelectRequest
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "request body must be a JSON select request")
		return
	}
	if strings.TrimSpace(req.TenantID) == "" {
		writeBadRequest(w, "tenant_id is required")
		return
	}

	var (
		sess domain.ScopedSession
		err  error
	)
	if req.IDToken != "" {
		subj, verr := h.Identity.Verify(ctx, identity.Assertion{IDToken: req.IDToken})
		if verr != nil {
			writeServiceError(w, r, verr, "identity assertion could not be verified")
			return
		}
		sess, err = h.SessionService.SelectTenant(ctx, subj, req.TenantID)
	} else {
		claims, cerr := h.currentClaims(r)
		if cerr != nil {
			writeServiceError(w, r, cerr, "a session or id_token is required")
			return
		}
		sess, err = h.SessionService.SelectTenantForSession(ctx, claims, req.TenantID)
	}
	if err != nil {
		writeServiceError(w, r, err, "failed to select tenant")
		return
	}

	issue(w, r, h.Transport, sess.Token, http.StatusOK, scopedResponse(sess))
}

// HandleSwitch godoc
//
//	@Summary		Switch tenant
//	@Description	Moves a scoped session to another active tenant. The new token replaces the old one in
//	@Description	the session cookie; the old token is not returned again.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		gatewaysdk.SwitchRequest	true	"tenant_id"
//	@Success		200		{object}	gatewaysdk.SessionResponse	"scoped session"
//	@Failure		400		{object}	gatewaysdk.ErrorResponse	"malformed request"
//	@Failure		401		{object}	gatewaysdk.ErrorResponse	"no scoped session"
//	@Failure		403		{object}	gatewaysdk.ErrorResponse	"tenant not available"
//	@Router			/v1/session/switch [post].
func (h *SessionHandler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := httpx.ClaimsFromContext(ctx)

	var req gatewaysdk.SwitchRequest
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "request body must be a JSON switch request")
		return
	}

	sess, err := h.SessionService.SwitchTenant(ctx, claims, req.TenantID)
	if err != nil {
		writeServiceError(w, r, err, "failed to switch tenant")
		return
	}

	slogx.FromContext(ctx).Info("tenant switched", "from", claims.TenantID, "to", sess.Tenant.ID)
	issue(w, r, h.Transport, sess.Token, http.StatusOK, scopedResponse(sess))
}

// HandleGet godoc
//
//	@Summary		Current session
//	@Description	Describes the session the request was authenticated with.
//	@Tags			Session
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	gatewaysdk.SessionInfo		"session details"
//	@Failure		401	{object}	gatewaysdk.ErrorResponse	"no session"
//	@Router			/v1/session [get].
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	claims, _ := httpx.ClaimsFromContext(r.Context())

	info := gatewaysdk.SessionInfo{
		AccountID: claims.Subject,
		SessionID: claims.SID,
		Scoped:    claims.Scoped(),
		TenantID:  claims.TenantID,
		Role:      claims.Role,
		Email:     claims.Email,
		Name:      claims.Name,
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	httpx.WriteJSON(w, http.StatusOK, info)
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	Leaves the current tenant. When the account has more than one active tenant or a pending
//	@Description	invite the session is downgraded to an unscoped one so another tenant can be selected;
//	@Description	otherwise, or when all is true, the session is destroyed.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		gatewaysdk.LogoutRequest	false	"all"
//	@Success		200		{object}	gatewaysdk.LogoutResponse	"destroyed or reselect"
//	@Failure		401		{object}	gatewaysdk.ErrorResponse	"no session"
//	@Failure		503		{object}	gatewaysdk.ErrorResponse	"database unavailable"
//	@Router			/v1/session/logout [post].
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	claims, _ := httpx.ClaimsFromContext(ctx)

	var req gatewaysdk.LogoutRequest
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "request body must be a JSON logout request")
		return
	}

	destroy := req.All || !claims.Scoped()
	if !destroy {
		var err error
		if destroy, err = h.SessionService.ExitDecision(ctx, claims.Subject); err != nil {
			writeServiceError(w, r, err, "failed to end session")
			return
		}
	}

	if destroy {
		h.Transport.Clear(w)
		log.Info("session destroyed", "session_id", claims.SID)
		httpx.WriteJSON(w, http.StatusOK, gatewaysdk.LogoutResponse{Action: gatewaysdk.LogoutDestroyed})
		return
	}

	tok, err := h.SessionService.Unscope(claims)
	if err != nil {
		writeServiceError(w, r, err, "failed to end session")
		return
	}
	sess := tokenResponse(tok)
	log.Info("session unscoped", "session_id", claims.SID, "tenant_id", claims.TenantID)
	issue(w, r, h.Transport, tok, http.StatusOK, gatewaysdk.LogoutResponse{
		Action:  gatewaysdk.LogoutReselect,
		Session: &sess,
	})
}

// currentClaims authenticates the request the way Authn does, for routes
// where a session is optional.
func (h *SessionHandler) currentClaims(r *http.Request) (jwtx.Claims, error) {
	raw, err := h.Transport.Read(r)
	if err != nil {
		raw = httpx.BearerToken(r)
	}
	return h.Tokens.Verify(raw)
}

// issue replaces the session record with tok and writes body. The record is
// replaced before any byte of the body is written.
func issue(w http.ResponseWriter, r *http.Request, tr *transport.Transport, tok domain.SessionToken, status int, body any) {
	if err := tr.Replace(w, tok.Token, tok.ExpiresAt); err != nil {
		writeServiceError(w, r, err, "failed to write session")
		return
	}
	httpx.WriteJSON(w, status, body)
}
