package http

import (
	"net/http"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/service"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/transport"
	"github.com/aussiebroadwan/tenantgate/pkg/gatewaysdk"
	"github.com/aussiebroadwan/tenantgate/pkg/httpx"
	"github.com/aussiebroadwan/tenantgate/pkg/slogx"
)

type TenantsHandler struct {
	SessionService *service.SessionService
	InviteService  *service.InviteService
	Transport      *transport.Transport
}

// HandleList godoc
//
//	@Summary		List tenants
//	@Description	Lists the tenants the caller can select (active memberships) and pending invitations.
//	@Tags			Tenants
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	gatewaysdk.CandidatesResponse	"active, invited"
//	@Failure		401	{object}	gatewaysdk.ErrorResponse		"no session"
//	@Failure		503	{object}	gatewaysdk.ErrorResponse		"database unavailable"
//	@Router			/v1/tenants [get].
func (h *TenantsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, err := h.SessionService.ListCandidates(ctx, httpx.AccountIDFromContext(ctx))
	if err != nil {
		writeServiceError(w, r, err, "failed to list tenants")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, gatewaysdk.CandidatesResponse{
		Active:  membershipViews(c.Active),
		Invited: membershipViews(c.Invited),
	})
}

// HandleCreate godoc
//
//	@Summary		Create tenant
//	@Description	Creates a tenant with the caller as its admin and scopes the session to it.
//	@Tags			Tenants
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		gatewaysdk.CreateTenantRequest	true	"name"
//	@Success		201		{object}	gatewaysdk.SessionResponse		"scoped session for the new tenant"
//	@Failure		400		{object}	gatewaysdk.ErrorResponse		"invalid name"
//	@Failure		401		{object}	gatewaysdk.ErrorResponse		"no session"
//	@Router			/v1/tenants [post].
func (h *TenantsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := httpx.ClaimsFromContext(ctx)

	var req gatewaysdk.CreateTenantRequest
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "request body must be a JSON tenant")
		return
	}

	sess, err := h.SessionService.CreateTenant(ctx, claims, req.Name)
	if err != nil {
		writeServiceError(w, r, err, "failed to create tenant")
		return
	}

	issue(w, r, h.Transport, sess.Token, http.StatusCreated, scopedResponse(sess))
}

// HandleInvite godoc
//
//	@Summary		Invite to tenant
//	@Description	Invites an existing account, found by email, into the tenant. The session must be
//	@Description	scoped to that tenant with the admin role.
//	@Tags			Tenants
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string							true	"Tenant ID"
//	@Param			request	body		gatewaysdk.IssueInviteRequest	true	"email, role"
//	@Success		201		{object}	gatewaysdk.Membership			"the INVITED membership"
//	@Failure		400		{object}	gatewaysdk.ErrorResponse		"invalid email or role, or no such account"
//	@Failure		401		{object}	gatewaysdk.ErrorResponse		"no session"
//	@Failure		403		{object}	gatewaysdk.ErrorResponse		"not an admin of this tenant"
//	@Failure		409		{object}	gatewaysdk.ErrorResponse		"account already has a membership"
//	@Router			/v1/tenants/{id}/invites [post].
func (h *TenantsHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	tenantID := r.PathValue("id")

	var req gatewaysdk.IssueInviteRequest
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "request body must be a JSON invite")
		return
	}

	m, err := h.InviteService.IssueInvite(ctx, httpx.AccountIDFromContext(ctx), tenantID, req.Email, domain.Role(req.Role))
	if err != nil {
		writeServiceError(w, r, err, "failed to issue invite")
		return
	}

	log.Info("invite issued", "membership_id", m.ID, "invitee", m.AccountID)
	httpx.WriteJSON(w, http.StatusCreated, membershipView(m, ""))
}
