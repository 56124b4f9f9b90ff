package http

import (
	"net/http"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/service"
	"github.com/aussiebroadwan/tenantgate/pkg/gatewaysdk"
	"github.com/aussiebroadwan/tenantgate/pkg/httpx"
)

type InvitesHandler struct {
	InviteService *service.InviteService
}

// HandleRespond godoc
//
//	@Summary		Respond to invitation
//	@Description	Accepts or rejects a pending invitation. Only the invited account may respond, and only
//	@Description	once; a rejected invitation cannot be accepted later.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string							true	"Membership ID"
//	@Param			request	body		gatewaysdk.RespondInviteRequest	true	"accept or reject"
//	@Success		200		{object}	gatewaysdk.Membership			"the updated membership"
//	@Failure		400		{object}	gatewaysdk.ErrorResponse		"invalid decision"
//	@Failure		401		{object}	gatewaysdk.ErrorResponse		"no session"
//	@Failure		403		{object}	gatewaysdk.ErrorResponse		"no such invitation for this account"
//	@Failure		409		{object}	gatewaysdk.ErrorResponse		"invitation already answered"
//	@Router			/v1/invites/{id}/respond [post].
func (h *InvitesHandler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req gatewaysdk.RespondInviteRequest
	if err := httpx.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "request body must be a JSON decision")
		return
	}

	m, err := h.InviteService.RespondToInvite(ctx, httpx.AccountIDFromContext(ctx), r.PathValue("id"), domain.InviteDecision(req.Decision))
	if err != nil {
		writeServiceError(w, r, err, "failed to respond to invite")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, membershipView(m, ""))
}
