package http

import (
	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/pkg/gatewaysdk"
)

func tokenResponse(tok domain.SessionToken) gatewaysdk.SessionResponse {
	return gatewaysdk.SessionResponse{
		AccessToken: tok.Token,
		TokenType:   "Bearer",
		ExpiresAt:   tok.ExpiresAt,
		SessionID:   tok.SessionID,
		AccountID:   tok.AccountID,
		TenantID:    tok.TenantID,
		Role:        string(tok.Role),
	}
}

func scopedResponse(s domain.ScopedSession) gatewaysdk.SessionResponse {
	resp := tokenResponse(s.Token)
	resp.Tenant = &gatewaysdk.Tenant{
		ID:        s.Tenant.ID,
		Name:      s.Tenant.Name,
		CreatedAt: s.Tenant.CreatedAt,
	}
	resp.Provisioned = s.Provisioned
	return resp
}

func selectionResponse(s domain.SelectionRequired) gatewaysdk.SessionResponse {
	resp := tokenResponse(s.Token)
	resp.SelectionRequired = true
	resp.Active = membershipViews(s.Active)
	resp.Invited = membershipViews(s.Invited)
	return resp
}

func membershipView(m domain.Membership, tenantName string) gatewaysdk.Membership {
	return gatewaysdk.Membership{
		ID:         m.ID,
		TenantID:   m.TenantID,
		TenantName: tenantName,
		Role:       string(m.Role),
		Status:     string(m.Status),
		InvitedBy:  m.InvitedBy,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// membershipViews never returns nil so lists encode as [].
func membershipViews(ms []domain.TenantMembership) []gatewaysdk.Membership {
	out := make([]gatewaysdk.Membership, 0, len(ms))
	for _, m := range ms {
		out = append(out, membershipView(m.Membership, m.TenantName))
	}
	return out
}
