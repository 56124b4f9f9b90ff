package gatewaysdk

import (
	"context"
	"net/http"
	"net/url"
)

// ListTenants returns the tenants the caller can select and pending invites.
func (c *Client) ListTenants(ctx context.Context) (*CandidatesResponse, error) {
	var out CandidatesResponse
	if err := c.do(ctx, http.MethodGet, "/v1/tenants", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTenant creates a tenant and scopes the session to it.
func (c *Client) CreateTenant(ctx context.Context, name string) (*SessionResponse, error) {
	var out SessionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/tenants", CreateTenantRequest{Name: name}, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// IssueInvite invites an account into tenantID. The session must be scoped
// to tenantID with the admin role.
func (c *Client) IssueInvite(ctx context.Context, tenantID string, req IssueInviteRequest) (*Membership, error) {
	var out Membership
	path := "/v1/tenants/" + url.PathEscape(tenantID) + "/invites"
	if err := c.do(ctx, http.MethodPost, path, req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// RespondToInvite accepts or rejects the invitation membershipID.
func (c *Client) RespondToInvite(ctx context.Context, membershipID, decision string) (*Membership, error) {
	var out Membership
	path := "/v1/invites/" + url.PathEscape(membershipID) + "/respond"
	if err := c.do(ctx, http.MethodPost, path, RespondInviteRequest{Decision: decision}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
