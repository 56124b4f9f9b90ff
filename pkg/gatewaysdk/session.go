package gatewaysdk

import (
	"context"
	"net/http"
)

// Login exchanges an identity assertion for a session.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*SessionResponse, error) {
	var out SessionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/session/login", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Select scopes the current unscoped session to a tenant.
func (c *Client) Select(ctx context.Context, req SelectRequest) (*SessionResponse, error) {
	var out SessionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/session/select", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Switch moves the current scoped session to another tenant.
func (c *Client) Switch(ctx context.Context, tenantID string) (*SessionResponse, error) {
	var out SessionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/session/switch", SwitchRequest{TenantID: tenantID}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Session describes the current session.
func (c *Client) Session(ctx context.Context) (*SessionInfo, error) {
	var out SessionInfo
	if err := c.do(ctx, http.MethodGet, "/v1/session", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout leaves the current tenant. The response says whether the session
// was destroyed or downgraded so another tenant can be selected.
func (c *Client) Logout(ctx context.Context, all bool) (*LogoutResponse, error) {
	var out LogoutResponse
	if err := c.do(ctx, http.MethodPost, "/v1/session/logout", LogoutRequest{All: all}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
