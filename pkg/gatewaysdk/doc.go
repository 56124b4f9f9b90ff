// Package gatewaysdk is a Go client for the tenantgate HTTP API.
//
// A Client keeps the session record the gateway sets in a cookie jar, so a
// sequence of calls behaves like a browser:
//
//	c := gatewaysdk.NewClient("https://gateway.example.com")
//	sess, err := c.Login(ctx, gatewaysdk.LoginRequest{IDToken: rawIDToken})
//	if err != nil {
//		return err
//	}
//	if sess.SelectionRequired {
//		sess, err = c.Select(ctx, gatewaysdk.SelectRequest{TenantID: sess.Active[0].TenantID})
//	}
//
// Downstream services verify the scoped token's signature against
// GetJWKS and filter by its tid claim.
//
// Every non-2xx response is returned as an *APIError carrying the status
// code and the gateway's error code; use IsStatus or errors.As to branch.
package gatewaysdk
