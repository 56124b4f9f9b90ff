package gatewaysdk

import (
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// Client is a client for the tenantgate gateway.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// BearerToken, when set, is sent as an Authorization header on every
	// request. Clients that cannot keep cookies use it instead of the jar.
	BearerToken string
}

// NewClient returns a client with a cookie jar, so the session record set by
// the gateway is carried between calls.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
	}
}

// WithHTTPClient replaces the underlying HTTP client. A client without a jar
// only authenticates through BearerToken.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.HTTPClient = hc
	return c
}
