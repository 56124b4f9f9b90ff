package gatewaysdk

import (
	"time"

	"github.com/aussiebroadwan/tenantgate/pkg/jwtx"
)

// ============================================================================
// Errors
// ============================================================================

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error            string `json:"error" example:"forbidden"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ============================================================================
// Session
// ============================================================================

// LoginRequest carries an identity assertion. Send either an ID token, or an
// authorization code with its PKCE verifier.
type LoginRequest struct {
	IDToken      string `json:"id_token,omitempty"`
	Code         string `json:"code,omitempty"`
	CodeVerifier string `json:"code_verifier,omitempty"`
}

// SelectRequest picks the tenant for an unscoped session. IDToken is only
// needed when the caller holds no unscoped session.
type SelectRequest struct {
	TenantID string `json:"tenant_id" example:"01J9Z3K6M4Q8T2V5X7Y9A1B3C5"`
	IDToken  string `json:"id_token,omitempty"`
}

// SwitchRequest moves a scoped session to another tenant.
type SwitchRequest struct {
	TenantID string `json:"tenant_id" example:"01J9Z3K6M4Q8T2V5X7Y9A1B3C5"`
}

// LogoutRequest ends or downgrades the session. All ends it regardless of
// how many tenants the account could reselect.
type LogoutRequest struct {
	All bool `json:"all,omitempty"`
}

// Logout actions.
const (
	LogoutDestroyed = "destroyed"
	LogoutReselect  = "reselect"
)

// LogoutResponse reports what happened to the session. On reselect Session
// carries the unscoped token that replaced the scoped one.
type LogoutResponse struct {
	Action  string           `json:"action" example:"reselect"`
	Session *SessionResponse `json:"session,omitempty"`
}

// SessionResponse is returned whenever the gateway issues a session token.
// When SelectionRequired is true the token is unscoped and Active/Invited
// list the choices; otherwise Tenant names the tenant the token is bound to.
type SessionResponse struct {
	SelectionRequired bool `json:"selection_required"`

	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type" example:"Bearer"`
	ExpiresAt   time.Time `json:"expires_at"`
	SessionID   string    `json:"session_id"`
	AccountID   string    `json:"account_id"`
	TenantID    string    `json:"tenant_id,omitempty"`
	Role        string    `json:"role,omitempty" example:"admin"`

	Tenant      *Tenant `json:"tenant,omitempty"`
	Provisioned bool    `json:"provisioned,omitempty"`

	Active  []Membership `json:"active,omitempty"`
	Invited []Membership `json:"invited,omitempty"`
}

// SessionInfo describes the session the request was authenticated with.
type SessionInfo struct {
	AccountID string    `json:"account_id"`
	SessionID string    `json:"session_id"`
	Scoped    bool      `json:"scoped"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Role      string    `json:"role,omitempty"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ============================================================================
// Tenants and memberships
// ============================================================================

// Tenant is an isolated workspace.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" example:"Acme"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership links the caller's account to a tenant.
type Membership struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	TenantName string    `json:"tenant_name,omitempty"`
	Role       string    `json:"role" example:"member"`
	Status     string    `json:"status" example:"INVITED"`
	InvitedBy  string    `json:"invited_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CandidatesResponse lists the tenants the caller can select and the invites
// waiting on a decision.
type CandidatesResponse struct {
	Active  []Membership `json:"active"`
	Invited []Membership `json:"invited"`
}

// CreateTenantRequest creates a tenant with the caller as admin.
type CreateTenantRequest struct {
	Name string `json:"name" example:"Acme"`
}

// IssueInviteRequest invites an existing account, by email, into a tenant.
type IssueInviteRequest struct {
	Email string `json:"email" example:"bob@example.com"`
	Role  string `json:"role,omitempty" example:"member"`
}

// Invite decisions.
const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

// RespondInviteRequest accepts or rejects an invitation.
type RespondInviteRequest struct {
	Decision string `json:"decision" example:"accept"`
}

// ============================================================================
// System
// ============================================================================

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the state of the gateway's dependencies.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// JWKSResponse is the public key set for verifying session tokens.
type JWKSResponse jwtx.JWKS
