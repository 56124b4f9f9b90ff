package domain

import "time"

// SessionToken is a signed session credential. TenantID is empty for an
// unscoped token, which only grants access to tenant selection endpoints.
type SessionToken struct {
	Token     string
	SessionID string
	AccountID string
	TenantID  string
	Role      Role
	ExpiresAt time.Time
}

// Scoped reports whether the token is bound to a tenant.
func (t SessionToken) Scoped() bool {
	return t.TenantID != ""
}

// Outcome is the result of resolving a verified subject to a session. The
// set of implementations is closed: ScopedSession and SelectionRequired.
type Outcome interface {
	isOutcome()
}

// ScopedSession means exactly one tenant applies and a scoped token was minted.
type ScopedSession struct {
	Token       SessionToken
	Tenant      Tenant
	Provisioned bool // the tenant was created by this resolution
}

// SelectionRequired means the client must pick a tenant. Token is unscoped.
type SelectionRequired struct {
	Token   SessionToken
	Active  []TenantMembership
	Invited []TenantMembership
}

func (ScopedSession) isOutcome()     {}
func (SelectionRequired) isOutcome() {}

// ResolutionKind is the branch of the resolution decision table.
type ResolutionKind int

const (
	ResolveProvision ResolutionKind = iota
	ResolveSingle
	ResolveSelect
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolveProvision:
		return "provision"
	case ResolveSingle:
		return "single"
	case ResolveSelect:
		return "select"
	default:
		return "unknown"
	}
}

// Decide applies the resolution table to the counts of ACTIVE and INVITED
// memberships. The first matching row wins.
func Decide(active, invited int) ResolutionKind {
	switch {
	case active == 0 && invited == 0:
		return ResolveProvision
	case active == 1 && invited == 0:
		return ResolveSingle
	default:
		return ResolveSelect
	}
}

// ShouldDestroySession reports whether leaving a tenant context should end
// the session outright. When other tenant choices remain (more than one
// active tenant, or any pending invitation) the client is returned to
// selection instead.
func ShouldDestroySession(active, invited int) bool {
	return !(active > 1 || invited > 0)
}
