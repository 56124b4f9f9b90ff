package domain

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

type MembershipStatus string

const (
	MembershipActive   MembershipStatus = "ACTIVE"
	MembershipInvited  MembershipStatus = "INVITED"
	MembershipRejected MembershipStatus = "REJECTED"
)

// Membership links an account to a tenant. Rows are never deleted; REJECTED
// is terminal and the only way into ACTIVE from INVITED is an accepted invite.
type Membership struct {
	ID        string
	AccountID string
	TenantID  string
	Role      Role
	Status    MembershipStatus
	InvitedBy string // empty for self-provisioned memberships
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TenantMembership is a membership joined with its tenant's display data.
type TenantMembership struct {
	Membership
	TenantName string
}

// InviteDecision is the invitee's answer to a pending invitation.
type InviteDecision string

const (
	InviteAccept InviteDecision = "accept"
	InviteReject InviteDecision = "reject"
)

// Target returns the status an INVITED membership moves to for the decision.
func (d InviteDecision) Target() (MembershipStatus, bool) {
	switch d {
	case InviteAccept:
		return MembershipActive, true
	case InviteReject:
		return MembershipRejected, true
	default:
		return "", false
	}
}

// PartitionMemberships splits memberships into ACTIVE and INVITED groups,
// preserving input order. REJECTED memberships are dropped.
func PartitionMemberships(ms []TenantMembership) (active, invited []TenantMembership) {
	for _, m := range ms {
		switch m.Status {
		case MembershipActive:
			active = append(active, m)
		case MembershipInvited:
			invited = append(invited, m)
		}
	}
	return active, invited
}
