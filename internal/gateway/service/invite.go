package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store"
	"github.com/aussiebroadwan/tenantgate/pkg/idx"
	"github.com/aussiebroadwan/tenantgate/pkg/slogx"
)

// InviteService arbitrates membership invitations.
type InviteService struct {
	Store store.Store
}

// RespondToInvite accepts or rejects a pending invitation owned by accountID.
//
// A membership that does not exist or belongs to someone else fails with
// domain.ErrForbidden. One that is no longer INVITED fails with
// domain.ErrConflict, including when a concurrent response won the race.
func (s *InviteService) RespondToInvite(ctx context.Context, accountID, membershipID string, decision domain.InviteDecision) (domain.Membership, error) {
	log := slogx.FromContext(ctx)

	target, ok := decision.Target()
	if !ok {
		return domain.Membership{}, fmt.Errorf("respond to invite: %w: decision must be accept or reject", domain.ErrInvalidInput)
	}

	// 1. Ownership first, so a stranger learns nothing about the status.
	m, err := store.Read(ctx, func(ctx context.Context) (domain.Membership, error) {
		return s.Store.Memberships().GetMembership(ctx, membershipID)
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.Membership{}, forbidden("respond to invite")
	}
	if err != nil {
		return domain.Membership{}, storeErr("respond to invite", err)
	}
	if m.AccountID != accountID {
		log.Warn("invite response by non-owner",
			slog.String("account_id", accountID),
			slog.String("membership_id", membershipID),
		)
		return domain.Membership{}, forbidden("respond to invite")
	}

	// 2. Cheap rejection of already decided invites.
	if m.Status != domain.MembershipInvited {
		return domain.Membership{}, fmt.Errorf("respond to invite: %w: membership is %s", domain.ErrConflict, m.Status)
	}

	// 3. The transition itself is a compare-and-swap on status.
	updated, err := s.Store.Memberships().UpdateMembershipStatus(ctx, membershipID, domain.MembershipInvited, target)
	switch {
	case errors.Is(err, store.ErrStatusMismatch):
		return domain.Membership{}, fmt.Errorf("respond to invite: %w: already decided", domain.ErrConflict)
	case errors.Is(err, store.ErrNotFound):
		return domain.Membership{}, forbidden("respond to invite")
	case err != nil:
		log.Error("failed to update membership status", slog.Any("error", err))
		return domain.Membership{}, storeErr("respond to invite", err)
	}

	log.Info("invite decided",
		slog.String("membership_id", membershipID),
		slog.String("tenant_id", updated.TenantID),
		slog.String("status", string(updated.Status)),
	)
	return updated, nil
}

// IssueInvite invites the account registered under email into tenantID. The
// inviter must hold an ACTIVE admin membership in the tenant; otherwise the
// call fails with domain.ErrForbidden. The invitee must have signed in at
// least once.
func (s *InviteService) IssueInvite(ctx context.Context, inviterID, tenantID, email string, role domain.Role) (domain.Membership, error) {
	log := slogx.FromContext(ctx)

	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return domain.Membership{}, fmt.Errorf("issue invite: %w: a valid email is required", domain.ErrInvalidInput)
	}
	if role == "" {
		role = domain.RoleMember
	}
	if !role.Valid() {
		return domain.Membership{}, fmt.Errorf("issue invite: %w: unknown role %q", domain.ErrInvalidInput, role)
	}

	var m domain.Membership
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		inviter, err := tx.Memberships().GetMembershipForTenant(ctx, inviterID, tenantID)
		if errors.Is(err, store.ErrNotFound) {
			return forbidden("issue invite")
		}
		if err != nil {
			return storeErr("issue invite", err)
		}
		if inviter.Status != domain.MembershipActive || inviter.Role != domain.RoleAdmin {
			return forbidden("issue invite")
		}

		invitee, err := tx.Accounts().GetAccountByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("issue invite: %w: no account is registered with that email", domain.ErrInvalidInput)
		}
		if err != nil {
			return storeErr("issue invite", err)
		}

		now := time.Now().UTC()
		m = domain.Membership{
			ID:        idx.New().String(),
			AccountID: invitee.ID,
			TenantID:  tenantID,
			Role:      role,
			Status:    domain.MembershipInvited,
			InvitedBy: inviterID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Memberships().CreateMembership(ctx, m); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return fmt.Errorf("issue invite: %w: account already has a membership in this tenant", domain.ErrConflict)
			}
			return storeErr("issue invite", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			log.Warn("invite denied", slog.String("inviter_id", inviterID), slog.String("tenant_id", tenantID))
		}
		return domain.Membership{}, err
	}

	log.Info("invite issued",
		slog.String("membership_id", m.ID),
		slog.String("tenant_id", tenantID),
		slog.String("role", string(role)),
	)
	return m, nil
}
