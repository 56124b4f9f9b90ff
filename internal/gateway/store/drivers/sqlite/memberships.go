package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store"
)

type membershipsRepo struct {
	db dbtx
}

const membershipColumns = `m.id, m.account_id, m.tenant_id, m.role, m.status, m.invited_by, m.created_at, m.updated_at`

func scanMembership(row interface{ Scan(...any) error }, extra ...any) (domain.Membership, error) {
	var (
		m         domain.Membership
		invitedBy sql.NullString
	)
	dest := append([]any{&m.ID, &m.AccountID, &m.TenantID, &m.Role, &m.Status, &invitedBy, &m.CreatedAt, &m.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Membership{}, mapErr(err)
	}
	m.InvitedBy = invitedBy.String
	return m, nil
}

func scanTenantMembership(row interface{ Scan(...any) error }) (domain.TenantMembership, error) {
	var name string
	m, err := scanMembership(row, &name)
	if err != nil {
		return domain.TenantMembership{}, err
	}
	return domain.TenantMembership{Membership: m, TenantName: name}, nil
}

func (r *membershipsRepo) CreateMembership(ctx context.Context, m domain.Membership) error {
	const q = `INSERT INTO memberships (id, account_id, tenant_id, role, status, invited_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.AccountID, m.TenantID, string(m.Role), string(m.Status),
		nullString(m.InvitedBy), m.CreatedAt.UTC(), m.UpdatedAt.UTC())
	return mapErr(err)
}

func (r *membershipsRepo) GetMembership(ctx context.Context, id string) (domain.Membership, error) {
	return scanMembership(r.db.QueryRowContext(ctx, `SELECT `+membershipColumns+` FROM memberships m WHERE m.id = ?`, id))
}

func (r *membershipsRepo) GetMembershipForTenant(ctx context.Context, accountID, tenantID string) (domain.TenantMembership, error) {
	const q = `SELECT ` + membershipColumns + `, t.name FROM memberships m
		JOIN tenants t ON t.id = m.tenant_id
		WHERE m.account_id = ? AND m.tenant_id = ?`
	return scanTenantMembership(r.db.QueryRowContext(ctx, q, accountID, tenantID))
}

func (r *membershipsRepo) ListMembershipsByAccount(ctx context.Context, accountID string) ([]domain.TenantMembership, error) {
	const q = `SELECT ` + membershipColumns + `, t.name FROM memberships m
		JOIN tenants t ON t.id = m.tenant_id
		WHERE m.account_id = ?
		ORDER BY m.created_at, m.id`
	rows, err := r.db.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.TenantMembership
	for rows.Next() {
		m, err := scanTenantMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, mapErr(rows.Err())
}

func (r *membershipsRepo) UpdateMembershipStatus(ctx context.Context, id string, expected, next domain.MembershipStatus) (domain.Membership, error) {
	const q = `UPDATE memberships SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, string(next), now(), id, string(expected))
	if err != nil {
		return domain.Membership{}, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Membership{}, err
	}

	m, err := r.GetMembership(ctx, id)
	if err != nil {
		return domain.Membership{}, err
	}
	if n == 0 {
		// The row exists but its status moved on
		return domain.Membership{}, store.ErrStatusMismatch
	}
	return m, nil
}
